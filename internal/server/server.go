// Package server implements the HTTP endpoints for health probes and
// Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server hosts the health and metrics HTTP listeners.
type Server struct {
	healthServer  *http.Server
	metricsServer *http.Server
	logger        *zap.Logger
}

// NewServer creates the HTTP servers for the given ports.
func NewServer(
	healthPort int,
	metricsPort int,
	checker HealthChecker,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health/live", LivenessHandler(checker, logger))
	healthMux.HandleFunc("/health/ready", ReadinessHandler(checker, logger))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		healthServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", healthPort),
			Handler:      healthMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		metricsServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", metricsPort),
			Handler:      metricsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start starts both listeners in the background.
func (s *Server) Start() {
	go s.serve("health", s.healthServer)
	go s.serve("metrics", s.metricsServer)
}

func (s *Server) serve(name string, srv *http.Server) {
	s.logger.Info("starting http server",
		zap.String("server", name),
		zap.String("addr", srv.Addr),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("http server failed",
			zap.String("server", name),
			zap.Error(err),
		)
	}
}

// Shutdown gracefully shuts down both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http servers")

	errChan := make(chan error, 2)
	go func() { errChan <- s.healthServer.Shutdown(ctx) }()
	go func() { errChan <- s.metricsServer.Shutdown(ctx) }()

	var lastErr error
	for i := 0; i < 2; i++ {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down http server", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}
