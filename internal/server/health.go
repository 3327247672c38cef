package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthChecker reports process health for the probe handlers.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	Status() map[string]string
}

// HealthResponse is the JSON body of a probe response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// PipelineHealth is a HealthChecker tracking per-component status. The
// process is live as long as it runs and ready once every registered
// component reports ready.
type PipelineHealth struct {
	mu         sync.RWMutex
	components map[string]string
	notReady   map[string]bool
}

// NewPipelineHealth creates a health tracker with no components.
func NewPipelineHealth() *PipelineHealth {
	return &PipelineHealth{
		components: make(map[string]string),
		notReady:   make(map[string]bool),
	}
}

// SetComponent records a component's status string. ready controls
// whether the component counts towards readiness.
func (p *PipelineHealth) SetComponent(name, status string, ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.components[name] = status
	if ready {
		delete(p.notReady, name)
	} else {
		p.notReady[name] = true
	}
}

// Liveness reports whether the process should keep running.
func (p *PipelineHealth) Liveness() bool {
	return true
}

// Readiness reports whether all registered components are ready.
func (p *PipelineHealth) Readiness(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.notReady) == 0
}

// Status returns a snapshot of per-component status strings.
func (p *PipelineHealth) Status() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]string, len(p.components))
	for name, status := range p.components {
		snapshot[name] = status
	}
	return snapshot
}

var _ HealthChecker = (*PipelineHealth)(nil)

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, logger)
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
// Readiness indicates whether the application can handle traffic.
func ReadinessHandler(checker HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeHealth(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.Status(),
		}, logger)
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, response HealthResponse, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode health response", zap.Error(err))
	}
}
