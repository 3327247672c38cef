// Command kafeventconsumer consumes events from Kafka topics and logs
// them. It is a diagnostic tail for inspecting live event streams.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/config"
	"github.com/jittakal/kafeventsdk/internal/kafka"
	"github.com/jittakal/kafeventsdk/internal/observability"
	"github.com/jittakal/kafeventsdk/internal/server"
	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Version information, set during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

var (
	configFile = flag.String("config", getEnv("CONFIG_FILE", "config/application.yaml"), "Path to configuration file")
	logLevel   = flag.String("log-level", getEnv("LOG_LEVEL", ""), "Log level override (debug, info, warn, error)")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kafeventconsumer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.NewLoader().Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(cfg.Kafka.Consumer.Topics) == 0 {
		// Fall back to the producer topics so a single config file can
		// drive both programs.
		cfg.Kafka.Consumer.Topics = []string{cfg.Topics.BookIssued, cfg.Topics.BookReturned}
	}
	if cfg.Kafka.Consumer.GroupID == "" {
		cfg.Kafka.Consumer.GroupID = "kafeventconsumer"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loggingConfig := observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	}
	if *logLevel != "" {
		loggingConfig.Level = *logLevel
	}
	logger, err := observability.NewLogger(loggingConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting kafeventconsumer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
		zap.Strings("topics", cfg.Kafka.Consumer.Topics),
		zap.String("group_id", cfg.Kafka.Consumer.GroupID),
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	health := server.NewPipelineHealth()
	health.SetComponent("consumer", "starting", false)

	httpServer := server.NewServer(
		cfg.Observability.Health.Port,
		cfg.Observability.Metrics.Port,
		health,
		registry,
		logger,
	)
	httpServer.Start()

	security := kafka.SecurityConfig{
		Protocol:       cfg.Kafka.SecurityProtocol,
		SASLMechanism:  cfg.Kafka.SASLMechanism,
		SASLUsername:   cfg.Kafka.SASLUsername,
		SASLPassword:   cfg.Kafka.SASLPassword,
		AWSRegion:      cfg.Kafka.AWSRegion,
		TLSSkipVerify:  cfg.Kafka.TLSSkipVerify,
		CACertFile:     cfg.Kafka.CACertFile,
		ClientCertFile: cfg.Kafka.ClientCertFile,
		ClientKeyFile:  cfg.Kafka.ClientKeyFile,
	}

	consumer, err := kafka.NewSaramaConsumer(kafka.ConsumerConfig{
		BootstrapServers:    cfg.Kafka.BootstrapServers,
		GroupID:             cfg.Kafka.Consumer.GroupID,
		Security:            security,
		AutoOffsetReset:     cfg.Kafka.Consumer.AutoOffsetReset,
		EnableAutoCommit:    cfg.Kafka.Consumer.EnableAutoCommit,
		MaxPollIntervalMS:   cfg.Kafka.Consumer.MaxPollIntervalMS,
		SessionTimeoutMS:    cfg.Kafka.Consumer.SessionTimeoutMS,
		HeartbeatIntervalMS: cfg.Kafka.Consumer.HeartbeatIntervalMS,
	}, logger, metrics, nil)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Subscribe(ctx, cfg.Kafka.Consumer.Topics); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	eventChan, errorChan, err := consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	health.SetComponent("consumer", "running", true)
	logger.Info("consumer started")

	tailEvents(ctx, eventChan, errorChan, logger)

	logger.Info("initiating graceful shutdown")
	health.SetComponent("consumer", "stopping", false)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Shutdown.GracePeriodSeconds)*time.Second,
	)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("kafeventconsumer stopped")
	return nil
}

// tailEvents logs each consumed event until the stream ends.
func tailEvents(
	ctx context.Context,
	eventChan <-chan *archive.ConsumedEvent,
	errorChan <-chan error,
	logger *zap.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errorChan:
			if !ok {
				return
			}
			logger.Error("consumer error", zap.Error(err))
		case consumed, ok := <-eventChan:
			if !ok {
				return
			}

			e := consumed.Event
			fields := []zap.Field{
				zap.String("event_id", e.ID()),
				zap.String("event_type", e.Type()),
				zap.Stringer("source", e.Source()),
				zap.String("spec_version", e.SpecVersion().String()),
				zap.String("topic", consumed.Metadata.Topic),
				zap.Int32("partition", consumed.Metadata.Partition),
				zap.Int64("offset", consumed.Metadata.Offset),
				zap.Int("data_bytes", len(e.Data().Bytes())),
			}
			if subject, ok := e.Subject(); ok {
				fields = append(fields, zap.String("subject", subject))
			}
			if t, ok := e.Time(); ok {
				fields = append(fields, zap.Time("event_time", t))
			}
			logger.Info("event received", fields...)

			if err := consumed.Commit(); err != nil {
				logger.Error("failed to commit offset",
					zap.Error(err),
					zap.Int64("offset", consumed.Metadata.Offset),
				)
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
