// Command kafeventproducer generates synthetic library events and
// publishes them to Kafka.
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
	"github.com/jittakal/kafeventsdk/internal/generator"
	"github.com/jittakal/kafeventsdk/internal/kafka"
	"github.com/jittakal/kafeventsdk/internal/observability"
	"github.com/jittakal/kafeventsdk/internal/server"
	"github.com/jittakal/kafeventsdk/pkg/event"
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
		fmt.Fprintf(os.Stderr, "kafeventproducer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.NewLoader().Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateProducer(); err != nil {
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

	logger.Info("starting kafeventproducer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
		zap.String("config_file", *configFile),
		zap.Strings("brokers", cfg.Kafka.BootstrapServers),
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	health := server.NewPipelineHealth()
	health.SetComponent("producer", "starting", false)

	httpServer := server.NewServer(
		cfg.Observability.Health.Port,
		cfg.Observability.Metrics.Port,
		health,
		registry,
		logger,
	)
	httpServer.Start()

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		BootstrapServers: cfg.Kafka.BootstrapServers,
		Security:         securityConfig(cfg),
		RequiredAcks:     cfg.Kafka.Producer.RequiredAcks,
		CompressionType:  cfg.Kafka.Producer.CompressionType,
		MaxMessageBytes:  cfg.Kafka.Producer.MaxMessageBytes,
		IdempotentWrites: cfg.Kafka.Producer.IdempotentWrites,
		RetryMax:         cfg.Kafka.Producer.RetryMax,
		RetryBackoffMS:   cfg.Kafka.Producer.RetryBackoffMS,
		ContentMode:      cfg.Kafka.Producer.ContentMode,
	}, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	defer producer.Close()

	health.SetComponent("producer", "running", true)

	eventGen := generator.NewGenerator(cfg.Generator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	produceEvents(ctx, producer, eventGen, cfg, logger)

	logger.Info("initiating graceful shutdown")
	health.SetComponent("producer", "stopping", false)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Shutdown.GracePeriodSeconds)*time.Second,
	)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("kafeventproducer stopped")
	return nil
}

// produceEvents runs the generation loop until ctx is cancelled.
func produceEvents(
	ctx context.Context,
	producer *kafka.Producer,
	eventGen *generator.Generator,
	cfg *config.ApplicationConfig,
	logger *zap.Logger,
) {
	ticker := time.NewTicker(time.Duration(cfg.Generator.IntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping event production")
			return
		case <-ticker.C:
			if eventGen.ShouldEmit(cfg.Generator.BookIssued) {
				produceOne(ctx, producer, cfg.Topics.BookIssued, eventGen.BookIssued, logger)
			}
			if eventGen.ShouldEmit(cfg.Generator.BookReturned) {
				produceOne(ctx, producer, cfg.Topics.BookReturned, eventGen.BookReturned, logger)
			}
		}
	}
}

func produceOne(
	ctx context.Context,
	producer *kafka.Producer,
	topic string,
	generate func() (*event.Event, error),
	logger *zap.Logger,
) {
	e, err := generate()
	if err != nil {
		logger.Error("failed to generate event", zap.Error(err), zap.String("topic", topic))
		return
	}
	if err := producer.ProduceEvent(ctx, topic, e); err != nil {
		logger.Error("failed to produce event",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("event_id", e.ID()),
		)
	}
}

func securityConfig(cfg *config.ApplicationConfig) kafka.SecurityConfig {
	return kafka.SecurityConfig{
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
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
