// Command kafeventarchiver consumes events from Kafka and archives them
// to object storage as Parquet or Avro files, partitioned Hive-style by
// topic, spec version, date and partition.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/buffer"
	"github.com/jittakal/kafeventsdk/internal/config"
	"github.com/jittakal/kafeventsdk/internal/encoder"
	internalerrors "github.com/jittakal/kafeventsdk/internal/errors"
	"github.com/jittakal/kafeventsdk/internal/kafka"
	"github.com/jittakal/kafeventsdk/internal/observability"
	"github.com/jittakal/kafeventsdk/internal/server"
	"github.com/jittakal/kafeventsdk/internal/storage"
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
		fmt.Fprintf(os.Stderr, "kafeventarchiver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.NewLoader().Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateArchiver(); err != nil {
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

	logger.Info("starting kafeventarchiver",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
		zap.String("config_file", *configFile),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("storage_format", cfg.Storage.Format),
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	health := server.NewPipelineHealth()
	health.SetComponent("consumer", "starting", false)
	health.SetComponent("storage", "starting", false)

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

	dlq, err := kafka.NewDLQPublisher(
		cfg.Kafka.BootstrapServers,
		security,
		kafka.DLQConfig{
			Enabled:     cfg.Kafka.DLQ.Enabled,
			TopicSuffix: cfg.Kafka.DLQ.TopicSuffix,
			MaxRetries:  cfg.Kafka.DLQ.MaxRetries,
		},
		logger,
		cfg.Application.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to create DLQ publisher: %w", err)
	}
	dlq.WithMetrics(metrics)
	defer dlq.Close()

	consumer, err := kafka.NewSaramaConsumer(kafka.ConsumerConfig{
		BootstrapServers:    cfg.Kafka.BootstrapServers,
		GroupID:             cfg.Kafka.Consumer.GroupID,
		Security:            security,
		AutoOffsetReset:     cfg.Kafka.Consumer.AutoOffsetReset,
		EnableAutoCommit:    cfg.Kafka.Consumer.EnableAutoCommit,
		MaxPollIntervalMS:   cfg.Kafka.Consumer.MaxPollIntervalMS,
		SessionTimeoutMS:    cfg.Kafka.Consumer.SessionTimeoutMS,
		HeartbeatIntervalMS: cfg.Kafka.Consumer.HeartbeatIntervalMS,
	}, logger, metrics, dlq)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	defer consumer.Close()

	format := archive.FormatParquet
	if cfg.Storage.Format == "avro" {
		format = archive.FormatAvro
	}
	compression := cfg.Storage.Compression
	if compression == "" {
		compression = encoder.DefaultCompression(format)
	}

	writer, err := newStorageWriter(cfg, format, compression, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create storage writer: %w", err)
	}
	defer writer.Close()
	health.SetComponent("storage", "available", true)

	router := storage.NewRouter(
		storageProtocol(cfg.Storage.Backend),
		storageBucket(cfg),
		cfg.Storage.BasePath,
		"v1",
	)
	policy := storage.NewPolicy(storage.PolicyConfig{
		MaxFileSizeMB:      cfg.FileRotation.MaxFileSizeMB,
		MaxRecordsPerFile:  cfg.FileRotation.MaxRecordsPerFile,
		MaxDurationSeconds: cfg.FileRotation.MaxDurationSeconds,
		Strategy:           cfg.FileRotation.Strategy,
	})
	manager := buffer.NewManager(cfg.Buffer.MaxSizeMB*1024*1024, cfg.Buffer.MaxRecords)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Subscribe(ctx, cfg.Kafka.Consumer.Topics); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	eventChan, errorChan, err := consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	health.SetComponent("consumer", "running", true)
	logger.Info("archiver started",
		zap.Strings("topics", cfg.Kafka.Consumer.Topics),
		zap.String("group_id", cfg.Kafka.Consumer.GroupID),
	)

	pipeline := &archiverPipeline{
		manager:       manager,
		policy:        policy,
		writer:        writer,
		router:        router,
		dlq:           dlq,
		format:        format,
		logger:        logger,
		metrics:       metrics,
		flushInterval: time.Duration(cfg.Buffer.FlushIntervalSec) * time.Second,
		pendingCommit: make(map[archive.PartitionID]func() error),
	}
	pipeline.archive(ctx, eventChan, errorChan)

	logger.Info("initiating graceful shutdown")
	health.SetComponent("consumer", "stopping", false)

	// Flush whatever remains before releasing the group.
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Shutdown.GracePeriodSeconds)*time.Second,
	)
	defer cancel()
	pipeline.flushAll(shutdownCtx)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("kafeventarchiver stopped")
	return nil
}

// archiverPipeline moves consumed events through per-partition buffers
// into the storage writer.
type archiverPipeline struct {
	manager       *buffer.Manager
	policy        archive.RotationPolicy
	writer        archive.Writer
	router        archive.Router
	dlq           archive.DLQPublisher
	format        archive.FileFormat
	logger        *zap.Logger
	metrics       *observability.Metrics
	flushInterval time.Duration

	// pendingCommit holds the newest commit hook per partition. Offsets
	// are committed only after their records are safely in storage.
	pendingCommit map[archive.PartitionID]func() error
}

// archive runs the buffering loop until the stream ends.
func (p *archiverPipeline) archive(
	ctx context.Context,
	eventChan <-chan *archive.ConsumedEvent,
	errorChan <-chan error,
) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-errorChan:
			if !ok {
				return
			}
			var processingErr *internalerrors.ProcessingError
			if errors.As(err, &processingErr) {
				p.logger.Error("record processing failed",
					zap.String("partition", processingErr.PartitionID.String()),
					zap.Int64("offset", processingErr.Offset),
					zap.Error(processingErr.Err),
				)
				continue
			}
			p.logger.Error("consumer error", zap.Error(err))

		case <-ticker.C:
			for _, partitionID := range p.manager.Partitions() {
				if !p.manager.GetOrCreate(partitionID).IsEmpty() {
					p.flush(ctx, partitionID)
				}
			}

		case consumed, ok := <-eventChan:
			if !ok {
				return
			}
			p.handleEvent(ctx, consumed)
		}
	}
}

func (p *archiverPipeline) handleEvent(ctx context.Context, consumed *archive.ConsumedEvent) {
	partitionID := archive.PartitionID{
		Topic:     consumed.Metadata.Topic,
		Partition: consumed.Metadata.Partition,
	}
	record := archive.Record{
		Event:       consumed.Event,
		Kafka:       consumed.Metadata,
		Offset:      consumed.Metadata.Offset,
		ProcessedAt: time.Now().UTC(),
	}

	buf := p.manager.GetOrCreate(partitionID)
	if err := buf.Add(record); err != nil {
		if errors.Is(err, internalerrors.ErrBufferFull) {
			p.flush(ctx, partitionID)
			err = buf.Add(record)
		}
		if err != nil {
			p.logger.Error("failed to buffer record",
				zap.Error(err),
				zap.String("partition", partitionID.String()),
				zap.Int64("offset", record.Offset),
			)
			return
		}
	}
	p.pendingCommit[partitionID] = consumed.Commit

	stats := buf.Stats()
	p.metrics.SetBufferStats(
		partitionID.Topic,
		partitionID.Partition,
		float64(stats.SizeBytes),
		float64(stats.RecordCount),
	)

	if p.policy.ShouldRotate(stats) {
		p.flush(ctx, partitionID)
	}
}

// flush drains one partition buffer into storage and commits its offset.
func (p *archiverPipeline) flush(ctx context.Context, partitionID archive.PartitionID) {
	buf := p.manager.GetOrCreate(partitionID)
	records := buf.Drain()
	if len(records) == 0 {
		return
	}

	first := records[0]
	path := p.router.Route(partitionID, first.EventTimeUnix(), first.Event.SpecVersion().String())

	bytesWritten, err := p.writer.Write(ctx, records, path, p.format)
	if err != nil {
		p.logger.Error("failed to write batch to storage",
			zap.Error(err),
			zap.String("partition", partitionID.String()),
			zap.Int("records", len(records)),
			zap.String("path", path),
		)
		if !p.divertBatch(ctx, records) {
			// Neither storage nor the DLQ accepted the batch. Leave the
			// offset uncommitted so the records are redelivered once the
			// group resets to the last committed position.
			p.metrics.SetBufferStats(partitionID.Topic, partitionID.Partition, 0, 0)
			p.logger.Error("batch not fully diverted, offset retained for redelivery",
				zap.String("partition", partitionID.String()),
				zap.Int("records", len(records)),
			)
			return
		}
	} else {
		p.logger.Info("wrote batch to storage",
			zap.String("partition", partitionID.String()),
			zap.Int("records", len(records)),
			zap.Int64("bytes", bytesWritten),
			zap.String("path", path),
		)
	}

	p.metrics.SetBufferStats(partitionID.Topic, partitionID.Partition, 0, 0)

	if commit := p.pendingCommit[partitionID]; commit != nil {
		if err := commit(); err != nil {
			p.logger.Error("failed to commit offset",
				zap.Error(err),
				zap.String("partition", partitionID.String()),
			)
		}
		delete(p.pendingCommit, partitionID)
	}
}

// divertBatch forwards a batch that could not be stored to the DLQ so
// the records survive the dropped buffer. It reports whether every
// record was accepted.
func (p *archiverPipeline) divertBatch(ctx context.Context, records []archive.Record) bool {
	if p.dlq == nil {
		return false
	}
	diverted := true
	for _, record := range records {
		raw, err := json.Marshal(record.Event)
		if err != nil {
			p.logger.Error("failed to marshal event for DLQ",
				zap.Error(err),
				zap.String("event_id", record.Event.ID()),
			)
			diverted = false
			continue
		}
		if err := p.dlq.Publish(ctx, raw, record.Kafka, "storage_failed"); err != nil {
			p.logger.Error("failed to publish to DLQ",
				zap.Error(err),
				zap.Int64("offset", record.Offset),
			)
			diverted = false
		}
	}
	return diverted
}

// flushAll drains every buffer, used during shutdown.
func (p *archiverPipeline) flushAll(ctx context.Context) {
	for _, partitionID := range p.manager.Partitions() {
		if !p.manager.GetOrCreate(partitionID).IsEmpty() {
			p.flush(ctx, partitionID)
		}
	}
}

// newStorageWriter builds the writer for the configured backend.
func newStorageWriter(
	cfg *config.ApplicationConfig,
	format archive.FileFormat,
	compression string,
	logger *zap.Logger,
	metrics storage.MetricsCollector,
) (archive.Writer, error) {
	switch cfg.Storage.Backend {
	case "file":
		return storage.NewFileWriter(storage.FileConfig{
			BasePath: cfg.Storage.File.BasePath,
		}, format, compression, logger, metrics)
	case "s3":
		return storage.NewS3Writer(storage.S3Config{
			Bucket:       cfg.Storage.S3.Bucket,
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
			SSEEnabled:   cfg.Storage.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.Storage.S3.SSEKMSKeyID,
		}, format, compression, logger, metrics)
	case "gcs":
		return storage.NewGCSWriter(storage.GCSConfig{
			Bucket:               cfg.Storage.GCS.Bucket,
			ProjectID:            cfg.Storage.GCS.ProjectID,
			CredentialsFile:      cfg.Storage.GCS.CredentialsFile,
			CredentialsJSON:      cfg.Storage.GCS.CredentialsJSON,
			Endpoint:             cfg.Storage.GCS.Endpoint,
			UseDefaultCredential: cfg.Storage.GCS.UseDefaultCredential,
		}, format, compression, logger, metrics)
	case "azure":
		return storage.NewAzureWriter(storage.AzureConfig{
			AccountName:   cfg.Storage.Azure.AccountName,
			AccountKey:    cfg.Storage.Azure.AccountKey,
			ContainerName: cfg.Storage.Azure.Container,
			Endpoint:      cfg.Storage.Azure.Endpoint,
		}, format, compression, logger, metrics)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func storageProtocol(backend string) string {
	switch backend {
	case "s3":
		return "s3"
	case "azure":
		return "wasbs"
	case "gcs":
		return "gs"
	default:
		return "file"
	}
}

func storageBucket(cfg *config.ApplicationConfig) string {
	switch cfg.Storage.Backend {
	case "s3":
		return cfg.Storage.S3.Bucket
	case "azure":
		return cfg.Storage.Azure.Container
	case "gcs":
		return cfg.Storage.GCS.Bucket
	default:
		// File backend resolves paths under its own base directory.
		return ""
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
