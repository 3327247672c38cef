package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jittakal/kafeventsdk/internal/encoder"
	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.Writer = (*GCSWriter)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// GCSWriter implements archive.Writer for Google Cloud Storage. It
// supports service account file, inline JSON and application default
// credentials.
type GCSWriter struct {
	client         *gstorage.Client
	bucket         string
	encoderFactory *encoder.Factory
	logger         *zap.Logger
	metrics        MetricsCollector
	mu             sync.Mutex
}

// NewGCSWriter creates a new Google Cloud Storage writer.
func NewGCSWriter(
	cfg GCSConfig,
	format archive.FileFormat,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*GCSWriter, error) {
	ctx := context.Background()

	var clientOpts []option.ClientOption
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.UseDefaultCredential:
		logger.Info("using default GCP credentials")
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		logger.Info("using GCP credentials from JSON string")
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info("using GCP credentials from file", zap.String("file", cfg.CredentialsFile))
	default:
		logger.Info("no explicit credentials provided, using default GCP credentials")
	}

	client, err := gstorage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	encoderFactory := encoder.NewFactory(format, compression)
	if _, err := encoderFactory.CreateEncoder(); err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("GCS writer created",
		zap.String("bucket", cfg.Bucket),
		zap.String("project_id", cfg.ProjectID),
		zap.String("format", string(format)),
		zap.String("compression", compression),
	)

	return &GCSWriter{
		client:         client,
		bucket:         cfg.Bucket,
		encoderFactory: encoderFactory,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// Write writes records to Google Cloud Storage.
func (w *GCSWriter) Write(
	ctx context.Context,
	records []archive.Record,
	path string,
	format archive.FileFormat,
) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	startTime := time.Now()

	enc, err := w.encoderFactory.CreateEncoder()
	if err != nil {
		incError(w.metrics, "gcs", "encoder_create")
		return 0, fmt.Errorf("failed to create encoder: %w", err)
	}

	filename := timestampedFilename(startTime, enc.FileExtension())
	objectPath := objectKey(path, "gs", filename)

	tempFile, stats, err := encodeToTemp(enc, "gcs", records)
	if err != nil {
		incError(w.metrics, "gcs", "encode")
		return 0, err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		incError(w.metrics, "gcs", "file_open")
		return 0, fmt.Errorf("failed to open encoded file: %w", err)
	}
	defer file.Close()

	obj := w.client.Bucket(w.bucket).Object(objectPath)
	gcsWriter := obj.NewWriter(ctx)

	switch format {
	case archive.FormatAvro:
		gcsWriter.ContentType = "application/avro"
	default:
		gcsWriter.ContentType = "application/octet-stream"
	}

	bytesWritten, err := io.Copy(gcsWriter, file)
	if err != nil {
		incError(w.metrics, "gcs", "upload")
		gcsWriter.Close()
		return 0, fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := gcsWriter.Close(); err != nil {
		incError(w.metrics, "gcs", "close")
		return 0, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote records to GCS",
		append([]zap.Field{
			zap.String("bucket", w.bucket),
			zap.String("object", objectPath),
			zap.Int64("bytes_written", bytesWritten),
		}, writeFields(stats, format, duration)...)...)

	recordWriteMetrics(w.metrics, records, format, stats.SizeBytes, duration)

	return stats.SizeBytes, nil
}

// Close closes the GCS writer.
func (w *GCSWriter) Close() error {
	w.logger.Info("closing GCS writer")
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}
