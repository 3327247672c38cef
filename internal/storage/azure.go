package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/encoder"
	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.Writer = (*AzureWriter)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Endpoint      string
}

// AzureWriter implements archive.Writer for Azure Blob Storage using
// access key authentication.
type AzureWriter struct {
	client         *azblob.Client
	containerName  string
	encoderFactory *encoder.Factory
	logger         *zap.Logger
	metrics        MetricsCollector
	mu             sync.Mutex
}

// NewAzureWriter creates a new Azure Blob storage writer.
func NewAzureWriter(
	cfg AzureConfig,
	format archive.FileFormat,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*AzureWriter, error) {
	var connectionString string
	if cfg.Endpoint != "" {
		connectionString = fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			cfg.AccountName, cfg.AccountKey, cfg.Endpoint)
	} else {
		connectionString = fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
			cfg.AccountName, cfg.AccountKey)
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	encoderFactory := encoder.NewFactory(format, compression)
	if _, err := encoderFactory.CreateEncoder(); err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("Azure writer created",
		zap.String("container", cfg.ContainerName),
		zap.String("account", cfg.AccountName),
		zap.String("format", string(format)),
		zap.String("compression", compression),
	)

	return &AzureWriter{
		client:         client,
		containerName:  cfg.ContainerName,
		encoderFactory: encoderFactory,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// Write writes records to Azure Blob Storage.
func (w *AzureWriter) Write(ctx context.Context, records []archive.Record, path string, format archive.FileFormat) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	startTime := time.Now()

	enc, err := w.encoderFactory.CreateEncoder()
	if err != nil {
		incError(w.metrics, "azure", "encoder_create")
		return 0, fmt.Errorf("failed to create encoder: %w", err)
	}

	filename := timestampedFilename(startTime, enc.FileExtension())
	blobPath := objectKey(path, "wasbs", filename)

	tempFile, stats, err := encodeToTemp(enc, "azure", records)
	if err != nil {
		incError(w.metrics, "azure", "encode")
		return 0, err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		incError(w.metrics, "azure", "file_open")
		return 0, fmt.Errorf("failed to open encoded file: %w", err)
	}
	defer file.Close()

	if _, err := w.client.UploadFile(ctx, w.containerName, blobPath, file, nil); err != nil {
		incError(w.metrics, "azure", "upload")
		return 0, fmt.Errorf("failed to upload to Azure Blob: %w", err)
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote records to Azure Blob",
		append([]zap.Field{
			zap.String("container", w.containerName),
			zap.String("blob", blobPath),
		}, writeFields(stats, format, duration)...)...)

	recordWriteMetrics(w.metrics, records, format, stats.SizeBytes, duration)

	return stats.SizeBytes, nil
}

// Close closes the Azure writer.
func (w *AzureWriter) Close() error {
	w.logger.Info("Azure writer closed")
	return nil
}
