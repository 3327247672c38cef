package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/encoder"
	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.Writer = (*FileWriter)(nil)

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FileWriter implements archive.Writer for local filesystem storage.
// Files land in a hierarchical directory layout mirroring the routed
// path, one timestamped file per batch.
type FileWriter struct {
	basePath       string
	encoderFactory *encoder.Factory
	logger         *zap.Logger
	metrics        MetricsCollector
	mu             sync.Mutex
	fileSequence   int    // sequence for files created within the same second
	lastTimestamp  string // last timestamp used for filename generation
}

// NewFileWriter creates a new filesystem storage writer.
func NewFileWriter(
	config FileConfig,
	format archive.FileFormat,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*FileWriter, error) {
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	encoderFactory := encoder.NewFactory(format, compression)
	if _, err := encoderFactory.CreateEncoder(); err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("filesystem writer created",
		zap.String("base_path", config.BasePath),
		zap.String("format", string(format)),
		zap.String("compression", compression),
	)

	return &FileWriter{
		basePath:       config.BasePath,
		encoderFactory: encoderFactory,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// Write writes records to the filesystem.
func (w *FileWriter) Write(
	ctx context.Context,
	records []archive.Record,
	path string,
	format archive.FileFormat,
) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(records) == 0 {
		return 0, fmt.Errorf("no records to write")
	}

	startTime := time.Now()

	fileEncoder, err := w.encoderFactory.CreateEncoder()
	if err != nil {
		incError(w.metrics, "file", "encoder_create")
		return 0, fmt.Errorf("failed to create encoder: %w", err)
	}

	cleanPath := strings.TrimPrefix(path, "file://")

	// Sequence within a second keeps filenames unique without relying
	// on sub-second precision.
	timestamp := startTime.Format("20060102_150405")
	if timestamp == w.lastTimestamp {
		w.fileSequence++
	} else {
		w.fileSequence = 1
		w.lastTimestamp = timestamp
	}
	filename := fmt.Sprintf("events_%s_%03d%s", timestamp, w.fileSequence, fileEncoder.FileExtension())

	dir := filepath.Join(w.basePath, cleanPath)
	fullPath := filepath.Join(dir, filename)

	if err := os.MkdirAll(dir, 0755); err != nil {
		incError(w.metrics, "file", "mkdir")
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	stats, err := fileEncoder.Encode(fullPath, records)
	if err != nil {
		incError(w.metrics, "file", "encode")
		return 0, fmt.Errorf("failed to encode records: %w", err)
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote records to file",
		append([]zap.Field{zap.String("path", fullPath)}, writeFields(stats, format, duration)...)...)

	recordWriteMetrics(w.metrics, records, format, stats.SizeBytes, duration)

	return stats.SizeBytes, nil
}

// Close closes the writer.
func (w *FileWriter) Close() error {
	w.logger.Info("closing filesystem writer")
	return nil
}
