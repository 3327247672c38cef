// Package storage implements the archival pipeline's storage backends:
// local filesystem, S3, Google Cloud Storage and Azure Blob, plus the
// path router and rotation policy.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	IncFilesWritten(topic string, partition int32, format string, status string)
	ObserveFileSize(topic string, partition int32, format string, size float64)
	ObserveStorageWriteDuration(topic string, partition int32, duration float64)
	IncStorageErrors(backend string, operation string)
}

// objectKey strips a protocol prefix and the bucket segment from a routed
// path, returning the backend object key with the timestamped filename
// appended.
func objectKey(path, protocol, filename string) string {
	key := path
	prefix := protocol + "://"
	if strings.HasPrefix(path, prefix) {
		withoutProtocol := strings.TrimPrefix(path, prefix)
		parts := strings.SplitN(withoutProtocol, "/", 2)
		if len(parts) == 2 {
			key = parts[1]
		} else {
			key = ""
		}
	}
	return strings.TrimPrefix(key+filename, "/")
}

// timestampedFilename builds events_YYYYMMDD_HHMMSS_NNN.{ext} where NNN
// is the millisecond component, keeping names unique within a second.
func timestampedFilename(now time.Time, extension string) string {
	return fmt.Sprintf("events_%s_%03d%s",
		now.Format("20060102_150405"), now.Nanosecond()/1000000, extension)
}

// encodeToTemp encodes records to a temp file for upload. The caller
// removes the file when done.
func encodeToTemp(enc archive.Encoder, backend string, records []archive.Record) (string, *archive.FileStats, error) {
	tempFile := filepath.Join(os.TempDir(),
		fmt.Sprintf("%s-upload-%d%s", backend, time.Now().UnixNano(), enc.FileExtension()))
	stats, err := enc.Encode(tempFile, records)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return tempFile, stats, nil
}

// recordWriteMetrics reports one successful batch write.
func recordWriteMetrics(metrics MetricsCollector, records []archive.Record, format archive.FileFormat, size int64, duration time.Duration) {
	if metrics == nil || len(records) == 0 {
		return
	}
	topic := records[0].Kafka.Topic
	partition := records[0].Kafka.Partition
	metrics.IncFilesWritten(topic, partition, string(format), "success")
	metrics.ObserveFileSize(topic, partition, string(format), float64(size))
	metrics.ObserveStorageWriteDuration(topic, partition, duration.Seconds())
}

func incError(metrics MetricsCollector, backend, operation string) {
	if metrics != nil {
		metrics.IncStorageErrors(backend, operation)
	}
}

func writeFields(stats *archive.FileStats, format archive.FileFormat, duration time.Duration) []zap.Field {
	return []zap.Field{
		zap.Int("record_count", stats.RecordCount),
		zap.Int64("file_size", stats.SizeBytes),
		zap.String("format", string(format)),
		zap.Int64("total_duration_ms", duration.Milliseconds()),
	}
}
