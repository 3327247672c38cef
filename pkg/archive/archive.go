package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jittakal/kafeventsdk/pkg/event"
)

// KafkaMetadata carries the Kafka coordinates and transport metadata of a
// consumed record.
type KafkaMetadata struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Headers   map[string]string
	Timestamp time.Time
}

// PartitionID uniquely identifies a Kafka partition.
type PartitionID struct {
	Topic     string
	Partition int32
}

// String renders the partition ID as "topic-partition".
func (p PartitionID) String() string {
	return fmt.Sprintf("%s-%d", p.Topic, p.Partition)
}

// Record is one decoded event plus its provenance, ready for buffering
// and storage.
type Record struct {
	Event       *event.Event
	Kafka       KafkaMetadata
	Offset      int64
	ProcessedAt time.Time
}

// EventTime returns the record's timestamp: the event's own occurrence
// time when present, otherwise the Kafka message timestamp.
func (r *Record) EventTime() time.Time {
	if r.Event != nil {
		if t, ok := r.Event.Time(); ok {
			return t
		}
	}
	return r.Kafka.Timestamp
}

// EventTimeUnix returns EventTime as Unix seconds.
func (r *Record) EventTimeUnix() int64 {
	return r.EventTime().Unix()
}

// FileStats describes a buffered batch or an encoded file.
type FileStats struct {
	RecordCount    int
	SizeBytes      int64
	FirstWriteTime time.Time
	LastWriteTime  time.Time
}

// FileFormat selects the encoded file format.
type FileFormat string

const (
	FormatParquet FileFormat = "parquet"
	FormatAvro    FileFormat = "avro"
)

// Buffer batches records for one partition before storage. All
// implementations must be safe for concurrent use.
type Buffer interface {
	// Add appends a record, failing when capacity would be exceeded.
	Add(record Record) error

	// Drain removes and returns all buffered records, resetting the
	// buffer.
	Drain() []Record

	// Stats reports the current batch without modifying the buffer.
	Stats() FileStats

	// IsEmpty reports whether the buffer holds no records.
	IsEmpty() bool

	// Reset clears the buffer and its statistics.
	Reset()
}

// Manager hands out one buffer per partition.
type Manager interface {
	GetOrCreate(partitionID PartitionID) Buffer
}

// Encoder writes a batch of records to a file in one format.
type Encoder interface {
	// Encode writes records to filePath and reports what it wrote.
	Encode(filePath string, records []Record) (*FileStats, error)

	// Format returns the format this encoder produces.
	Format() FileFormat

	// FileExtension returns the extension including the dot.
	FileExtension() string
}

// Writer persists encoded batches to a storage backend.
type Writer interface {
	// Write stores records under path and returns the bytes written.
	Write(ctx context.Context, records []Record, path string, format FileFormat) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Router maps a partition and event time to a storage path prefix.
type Router interface {
	// Route returns the path for a partition at the given Unix-seconds
	// timestamp. specVersion varies the version segment of the layout;
	// empty selects the configured default.
	Route(partitionID PartitionID, timestamp int64, specVersion string) string
}

// RotationPolicy decides when a buffered batch is flushed to storage.
type RotationPolicy interface {
	ShouldRotate(stats FileStats) bool
}

// ConsumedEvent is one successfully decoded Kafka message with its commit
// hook. Commit marks the offset; the consumer group flushes marks on its
// own interval.
type ConsumedEvent struct {
	Event    *event.Event
	Metadata KafkaMetadata
	Commit   func() error
}

// Consumer reads events from Kafka topics.
type Consumer interface {
	// Subscribe records the topics to consume from.
	Subscribe(ctx context.Context, topics []string) error

	// Consume starts the consumer group session and returns the event
	// and error streams. Both channels close when ctx is done.
	Consume(ctx context.Context) (<-chan *ConsumedEvent, <-chan error, error)

	// Commit marks an offset as processed for a partition.
	Commit(ctx context.Context, partition PartitionID, offset int64) error

	// Close stops the group and releases resources.
	Close() error
}

// DLQPublisher forwards messages the pipeline cannot process to a dead
// letter topic. The raw message bytes travel as-is, so undecodable
// payloads are preserved for inspection.
type DLQPublisher interface {
	Publish(ctx context.Context, raw []byte, metadata KafkaMetadata, reason string) error
	Close() error
}
