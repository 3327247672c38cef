// Package buffer implements per-partition record buffering for batch
// storage writes.
package buffer

import (
	"fmt"
	"sync"
	"time"

	"github.com/jittakal/kafeventsdk/internal/errors"
	"github.com/jittakal/kafeventsdk/pkg/archive"
	"github.com/jittakal/kafeventsdk/pkg/message"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.Buffer = (*PartitionBuffer)(nil)

// PartitionBuffer buffers records for a single Kafka partition.
// It provides thread-safe buffering with size and record count limits and
// tracks first and last write times for rotation decisions.
type PartitionBuffer struct {
	partitionID    archive.PartitionID
	records        []archive.Record
	maxSizeBytes   int64
	maxRecords     int
	currentSize    int64
	firstWriteTime time.Time
	lastWriteTime  time.Time
	mu             sync.RWMutex
}

// New creates a new partition buffer.
func New(partitionID archive.PartitionID, maxSizeBytes int64, maxRecords int) *PartitionBuffer {
	return &PartitionBuffer{
		partitionID:  partitionID,
		records:      make([]archive.Record, 0, maxRecords),
		maxSizeBytes: maxSizeBytes,
		maxRecords:   maxRecords,
	}
}

// Add adds a record to the buffer.
func (b *PartitionBuffer) Add(record archive.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	recordSize := int64(estimateSize(record))

	if len(b.records) >= b.maxRecords {
		return fmt.Errorf("%w: max records (%d) reached", errors.ErrBufferFull, b.maxRecords)
	}

	if b.maxSizeBytes > 0 && b.currentSize+recordSize > b.maxSizeBytes {
		return fmt.Errorf("%w: max size (%d bytes) would be exceeded", errors.ErrBufferFull, b.maxSizeBytes)
	}

	b.records = append(b.records, record)
	b.currentSize += recordSize

	now := time.Now()
	if b.firstWriteTime.IsZero() {
		b.firstWriteTime = now
	}
	b.lastWriteTime = now

	return nil
}

// Drain removes and returns all records from the buffer.
// The returned slice is owned by the caller; the buffer allocates fresh
// backing storage on the next Add.
func (b *PartitionBuffer) Drain() []archive.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := b.records
	b.reset()
	return records
}

// Stats returns current buffer statistics.
func (b *PartitionBuffer) Stats() archive.FileStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return archive.FileStats{
		RecordCount:    len(b.records),
		SizeBytes:      b.currentSize,
		FirstWriteTime: b.firstWriteTime,
		LastWriteTime:  b.lastWriteTime,
	}
}

// IsEmpty returns true if the buffer is empty.
func (b *PartitionBuffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records) == 0
}

// Reset clears the buffer and resets all statistics.
func (b *PartitionBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *PartitionBuffer) reset() {
	b.records = make([]archive.Record, 0, b.maxRecords)
	b.currentSize = 0
	b.firstWriteTime = time.Time{}
	b.lastWriteTime = time.Time{}
}

// estimateSize approximates the serialized size of a record in bytes.
func estimateSize(record archive.Record) int {
	size := 0

	if e := record.Event; e != nil {
		size += len(e.ID())
		size += len(e.Source().String())
		size += len(e.SpecVersion())
		size += len(e.Type())

		if ct, ok := e.DataContentType(); ok {
			size += len(ct)
		}
		if s, ok := e.Subject(); ok {
			size += len(s)
		}
		if u, ok := e.DataSchema(); ok {
			size += len(u.String())
		}
		if u, ok := e.SchemaURL(); ok {
			size += len(u.String())
		}

		for k, v := range e.Extensions() {
			size += len(k) + len(message.AttributeValue(v))
		}

		size += len(e.Data().Bytes())
	}

	size += len(record.Kafka.Topic)
	size += len(record.Kafka.Key)

	for k, v := range record.Kafka.Headers {
		size += len(k) + len(v)
	}

	return size
}

// Manager manages buffers for multiple Kafka partitions, creating them
// on demand with double-checked locking.
type Manager struct {
	buffers      map[archive.PartitionID]*PartitionBuffer
	maxSizeBytes int64
	maxRecords   int
	mu           sync.RWMutex
}

var _ archive.Manager = (*Manager)(nil)

// NewManager creates a new buffer manager.
func NewManager(maxSizeBytes int64, maxRecords int) *Manager {
	return &Manager{
		buffers:      make(map[archive.PartitionID]*PartitionBuffer),
		maxSizeBytes: maxSizeBytes,
		maxRecords:   maxRecords,
	}
}

// GetOrCreate returns a buffer for the partition, creating if needed.
func (m *Manager) GetOrCreate(partitionID archive.PartitionID) archive.Buffer {
	m.mu.RLock()
	buf, exists := m.buffers[partitionID]
	m.mu.RUnlock()

	if exists {
		return buf
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if buf, exists := m.buffers[partitionID]; exists {
		return buf
	}

	buf = New(partitionID, m.maxSizeBytes, m.maxRecords)
	m.buffers[partitionID] = buf
	return buf
}

// Partitions returns a snapshot of the partitions holding buffers.
func (m *Manager) Partitions() []archive.PartitionID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]archive.PartitionID, 0, len(m.buffers))
	for id := range m.buffers {
		ids = append(ids, id)
	}
	return ids
}
