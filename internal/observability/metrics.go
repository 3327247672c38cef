package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jittakal/kafeventsdk/internal/kafka"
	"github.com/jittakal/kafeventsdk/internal/storage"
)

// Metrics interface assertions.
var (
	_ kafka.MetricsCollector   = (*Metrics)(nil)
	_ kafka.ProducerMetrics    = (*Metrics)(nil)
	_ kafka.DLQMetrics         = (*Metrics)(nil)
	_ storage.MetricsCollector = (*Metrics)(nil)
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Producer metrics
	EventsProduced  *prometheus.CounterVec
	ProduceDuration *prometheus.HistogramVec

	// Consumer metrics
	MessagesConsumed   *prometheus.CounterVec
	DecodeFailures     *prometheus.CounterVec
	OffsetCommits      *prometheus.CounterVec
	Rebalances         *prometheus.CounterVec
	RebalanceDuration  *prometheus.HistogramVec
	PartitionsAssigned *prometheus.GaugeVec
	CommitLatency      *prometheus.HistogramVec
	DLQMessages        *prometheus.CounterVec

	// Buffer metrics
	BufferSize        *prometheus.GaugeVec
	BufferRecordCount *prometheus.GaugeVec

	// Storage metrics
	FilesWritten         *prometheus.CounterVec
	StorageWriteDuration *prometheus.HistogramVec
	FileSize             *prometheus.HistogramVec
	StorageErrors        *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Producer metrics
		EventsProduced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_events_produced_total",
				Help: "Total number of events produced to Kafka",
			},
			[]string{"topic", "type", "status"},
		),
		ProduceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kafka_produce_duration_seconds",
				Help:    "Duration of event production",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		),

		// Consumer metrics
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_consumed_total",
				Help: "Total number of messages consumed from Kafka",
			},
			[]string{"topic", "partition"},
		),
		DecodeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_decode_failures_total",
				Help: "Total number of records that failed event decoding",
			},
			[]string{"topic", "partition"},
		),
		OffsetCommits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_offset_commit_total",
				Help: "Total number of offset commits",
			},
			[]string{"topic", "partition", "status"},
		),
		Rebalances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_rebalance_total",
				Help: "Total number of consumer group rebalances",
			},
			[]string{"group"},
		),
		RebalanceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kafka_rebalance_duration_seconds",
				Help:    "Duration of consumer group rebalances",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"group"},
		),
		PartitionsAssigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kafka_partitions_assigned",
				Help: "Number of partitions currently assigned to this consumer",
			},
			[]string{"topic"},
		),
		CommitLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kafka_commit_latency_seconds",
				Help:    "Latency of offset commit operations",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"topic", "partition"},
		),
		DLQMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_dlq_messages_total",
				Help: "Total number of messages diverted to the dead letter queue",
			},
			[]string{"topic", "reason"},
		),

		// Buffer metrics
		BufferSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "buffer_size_bytes",
				Help: "Current buffer size in bytes",
			},
			[]string{"topic", "partition"},
		),
		BufferRecordCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "buffer_record_count",
				Help: "Current number of records in buffer",
			},
			[]string{"topic", "partition"},
		),

		// Storage metrics
		FilesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "files_written_total",
				Help: "Total number of files written to storage",
			},
			[]string{"topic", "partition", "format", "status"},
		),
		StorageWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_write_duration_seconds",
				Help:    "Duration of complete storage write operations including encoding",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic", "partition"},
		),
		FileSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "file_size_bytes",
				Help:    "Size of files written to storage",
				Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 10), // 1MB to 1GB
			},
			[]string{"topic", "partition", "format"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "error_type"},
		),
	}
}

// IncEventsProduced increments the events produced counter.
func (m *Metrics) IncEventsProduced(topic, eventType, status string) {
	m.EventsProduced.WithLabelValues(topic, eventType, status).Inc()
}

// ObserveProduceDuration observes event production duration.
func (m *Metrics) ObserveProduceDuration(topic string, duration float64) {
	m.ProduceDuration.WithLabelValues(topic).Observe(duration)
}

// IncMessagesConsumed increments messages consumed counter.
func (m *Metrics) IncMessagesConsumed(topic string, partition int32) {
	m.MessagesConsumed.WithLabelValues(topic, partitionLabel(partition)).Inc()
}

// IncDecodeFailures increments the decode failures counter.
func (m *Metrics) IncDecodeFailures(topic string, partition int32) {
	m.DecodeFailures.WithLabelValues(topic, partitionLabel(partition)).Inc()
}

// IncRebalances increments rebalances counter.
func (m *Metrics) IncRebalances(groupID string) {
	m.Rebalances.WithLabelValues(groupID).Inc()
}

// IncOffsetCommits increments offset commits counter.
func (m *Metrics) IncOffsetCommits(topic string, partition int32, status string) {
	m.OffsetCommits.WithLabelValues(topic, partitionLabel(partition), status).Inc()
}

// ObserveRebalanceDuration observes rebalance duration.
func (m *Metrics) ObserveRebalanceDuration(groupID string, duration float64) {
	m.RebalanceDuration.WithLabelValues(groupID).Observe(duration)
}

// ObserveCommitLatency observes commit latency.
func (m *Metrics) ObserveCommitLatency(topic string, partition int32, duration float64) {
	m.CommitLatency.WithLabelValues(topic, partitionLabel(partition)).Observe(duration)
}

// IncDLQMessages increments the DLQ messages counter.
func (m *Metrics) IncDLQMessages(topic string, reason string) {
	m.DLQMessages.WithLabelValues(topic, reason).Inc()
}

// SetPartitionsAssigned sets partitions assigned gauge.
func (m *Metrics) SetPartitionsAssigned(topic string, count float64) {
	m.PartitionsAssigned.WithLabelValues(topic).Set(count)
}

// SetBufferStats sets the buffer gauges for one partition.
func (m *Metrics) SetBufferStats(topic string, partition int32, sizeBytes, recordCount float64) {
	m.BufferSize.WithLabelValues(topic, partitionLabel(partition)).Set(sizeBytes)
	m.BufferRecordCount.WithLabelValues(topic, partitionLabel(partition)).Set(recordCount)
}

// IncFilesWritten increments files written counter.
func (m *Metrics) IncFilesWritten(topic string, partition int32, format string, status string) {
	m.FilesWritten.WithLabelValues(topic, partitionLabel(partition), format, status).Inc()
}

// ObserveFileSize observes file size.
func (m *Metrics) ObserveFileSize(topic string, partition int32, format string, size float64) {
	m.FileSize.WithLabelValues(topic, partitionLabel(partition), format).Observe(size)
}

// ObserveStorageWriteDuration observes storage write duration.
func (m *Metrics) ObserveStorageWriteDuration(topic string, partition int32, duration float64) {
	m.StorageWriteDuration.WithLabelValues(topic, partitionLabel(partition)).Observe(duration)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}

func partitionLabel(partition int32) string {
	return strconv.FormatInt(int64(partition), 10)
}
