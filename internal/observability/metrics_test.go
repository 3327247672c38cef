package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestMetrics_ConsumerCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncMessagesConsumed("orders", 0)
	metrics.IncMessagesConsumed("orders", 0)
	metrics.IncMessagesConsumed("orders", 1)
	metrics.IncDecodeFailures("orders", 1)
	metrics.IncOffsetCommits("orders", 0, "success")

	if got := testutil.ToFloat64(metrics.MessagesConsumed.WithLabelValues("orders", "0")); got != 2 {
		t.Errorf("messages consumed on partition 0 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.MessagesConsumed.WithLabelValues("orders", "1")); got != 1 {
		t.Errorf("messages consumed on partition 1 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DecodeFailures.WithLabelValues("orders", "1")); got != 1 {
		t.Errorf("decode failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.OffsetCommits.WithLabelValues("orders", "0", "success")); got != 1 {
		t.Errorf("offset commits = %v, want 1", got)
	}
}

func TestMetrics_DLQCounter(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncDLQMessages("orders", "decode_failed")
	metrics.IncDLQMessages("orders", "decode_failed")
	metrics.IncDLQMessages("orders", "storage_failed")

	if got := testutil.ToFloat64(metrics.DLQMessages.WithLabelValues("orders", "decode_failed")); got != 2 {
		t.Errorf("dlq messages decode_failed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.DLQMessages.WithLabelValues("orders", "storage_failed")); got != 1 {
		t.Errorf("dlq messages storage_failed = %v, want 1", got)
	}
}

func TestMetrics_ProducerCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncEventsProduced("books", "book.issued", "success")
	metrics.IncEventsProduced("books", "book.issued", "success")
	metrics.IncEventsProduced("books", "book.returned", "error")
	metrics.ObserveProduceDuration("books", 0.015)

	if got := testutil.ToFloat64(metrics.EventsProduced.WithLabelValues("books", "book.issued", "success")); got != 2 {
		t.Errorf("events produced = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.EventsProduced.WithLabelValues("books", "book.returned", "error")); got != 1 {
		t.Errorf("failed events produced = %v, want 1", got)
	}
}

func TestMetrics_StorageOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncFilesWritten("orders", 0, "parquet", "success")
	metrics.ObserveFileSize("orders", 0, "parquet", 5120.0)
	metrics.ObserveStorageWriteDuration("orders", 0, 0.8)
	metrics.IncStorageErrors("s3", "upload")

	if got := testutil.ToFloat64(metrics.FilesWritten.WithLabelValues("orders", "0", "parquet", "success")); got != 1 {
		t.Errorf("files written = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.StorageErrors.WithLabelValues("s3", "upload")); got != 1 {
		t.Errorf("storage errors = %v, want 1", got)
	}
}

func TestMetrics_Gauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.SetPartitionsAssigned("orders", 4)
	metrics.SetBufferStats("orders", 2, 1024, 10)

	if got := testutil.ToFloat64(metrics.PartitionsAssigned.WithLabelValues("orders")); got != 4 {
		t.Errorf("partitions assigned = %v, want 4", got)
	}
	if got := testutil.ToFloat64(metrics.BufferSize.WithLabelValues("orders", "2")); got != 1024 {
		t.Errorf("buffer size = %v, want 1024", got)
	}
	if got := testutil.ToFloat64(metrics.BufferRecordCount.WithLabelValues("orders", "2")); got != 10 {
		t.Errorf("buffer record count = %v, want 10", got)
	}
}

func TestMetrics_AllRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.IncMessagesConsumed("orders", 0)
	metrics.IncRebalances("group-1")
	metrics.ObserveRebalanceDuration("group-1", 1.5)
	metrics.ObserveCommitLatency("orders", 0, 0.05)
	metrics.IncFilesWritten("orders", 0, "avro", "success")

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Error("no metrics registered")
	}
}
