package storage

import (
	"testing"
	"time"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

func TestNewRouter(t *testing.T) {
	router := NewRouter("s3", "my-bucket", "events", "v1")

	if router.protocol != "s3" {
		t.Errorf("protocol = %v, want s3", router.protocol)
	}
	if router.bucket != "my-bucket" {
		t.Errorf("bucket = %v, want my-bucket", router.bucket)
	}
	if router.basePath != "events" {
		t.Errorf("basePath = %v, want events", router.basePath)
	}
	if router.version != "v1" {
		t.Errorf("version = %v, want v1", router.version)
	}
}

func TestDefaultRouter_Route(t *testing.T) {
	router := NewRouter("s3", "test-bucket", "base", "v1")

	partitionID := archive.PartitionID{
		Topic:     "orders",
		Partition: 3,
	}
	timestamp := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC).Unix()

	tests := []struct {
		name        string
		specVersion string
		want        string
	}{
		{
			name:        "default version",
			specVersion: "",
			want:        "s3://test-bucket/base/orders/v1/dt=2026-03-14/pid=3/",
		},
		{
			name:        "spec version 1.0",
			specVersion: "1.0",
			want:        "s3://test-bucket/base/orders/v10/dt=2026-03-14/pid=3/",
		},
		{
			name:        "spec version 0.3",
			specVersion: "0.3",
			want:        "s3://test-bucket/base/orders/v03/dt=2026-03-14/pid=3/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := router.Route(partitionID, timestamp, tt.specVersion); got != tt.want {
				t.Errorf("Route() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultRouter_RouteUsesEventDate(t *testing.T) {
	router := NewRouter("file", "archive", "events", "v1")
	partitionID := archive.PartitionID{Topic: "orders", Partition: 0}

	// Midnight boundary: the date segment must come from the timestamp.
	timestamp := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC).Unix()
	want := "file://archive/events/orders/v1/dt=2026-01-01/pid=0/"
	if got := router.Route(partitionID, timestamp, ""); got != want {
		t.Errorf("Route() = %q, want %q", got, want)
	}
}

func TestCompositePolicy_ShouldRotate(t *testing.T) {
	policy := NewCompositePolicy(PolicyConfig{
		MaxFileSizeMB:      1,
		MaxRecordsPerFile:  100,
		MaxDurationSeconds: 60,
	})

	tests := []struct {
		name  string
		stats archive.FileStats
		want  bool
	}{
		{
			name:  "empty buffer",
			stats: archive.FileStats{},
			want:  false,
		},
		{
			name:  "under all limits",
			stats: archive.FileStats{RecordCount: 10, SizeBytes: 1024, FirstWriteTime: time.Now()},
			want:  false,
		},
		{
			name:  "size limit reached",
			stats: archive.FileStats{RecordCount: 10, SizeBytes: 1024 * 1024, FirstWriteTime: time.Now()},
			want:  true,
		},
		{
			name:  "record limit reached",
			stats: archive.FileStats{RecordCount: 100, SizeBytes: 1024, FirstWriteTime: time.Now()},
			want:  true,
		},
		{
			name:  "age limit reached",
			stats: archive.FileStats{RecordCount: 1, SizeBytes: 10, FirstWriteTime: time.Now().Add(-2 * time.Minute)},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldRotate(tt.stats); got != tt.want {
				t.Errorf("ShouldRotate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompositePolicy_DisabledCriteria(t *testing.T) {
	policy := NewCompositePolicy(PolicyConfig{})
	stats := archive.FileStats{
		RecordCount:    1_000_000,
		SizeBytes:      1 << 40,
		FirstWriteTime: time.Now().Add(-24 * time.Hour),
	}
	if policy.ShouldRotate(stats) {
		t.Error("policy with zero limits should never rotate")
	}
}
