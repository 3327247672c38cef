package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementations satisfy interfaces.
var (
	_ archive.Router         = (*DefaultRouter)(nil)
	_ archive.RotationPolicy = (*CompositePolicy)(nil)
)

// DefaultRouter implements Hive-style partitioning for storage paths.
type DefaultRouter struct {
	protocol string
	bucket   string
	basePath string
	version  string
}

// NewRouter creates a new storage router.
func NewRouter(protocol, bucket, basePath, version string) *DefaultRouter {
	return &DefaultRouter{
		protocol: protocol,
		bucket:   bucket,
		basePath: basePath,
		version:  version,
	}
}

// Route returns the storage path for a partition at the given timestamp.
// Format: protocol://bucket/basePath/topic/version/dt=YYYY-MM-DD/pid=N/
// The date segment comes from the event time, not processing time. A
// non-empty specVersion overrides the default version segment, rendered
// with dots removed: "1.0" becomes "v10", "0.3" becomes "v03".
func (r *DefaultRouter) Route(partitionID archive.PartitionID, timestamp int64, specVersion string) string {
	t := time.Unix(timestamp, 0).UTC()
	date := t.Format("2006-01-02")

	version := r.version
	if specVersion != "" {
		if compact := strings.ReplaceAll(specVersion, ".", ""); compact != "" {
			version = "v" + compact
		}
	}

	return fmt.Sprintf("%s://%s/%s/%s/%s/dt=%s/pid=%d/",
		r.protocol,
		r.bucket,
		r.basePath,
		partitionID.Topic,
		version,
		date,
		partitionID.Partition,
	)
}

// RotationStrategy determines when to rotate files.
type RotationStrategy string

const (
	StrategyComposite RotationStrategy = "composite"
	StrategySizeOnly  RotationStrategy = "size"
	StrategyTimeOnly  RotationStrategy = "time"
	StrategyCount     RotationStrategy = "count"
)

// PolicyConfig configures rotation behavior.
type PolicyConfig struct {
	MaxFileSizeMB      int64
	MaxRecordsPerFile  int
	MaxDurationSeconds int
	Strategy           string
}

// CompositePolicy rotates when any of its size, count or age limits is
// reached. A zero limit disables that criterion.
type CompositePolicy struct {
	maxSizeBytes int64
	maxRecords   int
	maxDuration  time.Duration
}

// NewCompositePolicy creates a new composite rotation policy.
func NewCompositePolicy(config PolicyConfig) *CompositePolicy {
	return &CompositePolicy{
		maxSizeBytes: config.MaxFileSizeMB * 1024 * 1024,
		maxRecords:   config.MaxRecordsPerFile,
		maxDuration:  time.Duration(config.MaxDurationSeconds) * time.Second,
	}
}

// NewPolicy creates a new rotation policy (alias for NewCompositePolicy).
func NewPolicy(config PolicyConfig) *CompositePolicy {
	return NewCompositePolicy(config)
}

// ShouldRotate returns true if any rotation condition is met.
func (p *CompositePolicy) ShouldRotate(stats archive.FileStats) bool {
	if p.maxSizeBytes > 0 && stats.SizeBytes >= p.maxSizeBytes {
		return true
	}
	if p.maxRecords > 0 && stats.RecordCount >= p.maxRecords {
		return true
	}
	if p.maxDuration > 0 && !stats.FirstWriteTime.IsZero() {
		if time.Since(stats.FirstWriteTime) >= p.maxDuration {
			return true
		}
	}
	return false
}
