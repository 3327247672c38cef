// Package config loads and validates the YAML configuration shared by
// the command programs.
package config

import (
	"errors"
	"fmt"
)

// ApplicationConfig is the root configuration structure.
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Topics        TopicsConfig        `mapstructure:"topics"`
	Generator     GeneratorConfig     `mapstructure:"generator"`
	Storage       StorageConfig       `mapstructure:"storage"`
	FileRotation  FileRotationConfig  `mapstructure:"file_rotation"`
	Buffer        BufferConfig        `mapstructure:"buffer"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata.
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// KafkaConfig contains broker connection and client configuration.
type KafkaConfig struct {
	BootstrapServers []string       `mapstructure:"bootstrap_servers"`
	SecurityProtocol string         `mapstructure:"security_protocol"`
	SASLMechanism    string         `mapstructure:"sasl_mechanism"`
	SASLUsername     string         `mapstructure:"sasl_username"`
	SASLPassword     string         `mapstructure:"sasl_password"`
	AWSRegion        string         `mapstructure:"aws_region"`
	TLSSkipVerify    bool           `mapstructure:"tls_skip_verify"`
	CACertFile       string         `mapstructure:"ca_cert_file"`
	ClientCertFile   string         `mapstructure:"client_cert_file"`
	ClientKeyFile    string         `mapstructure:"client_key_file"`
	Producer         ProducerConfig `mapstructure:"producer"`
	Consumer         ConsumerConfig `mapstructure:"consumer"`
	DLQ              DLQConfig      `mapstructure:"dlq"`
}

// ProducerConfig contains Kafka producer configuration.
type ProducerConfig struct {
	RequiredAcks     int    `mapstructure:"required_acks"`
	CompressionType  string `mapstructure:"compression_type"`
	MaxMessageBytes  int    `mapstructure:"max_message_bytes"`
	IdempotentWrites bool   `mapstructure:"idempotent_writes"`
	RetryMax         int    `mapstructure:"retry_max"`
	RetryBackoffMS   int    `mapstructure:"retry_backoff_ms"`
	ContentMode      string `mapstructure:"content_mode"`
}

// ConsumerConfig contains Kafka consumer configuration.
type ConsumerConfig struct {
	GroupID             string   `mapstructure:"group_id"`
	Topics              []string `mapstructure:"topics"`
	AutoOffsetReset     string   `mapstructure:"auto_offset_reset"`
	EnableAutoCommit    bool     `mapstructure:"enable_auto_commit"`
	MaxPollIntervalMS   int      `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMS    int      `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMS int      `mapstructure:"heartbeat_interval_ms"`
}

// DLQConfig contains dead letter queue configuration.
type DLQConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	TopicSuffix string `mapstructure:"topic_suffix"`
	MaxRetries  int    `mapstructure:"max_retries"`
}

// TopicsConfig maps event types to topics for the producer.
type TopicsConfig struct {
	BookIssued   string `mapstructure:"book_issued"`
	BookReturned string `mapstructure:"book_returned"`
}

// GeneratorConfig contains event generator configuration.
type GeneratorConfig struct {
	IntervalMS   int             `mapstructure:"interval_ms"`
	Source       string          `mapstructure:"source"`
	BookIssued   EventTypeConfig `mapstructure:"book_issued"`
	BookReturned EventTypeConfig `mapstructure:"book_returned"`
}

// EventTypeConfig configures generation of one event type.
type EventTypeConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Probability float64 `mapstructure:"probability"`
}

// StorageConfig contains storage backend configuration.
type StorageConfig struct {
	Backend     string      `mapstructure:"backend"`
	Format      string      `mapstructure:"format"`
	Compression string      `mapstructure:"compression"`
	BasePath    string      `mapstructure:"base_path"`
	S3          S3Config    `mapstructure:"s3"`
	Azure       AzureConfig `mapstructure:"azure"`
	GCS         GCSConfig   `mapstructure:"gcs"`
	File        FileConfig  `mapstructure:"file"`
}

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	Endpoint    string `mapstructure:"endpoint"`
}

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	ProjectID            string `mapstructure:"project_id"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	Endpoint             string `mapstructure:"endpoint"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// FileRotationConfig contains file rotation settings.
type FileRotationConfig struct {
	MaxFileSizeMB      int64  `mapstructure:"max_file_size_mb"`
	MaxRecordsPerFile  int    `mapstructure:"max_records_per_file"`
	MaxDurationSeconds int    `mapstructure:"max_duration_seconds"`
	Strategy           string `mapstructure:"strategy"`
}

// BufferConfig contains per-partition buffer limits.
type BufferConfig struct {
	MaxSizeMB          int64 `mapstructure:"max_size_mb"`
	MaxRecords         int   `mapstructure:"max_records"`
	FlushIntervalSec   int   `mapstructure:"flush_interval_seconds"`
	MaxConcurrentFlush int   `mapstructure:"max_concurrent_flush"`
}

// ObservabilityConfig contains logging, metrics and health settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig contains health probe settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// ShutdownConfig contains shutdown settings.
type ShutdownConfig struct {
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// Validate checks the configuration sections used by all programs.
func (c *ApplicationConfig) Validate() error {
	if len(c.Kafka.BootstrapServers) == 0 {
		return errors.New("kafka.bootstrap_servers is required")
	}

	switch c.Kafka.Producer.ContentMode {
	case "", "binary", "structured":
	default:
		return fmt.Errorf("unsupported content mode: %s", c.Kafka.Producer.ContentMode)
	}

	if c.Observability.Metrics.Port < 1 || c.Observability.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Observability.Metrics.Port)
	}
	if c.Observability.Health.Port < 1 || c.Observability.Health.Port > 65535 {
		return fmt.Errorf("invalid health port: %d", c.Observability.Health.Port)
	}

	return nil
}

// ValidateProducer checks the sections the producer program requires.
func (c *ApplicationConfig) ValidateProducer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Topics.BookIssued == "" {
		return errors.New("topics.book_issued is required")
	}
	if c.Topics.BookReturned == "" {
		return errors.New("topics.book_returned is required")
	}
	if c.Generator.IntervalMS <= 0 {
		return errors.New("generator.interval_ms must be positive")
	}
	for name, probability := range map[string]float64{
		"generator.book_issued.probability":   c.Generator.BookIssued.Probability,
		"generator.book_returned.probability": c.Generator.BookReturned.Probability,
	} {
		if probability < 0 || probability > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// ValidateArchiver checks the sections the archiver program requires.
func (c *ApplicationConfig) ValidateArchiver() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Kafka.Consumer.Topics) == 0 {
		return errors.New("kafka.consumer.topics is required")
	}
	if c.Kafka.Consumer.GroupID == "" {
		return errors.New("kafka.consumer.group_id is required")
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for S3 backend")
		}
		if c.Storage.S3.Region == "" {
			return errors.New("storage.s3.region is required for S3 backend")
		}
	case "azure":
		if c.Storage.Azure.AccountName == "" {
			return errors.New("storage.azure.account_name is required for Azure backend")
		}
		if c.Storage.Azure.Container == "" {
			return errors.New("storage.azure.container is required for Azure backend")
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return errors.New("storage.gcs.bucket is required for GCS backend")
		}
	case "file":
		if c.Storage.File.BasePath == "" {
			return errors.New("storage.file.base_path is required for file backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}

	if c.Storage.Format != "parquet" && c.Storage.Format != "avro" {
		return fmt.Errorf("unsupported storage format: %s", c.Storage.Format)
	}

	if c.FileRotation.Strategy != "any" && c.FileRotation.Strategy != "" {
		return fmt.Errorf("unsupported rotation strategy: %s", c.FileRotation.Strategy)
	}

	return nil
}
