package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoader_Defaults(t *testing.T) {
	config, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Kafka.SecurityProtocol != "PLAINTEXT" {
		t.Errorf("security protocol = %q, want PLAINTEXT", config.Kafka.SecurityProtocol)
	}
	if config.Kafka.Producer.ContentMode != "binary" {
		t.Errorf("content mode = %q, want binary", config.Kafka.Producer.ContentMode)
	}
	if !config.Kafka.DLQ.Enabled {
		t.Error("DLQ should be enabled by default")
	}
	if config.Kafka.DLQ.TopicSuffix != "-dlq" {
		t.Errorf("DLQ topic suffix = %q, want -dlq", config.Kafka.DLQ.TopicSuffix)
	}
	if config.Storage.Backend != "file" {
		t.Errorf("storage backend = %q, want file", config.Storage.Backend)
	}
	if config.Storage.Format != "parquet" {
		t.Errorf("storage format = %q, want parquet", config.Storage.Format)
	}
	if config.FileRotation.MaxFileSizeMB != 128 {
		t.Errorf("max file size = %d, want 128", config.FileRotation.MaxFileSizeMB)
	}
	if config.Observability.Metrics.Port != 9090 {
		t.Errorf("metrics port = %d, want 9090", config.Observability.Metrics.Port)
	}
}

func TestLoader_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
kafka:
  bootstrap_servers:
    - broker1:9092
    - broker2:9092
  security_protocol: SASL_SSL
  sasl_mechanism: SCRAM-SHA-512
  consumer:
    group_id: archiver
    topics:
      - book-events
storage:
  backend: s3
  format: avro
  s3:
    bucket: event-archive
    region: eu-central-1
`)

	config, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(config.Kafka.BootstrapServers) != 2 {
		t.Fatalf("bootstrap servers = %v, want 2 entries", config.Kafka.BootstrapServers)
	}
	if config.Kafka.SecurityProtocol != "SASL_SSL" {
		t.Errorf("security protocol = %q, want SASL_SSL", config.Kafka.SecurityProtocol)
	}
	if config.Kafka.Consumer.GroupID != "archiver" {
		t.Errorf("group id = %q, want archiver", config.Kafka.Consumer.GroupID)
	}
	if config.Storage.S3.Bucket != "event-archive" {
		t.Errorf("s3 bucket = %q, want event-archive", config.Storage.S3.Bucket)
	}
	// Defaults still apply to sections the file leaves out.
	if config.FileRotation.Strategy != "any" {
		t.Errorf("rotation strategy = %q, want any", config.FileRotation.Strategy)
	}

	if err := config.ValidateArchiver(); err != nil {
		t.Errorf("ValidateArchiver() error = %v", err)
	}
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SCRAM_PASSWORD", "expanded-secret")
	path := writeConfigFile(t, `
kafka:
  bootstrap_servers: [broker:9092]
  sasl_password: ${TEST_SCRAM_PASSWORD}
`)

	config, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Kafka.SASLPassword != "expanded-secret" {
		t.Errorf("sasl password = %q, want expanded-secret", config.Kafka.SASLPassword)
	}
}

func TestLoader_SecretOverrides(t *testing.T) {
	t.Setenv("KAFKA_SASL_USERNAME", "env-user")
	t.Setenv("KAFKA_SASL_PASSWORD", "env-pass")

	path := writeConfigFile(t, `
kafka:
  bootstrap_servers: [broker:9092]
  sasl_username: file-user
  sasl_password: file-pass
`)

	config, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Kafka.SASLUsername != "env-user" {
		t.Errorf("sasl username = %q, want env-user", config.Kafka.SASLUsername)
	}
	if config.Kafka.SASLPassword != "env-pass" {
		t.Errorf("sasl password = %q, want env-pass", config.Kafka.SASLPassword)
	}
}

func TestLoader_MalformedFile(t *testing.T) {
	path := writeConfigFile(t, "kafka: [not: valid")
	if _, err := NewLoader().Load(path); err == nil {
		t.Error("Load() with malformed YAML, want error")
	}
}

func TestValidateProducer(t *testing.T) {
	valid := func() *ApplicationConfig {
		config, err := NewLoader().Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		config.Kafka.BootstrapServers = []string{"broker:9092"}
		config.Topics.BookIssued = "book-issued"
		config.Topics.BookReturned = "book-returned"
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*ApplicationConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *ApplicationConfig) {},
		},
		{
			name:    "missing brokers",
			mutate:  func(c *ApplicationConfig) { c.Kafka.BootstrapServers = nil },
			wantErr: "bootstrap_servers",
		},
		{
			name:    "missing topic",
			mutate:  func(c *ApplicationConfig) { c.Topics.BookIssued = "" },
			wantErr: "book_issued",
		},
		{
			name:    "bad content mode",
			mutate:  func(c *ApplicationConfig) { c.Kafka.Producer.ContentMode = "base64" },
			wantErr: "content mode",
		},
		{
			name:    "bad interval",
			mutate:  func(c *ApplicationConfig) { c.Generator.IntervalMS = 0 },
			wantErr: "interval_ms",
		},
		{
			name:    "bad probability",
			mutate:  func(c *ApplicationConfig) { c.Generator.BookIssued.Probability = 1.5 },
			wantErr: "probability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.ValidateProducer()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateProducer() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateProducer() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateArchiver(t *testing.T) {
	valid := func() *ApplicationConfig {
		config, err := NewLoader().Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		config.Kafka.BootstrapServers = []string{"broker:9092"}
		config.Kafka.Consumer.GroupID = "archiver"
		config.Kafka.Consumer.Topics = []string{"book-events"}
		config.Storage.File.BasePath = "/tmp/archive"
		return config
	}

	tests := []struct {
		name    string
		mutate  func(*ApplicationConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *ApplicationConfig) {},
		},
		{
			name:    "missing group",
			mutate:  func(c *ApplicationConfig) { c.Kafka.Consumer.GroupID = "" },
			wantErr: "group_id",
		},
		{
			name:    "missing topics",
			mutate:  func(c *ApplicationConfig) { c.Kafka.Consumer.Topics = nil },
			wantErr: "topics",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *ApplicationConfig) { c.Storage.Backend = "tape" },
			wantErr: "storage backend",
		},
		{
			name: "s3 without bucket",
			mutate: func(c *ApplicationConfig) {
				c.Storage.Backend = "s3"
				c.Storage.S3.Region = "us-east-1"
			},
			wantErr: "s3.bucket",
		},
		{
			name:    "unknown format",
			mutate:  func(c *ApplicationConfig) { c.Storage.Format = "orc" },
			wantErr: "storage format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.ValidateArchiver()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateArchiver() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateArchiver() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
