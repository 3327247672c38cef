package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration from a YAML file with environment variable
// overrides.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load loads configuration from the given file. A missing file is not an
// error; defaults and environment variables still apply.
func (l *Loader) Load(path string) (*ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand ${VAR} references so secrets can live in the environment.
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideSecretsFromEnv(&config)

	return &config, nil
}

// overrideSecretsFromEnv applies credential overrides from well-known
// environment variables, taking precedence over file values.
func overrideSecretsFromEnv(config *ApplicationConfig) {
	if username := os.Getenv("KAFKA_SASL_USERNAME"); username != "" {
		config.Kafka.SASLUsername = username
	}
	if password := os.Getenv("KAFKA_SASL_PASSWORD"); password != "" {
		config.Kafka.SASLPassword = password
	}
	if accountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"); accountKey != "" {
		config.Storage.Azure.AccountKey = accountKey
	}
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("application.name", "kafeventsdk")
	l.v.SetDefault("application.environment", "development")

	l.v.SetDefault("kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("kafka.producer.required_acks", -1)
	l.v.SetDefault("kafka.producer.compression_type", "snappy")
	l.v.SetDefault("kafka.producer.max_message_bytes", 1000000)
	l.v.SetDefault("kafka.producer.idempotent_writes", true)
	l.v.SetDefault("kafka.producer.retry_max", 5)
	l.v.SetDefault("kafka.producer.retry_backoff_ms", 100)
	l.v.SetDefault("kafka.producer.content_mode", "binary")
	l.v.SetDefault("kafka.consumer.auto_offset_reset", "earliest")
	l.v.SetDefault("kafka.consumer.enable_auto_commit", false)
	l.v.SetDefault("kafka.consumer.max_poll_interval_ms", 300000)
	l.v.SetDefault("kafka.consumer.session_timeout_ms", 30000)
	l.v.SetDefault("kafka.consumer.heartbeat_interval_ms", 10000)
	l.v.SetDefault("kafka.dlq.enabled", true)
	l.v.SetDefault("kafka.dlq.topic_suffix", "-dlq")
	l.v.SetDefault("kafka.dlq.max_retries", 3)

	l.v.SetDefault("generator.interval_ms", 1000)
	l.v.SetDefault("generator.source", "/library/events")
	l.v.SetDefault("generator.book_issued.enabled", true)
	l.v.SetDefault("generator.book_issued.probability", 0.7)
	l.v.SetDefault("generator.book_returned.enabled", true)
	l.v.SetDefault("generator.book_returned.probability", 0.3)

	l.v.SetDefault("storage.backend", "file")
	l.v.SetDefault("storage.format", "parquet")
	l.v.SetDefault("storage.base_path", "events")
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)

	l.v.SetDefault("file_rotation.max_file_size_mb", 128)
	l.v.SetDefault("file_rotation.max_records_per_file", 100000)
	l.v.SetDefault("file_rotation.max_duration_seconds", 300)
	l.v.SetDefault("file_rotation.strategy", "any")

	l.v.SetDefault("buffer.max_size_mb", 64)
	l.v.SetDefault("buffer.max_records", 100000)
	l.v.SetDefault("buffer.flush_interval_seconds", 60)
	l.v.SetDefault("buffer.max_concurrent_flush", 5)

	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stdout")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.health.port", 8080)

	l.v.SetDefault("shutdown.grace_period_seconds", 30)
}
