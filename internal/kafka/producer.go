package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	bindingkafka "github.com/jittakal/kafeventsdk/pkg/binding/kafka"
	"github.com/jittakal/kafeventsdk/pkg/event"
	"github.com/jittakal/kafeventsdk/pkg/message"
)

// ProducerConfig contains Kafka producer configuration.
type ProducerConfig struct {
	BootstrapServers []string
	Security         SecurityConfig
	RequiredAcks     int
	CompressionType  string
	MaxMessageBytes  int
	IdempotentWrites bool
	RetryMax         int
	RetryBackoffMS   int
	ContentMode      string // "binary" or "structured"
}

// ProducerMetrics defines metrics operations for the producer.
type ProducerMetrics interface {
	IncEventsProduced(topic, eventType, status string)
	ObserveProduceDuration(topic string, duration float64)
}

// Producer publishes events to Kafka in the configured content mode.
type Producer struct {
	producer sarama.SyncProducer
	mode     message.Encoding
	logger   *zap.Logger
	metrics  ProducerMetrics
}

// NewProducer creates a new Kafka producer.
func NewProducer(cfg ProducerConfig, logger *zap.Logger, metrics ProducerMetrics) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	saramaConfig.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	saramaConfig.Producer.Compression = parseCompressionType(cfg.CompressionType)
	if cfg.MaxMessageBytes > 0 {
		saramaConfig.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	}
	saramaConfig.Producer.Idempotent = cfg.IdempotentWrites
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Retry.Backoff = time.Duration(cfg.RetryBackoffMS) * time.Millisecond

	// Idempotent producer requires Net.MaxOpenRequests to be 1.
	if cfg.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	if err := configureSecurity(saramaConfig, cfg.Security); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}

	producer, err := sarama.NewSyncProducer(cfg.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	mode := message.EncodingStructured
	if cfg.ContentMode == "binary" {
		mode = message.EncodingBinary
	}

	logger.Info("kafka producer created",
		zap.Strings("brokers", cfg.BootstrapServers),
		zap.String("security_protocol", cfg.Security.Protocol),
		zap.Stringer("content_mode", mode),
	)

	return &Producer{
		producer: producer,
		mode:     mode,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// ProduceEvent publishes one event to the specified topic.
func (p *Producer) ProduceEvent(ctx context.Context, topic string, e *event.Event) error {
	startTime := time.Now()

	msg := &sarama.ProducerMessage{Topic: topic}
	if err := bindingkafka.Write(msg, e, p.mode); err != nil {
		if p.metrics != nil {
			p.metrics.IncEventsProduced(topic, e.Type(), "encode_error")
		}
		return fmt.Errorf("failed to encode event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncEventsProduced(topic, e.Type(), "error")
		}
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	if p.metrics != nil {
		p.metrics.IncEventsProduced(topic, e.Type(), "success")
		p.metrics.ObserveProduceDuration(topic, time.Since(startTime).Seconds())
	}

	p.logger.Info("event produced",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event_id", e.ID()),
		zap.String("event_type", e.Type()),
		zap.Stringer("source", e.Source()),
	)

	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer")
	return p.producer.Close()
}

// parseCompressionType converts a compression name to Sarama's codec.
func parseCompressionType(compressionType string) sarama.CompressionCodec {
	switch compressionType {
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}
