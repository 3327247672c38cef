package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/errors"
	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Ensure implementation satisfies interface at compile time.
var _ archive.DLQPublisher = (*DLQPublisher)(nil)

// DLQEvent is the envelope written to the dead letter topic. The
// original message bytes are carried verbatim, since most DLQ traffic is
// records that failed to decode in the first place.
type DLQEvent struct {
	OriginalMessage   []byte    `json:"original_message"`
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int32     `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	FailureReason     string    `json:"failure_reason"`
	FailureTimestamp  time.Time `json:"failure_timestamp"`
	RetryCount        int       `json:"retry_count"`
	ProcessorID       string    `json:"processor_id"`
}

// DLQConfig contains DLQ configuration.
type DLQConfig struct {
	Enabled     bool
	TopicSuffix string
	MaxRetries  int
}

// DLQMetrics defines metrics operations for the DLQ publisher.
type DLQMetrics interface {
	IncDLQMessages(topic string, reason string)
}

// DLQPublisher publishes failed messages to a per-topic dead letter
// queue (original topic plus the configured suffix).
type DLQPublisher struct {
	producer    sarama.SyncProducer
	config      DLQConfig
	logger      *zap.Logger
	metrics     DLQMetrics
	mu          sync.RWMutex
	closed      bool
	processorID string
}

// WithMetrics attaches a metrics collector and returns p.
func (p *DLQPublisher) WithMetrics(m DLQMetrics) *DLQPublisher {
	p.metrics = m
	return p
}

// NewDLQPublisher creates a new DLQ publisher. A disabled config yields
// a publisher whose Publish is a no-op.
func NewDLQPublisher(
	bootstrapServers []string,
	security SecurityConfig,
	dlqConfig DLQConfig,
	logger *zap.Logger,
	processorID string,
) (*DLQPublisher, error) {
	if !dlqConfig.Enabled {
		logger.Info("DLQ is disabled")
		return &DLQPublisher{
			config:      dlqConfig,
			logger:      logger,
			processorID: processorID,
		}, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	if err := configureSecurity(saramaConfig, security); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}

	producer, err := sarama.NewSyncProducer(bootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}

	logger.Info("DLQ publisher created",
		zap.Strings("bootstrap_servers", bootstrapServers),
		zap.String("topic_suffix", dlqConfig.TopicSuffix),
	)

	return &DLQPublisher{
		producer:    producer,
		config:      dlqConfig,
		logger:      logger,
		processorID: processorID,
	}, nil
}

// Publish sends a failed message to the DLQ with its failure context.
func (p *DLQPublisher) Publish(
	ctx context.Context,
	raw []byte,
	metadata archive.KafkaMetadata,
	reason string,
) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errors.ErrConsumerClosed
	}

	if !p.config.Enabled {
		p.logger.Debug("DLQ disabled, skipping publish")
		return nil
	}

	dlqTopic := metadata.Topic + p.config.TopicSuffix

	dlqEvent := DLQEvent{
		OriginalMessage:   raw,
		OriginalTopic:     metadata.Topic,
		OriginalPartition: metadata.Partition,
		OriginalOffset:    metadata.Offset,
		FailureReason:     reason,
		FailureTimestamp:  time.Now().UTC(),
		ProcessorID:       p.processorID,
	}

	dlqData, err := json.Marshal(dlqEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: dlqTopic,
		Key:   sarama.ByteEncoder(metadata.Key),
		Value: sarama.ByteEncoder(dlqData),
		Headers: []sarama.RecordHeader{
			{Key: []byte("failure_reason"), Value: []byte(reason)},
			{Key: []byte("original_topic"), Value: []byte(metadata.Topic)},
			{Key: []byte("processor_id"), Value: []byte(p.processorID)},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error("failed to publish to DLQ",
			zap.Error(err),
			zap.String("dlq_topic", dlqTopic),
			zap.Int64("original_offset", metadata.Offset),
		)
		return fmt.Errorf("failed to send message to DLQ: %w", err)
	}

	if p.metrics != nil {
		p.metrics.IncDLQMessages(metadata.Topic, reason)
	}

	p.logger.Info("published message to DLQ",
		zap.String("dlq_topic", dlqTopic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Int64("original_offset", metadata.Offset),
		zap.String("reason", reason),
	)

	return nil
}

// Close closes the DLQ publisher.
func (p *DLQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	p.logger.Info("closing DLQ publisher")

	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			p.logger.Error("error closing producer", zap.Error(err))
			return err
		}
	}

	p.logger.Info("DLQ publisher closed")
	return nil
}
