// Package kafka implements the Sarama-backed producer, consumer group
// and dead letter queue publisher of the archival pipeline.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/jittakal/kafeventsdk/internal/errors"
	"github.com/jittakal/kafeventsdk/pkg/archive"
	bindingkafka "github.com/jittakal/kafeventsdk/pkg/binding/kafka"
)

// Ensure implementation satisfies interfaces at compile time.
var _ archive.Consumer = (*SaramaConsumer)(nil)

// ConsumerConfig contains Kafka consumer configuration.
type ConsumerConfig struct {
	BootstrapServers    []string
	GroupID             string
	Security            SecurityConfig
	AutoOffsetReset     string
	EnableAutoCommit    bool
	MaxPollIntervalMS   int
	SessionTimeoutMS    int
	HeartbeatIntervalMS int
}

// MetricsCollector defines metrics operations for the Kafka consumer.
type MetricsCollector interface {
	IncMessagesConsumed(topic string, partition int32)
	IncDecodeFailures(topic string, partition int32)
	IncRebalances(groupID string)
	IncOffsetCommits(topic string, partition int32, status string)
	ObserveRebalanceDuration(groupID string, duration float64)
	ObserveCommitLatency(topic string, partition int32, duration float64)
	SetPartitionsAssigned(topic string, count float64)
}

// SaramaConsumer implements archive.Consumer over a Sarama consumer
// group. Records are decoded through the Kafka binding, so both binary
// and structured content modes arrive as events; undecodable records go
// to the DLQ instead of the event stream.
type SaramaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        ConsumerConfig
	logger        *zap.Logger
	metrics       MetricsCollector
	dlq           archive.DLQPublisher
	topics        []string
	ready         chan bool
	mu            sync.RWMutex
	closed        bool
}

// NewSaramaConsumer creates a new Kafka consumer group client. dlq may
// be nil, in which case undecodable records are only reported on the
// error channel.
func NewSaramaConsumer(
	config ConsumerConfig,
	logger *zap.Logger,
	metrics MetricsCollector,
	dlq archive.DLQPublisher,
) (*SaramaConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = offsetInitial(config.AutoOffsetReset)
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = config.EnableAutoCommit

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMS) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatIntervalMS) * time.Millisecond

	// A long MaxProcessingTime avoids rebalances while a slow storage
	// flush blocks the claim loop.
	if config.MaxPollIntervalMS > 0 {
		saramaConfig.Consumer.MaxProcessingTime = time.Duration(config.MaxPollIntervalMS) * time.Millisecond
	} else {
		saramaConfig.Consumer.MaxProcessingTime = 5 * time.Minute
	}

	saramaConfig.Consumer.Return.Errors = true

	if err := configureSecurity(saramaConfig, config.Security); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}

	consumerGroup, err := sarama.NewConsumerGroup(
		config.BootstrapServers,
		config.GroupID,
		saramaConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("kafka consumer created",
		zap.String("group_id", config.GroupID),
		zap.Strings("bootstrap_servers", config.BootstrapServers),
		zap.Int("session_timeout_ms", config.SessionTimeoutMS),
		zap.Int("max_poll_interval_ms", config.MaxPollIntervalMS),
	)

	return &SaramaConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		logger:        logger,
		metrics:       metrics,
		dlq:           dlq,
		ready:         make(chan bool),
	}, nil
}

// Subscribe records the topics to consume from.
func (c *SaramaConsumer) Subscribe(ctx context.Context, topics []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrConsumerClosed
	}

	c.topics = topics
	c.logger.Info("subscribed to topics", zap.Strings("topics", topics))
	return nil
}

// Consume starts the consumer group session. It blocks until the first
// partition assignment completes, then returns the event and error
// streams.
func (c *SaramaConsumer) Consume(ctx context.Context) (<-chan *archive.ConsumedEvent, <-chan error, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, nil, errors.ErrConsumerClosed
	}
	c.mu.RUnlock()

	eventChan := make(chan *archive.ConsumedEvent, 100)
	errorChan := make(chan error, 10)

	handler := &consumerGroupHandler{
		consumer:  c,
		eventChan: eventChan,
		errorChan: errorChan,
		ready:     c.ready,
	}

	go func() {
		defer close(eventChan)
		defer close(errorChan)

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer context cancelled")
				return
			default:
				if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
					c.logger.Error("consumer group error", zap.Error(err))
					errorChan <- err
					return
				}
				if ctx.Err() != nil {
					return
				}
			}
		}
	}()

	<-c.ready

	c.logger.Info("kafka consumer started and ready")
	return eventChan, errorChan, nil
}

// Commit records a commit request. Actual offset marks happen inside the
// claim loop via session.MarkMessage; this method reports latency and
// keeps the interface honest for callers driving commits explicitly.
func (c *SaramaConsumer) Commit(ctx context.Context, partition archive.PartitionID, offset int64) error {
	startTime := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return errors.ErrConsumerClosed
	}

	c.logger.Debug("commit requested",
		zap.String("topic", partition.Topic),
		zap.Int32("partition", partition.Partition),
		zap.Int64("offset", offset),
	)

	if c.metrics != nil {
		c.metrics.ObserveCommitLatency(partition.Topic, partition.Partition, time.Since(startTime).Seconds())
		c.metrics.IncOffsetCommits(partition.Topic, partition.Partition, "success")
	}

	return nil
}

// Close closes the consumer and releases resources.
func (c *SaramaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.logger.Info("closing kafka consumer")

	if err := c.consumerGroup.Close(); err != nil {
		c.logger.Error("error closing consumer group", zap.Error(err))
		return err
	}

	c.logger.Info("kafka consumer closed")
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler.
type consumerGroupHandler struct {
	consumer       *SaramaConsumer
	eventChan      chan<- *archive.ConsumedEvent
	errorChan      chan<- error
	ready          chan bool
	readyOnce      sync.Once
	rebalanceStart time.Time
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.rebalanceStart = time.Now()

	h.consumer.logger.Info("consumer group session setup",
		zap.String("member_id", session.MemberID()),
		zap.Int32("generation_id", session.GenerationID()),
		zap.Any("claims", session.Claims()),
	)

	if h.consumer.metrics != nil {
		h.consumer.metrics.IncRebalances(h.consumer.config.GroupID)
		for topic, partitions := range session.Claims() {
			h.consumer.metrics.SetPartitionsAssigned(topic, float64(len(partitions)))
		}
	}

	h.readyOnce.Do(func() {
		close(h.ready)
	})
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim
// goroutines have exited.
func (h *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	if h.consumer.metrics != nil && !h.rebalanceStart.IsZero() {
		h.consumer.metrics.ObserveRebalanceDuration(
			h.consumer.config.GroupID,
			time.Since(h.rebalanceStart).Seconds(),
		)
	}

	h.consumer.logger.Info("consumer group session cleanup",
		zap.String("member_id", session.MemberID()),
	)
	return nil
}

// ConsumeClaim processes messages from a partition.
func (h *consumerGroupHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	topic := claim.Topic()
	partition := claim.Partition()

	h.consumer.logger.Info("started consuming partition",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("initial_offset", claim.InitialOffset()),
	)

	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			h.handleMessage(session, message)

		case <-session.Context().Done():
			h.consumer.logger.Info("session context done, stopping partition consumption",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
			)
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(session sarama.ConsumerGroupSession, message *sarama.ConsumerMessage) {
	metadata := archive.KafkaMetadata{
		Topic:     message.Topic,
		Partition: message.Partition,
		Offset:    message.Offset,
		Key:       message.Key,
		Timestamp: message.Timestamp,
		Headers:   extractHeaders(message.Headers),
	}

	e, err := bindingkafka.ToEvent(message)
	if err != nil {
		h.consumer.logger.Error("failed to decode event",
			zap.Error(err),
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		if h.consumer.metrics != nil {
			h.consumer.metrics.IncDecodeFailures(message.Topic, message.Partition)
		}
		h.divertToDLQ(session, message, metadata, err)
		return
	}

	consumedEvent := &archive.ConsumedEvent{
		Event:    e,
		Metadata: metadata,
		Commit: func() error {
			session.MarkMessage(message, "")
			return nil
		},
	}

	select {
	case h.eventChan <- consumedEvent:
		if h.consumer.metrics != nil {
			h.consumer.metrics.IncMessagesConsumed(message.Topic, message.Partition)
		}
	case <-session.Context().Done():
	}
}

// divertToDLQ forwards an undecodable record to the dead letter topic
// and marks it consumed, so one poisoned record cannot wedge the
// partition.
func (h *consumerGroupHandler) divertToDLQ(
	session sarama.ConsumerGroupSession,
	message *sarama.ConsumerMessage,
	metadata archive.KafkaMetadata,
	cause error,
) {
	if h.consumer.dlq != nil {
		if err := h.consumer.dlq.Publish(session.Context(), message.Value, metadata, cause.Error()); err != nil {
			h.errorChan <- &errors.ProcessingError{
				PartitionID: archive.PartitionID{Topic: message.Topic, Partition: message.Partition},
				Offset:      message.Offset,
				Err:         fmt.Errorf("DLQ publish failed: %w", err),
			}
			return
		}
		session.MarkMessage(message, "")
		return
	}

	h.errorChan <- &errors.ProcessingError{
		PartitionID: archive.PartitionID{Topic: message.Topic, Partition: message.Partition},
		Offset:      message.Offset,
		Err:         cause,
	}
}

// extractHeaders extracts headers from a Kafka message.
func extractHeaders(headers []*sarama.RecordHeader) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		if header != nil {
			result[string(header.Key)] = string(header.Value)
		}
	}
	return result
}

// offsetInitial converts the AutoOffsetReset config to Sarama's offset
// constant.
func offsetInitial(autoOffsetReset string) int64 {
	switch autoOffsetReset {
	case "earliest":
		return sarama.OffsetOldest
	default:
		return sarama.OffsetNewest
	}
}
