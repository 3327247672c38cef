package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/jittakal/kafeventsdk/internal/errors"
	"github.com/jittakal/kafeventsdk/pkg/archive"
)

func TestNewDLQPublisher_Disabled(t *testing.T) {
	publisher, err := NewDLQPublisher(
		nil,
		SecurityConfig{},
		DLQConfig{Enabled: false},
		zaptest.NewLogger(t),
		"archiver-1",
	)
	if err != nil {
		t.Fatalf("NewDLQPublisher() error = %v", err)
	}

	metadata := archive.KafkaMetadata{Topic: "orders", Partition: 2, Offset: 42}
	if err := publisher.Publish(context.Background(), []byte("raw"), metadata, "decode failed"); err != nil {
		t.Errorf("Publish() on disabled DLQ error = %v, want nil", err)
	}

	if err := publisher.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Idempotent close.
	if err := publisher.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err = publisher.Publish(context.Background(), []byte("raw"), metadata, "decode failed")
	if !stderrors.Is(err, errors.ErrConsumerClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrConsumerClosed", err)
	}
}

func TestDLQEvent_Marshal(t *testing.T) {
	dlqEvent := DLQEvent{
		OriginalMessage:   []byte("not json"),
		OriginalTopic:     "orders",
		OriginalPartition: 3,
		OriginalOffset:    1001,
		FailureReason:     "unsupported specversion: 9.9",
		FailureTimestamp:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ProcessorID:       "archiver-1",
	}

	data, err := json.Marshal(dlqEvent)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded DLQEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if string(decoded.OriginalMessage) != "not json" {
		t.Errorf("OriginalMessage = %q, want %q", decoded.OriginalMessage, "not json")
	}
	if decoded.OriginalTopic != "orders" || decoded.OriginalPartition != 3 || decoded.OriginalOffset != 1001 {
		t.Errorf("origin = %s/%d/%d, want orders/3/1001",
			decoded.OriginalTopic, decoded.OriginalPartition, decoded.OriginalOffset)
	}
	if decoded.FailureReason != dlqEvent.FailureReason {
		t.Errorf("FailureReason = %q, want %q", decoded.FailureReason, dlqEvent.FailureReason)
	}
	if !decoded.FailureTimestamp.Equal(dlqEvent.FailureTimestamp) {
		t.Errorf("FailureTimestamp = %v, want %v", decoded.FailureTimestamp, dlqEvent.FailureTimestamp)
	}

	// Field names are part of the DLQ contract with downstream readers.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{
		"original_message", "original_topic", "original_partition",
		"original_offset", "failure_reason", "failure_timestamp", "processor_id",
	} {
		if _, ok := raw[field]; !ok {
			t.Errorf("marshalled DLQ event missing field %q", field)
		}
	}
}
