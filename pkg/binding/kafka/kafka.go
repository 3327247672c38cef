package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"github.com/jittakal/kafeventsdk/pkg/event"
	"github.com/jittakal/kafeventsdk/pkg/message"
)

const (
	// HeaderPrefix marks event attributes carried as Kafka record
	// headers in binary mode.
	HeaderPrefix = "ce_"
	// ContentTypeHeader carries the payload media type.
	ContentTypeHeader = "content-type"

	specVersionHeader = HeaderPrefix + "specversion"
)

// Write fills msg with e in the requested content mode. The record key is
// set to the event id; Topic is left for the caller.
func Write(msg *sarama.ProducerMessage, e *event.Event, mode message.Encoding) error {
	msg.Key = sarama.StringEncoder(e.ID())
	switch mode {
	case message.EncodingBinary:
		w := &producerMessageWriter{msg: msg}
		return message.WriteBinary(e, w)
	case message.EncodingStructured:
		w := &producerMessageWriter{msg: msg}
		return message.WriteStructured(e, w)
	default:
		return fmt.Errorf("%w: cannot write %s", message.ErrWrongEncoding, mode)
	}
}

// EncodingOf inspects msg's headers and reports the content mode it
// carries, or EncodingUnknown for a plain Kafka record.
func EncodingOf(msg *sarama.ConsumerMessage) message.Encoding {
	var contentType string
	hasSpecVersion := false
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		switch strings.ToLower(string(h.Key)) {
		case ContentTypeHeader:
			contentType = string(h.Value)
		case specVersionHeader:
			hasSpecVersion = true
		}
	}
	if strings.HasPrefix(contentType, message.ContentTypeCloudEventsJSON) {
		return message.EncodingStructured
	}
	if hasSpecVersion {
		return message.EncodingBinary
	}
	return message.EncodingUnknown
}

// ToEvent reconstructs the event carried by msg, detecting the content
// mode from its headers. A record carrying neither mode fails with
// ErrWrongEncoding.
func ToEvent(msg *sarama.ConsumerMessage) (*event.Event, error) {
	switch EncodingOf(msg) {
	case message.EncodingStructured:
		var e event.Event
		if err := e.UnmarshalJSON(msg.Value); err != nil {
			return nil, err
		}
		return &e, nil
	case message.EncodingBinary:
		return binaryToEvent(msg)
	default:
		return nil, fmt.Errorf("%w: record has no event headers", message.ErrWrongEncoding)
	}
}

func binaryToEvent(msg *sarama.ConsumerMessage) (*event.Event, error) {
	acc := message.NewAccumulator()

	// The spec version header binds the accumulator, so it goes first
	// regardless of header order on the wire.
	for _, h := range msg.Headers {
		if h != nil && strings.ToLower(string(h.Key)) == specVersionHeader {
			v, err := event.ParseSpecVersion(string(h.Value))
			if err != nil {
				return nil, err
			}
			if err := acc.SetSpecVersion(v); err != nil {
				return nil, err
			}
			break
		}
	}

	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		key := strings.ToLower(string(h.Key))
		switch {
		case key == specVersionHeader:
		case key == ContentTypeHeader:
			if err := acc.SetAttribute("datacontenttype", string(h.Value)); err != nil {
				return nil, err
			}
		case strings.HasPrefix(key, HeaderPrefix):
			if err := acc.SetAttribute(key[len(HeaderPrefix):], string(h.Value)); err != nil {
				return nil, err
			}
		}
	}

	if err := acc.End(msg.Value); err != nil {
		return nil, err
	}
	return acc.Event()
}

// producerMessageWriter maps the binary and structured visitor roles onto
// one Sarama producer message.
type producerMessageWriter struct {
	msg *sarama.ProducerMessage
}

var (
	_ message.BinaryWriter     = (*producerMessageWriter)(nil)
	_ message.StructuredWriter = (*producerMessageWriter)(nil)
)

func (w *producerMessageWriter) SetSpecVersion(v event.SpecVersion) error {
	w.setHeader(specVersionHeader, v.String())
	return nil
}

func (w *producerMessageWriter) SetAttribute(name string, value any) error {
	if name == "datacontenttype" {
		w.setHeader(ContentTypeHeader, message.AttributeValue(value))
		return nil
	}
	w.setHeader(HeaderPrefix+name, message.AttributeValue(value))
	return nil
}

func (w *producerMessageWriter) SetExtension(name string, value any) error {
	w.setHeader(HeaderPrefix+name, message.AttributeValue(value))
	return nil
}

func (w *producerMessageWriter) End(data []byte) error {
	if len(data) > 0 {
		w.msg.Value = sarama.ByteEncoder(data)
	}
	return nil
}

func (w *producerMessageWriter) SetStructuredEvent(data []byte) error {
	w.setHeader(ContentTypeHeader, message.ContentTypeCloudEventsJSON)
	w.msg.Value = sarama.ByteEncoder(data)
	return nil
}

func (w *producerMessageWriter) setHeader(key, value string) {
	w.msg.Headers = append(w.msg.Headers, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}
