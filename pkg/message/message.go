package message

import (
	"errors"

	"github.com/jittakal/kafeventsdk/pkg/event"
)

// ContentTypeCloudEventsJSON is the media type marking a structured-mode
// message.
const ContentTypeCloudEventsJSON = "application/cloudevents+json"

// ErrWrongEncoding reports a message that does not carry the requested
// content mode.
var ErrWrongEncoding = errors.New("message is not in the requested content mode")

// ErrFinalized reports a write into an accumulator that already produced
// its outcome.
var ErrFinalized = errors.New("accumulator is already finalized")

// ErrNoSpecVersion reports an accumulator fed attributes before its spec
// version was set.
var ErrNoSpecVersion = errors.New("spec version must be set first")

// Encoding identifies the content mode of a transport message.
type Encoding int

const (
	// EncodingUnknown means the message carries no recognizable event.
	EncodingUnknown Encoding = iota
	// EncodingBinary means attributes travel as transport metadata and
	// the payload as raw bytes.
	EncodingBinary
	// EncodingStructured means the whole event travels as one JSON
	// document.
	EncodingStructured
)

func (e Encoding) String() string {
	switch e {
	case EncodingBinary:
		return "binary"
	case EncodingStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// BinaryWriter is the outbound binary-mode role a transport binding
// implements over its native message type. WriteBinary drives it:
// SetSpecVersion first, then one SetAttribute call per present fixed
// attribute and one SetExtension call per extension, and exactly one End
// call carrying the payload bytes (nil when the event has none).
//
// Attribute values arrive as string, bool, int64, time.Time or *url.URL;
// AttributeValue renders any of them in canonical wire form. A failed call
// aborts the write and surfaces unmodified.
type BinaryWriter interface {
	SetSpecVersion(v event.SpecVersion) error
	SetAttribute(name string, value any) error
	SetExtension(name string, value any) error
	End(data []byte) error
}

// StructuredWriter is the outbound structured-mode role: it receives the
// complete JSON document as an opaque payload.
type StructuredWriter interface {
	SetStructuredEvent(data []byte) error
}
