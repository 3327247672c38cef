package event

import (
	"bytes"
	"encoding/json"
	"mime"
	"reflect"
	"strings"
)

// DataKind discriminates the payload variants of an event.
type DataKind int

const (
	// DataEmpty means the event carries no payload.
	DataEmpty DataKind = iota
	// DataBinary means the payload is an opaque byte sequence.
	DataBinary
	// DataJSON means the payload is a structured JSON value.
	DataJSON
)

func (k DataKind) String() string {
	switch k {
	case DataBinary:
		return "binary"
	case DataJSON:
		return "json"
	default:
		return "empty"
	}
}

// Data is the event payload: empty, an opaque byte sequence, or a JSON
// value. It carries no content type of its own; the datacontenttype
// attribute describes the payload when one is declared.
//
// The zero value is the empty payload.
type Data struct {
	kind  DataKind
	bytes []byte
}

// BinaryData returns a binary payload over b. The caller must not modify b
// afterwards.
func BinaryData(b []byte) Data {
	return Data{kind: DataBinary, bytes: b}
}

// JSONData returns a structured payload holding the pre-marshaled JSON
// value raw. The bytes must be a valid JSON document.
func JSONData(raw json.RawMessage) Data {
	return Data{kind: DataJSON, bytes: raw}
}

// Kind returns the payload variant.
func (d Data) Kind() DataKind {
	return d.kind
}

// IsEmpty reports whether the event carries no payload.
func (d Data) IsEmpty() bool {
	return d.kind == DataEmpty
}

// Binary returns the payload bytes when the payload is binary.
func (d Data) Binary() ([]byte, bool) {
	if d.kind != DataBinary {
		return nil, false
	}
	return d.bytes, true
}

// JSON returns the raw JSON document when the payload is structured.
func (d Data) JSON() (json.RawMessage, bool) {
	if d.kind != DataJSON {
		return nil, false
	}
	return json.RawMessage(d.bytes), true
}

// Bytes returns the payload in its byte form regardless of variant: the
// binary bytes, the JSON text, or nil when empty. This is the form a
// binary-mode transport carries.
func (d Data) Bytes() []byte {
	return d.bytes
}

// Equal reports payload equality. Binary payloads compare byte-for-byte;
// JSON payloads compare by parsed value, so formatting differences do not
// matter.
func (d Data) Equal(other Data) bool {
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case DataEmpty:
		return true
	case DataBinary:
		return bytes.Equal(d.bytes, other.bytes)
	default:
		return jsonEqual(d.bytes, other.bytes)
	}
}

func jsonEqual(a, b []byte) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

// isJSONContentType reports whether ct names a JSON media type:
// application/json, text/json, or any type with a +json suffix. An absent
// content type counts as JSON, matching the format's application/json
// default. Media type parameters are ignored.
func isJSONContentType(ct string) bool {
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.TrimSpace(strings.ToLower(ct))
	}
	return mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json")
}
