package event

import (
	"net/url"
	"time"
)

// Event is one immutable CloudEvents envelope: fixed context attributes,
// an open extension map and an optional payload. Events are created by a
// builder's Build or by decoding, never directly; transforming one means
// seeding a fresh builder from it. An Event is safe for concurrent reads.
type Event struct {
	attrs      Attributes
	extensions map[string]any
	data       Data
}

// SpecVersion returns the revision tag of the event.
func (e *Event) SpecVersion() SpecVersion { return e.attrs.SpecVersion() }

// ID returns the event identifier.
func (e *Event) ID() string { return e.attrs.ID() }

// Source returns the event producer URI-reference.
func (e *Event) Source() *url.URL { return e.attrs.Source() }

// Type returns the event type.
func (e *Event) Type() string { return e.attrs.Type() }

// Subject returns the subject attribute when set.
func (e *Event) Subject() (string, bool) { return e.attrs.Subject() }

// Time returns the occurrence timestamp when set.
func (e *Event) Time() (time.Time, bool) { return e.attrs.Time() }

// DataContentType returns the declared payload media type when set.
func (e *Event) DataContentType() (string, bool) { return e.attrs.DataContentType() }

// Attributes returns the fixed attribute set. Callers type-switch on
// *AttributesV03 / *AttributesV10 to reach revision-specific attributes.
func (e *Event) Attributes() Attributes { return e.attrs }

// DataSchema returns the schema URI of a 1.0 event. On a 0.3 event the
// attribute does not exist and the second return is always false; its
// counterpart there is SchemaURL.
func (e *Event) DataSchema() (*url.URL, bool) {
	if a, ok := e.attrs.(*AttributesV10); ok {
		return a.DataSchema()
	}
	return nil, false
}

// SchemaURL returns the schema URI of a 0.3 event. Absent on 1.0 events.
func (e *Event) SchemaURL() (*url.URL, bool) {
	if a, ok := e.attrs.(*AttributesV03); ok {
		return a.SchemaURL()
	}
	return nil, false
}

// DataContentEncoding returns the datacontentencoding attribute of a 0.3
// event. Absent on 1.0 events, which removed the attribute.
func (e *Event) DataContentEncoding() (string, bool) {
	if a, ok := e.attrs.(*AttributesV03); ok {
		return a.DataContentEncoding()
	}
	return "", false
}

// Extension returns the named extension value when present. Values are
// string, bool or int64.
func (e *Event) Extension(name string) (any, bool) {
	v, ok := e.extensions[name]
	return v, ok
}

// Extensions returns a copy of the extension map.
func (e *Event) Extensions() map[string]any {
	if len(e.extensions) == 0 {
		return nil
	}
	m := make(map[string]any, len(e.extensions))
	for k, v := range e.extensions {
		m[k] = v
	}
	return m
}

// Data returns the event payload. The returned value shares the payload
// bytes; callers must not modify them.
func (e *Event) Data() Data { return e.data }

// Equal reports attribute-wise equality: same revision, same fixed
// attributes, same extension map regardless of insertion order, and equal
// payload (JSON payloads compare by value). Timestamps compare as
// instants, not locations.
func (e *Event) Equal(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.SpecVersion() != other.SpecVersion() {
		return false
	}
	if e.ID() != other.ID() || e.Type() != other.Type() {
		return false
	}
	if e.Source().String() != other.Source().String() {
		return false
	}
	if !optStringEqual(e.Subject())(other.Subject()) {
		return false
	}
	if !optStringEqual(e.DataContentType())(other.DataContentType()) {
		return false
	}
	et, eok := e.Time()
	ot, ook := other.Time()
	if eok != ook || (eok && !et.Equal(ot)) {
		return false
	}
	if !optURLEqual(e.DataSchema())(other.DataSchema()) {
		return false
	}
	if !optURLEqual(e.SchemaURL())(other.SchemaURL()) {
		return false
	}
	if !optStringEqual(e.DataContentEncoding())(other.DataContentEncoding()) {
		return false
	}
	if len(e.extensions) != len(other.extensions) {
		return false
	}
	for k, v := range e.extensions {
		ov, ok := other.extensions[k]
		if !ok || v != ov {
			return false
		}
	}
	return e.data.Equal(other.data)
}

func optStringEqual(a string, aok bool) func(string, bool) bool {
	return func(b string, bok bool) bool {
		return aok == bok && (!aok || a == b)
	}
}

func optURLEqual(a *url.URL, aok bool) func(*url.URL, bool) bool {
	return func(b *url.URL, bok bool) bool {
		return aok == bok && (!aok || a.String() == b.String())
	}
}
