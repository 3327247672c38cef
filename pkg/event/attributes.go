package event

import (
	"net/url"
	"time"
)

// Attributes is the fixed context-attribute set of one event. It is a
// closed union: the only implementations are AttributesV03 and
// AttributesV10, one per supported specification revision. Optional
// attributes report presence through their second return value; an
// attribute the revision does not define is simply absent from that
// implementation.
type Attributes interface {
	// SpecVersion returns the revision tag, fixed at construction.
	SpecVersion() SpecVersion
	// ID returns the event identifier. Never empty.
	ID() string
	// Source returns the event producer URI-reference. Never nil.
	Source() *url.URL
	// Type returns the event type. Never empty.
	Type() string
	// Subject returns the subject attribute when set.
	Subject() (string, bool)
	// Time returns the occurrence timestamp when set.
	Time() (time.Time, bool)
	// DataContentType returns the declared payload media type when set.
	DataContentType() (string, bool)

	// sealed keeps the union closed to this package.
	sealed()
}

// AttributesV03 is the context attribute set of a 0.3 event. Its schema
// attribute is named schemaurl and it additionally defines
// datacontentencoding.
type AttributesV03 struct {
	id                  string
	source              *url.URL
	typ                 string
	subject             string
	time                *time.Time
	dataContentType     string
	dataContentEncoding string
	schemaURL           *url.URL
}

var _ Attributes = (*AttributesV03)(nil)

func (a *AttributesV03) SpecVersion() SpecVersion { return SpecV03 }
func (a *AttributesV03) ID() string               { return a.id }
func (a *AttributesV03) Source() *url.URL         { return a.source }
func (a *AttributesV03) Type() string             { return a.typ }

func (a *AttributesV03) Subject() (string, bool) {
	return a.subject, a.subject != ""
}

func (a *AttributesV03) Time() (time.Time, bool) {
	if a.time == nil {
		return time.Time{}, false
	}
	return *a.time, true
}

func (a *AttributesV03) DataContentType() (string, bool) {
	return a.dataContentType, a.dataContentType != ""
}

// SchemaURL returns the schema URI when set.
func (a *AttributesV03) SchemaURL() (*url.URL, bool) {
	return a.schemaURL, a.schemaURL != nil
}

// DataContentEncoding returns the declared data encoding when set.
func (a *AttributesV03) DataContentEncoding() (string, bool) {
	return a.dataContentEncoding, a.dataContentEncoding != ""
}

func (a *AttributesV03) sealed() {}

// AttributesV10 is the context attribute set of a 1.0 event. Its schema
// attribute is named dataschema; datacontentencoding does not exist in
// this revision.
type AttributesV10 struct {
	id              string
	source          *url.URL
	typ             string
	subject         string
	time            *time.Time
	dataContentType string
	dataSchema      *url.URL
}

var _ Attributes = (*AttributesV10)(nil)

func (a *AttributesV10) SpecVersion() SpecVersion { return SpecV10 }
func (a *AttributesV10) ID() string               { return a.id }
func (a *AttributesV10) Source() *url.URL         { return a.source }
func (a *AttributesV10) Type() string             { return a.typ }

func (a *AttributesV10) Subject() (string, bool) {
	return a.subject, a.subject != ""
}

func (a *AttributesV10) Time() (time.Time, bool) {
	if a.time == nil {
		return time.Time{}, false
	}
	return *a.time, true
}

func (a *AttributesV10) DataContentType() (string, bool) {
	return a.dataContentType, a.dataContentType != ""
}

// DataSchema returns the schema URI when set.
func (a *AttributesV10) DataSchema() (*url.URL, bool) {
	return a.dataSchema, a.dataSchema != nil
}

func (a *AttributesV10) sealed() {}
