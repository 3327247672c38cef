package event

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// builderCore accumulates the attributes both revisions share. Setters
// validate eagerly but record violations instead of failing, so a chain is
// never broken mid-way; Build surfaces every recorded violation at once.
type builderCore struct {
	id              string
	source          *url.URL
	sourceSet       bool
	typ             string
	typeSet         bool
	subject         string
	tm              *time.Time
	dataContentType string

	extensions map[string]any
	extNames   []string

	data       Data
	rawData    []byte
	hasRawData bool

	violations []*AttributeError
	newID      func() string
}

func newBuilderCore() builderCore {
	return builderCore{
		extensions: make(map[string]any),
		newID:      uuid.NewString,
	}
}

func (b *builderCore) violate(name string, err error) {
	b.violations = append(b.violations, attrErr(name, err))
}

func (b *builderCore) setID(id string) {
	if id == "" {
		b.violate(attrID, ErrEmptyAttribute)
		return
	}
	b.id = id
}

func (b *builderCore) setSource(source string) {
	b.sourceSet = true
	if source == "" {
		b.violate(attrSource, ErrEmptyAttribute)
		return
	}
	u, err := url.Parse(source)
	if err != nil {
		b.violate(attrSource, fmt.Errorf("invalid URI-reference: %w", err))
		return
	}
	b.source = u
}

func (b *builderCore) setType(typ string) {
	b.typeSet = true
	if typ == "" {
		b.violate(attrType, ErrEmptyAttribute)
		return
	}
	b.typ = typ
}

func (b *builderCore) setSubject(subject string) {
	if subject == "" {
		b.violate(attrSubject, ErrEmptyAttribute)
		return
	}
	b.subject = subject
}

func (b *builderCore) setTime(t time.Time) {
	b.tm = &t
}

func (b *builderCore) setTimeString(value string) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		b.violate(attrTime, fmt.Errorf("invalid RFC3339 timestamp: %w", err))
		return
	}
	b.tm = &t
}

func (b *builderCore) setDataContentType(ct string) {
	if ct == "" {
		b.violate(attrDataContentType, ErrEmptyAttribute)
		return
	}
	b.dataContentType = ct
}

func parseSchemaURI(value string) (*url.URL, error) {
	u, err := url.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid URI: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%q is not an absolute URI", value)
	}
	return u, nil
}

// setExtension records one extension. The name is checked eagerly against
// the extension charset; reserved-name collisions are deferred to Build.
// Setting the same name twice is last-write-wins.
func (b *builderCore) setExtension(name string, value any) {
	if !isExtensionName(name) {
		b.violate(name, ErrInvalidExtensionName)
		return
	}
	v, err := normalizeExtension(value)
	if err != nil {
		b.violate(name, err)
		return
	}
	if _, exists := b.extensions[name]; !exists {
		b.extNames = append(b.extNames, name)
	}
	b.extensions[name] = v
}

func (b *builderCore) setRawData(data []byte) {
	b.rawData = data
	b.hasRawData = true
}

func (b *builderCore) setJSONData(contentType string, v any) {
	b.setDataContentType(contentType)
	raw, err := json.Marshal(v)
	if err != nil {
		b.violate("data", fmt.Errorf("cannot marshal payload: %w", err))
		return
	}
	b.data = JSONData(raw)
	b.hasRawData = false
}

func (b *builderCore) setBinaryData(contentType string, data []byte) {
	b.setDataContentType(contentType)
	b.data = BinaryData(data)
	b.hasRawData = false
}

// finish runs the cross-field checks shared by both revisions and returns
// the violations to report plus the finalized id, extensions and payload.
func (b *builderCore) finish() ([]*AttributeError, string, map[string]any, Data) {
	violations := append([]*AttributeError(nil), b.violations...)

	// Regenerate policy: every Build that relies on id defaulting draws a
	// fresh id; the generated value is not written back to the builder.
	id := b.id
	if id == "" {
		id = b.newID()
	}

	if !b.sourceSet {
		violations = append(violations, attrErr(attrSource, ErrMissingAttribute))
	}
	if !b.typeSet {
		violations = append(violations, attrErr(attrType, ErrMissingAttribute))
	}

	for _, name := range b.extNames {
		if isReservedName(name) {
			violations = append(violations, attrErr(name, ErrReservedName))
		}
	}

	data := b.data
	if b.hasRawData {
		switch {
		case len(b.rawData) == 0:
			data = Data{}
		case isJSONContentType(b.dataContentType):
			if !json.Valid(b.rawData) {
				violations = append(violations, attrErr("data", fmt.Errorf("%w: not valid JSON for content type %q", ErrInvalidPayload, b.dataContentType)))
			} else {
				data = JSONData(b.rawData)
			}
		default:
			data = BinaryData(b.rawData)
		}
	}

	extensions := make(map[string]any, len(b.extensions))
	for k, v := range b.extensions {
		extensions[k] = v
	}

	return violations, id, extensions, data
}

func isExtensionName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func normalizeExtension(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case *url.URL:
		return v.String(), nil
	case url.URL:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidExtensionValue, value)
	}
}

// BuilderV10 accumulates a 1.0 event. The zero value is not usable; start
// with NewBuilderV10 or NewBuilderV10From.
type BuilderV10 struct {
	core       builderCore
	dataSchema *url.URL
}

// NewBuilderV10 returns an empty 1.0 builder.
func NewBuilderV10() *BuilderV10 {
	return &BuilderV10{core: newBuilderCore()}
}

// NewBuilderV10From returns a 1.0 builder seeded from e, which may be of
// either revision. Shared attributes, extensions and the payload carry
// over; a 0.3 schemaurl becomes dataschema and a 0.3 datacontentencoding
// is dropped, since 1.0 removed it.
func NewBuilderV10From(e *Event) *BuilderV10 {
	b := NewBuilderV10()
	seedCore(&b.core, e)
	if u, ok := e.DataSchema(); ok {
		b.dataSchema = u
	} else if u, ok := e.SchemaURL(); ok {
		b.dataSchema = u
	}
	return b
}

func seedCore(c *builderCore, e *Event) {
	c.id = e.ID()
	c.source = e.Source()
	c.sourceSet = true
	c.typ = e.Type()
	c.typeSet = true
	if s, ok := e.Subject(); ok {
		c.subject = s
	}
	if t, ok := e.Time(); ok {
		c.tm = &t
	}
	if ct, ok := e.DataContentType(); ok {
		c.dataContentType = ct
	}
	for _, name := range sortedExtensionNames(e.extensions) {
		c.extNames = append(c.extNames, name)
		c.extensions[name] = e.extensions[name]
	}
	c.data = e.data
}

// IDGenerator replaces the generator Build uses when no id was set. The
// default draws UUID v4 strings; tests inject a fixed generator.
func (b *BuilderV10) IDGenerator(fn func() string) *BuilderV10 {
	b.core.newID = fn
	return b
}

// ID sets the event identifier. Must be non-empty.
func (b *BuilderV10) ID(id string) *BuilderV10 {
	b.core.setID(id)
	return b
}

// Source sets the producer URI-reference. Relative references are valid.
func (b *BuilderV10) Source(source string) *BuilderV10 {
	b.core.setSource(source)
	return b
}

// Type sets the event type. Must be non-empty.
func (b *BuilderV10) Type(typ string) *BuilderV10 {
	b.core.setType(typ)
	return b
}

// Subject sets the subject attribute. Must be non-empty.
func (b *BuilderV10) Subject(subject string) *BuilderV10 {
	b.core.setSubject(subject)
	return b
}

// Time sets the occurrence timestamp.
func (b *BuilderV10) Time(t time.Time) *BuilderV10 {
	b.core.setTime(t)
	return b
}

// DataContentType sets the declared payload media type.
func (b *BuilderV10) DataContentType(ct string) *BuilderV10 {
	b.core.setDataContentType(ct)
	return b
}

// DataSchema sets the dataschema attribute. Must be an absolute URI.
func (b *BuilderV10) DataSchema(schema string) *BuilderV10 {
	u, err := parseSchemaURI(schema)
	if err != nil {
		b.core.violate(attrDataSchema, err)
		return b
	}
	b.dataSchema = u
	return b
}

// Extension sets one extension. Values may be string, bool, any integer
// type, or a URL; they normalize to string, bool or int64. Setting the
// same name twice is last-write-wins.
func (b *BuilderV10) Extension(name string, value any) *BuilderV10 {
	b.core.setExtension(name, value)
	return b
}

// JSONData sets the payload to the JSON encoding of v and the content type
// to contentType.
func (b *BuilderV10) JSONData(contentType string, v any) *BuilderV10 {
	b.core.setJSONData(contentType, v)
	return b
}

// BinaryData sets an opaque payload and the content type describing it.
func (b *BuilderV10) BinaryData(contentType string, data []byte) *BuilderV10 {
	b.core.setBinaryData(contentType, data)
	return b
}

// Data sets the payload from its transport byte form. The bytes are
// interpreted at Build against the effective content type: JSON media
// types (including the application/json default) parse as a JSON value,
// anything else is carried as binary.
func (b *BuilderV10) Data(data []byte) *BuilderV10 {
	b.core.setRawData(data)
	return b
}

// Attribute sets the named fixed attribute from its canonical string form.
// Names the 1.0 revision does not define are recorded as extensions. This
// is the entry point transport bindings drive when reconstructing an event
// from per-field metadata.
func (b *BuilderV10) Attribute(name, value string) *BuilderV10 {
	switch name {
	case attrSpecVersion:
		if value != string(SpecV10) {
			b.core.violate(attrSpecVersion, fmt.Errorf("%w: %q on a 1.0 builder", ErrUnsupportedSpecVersion, value))
		}
	case attrID:
		b.ID(value)
	case attrSource:
		b.Source(value)
	case attrType:
		b.Type(value)
	case attrSubject:
		b.Subject(value)
	case attrTime:
		b.core.setTimeString(value)
	case attrDataContentType:
		b.DataContentType(value)
	case attrDataSchema:
		b.DataSchema(value)
	default:
		b.Extension(name, value)
	}
	return b
}

// Build validates the accumulator and returns the finished event, or a
// *ValidationError enumerating every violation found. The accumulator is
// left untouched; calling Build again on an unchanged, fully-specified
// builder yields an identical event (ids drawn by defaulting regenerate
// per call).
func (b *BuilderV10) Build() (*Event, error) {
	violations, id, extensions, data := b.core.finish()
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return &Event{
		attrs: &AttributesV10{
			id:              id,
			source:          b.core.source,
			typ:             b.core.typ,
			subject:         b.core.subject,
			time:            b.core.tm,
			dataContentType: b.core.dataContentType,
			dataSchema:      b.dataSchema,
		},
		extensions: extensions,
		data:       data,
	}, nil
}

// BuilderV03 accumulates a 0.3 event. The zero value is not usable; start
// with NewBuilderV03 or NewBuilderV03From.
type BuilderV03 struct {
	core                builderCore
	schemaURL           *url.URL
	dataContentEncoding string
}

// NewBuilderV03 returns an empty 0.3 builder.
func NewBuilderV03() *BuilderV03 {
	return &BuilderV03{core: newBuilderCore()}
}

// NewBuilderV03From returns a 0.3 builder seeded from e, which may be of
// either revision. Shared attributes, extensions and the payload carry
// over; a 1.0 dataschema becomes schemaurl.
func NewBuilderV03From(e *Event) *BuilderV03 {
	b := NewBuilderV03()
	seedCore(&b.core, e)
	if u, ok := e.SchemaURL(); ok {
		b.schemaURL = u
	} else if u, ok := e.DataSchema(); ok {
		b.schemaURL = u
	}
	if enc, ok := e.DataContentEncoding(); ok {
		b.dataContentEncoding = enc
	}
	return b
}

// IDGenerator replaces the generator Build uses when no id was set.
func (b *BuilderV03) IDGenerator(fn func() string) *BuilderV03 {
	b.core.newID = fn
	return b
}

// ID sets the event identifier. Must be non-empty.
func (b *BuilderV03) ID(id string) *BuilderV03 {
	b.core.setID(id)
	return b
}

// Source sets the producer URI-reference. Relative references are valid.
func (b *BuilderV03) Source(source string) *BuilderV03 {
	b.core.setSource(source)
	return b
}

// Type sets the event type. Must be non-empty.
func (b *BuilderV03) Type(typ string) *BuilderV03 {
	b.core.setType(typ)
	return b
}

// Subject sets the subject attribute. Must be non-empty.
func (b *BuilderV03) Subject(subject string) *BuilderV03 {
	b.core.setSubject(subject)
	return b
}

// Time sets the occurrence timestamp.
func (b *BuilderV03) Time(t time.Time) *BuilderV03 {
	b.core.setTime(t)
	return b
}

// DataContentType sets the declared payload media type.
func (b *BuilderV03) DataContentType(ct string) *BuilderV03 {
	b.core.setDataContentType(ct)
	return b
}

// SchemaURL sets the schemaurl attribute. Must be an absolute URI.
func (b *BuilderV03) SchemaURL(schema string) *BuilderV03 {
	u, err := parseSchemaURI(schema)
	if err != nil {
		b.core.violate(attrSchemaURL, err)
		return b
	}
	b.schemaURL = u
	return b
}

// DataContentEncoding sets the datacontentencoding attribute. Only
// "base64" is defined by the 0.3 revision.
func (b *BuilderV03) DataContentEncoding(enc string) *BuilderV03 {
	if enc == "" {
		b.core.violate(attrDataContentEncoding, ErrEmptyAttribute)
		return b
	}
	b.dataContentEncoding = enc
	return b
}

// Extension sets one extension. Values may be string, bool, any integer
// type, or a URL; they normalize to string, bool or int64. Setting the
// same name twice is last-write-wins.
func (b *BuilderV03) Extension(name string, value any) *BuilderV03 {
	b.core.setExtension(name, value)
	return b
}

// JSONData sets the payload to the JSON encoding of v and the content type
// to contentType.
func (b *BuilderV03) JSONData(contentType string, v any) *BuilderV03 {
	b.core.setJSONData(contentType, v)
	return b
}

// BinaryData sets an opaque payload and the content type describing it.
func (b *BuilderV03) BinaryData(contentType string, data []byte) *BuilderV03 {
	b.core.setBinaryData(contentType, data)
	return b
}

// Data sets the payload from its transport byte form, interpreted at Build
// against the effective content type.
func (b *BuilderV03) Data(data []byte) *BuilderV03 {
	b.core.setRawData(data)
	return b
}

// Attribute sets the named fixed attribute from its canonical string form.
// Names the 0.3 revision does not define are recorded as extensions.
func (b *BuilderV03) Attribute(name, value string) *BuilderV03 {
	switch name {
	case attrSpecVersion:
		if value != string(SpecV03) {
			b.core.violate(attrSpecVersion, fmt.Errorf("%w: %q on a 0.3 builder", ErrUnsupportedSpecVersion, value))
		}
	case attrID:
		b.ID(value)
	case attrSource:
		b.Source(value)
	case attrType:
		b.Type(value)
	case attrSubject:
		b.Subject(value)
	case attrTime:
		b.core.setTimeString(value)
	case attrDataContentType:
		b.DataContentType(value)
	case attrSchemaURL:
		b.SchemaURL(value)
	case attrDataContentEncoding:
		b.DataContentEncoding(value)
	default:
		b.Extension(name, value)
	}
	return b
}

// Build validates the accumulator and returns the finished event, or a
// *ValidationError enumerating every violation found.
func (b *BuilderV03) Build() (*Event, error) {
	violations, id, extensions, data := b.core.finish()

	// Canonical encoding marker: a binary payload always carries
	// "base64", and the marker is invalid on any other payload kind, so
	// the attribute survives an encode/decode round trip unchanged.
	encoding := b.dataContentEncoding
	_, isBinary := data.Binary()
	switch {
	case encoding == "":
		if isBinary {
			encoding = base64Encoding
		}
	case strings.EqualFold(encoding, base64Encoding):
		if !isBinary {
			violations = append(violations, attrErr(attrDataContentEncoding,
				fmt.Errorf("base64 encoding requires a binary payload")))
		}
		encoding = base64Encoding
	default:
		violations = append(violations, attrErr(attrDataContentEncoding,
			fmt.Errorf("unknown encoding %q", encoding)))
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return &Event{
		attrs: &AttributesV03{
			id:                  id,
			source:              b.core.source,
			typ:                 b.core.typ,
			subject:             b.core.subject,
			time:                b.core.tm,
			dataContentType:     b.core.dataContentType,
			dataContentEncoding: encoding,
			schemaURL:           b.schemaURL,
		},
		extensions: extensions,
		data:       data,
	}, nil
}
