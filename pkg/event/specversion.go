package event

import "fmt"

// SpecVersion identifies the CloudEvents specification revision an event
// conforms to.
type SpecVersion string

// Supported specification revisions.
const (
	SpecV03 SpecVersion = "0.3"
	SpecV10 SpecVersion = "1.0"
)

// ParseSpecVersion parses the wire form of a specversion value.
// Values other than "0.3" and "1.0" fail with ErrUnsupportedSpecVersion.
func ParseSpecVersion(s string) (SpecVersion, error) {
	switch s {
	case string(SpecV03):
		return SpecV03, nil
	case string(SpecV10):
		return SpecV10, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSpecVersion, s)
	}
}

// String returns the wire form of the revision.
func (v SpecVersion) String() string {
	return string(v)
}

// Context attribute names, as they appear on the wire.
const (
	attrSpecVersion         = "specversion"
	attrID                  = "id"
	attrSource              = "source"
	attrType                = "type"
	attrSubject             = "subject"
	attrTime                = "time"
	attrDataContentType     = "datacontenttype"
	attrDataSchema          = "dataschema"
	attrSchemaURL           = "schemaurl"
	attrDataContentEncoding = "datacontentencoding"
)

var attributeNamesV03 = []string{
	attrSpecVersion,
	attrID,
	attrSource,
	attrType,
	attrSubject,
	attrTime,
	attrDataContentType,
	attrSchemaURL,
	attrDataContentEncoding,
}

var attributeNamesV10 = []string{
	attrSpecVersion,
	attrID,
	attrSource,
	attrType,
	attrSubject,
	attrTime,
	attrDataContentType,
	attrDataSchema,
}

// AttributeNames returns the fixed context attribute names this revision
// defines, including specversion itself. Transport bindings use it to
// distinguish fixed attributes from extensions when decoding.
func (v SpecVersion) AttributeNames() []string {
	switch v {
	case SpecV03:
		return attributeNamesV03
	default:
		return attributeNamesV10
	}
}

// HasAttribute reports whether name is a fixed context attribute of this
// revision.
func (v SpecVersion) HasAttribute(name string) bool {
	for _, a := range v.AttributeNames() {
		if a == name {
			return true
		}
	}
	return false
}

// reservedNames holds every name an extension must not use: the union of
// both revisions' fixed attribute names plus the payload keys of the JSON
// format.
var reservedNames = map[string]struct{}{
	attrSpecVersion:         {},
	attrID:                  {},
	attrSource:              {},
	attrType:                {},
	attrSubject:             {},
	attrTime:                {},
	attrDataContentType:     {},
	attrDataSchema:          {},
	attrSchemaURL:           {},
	attrDataContentEncoding: {},
	"data":                  {},
	"data_base64":           {},
}

// isReservedName reports whether name collides with a fixed attribute or
// payload key of any supported revision.
func isReservedName(name string) bool {
	_, ok := reservedNames[name]
	return ok
}
