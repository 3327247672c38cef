package event

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MarshalJSON encodes the event as one CloudEvents JSON format document.
// Fixed attributes use the revision's field names, extensions flatten to
// top-level keys, and a binary payload travels base64-encoded: under
// data_base64 on 1.0, under data with datacontentencoding set on 0.3.
func (e *Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	field := func(name string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		buf.WriteByte('"')
		buf.WriteString(name)
		buf.WriteString(`":`)
		buf.Write(raw)
		return nil
	}
	rawField := func(name string, raw json.RawMessage) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(name)
		buf.WriteString(`":`)
		buf.Write(raw)
	}

	if err := field(attrSpecVersion, e.SpecVersion().String()); err != nil {
		return nil, err
	}
	if err := field(attrID, e.ID()); err != nil {
		return nil, err
	}
	if err := field(attrType, e.Type()); err != nil {
		return nil, err
	}
	if err := field(attrSource, e.Source().String()); err != nil {
		return nil, err
	}
	if ct, ok := e.DataContentType(); ok {
		if err := field(attrDataContentType, ct); err != nil {
			return nil, err
		}
	}

	binary, isBinary := e.data.Binary()
	switch e.SpecVersion() {
	case SpecV03:
		if u, ok := e.SchemaURL(); ok {
			if err := field(attrSchemaURL, u.String()); err != nil {
				return nil, err
			}
		}
		if isBinary {
			if err := field(attrDataContentEncoding, base64Encoding); err != nil {
				return nil, err
			}
		} else if enc, ok := e.DataContentEncoding(); ok {
			if err := field(attrDataContentEncoding, enc); err != nil {
				return nil, err
			}
		}
	default:
		if u, ok := e.DataSchema(); ok {
			if err := field(attrDataSchema, u.String()); err != nil {
				return nil, err
			}
		}
	}

	if s, ok := e.Subject(); ok {
		if err := field(attrSubject, s); err != nil {
			return nil, err
		}
	}
	if t, ok := e.Time(); ok {
		if err := field(attrTime, t.Format(time.RFC3339Nano)); err != nil {
			return nil, err
		}
	}

	if raw, ok := e.data.JSON(); ok {
		rawField("data", raw)
	} else if isBinary {
		encoded := base64.StdEncoding.EncodeToString(binary)
		switch e.SpecVersion() {
		case SpecV03:
			if err := field("data", encoded); err != nil {
				return nil, err
			}
		default:
			if err := field("data_base64", encoded); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range sortedExtensionNames(e.extensions) {
		if err := field(name, e.extensions[name]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

const base64Encoding = "base64"

// UnmarshalJSON decodes one CloudEvents JSON format document. The
// specversion key selects the revision's field mapping; unknown keys
// become extensions; the decoded event passes the same validation as a
// builder's Build.
func (e *Event) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		if json.Valid(b) {
			return fmt.Errorf("%w: document is not a JSON object", ErrInvalidPayload)
		}
		return fmt.Errorf("malformed event document: %w", err)
	}

	rawVersion, ok := fields[attrSpecVersion]
	if !ok {
		return fmt.Errorf("%w: no specversion attribute", ErrUnsupportedSpecVersion)
	}
	versionString, err := asString(attrSpecVersion, rawVersion)
	if err != nil {
		return err
	}
	version, err := ParseSpecVersion(versionString)
	if err != nil {
		return err
	}

	var decoded *Event
	switch version {
	case SpecV03:
		decoded, err = decodeV03(fields)
	default:
		decoded, err = decodeV10(fields)
	}
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

func decodeV10(fields map[string]json.RawMessage) (*Event, error) {
	b := NewBuilderV10()

	var dataRaw, dataBase64Raw json.RawMessage
	for _, name := range sortedFieldNames(fields) {
		raw := fields[name]
		switch name {
		case attrSpecVersion:
		case attrID, attrSource, attrType, attrSubject, attrTime, attrDataContentType, attrDataSchema:
			s, err := asString(name, raw)
			if err != nil {
				return nil, err
			}
			b.Attribute(name, s)
		case "data":
			if !bytes.Equal(raw, []byte("null")) {
				dataRaw = raw
			}
		case "data_base64":
			if !bytes.Equal(raw, []byte("null")) {
				dataBase64Raw = raw
			}
		default:
			decodeUnknownField(&b.core, name, raw)
		}
	}

	if dataRaw != nil && dataBase64Raw != nil {
		return nil, fmt.Errorf("%w: both data and data_base64 present", ErrInvalidPayload)
	}
	if dataRaw != nil {
		b.core.data = JSONData(dataRaw)
	}
	if dataBase64Raw != nil {
		s, err := asString("data_base64", dataBase64Raw)
		if err != nil {
			return nil, err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: data_base64 is not valid base64: %v", ErrInvalidPayload, err)
		}
		b.core.data = decodedPayload(decoded, b.core.dataContentType)
	}

	return b.Build()
}

func decodeV03(fields map[string]json.RawMessage) (*Event, error) {
	b := NewBuilderV03()

	var dataRaw json.RawMessage
	for _, name := range sortedFieldNames(fields) {
		raw := fields[name]
		switch name {
		case attrSpecVersion:
		case attrID, attrSource, attrType, attrSubject, attrTime,
			attrDataContentType, attrSchemaURL, attrDataContentEncoding:
			s, err := asString(name, raw)
			if err != nil {
				return nil, err
			}
			b.Attribute(name, s)
		case "data":
			if !bytes.Equal(raw, []byte("null")) {
				dataRaw = raw
			}
		default:
			decodeUnknownField(&b.core, name, raw)
		}
	}

	if dataRaw != nil {
		switch enc := b.dataContentEncoding; {
		case enc == "":
			b.core.data = JSONData(dataRaw)
		case strings.EqualFold(enc, base64Encoding):
			s, err := asString("data", dataRaw)
			if err != nil {
				return nil, fmt.Errorf("%w: base64-encoded data must be a JSON string", ErrInvalidPayload)
			}
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("%w: data is not valid base64: %v", ErrInvalidPayload, err)
			}
			b.core.data = decodedPayload(decoded, b.core.dataContentType)
			if _, isBinary := b.core.data.Binary(); !isBinary {
				// A payload re-classified as JSON no longer carries
				// the wire encoding.
				b.dataContentEncoding = ""
			}
		default:
			return nil, attrErr(attrDataContentEncoding, fmt.Errorf("unknown encoding %q", enc))
		}
	}

	return b.Build()
}

// decodedPayload classifies decoded payload bytes per the effective
// content type: JSON media types yield a structured payload, anything else
// stays binary.
func decodedPayload(decoded []byte, contentType string) Data {
	if isJSONContentType(contentType) && json.Valid(decoded) {
		return JSONData(decoded)
	}
	return BinaryData(decoded)
}

// decodeUnknownField routes a key the revision does not define into the
// builder: extensions when the name fits the extension charset, a recorded
// violation otherwise. Null values are skipped.
func decodeUnknownField(core *builderCore, name string, raw json.RawMessage) {
	if bytes.Equal(raw, []byte("null")) {
		return
	}
	if !isExtensionName(name) {
		core.violate(name, ErrInvalidExtensionName)
		return
	}
	value, err := decodeExtensionValue(raw)
	if err != nil {
		core.violate(name, err)
		return
	}
	core.setExtension(name, value)
}

func decodeExtensionValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return x, nil
	case json.Number:
		i, err := strconv.ParseInt(string(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not an integer", ErrInvalidExtensionValue, x)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("%w: JSON %T", ErrInvalidExtensionValue, v)
	}
}

func asString(name string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", attrErr(name, fmt.Errorf("must be a JSON string"))
	}
	return s, nil
}

func sortedFieldNames(fields map[string]json.RawMessage) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedExtensionNames(extensions map[string]any) []string {
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
