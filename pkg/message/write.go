package message

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jittakal/kafeventsdk/pkg/event"
)

// WriteBinary pushes e into w, one call per present attribute and
// extension, terminated by End with the payload bytes. The first failing
// visitor call aborts the write; its error returns unmodified. No partial
// rollback happens because the event is never mutated.
func WriteBinary(e *event.Event, w BinaryWriter) error {
	if err := w.SetSpecVersion(e.SpecVersion()); err != nil {
		return err
	}
	if err := w.SetAttribute("id", e.ID()); err != nil {
		return err
	}
	if err := w.SetAttribute("source", e.Source()); err != nil {
		return err
	}
	if err := w.SetAttribute("type", e.Type()); err != nil {
		return err
	}
	if s, ok := e.Subject(); ok {
		if err := w.SetAttribute("subject", s); err != nil {
			return err
		}
	}
	if t, ok := e.Time(); ok {
		if err := w.SetAttribute("time", t); err != nil {
			return err
		}
	}
	if ct, ok := e.DataContentType(); ok {
		if err := w.SetAttribute("datacontenttype", ct); err != nil {
			return err
		}
	}
	if u, ok := e.DataSchema(); ok {
		if err := w.SetAttribute("dataschema", u); err != nil {
			return err
		}
	}
	if u, ok := e.SchemaURL(); ok {
		if err := w.SetAttribute("schemaurl", u); err != nil {
			return err
		}
	}
	if enc, ok := e.DataContentEncoding(); ok {
		if err := w.SetAttribute("datacontentencoding", enc); err != nil {
			return err
		}
	}
	for name, value := range e.Extensions() {
		if err := w.SetExtension(name, value); err != nil {
			return err
		}
	}
	return w.End(e.Data().Bytes())
}

// WriteStructured encodes e as one CloudEvents JSON document and hands it
// to w.
func WriteStructured(e *event.Event, w StructuredWriter) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding structured event: %w", err)
	}
	return w.SetStructuredEvent(doc)
}

// AttributeValue renders an attribute or extension value in its canonical
// wire string form: RFC3339 with nanoseconds for timestamps, the URI text
// for URLs, strconv forms for bool and int64.
func AttributeValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *url.URL:
		return v.String()
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
