package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jittakal/kafeventsdk/pkg/event"
	"github.com/jittakal/kafeventsdk/pkg/message"
)

const (
	// HeaderPrefix marks event attributes carried as HTTP headers in
	// binary mode.
	HeaderPrefix = "ce-"

	contentTypeHeader = "Content-Type"
	specVersionHeader = HeaderPrefix + "specversion"
)

// NewRequest builds an outbound request carrying e in the requested
// content mode.
func NewRequest(method, url string, e *event.Event, mode message.Encoding) (*http.Request, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}
	if err := WriteRequest(req, e, mode); err != nil {
		return nil, err
	}
	return req, nil
}

// WriteRequest fills req's headers and body with e in the requested
// content mode.
func WriteRequest(req *http.Request, e *event.Event, mode message.Encoding) error {
	w := &headerWriter{header: req.Header, setBody: func(body []byte) {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
	}}
	return write(e, w, mode)
}

// WriteResponse fills an outbound response writer with e. Headers are set
// before the body write, so it must be the first write on rw.
func WriteResponse(rw http.ResponseWriter, status int, e *event.Event, mode message.Encoding) error {
	var body []byte
	w := &headerWriter{header: rw.Header(), setBody: func(b []byte) { body = b }}
	if err := write(e, w, mode); err != nil {
		return err
	}
	rw.WriteHeader(status)
	_, err := rw.Write(body)
	return err
}

func write(e *event.Event, w *headerWriter, mode message.Encoding) error {
	switch mode {
	case message.EncodingBinary:
		return message.WriteBinary(e, w)
	case message.EncodingStructured:
		return message.WriteStructured(e, w)
	default:
		return fmt.Errorf("%w: cannot write %s", message.ErrWrongEncoding, mode)
	}
}

// EncodingOf reports the content mode carried by a set of inbound
// headers.
func EncodingOf(header http.Header) message.Encoding {
	if strings.HasPrefix(header.Get(contentTypeHeader), message.ContentTypeCloudEventsJSON) {
		return message.EncodingStructured
	}
	if header.Get(specVersionHeader) != "" {
		return message.EncodingBinary
	}
	return message.EncodingUnknown
}

// FromRequest reconstructs the event carried by an inbound request,
// detecting the content mode from its headers. The body is consumed.
func FromRequest(req *http.Request) (*event.Event, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}
	return fromParts(req.Header, body)
}

// FromResponse reconstructs the event carried by an inbound response. The
// body is consumed.
func FromResponse(resp *http.Response) (*event.Event, error) {
	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}
	}
	return fromParts(resp.Header, body)
}

func fromParts(header http.Header, body []byte) (*event.Event, error) {
	switch EncodingOf(header) {
	case message.EncodingStructured:
		var e event.Event
		if err := e.UnmarshalJSON(body); err != nil {
			return nil, err
		}
		return &e, nil
	case message.EncodingBinary:
		return binaryToEvent(header, body)
	default:
		return nil, fmt.Errorf("%w: no event headers present", message.ErrWrongEncoding)
	}
}

func binaryToEvent(header http.Header, body []byte) (*event.Event, error) {
	acc := message.NewAccumulator()

	v, err := event.ParseSpecVersion(header.Get(specVersionHeader))
	if err != nil {
		return nil, err
	}
	if err := acc.SetSpecVersion(v); err != nil {
		return nil, err
	}

	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		name := strings.ToLower(key)
		switch {
		case name == strings.ToLower(specVersionHeader):
		case name == "content-type":
			if err := acc.SetAttribute("datacontenttype", values[0]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(name, HeaderPrefix):
			if err := acc.SetAttribute(name[len(HeaderPrefix):], values[0]); err != nil {
				return nil, err
			}
		}
	}

	if err := acc.End(body); err != nil {
		return nil, err
	}
	return acc.Event()
}

// headerWriter maps the binary and structured visitor roles onto an HTTP
// header set plus a body sink.
type headerWriter struct {
	header  http.Header
	setBody func([]byte)
}

var (
	_ message.BinaryWriter     = (*headerWriter)(nil)
	_ message.StructuredWriter = (*headerWriter)(nil)
)

func (w *headerWriter) SetSpecVersion(v event.SpecVersion) error {
	w.header.Set(specVersionHeader, v.String())
	return nil
}

func (w *headerWriter) SetAttribute(name string, value any) error {
	if name == "datacontenttype" {
		w.header.Set(contentTypeHeader, message.AttributeValue(value))
		return nil
	}
	w.header.Set(HeaderPrefix+name, message.AttributeValue(value))
	return nil
}

func (w *headerWriter) SetExtension(name string, value any) error {
	w.header.Set(HeaderPrefix+name, message.AttributeValue(value))
	return nil
}

func (w *headerWriter) End(data []byte) error {
	w.setBody(data)
	return nil
}

func (w *headerWriter) SetStructuredEvent(data []byte) error {
	w.header.Set(contentTypeHeader, message.ContentTypeCloudEventsJSON)
	w.setBody(data)
	return nil
}
