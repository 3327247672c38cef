// Package nats binds events to NATS messages. Only structured mode is
// supported: NATS core subscribers cannot rely on headers being enabled
// on every server, so the whole JSON document travels in the message data
// with the content type announced in a header when available.
package nats

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/jittakal/kafeventsdk/pkg/event"
	"github.com/jittakal/kafeventsdk/pkg/message"
)

const contentTypeHeader = "Content-Type"

// NewMsg builds a NATS message carrying e as one structured JSON
// document on the given subject.
func NewMsg(subject string, e *event.Event) (*nats.Msg, error) {
	msg := nats.NewMsg(subject)
	w := &msgWriter{msg: msg}
	if err := message.WriteStructured(e, w); err != nil {
		return nil, err
	}
	return msg, nil
}

// ToEvent reconstructs the event carried by msg. The content type header
// is advisory; the data is decoded as a structured document either way,
// so subjects carrying non-event payloads fail with a decode error.
func ToEvent(msg *nats.Msg) (*event.Event, error) {
	if len(msg.Data) == 0 {
		return nil, fmt.Errorf("%w: empty message", message.ErrWrongEncoding)
	}
	var e event.Event
	if err := e.UnmarshalJSON(msg.Data); err != nil {
		return nil, err
	}
	return &e, nil
}

type msgWriter struct {
	msg *nats.Msg
}

var _ message.StructuredWriter = (*msgWriter)(nil)

func (w *msgWriter) SetStructuredEvent(data []byte) error {
	if w.msg.Header == nil {
		w.msg.Header = nats.Header{}
	}
	w.msg.Header.Set(contentTypeHeader, message.ContentTypeCloudEventsJSON)
	w.msg.Data = data
	return nil
}
