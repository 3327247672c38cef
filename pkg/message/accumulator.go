package message

import (
	"time"

	"github.com/jittakal/kafeventsdk/pkg/event"
)

// Accumulator reconstructs an event from per-field transport metadata: the
// inbound half of the binary-mode protocol. A binding reads its spec
// version carrier field first and calls SetSpecVersion, then feeds the
// remaining attributes, extensions and payload in any order, and finalizes
// with Event, which validates exactly like a builder's Build.
//
// Attribute names the bound revision does not define are recorded as
// extensions, mirroring the structured codec; reserved-name collisions
// still fail at finalization. Values arriving as transport strings are
// coerced to the attribute's type; a coercion failure is reported, with
// every other violation, by Event.
//
// An Accumulator is also a BinaryWriter, so the output of WriteBinary can
// feed one directly. It is single-use: after Event returns, the outcome is
// fixed and further writes fail with ErrFinalized.
type Accumulator struct {
	v03  *event.BuilderV03
	v10  *event.BuilderV10
	done bool

	result *event.Event
	err    error
}

var _ BinaryWriter = (*Accumulator)(nil)

// NewAccumulator returns an empty accumulator. SetSpecVersion must be the
// first call.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// SetSpecVersion binds the accumulator to a revision's builder.
func (a *Accumulator) SetSpecVersion(v event.SpecVersion) error {
	if a.done {
		return ErrFinalized
	}
	switch v {
	case event.SpecV03:
		a.v03 = event.NewBuilderV03()
	case event.SpecV10:
		a.v10 = event.NewBuilderV10()
	default:
		_, err := event.ParseSpecVersion(v.String())
		return err
	}
	return nil
}

// SetAttribute feeds one named attribute. Values may be the typed forms
// WriteBinary emits or plain transport strings.
func (a *Accumulator) SetAttribute(name string, value any) error {
	if err := a.writable(); err != nil {
		return err
	}
	if name == "time" {
		if t, ok := value.(time.Time); ok {
			if a.v03 != nil {
				a.v03.Time(t)
			} else {
				a.v10.Time(t)
			}
			return nil
		}
	}
	if a.v03 != nil {
		a.v03.Attribute(name, AttributeValue(value))
	} else {
		a.v10.Attribute(name, AttributeValue(value))
	}
	return nil
}

// SetExtension feeds one extension. Typed values (string, bool, int64)
// keep their kind; anything else is carried as its canonical string, since
// binary-mode transports do not preserve value types.
func (a *Accumulator) SetExtension(name string, value any) error {
	if err := a.writable(); err != nil {
		return err
	}
	switch value.(type) {
	case string, bool, int64:
	default:
		value = AttributeValue(value)
	}
	if a.v03 != nil {
		a.v03.Extension(name, value)
	} else {
		a.v10.Extension(name, value)
	}
	return nil
}

// End feeds the payload bytes. Empty or nil means the event has none.
func (a *Accumulator) End(data []byte) error {
	if err := a.writable(); err != nil {
		return err
	}
	if a.v03 != nil {
		a.v03.Data(data)
	} else {
		a.v10.Data(data)
	}
	return nil
}

// Event finalizes the accumulator and returns the reconstructed event or
// the aggregated validation error. The outcome is fixed on first call.
func (a *Accumulator) Event() (*event.Event, error) {
	if a.done {
		return a.result, a.err
	}
	a.done = true
	switch {
	case a.v03 != nil:
		a.result, a.err = a.v03.Build()
	case a.v10 != nil:
		a.result, a.err = a.v10.Build()
	default:
		a.err = ErrNoSpecVersion
	}
	return a.result, a.err
}

func (a *Accumulator) writable() error {
	if a.done {
		return ErrFinalized
	}
	if a.v03 == nil && a.v10 == nil {
		return ErrNoSpecVersion
	}
	return nil
}
