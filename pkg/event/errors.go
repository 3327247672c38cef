package event

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the distinct failure kinds of building and decoding.
var (
	// ErrMissingAttribute marks a mandatory attribute left unset at Build.
	ErrMissingAttribute = errors.New("missing required attribute")

	// ErrEmptyAttribute marks an attribute set to an empty value.
	ErrEmptyAttribute = errors.New("must not be empty")

	// ErrReservedName marks an extension whose name collides with a fixed
	// attribute.
	ErrReservedName = errors.New("name is reserved")

	// ErrInvalidExtensionName marks an extension name outside the allowed
	// lowercase alphanumeric charset.
	ErrInvalidExtensionName = errors.New("extension names must be lowercase letters and digits")

	// ErrInvalidExtensionValue marks an extension value of an unsupported
	// kind.
	ErrInvalidExtensionValue = errors.New("unsupported extension value kind")

	// ErrUnsupportedSpecVersion marks a decode of an unknown specversion.
	ErrUnsupportedSpecVersion = errors.New("unsupported specversion")

	// ErrInvalidPayload marks payload data whose declared encoding cannot
	// be decoded.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// AttributeError reports a violation tied to one named attribute or
// extension. It wraps the underlying cause so errors.Is can classify it.
type AttributeError struct {
	Name string
	Err  error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %q: %v", e.Name, e.Err)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

func attrErr(name string, err error) *AttributeError {
	return &AttributeError{Name: name, Err: err}
}

// ValidationError aggregates every violation Build found. Unwrap exposes
// each violation individually, so errors.Is(err, event.ErrMissingAttribute)
// matches when any of them is a missing attribute.
//
// Violations appear in the order they were recorded; callers must not rely
// on that order.
type ValidationError struct {
	Violations []*AttributeError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("invalid event: %s", strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v
	}
	return errs
}
