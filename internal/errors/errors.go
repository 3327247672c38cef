// Package errors defines the archival pipeline's sentinel and wrapped
// error types. Event-level validation errors live in pkg/event; this
// package only covers transport, buffering and storage failures.
package errors

import (
	"errors"
	"fmt"

	"github.com/jittakal/kafeventsdk/pkg/archive"
)

// Sentinel errors for common conditions.
var (
	ErrBufferFull      = errors.New("buffer is full")
	ErrConsumerClosed  = errors.New("consumer is closed")
	ErrOffsetNotFound  = errors.New("offset not found")
	ErrPartitionClosed = errors.New("partition processor is closed")
	ErrWriterClosed    = errors.New("storage writer is closed")
	ErrConnectionLost  = errors.New("connection lost")
)

// ProcessingError reports a failure while handling one consumed event.
type ProcessingError struct {
	PartitionID archive.PartitionID
	Offset      int64
	EventID     string
	Err         error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing error: partition=%s offset=%d event_id=%s: %v",
		e.PartitionID, e.Offset, e.EventID, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// StorageError reports a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CommitError reports an offset commit failure.
type CommitError struct {
	PartitionID archive.PartitionID
	Offset      int64
	Err         error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit error: partition=%s offset=%d: %v",
		e.PartitionID, e.Offset, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Retryable marks errors that can say whether retrying makes sense.
type Retryable interface {
	error
	IsRetryable() bool
}

// IsRetryable reports whether err is worth retrying: Retryable errors
// decide for themselves, ErrConnectionLost always is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return errors.Is(err, ErrConnectionLost)
}

// IsRetryable reports whether the failed storage operation is one that is
// safe to repeat.
func (e *StorageError) IsRetryable() bool {
	return e.Operation == "write" || e.Operation == "upload" || e.Operation == "create"
}

// IsRetryable defers to the wrapped error.
func (e *ProcessingError) IsRetryable() bool {
	return IsRetryable(e.Err)
}
