package persist

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when the queue refuses a submission because it is full.
	ErrRejected = errors.New("persist: submission rejected")
	// ErrInvalid is returned for nil entities, negative ids, or empty destinations.
	ErrInvalid = errors.New("persist: invalid submission")
	// ErrNotRunning is returned for work submitted while the service is stopped.
	ErrNotRunning = errors.New("persist: service not running")
	// ErrAlreadyStarted is returned by Start on a running service.
	ErrAlreadyStarted = errors.New("persist: service already started")
	// ErrStopTimeout is returned by Stop when the worker outlives the wait.
	ErrStopTimeout = errors.New("persist: worker did not stop in time")
	// ErrAbandoned is delivered to waiters whose task was still queued at shutdown.
	ErrAbandoned = errors.New("persist: task abandoned at shutdown")
	// ErrUnsupportedOperation is matched by UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("persist: operation not supported")
)

// StorageError wraps a failure reported by the backing store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persist: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persist: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// UnsupportedOperationError is returned by every call to an operation this
// service deliberately does not provide.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("persist: %s is not supported", e.Op)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}
