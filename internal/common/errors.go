// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Kind partitions pipeline failures so callers can branch on the failure
// domain rather than on message text.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no kind.
	KindUnknown Kind = iota
	// KindValidation covers malformed or missing ingestion and rule input.
	KindValidation
	// KindClassification covers failures of the external classifier. These
	// are recovered inside the gateway and should never escape it.
	KindClassification
	// KindPersistence covers store read/write failures.
	KindPersistence
	// KindDispatch covers queue submission failures.
	KindDispatch
	// KindWorker covers failures during asynchronous job processing.
	KindWorker
)

// String returns the kind's name for logging.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindClassification:
		return "classification"
	case KindPersistence:
		return "persistence"
	case KindDispatch:
		return "dispatch"
	case KindWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// Error is a kinded error. It wraps an underlying cause so errors.Is and
// errors.As keep working through it.
type Error struct {
	Err  error
	Msg  string
	Kind Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new kinded error wrapping err.
func E(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, or KindUnknown if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Common application errors.
var (
	// Storage errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Retry errors.
	ErrMaxRetries = errors.New("max retries exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)
