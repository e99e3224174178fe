package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies why an analysis failed
type Kind string

const (
	KindInputRejected   Kind = "input_rejected"
	KindTransport       Kind = "transport_failure"
	KindSchemaViolation Kind = "schema_violation"
)

// String describes the error kind for logs
func (k Kind) String() string {
	if k == "" {
		return "ok"
	}
	return string(k)
}

// Sentinels usable with errors.Is against any *Error of the matching kind
var (
	ErrInputRejected   = errors.New("message is empty")
	ErrTransport       = errors.New("classifier request failed")
	ErrSchemaViolation = errors.New("classifier response violates the analysis schema")
)

// Error is the single error type returned by Client.Analyze
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Kind == KindInputRejected {
		return ErrInputRejected.Error()
	}
	if e.Err == nil {
		return "an error occurred during analysis"
	}
	return fmt.Sprintf("an error occurred during analysis: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInputRejected:
		return e.Kind == KindInputRejected
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrSchemaViolation:
		return e.Kind == KindSchemaViolation
	}
	return false
}

// KindOf returns the kind of an analysis error, or "" for other errors
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
