package rrule

import "fmt"

// ErrorKind classifies construction errors.
type ErrorKind string

const (
	KindMalformedRule ErrorKind = "malformed_rule"
	KindUnknownZone   ErrorKind = "unknown_zone"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMalformedRule = &Error{Kind: KindMalformedRule}
	ErrUnknownZone   = &Error{Kind: KindUnknownZone}
)

// Error is returned by New when a rule cannot be built. Iteration never fails.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedRule, Message: fmt.Sprintf(format, args...)}
}
