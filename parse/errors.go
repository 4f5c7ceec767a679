package parse

import (
	"errors"
	"fmt"
)

// ErrPendingResolution occurs when a Pending is resolved with a
// Result that is itself pending.
var ErrPendingResolution = errors.New("pending result resolved with a pending result")

// ErrPendingListElement occurs when a List element parser returns a
// pending result, which List does not support.
var ErrPendingListElement = errors.New("list element parser returned a pending result")

// EmitError occurs when a Parser's Emit is given a value of the
// wrong type.
type EmitError struct {
	Want string
	Got  interface{}
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("cannot emit %#v as a %s", e.Got, e.Want)
}

// Span locates a range of the input (in runes, half-open).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Error is a structured parse error: a message and the span of input
// it covers.  Dispatch recovers these into user-facing failures; they
// never crash anything.
type Error struct {
	Message string `json:"message"`
	Span    Span   `json:"span,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf makes an Error covering the given span.
func Errorf(span Span, format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}
