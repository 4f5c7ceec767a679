package command

import (
	"strings"

	"github.com/oakbot/oak/parse"
)

// Result is the outcome of one dispatch.
//
// Message renders the user-facing reply ("" for silence).  Trace
// reports whether the result's errors deserve stack-level logging;
// only uncaught errors do.  Unwrap flattens aggregates into their
// leaves and is the identity for everything else.
type Result interface {
	Success() bool
	Errors() []error
	Trace() bool
	ErrorMessage() string
	Message() string
	Unwrap() []Result
}

// clip keeps at most the first two lines of a message: a short
// status line plus one detail line.  Deliberate truncation to keep
// chat replies compact.
func clip(msg string) string {
	lines := strings.Split(msg, "\n")
	if len(lines) <= 2 {
		return msg
	}
	return lines[0] + "\n" + lines[1]
}

// Success is a successful dispatch, optionally carrying a reply.
type Success struct {
	Msg string
}

func (r *Success) Success() bool        { return true }
func (r *Success) Errors() []error      { return nil }
func (r *Success) Trace() bool          { return false }
func (r *Success) ErrorMessage() string { return "" }
func (r *Success) Message() string      { return clip(r.Msg) }
func (r *Success) Unwrap() []Result     { return []Result{r} }

// NoExecutor is the success-like result of a dispatch that walked
// the tree without ever reaching an executor.  It renders nothing.
type NoExecutor struct{}

func (r *NoExecutor) Success() bool        { return true }
func (r *NoExecutor) Errors() []error      { return nil }
func (r *NoExecutor) Trace() bool          { return false }
func (r *NoExecutor) ErrorMessage() string { return "" }
func (r *NoExecutor) Message() string      { return "" }
func (r *NoExecutor) Unwrap() []Result     { return []Result{r} }

// Fail is a controlled failure with a user-facing message.
type Fail struct {
	Msg  string
	Errs []error
}

func (r *Fail) Success() bool        { return false }
func (r *Fail) Errors() []error      { return r.Errs }
func (r *Fail) Trace() bool          { return false }
func (r *Fail) ErrorMessage() string { return r.Msg }
func (r *Fail) Message() string      { return clip(r.Msg) }
func (r *Fail) Unwrap() []Result     { return []Result{r} }

// AssertionFailed is a failure caused by a node assertion.
type AssertionFailed struct {
	Fail
}

func newAssertionFailed(err error) *AssertionFailed {
	return &AssertionFailed{
		Fail: Fail{
			Msg:  err.Error(),
			Errs: []error{err},
		},
	}
}

// ParseErrors is a failure caused by structured parse errors.
type ParseErrors struct {
	Errs []*parse.Error
}

func (r *ParseErrors) Success() bool { return false }

func (r *ParseErrors) Errors() []error {
	acc := make([]error, len(r.Errs))
	for i, e := range r.Errs {
		acc[i] = e
	}
	return acc
}

func (r *ParseErrors) Trace() bool          { return false }
func (r *ParseErrors) ErrorMessage() string { return "parse error" }

func (r *ParseErrors) Message() string {
	lines := make([]string, len(r.Errs))
	for i, e := range r.Errs {
		lines[i] = e.Message
	}
	return clip(strings.Join(lines, "\n"))
}

func (r *ParseErrors) Unwrap() []Result { return []Result{r} }

// UncaughtError wraps an unexpected error (an executor bug, a parser
// panic).  It is the only result kind marked for tracing.
type UncaughtError struct {
	Err error
}

func (r *UncaughtError) Success() bool        { return false }
func (r *UncaughtError) Errors() []error      { return []error{r.Err} }
func (r *UncaughtError) Trace() bool          { return true }
func (r *UncaughtError) ErrorMessage() string { return "uncaught error" }
func (r *UncaughtError) Message() string      { return "Something went wrong running that command." }
func (r *UncaughtError) Unwrap() []Result     { return []Result{r} }

// MultiFail aggregates several fail-like results (typically from the
// pending-argument join).  The aggregate itself is not traced;
// individual leaves keep their own trace flags and are examined
// after Unwrap.
type MultiFail struct {
	Subs []Result
}

func (r *MultiFail) Success() bool { return false }

func (r *MultiFail) Errors() []error {
	acc := make([]error, 0, len(r.Subs))
	for _, sub := range r.Subs {
		acc = append(acc, sub.Errors()...)
	}
	return acc
}

func (r *MultiFail) Trace() bool          { return false }
func (r *MultiFail) ErrorMessage() string { return "multiple failures" }

func (r *MultiFail) Message() string {
	lines := make([]string, 0, len(r.Subs))
	for _, sub := range r.Subs {
		if msg := sub.Message(); msg != "" {
			lines = append(lines, msg)
		}
	}
	return clip(strings.Join(lines, "\n"))
}

// Unwrap flattens nested MultiFails into their leaves.
func (r *MultiFail) Unwrap() []Result {
	acc := make([]Result, 0, len(r.Subs))
	for _, sub := range r.Subs {
		acc = append(acc, sub.Unwrap()...)
	}
	return acc
}
