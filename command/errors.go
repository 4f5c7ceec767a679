package command

import (
	"fmt"

	"github.com/oakbot/oak/parse"
)

// ErrorKind classifies the structured errors raised during dispatch.
type ErrorKind int

const (
	System ErrorKind = iota
	ExecutorError
	Parsing
	UnknownFlag
	UnknownNode
	UnknownCommand
	AssertFail
)

func (k ErrorKind) String() string {
	switch k {
	case System:
		return "system"
	case ExecutorError:
		return "executor"
	case Parsing:
		return "parse"
	case UnknownFlag:
		return "unknown-flag"
	case UnknownNode:
		return "unknown-node"
	case UnknownCommand:
		return "unknown-command"
	case AssertFail:
		return "assertion-failed"
	default:
		return "unknown"
	}
}

// Error is a structured command error.  These are raised internally
// during traversal and always recovered at the dispatch boundary;
// they never reach the caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Span    parse.Span
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// AbsentValue occurs when a required argument or flag has neither a
// provided nor a default value.
type AbsentValue struct {
	Name string
}

func (e *AbsentValue) Error() string {
	return "no value for `" + e.Name + "`"
}

// failure is the executor "fail" signal: a controlled failure with a
// user-facing message, as opposed to a bug.
type failure struct {
	msg string
}

func (f *failure) Error() string {
	return f.msg
}

// Failf makes an error that an executor can return to fail its
// command with the given user-facing message (without a stack trace).
func Failf(format string, args ...interface{}) error {
	return &failure{msg: fmt.Sprintf(format, args...)}
}
