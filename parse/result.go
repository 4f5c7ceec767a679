package parse

import (
	"context"
	"sync"
)

// Result is the outcome of a parse: exactly one of a value, a
// structured parse error, an uncaught fault, or a pending resolution.
// A settled Result never changes.
type Result struct {
	value   interface{}
	err     *Error
	fault   error
	pending *Pending
}

// Value makes a settled successful Result.
func Value(v interface{}) *Result {
	return &Result{value: v}
}

// Fail makes a settled Result carrying a structured parse error.
func Fail(err *Error) *Result {
	return &Result{err: err}
}

// Fault makes a settled Result carrying an unexpected error.
func Fault(err error) *Result {
	return &Result{fault: err}
}

// Defer makes a pending Result that will settle when p resolves.
func Defer(p *Pending) *Result {
	return &Result{pending: p}
}

// Pending reports whether this Result is still awaiting resolution.
func (r *Result) Pending() bool {
	return r.pending != nil && r.pending.settled() == nil
}

// Ok reports whether this Result settled successfully.  A pending
// Result is not Ok.
func (r *Result) Ok() bool {
	s := r.settle()
	return s != nil && s.err == nil && s.fault == nil
}

// Value returns the settled value (nil if failed or still pending).
func (r *Result) Value() interface{} {
	if s := r.settle(); s != nil {
		return s.value
	}
	return nil
}

// Err returns the structured parse error, if any.
func (r *Result) Err() *Error {
	if s := r.settle(); s != nil {
		return s.err
	}
	return nil
}

// Fault returns the uncaught error, if any.
func (r *Result) Fault() error {
	if s := r.settle(); s != nil {
		return s.fault
	}
	return nil
}

// Await blocks until this Result settles and returns the settled
// Result.  Settled results return themselves immediately.  A
// cancelled context yields a Fault result.
func (r *Result) Await(ctx context.Context) *Result {
	if r.pending == nil {
		return r
	}
	return r.pending.Await(ctx)
}

// settle returns the settled form of this Result without blocking,
// or nil if it is still pending.
func (r *Result) settle() *Result {
	if r.pending == nil {
		return r
	}
	return r.pending.settled()
}

// Pending is a one-shot future for a Result.  It resolves exactly
// once; later Resolve calls are ignored.
type Pending struct {
	once sync.Once
	done chan struct{}
	res  *Result
}

// NewPending makes an unresolved Pending.
func NewPending() *Pending {
	return &Pending{
		done: make(chan struct{}),
	}
}

// Resolve settles the Pending with the given Result.  Resolving with
// a pending Result is a programming error and is recorded as a fault.
func (p *Pending) Resolve(r *Result) {
	p.once.Do(func() {
		if r != nil && r.pending != nil {
			r = Fault(ErrPendingResolution)
		}
		if r == nil {
			r = Value(nil)
		}
		p.res = r
		close(p.done)
	})
}

// Await blocks until resolution (or ctx cancellation) and returns the
// settled Result.
func (p *Pending) Await(ctx context.Context) *Result {
	select {
	case <-p.done:
		return p.res
	case <-ctx.Done():
		return Fault(ctx.Err())
	}
}

func (p *Pending) settled() *Result {
	select {
	case <-p.done:
		return p.res
	default:
		return nil
	}
}
