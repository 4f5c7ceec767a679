package command

import (
	"context"
	"errors"

	"github.com/oakbot/oak/permit"
)

// Assertion gates a node: if Check returns an error, dispatch aborts
// with an assertion-failed result carrying the error's message.
// Assertions run in registration order and are not retried or
// aggregated.
type Assertion interface {
	Check(ctx context.Context, c *Context) error
}

// FuncAssertion wraps a Go function as an Assertion.
type FuncAssertion func(ctx context.Context, c *Context) error

func (f FuncAssertion) Check(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// ErrNoPermissible occurs when a permission assertion runs without a
// Permissible on the context.
var ErrNoPermissible = errors.New("no permissions available for this caller")

// PermissionDenied occurs when a required permission path does not
// resolve to Allow.
type PermissionDenied struct {
	Path string
}

func (e *PermissionDenied) Error() string {
	return "missing permission `" + e.Path + "`"
}

// Permissions asserts that the caller's Permissible resolves every
// given dotted path to Allow.
func Permissions(paths ...string) Assertion {
	return FuncAssertion(func(ctx context.Context, c *Context) error {
		if c.Permissible == nil {
			return ErrNoPermissible
		}
		for _, path := range paths {
			if c.Permissible.Check(path, permit.None) != permit.Allow {
				return &PermissionDenied{Path: path}
			}
		}
		return nil
	})
}
