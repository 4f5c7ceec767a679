// Package service provides the application context: a named
// dependency registry plus explicit, ordered lifecycle phases
// (load, post-load, ready).  Components receive the context at
// construction instead of reaching for ambient globals, and every
// startup hook declares what happens when it fails.
package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Phase is one lifecycle stage.  Phases run strictly in order; all
// hooks of one phase complete (or abort the run) before the next
// phase starts.
type Phase int

const (
	PhaseLoad Phase = iota
	PhasePostLoad
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseLoad:
		return "load"
	case PhasePostLoad:
		return "post-load"
	case PhaseReady:
		return "ready"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Policy decides what a failed hook does to the run.
type Policy int

const (
	// Abort stops the run and surfaces the error.
	Abort Policy = iota

	// Continue logs the error and keeps going.
	Continue
)

// AlreadyProvided occurs when two components claim one dependency
// name.
type AlreadyProvided struct {
	Name string
}

func (e *AlreadyProvided) Error() string {
	return fmt.Sprintf("dependency `%s` already provided", e.Name)
}

// NoDependency occurs on a Resolve miss via MustResolve.
type NoDependency struct {
	Name string
}

func (e *NoDependency) Error() string {
	return fmt.Sprintf("no dependency `%s`", e.Name)
}

// PhaseError wraps a hook failure that aborted the run.
type PhaseError struct {
	Phase Phase
	Hook  string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s hook `%s`: %s", e.Phase, e.Hook, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

type hook struct {
	name   string
	policy Policy
	fn     func(ctx context.Context) error
}

// Context is the application context.
type Context struct {
	log *zap.Logger

	mu    sync.Mutex
	deps  map[string]interface{}
	hooks map[Phase][]hook
	ran   bool
}

// NewContext makes an empty context.  A nil logger means no logging.
func NewContext(log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		log:   log,
		deps:  make(map[string]interface{}),
		hooks: make(map[Phase][]hook),
	}
}

// Log returns the context's logger.
func (c *Context) Log() *zap.Logger {
	return c.log
}

// Provide registers a named dependency.  Names are claimed once.
func (c *Context) Provide(name string, v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, have := c.deps[name]; have {
		return &AlreadyProvided{Name: name}
	}
	c.deps[name] = v
	return nil
}

// Resolve looks up a named dependency.
func (c *Context) Resolve(name string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, have := c.deps[name]
	return v, have
}

// MustResolve looks up a named dependency, panicking on a miss.
// Meant for wiring code that runs at startup, where a missing
// dependency is a programming error.
func (c *Context) MustResolve(name string) interface{} {
	v, have := c.Resolve(name)
	if !have {
		panic(&NoDependency{Name: name})
	}
	return v
}

// OnPhase registers a named hook for a phase.  Hooks run in
// registration order within their phase.
func (c *Context) OnPhase(p Phase, name string, policy Policy, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks[p] = append(c.hooks[p], hook{
		name:   name,
		policy: policy,
		fn:     fn,
	})
}

// Run drives the lifecycle: every load hook, then every post-load
// hook, then every ready hook.  A failed Abort hook stops the run
// with a PhaseError; a failed Continue hook is logged and skipped.
// Run can be called once.
func (c *Context) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return fmt.Errorf("context already ran")
	}
	c.ran = true
	c.mu.Unlock()

	for _, p := range []Phase{PhaseLoad, PhasePostLoad, PhaseReady} {
		c.mu.Lock()
		hooks := append([]hook(nil), c.hooks[p]...)
		c.mu.Unlock()

		for _, h := range hooks {
			c.log.Debug("running hook",
				zap.Stringer("phase", p),
				zap.String("hook", h.name))
			err := h.fn(ctx)
			if err == nil {
				continue
			}
			if h.policy == Abort {
				return &PhaseError{Phase: p, Hook: h.name, Err: err}
			}
			c.log.Warn("hook failed; continuing",
				zap.Stringer("phase", p),
				zap.String("hook", h.name),
				zap.Error(err))
		}
	}
	return nil
}
