package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oakbot/oak/parse"
	"github.com/oakbot/oak/permit"
)

// Dispatcher owns the registered command trees and walks them.
//
// The command map is read-mostly: trees are registered at startup
// and shared by every dispatch afterward.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]*Node
}

// NewDispatcher makes an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		commands: make(map[string]*Node),
	}
}

// AlreadyRegistered occurs when a (prefix, name-or-alias) pair is
// registered twice.  Registration rejects duplicates rather than
// silently overwriting.
type AlreadyRegistered struct {
	Key string
}

func (e *AlreadyRegistered) Error() string {
	return "a command is already registered for `" + e.Key + "`"
}

// ErrRootNotLiteral occurs when a non-literal node is registered as
// a command root.
var ErrRootNotLiteral = errors.New("a command root must be a literal node")

// Register adds a command tree under its root's prefix-qualified
// name and aliases.
func (d *Dispatcher) Register(n *Node) error {
	if !n.Literal {
		return ErrRootNotLiteral
	}

	keys := make([]string, 0, 1+len(n.Aliases))
	keys = append(keys, strings.ToLower(n.Prefix+n.Name))
	for _, a := range n.Aliases {
		keys = append(keys, strings.ToLower(n.Prefix+a))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, key := range keys {
		if _, have := d.commands[key]; have {
			return &AlreadyRegistered{Key: key}
		}
	}
	for _, key := range keys {
		d.commands[key] = n
	}
	return nil
}

// Roots returns the distinct registered root nodes.
func (d *Dispatcher) Roots() []*Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[*Node]bool, len(d.commands))
	acc := make([]*Node, 0, len(d.commands))
	for _, n := range d.commands {
		if !seen[n] {
			seen[n] = true
			acc = append(acc, n)
		}
	}
	return acc
}

func (d *Dispatcher) lookup(token string) *Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.commands[strings.ToLower(token)]
}

func notSpace(c rune) bool {
	return !parse.IsSpace(c)
}

// peekToken returns the next whitespace-delimited token without
// consuming it.
func peekToken(r *parse.Reader) string {
	r.PushIndex()
	tok := r.Collect(notSpace, nil)
	r.Restore()
	return tok
}

// Dispatch runs one line of input through the command tree and
// always produces a Result.  No error from user input or executor
// logic escapes; the outermost boundary converts anything unexpected
// into an UncaughtError result.
func (d *Dispatcher) Dispatch(ctx context.Context, line string, source interface{}, perms permit.Permissible) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = &UncaughtError{Err: fmt.Errorf("dispatch panic: %v", p)}
		}
	}()

	r := parse.NewReader(line)
	r.SkipSpace()

	tok := peekToken(r)
	root := d.lookup(tok)
	if root == nil {
		err := &Error{
			Kind:    UnknownCommand,
			Message: "No command by name `" + tok + "`",
		}
		return &Fail{Msg: err.Message, Errs: []error{err}}
	}

	c := newContext(r, root, source, perms)
	return d.walk(ctx, c)
}

func (d *Dispatcher) walk(ctx context.Context, c *Context) Result {
	var (
		r        = c.Reader
		node     = c.Root
		execNode *Node
		last     *Node
	)

	for node != nil {
		for _, a := range node.Assertions {
			if err := a.Check(ctx, c); err != nil {
				return newAssertionFailed(err)
			}
		}

		r.SkipSpace()
		if node.Literal {
			// The token already matched; consume and discard it.
			r.Collect(notSpace, nil)
		} else {
			res := node.Parser.Parse(ctx, r)
			if fail := settledFailure(res); fail != nil {
				return fail
			}
			c.setArg(node.Name, res)
		}

		c.registerFlags(node.Flags)
		if fail := parseFlags(ctx, c); fail != nil {
			return fail
		}

		if node.Exec != nil {
			// A deeper executor overrides a shallower one.
			execNode = node
		}
		c.Path = append(c.Path, node)
		last = node

		r.SkipSpace()
		if r.Exhausted() {
			break
		}

		next := selectChild(node, r)
		if next == nil {
			tok := peekToken(r)
			err := &Error{
				Kind:    UnknownNode,
				Message: "No subcommand by name `" + tok + "`",
			}
			return &Fail{Msg: err.Message, Errs: []error{err}}
		}
		node = next
	}

	applyDefaults(c, last)

	// Await is immediate for settled results; a context cancelled
	// mid-wait yields a fault result, so an unsettled pending still
	// lands in the aggregate below instead of reaching the executor.
	fails := make([]Result, 0)
	for _, res := range c.results() {
		if fail := settledFailure(res.Await(ctx)); fail != nil {
			fails = append(fails, fail)
		}
	}
	if 0 < len(fails) {
		return &MultiFail{Subs: fails}
	}

	if execNode == nil {
		return &NoExecutor{}
	}
	return runExecutor(ctx, c, execNode)
}

// selectChild picks the next node: a literal child matching the
// peeked token wins; otherwise the single argument child, if any.
func selectChild(n *Node, r *parse.Reader) *Node {
	r.PushIndex()
	tok := r.Collect(notSpace, nil)
	r.Restore()

	for _, ch := range n.Children {
		if ch.Literal && ch.Matches(tok) {
			return ch
		}
	}
	return n.argumentChild()
}

// parseFlags consumes "-name [value]" groups while the next
// non-whitespace rune is a dash.
func parseFlags(ctx context.Context, c *Context) Result {
	r := c.Reader
	for {
		r.SkipSpace()
		if r.Current() != '-' {
			return nil
		}
		r.Next(1)

		start := r.Pos()
		name := r.Collect(notSpace, nil)
		f := c.flagDef(name)
		if f == nil {
			err := &Error{
				Kind:    UnknownFlag,
				Message: "Unknown flag `" + name + "`",
				Span:    parse.Span{Start: start, End: start + len([]rune(name))},
			}
			return &Fail{Msg: err.Message, Errs: []error{err}}
		}

		if f.Switch {
			c.setFlag(strings.ToLower(f.Name), parse.Value(true))
			continue
		}

		r.SkipSpace()
		res := f.Parser.Parse(ctx, r)
		if fail := settledFailure(res); fail != nil {
			return fail
		}
		c.setFlag(strings.ToLower(f.Name), res)
	}
}

// applyDefaults fills in defaults for the chain of optional argument
// children that input never reached.
func applyDefaults(c *Context, last *Node) {
	for n := last; n != nil; {
		ch := n.argumentChild()
		if ch == nil || !ch.Optional {
			return
		}
		if !c.hasArg(ch.Name) && ch.Default != nil {
			v, derr := ch.Default()
			if derr != nil {
				c.setArg(ch.Name, parse.Fault(derr))
			} else {
				c.setArg(ch.Name, parse.Value(v))
			}
		}
		n = ch
	}
}

// settledFailure maps a settled failed parse result to its Result,
// or nil for pending and successful results.
func settledFailure(res *parse.Result) Result {
	if res.Pending() {
		return nil
	}
	if e := res.Err(); e != nil {
		return &ParseErrors{Errs: []*parse.Error{e}}
	}
	if f := res.Fault(); f != nil {
		return &UncaughtError{Err: f}
	}
	return nil
}

// runExecutor invokes the executor inside its own error boundary.
func runExecutor(ctx context.Context, c *Context, node *Node) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = &UncaughtError{Err: fmt.Errorf("executor panic: %v", p)}
		}
	}()

	if err := node.Exec(ctx, c); err != nil {
		var (
			f      *failure
			absent *AbsentValue
		)
		switch {
		case errors.As(err, &f):
			return &Fail{Msg: f.msg, Errs: []error{f}}
		case errors.As(err, &absent):
			return &Fail{Msg: "No value for `" + absent.Name + "`", Errs: []error{absent}}
		default:
			return &UncaughtError{Err: err}
		}
	}
	return &Success{Msg: c.message()}
}
