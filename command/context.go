package command

import (
	"strings"
	"sync"
	"time"

	"github.com/oakbot/oak/parse"
	"github.com/oakbot/oak/permit"
)

// Context is the per-invocation state of one dispatch: the reader,
// the visited nodes, the resolved (possibly pending) argument and
// flag values, and the replies accumulated by the executor.
//
// A Context is created per input line, mutated throughout dispatch,
// and discarded once a Result is produced.
type Context struct {
	Reader *parse.Reader

	// Root is the resolved command's root node.
	Root *Node

	// Path is the stack of visited nodes, root first.
	Path []*Node

	// Source is the opaque payload of whatever invoked this
	// command (typically a platform message).
	Source interface{}

	// Permissible answers permission assertions for the caller.
	// May be nil, in which case permission assertions fail.
	Permissible permit.Permissible

	mu       sync.Mutex
	args     map[string]*parse.Result
	flags    map[string]*parse.Result
	flagDefs map[string]*Flag
	replies  []string
}

func newContext(r *parse.Reader, root *Node, source interface{}, perms permit.Permissible) *Context {
	return &Context{
		Reader:      r,
		Root:        root,
		Source:      source,
		Permissible: perms,
		Path:        make([]*Node, 0, 4),
		args:        make(map[string]*parse.Result),
		flags:       make(map[string]*parse.Result),
		flagDefs:    make(map[string]*Flag),
	}
}

// setArg records a parsed (possibly pending) argument.
func (c *Context) setArg(name string, res *parse.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args[name] = res
}

// setFlag records a parsed flag value.
func (c *Context) setFlag(name string, res *parse.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags[name] = res
}

// registerFlags makes the given flags visible (by name and by every
// alias) for flag parsing at this point of the walk.
func (c *Context) registerFlags(fs []*Flag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fs {
		c.flagDefs[strings.ToLower(f.Name)] = f
		for _, a := range f.Aliases {
			c.flagDefs[strings.ToLower(a)] = f
		}
	}
}

func (c *Context) flagDef(name string) *Flag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flagDefs[strings.ToLower(name)]
}

// results returns every recorded argument and flag result.
func (c *Context) results() []*parse.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := make([]*parse.Result, 0, len(c.args)+len(c.flags))
	for _, r := range c.args {
		acc = append(acc, r)
	}
	for _, r := range c.flags {
		acc = append(acc, r)
	}
	return acc
}

func (c *Context) hasArg(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, have := c.args[name]
	return have
}

// Arg returns the resolved value of the named argument, or an
// AbsentValue error if it was neither provided nor defaulted.
func (c *Context) Arg(name string) (interface{}, error) {
	c.mu.Lock()
	res, have := c.args[name]
	c.mu.Unlock()
	if !have || !res.Ok() {
		return nil, &AbsentValue{Name: name}
	}
	return res.Value(), nil
}

// Flag returns the resolved value of the named flag.  An absent flag
// falls back to its default supplier; with no default, Flag returns
// an AbsentValue error.
func (c *Context) Flag(name string) (interface{}, error) {
	c.mu.Lock()
	res, have := c.flags[strings.ToLower(name)]
	c.mu.Unlock()
	if have && res.Ok() {
		return res.Value(), nil
	}
	if f := c.flagDef(name); f != nil && f.Default != nil {
		return f.Default()
	}
	return nil, &AbsentValue{Name: name}
}

// HasFlag reports whether the named switch (or valued flag) was
// provided.
func (c *Context) HasFlag(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, have := c.flags[strings.ToLower(name)]
	return have && res.Ok()
}

// value resolves a name first as an argument, then as a flag (with
// its default).  The typed accessors below all route through here so
// executors can read `run <n> --limit 3` values uniformly.
func (c *Context) value(name string) (interface{}, error) {
	v, err := c.Arg(name)
	if err == nil {
		return v, nil
	}
	if v, ferr := c.Flag(name); ferr == nil {
		return v, nil
	}
	return nil, err
}

// String returns the named argument (or flag) as a string.
func (c *Context) String(name string) (string, error) {
	v, err := c.value(name)
	if err != nil {
		return "", err
	}
	s, is := v.(string)
	if !is {
		return "", &AbsentValue{Name: name}
	}
	return s, nil
}

// Number returns the named argument (or flag) as a float64.
func (c *Context) Number(name string) (float64, error) {
	v, err := c.value(name)
	if err != nil {
		return 0, err
	}
	n, is := v.(float64)
	if !is {
		return 0, &AbsentValue{Name: name}
	}
	return n, nil
}

// Duration returns the named argument (or flag) as a time.Duration.
func (c *Context) Duration(name string) (time.Duration, error) {
	v, err := c.value(name)
	if err != nil {
		return 0, err
	}
	d, is := v.(time.Duration)
	if !is {
		return 0, &AbsentValue{Name: name}
	}
	return d, nil
}

// Reply queues a line of user-facing output.  The accumulated lines
// become the success result's message.
func (c *Context) Reply(lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, lines...)
}

func (c *Context) message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.replies, "\n")
}
