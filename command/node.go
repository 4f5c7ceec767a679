// Package command implements the command tree and its dispatcher.
//
// A command is a tree of literal and argument nodes.  The dispatcher
// walks the tree consuming one line of input, parsing arguments and
// flags along the way, and invokes the deepest executor it reaches.
// Every outcome is a Result; no error from user input or executor
// logic ever escapes a dispatch.
package command

import (
	"context"
	"strings"

	"github.com/oakbot/oak/parse"
)

// Executor is the code behind a terminal-capable node.
//
// Returning an error made by Failf fails the command with that
// message.  Any other error (or a panic) becomes an uncaught-error
// result, which is traced in the log but rendered generically to the
// user.
type Executor func(ctx context.Context, c *Context) error

// Node is one node of a command tree.  A literal node matches its
// own name; an argument node is a positional wildcard parsed by its
// Parser.
type Node struct {
	Name    string
	Aliases []string

	// Prefix qualifies a root node in the dispatcher's command
	// map.  Ignored below the root.
	Prefix string

	Literal bool

	Parser   parse.Parser
	Optional bool

	// Default supplies a value for an optional argument node that
	// input never reached.
	Default func() (interface{}, error)

	Children []*Node

	Flags []*Flag

	Assertions []Assertion

	Exec Executor

	// Doc is a short help line used by tree renderers.
	Doc string
}

// Literal makes a literal node.
func Literal(name string, aliases ...string) *Node {
	return &Node{
		Name:    name,
		Aliases: aliases,
		Literal: true,
	}
}

// Arg makes an argument node parsed by p.
func Arg(name string, p parse.Parser) *Node {
	return &Node{
		Name:   name,
		Parser: p,
	}
}

// Matches reports whether the (lowercased) token matches this node's
// name or one of its aliases.
func (n *Node) Matches(token string) bool {
	if strings.EqualFold(n.Name, token) {
		return true
	}
	for _, a := range n.Aliases {
		if strings.EqualFold(a, token) {
			return true
		}
	}
	return false
}

// Child adds child nodes and returns n.
func (n *Node) Child(kids ...*Node) *Node {
	n.Children = append(n.Children, kids...)
	return n
}

// WithFlags adds flags and returns n.
func (n *Node) WithFlags(fs ...*Flag) *Node {
	n.Flags = append(n.Flags, fs...)
	return n
}

// Assert adds assertions and returns n.
func (n *Node) Assert(as ...Assertion) *Node {
	n.Assertions = append(n.Assertions, as...)
	return n
}

// Runs sets the executor and returns n.
func (n *Node) Runs(fn Executor) *Node {
	n.Exec = fn
	return n
}

// Opt marks an argument node optional with the given default
// supplier (which may be nil) and returns n.
func (n *Node) Opt(def func() (interface{}, error)) *Node {
	n.Optional = true
	n.Default = def
	return n
}

// Help sets the doc line and returns n.
func (n *Node) Help(doc string) *Node {
	n.Doc = doc
	return n
}

// argumentChild returns the single non-literal child, if any.
func (n *Node) argumentChild() *Node {
	for _, ch := range n.Children {
		if !ch.Literal {
			return ch
		}
	}
	return nil
}

// Flag is a named, order-independent modifier parsed after a node's
// positional argument.  A switch flag takes no value; a valued flag
// requires "-name value" syntax.
type Flag struct {
	Name    string
	Aliases []string
	Parser  parse.Parser
	Switch  bool
	Default func() (interface{}, error)
}

// NewSwitch makes a switch flag (boolean true on presence).
func NewSwitch(name string, aliases ...string) *Flag {
	return &Flag{
		Name:    name,
		Aliases: aliases,
		Switch:  true,
	}
}

// NewFlag makes a valued flag parsed by p.
func NewFlag(name string, p parse.Parser, aliases ...string) *Flag {
	return &Flag{
		Name:    name,
		Aliases: aliases,
		Parser:  p,
	}
}

// WithDefault sets the flag's default supplier and returns f.
func (f *Flag) WithDefault(def func() (interface{}, error)) *Flag {
	f.Default = def
	return f
}
