// Package interact implements the trigger/condition/action rule
// engine: declarative "when event X occurs, if conditions hold, run
// actions, then persist or self-destruct" rules, their registry, and
// their persistence format.
package interact

import (
	"context"
)

// Kind tags the three component categories.
type Kind string

const (
	KindTrigger   Kind = "trigger"
	KindCondition Kind = "condition"
	KindAction    Kind = "action"
)

// Meta describes a component for the registry and the codec.
//
// Name is the component's identity within its kind and is required
// when Serializable.  Parameterized components additionally carry a
// parameter bag via the Parameterized interface.
type Meta struct {
	Kind          Kind
	Name          string
	Serializable  bool
	Parameterized bool
}

// Key is the registry key ("kind::name").
func (m Meta) Key() string {
	return string(m.Kind) + "::" + m.Name
}

// Component is the common surface of triggers, conditions, and
// actions.
type Component interface {
	Meta() Meta
}

// Parameterized components capture a fixed parameter bag.  With
// makes a fresh instance of the same component bound to the given
// parameters; the receiver (typically the registered base component)
// is not mutated.
type Parameterized interface {
	Component
	Params() map[string]interface{}
	With(params map[string]interface{}) (Component, error)
}

// Trigger subscribes an interaction to some event source when the
// interaction is created, and unsubscribes it on destruction.
type Trigger interface {
	Component
	Attach(m *Manager, ia *Interaction) error
	Detach(m *Manager, ia *Interaction) error
}

// Condition gates an interaction's actions.
type Condition interface {
	Component
	Check(ctx context.Context, ic *Context) (bool, error)
}

// Action is the side-effecting part of an interaction.
type Action interface {
	Component
	Execute(ctx context.Context, ic *Context) error
}

// Context carries one firing's event arguments to conditions and
// actions.
type Context struct {
	Interaction *Interaction
	Args        map[string]interface{}
}

// Arg returns a named event argument (nil if absent).
func (ic *Context) Arg(name string) interface{} {
	if ic.Args == nil {
		return nil
	}
	return ic.Args[name]
}

// StringArg returns a named event argument as a string ("" if absent
// or not a string).
func (ic *Context) StringArg(name string) string {
	s, _ := ic.Arg(name).(string)
	return s
}

// FuncCondition wraps a Go function as an anonymous, unserializable
// Condition.
type FuncCondition func(ctx context.Context, ic *Context) (bool, error)

func (f FuncCondition) Meta() Meta {
	return Meta{Kind: KindCondition}
}

func (f FuncCondition) Check(ctx context.Context, ic *Context) (bool, error) {
	return f(ctx, ic)
}

// FuncAction wraps a Go function as an anonymous, unserializable
// Action.
type FuncAction func(ctx context.Context, ic *Context) error

func (f FuncAction) Meta() Meta {
	return Meta{Kind: KindAction}
}

func (f FuncAction) Execute(ctx context.Context, ic *Context) error {
	return f(ctx, ic)
}

// OrConditions passes when any member passes.
type OrConditions []Condition

func (cs OrConditions) Meta() Meta {
	return Meta{Kind: KindCondition}
}

func (cs OrConditions) Check(ctx context.Context, ic *Context) (bool, error) {
	for _, c := range cs {
		ok, err := c.Check(ctx, ic)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Not inverts a Condition.
type Not struct {
	Condition Condition
}

func (n Not) Meta() Meta {
	return Meta{Kind: KindCondition}
}

func (n Not) Check(ctx context.Context, ic *Context) (bool, error) {
	ok, err := n.Condition.Check(ctx, ic)
	return !ok, err
}

// TriggerList composes triggers: the interaction fires if any member
// fires.
type TriggerList []Trigger

// Or appends a trigger and returns the extended list.
func (ts TriggerList) Or(t Trigger) TriggerList {
	return append(ts, t)
}

func (ts TriggerList) Meta() Meta {
	return Meta{Kind: KindTrigger}
}

func (ts TriggerList) Attach(m *Manager, ia *Interaction) error {
	for i, t := range ts {
		if err := t.Attach(m, ia); err != nil {
			// Roll back the ones that made it.
			for _, done := range ts[:i] {
				done.Detach(m, ia)
			}
			return err
		}
	}
	return nil
}

func (ts TriggerList) Detach(m *Manager, ia *Interaction) error {
	var first error
	for _, t := range ts {
		if err := t.Detach(m, ia); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ParamCondition is a reusable condition template: a named predicate
// plus a fixed parameter bag.  The registered base template has a
// nil bag; With produces bound, serializable instances.
type ParamCondition struct {
	name   string
	fn     func(ctx context.Context, ic *Context, params map[string]interface{}) (bool, error)
	params map[string]interface{}
}

// NewParamCondition makes a base condition template.
func NewParamCondition(name string, fn func(ctx context.Context, ic *Context, params map[string]interface{}) (bool, error)) *ParamCondition {
	return &ParamCondition{
		name: name,
		fn:   fn,
	}
}

func (c *ParamCondition) Meta() Meta {
	return Meta{Kind: KindCondition, Name: c.name, Serializable: true, Parameterized: true}
}

func (c *ParamCondition) Params() map[string]interface{} {
	return c.params
}

func (c *ParamCondition) With(params map[string]interface{}) (Component, error) {
	return &ParamCondition{
		name:   c.name,
		fn:     c.fn,
		params: params,
	}, nil
}

func (c *ParamCondition) Check(ctx context.Context, ic *Context) (bool, error) {
	return c.fn(ctx, ic, c.params)
}

// ParamAction mirrors ParamCondition for actions.
type ParamAction struct {
	name   string
	fn     func(ctx context.Context, ic *Context, params map[string]interface{}) error
	params map[string]interface{}
}

// NewParamAction makes a base action template.
func NewParamAction(name string, fn func(ctx context.Context, ic *Context, params map[string]interface{}) error) *ParamAction {
	return &ParamAction{
		name: name,
		fn:   fn,
	}
}

func (a *ParamAction) Meta() Meta {
	return Meta{Kind: KindAction, Name: a.name, Serializable: true, Parameterized: true}
}

func (a *ParamAction) Params() map[string]interface{} {
	return a.params
}

func (a *ParamAction) With(params map[string]interface{}) (Component, error) {
	return &ParamAction{
		name:   a.name,
		fn:     a.fn,
		params: params,
	}, nil
}

func (a *ParamAction) Execute(ctx context.Context, ic *Context) error {
	return a.fn(ctx, ic, a.params)
}
