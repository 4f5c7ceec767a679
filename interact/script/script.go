// Package script provides goja-backed (ECMAScript 5.1+) condition
// and action components, so interactions can be authored and
// persisted without recompiling the bot.
//
// See https://github.com/dop251/goja.
package script

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dop251/goja"

	"github.com/oakbot/oak/interact"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned when a script runs past
	// DefaultTimeout.
	Interrupted = errors.New(InterruptedMessage)

	// DefaultTimeout bounds a single script execution.
	DefaultTimeout = 5 * time.Second
)

// Name is the component name for both the scripted condition and the
// scripted action.
const Name = "js"

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

func compile(src string) (*goja.Program, error) {
	code := wrapSrc(src)
	p, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}
	return p, nil
}

func sourceParam(params map[string]interface{}) (string, error) {
	x, have := params["source"]
	if !have {
		return "", errors.New("no script source given")
	}
	src, is := x.(string)
	if !is {
		return "", fmt.Errorf("bad script source (%T)", x)
	}
	return src, nil
}

// runProgram recovers from panics that env functions use to protest.
func runProgram(o *goja.Runtime, p *goja.Program) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", r)
		}
	}()
	return o.RunProgram(p)
}

// run executes a compiled program in a fresh runtime with the given
// environment bound at _.
func run(ctx context.Context, p *goja.Program, env map[string]interface{}) (goja.Value, error) {
	o := goja.New()

	env["log"] = func(x interface{}) {
		log.Println(x)
	}
	env["sleep"] = func(ms int) {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}

	if err := o.Set("_", env); err != nil {
		return nil, err
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	go func() {
		<-ictx.Done()
		// If run calls cancel() after runProgram returns,
		// then we'll never see this InterruptedMessage, which
		// is actually the behavior we want.  In this case, we
		// weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := runProgram(o, p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	return v, nil
}

// Condition evaluates an ECMAScript expression against the firing's
// event arguments (available at _.args).  The script's value,
// coerced to a boolean, decides whether the interaction's actions
// run.
type Condition struct {
	src  string
	prog *goja.Program
}

// NewCondition makes the unbound base condition for registration.
func NewCondition() *Condition {
	return &Condition{}
}

func (c *Condition) Meta() interact.Meta {
	return interact.Meta{
		Kind:          interact.KindCondition,
		Name:          Name,
		Serializable:  true,
		Parameterized: true,
	}
}

func (c *Condition) Params() map[string]interface{} {
	return map[string]interface{}{"source": c.src}
}

func (c *Condition) With(params map[string]interface{}) (interact.Component, error) {
	src, err := sourceParam(params)
	if err != nil {
		return nil, err
	}
	prog, err := compile(src)
	if err != nil {
		return nil, err
	}
	return &Condition{src: src, prog: prog}, nil
}

func (c *Condition) Check(ctx context.Context, ic *interact.Context) (bool, error) {
	if c.prog == nil {
		return false, errors.New("unbound script condition")
	}
	env := map[string]interface{}{
		"args": ic.Args,
	}
	v, err := run(ctx, c.prog, env)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	return v.ToBoolean(), nil
}

// Action runs an ECMAScript program for its side effects.  In
// addition to _.args, the environment exposes _.reply(text) and
// _.react(emoji), which send through the manager's messenger using
// the firing's channel and messageId arguments.
type Action struct {
	src  string
	prog *goja.Program
	m    *interact.Manager
}

// NewAction makes the unbound base action for registration.  The
// manager provides the messenger for _.reply and _.react.
func NewAction(m *interact.Manager) *Action {
	return &Action{m: m}
}

func (a *Action) Meta() interact.Meta {
	return interact.Meta{
		Kind:          interact.KindAction,
		Name:          Name,
		Serializable:  true,
		Parameterized: true,
	}
}

func (a *Action) Params() map[string]interface{} {
	return map[string]interface{}{"source": a.src}
}

func (a *Action) With(params map[string]interface{}) (interact.Component, error) {
	src, err := sourceParam(params)
	if err != nil {
		return nil, err
	}
	prog, err := compile(src)
	if err != nil {
		return nil, err
	}
	return &Action{src: src, prog: prog, m: a.m}, nil
}

// protest throws x as an ECMAScript exception, recovered by
// runProgram.
func protest(x interface{}) {
	panic(fmt.Sprintf("%v", x))
}

func (a *Action) Execute(ctx context.Context, ic *interact.Context) error {
	if a.prog == nil {
		return errors.New("unbound script action")
	}

	env := map[string]interface{}{
		"args": ic.Args,
	}
	env["reply"] = func(text string) {
		msgr := a.m.Messenger()
		if msgr == nil {
			protest(interact.ErrNoMessenger)
		}
		if err := msgr.Send(ctx, ic.StringArg("channel"), text); err != nil {
			protest(err)
		}
	}
	env["react"] = func(emoji string) {
		msgr := a.m.Messenger()
		if msgr == nil {
			protest(interact.ErrNoMessenger)
		}
		if err := msgr.React(ctx, ic.StringArg("channel"), ic.StringArg("messageId"), emoji); err != nil {
			protest(err)
		}
	}

	_, err := run(ctx, a.prog, env)
	return err
}

// Register installs the scripted condition and action bases on the
// manager.
func Register(m *interact.Manager) error {
	return m.RegisterBase(
		NewCondition(),
		NewAction(m),
	)
}
