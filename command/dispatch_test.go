package command

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oakbot/oak/parse"
	"github.com/oakbot/oak/permit"
)

func mustRegister(t *testing.T, d *Dispatcher, n *Node) {
	t.Helper()
	if err := d.Register(n); err != nil {
		t.Fatal(err)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := NewDispatcher()
	res := d.Dispatch(context.Background(), "nope", nil, nil)
	if res.Success() {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(res.Message(), "No command by name `nope`") {
		t.Fatalf("message %q", res.Message())
	}
}

func TestDispatchUnknownSubcommand(t *testing.T) {
	d := NewDispatcher()
	root := Literal("thing").Child(
		Literal("get").Runs(func(ctx context.Context, c *Context) error { return nil }),
	)
	mustRegister(t, d, root)

	res := d.Dispatch(context.Background(), "thing frob", nil, nil)
	if res.Success() {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(res.Message(), "No subcommand by name `frob`") {
		t.Fatalf("message %q", res.Message())
	}
}

// A literal child wins over a sibling argument node even though
// argument nodes match anything.
func TestDispatchLiteralOverArgument(t *testing.T) {
	var via string
	exec := func(name string) Executor {
		return func(ctx context.Context, c *Context) error {
			via = name
			return nil
		}
	}

	d := NewDispatcher()
	root := Literal("tag").Child(
		Literal("get").Runs(exec("get")),
		Literal("list").Runs(exec("list")),
		Arg("name", parse.String{}).Runs(exec("arg")),
	)
	mustRegister(t, d, root)

	for _, test := range []struct{ line, want string }{
		{"tag get", "get"},
		{"tag list", "list"},
		{"tag other", "arg"},
	} {
		via = ""
		res := d.Dispatch(context.Background(), test.line, nil, nil)
		if !res.Success() {
			t.Fatalf("%q: %s", test.line, res.ErrorMessage())
		}
		if via != test.want {
			t.Fatalf("%q: ran %q", test.line, via)
		}
	}
}

func TestDispatchPrefixesAndAliases(t *testing.T) {
	ran := false
	d := NewDispatcher()
	root := Literal("ping", "p")
	root.Prefix = "!"
	root.Runs(func(ctx context.Context, c *Context) error {
		ran = true
		c.Reply("pong")
		return nil
	})
	mustRegister(t, d, root)

	res := d.Dispatch(context.Background(), "!P", nil, nil)
	if !res.Success() || !ran {
		t.Fatalf("alias dispatch failed: %s", res.ErrorMessage())
	}
	if res.Message() != "pong" {
		t.Fatalf("message %q", res.Message())
	}

	// The bare name without its prefix is not a command.
	if res := d.Dispatch(context.Background(), "ping", nil, nil); res.Success() {
		t.Fatal("expected a failure without the prefix")
	}
}

func TestDispatchFlags(t *testing.T) {
	var (
		a bool
		b float64
	)
	d := NewDispatcher()
	root := Literal("cmd").
		WithFlags(
			NewSwitch("a"),
			NewFlag("b", parse.Number{})).
		Runs(func(ctx context.Context, c *Context) error {
			a = c.HasFlag("a")
			n, err := c.Number("b")
			if err == nil {
				b = n
			}
			return nil
		})
	mustRegister(t, d, root)

	res := d.Dispatch(context.Background(), "cmd -a -b 5", nil, nil)
	if !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
	if !a || b != 5 {
		t.Fatalf("a=%v b=%v", a, b)
	}
}

// Typed accessors resolve arguments first and fall back to flags, so
// an executor reads positional and flag values the same way.
func TestTypedAccessorsFallBackToFlags(t *testing.T) {
	var (
		where string
		limit float64
	)
	d := NewDispatcher()
	root := Literal("search").
		WithFlags(NewFlag("limit", parse.Number{})).
		Child(Arg("limit", parse.Number{}).
			Runs(func(ctx context.Context, c *Context) error {
				where = "arg"
				n, err := c.Number("limit")
				if err != nil {
					return err
				}
				limit = n
				return nil
			})).
		Runs(func(ctx context.Context, c *Context) error {
			where = "flag"
			n, err := c.Number("limit")
			if err != nil {
				return err
			}
			limit = n
			return nil
		})
	mustRegister(t, d, root)

	// The argument, when present, shadows the flag.
	if res := d.Dispatch(context.Background(), "search 3 -limit 9", nil, nil); !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
	if where != "arg" || limit != 3 {
		t.Fatalf("via %q limit=%v", where, limit)
	}

	if res := d.Dispatch(context.Background(), "search -limit 9", nil, nil); !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
	if where != "flag" || limit != 9 {
		t.Fatalf("via %q limit=%v", where, limit)
	}
}

func TestDispatchUnknownFlagSpan(t *testing.T) {
	d := NewDispatcher()
	root := Literal("cmd").
		WithFlags(NewSwitch("a")).
		Runs(func(ctx context.Context, c *Context) error { return nil })
	mustRegister(t, d, root)

	line := "cmd -c"
	res := d.Dispatch(context.Background(), line, nil, nil)
	if res.Success() {
		t.Fatal("expected a failure")
	}
	errs := res.Errors()
	if len(errs) != 1 {
		t.Fatalf("errors %v", errs)
	}
	var cerr *Error
	if !errors.As(errs[0], &cerr) || cerr.Kind != UnknownFlag {
		t.Fatalf("got %#v", errs[0])
	}
	// The span covers exactly the "c" after the dash.
	if at := strings.Index(line, "-c") + 1; cerr.Span.Start != at || cerr.Span.End != at+1 {
		t.Fatalf("span %+v", cerr.Span)
	}
}

func TestDispatchFlagAliases(t *testing.T) {
	d := NewDispatcher()
	root := Literal("cmd").
		WithFlags(NewSwitch("verbose", "v")).
		Runs(func(ctx context.Context, c *Context) error {
			if !c.HasFlag("verbose") {
				return Failf("not verbose")
			}
			return nil
		})
	mustRegister(t, d, root)

	if res := d.Dispatch(context.Background(), "cmd -v", nil, nil); !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
}

func TestDispatchAssertionFailFast(t *testing.T) {
	checked := 0
	failing := FuncAssertion(func(ctx context.Context, c *Context) error {
		checked++
		return errors.New("you shall not pass")
	})
	never := FuncAssertion(func(ctx context.Context, c *Context) error {
		t.Fatal("second assertion should not run")
		return nil
	})

	d := NewDispatcher()
	root := Literal("cmd").
		Assert(failing, never).
		Runs(func(ctx context.Context, c *Context) error {
			t.Fatal("executor should not run")
			return nil
		})
	mustRegister(t, d, root)

	res := d.Dispatch(context.Background(), "cmd", nil, nil)
	if _, is := res.(*AssertionFailed); !is {
		t.Fatalf("got %T", res)
	}
	if checked != 1 {
		t.Fatalf("checked %d times", checked)
	}
	if !strings.Contains(res.Message(), "you shall not pass") {
		t.Fatalf("message %q", res.Message())
	}
}

func TestDispatchPermissionsAssertion(t *testing.T) {
	d := NewDispatcher()
	root := Literal("admin").
		Assert(Permissions("oak.admin")).
		Runs(func(ctx context.Context, c *Context) error { return nil })
	mustRegister(t, d, root)

	denied := permit.NewSubject(nil)
	if res := d.Dispatch(context.Background(), "admin", nil, denied); res.Success() {
		t.Fatal("expected denial")
	}

	allowed := permit.NewSubject(nil)
	allowed.Grant("oak.admin", permit.Allow)
	if res := d.Dispatch(context.Background(), "admin", nil, allowed); !res.Success() {
		t.Fatal(res.ErrorMessage())
	}

	// No Permissible at all also fails.
	if res := d.Dispatch(context.Background(), "admin", nil, nil); res.Success() {
		t.Fatal("expected denial without a permissible")
	}
}

func TestDispatchDeepExecutorOverrides(t *testing.T) {
	var via string
	d := NewDispatcher()
	root := Literal("outer").
		Runs(func(ctx context.Context, c *Context) error {
			via = "outer"
			return nil
		}).
		Child(Literal("inner").Runs(func(ctx context.Context, c *Context) error {
			via = "inner"
			return nil
		}))
	mustRegister(t, d, root)

	d.Dispatch(context.Background(), "outer inner", nil, nil)
	if via != "inner" {
		t.Fatalf("ran %q", via)
	}
	d.Dispatch(context.Background(), "outer", nil, nil)
	if via != "outer" {
		t.Fatalf("ran %q", via)
	}
}

func TestDispatchOptionalDefault(t *testing.T) {
	var got time.Duration
	d := NewDispatcher()
	root := Literal("mute").Child(
		Arg("for", parse.Duration{}).
			Opt(func() (interface{}, error) { return 5 * time.Minute, nil }).
			Runs(func(ctx context.Context, c *Context) error {
				d, err := c.Duration("for")
				if err != nil {
					return err
				}
				got = d
				return nil
			}))
	// The executor lives on the optional node, so "mute" alone
	// never reaches it: that is a no-executor result.
	mustRegister(t, d, root)

	res := d.Dispatch(context.Background(), "mute 10s", nil, nil)
	if !res.Success() || got != 10*time.Second {
		t.Fatalf("got %v (%s)", got, res.ErrorMessage())
	}

	res = d.Dispatch(context.Background(), "mute", nil, nil)
	if _, is := res.(*NoExecutor); !is {
		t.Fatalf("got %T", res)
	}
}

func TestDispatchDefaultOnRootExecutor(t *testing.T) {
	var got float64
	d := NewDispatcher()
	root := Literal("roll").
		Runs(func(ctx context.Context, c *Context) error {
			n, err := c.Number("sides")
			if err != nil {
				return err
			}
			got = n
			return nil
		}).
		Child(Arg("sides", parse.Number{}).
			Opt(func() (interface{}, error) { return 6.0, nil }))
	mustRegister(t, d, root)

	if res := d.Dispatch(context.Background(), "roll", nil, nil); !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
	if got != 6 {
		t.Fatalf("got %v", got)
	}

	// The deeper node has no executor, so the root executor runs
	// with the provided value.
	if res := d.Dispatch(context.Background(), "roll 20", nil, nil); !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
	if got != 20 {
		t.Fatalf("got %v", got)
	}
}

func TestDispatchExecutorFailSignal(t *testing.T) {
	d := NewDispatcher()
	root := Literal("cmd").Runs(func(ctx context.Context, c *Context) error {
		return Failf("nope: %s", "reasons")
	})
	mustRegister(t, d, root)

	res := d.Dispatch(context.Background(), "cmd", nil, nil)
	fail, is := res.(*Fail)
	if !is {
		t.Fatalf("got %T", res)
	}
	if fail.Message() != "nope: reasons" {
		t.Fatalf("message %q", fail.Message())
	}
	if res.Trace() {
		t.Fatal("controlled failures are not traced")
	}
}

func TestDispatchExecutorPanicAndError(t *testing.T) {
	d := NewDispatcher()
	mustRegister(t, d, Literal("boom").Runs(func(ctx context.Context, c *Context) error {
		panic("tacos")
	}))
	mustRegister(t, d, Literal("bug").Runs(func(ctx context.Context, c *Context) error {
		return errors.New("some bug")
	}))

	for _, line := range []string{"boom", "bug"} {
		res := d.Dispatch(context.Background(), line, nil, nil)
		ue, is := res.(*UncaughtError)
		if !is {
			t.Fatalf("%q: got %T", line, res)
		}
		if !ue.Trace() {
			t.Fatalf("%q: uncaught errors must be traced", line)
		}
		if ue.Message() == "" {
			t.Fatalf("%q: expected a generic message", line)
		}
	}
}

// asyncParser returns pending results that the test resolves later.
type asyncParser struct {
	pendings chan *parse.Pending
	parses   int32
}

func (p *asyncParser) Parse(ctx context.Context, r *parse.Reader) *parse.Result {
	atomic.AddInt32(&p.parses, 1)
	r.SkipSpace()
	r.Collect(func(c rune) bool { return !parse.IsSpace(c) }, nil)
	pending := parse.NewPending()
	p.pendings <- pending
	return parse.Defer(pending)
}

func (p *asyncParser) Emit(v interface{}) (string, error) {
	return "", nil
}

// Two pending arguments, one of which resolves to a parse error:
// the executor must not run, each parser runs exactly once, and the
// aggregate failure unwraps to exactly one leaf.
func TestDispatchPendingJoinFailure(t *testing.T) {
	ap := &asyncParser{pendings: make(chan *parse.Pending, 2)}

	executed := int32(0)
	d := NewDispatcher()
	root := Literal("pair").Child(
		Arg("first", ap).Child(
			Arg("second", ap).Runs(func(ctx context.Context, c *Context) error {
				atomic.AddInt32(&executed, 1)
				return nil
			})))
	mustRegister(t, d, root)

	go func() {
		p1 := <-ap.pendings
		p2 := <-ap.pendings
		p1.Resolve(parse.Value("ok"))
		p2.Resolve(parse.Fail(parse.Errorf(parse.Span{}, "bad member")))
	}()

	res := d.Dispatch(context.Background(), "pair a b", nil, nil)

	if atomic.LoadInt32(&executed) != 0 {
		t.Fatal("executor must not run")
	}
	if n := atomic.LoadInt32(&ap.parses); n != 2 {
		t.Fatalf("parsers ran %d times", n)
	}
	multi, is := res.(*MultiFail)
	if !is {
		t.Fatalf("got %T", res)
	}
	leaves := multi.Unwrap()
	if len(leaves) != 1 {
		t.Fatalf("unwrapped to %d leaves", len(leaves))
	}
	if _, is := leaves[0].(*ParseErrors); !is {
		t.Fatalf("leaf is %T", leaves[0])
	}
}

func TestDispatchPendingJoinSuccess(t *testing.T) {
	ap := &asyncParser{pendings: make(chan *parse.Pending, 1)}

	var got interface{}
	d := NewDispatcher()
	root := Literal("who").Child(
		Arg("member", ap).Runs(func(ctx context.Context, c *Context) error {
			v, err := c.Arg("member")
			if err != nil {
				return err
			}
			got = v
			return nil
		}))
	mustRegister(t, d, root)

	go func() {
		(<-ap.pendings).Resolve(parse.Value("somebody"))
	}()

	res := d.Dispatch(context.Background(), "who @x", nil, nil)
	if !res.Success() {
		t.Fatal(res.ErrorMessage())
	}
	if got != "somebody" {
		t.Fatalf("got %#v", got)
	}
}

// A pending argument that never resolves must not reach the executor
// when the context is cancelled: the cancellation becomes a traced
// failure leaf.
func TestDispatchPendingCancelledContext(t *testing.T) {
	ap := &asyncParser{pendings: make(chan *parse.Pending, 1)}

	executed := int32(0)
	d := NewDispatcher()
	root := Literal("who").Child(
		Arg("member", ap).Runs(func(ctx context.Context, c *Context) error {
			atomic.AddInt32(&executed, 1)
			return nil
		}))
	mustRegister(t, d, root)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ap.pendings // never resolved
		cancel()
	}()

	res := d.Dispatch(ctx, "who @x", nil, nil)

	if atomic.LoadInt32(&executed) != 0 {
		t.Fatal("executor must not run")
	}
	multi, is := res.(*MultiFail)
	if !is {
		t.Fatalf("got %T", res)
	}
	leaves := multi.Unwrap()
	if len(leaves) != 1 {
		t.Fatalf("unwrapped to %d leaves", len(leaves))
	}
	ue, is := leaves[0].(*UncaughtError)
	if !is {
		t.Fatalf("leaf is %T", leaves[0])
	}
	if !errors.Is(ue.Err, context.Canceled) {
		t.Fatalf("leaf error %v", ue.Err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	d := NewDispatcher()
	mustRegister(t, d, Literal("one", "o"))
	err := d.Register(Literal("two", "o"))
	var dup *AlreadyRegistered
	if !errors.As(err, &dup) {
		t.Fatalf("got %v", err)
	}
	// The whole registration is rejected: "two" must not have
	// been added either.
	if d.lookup("two") != nil {
		t.Fatal("partial registration")
	}
}
