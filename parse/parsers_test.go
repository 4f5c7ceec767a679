package parse

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestStringParser(t *testing.T) {
	tests := []struct {
		in   string
		want string
		rest string
		err  bool
	}{
		{in: "hello world", want: "hello", rest: " world"},
		{in: `"hello world" x`, want: "hello world", rest: " x"},
		{in: "'single quoted'", want: "single quoted"},
		{in: `"unterminated`, err: true},
		{in: "   padded", want: "padded"},
		{in: "", err: true},
		{in: `"say \"hi\"" x`, want: `say "hi"`, rest: " x"},
		{in: `"a \\ b"`, want: `a \ b`},
		{in: `"dangling \`, err: true},
	}

	for _, test := range tests {
		r := NewReader(test.in)
		res := (String{}).Parse(context.Background(), r)
		if test.err {
			if res.Err() == nil {
				t.Fatalf("%q: expected a parse error", test.in)
			}
			continue
		}
		if !res.Ok() {
			t.Fatalf("%q: %v", test.in, res.Err())
		}
		if got := res.Value().(string); got != test.want {
			t.Fatalf("%q: got %q", test.in, got)
		}
		if r.Rest() != test.rest {
			t.Fatalf("%q: rest %q", test.in, r.Rest())
		}
	}
}

// Strings round-trip through Emit even when the value carries quotes,
// backslashes, or whitespace.
func TestStringRoundTrip(t *testing.T) {
	for _, want := range []string{
		"plain",
		"two words",
		`a "b`,
		`it's 'quoted'`,
		`say "hi" now`,
		`back\slash`,
		`mixed \" soup`,
		"",
	} {
		emitted, err := (String{}).Emit(want)
		if err != nil {
			t.Fatalf("%q: %v", want, err)
		}
		res := (String{}).Parse(context.Background(), NewReader(emitted))
		if !res.Ok() {
			t.Fatalf("%q -> %q: %v", want, emitted, res.Err())
		}
		if got := res.Value().(string); got != want {
			t.Fatalf("%q -> %q: got %q", want, emitted, got)
		}
	}
}

func TestGreedyStringParser(t *testing.T) {
	r := NewReader("  all the rest of it")
	res := (GreedyString{}).Parse(context.Background(), r)
	if !res.Ok() {
		t.Fatal(res.Err())
	}
	if got := res.Value().(string); got != "all the rest of it" {
		t.Fatalf("got %q", got)
	}
	if !r.Exhausted() {
		t.Fatal("should be exhausted")
	}
}

func TestNumberParser(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{in: "42", want: 42},
		{in: "-3.5", want: -3.5},
		{in: "1_000", want: 1000},
		{in: "queso", err: true},
		{in: "", err: true},
	}

	for _, test := range tests {
		res := (Number{}).Parse(context.Background(), NewReader(test.in))
		if test.err {
			if res.Err() == nil {
				t.Fatalf("%q: expected a parse error", test.in)
			}
			continue
		}
		if !res.Ok() {
			t.Fatalf("%q: %v", test.in, res.Err())
		}
		if got := res.Value().(float64); got != test.want {
			t.Fatalf("%q: got %v", test.in, got)
		}
	}
}

func TestListParser(t *testing.T) {
	p := &List{Elem: Number{}}

	tests := []struct {
		in   string
		want []interface{}
		err  bool
	}{
		{in: "[1, 2, 3]", want: []interface{}{1.0, 2.0, 3.0}},
		{in: "1,2 ,3", want: []interface{}{1.0, 2.0, 3.0}},
		{in: "[ ]", want: []interface{}{}},
		{in: "[1, 2", err: true},
		{in: "[1, x]", err: true},
	}

	for _, test := range tests {
		res := p.Parse(context.Background(), NewReader(test.in))
		if test.err {
			if res.Ok() {
				t.Fatalf("%q: expected an error", test.in)
			}
			continue
		}
		if !res.Ok() {
			t.Fatalf("%q: %v", test.in, res.Err())
		}
		if got := res.Value().([]interface{}); !reflect.DeepEqual(got, test.want) {
			t.Fatalf("%q: got %#v", test.in, got)
		}
	}
}

// String elements must be quoted inside a list; an unquoted element
// would swallow the commas and the closing bracket.
func TestListOfQuotedStrings(t *testing.T) {
	p := &List{Elem: String{}}

	res := p.Parse(context.Background(), NewReader(`["a", 'b c']`))
	if !res.Ok() {
		t.Fatal(res.Err())
	}
	want := []interface{}{"a", "b c"}
	if got := res.Value().([]interface{}); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}

	if res := p.Parse(context.Background(), NewReader("[a, b]")); res.Ok() {
		t.Fatal("unquoted elements should not parse")
	}
}

func TestDurationParser(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{in: "5s", want: 5 * time.Second},
		{in: "1m30s", want: 90 * time.Second},
		{in: "2h", want: 2 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "1M", want: 30 * 24 * time.Hour},
		{in: "1y", want: 365 * 24 * time.Hour},
		{in: "250ms", want: 250 * time.Millisecond},
		{in: "0s", want: 0},
		{in: "junk", want: 0},
		{in: "", want: 0},
		{in: "5parsecs", err: true},
	}

	for _, test := range tests {
		res := (Duration{}).Parse(context.Background(), NewReader(test.in))
		if test.err {
			if res.Err() == nil {
				t.Fatalf("%q: expected a parse error", test.in)
			}
			continue
		}
		if !res.Ok() {
			t.Fatalf("%q: %v", test.in, res.Err())
		}
		if got := res.Value().(time.Duration); got != test.want {
			t.Fatalf("%q: got %v, want %v", test.in, got, test.want)
		}
	}
}

func TestDurationUnknownUnitSpan(t *testing.T) {
	res := (Duration{}).Parse(context.Background(), NewReader("5parsecs"))
	err := res.Err()
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if err.Span.Start != 1 || err.Span.End != 8 {
		t.Fatalf("span %+v should cover the unit text", err.Span)
	}
}

// Durations round-trip through Emit for all valid <number><unit>
// inputs.
func TestDurationRoundTrip(t *testing.T) {
	for _, in := range []string{"5s", "90m", "1h30m", "2d4h", "1y2M3d", "500ms", "36h"} {
		first := (Duration{}).Parse(context.Background(), NewReader(in))
		if !first.Ok() {
			t.Fatalf("%q: %v", in, first.Err())
		}
		emitted, err := (Duration{}).Emit(first.Value())
		if err != nil {
			t.Fatal(err)
		}
		second := (Duration{}).Parse(context.Background(), NewReader(emitted))
		if !second.Ok() {
			t.Fatalf("%q -> %q: %v", in, emitted, second.Err())
		}
		if first.Value() != second.Value() {
			t.Fatalf("%q -> %q: %v != %v", in, emitted, first.Value(), second.Value())
		}
	}
}

func TestPendingResolvesOnce(t *testing.T) {
	p := NewPending()
	res := Defer(p)
	if !res.Pending() {
		t.Fatal("should be pending")
	}

	p.Resolve(Value("tacos"))
	p.Resolve(Value("queso")) // ignored

	got := res.Await(context.Background())
	if !got.Ok() || got.Value() != "tacos" {
		t.Fatalf("got %#v", got.Value())
	}
	if res.Pending() {
		t.Fatal("should be settled")
	}
}
