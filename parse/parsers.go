package parse

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// String parses a single token: quoted with " or ', otherwise
// delimited by whitespace.  Inside quotes a backslash escapes the
// next rune, so quote characters can appear in the value.
type String struct{}

func (String) Parse(ctx context.Context, r *Reader) *Result {
	r.SkipSpace()
	start := r.Pos()
	c := r.Current()

	if c == '"' || c == '\'' {
		quote := c
		r.Next(1)
		acc := make([]rune, 0, 16)
		for {
			c = r.Current()
			if c == EOS {
				return Fail(Errorf(Span{Start: start, End: r.Pos()},
					"unterminated quoted string"))
			}
			if c == '\\' {
				r.Next(1)
				c = r.Current()
				if c == EOS {
					return Fail(Errorf(Span{Start: start, End: r.Pos()},
						"unterminated quoted string"))
				}
				acc = append(acc, c)
				r.Next(1)
				continue
			}
			if c == quote {
				r.Next(1)
				return Value(string(acc))
			}
			acc = append(acc, c)
			r.Next(1)
		}
	}

	s := r.Collect(func(c rune) bool { return !IsSpace(c) }, nil)
	if s == "" {
		return Fail(Errorf(Span{Start: start, End: r.Pos()}, "expected a string"))
	}
	return Value(s)
}

// stringEscaper doubles backslashes and escapes double quotes so
// Emit's quoted form parses back to the same value.
var stringEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (String) Emit(v interface{}) (string, error) {
	s, is := v.(string)
	if !is {
		return "", &EmitError{Want: "string", Got: v}
	}
	if s == "" || strings.ContainsAny(s, " \t") || s[0] == '"' || s[0] == '\'' {
		return `"` + stringEscaper.Replace(s) + `"`, nil
	}
	return s, nil
}

// GreedyString parses the entire rest of the input (sans leading
// whitespace).
type GreedyString struct{}

func (GreedyString) Parse(ctx context.Context, r *Reader) *Result {
	r.SkipSpace()
	s := r.Rest()
	r.Next(len([]rune(s)))
	return Value(s)
}

func (GreedyString) Emit(v interface{}) (string, error) {
	s, is := v.(string)
	if !is {
		return "", &EmitError{Want: "string", Got: v}
	}
	return s, nil
}

// Number parses a float over digits, '.', '_', and a leading sign.
// Underscores are digit separators and are discarded.
type Number struct{}

func numberRune(c rune) bool {
	return '0' <= c && c <= '9' || c == '.' || c == '_' || c == '-' || c == '+'
}

func (Number) Parse(ctx context.Context, r *Reader) *Result {
	r.SkipSpace()
	start := r.Pos()
	s := r.Collect(numberRune, nil)
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	if err != nil {
		return Fail(Errorf(Span{Start: start, End: r.Pos()},
			"expected a number, got \"%s\"", s))
	}
	return Value(n)
}

func (Number) Emit(v interface{}) (string, error) {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	default:
		return "", &EmitError{Want: "number", Got: v}
	}
}

// List parses comma-separated elements, optionally bracketed, with
// whitespace tolerated around commas and brackets.  Each element is
// parsed with Elem, recursively.
//
// Element parsers see the raw reader, so an element parser that
// consumes arbitrary runes swallows the commas and brackets too.  In
// particular, string elements must be quoted: `["a", 'b c']` works,
// `[a, b]` does not.
type List struct {
	Elem Parser
}

func (p *List) Parse(ctx context.Context, r *Reader) *Result {
	r.SkipSpace()

	bracketed := r.Current() == '['
	if bracketed {
		r.Next(1)
	}

	acc := make([]interface{}, 0, 4)
	for {
		r.SkipSpace()
		if bracketed && r.Current() == ']' {
			r.Next(1)
			break
		}
		if r.Exhausted() {
			if bracketed {
				return Fail(Errorf(Span{Start: r.Pos(), End: r.Pos()},
					`expected "]"`))
			}
			break
		}

		res := p.Elem.Parse(ctx, r)
		if !res.Pending() && !res.Ok() {
			return res
		}
		if res.Pending() {
			// A list of pending elements would need its own
			// join.  The standard element parsers are all
			// synchronous, so reject rather than half-support.
			return Fault(ErrPendingListElement)
		}
		acc = append(acc, res.Value())

		r.SkipSpace()
		if r.Current() == ',' {
			r.Next(1)
			continue
		}
		if bracketed {
			continue
		}
		break
	}

	return Value(acc)
}

func (p *List) Emit(v interface{}) (string, error) {
	xs, is := v.([]interface{})
	if !is {
		return "", &EmitError{Want: "list", Got: v}
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		s, err := p.Elem.Emit(x)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

// durationUnits maps a unit suffix to its length in milliseconds.
// "M" is a 30-day month and "y" a 365-day year.
var durationUnits = map[string]int64{
	"ms": 1,
	"s":  1000,
	"m":  60 * 1000,
	"h":  60 * 60 * 1000,
	"d":  24 * 60 * 60 * 1000,
	"M":  30 * 24 * 60 * 60 * 1000,
	"y":  365 * 24 * 60 * 60 * 1000,
}

// durationEmitOrder lists units longest first for Emit.
var durationEmitOrder = []string{"y", "M", "d", "h", "m", "s", "ms"}

// Duration parses a sequence of <number><unit> pairs summed into a
// time.Duration.  An unrecognized unit is a parse error spanning the
// unit text.  A zero or unparseable leading number short-circuits to
// a zero duration without error.
type Duration struct{}

func (Duration) Parse(ctx context.Context, r *Reader) *Result {
	r.SkipSpace()

	var total int64
	for !r.Exhausted() && !IsSpace(r.Current()) {
		ns := r.Collect(func(c rune) bool {
			return '0' <= c && c <= '9' || c == '.'
		}, nil)
		n, err := strconv.ParseFloat(ns, 64)
		if err != nil || n == 0 {
			return Value(time.Duration(0))
		}

		ustart := r.Pos()
		unit := r.Collect(func(c rune) bool {
			return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
		}, nil)
		ms, have := durationUnits[unit]
		if !have {
			return Fail(Errorf(Span{Start: ustart, End: r.Pos()},
				`unknown duration unit "%s"`, unit))
		}
		total += int64(n * float64(ms))
	}

	return Value(time.Duration(total) * time.Millisecond)
}

func (Duration) Emit(v interface{}) (string, error) {
	d, is := v.(time.Duration)
	if !is {
		return "", &EmitError{Want: "duration", Got: v}
	}
	ms := d.Milliseconds()
	if ms == 0 {
		return "0s", nil
	}
	var b strings.Builder
	for _, unit := range durationEmitOrder {
		size := durationUnits[unit]
		if n := ms / size; 0 < n {
			b.WriteString(strconv.FormatInt(n, 10))
			b.WriteString(unit)
			ms -= n * size
		}
	}
	return b.String(), nil
}
