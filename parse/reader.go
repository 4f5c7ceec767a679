// Package parse implements the cursor-based text scanner and the
// parser protocol used by the command dispatcher.
//
// A Reader scans a line of input with an explicit cursor and a stack
// of checkpoints for backtracking.  A Parser consumes input from a
// Reader and produces a Result, which is either settled (a value or
// an error) or pending (backed by an asynchronous resolution).
package parse

// EOS is the end-of-stream sentinel.  Reading past either end of the
// input yields EOS rather than an out-of-range fault.
const EOS = rune(-1)

// Reader is a cursor over a line of input.
//
// The cursor always satisfies 0 <= pos <= len(text).  A position of
// len(text) means the reader is exhausted.
type Reader struct {
	text  []rune
	pos   int
	marks []int
}

// NewReader makes a Reader over the given text with the cursor at 0.
func NewReader(text string) *Reader {
	return &Reader{
		text:  []rune(text),
		marks: make([]int, 0, 4),
	}
}

// Text returns the complete input.
func (r *Reader) Text() string {
	return string(r.text)
}

// Pos returns the current cursor position (in runes).
func (r *Reader) Pos() int {
	return r.pos
}

// Exhausted reports whether the cursor is at the end of the input.
func (r *Reader) Exhausted() bool {
	return r.pos >= len(r.text)
}

// Current returns the rune under the cursor or EOS.
func (r *Reader) Current() rune {
	if r.pos < 0 || r.pos >= len(r.text) {
		return EOS
	}
	return r.text[r.pos]
}

// Peek returns the rune n positions past the cursor (without moving
// it) or EOS.
func (r *Reader) Peek(n int) rune {
	at := r.pos + n
	if at < 0 || at >= len(r.text) {
		return EOS
	}
	return r.text[at]
}

// Next advances the cursor n runes (clamped to the end) and returns
// the rune then under the cursor.  Advancing an exhausted reader
// returns EOS.
func (r *Reader) Next(n int) rune {
	r.pos += n
	if r.pos > len(r.text) {
		r.pos = len(r.text)
	}
	return r.Current()
}

// Back moves the cursor n runes toward the start (clamped) and
// returns the rune then under the cursor.
func (r *Reader) Back(n int) rune {
	r.pos -= n
	if r.pos < 0 {
		r.pos = 0
	}
	return r.Current()
}

// PushIndex saves the current cursor position on the checkpoint
// stack.  Checkpoints nest: speculative parses can push as deep as
// they recurse.  Every PushIndex must be balanced by a Restore or a
// PopIndex.
func (r *Reader) PushIndex() {
	r.marks = append(r.marks, r.pos)
}

// Restore pops the top checkpoint and moves the cursor back to it.
func (r *Reader) Restore() {
	if n := len(r.marks); 0 < n {
		r.pos = r.marks[n-1]
		r.marks = r.marks[:n-1]
	}
}

// PopIndex pops the top checkpoint without moving the cursor.  Used
// when a speculative parse succeeds.
func (r *Reader) PopIndex() {
	if n := len(r.marks); 0 < n {
		r.marks = r.marks[:n-1]
	}
}

// Collect accumulates runes while pred holds, skipping (consuming but
// not accumulating) runes matched by skip.  Collection stops at EOS
// or at the first rune matching neither predicate; that rune is not
// consumed.  skip may be nil.
func (r *Reader) Collect(pred func(rune) bool, skip func(rune) bool) string {
	acc := make([]rune, 0, 16)
	for {
		c := r.Current()
		if c == EOS {
			break
		}
		if skip != nil && skip(c) {
			r.Next(1)
			continue
		}
		if !pred(c) {
			break
		}
		acc = append(acc, c)
		r.Next(1)
	}
	return string(acc)
}

// Expect consumes exactly the given literal or fails with a parse
// error whose span covers the attempted text.
func (r *Reader) Expect(literal string) error {
	start := r.pos
	for _, c := range literal {
		if r.Current() != c {
			return &Error{
				Message: `expected "` + literal + `"`,
				Span:    Span{Start: start, End: r.pos + 1},
			}
		}
		r.Next(1)
	}
	return nil
}

// SkipSpace consumes any leading whitespace.
func (r *Reader) SkipSpace() {
	for IsSpace(r.Current()) {
		r.Next(1)
	}
}

// Rest returns the unconsumed input without moving the cursor.
func (r *Reader) Rest() string {
	if r.Exhausted() {
		return ""
	}
	return string(r.text[r.pos:])
}

// IsSpace reports whether c is horizontal whitespace.  EOS is not
// whitespace.
func IsSpace(c rune) bool {
	return c == ' ' || c == '\t'
}
