package parse

import (
	"context"
	"encoding/json"
	"fmt"
)

// Parser consumes input from a Reader and produces a Result.
//
// Emit is the inverse: it renders a parsed value back to a string
// form.  Round-trip fidelity is only promised for the primitive
// parsers (string, number, list, duration); other parsers may return
// a debugging form.
type Parser interface {
	Parse(ctx context.Context, r *Reader) *Result
	Emit(v interface{}) (string, error)
}

// FuncParser wraps a pair of Go functions as a Parser.
type FuncParser struct {
	ParseFn func(ctx context.Context, r *Reader) *Result
	EmitFn  func(v interface{}) (string, error)
}

func (p *FuncParser) Parse(ctx context.Context, r *Reader) *Result {
	return p.ParseFn(ctx, r)
}

func (p *FuncParser) Emit(v interface{}) (string, error) {
	if p.EmitFn == nil {
		js, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), nil
		}
		return string(js), nil
	}
	return p.EmitFn(v)
}
