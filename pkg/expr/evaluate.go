// Package expr validates and evaluates the conditions of the if and unless
// helpers.
//
// An expression is checked by Validate first, then parsed into an operator
// tree and evaluated with JavaScript value semantics. Paths in an expression
// are looked up on the frame, so scope jumps work:
//
//	numbers.length > 0 && ~settings.debug
//	:kind === 'folder' || !@index
//
// Function calls, indexing, object literals and assignment are rejected by
// Validate and cannot be written in the grammar either.
package expr

import (
	"sync"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Evaluator evaluates conditions. The zero value is ready to use.
type Evaluator struct {
	// Report, when set, receives expressions that passed validation but
	// failed to parse or evaluate. Such expressions are false.
	Report func(err *perrors.TemplateError)

	cache sync.Map // string -> Node
}

// Evaluate validates expression and evaluates it against c.
//
// A validation failure is returned as an error. A failure to parse or
// evaluate an expression that passed validation is not: the result is
// false and the failure goes to Report.
func (e *Evaluator) Evaluate(c *mustache.Context, expression string) (bool, error) {
	if err := Validate(expression); err != nil {
		return false, err
	}

	n, err := e.compile(expression)
	if err == nil {
		var v any
		if v, err = Eval(n, c); err == nil {
			return truthy(v), nil
		}
	}
	if e.Report != nil {
		e.Report(perrors.New("EVAL-0001", map[string]any{
			"Expression": expression,
			"Reason":     err.Error(),
		}))
	}
	return false, nil
}

func (e *Evaluator) compile(expression string) (Node, error) {
	if n, ok := e.cache.Load(expression); ok {
		return n.(Node), nil
	}
	n, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	e.cache.Store(expression, n)
	return n, nil
}

var std Evaluator

// Evaluate evaluates expression against c without failure reporting.
func Evaluate(c *mustache.Context, expression string) (bool, error) {
	return std.Evaluate(c, expression)
}
