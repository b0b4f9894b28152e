// Package formula evaluates spreadsheet formulas.
//
// A text starting with "=" is a formula made of numbers, strings, booleans, cell references,
// ranges, the operators + - * / ^ & % = <> < > <= >= and the functions SUM, MIN, MAX, AVERAGE,
// CONCAT and IF. Any other text is a literal.
package formula

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Evaluator evaluates formulas reading the referenced cells with a Lookup.
type Evaluator struct {
	lookup Lookup
}

// NewEvaluator creates an evaluator. A nil lookup makes every cell empty.
func NewEvaluator(lookup Lookup) *Evaluator {
	return &Evaluator{lookup: lookup}
}

// Evaluate computes the value of a cell content.
func (e *Evaluator) Evaluate(ctx context.Context, formula string) (Value, error) {
	if ctx.Err() != nil {
		return Value{}, ctx.Err()
	}

	if !strings.HasPrefix(strings.TrimSpace(formula), "=") {
		return Literal(formula), nil
	}

	root, err := parse(strings.TrimSpace(formula))
	if err != nil {
		return Value{}, errors.Wrapf(err, "unable to parse %q", formula)
	}

	ev := &evaluation{lookup: e.lookup}

	value, err := ev.eval(root)
	if err != nil {
		return Value{}, errors.Wrapf(err, "unable to evaluate %q", formula)
	}

	return value, nil
}
