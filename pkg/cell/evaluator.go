package cell

import "context"

// Evaluator computes the value of a formula. It may read the current value of other cells.
type Evaluator[V any] interface {
	Evaluate(ctx context.Context, formula string) (V, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc[V any] func(ctx context.Context, formula string) (V, error)

func (f EvaluatorFunc[V]) Evaluate(ctx context.Context, formula string) (V, error) {
	return f(ctx, formula)
}
