package cell

import (
	"context"
	"log/slog"

	"github.com/askiada/go-cellflow/pkg/bus"
)

// Source tells why an evaluation was triggered.
type Source int

const (
	// SourceFormula is a debounced formula edit.
	SourceFormula Source = iota + 1
	// SourceDependency is an update of a referenced cell.
	SourceDependency
)

func (s Source) String() string {
	switch s {
	case SourceFormula:
		return "formula"
	case SourceDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// Trigger requests the evaluation of Formula.
type Trigger struct {
	Source  Source
	Formula string
	// Cause is the updated cell for a dependency trigger.
	Cause string
}

// formulaState is the latest formula of a cell and the cells it references.
type formulaState struct {
	formula string
	refs    References
}

// dependencyTrigger keeps the updates of the cells referenced by the current formula.
func (c *Cell[V]) dependencyTrigger(_ context.Context, update bus.Update[V]) (Trigger, bool, error) {
	id := NormalizeID(update.ID)
	if id == c.id {
		return Trigger{}, false, nil
	}

	state := c.state.Load()
	if state == nil || !state.refs.Has(id) {
		c.logger.Debug("update dropped", slog.String("update", id))

		return Trigger{}, false, nil
	}

	return Trigger{Source: SourceDependency, Formula: state.formula, Cause: id}, true, nil
}

// evaluate runs the evaluator. Failures are reported and dropped.
func (c *Cell[V]) evaluate(ctx context.Context, trigger Trigger) (V, bool, error) {
	var zero V

	c.logger.Debug("evaluating",
		slog.String("source", trigger.Source.String()),
		slog.String("formula", trigger.Formula),
		slog.String("cause", trigger.Cause),
	)

	value, err := c.evaluator.Evaluate(ctx, trigger.Formula)
	if ctx.Err() != nil {
		// the cell is being closed, the result is discarded
		return zero, false, nil
	}

	if err != nil {
		evalErr := &EvaluationError{Cell: c.id, Formula: trigger.Formula, Err: err}
		c.setErr(evalErr)
		c.logger.Warn("evaluation failed", slog.String("formula", trigger.Formula), slog.Any("error", err))

		if c.onError != nil {
			c.onError(evalErr)
		}

		return zero, false, nil
	}

	c.setErr(nil)

	return value, true, nil
}

// distinct forwards a value only when it differs from the previously forwarded one. The
// returned function keeps its own state and must be used by a single goroutine.
func distinct[V any](equal func(a, b V) bool, logger *slog.Logger) func(context.Context, V) (V, bool, error) {
	var (
		last      V
		forwarded bool
	)

	return func(_ context.Context, value V) (V, bool, error) {
		if forwarded && equal(last, value) {
			logger.Debug("duplicate value suppressed")

			return value, false, nil
		}

		last = value
		forwarded = true

		return value, true, nil
	}
}
