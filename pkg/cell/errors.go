package cell

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrIDMustBeSet        = errors.New("cell id must be set")
	ErrEvaluatorMustBeSet = errors.New("evaluator must be set")
	ErrBusMustBeSet       = errors.New("bus must be set")
	ErrEditsMustBeSet     = errors.New("formula edits must be set")
	ErrEqualMustBeSet     = errors.New("equal function must be set")
	ErrAlreadyRunning     = errors.New("cell is already running")
)

// EvaluationError is reported when the evaluator fails. It never stops the cell.
type EvaluationError struct {
	Cell    string
	Formula string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("unable to evaluate cell %s with formula %q: %v", e.Cell, e.Formula, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
