package cell

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/pkg/bus"
	"github.com/askiada/go-cellflow/pkg/pipeline"
	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

// Cell is the reactive evaluation pipeline of a single cell.
type Cell[V any] struct {
	id        string
	edits     <-chan string
	bus       bus.Bus[V]
	evaluator Evaluator[V]
	equal     func(a, b V) bool

	debounce     time.Duration
	clock        clock.Clock
	logger       *slog.Logger
	onError      func(err error)
	onValue      func(value V)
	onReferences func(refs References)
	pipeOpts     []model.PipelineOption

	// state is only written by the formula-edits stage.
	state   atomic.Pointer[formulaState]
	running atomic.Bool

	mu       sync.Mutex
	value    V
	hasValue bool
	err      error
	closed   bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a cell whose values are compared with ==.
// The cell evaluates the formulas received on edits and publishes its values on b.
func New[V comparable](id string, edits <-chan string, b bus.Bus[V], evaluator Evaluator[V], opts ...Option[V]) (*Cell[V], error) {
	return NewWithEqual(id, edits, b, evaluator, func(x, y V) bool { return x == y }, opts...)
}

// NewWithEqual creates a cell whose values are compared with equal.
func NewWithEqual[V any](
	id string, edits <-chan string, b bus.Bus[V], evaluator Evaluator[V], equal func(a, b V) bool, opts ...Option[V],
) (*Cell[V], error) {
	c := &Cell[V]{
		id:        NormalizeID(id),
		edits:     edits,
		bus:       b,
		evaluator: evaluator,
		equal:     equal,
		debounce:  DefaultDebounce,
		clock:     clock.New(),
		logger:    slog.New(slog.DiscardHandler),
	}

	switch {
	case c.id == "":
		return nil, ErrIDMustBeSet
	case edits == nil:
		return nil, ErrEditsMustBeSet
	case b == nil:
		return nil, ErrBusMustBeSet
	case evaluator == nil:
		return nil, ErrEvaluatorMustBeSet
	case equal == nil:
		return nil, ErrEqualMustBeSet
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.debounce <= 0 {
		return nil, errors.Wrapf(pipeline.ErrDebounceWindow, "cell %s", c.id)
	}

	c.logger = c.logger.With(slog.String("cell", c.id))

	return c, nil
}

// ID returns the normalised identifier of the cell.
func (c *Cell[V]) ID() string {
	return c.id
}

// Run evaluates the cell until ctx is done, Close is called or the edits channel is closed.
// It returns nil in all these cases, and an error when the cell can no longer publish.
// A cell can only run once.
func (c *Cell[V]) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	pipe, err := c.build(ctx)
	if err != nil {
		return errors.Wrapf(err, "unable to build pipeline of cell %s", c.id)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		pipe.Cancel()

		return nil
	}

	c.cancel = pipe.Cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	defer close(c.done)

	c.logger.Info("cell started", slog.Duration("debounce", c.debounce))

	err = pipe.Run()
	if err != nil {
		c.logger.Error("cell stopped", slog.Any("error", err))

		return errors.Wrapf(err, "cell %s", c.id)
	}

	c.logger.Info("cell stopped")

	return nil
}

// Close stops the cell and waits for its pipeline to be torn down. Once Close returns the
// evaluator is no longer called and nothing is published. Close must not be called from the
// hooks of the cell.
func (c *Cell[V]) Close() {
	c.mu.Lock()
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Value returns the last published value. ok is false until a value is published.
func (c *Cell[V]) Value() (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.value, c.hasValue
}

// Err returns the error of the latest evaluation, nil if it succeeded.
func (c *Cell[V]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Formula returns the latest formula received, even if it is not evaluated yet.
func (c *Cell[V]) Formula() string {
	state := c.state.Load()
	if state == nil {
		return ""
	}

	return state.formula
}

// References returns the cells referenced by the latest formula received.
func (c *Cell[V]) References() References {
	state := c.state.Load()
	if state == nil {
		return References{}
	}

	return state.refs
}

func (c *Cell[V]) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.err = err
}

func (c *Cell[V]) setValue(value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.hasValue = true
}

// setFormula replaces the formula and its references.
func (c *Cell[V]) setFormula(formula string) {
	refs := ExtractReferences(formula)

	prev := c.state.Swap(&formulaState{formula: formula, refs: refs})
	if prev != nil && prev.refs.Equal(refs) {
		return
	}

	c.logger.Debug("references changed", slog.Any("references", refs.Sorted()))

	if c.onReferences != nil {
		c.onReferences(refs)
	}
}

func (c *Cell[V]) build(ctx context.Context) (*pipeline.Pipeline, error) {
	pipe, err := pipeline.New(ctx, pipeline.WithClock(c.clock), pipeline.WithOptions(c.pipeOpts...))
	if err != nil {
		return nil, err
	}

	edits, err := pipeline.AddRootStep(pipe, "formula-edits", func(ctx context.Context, out chan<- Trigger) error {
		return c.receiveEdits(ctx, pipe, out)
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add formula edits")
	}

	debounced, err := pipeline.AddDebounce(pipe, "formula-debounce", edits, c.debounce)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add formula debounce")
	}

	updates, err := pipeline.AddRootStep(pipe, "cell-updates", c.receiveUpdates)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add cell updates")
	}

	dependencies, err := pipeline.AddStepFilter(pipe, "dependency-trigger", updates, c.dependencyTrigger)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add dependency trigger")
	}

	// dependency events win the ties with debounced edits
	triggers, err := pipeline.AddMerger(pipe, "triggers", dependencies, debounced)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add triggers")
	}

	values, err := pipeline.AddStepFilter(pipe, "evaluate", triggers, c.evaluate)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add evaluate")
	}

	distinctValues, err := pipeline.AddStepFilter(pipe, "distinct", values, distinct(c.equal, c.logger))
	if err != nil {
		return nil, errors.Wrap(err, "unable to add distinct")
	}

	err = pipeline.AddSink(pipe, "publish", distinctValues, c.publish)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add publish")
	}

	return pipe, nil
}

// receiveEdits updates the references as soon as an edit is received. Closing the edits
// stops the whole cell.
func (c *Cell[V]) receiveEdits(ctx context.Context, pipe *pipeline.Pipeline, out chan<- Trigger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case formula, ok := <-c.edits:
			if !ok {
				c.logger.Debug("formula edits closed")
				pipe.Cancel()

				return nil
			}

			c.setFormula(formula)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- Trigger{Source: SourceFormula, Formula: formula}:
			}
		}
	}
}

// receiveUpdates forwards the bus updates. The subscription is released when it returns.
func (c *Cell[V]) receiveUpdates(ctx context.Context, out chan<- bus.Update[V]) error {
	updates, unsubscribe := c.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- update:
			}
		}
	}
}

func (c *Cell[V]) publish(ctx context.Context, value V) error {
	err := c.bus.Publish(ctx, bus.Update[V]{ID: c.id, Value: value})
	if err != nil {
		return errors.Wrap(err, "unable to publish value")
	}

	c.setValue(value)
	c.logger.Debug("value published", slog.Any("value", value))

	if c.onValue != nil {
		c.onValue(value)
	}

	return nil
}
