package cell

import (
	"log/slog"
	"time"

	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
	"github.com/askiada/go-cellflow/pkg/pipeline/measure"
	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

// DefaultDebounce is the quiet window applied to formula edits.
const DefaultDebounce = 400 * time.Millisecond

// Option configures a Cell.
type Option[V any] func(c *Cell[V])

// WithDebounce sets the quiet window applied to formula edits.
func WithDebounce[V any](window time.Duration) Option[V] {
	return func(c *Cell[V]) {
		c.debounce = window
	}
}

// WithLogger sets the logger of the cell. Logs are discarded by default.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(c *Cell[V]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock driving the debounce window.
func WithClock[V any](clk clock.Clock) Option[V] {
	return func(c *Cell[V]) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithOnError registers a function called with every *EvaluationError.
func WithOnError[V any](fn func(err error)) Option[V] {
	return func(c *Cell[V]) {
		c.onError = fn
	}
}

// WithOnValue registers a function called with every published value.
func WithOnValue[V any](fn func(value V)) Option[V] {
	return func(c *Cell[V]) {
		c.onValue = fn
	}
}

// WithOnReferences registers a function called whenever a formula edit changes the set of
// referenced cells. It is called from the stage receiving the edits, before the edit is
// debounced.
func WithOnReferences[V any](fn func(refs References)) Option[V] {
	return func(c *Cell[V]) {
		c.onReferences = fn
	}
}

// WithMeasure records the durations of every stage of the cell pipeline in msr.
func WithMeasure[V any](msr measure.Measure) Option[V] {
	return func(c *Cell[V]) {
		if msr != nil {
			c.pipeOpts = append(c.pipeOpts, measure.PipelineMeasure(msr))
		}
	}
}

// WithPipelineOptions registers options observing the cell pipeline, such as a drawer.
func WithPipelineOptions[V any](opts ...model.PipelineOption) Option[V] {
	return func(c *Cell[V]) {
		c.pipeOpts = append(c.pipeOpts, opts...)
	}
}
