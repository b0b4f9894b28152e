package pipeline

import (
	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithOptions registers pipeline options (measure, drawer...) whose hooks run while the
// pipeline is built and while it runs.
func WithOptions(opts ...model.PipelineOption) Option {
	return func(p *Pipeline) {
		p.opts = append(p.opts, opts...)
	}
}

// WithClock sets the clock used by time based steps.
func WithClock(clk clock.Clock) Option {
	return func(p *Pipeline) {
		if clk != nil {
			p.clock = clk
		}
	}
}

// StepOption configures a step.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets how many goroutines process the input of a step. Output order is only
// preserved with a concurrency of 1, the default.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}
