package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

func runDebounce[I any](
	ctx context.Context, pipe *Pipeline, input, output *model.Step[I], window time.Duration,
) error {
	var (
		pending  I
		timer    clock.Timer
		fire     <-chan time.Time
		out      chan<- I // set once the window of pending has elapsed
		received time.Time
	)

	stop := func() {
		if timer != nil {
			timer.Stop()
		}

		timer = nil
		fire = nil
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				// the pending element, if any, is discarded with its source
				return nil
			}

			// a newer input replaces an element still waiting for the output
			stop()

			out = nil
			pending = in
			received = time.Now()
			timer = pipe.clock.NewTimer(window)
			fire = timer.C()
		case <-fire:
			timer = nil
			fire = nil

			if ctx.Err() != nil {
				return ctx.Err()
			}

			out = output.Output
		case out <- pending:
			out = nil

			err := onStepOutput(pipe, detailsOf(input), output.Details, time.Since(received), 0)
			if err != nil {
				return err
			}

			var zero I
			pending = zero
		}
	}
}

// AddDebounce adds a trailing edge debounce step. An input is pushed to the output only once
// window has elapsed without any newer input; every input restarts the window. The input is
// read even while the output is blocked: a newer input replaces the element waiting to be
// sent and restarts the window. Closing the input or cancelling the pipeline discards the
// pending input.
func AddDebounce[I any](
	pipe *Pipeline, name string, input *model.Step[I], window time.Duration, opts ...StepOption[I],
) (*model.Step[I], error) {
	if window <= 0 {
		return nil, ErrDebounceWindow
	}

	step, err := prepareStep[I, I](pipe, name, model.StepInfo{Type: model.DebounceStepType, Concurrent: 1}, input, opts...)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)

	pipe.register(name, errC, func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := runDebounce(ctx, pipe, input, step, window)
		if err != nil {
			errC <- errors.Wrap(err, "debounce")
		}
	})

	return step, nil
}
