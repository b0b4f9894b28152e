package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

// filterFn transforms an input into an output. The output is pushed only when keep is true.
type filterFn[I, O any] func(ctx context.Context, input I) (output O, keep bool, err error)

func sequentialOneToOneFn[I any, O any](
	ctx context.Context, pipe *Pipeline, goIdx int, input *model.Step[I], output *model.Step[O], fn filterFn[I, O],
) error {
	for {
		startIter := time.Now()
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			// the context may be done while we were waiting for the input
			if ctx.Err() != nil {
				return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
			}

			startFn := time.Now()
			out, keep, err := fn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "go routine %d", goIdx)
			}
			endFn := time.Since(startFn)

			if !keep {
				continue
			}

			// we check the context again to make sure all go routines currently running
			// stop to add new elements to the pipeline
			select {
			case <-ctx.Done():
				return errors.Wrapf(ctx.Err(), "go routine %d", goIdx)
			case output.Output <- out:
				err := onStepOutput(pipe, input.Details, output.Details, time.Since(startIter)-endFn, endFn)
				if err != nil {
					return errors.Wrapf(err, "go routine %d", goIdx)
				}
			}
		}
	}
}

func concurrentOneToOneFn[I any, O any](
	ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], fn filterFn[I, O],
) error {
	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(output.Details.Concurrent)
	// starts many consumers concurrently
	// each consumer stops as soon as an error happens
	for goIdx := range output.Details.Concurrent {
		errGrp.Go(func() error {
			return sequentialOneToOneFn(dCtx, pipe, goIdx, input, output, fn)
		})
	}

	return errGrp.Wait()
}

func runOneToOne[I any, O any](
	ctx context.Context, pipe *Pipeline, input *model.Step[I], output *model.Step[O], fn filterFn[I, O],
) error {
	if output.Details.Concurrent <= 1 {
		output.Details.Concurrent = 1

		return sequentialOneToOneFn(ctx, pipe, 0, input, output, fn)
	}

	return concurrentOneToOneFn(ctx, pipe, input, output, fn)
}

func onStepOutput(pipe *Pipeline, parent, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	if pipe == nil {
		return nil
	}

	for _, opt := range pipe.opts {
		err := opt.OnStepOutput(parent, step, iterationDuration, computationDuration)
		if err != nil {
			return errors.Wrap(err, "unable to run on step output function")
		}
	}

	return nil
}

func prepareStep[I, O any](
	pipe *Pipeline, name string, stepType model.StepInfo, input *model.Step[I], opts ...StepOption[O],
) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	details := stepType
	details.Name = name

	step := &model.Step[O]{
		Details: &details,
		Output:  make(chan O),
	}

	for _, opt := range opts {
		opt(step)
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(detailsOf(input), step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before step function")
		}
	}

	return step, nil
}

func addStep[I any, O any](
	pipe *Pipeline, input *model.Step[I], step *model.Step[O], fn filterFn[I, O],
) *model.Step[O] {
	errC := make(chan error, 1)

	pipe.register(step.Details.Name, errC, func(ctx context.Context) {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := runOneToOne(ctx, pipe, input, step, fn)
		if err != nil {
			errC <- err
		}
	})

	return step
}

// AddStepOneToOne adds a step that pushes exactly one output for every input.
func AddStepOneToOne[I any, O any](
	pipe *Pipeline, name string, input *model.Step[I], oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	step, err := prepareStep[I, O](pipe, name, model.StepInfo{Type: model.NormalStepType}, input, opts...)
	if err != nil {
		return nil, err
	}

	return addStep(pipe, input, step, func(ctx context.Context, in I) (O, bool, error) {
		out, err := oneToOneFn(ctx, in)

		return out, true, err
	}), nil
}

// AddStepFilter adds a step that pushes an output only when filterFn returns keep as true.
// An error stops the pipeline; inputs to skip must be reported with keep set to false.
func AddStepFilter[I any, O any](
	pipe *Pipeline, name string, input *model.Step[I], filterFn func(context.Context, I) (O, bool, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	step, err := prepareStep[I, O](pipe, name, model.StepInfo{Type: model.FilterStepType}, input, opts...)
	if err != nil {
		return nil, err
	}

	return addStep(pipe, input, step, filterFn), nil
}

func detailsOf[I any](step *model.Step[I]) *model.StepInfo {
	if step.Details == nil {
		return model.StartStep.Details
	}

	return step.Details
}
