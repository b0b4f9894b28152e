package pipeline

import (
	"context"
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

func prepareMerger[I any](pipe *Pipeline, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	outputStep := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.MergerStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan I),
	}

	stepInfos := make([]*model.StepInfo, len(steps))
	for i, step := range steps {
		stepInfos[i] = detailsOf(step)
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareMerger(stepInfos, outputStep.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run before merger function")
		}
	}

	return outputStep, nil
}

// pollInOrder returns the first element ready on inputs, looking at them in order.
func pollInOrder[I any](inputs []<-chan I) (idx int, entry I, open, received bool) {
	for i, in := range inputs {
		if in == nil {
			continue
		}

		select {
		case entry, open = <-in:
			return i, entry, open, true
		default:
		}
	}

	return 0, entry, false, false
}

func runStepMerger[I any](ctx context.Context, pipe *Pipeline, steps []*model.Step[I], outputStep *model.Step[I]) error {
	inputs := make([]<-chan I, len(steps))
	cases := make([]reflect.SelectCase, len(steps)+1)
	cases[0] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())}

	for i, step := range steps {
		inputs[i] = step.Output
		cases[i+1] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(step.Output)}
	}

	for remaining := len(steps); remaining > 0; {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		startIter := time.Now()

		idx, entry, open, received := pollInOrder(inputs)
		if !received {
			chosen, value, recvOK := reflect.Select(cases)
			if chosen == 0 {
				return ctx.Err()
			}

			idx, open = chosen-1, recvOK
			if v, isI := value.Interface().(I); recvOK && isI {
				entry = v
			}
		}

		if !open {
			inputs[idx] = nil
			cases[idx+1].Chan = reflect.Value{}
			remaining--

			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case outputStep.Output <- entry:
			for _, opt := range pipe.opts {
				err := opt.OnMergerOutput(detailsOf(steps[idx]), outputStep.Details, time.Since(startIter))
				if err != nil {
					return errors.Wrap(err, "unable to run on merger output function")
				}
			}
		}
	}

	return nil
}

// AddMerger adds a merger step to the pipeline. It merges the output of the steps into a single
// channel, preserving the arrival order. When several steps have an element ready at the same
// time, the step listed first wins.
// The output is closed once every step output is closed.
func AddMerger[I any](pipe *Pipeline, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if len(steps) == 0 {
		return nil, ErrMergerInputs
	}

	for _, step := range steps {
		if step == nil {
			return nil, ErrInputMustBeSet
		}
	}

	outputStep, err := prepareMerger(pipe, name, steps...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to prepare merger")
	}

	errC := make(chan error, 1)

	pipe.register(name, errC, func(ctx context.Context) {
		defer func() {
			close(outputStep.Output)
			close(errC)
		}()

		err := runStepMerger(ctx, pipe, steps, outputStep)
		if err != nil {
			errC <- err
		}
	})

	return outputStep, nil
}
