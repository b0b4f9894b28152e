package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

// Pipeline is a pipeline of steps.
type Pipeline struct {
	ctx       context.Context
	cancel    context.CancelFunc
	clock     clock.Clock
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
	wg        sync.WaitGroup
}

// New creates a new pipeline. Every step of the pipeline stops as soon as ctx is done.
func New(ctx context.Context, opts ...Option) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		clock:     clock.New(),
		errcList:  &errorChans{},
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(pipe)
	}

	for _, opt := range pipe.opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline waits for results from all error channels.
// It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

// Run starts the pipeline and waits for it to finish.
// On the first error every other step is cancelled. Run only returns once all the steps
// have returned. A pipeline stopped by its context or by Cancel returns nil.
func (p *Pipeline) Run() error {
	defer p.cancel()

	p.wg.Add(len(p.goFn))

	for _, fn := range p.goFn {
		go func() {
			defer p.wg.Done()
			fn(p.ctx)
		}()
	}

	err := waitForPipeline(p.errcList.list...)
	stopped := p.ctx.Err() != nil

	p.cancel()
	p.wg.Wait()

	if err != nil && !(stopped && isContextError(err)) {
		return err
	}

	return p.finishRun()
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Cancel stops every step of the pipeline.
func (p *Pipeline) Cancel() {
	p.cancel()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}

// register adds a step goroutine to the pipeline. The goroutine starts when the pipeline runs.
func (p *Pipeline) register(name string, errC chan error, fn func(ctx context.Context)) {
	p.goFn = append(p.goFn, fn)
	p.errcList.add(newErrorChan(name, errC))
}
