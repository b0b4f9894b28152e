package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/askiada/go-cellflow/pkg/pipeline/model"
)

func createInputStep(t *testing.T, total int) *model.Step[int] {
	t.Helper()

	inputChan := make(chan int)

	go func() {
		defer close(inputChan)

		for i := range total {
			inputChan <- i
		}
	}()

	return &model.Step[int]{Output: inputChan}
}

func closedStep[I any](values ...I) *model.Step[I] {
	inputChan := make(chan I, len(values))
	for _, v := range values {
		inputChan <- v
	}

	close(inputChan)

	return &model.Step[I]{Output: inputChan}
}

func processOutputChan[O any](t *testing.T, output <-chan O) []O {
	t.Helper()

	res := []O{}

	for out := range output {
		res = append(res, out)
	}

	return res
}

func runAsync(t *testing.T, run func() error) <-chan error {
	t.Helper()

	errC := make(chan error, 1)

	go func() {
		errC <- run()
	}()

	return errC
}

func waitErr(t *testing.T, errC <-chan error) error {
	t.Helper()

	select {
	case err := <-errC:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	return nil
}

func blockingRoot[O any](ctx context.Context, _ chan<- O) error {
	<-ctx.Done()

	return ctx.Err()
}
