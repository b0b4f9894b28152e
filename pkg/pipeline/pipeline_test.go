package pipeline_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cellflow/pkg/pipeline"
	"github.com/askiada/go-cellflow/pkg/pipeline/drawer"
	"github.com/askiada/go-cellflow/pkg/pipeline/measure"
)

func TestAddRootStep(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		failAt  int
		want    []int
		wantErr bool
	}{
		"all elements": {
			failAt: -1,
			want:   []int{0, 1, 2, 3, 4},
		},
		"error": {
			failAt:  3,
			want:    []int{0, 1, 2},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := pipeline.New(context.Background())
			require.NoError(t, err)

			root, err := pipeline.AddRootStep(pipe, "root", func(ctx context.Context, rootChan chan<- int) error {
				for i := range 5 {
					if i == tc.failAt {
						return assert.AnError
					}

					select {
					case <-ctx.Done():
						return ctx.Err()
					case rootChan <- i:
					}
				}

				return nil
			})
			require.NoError(t, err)

			var got []int

			done := make(chan struct{})

			go func() {
				got = processOutputChan(t, root.Output)
				close(done)
			}()

			err = pipe.Run()
			<-done

			if tc.wantErr {
				require.ErrorIs(t, err, assert.AnError)
				assert.Contains(t, err.Error(), "root")
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNilPipeline(t *testing.T) {
	t.Parallel()

	input := closedStep(1)

	_, err := pipeline.AddRootStep(nil, "root", blockingRoot[int])
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = pipeline.AddStepOneToOne(nil, "step", input, func(_ context.Context, in int) (int, error) {
		return in, nil
	})
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	_, err = pipeline.AddMerger(nil, "merger", input)
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)

	err = pipeline.AddSink(nil, "sink", input, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, pipeline.ErrPipelineMustBeSet)
}

func TestNilInput(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	_, err = pipeline.AddStepFilter(pipe, "filter", nil, func(_ context.Context, in int) (int, bool, error) {
		return in, true, nil
	})
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)

	err = pipeline.AddSink(pipe, "sink", nil, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, pipeline.ErrInputMustBeSet)
}

func TestAddStepOneToOne(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		concurrent int
	}{
		"sequential": {concurrent: 1},
		"concurrent": {concurrent: 4},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pipe, err := pipeline.New(context.Background())
			require.NoError(t, err)

			step, err := pipeline.AddStepOneToOne(pipe, "double", createInputStep(t, 10),
				func(_ context.Context, in int) (int, error) {
					return in * 2, nil
				},
				pipeline.StepConcurrency[int](tc.concurrent),
			)
			require.NoError(t, err)

			var got []int

			done := make(chan struct{})

			go func() {
				got = processOutputChan(t, step.Output)
				close(done)
			}()

			require.NoError(t, pipe.Run())
			<-done

			want := []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}
			if tc.concurrent == 1 {
				assert.Equal(t, want, got)
			} else {
				assert.ElementsMatch(t, want, got)
			}
		})
	}
}

func TestAddStepOneToOneError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step, err := pipeline.AddStepOneToOne(pipe, "fail", createInputStep(t, 10),
		func(_ context.Context, in int) (int, error) {
			if in == 5 {
				return 0, assert.AnError
			}

			return in, nil
		},
	)
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		_ = processOutputChan(t, step.Output)
		close(done)
	}()

	err = pipe.Run()
	<-done
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "fail")
}

func TestAddStepFilter(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	step, err := pipeline.AddStepFilter(pipe, "even", createInputStep(t, 10),
		func(_ context.Context, in int) (string, bool, error) {
			return string(rune('a' + in)), in%2 == 0, nil
		},
	)
	require.NoError(t, err)

	var got []string

	err = pipeline.AddSink(pipe, "collect", step, func(_ context.Context, in string) error {
		got = append(got, in)

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, []string{"a", "c", "e", "g", "i"}, got)
}

func TestAddSinkError(t *testing.T) {
	t.Parallel()

	pipe, err := pipeline.New(context.Background())
	require.NoError(t, err)

	calls := 0

	err = pipeline.AddSink(pipe, "publish", createInputStep(t, 10), func(_ context.Context, in int) error {
		calls++
		if in == 2 {
			return assert.AnError
		}

		return nil
	})
	require.NoError(t, err)

	err = pipe.Run()
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "publish")
	assert.Equal(t, 3, calls)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cancel func(pipe *pipeline.Pipeline, parent context.CancelFunc)
	}{
		"parent context": {
			cancel: func(_ *pipeline.Pipeline, parent context.CancelFunc) { parent() },
		},
		"pipeline": {
			cancel: func(pipe *pipeline.Pipeline, _ context.CancelFunc) { pipe.Cancel() },
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pipe, err := pipeline.New(ctx)
			require.NoError(t, err)

			root, err := pipeline.AddRootStep(pipe, "root", blockingRoot[int])
			require.NoError(t, err)

			sinkCalls := 0

			err = pipeline.AddSink(pipe, "sink", root, func(context.Context, int) error {
				sinkCalls++

				return nil
			})
			require.NoError(t, err)

			errC := runAsync(t, pipe.Run)

			tc.cancel(pipe, cancel)

			require.NoError(t, waitErr(t, errC))
			assert.Equal(t, 0, sinkCalls)
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	msr := measure.NewDefaultMeasure()

	pipe, err := pipeline.New(context.Background(), pipeline.WithOptions(
		measure.PipelineMeasure(msr),
		drawer.PipelineDrawer(drawer.NewDOTWriterDrawer(&buf), msr),
	))
	require.NoError(t, err)

	root, err := pipeline.AddRootStep(pipe, "numbers", func(ctx context.Context, rootChan chan<- int) error {
		for i := range 4 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rootChan <- i:
			}
		}

		return nil
	})
	require.NoError(t, err)

	step, err := pipeline.AddStepOneToOne(pipe, "square", root, func(_ context.Context, in int) (int, error) {
		return in * in, nil
	})
	require.NoError(t, err)

	total := 0

	err = pipeline.AddSink(pipe, "sum", step, func(_ context.Context, in int) error {
		total += in

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pipe.Run())
	assert.Equal(t, 14, total)

	metrics := msr.AllMetrics()
	require.Contains(t, metrics, "square")
	require.Contains(t, metrics, "sum")
	assert.Equal(t, int64(4), metrics["square"].Count())
	assert.Equal(t, int64(4), metrics["sum"].Count())
	assert.Positive(t, metrics["sum"].GetTotalDuration())

	out := buf.String()
	assert.Contains(t, out, `"start" -> "numbers"`)
	assert.Contains(t, out, `"numbers" -> "square"`)
	assert.Contains(t, out, `"square" -> "sum"`)
	assert.Contains(t, out, `"sum" -> "end"`)
}
