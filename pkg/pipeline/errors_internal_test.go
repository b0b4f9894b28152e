package pipeline

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorChans(t *testing.T) {
	t.Parallel()

	ecs := errorChans{}
	ec1 := &errorChan{}
	ec2 := &errorChan{}
	doneChan := make(chan struct{}, 2)

	go func() {
		ecs.add(ec1)

		doneChan <- struct{}{}
	}()

	go func() {
		ecs.add(ec2)

		doneChan <- struct{}{}
	}()

	<-doneChan
	<-doneChan
	assert.ElementsMatch(t, []*errorChan{ec1, ec2}, ecs.list)
}

var (
	errEvaluate = errors.New("evaluate failed")
	errPublish  = errors.New("publish failed")
)

func TestMergeErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		errs     map[string][]error
		wantErrs []error
	}{
		"no channel": {
			errs: map[string][]error{"evaluate": nil, "publish": nil},
		},
		"one channel": {
			errs:     map[string][]error{"evaluate": nil, "publish": {errPublish}},
			wantErrs: []error{errPublish},
		},
		"both channels": {
			errs:     map[string][]error{"evaluate": {errEvaluate}, "publish": {errPublish}},
			wantErrs: []error{errEvaluate, errPublish},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ecs := []*errorChan{}

			for stepName, errs := range tc.errs {
				if errs == nil {
					ecs = append(ecs, newErrorChan(stepName, nil))

					continue
				}

				c := make(chan error)

				go func() {
					defer close(c)

					for _, err := range errs {
						c <- err
					}
				}()

				ecs = append(ecs, newErrorChan(stepName, c))
			}

			gotErrs := []error{}
			for err := range mergeErrors(ecs...) {
				gotErrs = append(gotErrs, err)
			}

			// wrapped with the step name, sorted by it
			sort.Slice(gotErrs, func(i, j int) bool {
				return gotErrs[i].Error() < gotErrs[j].Error()
			})

			require.Len(t, gotErrs, len(tc.wantErrs))

			for i, want := range tc.wantErrs {
				require.ErrorIs(t, gotErrs[i], want)
			}
		})
	}
}
