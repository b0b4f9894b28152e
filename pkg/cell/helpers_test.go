package cell_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-cellflow/pkg/bus"
	"github.com/askiada/go-cellflow/pkg/cell"
	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
)

const (
	window  = cell.DefaultDebounce
	waitFor = 5 * time.Second
	tick    = time.Millisecond
	quiet   = 50 * time.Millisecond
)

// recorder is an evaluator recording the formulas it is called with. It upper-cases the
// formula unless fn is set.
type recorder struct {
	mu       sync.Mutex
	formulas []string
	fn       func(ctx context.Context, formula string) (string, error)
}

func (r *recorder) Evaluate(ctx context.Context, formula string) (string, error) {
	r.mu.Lock()
	r.formulas = append(r.formulas, formula)
	fn := r.fn
	r.mu.Unlock()

	if fn == nil {
		return strings.ToUpper(formula), nil
	}

	return fn(ctx, formula)
}

func (r *recorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.formulas...)
}

func (r *recorder) count() int {
	return len(r.calls())
}

// observer collects what a cell publishes on the bus.
type observer struct {
	mu        sync.Mutex
	published []bus.Update[string]
}

func (o *observer) values() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := []string{}
	for _, u := range o.published {
		res = append(res, u.Value)
	}

	return res
}

type fixture struct {
	cell  *cell.Cell[string]
	bus   *bus.Memory[string]
	mock  *clock.Mock
	edits chan string
	eval  *recorder
	obs   *observer
	errC  <-chan error
}

func newFixture(t *testing.T, eval *recorder, opts ...cell.Option[string]) *fixture {
	t.Helper()

	f := &fixture{
		bus:   bus.NewMemory[string](),
		mock:  clock.NewMock(),
		edits: make(chan string),
		eval:  eval,
		obs:   &observer{},
	}

	updates, unsubscribe := f.bus.Subscribe()
	t.Cleanup(unsubscribe)

	go func() {
		for u := range updates {
			if u.ID != "A1" {
				continue
			}

			f.obs.mu.Lock()
			f.obs.published = append(f.obs.published, u)
			f.obs.mu.Unlock()
		}
	}()

	opts = append([]cell.Option[string]{cell.WithClock[string](f.mock)}, opts...)

	c, err := cell.New[string]("a1", f.edits, f.bus, eval, opts...)
	require.NoError(t, err)

	f.cell = c

	errC := make(chan error, 1)

	go func() {
		errC <- c.Run(context.Background())
	}()

	f.errC = errC

	t.Cleanup(c.Close)

	// the observer and the cell
	require.Eventually(t, func() bool { return f.bus.Subscribers() == 2 }, waitFor, tick)

	return f
}

// edit sends a formula and waits until the debounce window restarts.
func (f *fixture) edit(t *testing.T, formula string) {
	t.Helper()

	created := f.mock.Created()
	f.edits <- formula

	require.Eventually(t, func() bool { return f.mock.Created() == created+1 }, waitFor, tick)
}

func (f *fixture) update(t *testing.T, id, value string) {
	t.Helper()

	require.NoError(t, f.bus.Publish(context.Background(), bus.Update[string]{ID: id, Value: value}))
}

func (f *fixture) waitCalls(t *testing.T, n int) {
	t.Helper()

	require.Eventually(t, func() bool { return f.eval.count() == n }, waitFor, tick)
}

func (f *fixture) assertCallsStay(t *testing.T, n int) {
	t.Helper()

	assert.Never(t, func() bool { return f.eval.count() != n }, quiet, tick)
}

func (f *fixture) waitPublished(t *testing.T, want ...string) {
	t.Helper()

	require.Eventually(t, func() bool { return len(f.obs.values()) >= len(want) }, waitFor, tick)
	assert.Equal(t, want, f.obs.values())
}

func (f *fixture) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-f.errC:
		return err
	case <-time.After(waitFor):
		t.Fatal("cell did not stop")
	}

	return nil
}
