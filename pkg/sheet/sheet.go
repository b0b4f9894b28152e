// Package sheet runs the cells of a spreadsheet together.
//
// Every cell of a Sheet is a cell.Cell evaluating its formula with the formula package. The
// cells share a bus: a value published by a cell is recorded in the sheet and then delivered to
// every other cell, so the cells referencing it are evaluated again with the new value. The
// sheet also keeps the graph of the references between its cells.
package sheet

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-cellflow/internal/formula"
	"github.com/askiada/go-cellflow/internal/store"
	"github.com/askiada/go-cellflow/pkg/bus"
	"github.com/askiada/go-cellflow/pkg/cell"
	"github.com/askiada/go-cellflow/pkg/pipeline"
	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
)

type entry struct {
	cell  *cell.Cell[formula.Value]
	edits chan string

	// sendMu orders the edits sent to the cell.
	sendMu sync.Mutex

	// formula and pending are guarded by Sheet.mu. A pending formula is sent when the sheet
	// runs.
	formula string
	pending bool
}

// Sheet is a set of cells evaluated reactively.
type Sheet struct {
	bus       *bus.Memory[formula.Value]
	publisher *recordingBus
	evaluator *formula.Evaluator

	logger   *slog.Logger
	debounce time.Duration
	clock    clock.Clock
	cellOpts func(id string) []cell.Option[formula.Value]

	valuesMu sync.RWMutex
	values   map[string]formula.Value

	graphMu sync.Mutex
	graph   graph.Graph[string, string]
	store   *store.MemoryStore[string, string]

	mu      sync.Mutex
	cells   map[string]*entry
	running bool
	closed  bool
	ctx     context.Context
	group   *errgroup.Group
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an empty sheet.
func New(opts ...Option) (*Sheet, error) {
	s := &Sheet{
		logger:   slog.New(slog.DiscardHandler),
		debounce: cell.DefaultDebounce,
		clock:    clock.New(),
		values:   make(map[string]formula.Value),
		store:    store.NewMemoryStore[string, string](),
		cells:    make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.debounce <= 0 {
		return nil, errors.Wrapf(pipeline.ErrDebounceWindow, "got %s", s.debounce)
	}

	s.bus = bus.NewMemory[formula.Value](bus.WithLogger(s.logger))
	s.publisher = &recordingBus{Memory: s.bus, sheet: s}
	s.evaluator = formula.NewEvaluator(s.lookup)
	s.graph = graph.NewWithStore(graph.StringHash, graph.Store[string, string](s.store), graph.Directed())

	return s, nil
}

// AddCell adds a cell with an initial formula. A cell added to a running sheet starts right
// away.
func (s *Sheet) AddCell(id, initial string) error {
	id = cell.NormalizeID(id)

	edits := make(chan string)

	opts := []cell.Option[formula.Value]{
		cell.WithDebounce[formula.Value](s.debounce),
		cell.WithClock[formula.Value](s.clock),
		cell.WithLogger[formula.Value](s.logger),
		cell.WithOnReferences[formula.Value](func(refs cell.References) {
			s.setReferences(id, refs)
		}),
	}

	if s.cellOpts != nil {
		opts = append(opts, s.cellOpts(id)...)
	}

	c, err := cell.New[formula.Value](id, edits, s.publisher, s.evaluator, opts...)
	if err != nil {
		return errors.Wrap(err, "unable to create cell")
	}

	e := &entry{cell: c, edits: edits, formula: initial, pending: initial != ""}

	s.mu.Lock()

	switch _, ok := s.cells[id]; {
	case s.closed:
		s.mu.Unlock()

		return ErrClosed
	case ok:
		s.mu.Unlock()

		return errors.Wrapf(ErrDuplicateCell, "%s", id)
	}

	s.cells[id] = e

	if s.running {
		s.start(e)
	}

	s.mu.Unlock()

	s.setReferences(id, cell.ExtractReferences(initial))

	return nil
}

// SetFormula replaces the formula of a cell. On a running sheet it blocks until the cell
// receives the edit.
func (s *Sheet) SetFormula(ctx context.Context, id, text string) error {
	id = cell.NormalizeID(id)

	s.mu.Lock()

	e, ok := s.cells[id]

	switch {
	case s.closed:
		s.mu.Unlock()

		return ErrClosed
	case !ok:
		s.mu.Unlock()

		return errors.Wrapf(ErrUnknownCell, "%s", id)
	case !s.running:
		e.formula = text
		e.pending = true
		s.mu.Unlock()
		s.setReferences(id, cell.ExtractReferences(text))

		return nil
	}

	e.formula = text
	runCtx := s.ctx
	s.mu.Unlock()

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-runCtx.Done():
		return ErrClosed
	case e.edits <- text:
		return nil
	}
}

// Formula returns the latest formula given to a cell, even if it is not evaluated yet.
func (s *Sheet) Formula(id string) (string, error) {
	e, err := s.entry(id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return e.formula, nil
}

// Cell returns the pipeline of a cell, to read its evaluation error or its references.
func (s *Sheet) Cell(id string) (*cell.Cell[formula.Value], error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	return e.cell, nil
}

// IDs returns the ids of the cells of the sheet, sorted.
func (s *Sheet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]string, 0, len(s.cells))
	for id := range s.cells {
		res = append(res, id)
	}

	sort.Strings(res)

	return res
}

func (s *Sheet) entry(id string) (*entry, error) {
	id = cell.NormalizeID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cells[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCell, "%s", id)
	}

	return e, nil
}

// start runs the cell and sends its pending formula. It must be called with s.mu held.
func (s *Sheet) start(e *entry) {
	ctx := s.ctx

	s.group.Go(func() error {
		return e.cell.Run(ctx)
	})

	if !e.pending {
		return
	}

	text := e.formula
	e.pending = false

	e.sendMu.Lock()
	s.group.Go(func() error {
		defer e.sendMu.Unlock()

		select {
		case <-ctx.Done():
		case e.edits <- text:
		}

		return nil
	})
}

// Run evaluates every cell until ctx is done or Close is called, which return nil. It returns
// the first error of a cell, after stopping all the others. The bus is closed when Run returns
// and the sheet is closed from then on.
func (s *Sheet) Run(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()

		return ErrAlreadyRunning
	}

	s.running = true

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.group, s.ctx = errgroup.WithContext(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	defer close(s.done)

	for _, e := range s.cells {
		s.start(e)
	}

	cells := len(s.cells)
	runCtx := s.ctx
	s.mu.Unlock()

	s.logger.Info("sheet started", slog.Int("cells", cells))

	s.group.Go(func() error {
		<-runCtx.Done()

		// the group must not start new cells once it stops
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		return nil
	})

	err := s.group.Wait()

	s.bus.Close()

	if err != nil {
		s.logger.Error("sheet stopped", slog.Any("error", err))

		return err
	}

	s.logger.Info("sheet stopped")

	return nil
}

// Close stops the sheet and waits for every cell to stop.
func (s *Sheet) Close() {
	s.mu.Lock()
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		s.bus.Close()

		return
	}

	cancel()
	<-done
}
