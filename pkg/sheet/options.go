package sheet

import (
	"log/slog"
	"time"

	"github.com/askiada/go-cellflow/internal/formula"
	"github.com/askiada/go-cellflow/pkg/cell"
	"github.com/askiada/go-cellflow/pkg/pipeline/clock"
)

// Option configures a Sheet.
type Option func(s *Sheet)

// WithLogger sets the logger of the sheet and of its cells.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sheet) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce sets the quiet window applied to the formula edits of every cell.
func WithDebounce(window time.Duration) Option {
	return func(s *Sheet) {
		s.debounce = window
	}
}

// WithClock sets the clock driving the debounce windows.
func WithClock(clk clock.Clock) Option {
	return func(s *Sheet) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithCellOptions registers a function returning extra options for the cell with the given id.
func WithCellOptions(fn func(id string) []cell.Option[formula.Value]) Option {
	return func(s *Sheet) {
		s.cellOpts = fn
	}
}
