package sheet

import (
	"context"

	"github.com/askiada/go-cellflow/internal/formula"
	"github.com/askiada/go-cellflow/pkg/bus"
	"github.com/askiada/go-cellflow/pkg/cell"
)

// recordingBus stores every value in the sheet before it is published, so the cells reacting
// to an update read the new value.
type recordingBus struct {
	*bus.Memory[formula.Value]
	sheet *Sheet
}

func (b *recordingBus) Publish(ctx context.Context, update bus.Update[formula.Value]) error {
	b.sheet.setValue(update.ID, update.Value)

	return b.Memory.Publish(ctx, update)
}

func (s *Sheet) setValue(id string, value formula.Value) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()

	s.values[id] = value
}

func (s *Sheet) lookup(id string) (formula.Value, bool) {
	s.valuesMu.RLock()
	defer s.valuesMu.RUnlock()

	value, ok := s.values[id]

	return value, ok
}

// Value returns the last published value of a cell.
func (s *Sheet) Value(id string) (formula.Value, bool) {
	return s.lookup(cell.NormalizeID(id))
}

// Values returns the last published value of every cell.
func (s *Sheet) Values() map[string]formula.Value {
	s.valuesMu.RLock()
	defer s.valuesMu.RUnlock()

	res := make(map[string]formula.Value, len(s.values))
	for id, value := range s.values {
		res[id] = value
	}

	return res
}

// Subscribe returns the stream of updates published by the cells of the sheet from now on.
// The stream is closed when the sheet stops.
func (s *Sheet) Subscribe() (<-chan bus.Update[formula.Value], func()) {
	return s.bus.Subscribe()
}
