package sheet

import (
	"html"
	"io"
	"log/slog"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/go-cellflow/pkg/cell"
	"github.com/askiada/go-cellflow/pkg/pipeline/drawer"
)

// setReferences makes the graph edges pointing to id match refs. An edge goes from a
// referenced cell to the cell referencing it.
func (s *Sheet) setReferences(id string, refs cell.References) {
	s.graphMu.Lock()
	defer s.graphMu.Unlock()

	logger := s.logger.With(slog.String("cell", id))

	s.addVertex(id)

	for _, source := range s.store.Sources(id) {
		if refs.Has(source) {
			continue
		}

		err := s.graph.RemoveEdge(source, id)
		if err != nil {
			logger.Warn("unable to remove reference", slog.String("reference", source), slog.Any("error", err))

			continue
		}

		s.pruneVertex(source)
	}

	for _, ref := range refs.Sorted() {
		s.addVertex(ref)

		cycle, err := s.store.CreatesCycle(ref, id)
		if err == nil && cycle {
			logger.Warn("reference cycle", slog.String("reference", ref))
		}

		err = s.graph.AddEdge(ref, id)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			logger.Warn("unable to add reference", slog.String("reference", ref), slog.Any("error", err))
		}
	}
}

func (s *Sheet) addVertex(id string) {
	err := s.graph.AddVertex(id)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		s.logger.Warn("unable to add cell to the reference graph", slog.String("cell", id), slog.Any("error", err))
	}
}

// pruneVertex removes a referenced cell that is not part of the sheet once nothing references
// it.
func (s *Sheet) pruneVertex(id string) {
	s.mu.Lock()
	_, ok := s.cells[id]
	s.mu.Unlock()

	if ok {
		return
	}

	err := s.graph.RemoveVertex(id)
	if err != nil && !errors.Is(err, graph.ErrVertexHasEdges) {
		s.logger.Warn("unable to remove cell from the reference graph", slog.String("cell", id), slog.Any("error", err))
	}
}

// Precedents returns the cells referenced by the formula of id, sorted.
func (s *Sheet) Precedents(id string) []string {
	res := s.store.Sources(cell.NormalizeID(id))
	sort.Strings(res)

	return res
}

// Dependents returns the cells whose formula references id, sorted.
func (s *Sheet) Dependents(id string) []string {
	res := s.store.Targets(cell.NormalizeID(id))
	sort.Strings(res)

	return res
}

// WriteReferences writes the reference graph in the DOT language. Each cell is labelled with
// its current value.
func (s *Sheet) WriteReferences(wrt io.Writer) error {
	s.graphMu.Lock()
	defer s.graphMu.Unlock()

	ids, err := s.store.ListVertices()
	if err != nil {
		return errors.Wrap(err, "unable to list cells")
	}

	for _, id := range ids {
		value, ok := s.lookup(id)
		if !ok {
			continue
		}

		err = s.store.UpdateVertex(id, func(p *graph.VertexProperties) {
			if p.Attributes == nil {
				p.Attributes = make(map[string]string)
			}

			p.Attributes["xlabel"] = html.EscapeString(value.String())
		})
		if err != nil {
			return errors.Wrapf(err, "unable to label cell %s", id)
		}
	}

	err = drawer.WriteDOT(s.graph, wrt, drawer.GraphAttribute("rankdir", "LR"))
	if err != nil {
		return errors.Wrap(err, "unable to write reference graph")
	}

	return nil
}
