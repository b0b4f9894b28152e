// Package cell evaluates a single spreadsheet cell reactively.
//
// A Cell reacts to two sources: the edits of its own formula, which are debounced, and the
// updates of the cells its formula references, which trigger an evaluation immediately. Both
// sources are merged into a single ordered stream of evaluations. A computed value is
// published on the shared bus only when it differs from the previously published one, so the
// cells referencing this one react in turn.
//
// Each Cell runs as a pipeline whose stages are:
//
//	formula-edits ─► formula-debounce ──┐
//	cell-updates  ─► dependency-trigger ┴► triggers ─► evaluate ─► distinct ─► publish
package cell
