package engine

import "sort"

// CellState is the lifecycle phase of one translation cell.
type CellState int

const (
	// CellAbsent means no translation has been requested or received for
	// the (segment, language) pair. Distinct from a pending empty string.
	CellAbsent CellState = iota
	// CellPending holds provisional streamed text that may be overwritten.
	CellPending
	// CellFinal holds terminal text. Finality is sticky: a final cell never
	// reverts to pending.
	CellFinal
)

// Cell is the value of one (segment, language) translation slot.
type Cell struct {
	State CellState
	Text  string
}

// applyCell folds one update into a cell under the sticky-finality rule:
// final always wins, and a partial arriving after a final is stale and
// absorbed. The second return reports whether the cell changed.
func applyCell(c Cell, text string, final bool) (Cell, bool) {
	if final {
		return Cell{State: CellFinal, Text: text}, true
	}
	if c.State == CellFinal {
		return c, false
	}
	return Cell{State: CellPending, Text: text}, true
}

// Matrix holds per-segment, per-target-language translation cells. The
// per-language producers run in parallel with independent latencies, so
// updates for one segment arrive in no particular order across languages;
// the sticky-finality rule in applyCell is what keeps a slow stream's late
// partial from regressing a completed translation.
type Matrix struct {
	cells map[string]map[string]Cell // segment id -> target lang -> cell
}

// NewMatrix returns an empty matrix.
func NewMatrix() *Matrix {
	return &Matrix{cells: make(map[string]map[string]Cell)}
}

// Apply folds one translation update into the matrix. Returns false when
// the update was stale (a partial for an already-final cell).
func (m *Matrix) Apply(segmentID, targetLang, text string, final bool) bool {
	langs, ok := m.cells[segmentID]
	if !ok {
		langs = make(map[string]Cell)
		m.cells[segmentID] = langs
	}
	next, changed := applyCell(langs[targetLang], text, final)
	if changed {
		langs[targetLang] = next
	}
	return changed
}

// Lookup returns the cell for a (segment, language) pair. The zero cell
// (CellAbsent) means no translation exists at all.
func (m *Matrix) Lookup(segmentID, targetLang string) Cell {
	return m.cells[segmentID][targetLang]
}

// Langs returns the languages holding a cell for the segment, sorted for
// stable display.
func (m *Matrix) Langs(segmentID string) []string {
	langs := make([]string, 0, len(m.cells[segmentID]))
	for lang := range m.cells[segmentID] {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Clear drops all cells.
func (m *Matrix) Clear() {
	m.cells = make(map[string]map[string]Cell)
}
