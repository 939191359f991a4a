package engine

import (
	"sort"

	"github.com/mlahaye/parley/internal/bus"
)

// DefaultMirrorWindow is the caption window used when no size is configured.
const DefaultMirrorWindow = 4

// MirrorItem is one finalized segment in the overlay window together with
// its translation cells.
type MirrorItem struct {
	SegmentID string
	Text      string
	StartMs   uint64
	cells     map[string]Cell
}

// Cell returns the translation cell for a language.
func (it *MirrorItem) Cell(lang string) Cell { return it.cells[lang] }

// Langs returns the languages holding a cell, sorted for stable display.
func (it *MirrorItem) Langs() []string {
	langs := make([]string, 0, len(it.cells))
	for lang := range it.cells {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Mirror is the bounded projection behind the caption overlay. It consumes
// the same raw speech and translation streams as the main ledger and matrix
// but keeps only the most recent K finalized segments, evicting strict FIFO
// by arrival. The two projections may diverge transiently across window
// boundaries; nothing requires them to stay identical.
type Mirror struct {
	max   int
	items []*MirrorItem
}

// NewMirror returns a mirror bounded to max segments. Non-positive sizes
// fall back to DefaultMirrorWindow.
func NewMirror(max int) *Mirror {
	if max <= 0 {
		max = DefaultMirrorWindow
	}
	return &Mirror{max: max}
}

// ApplySpeech folds one speech event into the window. Partials are ignored
// here (the overlay shows finalized captions only) and duplicate finals are
// absorbed. The oldest item is evicted once the window is full.
func (m *Mirror) ApplySpeech(p bus.SpeechPayload) {
	if !p.IsFinal {
		return
	}
	for _, it := range m.items {
		if it.SegmentID == p.SegmentID {
			return
		}
	}
	m.items = append(m.items, &MirrorItem{
		SegmentID: p.SegmentID,
		Text:      p.Text,
		StartMs:   p.StartMs,
		cells:     make(map[string]Cell),
	})
	if len(m.items) > m.max {
		m.items = m.items[len(m.items)-m.max:]
	}
}

// ApplyTranslation folds one translation update into the matching window
// item under the same sticky-finality rule as the matrix. Updates for
// segments outside the window (evicted or never seen) are dropped.
func (m *Mirror) ApplyTranslation(p bus.TranslationPayload) {
	for _, it := range m.items {
		if it.SegmentID != p.SegmentID {
			continue
		}
		if next, changed := applyCell(it.cells[p.TargetLang], p.Text, p.IsFinal); changed {
			it.cells[p.TargetLang] = next
		}
		return
	}
}

// Items returns the window oldest-first. Shared slice; callers must not
// mutate.
func (m *Mirror) Items() []*MirrorItem { return m.items }

// Len returns the number of segments currently held.
func (m *Mirror) Len() int { return len(m.items) }

// Max returns the window bound.
func (m *Mirror) Max() int { return m.max }

// Clear empties the window.
func (m *Mirror) Clear() { m.items = nil }
