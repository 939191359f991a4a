// Package engine holds the reducers that merge the daemon's asynchronous
// event streams into one consistent state model. Producers deliver events
// concurrently, but the hosting event loop applies them one at a time, so
// every method here is a plain synchronous transition and no reducer needs
// its own locking.
package engine

import "time"

// Segment is one finalized unit of original-language speech. It is created
// exactly once, on the first final event for its id, and is immutable
// afterwards.
type Segment struct {
	ID         string
	Text       string
	Language   string
	StartMs    uint64
	EndMs      uint64
	ReceivedAt time.Time
}

// Ledger is the append-only ordered collection of finalized segments plus
// the single in-flight caption. Arrival order is the display order; the
// producer emits finals in order, so the ledger only has to suppress
// duplicate delivery, not reorder.
type Ledger struct {
	segments []Segment
	byID     map[string]struct{}
	caption  string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]struct{})}
}

// Finalize appends a segment and clears the caption in the same step.
// A segment id that is already present is a duplicate delivery and the call
// is a no-op, reported by the false return.
func (l *Ledger) Finalize(seg Segment) bool {
	if _, dup := l.byID[seg.ID]; dup {
		return false
	}
	l.byID[seg.ID] = struct{}{}
	l.segments = append(l.segments, seg)
	l.caption = ""
	return true
}

// SetCaption overwrites the in-flight caption. Partials never touch the
// finalized sequence.
func (l *Ledger) SetCaption(text string) {
	l.caption = text
}

// Caption returns the in-flight caption, or "" when nothing is streaming.
func (l *Ledger) Caption() string { return l.caption }

// Has reports whether a segment id has been finalized.
func (l *Ledger) Has(id string) bool {
	_, ok := l.byID[id]
	return ok
}

// Segments returns the finalized sequence in arrival order. The slice is
// shared; callers must not mutate it.
func (l *Ledger) Segments() []Segment { return l.segments }

// Len returns the number of finalized segments.
func (l *Ledger) Len() int { return len(l.segments) }

// Clear empties the sequence and the caption atomically.
func (l *Ledger) Clear() {
	l.segments = nil
	l.byID = make(map[string]struct{})
	l.caption = ""
}
