package engine

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mlahaye/parley/internal/bus"
)

// Category classifies a note item. Immutable once the item is created.
type Category string

const (
	CategoryKeyPoint   Category = "key_point"
	CategoryDecision   Category = "decision"
	CategoryActionItem Category = "action_item"
	CategoryRisk       Category = "risk"
)

// batchOrder is the fixed priority order in which batch items are assigned
// ids: key points, then decisions, action items, risks.
var batchOrder = []Category{CategoryKeyPoint, CategoryDecision, CategoryActionItem, CategoryRisk}

// Note is one reconciled note item. Content is the canonical JSON payload;
// Title and Detail are best-effort display fields derived from it. A
// negative id marks a provisional item whose authoritative id never
// arrived.
type Note struct {
	ID        int64
	MeetingID int64
	Category  Category
	Content   string
	Title     string
	Detail    string
	CreatedAt time.Time
}

// Provisional reports whether the note still carries a locally synthesized
// id.
func (n Note) Provisional() bool { return n.ID < 0 }

// Reconciler merges incrementally extracted note batches into one flat,
// stably ordered collection. Batches only append; edits and removals come
// from the user.
type Reconciler struct {
	notes      []Note
	nextLocal  int64
	generating bool
}

// NewReconciler returns an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{nextLocal: -1}
}

// ApplyBatch folds one notes-updated payload into the collection and
// returns the appended items. Ids come positionally from insertedIDs; when
// the batch outruns them, items get strictly decreasing negative ids unique
// within the session. An empty batch appends nothing but still clears the
// generating flag. A single undecodable item keeps its raw payload and
// never aborts the rest of the batch.
func (r *Reconciler) ApplyBatch(p bus.NotesUpdatedPayload) []Note {
	r.generating = false

	now := time.Now()
	idIdx := 0
	nextID := func() int64 {
		if idIdx < len(p.InsertedIDs) {
			id := p.InsertedIDs[idIdx]
			idIdx++
			return id
		}
		idIdx++
		id := r.nextLocal
		r.nextLocal--
		return id
	}

	var appended []Note
	for _, cat := range batchOrder {
		for _, raw := range itemsFor(p.NewNotes, cat) {
			note := Note{
				ID:        nextID(),
				MeetingID: p.MeetingID,
				Category:  cat,
				Content:   string(raw),
				CreatedAt: now,
			}
			note.Title, note.Detail = describe(cat, string(raw))
			appended = append(appended, note)
		}
	}

	r.notes = append(r.notes, appended...)
	return appended
}

func itemsFor(b bus.NoteBatch, cat Category) []json.RawMessage {
	switch cat {
	case CategoryKeyPoint:
		return b.KeyPoints
	case CategoryDecision:
		return b.Decisions
	case CategoryActionItem:
		return b.ActionItems
	default:
		return b.Risks
	}
}

// describe extracts display fields from a category payload. Malformed
// payloads fall back to the raw text so the item survives instead of being
// dropped.
func describe(cat Category, content string) (title, detail string) {
	var fields map[string]string
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return strings.TrimSpace(content), ""
	}

	switch cat {
	case CategoryKeyPoint:
		title, detail = fields["topic"], fields["summary"]
	case CategoryDecision:
		title, detail = fields["decision"], fields["rationale"]
	case CategoryActionItem:
		title, detail = fields["task"], fields["owner"]
		if dl := fields["deadline"]; dl != "" {
			if detail != "" {
				detail += " · "
			}
			detail += "due " + dl
		}
	case CategoryRisk:
		title, detail = fields["risk"], fields["impact"]
	}
	if title == "" {
		title = strings.TrimSpace(content)
	}
	return title, detail
}

// SetGenerating flips the "extraction in progress" indicator.
func (r *Reconciler) SetGenerating(v bool) { r.generating = v }

// Generating reports whether a note extraction round is in flight.
func (r *Reconciler) Generating() bool { return r.generating }

// Edit replaces the payload of the note with the given id. The category is
// immutable; only content and the derived display fields change. Returns
// false when the id is unknown.
func (r *Reconciler) Edit(id int64, content string) bool {
	for i := range r.notes {
		if r.notes[i].ID == id {
			r.notes[i].Content = content
			r.notes[i].Title, r.notes[i].Detail = describe(r.notes[i].Category, content)
			return true
		}
	}
	return false
}

// Remove deletes the note with the given id, preserving order of the rest.
func (r *Reconciler) Remove(id int64) bool {
	for i := range r.notes {
		if r.notes[i].ID == id {
			r.notes = append(r.notes[:i], r.notes[i+1:]...)
			return true
		}
	}
	return false
}

// Notes returns the collection in insertion order. Shared slice; callers
// must not mutate.
func (r *Reconciler) Notes() []Note { return r.notes }

// ByCategory returns the notes of one category in insertion order.
func (r *Reconciler) ByCategory(cat Category) []Note {
	var out []Note
	for _, n := range r.notes {
		if n.Category == cat {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the collection size.
func (r *Reconciler) Len() int { return len(r.notes) }

// Clear empties the collection and resets the generating flag. The
// provisional id counter keeps decreasing so ids stay unique across resets
// within one process.
func (r *Reconciler) Clear() {
	r.notes = nil
	r.generating = false
}
