package engine

import (
	"strings"
	"time"

	"github.com/mlahaye/parley/internal/bus"
)

// MaxTargetLangs caps the active target-language set.
const MaxTargetLangs = 4

// Session owns the reducers for one meeting and applies daemon events to
// them as atomic steps. External readers only read the derived state; all
// mutation goes through the methods here. Starting a new meeting resets
// every ledger in one step, so no transcript, translation, or note state
// ever leaks across meeting ids.
type Session struct {
	Ledger *Ledger
	Matrix *Matrix
	Notes  *Reconciler

	meetingID   int64
	active      bool
	sourceLang  string
	targetLangs []string
	translating bool
}

// NewSession returns an idle session with the given default target
// languages (capped at MaxTargetLangs).
func NewSession(targetLangs []string) *Session {
	s := &Session{
		Ledger:      NewLedger(),
		Matrix:      NewMatrix(),
		Notes:       NewReconciler(),
		translating: true,
	}
	s.SetLangs(targetLangs)
	return s
}

// Start begins a meeting: all ledgers are emptied atomically and the new
// meeting id takes effect.
func (s *Session) Start(meetingID int64, sourceLang string) {
	s.Ledger.Clear()
	s.Matrix.Clear()
	s.Notes.Clear()
	s.meetingID = meetingID
	s.sourceLang = sourceLang
	s.active = true
}

// Stop ends the meeting. Recorded state stays readable until the next
// Start; only the in-flight caption is dropped.
func (s *Session) Stop() {
	s.active = false
	s.Ledger.SetCaption("")
	s.Notes.SetGenerating(false)
}

// Active reports whether a meeting is in progress.
func (s *Session) Active() bool { return s.active }

// MeetingID returns the current meeting id, 0 when none has started.
func (s *Session) MeetingID() int64 { return s.meetingID }

// SourceLang returns the meeting's source language.
func (s *Session) SourceLang() string { return s.sourceLang }

// ApplySpeech folds one speech event into the ledger. A final event
// creates the segment and clears the caption in the same step; the created
// segment is returned so the host can persist and fan out translation
// requests. Duplicate finals and events outside a meeting return nil.
func (s *Session) ApplySpeech(p bus.SpeechPayload) *Segment {
	if !s.active {
		return nil
	}
	if !p.IsFinal {
		s.Ledger.SetCaption(p.Text)
		return nil
	}
	seg := Segment{
		ID:         p.SegmentID,
		Text:       strings.TrimSpace(p.Text),
		Language:   p.Language,
		StartMs:    p.StartMs,
		EndMs:      p.EndMs,
		ReceivedAt: time.Now(),
	}
	if !s.Ledger.Finalize(seg) {
		return nil
	}
	return &seg
}

// ApplyTranslation folds one translation update into the matrix. Updates
// for languages outside the active set are stored too; the active set only
// filters display. Returns true when the matrix changed and the update was
// final, which is the host's cue to persist the cell.
func (s *Session) ApplyTranslation(p bus.TranslationPayload) bool {
	if !s.active {
		return false
	}
	changed := s.Matrix.Apply(p.SegmentID, p.TargetLang, p.Text, p.IsFinal)
	return changed && p.IsFinal
}

// ApplyNotes folds one notes-updated payload into the reconciler and
// returns the appended items. Batches for a different meeting id are
// dropped whole.
func (s *Session) ApplyNotes(p bus.NotesUpdatedPayload) []Note {
	if !s.active || p.MeetingID != s.meetingID {
		return nil
	}
	return s.Notes.ApplyBatch(p)
}

// ApplyNotesError clears the generating indicator. The failure itself is
// producer-side; nothing in the collection changes.
func (s *Session) ApplyNotesError(p bus.NotesErrorPayload) {
	if p.MeetingID != s.meetingID {
		return
	}
	s.Notes.SetGenerating(false)
}

// ActiveLangs returns the ordered active target-language set. Shared
// slice; callers must not mutate.
func (s *Session) ActiveLangs() []string { return s.targetLangs }

// SetLangs replaces the active set, truncating to MaxTargetLangs. Cells
// already recorded for removed languages are retained, not purged.
func (s *Session) SetLangs(langs []string) {
	if len(langs) > MaxTargetLangs {
		langs = langs[:MaxTargetLangs]
	}
	s.targetLangs = append([]string(nil), langs...)
}

// ToggleLang adds or removes one language from the active set. Adding
// beyond the cap and removing the last language are both refused; the set
// is never empty. Returns true when the set changed.
func (s *Session) ToggleLang(lang string) bool {
	for i, cur := range s.targetLangs {
		if cur == lang {
			if len(s.targetLangs) == 1 {
				return false
			}
			s.targetLangs = append(s.targetLangs[:i], s.targetLangs[i+1:]...)
			return true
		}
	}
	if len(s.targetLangs) >= MaxTargetLangs {
		return false
	}
	s.targetLangs = append(s.targetLangs, lang)
	return true
}

// Translating reports whether final segments should fan out translation
// requests.
func (s *Session) Translating() bool { return s.translating }

// SetTranslating flips the auto-translate switch.
func (s *Session) SetTranslating(v bool) { s.translating = v }
