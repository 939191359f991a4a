package app

import (
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlahaye/parley/internal/bus"
	"github.com/mlahaye/parley/internal/config"
	"github.com/mlahaye/parley/internal/engine"
)

func testModel() Model {
	cfg := config.Default()
	cfg.TargetLangs = []string{"vi", "fr"}
	return New(cfg)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMeetingStartResetsState(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	m = update(t, m, SpeechEventMsg{Payload: bus.SpeechPayload{
		SegmentID: "seg-1", Text: "old meeting line", IsFinal: true,
	}})
	m = update(t, m, NotesUpdatedMsg{Payload: bus.NotesUpdatedPayload{
		MeetingID:   1,
		NewNotes:    bus.NoteBatch{KeyPoints: rawItems(`{"topic":"old"}`)},
		InsertedIDs: []int64{10},
	}})
	if m.session.Ledger.Len() != 1 || m.session.Notes.Len() != 1 {
		t.Fatalf("setup: ledger=%d notes=%d", m.session.Ledger.Len(), m.session.Notes.Len())
	}

	m = update(t, m, MeetingStartedMsg{MeetingID: 2})

	if m.session.MeetingID() != 2 {
		t.Errorf("meeting id = %d, want 2", m.session.MeetingID())
	}
	if m.session.Ledger.Len() != 0 {
		t.Errorf("ledger not cleared: %d segments", m.session.Ledger.Len())
	}
	if m.session.Notes.Len() != 0 {
		t.Errorf("notes not cleared: %d notes", m.session.Notes.Len())
	}
	if m.mirror.Len() != 0 {
		t.Errorf("mirror not cleared: %d items", m.mirror.Len())
	}
}

func TestSpeechEventsBuildTranscript(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})

	m = update(t, m, SpeechEventMsg{Payload: bus.SpeechPayload{Text: "hel", IsFinal: false}})
	if got := m.session.Ledger.Caption(); got != "hel" {
		t.Errorf("caption = %q, want %q", got, "hel")
	}

	m = update(t, m, SpeechEventMsg{Payload: bus.SpeechPayload{
		SegmentID: "seg-1", Text: "hello there", IsFinal: true,
	}})
	if m.session.Ledger.Len() != 1 {
		t.Fatalf("ledger len = %d, want 1", m.session.Ledger.Len())
	}
	if m.session.Ledger.Caption() != "" {
		t.Error("caption should clear on finalization")
	}

	// Duplicate delivery of the same final is absorbed.
	m = update(t, m, SpeechEventMsg{Payload: bus.SpeechPayload{
		SegmentID: "seg-1", Text: "hello there again", IsFinal: true,
	}})
	if m.session.Ledger.Len() != 1 {
		t.Errorf("duplicate final appended: len = %d", m.session.Ledger.Len())
	}
}

func TestTranslationEventUpdatesMatrix(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	m = update(t, m, SpeechEventMsg{Payload: bus.SpeechPayload{
		SegmentID: "seg-1", Text: "hello", IsFinal: true,
	}})

	m = update(t, m, TranslationEventMsg{Payload: bus.TranslationPayload{
		SegmentID: "seg-1", TargetLang: "vi", Text: "xin chào", IsFinal: true,
	}})
	m = update(t, m, TranslationEventMsg{Payload: bus.TranslationPayload{
		SegmentID: "seg-1", TargetLang: "vi", Text: "stale partial", IsFinal: false,
	}})

	cell := m.session.Matrix.Lookup("seg-1", "vi")
	if cell.State != engine.CellFinal || cell.Text != "xin chào" {
		t.Errorf("cell = %+v, want final %q", cell, "xin chào")
	}
}

func TestOverlayEventsFeedMirrorOnly(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})

	m = update(t, m, OverlaySpeechMsg{Payload: bus.SpeechPayload{
		SegmentID: "seg-1", Text: "overlay line", IsFinal: true,
	}})
	m = update(t, m, OverlayTranslationMsg{Payload: bus.TranslationPayload{
		SegmentID: "seg-1", TargetLang: "vi", Text: "bản dịch", IsFinal: true,
	}})

	if m.mirror.Len() != 1 {
		t.Fatalf("mirror len = %d, want 1", m.mirror.Len())
	}
	if m.session.Ledger.Len() != 0 {
		t.Error("overlay event leaked into the main ledger")
	}
	if got := m.mirror.Items()[0].Cell("vi").Text; got != "bản dịch" {
		t.Errorf("mirror cell = %q", got)
	}
}

func TestNotesErrorClearsGeneratingAndShows(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	m.session.Notes.SetGenerating(true)

	m = update(t, m, NotesErrorMsg{Payload: bus.NotesErrorPayload{
		MeetingID: 1, Error: "model unavailable",
	}})

	if m.session.Notes.Generating() {
		t.Error("generating flag should clear on notes-error")
	}
	if m.errorMessage != "model unavailable" || !m.errorTransient {
		t.Errorf("error = %q transient=%v", m.errorMessage, m.errorTransient)
	}

	m = update(t, m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Errorf("transient error not cleared: %q", m.errorMessage)
	}
}

func TestStaleMeetingNotesDropped(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 2})

	m = update(t, m, NotesUpdatedMsg{Payload: bus.NotesUpdatedPayload{
		MeetingID:   1, // previous meeting
		NewNotes:    bus.NoteBatch{KeyPoints: rawItems(`{"topic":"stale"}`)},
		InsertedIDs: []int64{10},
	}})

	if m.session.Notes.Len() != 0 {
		t.Errorf("stale batch applied: %d notes", m.session.Notes.Len())
	}
}

func TestKeyToggleLang(t *testing.T) {
	m := testModel()

	m = update(t, m, key("2")) // toggle "fr" off
	if got := m.session.ActiveLangs(); len(got) != 1 || got[0] != "vi" {
		t.Errorf("active langs = %v, want [vi]", got)
	}

	m = update(t, m, key("1")) // "vi" is the last one; refuse
	if got := m.session.ActiveLangs(); len(got) != 1 {
		t.Errorf("active set emptied: %v", got)
	}

	m = update(t, m, key("2")) // back on
	if got := m.session.ActiveLangs(); len(got) != 2 {
		t.Errorf("active langs = %v, want 2 entries", got)
	}
}

func TestNotesFilterCycle(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	m = update(t, m, NotesUpdatedMsg{Payload: bus.NotesUpdatedPayload{
		MeetingID: 1,
		NewNotes: bus.NoteBatch{
			KeyPoints: rawItems(`{"topic":"a"}`),
			Risks:     rawItems(`{"risk":"b"}`),
		},
		InsertedIDs: []int64{1, 2},
	}})

	if got := len(m.visibleNotes()); got != 2 {
		t.Fatalf("all filter: %d notes, want 2", got)
	}

	m = update(t, m, key("n")) // key_point
	if got := m.visibleNotes(); len(got) != 1 || got[0].Category != engine.CategoryKeyPoint {
		t.Errorf("key_point filter: %v", got)
	}

	for i := 0; i < len(noteFilters)-1; i++ {
		m = update(t, m, key("n"))
	}
	if got := len(m.visibleNotes()); got != 2 {
		t.Errorf("filter did not cycle back to all: %d notes", got)
	}
}

func TestEditNoteInline(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	m = update(t, m, NotesUpdatedMsg{Payload: bus.NotesUpdatedPayload{
		MeetingID:   1,
		NewNotes:    bus.NoteBatch{Decisions: rawItems(`{"decision":"ship"}`)},
		InsertedIDs: []int64{5},
	}})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab}) // focus notes
	m = update(t, m, key("e"))
	if !m.editing || m.editNoteID != 5 {
		t.Fatalf("editing=%v id=%d", m.editing, m.editNoteID)
	}

	m.editBuffer = `{"decision":"hold"}`
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.editing {
		t.Error("still editing after enter")
	}
	notes := m.session.Notes.Notes()
	if len(notes) != 1 || notes[0].Title != "hold" {
		t.Errorf("edit not applied: %+v", notes)
	}
	if notes[0].Category != engine.CategoryDecision {
		t.Error("category changed by edit")
	}
}

func TestDeleteNote(t *testing.T) {
	m := testModel()
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	m = update(t, m, NotesUpdatedMsg{Payload: bus.NotesUpdatedPayload{
		MeetingID: 1,
		NewNotes: bus.NoteBatch{
			KeyPoints: rawItems(`{"topic":"keep"}`, `{"topic":"drop"}`),
		},
		InsertedIDs: []int64{1, 2},
	}})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, key("j")) // select the second note
	m = update(t, m, key("d"))

	notes := m.session.Notes.Notes()
	if len(notes) != 1 || notes[0].Title != "keep" {
		t.Errorf("after delete: %+v", notes)
	}
}

func TestStaleDisconnectIgnored(t *testing.T) {
	m := testModel()
	m.connected = true

	// A watcher from an already-replaced connection must not flip state.
	m = update(t, m, DaemonLostMsg{Client: &bus.Client{}})
	if !m.connected {
		t.Error("stale disconnect flipped connection state")
	}
}

func TestTranscriptScrollKeys(t *testing.T) {
	m := testModel()
	m.height = 12
	m.width = 80
	m = update(t, m, MeetingStartedMsg{MeetingID: 1})
	for i := 0; i < 30; i++ {
		m = update(t, m, SpeechEventMsg{Payload: bus.SpeechPayload{
			SegmentID: segID(i), Text: "line", IsFinal: true,
		}})
	}
	if !m.transcriptLive {
		t.Fatal("should start live")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.transcriptLive {
		t.Error("scrolling up should leave live mode")
	}

	for i := 0; i < 100; i++ {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if !m.transcriptLive {
		t.Error("scrolling to bottom should re-enter live mode")
	}
}

func rawItems(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func segID(i int) string {
	return "seg-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}
