package engine

import "testing"

func TestLedgerDuplicateFinalsSuppressed(t *testing.T) {
	l := NewLedger()

	ids := []string{"a", "b", "a", "c", "b", "a"}
	for _, id := range ids {
		l.Finalize(Segment{ID: id, Text: "text " + id})
	}

	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3 distinct ids", l.Len())
	}
	got := l.Segments()
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Errorf("segments[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestLedgerFirstFinalWins(t *testing.T) {
	l := NewLedger()

	if !l.Finalize(Segment{ID: "seg-1", Text: "original"}) {
		t.Fatal("first finalize rejected")
	}
	if l.Finalize(Segment{ID: "seg-1", Text: "duplicate"}) {
		t.Error("duplicate finalize accepted")
	}
	if l.Segments()[0].Text != "original" {
		t.Errorf("text = %q, want original", l.Segments()[0].Text)
	}
}

func TestLedgerFinalizeClearsCaption(t *testing.T) {
	l := NewLedger()

	l.SetCaption("still streaming")
	l.Finalize(Segment{ID: "seg-1", Text: "done"})

	if l.Caption() != "" {
		t.Errorf("caption = %q, want empty after finalize", l.Caption())
	}
}

func TestLedgerPartialOnlyTouchesCaption(t *testing.T) {
	l := NewLedger()

	l.SetCaption("first")
	l.SetCaption("second")

	if l.Caption() != "second" {
		t.Errorf("caption = %q, want latest partial", l.Caption())
	}
	if l.Len() != 0 {
		t.Errorf("len = %d, partials must not append", l.Len())
	}
}

func TestLedgerClear(t *testing.T) {
	l := NewLedger()
	l.Finalize(Segment{ID: "seg-1", Text: "one"})
	l.SetCaption("streaming")

	l.Clear()

	if l.Len() != 0 || l.Caption() != "" {
		t.Error("clear must empty segments and caption atomically")
	}
	if l.Has("seg-1") {
		t.Error("cleared id still present")
	}
	// The id is reusable after clear; a new meeting starts fresh.
	if !l.Finalize(Segment{ID: "seg-1", Text: "again"}) {
		t.Error("finalize after clear rejected")
	}
}
