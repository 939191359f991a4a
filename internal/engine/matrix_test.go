package engine

import "testing"

func TestMatrixStickyFinality(t *testing.T) {
	m := NewMatrix()

	m.Apply("seg-1", "vi", "xin chào", true)
	if m.Apply("seg-1", "vi", "xin ch", false) {
		t.Error("late partial accepted over final")
	}

	cell := m.Lookup("seg-1", "vi")
	if cell.State != CellFinal || cell.Text != "xin chào" {
		t.Errorf("cell = %+v, want sticky Final(xin chào)", cell)
	}
}

func TestMatrixPendingOverwrites(t *testing.T) {
	m := NewMatrix()

	m.Apply("seg-1", "fr", "bonj", false)
	m.Apply("seg-1", "fr", "bonjour", false)

	cell := m.Lookup("seg-1", "fr")
	if cell.State != CellPending || cell.Text != "bonjour" {
		t.Errorf("cell = %+v, want Pending(bonjour)", cell)
	}
}

func TestMatrixFinalReplacesPending(t *testing.T) {
	m := NewMatrix()

	m.Apply("seg-1", "de", "hal", false)
	m.Apply("seg-1", "de", "hallo", true)

	cell := m.Lookup("seg-1", "de")
	if cell.State != CellFinal || cell.Text != "hallo" {
		t.Errorf("cell = %+v, want Final(hallo)", cell)
	}
}

func TestMatrixAbsentDistinctFromPendingEmpty(t *testing.T) {
	m := NewMatrix()

	if m.Lookup("seg-1", "vi").State != CellAbsent {
		t.Error("untouched cell should be absent")
	}

	m.Apply("seg-1", "vi", "", false)
	if m.Lookup("seg-1", "vi").State != CellPending {
		t.Error("Pending(\"\") should be distinct from absent")
	}
}

func TestMatrixLanguagesIndependent(t *testing.T) {
	m := NewMatrix()

	// Per-language producers race; one language finalizing must not affect
	// another's pending state for the same segment.
	m.Apply("seg-1", "vi", "xong", true)
	m.Apply("seg-1", "fr", "en cours", false)

	if m.Lookup("seg-1", "vi").State != CellFinal {
		t.Error("vi should be final")
	}
	if m.Lookup("seg-1", "fr").State != CellPending {
		t.Error("fr should still be pending")
	}

	langs := m.Langs("seg-1")
	if len(langs) != 2 || langs[0] != "fr" || langs[1] != "vi" {
		t.Errorf("langs = %v, want [fr vi]", langs)
	}
}

func TestMatrixClear(t *testing.T) {
	m := NewMatrix()
	m.Apply("seg-1", "vi", "text", true)

	m.Clear()

	if m.Lookup("seg-1", "vi").State != CellAbsent {
		t.Error("cell survived clear")
	}
}
