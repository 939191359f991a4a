package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mlahaye/parley/internal/engine"
	"github.com/mlahaye/parley/internal/ui"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderMainContent())

	if m.overlayOn {
		sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
		sections = append(sections, m.renderOverlayStrip())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	if m.editing {
		sections = append(sections, m.renderEditBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("PARLEY")

	var meeting string
	if m.session.Active() {
		meeting = ui.DimStyle.Render(fmt.Sprintf(" — meeting %d", m.session.MeetingID()))
	}

	// Language switcher: configured targets, active ones highlighted.
	active := make(map[string]bool)
	for _, lang := range m.session.ActiveLangs() {
		active[lang] = true
	}
	var langs []string
	for i, lang := range m.cfg.TargetLangs {
		tag := fmt.Sprintf("%d:%s", i+1, lang)
		if active[lang] {
			langs = append(langs, ui.LangActiveStyle.Render(tag))
		} else {
			langs = append(langs, ui.LangInactiveStyle.Render(tag))
		}
	}

	return title + meeting + "  " + m.cfg.SourceLang + " → " + strings.Join(langs, " ")
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.session.Active() {
		dot = ui.RecordingDotStyle.Render("● REC")
	} else {
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}

	var generating string
	if m.session.Notes.Generating() {
		generating = "  " + ui.GeneratingStyle.Render("⟳ notes")
	}

	var translating string
	if !m.session.Translating() {
		translating = "  " + ui.DimStyle.Render("[translate off]")
	}

	status := "  " + ui.StatusStyle.Render(m.statusText)
	return dot + generating + translating + status
}

func (m Model) renderMainContent() string {
	transcriptW := m.transcriptPanelWidth()
	notesW := m.notesPanelWidth()
	contentH := m.transcriptVisibleLines() + 1 // +1 for panel headers

	transcriptPanel := m.renderTranscriptPanel(transcriptW, contentH)
	notesPanel := m.renderNotesPanel(notesW, contentH)

	divider := ui.DividerStyle.Render("│")

	transcriptLines := strings.Split(transcriptPanel, "\n")
	notesLines := strings.Split(notesPanel, "\n")

	var rows []string
	for i := 0; i < contentH; i++ {
		var left, right string
		if i < len(transcriptLines) {
			left = transcriptLines[i]
		}
		if i < len(notesLines) {
			right = notesLines[i]
		}
		rows = append(rows, padRight(left, transcriptW)+divider+right)
	}
	return strings.Join(rows, "\n")
}

// transcriptLines builds the styled display lines for the transcript panel:
// each finalized segment, its translations in the active languages, then
// the in-flight caption.
func (m Model) transcriptLines() []string {
	width := m.transcriptPanelWidth()
	textWidth := max(10, width-14) // leading "  [hh:mm:ss] "
	indent := strings.Repeat(" ", 13)

	var lines []string
	for _, seg := range m.session.Ledger.Segments() {
		ts := ui.TimestampStyle.Render(stamp(seg.StartMs))
		wrapped := wrapText(seg.Text, textWidth)
		lines = append(lines, ts+" "+wrapped[0])
		for _, wl := range wrapped[1:] {
			lines = append(lines, indent+wl)
		}

		for _, lang := range m.session.ActiveLangs() {
			cell := m.session.Matrix.Lookup(seg.ID, lang)
			if cell.State == engine.CellAbsent {
				continue
			}
			label := ui.LangLabelStyle.Render(lang + "›")
			text := cell.Text
			if cell.State == engine.CellPending {
				text = ui.PendingTextStyle.Render(text + "…")
			}
			for j, wl := range wrapText(text, max(10, textWidth-4)) {
				if j == 0 {
					lines = append(lines, indent+label+" "+wl)
				} else {
					lines = append(lines, indent+"    "+wl)
				}
			}
		}
	}

	if caption := m.session.Ledger.Caption(); caption != "" {
		for _, wl := range wrapText(caption+"▌", textWidth) {
			lines = append(lines, indent+ui.CaptionStyle.Render(wl))
		}
	}
	return lines
}

func (m Model) renderTranscriptPanel(width, height int) string {
	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}
	var header string
	if m.focusedPanel == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT") + badge
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT") + badge
	}

	lines := []string{header}
	contentHeight := height - 1

	switch {
	case !m.connected:
		lines = append(lines, "")
		if m.reconnecting {
			lines = append(lines, ui.ErrorTextStyle.Render("  Daemon disconnected. Reconnecting..."))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Connecting to parley daemon..."))
		}

	case m.session.Ledger.Len() == 0 && m.session.Ledger.Caption() == "":
		lines = append(lines, "")
		if m.session.Active() {
			lines = append(lines, ui.DimStyle.Render("  Listening..."))
		} else {
			lines = append(lines, ui.DimStyle.Render("  Press Space to start a meeting"))
		}

	default:
		display := m.transcriptLines()
		start := m.transcriptScroll
		if m.transcriptLive && len(display) > contentHeight {
			start = len(display) - contentHeight
		}
		if start < 0 {
			start = 0
		}
		end := min(start+contentHeight, len(display))
		for i := start; i < end; i++ {
			lines = append(lines, "  "+display[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines[:height], "\n")
}

func (m Model) renderNotesPanel(width, height int) string {
	filter := "all"
	if cat := noteFilters[m.noteFilter]; cat != "" {
		filter = string(cat)
	}
	title := fmt.Sprintf("NOTES (%s)", filter)
	var header string
	if m.focusedPanel == FocusNotes {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}
	if m.session.Notes.Generating() {
		header += " " + ui.GeneratingStyle.Render("⟳")
	}

	lines := []string{header}
	notes := m.visibleNotes()
	if len(notes) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No notes yet..."))
	}

	for i, n := range notes {
		marker := "  "
		if i == m.selectedNote && m.focusedPanel == FocusNotes {
			marker = ui.SelectedStyle.Render("> ")
		}
		tag := noteTag(n.Category)
		if n.Provisional() {
			tag = ui.ProvisionalStyle.Render(tag + "*")
		} else {
			tag = ui.DimStyle.Render(tag)
		}
		line := marker + tag + " " + n.Title
		lines = append(lines, truncateToWidth(line, width))
		if n.Detail != "" {
			lines = append(lines, truncateToWidth(ui.DimStyle.Render("      "+n.Detail), width))
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines[:height], "\n")
}

// renderOverlayStrip renders the bounded caption window: the last few
// finalized lines with their freshest translations.
func (m Model) renderOverlayStrip() string {
	items := m.mirror.Items()
	if len(items) == 0 {
		return ui.DimStyle.Render("  overlay: (empty)")
	}

	var lines []string
	for _, it := range items {
		line := "  " + ui.OverlayTextStyle.Render(truncatePlain(it.Text, m.width/2))
		var cells []string
		for _, lang := range it.Langs() {
			cell := it.Cell(lang)
			text := truncatePlain(cell.Text, m.width/4)
			if cell.State == engine.CellPending {
				cells = append(cells, ui.PendingTextStyle.Render(lang+"› "+text+"…"))
			} else {
				cells = append(cells, ui.LangLabelStyle.Render(lang+"› ")+text)
			}
		}
		if len(cells) > 0 {
			line += "  " + strings.Join(cells, "  ")
		}
		lines = append(lines, truncateToWidth(line, m.width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderEditBar() string {
	return ui.FooterKeyStyle.Render("edit› ") + m.editBuffer + ui.CaptionStyle.Render("▌")
}

func (m Model) renderFooter() string {
	var parts []string

	if m.connected {
		if m.session.Active() {
			parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Stop"))
		} else {
			parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Start"))
		}
		parts = append(parts, ui.FooterKeyStyle.Render("1-4")+ui.FooterDescStyle.Render(" Langs"))
		parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Focus"))
		parts = append(parts, ui.FooterKeyStyle.Render("n")+ui.FooterDescStyle.Render(" Filter"))
		parts = append(parts, ui.FooterKeyStyle.Render("e")+ui.FooterDescStyle.Render(" Edit"))
		parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Delete"))
		parts = append(parts, ui.FooterKeyStyle.Render("t")+ui.FooterDescStyle.Render(" Translate"))
		parts = append(parts, ui.FooterKeyStyle.Render("o")+ui.FooterDescStyle.Render(" Overlay"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Layout helpers

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + footer(1) + padding,
	// plus the overlay strip when shown.
	reserved := 7
	if m.overlayOn {
		reserved += m.mirror.Max() + 1
	}
	return max(5, m.height-reserved)
}

func (m Model) notesPanelWidth() int {
	if m.width == 0 {
		return 30
	}
	return max(20, m.width*35/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.notesPanelWidth()-3)
}

func noteTag(cat engine.Category) string {
	switch cat {
	case engine.CategoryKeyPoint:
		return "[kp]"
	case engine.CategoryDecision:
		return "[dc]"
	case engine.CategoryActionItem:
		return "[ai]"
	default:
		return "[rk]"
	}
}

func stamp(ms uint64) string {
	sec := ms / 1000
	return fmt.Sprintf("[%02d:%02d:%02d]", sec/3600, sec/60%60, sec%60)
}

// Text helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func truncatePlain(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:max(1, width-1)]) + "…"
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
