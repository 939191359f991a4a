// Package export renders recorded meetings from the store into transcript
// and memo documents.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlahaye/parley/internal/db"
)

// Format selects the transcript output format.
type Format string

const (
	FormatTxt  Format = "txt"
	FormatMD   Format = "md"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTxt, FormatMD, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Transcript renders a meeting's segments with their translations grouped
// under each line.
func Transcript(m *db.Meeting, segs []db.Segment, trs []db.Translation, format Format) (string, error) {
	bySegment := make(map[string][]db.Translation)
	for _, tr := range trs {
		bySegment[tr.SegmentID] = append(bySegment[tr.SegmentID], tr)
	}

	switch format {
	case FormatTxt:
		return transcriptTxt(m, segs, bySegment), nil
	case FormatMD:
		return transcriptMD(m, segs, bySegment), nil
	case FormatJSON:
		return transcriptJSON(m, segs, bySegment)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func header(m *db.Meeting) (title, date, langs string) {
	date = m.StartedAt.Format("2006-01-02 15:04")
	if m.EndedAt != nil {
		date += " - " + m.EndedAt.Format("15:04")
	}
	langs = m.SourceLang + " -> " + strings.Join(m.TargetLangs, ", ")
	return m.Title, date, langs
}

func stamp(ms uint64) string {
	sec := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}

func transcriptTxt(m *db.Meeting, segs []db.Segment, trs map[string][]db.Translation) string {
	title, date, langs := header(m)

	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\n", title)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Language: %s\n", langs)
	b.WriteString("---\n\n")

	if len(segs) == 0 {
		b.WriteString("(No transcript recorded)\n")
		return b.String()
	}

	for _, seg := range segs {
		fmt.Fprintf(&b, "[%s] %s\n", stamp(seg.StartMs), seg.Text)
		for _, tr := range trs[seg.ID] {
			fmt.Fprintf(&b, "    [%s] %s\n", tr.TargetLang, tr.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func transcriptMD(m *db.Meeting, segs []db.Segment, trs map[string][]db.Translation) string {
	title, date, langs := header(m)

	var b strings.Builder
	fmt.Fprintf(&b, "# Meeting Transcript: %s\n\n", title)
	fmt.Fprintf(&b, "**Date:** %s\n**Languages:** %s\n\n---\n\n", date, langs)

	if len(segs) == 0 {
		b.WriteString("*No transcript recorded*\n")
		return b.String()
	}

	for _, seg := range segs {
		fmt.Fprintf(&b, "**[%s]** %s\n", stamp(seg.StartMs), seg.Text)
		for _, tr := range trs[seg.ID] {
			fmt.Fprintf(&b, "- *%s:* %s\n", tr.TargetLang, tr.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type jsonSegment struct {
	ID           string            `json:"id"`
	Text         string            `json:"text"`
	Language     string            `json:"language"`
	StartMs      uint64            `json:"start_ms"`
	EndMs        uint64            `json:"end_ms"`
	Translations map[string]string `json:"translations,omitempty"`
}

type jsonTranscript struct {
	Meeting  jsonMeeting   `json:"meeting"`
	Segments []jsonSegment `json:"segments"`
}

type jsonMeeting struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	StartedAt   string   `json:"started_at"`
	EndedAt     string   `json:"ended_at,omitempty"`
	SourceLang  string   `json:"source_lang"`
	TargetLangs []string `json:"target_langs"`
}

func transcriptJSON(m *db.Meeting, segs []db.Segment, trs map[string][]db.Translation) (string, error) {
	doc := jsonTranscript{
		Meeting: jsonMeeting{
			ID:          m.ID,
			Title:       m.Title,
			StartedAt:   m.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
			SourceLang:  m.SourceLang,
			TargetLangs: m.TargetLangs,
		},
		Segments: []jsonSegment{},
	}
	if m.EndedAt != nil {
		doc.Meeting.EndedAt = m.EndedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	for _, seg := range segs {
		js := jsonSegment{
			ID:       seg.ID,
			Text:     seg.Text,
			Language: seg.Language,
			StartMs:  seg.StartMs,
			EndMs:    seg.EndMs,
		}
		if cells := trs[seg.ID]; len(cells) > 0 {
			js.Translations = make(map[string]string, len(cells))
			for _, tr := range cells {
				js.Translations[tr.TargetLang] = tr.Text
			}
		}
		doc.Segments = append(doc.Segments, js)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(data), nil
}

// memoSections fixes the rendering order and headings of the memo.
var memoSections = []struct {
	noteType string
	heading  string
}{
	{"key_point", "Key Points"},
	{"decision", "Decisions"},
	{"action_item", "Action Items"},
	{"risk", "Risks"},
}

// Memo renders a meeting's notes into a markdown memo grouped by category.
func Memo(m *db.Meeting, notes []db.Note) string {
	title, date, _ := header(m)

	var b strings.Builder
	fmt.Fprintf(&b, "# Meeting Memo: %s\n\n", title)
	fmt.Fprintf(&b, "**Date:** %s\n\n", date)

	if len(notes) == 0 {
		b.WriteString("*No notes recorded*\n")
		return b.String()
	}

	for _, section := range memoSections {
		var lines []string
		for _, n := range notes {
			if n.NoteType == section.noteType {
				lines = append(lines, noteBullet(n))
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", section.heading)
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// noteBullet renders one note row. Content that fails to decode is emitted
// verbatim rather than dropped.
func noteBullet(n db.Note) string {
	var fields map[string]string
	if err := json.Unmarshal([]byte(n.Content), &fields); err != nil {
		return strings.TrimSpace(n.Content)
	}

	var head, tail string
	switch n.NoteType {
	case "key_point":
		head, tail = fields["topic"], fields["summary"]
	case "decision":
		head, tail = fields["decision"], fields["rationale"]
	case "action_item":
		head, tail = fields["task"], fields["owner"]
		if dl := fields["deadline"]; dl != "" {
			if tail != "" {
				tail += ", "
			}
			tail += "due " + dl
		}
	case "risk":
		head, tail = fields["risk"], fields["impact"]
	}
	if head == "" {
		return strings.TrimSpace(n.Content)
	}
	if tail != "" {
		return fmt.Sprintf("**%s** — %s", head, tail)
	}
	return fmt.Sprintf("**%s**", head)
}
