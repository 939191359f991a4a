// Package db persists meetings, transcript segments, translations, and
// notes to SQLite so finished meetings stay exportable after the fact.
package db

import (
	"strings"
	"time"
)

// Meeting is one recorded meeting session.
type Meeting struct {
	ID          int64
	Title       string
	StartedAt   time.Time
	EndedAt     *time.Time
	SourceLang  string
	TargetLangs []string
	Status      string
}

// Segment is one finalized transcript row.
type Segment struct {
	ID        string
	MeetingID int64
	Text      string
	Language  string
	StartMs   uint64
	EndMs     uint64
	CreatedAt time.Time
}

// Translation is one final translation row for a segment.
type Translation struct {
	SegmentID  string
	TargetLang string
	Text       string
	CreatedAt  time.Time
}

// Note is one persisted note row. Only notes with authoritative ids are
// persisted; provisional ids never reach the database.
type Note struct {
	ID        int64
	MeetingID int64
	NoteType  string
	Content   string
	CreatedAt time.Time
}

func joinLangs(langs []string) string { return strings.Join(langs, ",") }

func splitLangs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
