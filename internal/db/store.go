package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

const timeLayout = time.RFC3339Nano

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parley", "parley.sqlite")
}

// Open opens (creating if needed) the database with WAL and initializes the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateMeeting records the start of a meeting. The id is the daemon's;
// re-creating an existing id refreshes the row.
func (s *Store) CreateMeeting(m Meeting) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO meetings (id, title, started_at, ended_at, source_lang, target_langs, status)
		VALUES (?, ?, ?, NULL, ?, ?, ?)
	`, m.ID, m.Title, m.StartedAt.Format(timeLayout), m.SourceLang, joinLangs(m.TargetLangs), m.Status)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// EndMeeting marks a meeting as stopped.
func (s *Store) EndMeeting(id int64, endedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE meetings SET ended_at = ?, status = 'stopped' WHERE id = ?
	`, endedAt.Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("end meeting: %w", err)
	}
	return nil
}

// GetMeeting returns one meeting by id.
func (s *Store) GetMeeting(id int64) (*Meeting, error) {
	row := s.db.QueryRow(`
		SELECT id, title, started_at, ended_at, source_lang, target_langs, status
		FROM meetings WHERE id = ?
	`, id)

	var m Meeting
	var startedAt string
	var endedAt sql.NullString
	var langs string
	if err := row.Scan(&m.ID, &m.Title, &startedAt, &endedAt, &m.SourceLang, &langs, &m.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("meeting %d not found", id)
		}
		return nil, fmt.Errorf("scan meeting: %w", err)
	}

	m.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		m.EndedAt = &t
	}
	m.TargetLangs = splitLangs(langs)
	return &m, nil
}

// InsertSegment persists one finalized segment. Duplicate ids are ignored;
// the first final wins, matching the in-memory ledger.
func (s *Store) InsertSegment(seg Segment) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO segments (id, meeting_id, text, language, start_ms, end_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, seg.ID, seg.MeetingID, seg.Text, seg.Language, seg.StartMs, seg.EndMs, seg.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// MeetingSegments returns a meeting's segments in arrival order.
func (s *Store) MeetingSegments(meetingID int64) ([]Segment, error) {
	rows, err := s.db.Query(`
		SELECT id, meeting_id, text, language, start_ms, end_ms, created_at
		FROM segments WHERE meeting_id = ? ORDER BY rowid ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segs []Segment
	for rows.Next() {
		var seg Segment
		var createdAt string
		if err := rows.Scan(&seg.ID, &seg.MeetingID, &seg.Text, &seg.Language,
			&seg.StartMs, &seg.EndMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.CreatedAt = parseTime(createdAt)
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// UpsertTranslation persists one final translation cell. A re-delivered
// final replaces the stored text.
func (s *Store) UpsertTranslation(tr Translation) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO translations (segment_id, target_lang, text, created_at)
		VALUES (?, ?, ?, ?)
	`, tr.SegmentID, tr.TargetLang, tr.Text, tr.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return nil
}

// MeetingTranslations returns all final translations for a meeting's
// segments, ordered by segment arrival then language.
func (s *Store) MeetingTranslations(meetingID int64) ([]Translation, error) {
	rows, err := s.db.Query(`
		SELECT t.segment_id, t.target_lang, t.text, t.created_at
		FROM translations t
		JOIN segments seg ON seg.id = t.segment_id
		WHERE seg.meeting_id = ?
		ORDER BY seg.rowid ASC, t.target_lang ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	var trs []Translation
	for rows.Next() {
		var tr Translation
		var createdAt string
		if err := rows.Scan(&tr.SegmentID, &tr.TargetLang, &tr.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		tr.CreatedAt = parseTime(createdAt)
		trs = append(trs, tr)
	}
	return trs, rows.Err()
}

// InsertNote persists one note row under its authoritative id.
func (s *Store) InsertNote(n Note) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO notes (id, meeting_id, note_type, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, n.MeetingID, n.NoteType, n.Content, n.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// UpdateNote replaces a note's content.
func (s *Store) UpdateNote(id int64, content string) error {
	_, err := s.db.Exec(`UPDATE notes SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// DeleteNote removes a note row.
func (s *Store) DeleteNote(id int64) error {
	_, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// MeetingNotes returns a meeting's notes in insertion order, optionally
// filtered by note type.
func (s *Store) MeetingNotes(meetingID int64, noteType string) ([]Note, error) {
	query := `
		SELECT id, meeting_id, note_type, content, created_at
		FROM notes WHERE meeting_id = ?`
	args := []any{meetingID}
	if noteType != "" {
		query += ` AND note_type = ?`
		args = append(args, noteType)
	}
	query += ` ORDER BY rowid ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.MeetingID, &n.NoteType, &n.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
