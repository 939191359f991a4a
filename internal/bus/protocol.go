// Package bus provides the client and protocol types for talking to the
// parley daemon over a Unix socket using NDJSON. The daemon owns audio
// capture, speech recognition, translation, and note extraction; this side
// only invokes named operations and consumes named event streams.
package bus

import "encoding/json"

// Event names streamed by the daemon.
const (
	EventSpeechPartial     = "speech-partial"
	EventTranslationUpdate = "translation-update"
	EventNotesUpdated      = "notes-updated"
	EventNotesError        = "notes-error"
)

// Operation names accepted by the daemon.
const (
	OpStartMeeting  = "start-meeting"
	OpStopMeeting   = "stop-meeting"
	OpTranslateText = "translate-text"
	OpUpdateNote    = "update-note"
	OpDeleteNote    = "delete-note"
	OpSubscribe     = "subscribe"
	OpUnsubscribe   = "unsubscribe"
)

// Request is sent from the client to the daemon. ID correlates the response
// on the shared connection and is filled in by the client.
type Request struct {
	ID          string   `json:"id"`
	Op          string   `json:"op"`
	SourceLang  string   `json:"source_lang,omitempty"`
	TargetLangs []string `json:"target_langs,omitempty"`
	Text        string   `json:"text,omitempty"`
	SegmentID   string   `json:"segment_id,omitempty"`
	NoteID      int64    `json:"note_id,omitempty"`
	Content     string   `json:"content,omitempty"`
	Events      []string `json:"events,omitempty"`
}

// Response is returned by the daemon for a single request.
type Response struct {
	ID        string `json:"id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	MeetingID int64  `json:"meeting_id,omitempty"`
}

// Event is one streamed frame for a subscribed event name. The payload shape
// depends on the event name; decode it with the typed payload structs below.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// SpeechPayload is the payload of a speech-partial event. A frame with
// IsFinal set finalizes the segment identified by SegmentID; otherwise it
// only updates the in-flight caption.
type SpeechPayload struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	StartMs   uint64 `json:"start_ms"`
	EndMs     uint64 `json:"end_ms"`
	IsFinal   bool   `json:"is_final"`
	SegmentID string `json:"segment_id"`
}

// TranslationPayload is the payload of a translation-update event.
type TranslationPayload struct {
	SegmentID  string `json:"segment_id"`
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	IsFinal    bool   `json:"is_final"`
}

// NoteBatch groups newly extracted note items by category. Items are opaque
// JSON here; the reconciler decodes them per category.
type NoteBatch struct {
	KeyPoints   []json.RawMessage `json:"key_points"`
	Decisions   []json.RawMessage `json:"decisions"`
	ActionItems []json.RawMessage `json:"action_items"`
	Risks       []json.RawMessage `json:"risks"`
}

// NotesUpdatedPayload is the payload of a notes-updated event. InsertedIDs
// carries the authoritative row ids for the batch items in category order;
// it may be shorter than the batch or absent entirely.
type NotesUpdatedPayload struct {
	MeetingID   int64     `json:"meeting_id"`
	NewNotes    NoteBatch `json:"new_notes"`
	TotalCount  int       `json:"total_count"`
	InsertedIDs []int64   `json:"inserted_ids"`
}

// NotesErrorPayload is the payload of a notes-error event.
type NotesErrorPayload struct {
	MeetingID int64  `json:"meeting_id"`
	Error     string `json:"error"`
}

// envelope is the wire superset of Response and Event, used by the read loop
// to demux frames on the shared connection.
type envelope struct {
	ID      string          `json:"id,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Error   string          `json:"error,omitempty"`
	Meeting int64           `json:"meeting_id,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
