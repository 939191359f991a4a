package app

import (
	"github.com/mlahaye/parley/internal/bus"
	"github.com/mlahaye/parley/internal/db"
)

// DaemonConnectedMsg is sent when the daemon connection is established.
type DaemonConnectedMsg struct {
	Client  *bus.Client
	Manager *bus.Manager
}

// DaemonConnectErrorMsg is sent when the daemon connection fails.
type DaemonConnectErrorMsg struct {
	Err error
}

// DaemonLostMsg is sent when an established connection dies.
type DaemonLostMsg struct {
	Client *bus.Client
	Err    error
}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}

// SpeechEventMsg carries a decoded speech event for the main transcript.
type SpeechEventMsg struct {
	Payload bus.SpeechPayload
}

// TranslationEventMsg carries a decoded translation update.
type TranslationEventMsg struct {
	Payload bus.TranslationPayload
}

// NotesUpdatedMsg carries a decoded incremental notes batch.
type NotesUpdatedMsg struct {
	Payload bus.NotesUpdatedPayload
}

// NotesErrorMsg carries a notes extraction failure.
type NotesErrorMsg struct {
	Payload bus.NotesErrorPayload
}

// OverlaySpeechMsg carries a speech event delivered on the overlay's own
// subscription. The overlay window is fed independently of the main
// transcript, so the two may diverge transiently.
type OverlaySpeechMsg struct {
	Payload bus.SpeechPayload
}

// OverlayTranslationMsg carries a translation update for the overlay window.
type OverlayTranslationMsg struct {
	Payload bus.TranslationPayload
}

// MeetingStartedMsg carries the daemon's id for a newly started meeting.
type MeetingStartedMsg struct {
	MeetingID int64
}

// MeetingStoppedMsg confirms the meeting stopped.
type MeetingStoppedMsg struct{}

// OpFailedMsg surfaces a failed daemon operation or store write. These are
// shown transiently; the daemon never retries an operation on our behalf.
type OpFailedMsg struct {
	Op  string
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// storeOpenedMsg delivers the opened SQLite store.
type storeOpenedMsg struct{ store *db.Store }
