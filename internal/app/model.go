// Package app hosts the bubbletea event loop that merges the daemon's
// event streams into the engine reducers and renders the result. All state
// transitions happen inside Update, one message at a time, which is what
// lets the reducers stay lock-free.
package app

import (
	"encoding/json"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlahaye/parley/internal/bus"
	"github.com/mlahaye/parley/internal/config"
	"github.com/mlahaye/parley/internal/db"
	"github.com/mlahaye/parley/internal/engine"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusTranscript PanelFocus = iota
	FocusNotes
)

// noteFilters cycles through the notes panel filters; the empty category
// shows everything.
var noteFilters = []engine.Category{
	"",
	engine.CategoryKeyPoint,
	engine.CategoryDecision,
	engine.CategoryActionItem,
	engine.CategoryRisk,
}

// Model is the root bubbletea model.
type Model struct {
	cfg *config.Config

	// Connection state
	client           *bus.Client
	mgr              *bus.Manager
	connected        bool
	connError        string
	reconnecting     bool
	reconnectAttempt int

	// Engine state
	session *engine.Session
	mirror  *engine.Mirror

	// Overlay subscriptions, cancelled independently of the main ones.
	overlayOn   bool
	overlaySubs []*bus.Subscription

	// DB
	store *db.Store

	// events is fed by subscription handlers on the client's read loop and
	// drained by waitEvent, so every event is reduced inside Update.
	events chan tea.Msg

	// UI state
	width            int
	height           int
	focusedPanel     PanelFocus
	transcriptScroll int
	transcriptLive   bool
	noteFilter       int
	selectedNote     int
	editing          bool
	editNoteID       int64
	editBuffer       string
	statusText       string
	errorMessage     string
	errorTransient   bool
}

// New creates a Model from the loaded configuration.
func New(cfg *config.Config) Model {
	return Model{
		cfg:            cfg,
		session:        engine.NewSession(cfg.TargetLangs),
		mirror:         engine.NewMirror(cfg.Overlay.Window),
		overlayOn:      cfg.Overlay.Enabled,
		events:         make(chan tea.Msg, 256),
		transcriptLive: true,
		focusedPanel:   FocusTranscript,
		statusText:     "Connecting to parley daemon...",
	}
}

func (m Model) socketPath() string {
	if m.cfg.SocketPath != "" {
		return m.cfg.SocketPath
	}
	return bus.SocketPath()
}

func (m Model) dbPath() string {
	if m.cfg.DBPath != "" {
		return m.cfg.DBPath
	}
	return db.DefaultPath()
}

// Init connects to the daemon, opens the store, and starts draining events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		connectCmd(m.socketPath()),
		openStoreCmd(m.dbPath()),
		m.waitEvent(),
	)
}

// connectCmd dials the daemon socket.
func connectCmd(socketPath string) tea.Cmd {
	return func() tea.Msg {
		client, err := bus.Dial(socketPath)
		if err != nil {
			return DaemonConnectErrorMsg{Err: err}
		}
		return DaemonConnectedMsg{Client: client, Manager: bus.NewManager(client)}
	}
}

// watchCmd waits for the connection to die.
func watchCmd(client *bus.Client) tea.Cmd {
	return func() tea.Msg {
		<-client.Done()
		return DaemonLostMsg{Client: client, Err: client.Err()}
	}
}

// waitEvent delivers the next daemon event into the update loop.
func (m Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// openStoreCmd opens the SQLite store.
func openStoreCmd(path string) tea.Cmd {
	return func() tea.Msg {
		store, err := db.Open(path)
		if err != nil {
			return OpFailedMsg{Op: "open store", Err: err}
		}
		return storeOpenedMsg{store: store}
	}
}

func startMeetingCmd(client *bus.Client, sourceLang string, targets []string) tea.Cmd {
	langs := append([]string(nil), targets...)
	return func() tea.Msg {
		resp, err := client.Invoke(bus.Request{
			Op:          bus.OpStartMeeting,
			SourceLang:  sourceLang,
			TargetLangs: langs,
		})
		if err != nil {
			return OpFailedMsg{Op: bus.OpStartMeeting, Err: err}
		}
		return MeetingStartedMsg{MeetingID: resp.MeetingID}
	}
}

func stopMeetingCmd(client *bus.Client) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.Invoke(bus.Request{Op: bus.OpStopMeeting}); err != nil {
			return OpFailedMsg{Op: bus.OpStopMeeting, Err: err}
		}
		return MeetingStoppedMsg{}
	}
}

// translateCmd fans out a translation request for one finalized segment.
// Fire-and-forget: results come back on the translation-update stream.
func translateCmd(client *bus.Client, seg *engine.Segment, targets []string) tea.Cmd {
	langs := append([]string(nil), targets...)
	return func() tea.Msg {
		_, err := client.Invoke(bus.Request{
			Op:          bus.OpTranslateText,
			SegmentID:   seg.ID,
			Text:        seg.Text,
			SourceLang:  seg.Language,
			TargetLangs: langs,
		})
		if err != nil {
			return OpFailedMsg{Op: bus.OpTranslateText, Err: err}
		}
		return nil
	}
}

func updateNoteCmd(client *bus.Client, id int64, content string) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.Invoke(bus.Request{Op: bus.OpUpdateNote, NoteID: id, Content: content}); err != nil {
			return OpFailedMsg{Op: bus.OpUpdateNote, Err: err}
		}
		return nil
	}
}

func deleteNoteCmd(client *bus.Client, id int64) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.Invoke(bus.Request{Op: bus.OpDeleteNote, NoteID: id}); err != nil {
			return OpFailedMsg{Op: bus.OpDeleteNote, Err: err}
		}
		return nil
	}
}

func saveMeetingCmd(store *db.Store, rec db.Meeting) tea.Cmd {
	return func() tea.Msg {
		if err := store.CreateMeeting(rec); err != nil {
			return OpFailedMsg{Op: "save meeting", Err: err}
		}
		return nil
	}
}

func endMeetingCmd(store *db.Store, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := store.EndMeeting(id, time.Now()); err != nil {
			return OpFailedMsg{Op: "save meeting", Err: err}
		}
		return nil
	}
}

func saveSegmentCmd(store *db.Store, rec db.Segment) tea.Cmd {
	return func() tea.Msg {
		if err := store.InsertSegment(rec); err != nil {
			return OpFailedMsg{Op: "save segment", Err: err}
		}
		return nil
	}
}

func saveTranslationCmd(store *db.Store, rec db.Translation) tea.Cmd {
	return func() tea.Msg {
		if err := store.UpsertTranslation(rec); err != nil {
			return OpFailedMsg{Op: "save translation", Err: err}
		}
		return nil
	}
}

func saveNotesCmd(store *db.Store, recs []db.Note) tea.Cmd {
	return func() tea.Msg {
		for _, rec := range recs {
			if err := store.InsertNote(rec); err != nil {
				return OpFailedMsg{Op: "save note", Err: err}
			}
		}
		return nil
	}
}

// subscribeMain registers the primary consumers. Handlers run on the
// client's read loop: they only decode and forward into the events channel.
func (m *Model) subscribeMain() {
	m.mgr.Subscribe(bus.EventSpeechPartial, func(ev bus.Event) {
		var p bus.SpeechPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			m.events <- SpeechEventMsg{Payload: p}
		}
	})
	m.mgr.Subscribe(bus.EventTranslationUpdate, func(ev bus.Event) {
		var p bus.TranslationPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			m.events <- TranslationEventMsg{Payload: p}
		}
	})
	m.mgr.Subscribe(bus.EventNotesUpdated, func(ev bus.Event) {
		var p bus.NotesUpdatedPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			m.events <- NotesUpdatedMsg{Payload: p}
		}
	})
	m.mgr.Subscribe(bus.EventNotesError, func(ev bus.Event) {
		var p bus.NotesErrorPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			m.events <- NotesErrorMsg{Payload: p}
		}
	})
}

// subscribeOverlay registers the overlay's own consumers. They are held
// separately so toggling the overlay cancels them without touching the
// main transcript.
func (m *Model) subscribeOverlay() {
	m.overlaySubs = []*bus.Subscription{
		m.mgr.Subscribe(bus.EventSpeechPartial, func(ev bus.Event) {
			var p bus.SpeechPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				m.events <- OverlaySpeechMsg{Payload: p}
			}
		}),
		m.mgr.Subscribe(bus.EventTranslationUpdate, func(ev bus.Event) {
			var p bus.TranslationPayload
			if json.Unmarshal(ev.Payload, &p) == nil {
				m.events <- OverlayTranslationMsg{Payload: p}
			}
		}),
	}
}

// cancelOverlay tears down the overlay subscriptions. Cancellation is
// asynchronous-safe: a cancel racing an in-flight subscribe still never
// dispatches afterwards.
func (m *Model) cancelOverlay() {
	subs := m.overlaySubs
	m.overlaySubs = nil
	go func() {
		for _, s := range subs {
			s.Cancel()
		}
	}()
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case DaemonConnectedMsg:
		m.client = msg.Client
		m.mgr = msg.Manager
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		m.subscribeMain()
		if m.overlayOn {
			m.subscribeOverlay()
		}
		return m, watchCmd(m.client)

	case DaemonConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Daemon not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case DaemonLostMsg:
		if msg.Client != m.client {
			return m, nil // stale watcher from a replaced connection
		}
		m.connected = false
		m.client = nil
		m.mgr = nil
		m.overlaySubs = nil
		if msg.Err != nil {
			m.connError = msg.Err.Error()
		}
		m.reconnecting = true
		m.statusText = "Disconnected. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.socketPath())

	case storeOpenedMsg:
		m.store = msg.store
		return m, nil

	case MeetingStartedMsg:
		m.session.Start(msg.MeetingID, m.cfg.SourceLang)
		m.mirror.Clear()
		m.transcriptScroll = 0
		m.transcriptLive = true
		m.selectedNote = 0
		m.statusText = "Recording"
		if m.store != nil {
			return m, saveMeetingCmd(m.store, db.Meeting{
				ID:          msg.MeetingID,
				Title:       "Meeting " + time.Now().Format("2006-01-02 15:04"),
				StartedAt:   time.Now(),
				SourceLang:  m.cfg.SourceLang,
				TargetLangs: m.session.ActiveLangs(),
				Status:      "recording",
			})
		}
		return m, nil

	case MeetingStoppedMsg:
		id := m.session.MeetingID()
		m.session.Stop()
		m.statusText = "Idle"
		if m.store != nil && id != 0 {
			return m, endMeetingCmd(m.store, id)
		}
		return m, nil

	case SpeechEventMsg:
		cmds := []tea.Cmd{m.waitEvent()}
		if seg := m.session.ApplySpeech(msg.Payload); seg != nil {
			if m.store != nil {
				cmds = append(cmds, saveSegmentCmd(m.store, db.Segment{
					ID:        seg.ID,
					MeetingID: m.session.MeetingID(),
					Text:      seg.Text,
					Language:  seg.Language,
					StartMs:   seg.StartMs,
					EndMs:     seg.EndMs,
					CreatedAt: seg.ReceivedAt,
				}))
			}
			if m.connected && m.session.Translating() && len(m.session.ActiveLangs()) > 0 {
				cmds = append(cmds, translateCmd(m.client, seg, m.session.ActiveLangs()))
			}
		}
		if m.transcriptLive {
			m.scrollToBottom()
		}
		return m, tea.Batch(cmds...)

	case TranslationEventMsg:
		cmds := []tea.Cmd{m.waitEvent()}
		if m.session.ApplyTranslation(msg.Payload) && m.store != nil {
			cmds = append(cmds, saveTranslationCmd(m.store, db.Translation{
				SegmentID:  msg.Payload.SegmentID,
				TargetLang: msg.Payload.TargetLang,
				Text:       msg.Payload.Text,
				CreatedAt:  time.Now(),
			}))
		}
		return m, tea.Batch(cmds...)

	case NotesUpdatedMsg:
		cmds := []tea.Cmd{m.waitEvent()}
		appended := m.session.ApplyNotes(msg.Payload)
		if m.store != nil {
			var recs []db.Note
			for _, n := range appended {
				if n.Provisional() {
					continue // only authoritative ids reach the database
				}
				recs = append(recs, db.Note{
					ID:        n.ID,
					MeetingID: n.MeetingID,
					NoteType:  string(n.Category),
					Content:   n.Content,
					CreatedAt: n.CreatedAt,
				})
			}
			if len(recs) > 0 {
				cmds = append(cmds, saveNotesCmd(m.store, recs))
			}
		}
		return m, tea.Batch(cmds...)

	case NotesErrorMsg:
		m.session.ApplyNotesError(msg.Payload)
		m.errorMessage = msg.Payload.Error
		m.errorTransient = true
		return m, tea.Batch(m.waitEvent(), clearTransientErrorCmd())

	case OverlaySpeechMsg:
		m.mirror.ApplySpeech(msg.Payload)
		return m, m.waitEvent()

	case OverlayTranslationMsg:
		m.mirror.ApplyTranslation(msg.Payload)
		return m, m.waitEvent()

	case OpFailedMsg:
		m.errorMessage = msg.Err.Error()
		m.errorTransient = true
		return m, clearTransientErrorCmd()

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.handleEditKey(msg)
	}

	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		// Closing the connection drops every registration daemon-side; no
		// need to unsubscribe one by one on the way out.
		if m.client != nil {
			m.client.Close()
		}
		if m.store != nil {
			m.store.Close()
		}
		return m, tea.Quit

	case KeySpace:
		if !m.connected {
			return m, nil
		}
		if m.session.Active() {
			return m, stopMeetingCmd(m.client)
		}
		return m, startMeetingCmd(m.client, m.cfg.SourceLang, m.session.ActiveLangs())

	case "1", "2", "3", "4":
		idx := int(msg.String()[0] - '1')
		if idx < len(m.cfg.TargetLangs) {
			m.session.ToggleLang(m.cfg.TargetLangs[idx])
		}
		return m, nil

	case KeyTab:
		if m.focusedPanel == FocusTranscript {
			m.focusedPanel = FocusNotes
		} else {
			m.focusedPanel = FocusTranscript
		}
		return m, nil

	case KeyNotesFilter:
		m.noteFilter = (m.noteFilter + 1) % len(noteFilters)
		m.selectedNote = 0
		return m, nil

	case KeyTranslate:
		m.session.SetTranslating(!m.session.Translating())
		return m, nil

	case KeyOverlay:
		if m.overlayOn {
			m.overlayOn = false
			m.cancelOverlay()
			m.mirror.Clear()
		} else {
			m.overlayOn = true
			if m.mgr != nil {
				m.subscribeOverlay()
			}
		}
		return m, nil

	case KeyJ:
		if m.focusedPanel == FocusNotes {
			if m.selectedNote < len(m.visibleNotes())-1 {
				m.selectedNote++
			}
		}
		return m, nil

	case KeyK:
		if m.focusedPanel == FocusNotes && m.selectedNote > 0 {
			m.selectedNote--
		}
		return m, nil

	case KeyEditNote:
		if m.focusedPanel != FocusNotes {
			return m, nil
		}
		notes := m.visibleNotes()
		if m.selectedNote < len(notes) {
			m.editing = true
			m.editNoteID = notes[m.selectedNote].ID
			m.editBuffer = notes[m.selectedNote].Content
		}
		return m, nil

	case KeyDeleteNote:
		if m.focusedPanel != FocusNotes {
			return m, nil
		}
		notes := m.visibleNotes()
		if m.selectedNote >= len(notes) {
			return m, nil
		}
		id := notes[m.selectedNote].ID
		m.session.Notes.Remove(id)
		if m.selectedNote >= len(m.visibleNotes()) {
			m.selectedNote = max(0, len(m.visibleNotes())-1)
		}
		var cmds []tea.Cmd
		if id > 0 {
			if m.connected {
				cmds = append(cmds, deleteNoteCmd(m.client, id))
			}
			if m.store != nil {
				store := m.store
				cmds = append(cmds, func() tea.Msg {
					if err := store.DeleteNote(id); err != nil {
						return OpFailedMsg{Op: "delete note", Err: err}
					}
					return nil
				})
			}
		}
		return m, tea.Batch(cmds...)

	case KeyUp:
		if m.focusedPanel == FocusTranscript {
			m.transcriptLive = false
			if m.transcriptScroll > 0 {
				m.transcriptScroll--
			}
		}
		return m, nil

	case KeyDown:
		if m.focusedPanel == FocusTranscript {
			maxScroll := m.maxTranscriptScroll()
			m.transcriptScroll++
			if m.transcriptScroll >= maxScroll {
				m.transcriptScroll = maxScroll
				m.transcriptLive = true
			}
		}
		return m, nil
	}

	return m, nil
}

// handleEditKey processes keys while editing a note's content inline.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.editing = false
		m.editBuffer = ""
		return m, nil

	case KeyEnter:
		m.editing = false
		id, content := m.editNoteID, m.editBuffer
		m.editBuffer = ""
		m.session.Notes.Edit(id, content)
		var cmds []tea.Cmd
		if id > 0 {
			if m.connected {
				cmds = append(cmds, updateNoteCmd(m.client, id, content))
			}
			if m.store != nil {
				store := m.store
				cmds = append(cmds, func() tea.Msg {
					if err := store.UpdateNote(id, content); err != nil {
						return OpFailedMsg{Op: "update note", Err: err}
					}
					return nil
				})
			}
		}
		return m, tea.Batch(cmds...)

	case KeyBackspace:
		if len(m.editBuffer) > 0 {
			runes := []rune(m.editBuffer)
			m.editBuffer = string(runes[:len(runes)-1])
		}
		return m, nil

	default:
		if msg.Type == tea.KeyRunes {
			m.editBuffer += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.editBuffer += " "
		}
		return m, nil
	}
}

// visibleNotes returns the notes panel content under the current filter.
func (m Model) visibleNotes() []engine.Note {
	if cat := noteFilters[m.noteFilter]; cat != "" {
		return m.session.Notes.ByCategory(cat)
	}
	return m.session.Notes.Notes()
}

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	total := len(m.transcriptLines())
	visible := m.transcriptVisibleLines()
	if total <= visible {
		return 0
	}
	return total - visible
}
