package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reports/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples sessions from whoever renders them
// ─────────────────────────────────────────────────────────────

// EventEmitter delivers change notifications to the host: the HTTP event
// stream, the MCP server log, or a test recorder.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

const (
	EventReportChanged    = "report:changed"
	EventReportSaved      = "report:saved"
	EventReportSaveFailed = "report:save-failed"
	EventVersionCreated   = "report:version-created"
	EventExternalChange   = "report:external-change"
	EventReportDeleted    = "report:deleted"
	EventSelectionChanged = "editor:selection-changed"
)

// ChangeEvent accompanies report:changed.
type ChangeEvent struct {
	ReportID string `json:"reportId"`
	Action   string `json:"action"`
	CanUndo  bool   `json:"canUndo"`
	CanRedo  bool   `json:"canRedo"`
}

// SaveEvent accompanies report:saved, report:save-failed and
// report:version-created.
type SaveEvent struct {
	ReportID  string    `json:"reportId"`
	VersionID string    `json:"versionId,omitempty"`
	Label     string    `json:"label,omitempty"`
	SavedAt   time.Time `json:"savedAt"`
	Error     string    `json:"error,omitempty"`
}

type SelectionEvent struct {
	ReportID string             `json:"reportId"`
	Editor   domain.EditorState `json:"editor"`
}

// LogEmitter writes every event to a zerolog logger. It is the emitter used
// when no interactive client is attached.
type LogEmitter struct {
	Log zerolog.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Log.Debug().Str("event", event).Interface("data", data).Msg("event")
}

// MultiEmitter fans an event out to several emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		if e != nil {
			e.Emit(ctx, event, data)
		}
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Autosave emits from timer goroutines, so recording is locked.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// Last returns the most recent emission of event.
func (m *MockEmitter) Last(event string) (EmittedEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Events) - 1; i >= 0; i-- {
		if m.Events[i].Event == event {
			return m.Events[i], true
		}
	}
	return EmittedEvent{}, false
}
