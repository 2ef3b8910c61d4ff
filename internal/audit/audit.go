package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle event types.
const (
	EventSessionStarted          = "session_started"
	EventSessionStartFailed      = "session_start_failed"
	EventSessionFixationDetected = "session_fixation_detected"
	EventSessionRegenerated      = "session_regenerated"
	EventSessionDestroyed        = "session_destroyed"
	EventSessionCommitFailed     = "session_commit_failed"
)

// Event is the canonical audit event model used by internal dispatching and root APIs.
type Event struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	PrincipalID string            `json:"principal_id,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewEvent stamps a fresh event id and UTC timestamp.
func NewEvent(eventType string, success bool) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
	}
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
