package goSession

import (
	"context"
	"io"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is the event shape handed to every [AuditSink].
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the manager's async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events into a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// Audit event types emitted by the manager.
const (
	AuditEventSessionStarted          = internalaudit.EventSessionStarted
	AuditEventSessionStartFailed      = internalaudit.EventSessionStartFailed
	AuditEventSessionFixationDetected = internalaudit.EventSessionFixationDetected
	AuditEventSessionRegenerated      = internalaudit.EventSessionRegenerated
	AuditEventSessionDestroyed        = internalaudit.EventSessionDestroyed
	AuditEventSessionCommitFailed     = internalaudit.EventSessionCommitFailed
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := internalaudit.NewEvent(eventType, success)
	event.PrincipalID = principalID
	event.SessionID = sessionID
	event.IP = clientIPFromContext(ctx)
	event.Metadata = metadata
	if err != nil {
		event.Error = err.Error()
	}

	m.audit.Emit(ctx, event)
}
