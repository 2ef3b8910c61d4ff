package natssink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubject is the subject prefix events are published under. The event
// type is appended, e.g. "gosession.audit.session_destroyed".
const DefaultSubject = "gosession.audit"

// Publisher is the subset of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config holds NATS connection settings for [Connect].
type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int // -1 for infinite
}

// DefaultConfig returns local development defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "gosession-audit",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(cfg Config, logger zerolog.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Sink is a [goSession.AuditSink] publishing one message per event.
type Sink struct {
	pub     Publisher
	subject string
	failed  atomic.Uint64
}

var _ goSession.AuditSink = (*Sink)(nil)

// New returns a sink publishing under subject, or [DefaultSubject] when empty.
func New(pub Publisher, subject string) *Sink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Sink{pub: pub, subject: subject}
}

// Emit publishes event. Encoding and publish failures are counted, never returned.
func (s *Sink) Emit(_ context.Context, event goSession.AuditEvent) {
	if s == nil || s.pub == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if err := s.pub.Publish(s.subject+"."+event.EventType, data); err != nil {
		s.failed.Add(1)
	}
}

// Failed returns the number of events that could not be published.
func (s *Sink) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failed.Load()
}
