package goSession

import (
	"context"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Manager is built once per process by [Builder] and hands out one [Handler] per
// request. It is safe for concurrent use.
type Manager struct {
	config     Config
	namespace  string
	redis      redis.UniversalClient
	store      *session.Store
	principals PrincipalProvider
	logger     zerolog.Logger
	metrics    *Metrics
	audit      *internalaudit.Dispatcher
	now        func() time.Time
}

// Begin starts a handler for r backed by the Redis native session. The returned
// ResponseWriter must be used for the rest of the request so that cookie changes
// are refused once headers are out.
//
// A nil manager returns an invalid handler and w unchanged.
func (m *Manager) Begin(w http.ResponseWriter, r *http.Request) (*Handler, http.ResponseWriter) {
	if m == nil || r == nil {
		return &Handler{}, w
	}

	rw := wrapResponseWriter(w)
	principal := m.principals.Principal(r)
	return m.BeginNative(r.Context(), newRedisNative(m, rw, r), principal), rw
}

// BeginNative runs the fixation guard over an arbitrary [Native] and returns the
// bound handler.
func (m *Manager) BeginNative(ctx context.Context, native Native, principal string) *Handler {
	if m == nil || native == nil {
		return &Handler{}
	}

	h := &Handler{
		m:         m,
		native:    native,
		principal: normalizePrincipal(principal),
		namespace: m.namespace,
		startedAt: m.clock(),
	}
	h.guard(ctx)
	return h
}

// SessionKey returns namespace + "-" + key for the manager's configuration.
func (m *Manager) SessionKey(key string) string {
	if m == nil {
		return key
	}
	return m.namespace + "-" + key
}

// Namespace returns the resolved key namespace.
func (m *Manager) Namespace() string {
	if m == nil {
		return ""
	}
	return m.namespace
}

// Config returns a copy of the configuration the manager was built with.
func (m *Manager) Config() Config {
	if m == nil {
		return Config{}
	}
	return cloneConfig(m.config)
}

// Store exposes the Redis native store for admin tooling.
func (m *Manager) Store() *session.Store {
	if m == nil {
		return nil
	}
	return m.store
}

// Logger returns the manager's logger.
func (m *Manager) Logger() zerolog.Logger {
	if m == nil {
		return zerolog.Nop()
	}
	return m.logger
}

// EstimateActiveSessions counts stored native sessions with a SCAN. Admin use only.
func (m *Manager) EstimateActiveSessions(ctx context.Context) (int, error) {
	if m == nil || m.store == nil {
		return 0, ErrManagerNotReady
	}
	return m.store.EstimateActiveSessions(ctx)
}

// Ping checks Redis availability and returns the round trip latency.
func (m *Manager) Ping(ctx context.Context) (time.Duration, error) {
	if m == nil || m.store == nil {
		return 0, ErrManagerNotReady
	}
	return m.store.Ping(ctx)
}

// Close drains the audit dispatcher. The Redis client is owned by the caller.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

func (m *Manager) metricObserve(id MetricID, d time.Duration) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Observe(id, d)
}

func (m *Manager) clock() time.Time {
	if m == nil || m.now == nil {
		return time.Now()
	}
	return m.now()
}
