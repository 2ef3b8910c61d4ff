package goSession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.JitterEnabled = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newManagerTest(t *testing.T, cfg Config, sink AuditSink) (*Manager, *miniredis.Miniredis, *testClock, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clock := newTestClock()

	m, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return m, mr, clock, func() {
		m.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

// fakeNative is an in-memory Native that records lifecycle calls.
type fakeNative struct {
	started     bool
	headersSent bool
	startErr    error
	regenErr    error
	id          string
	values      map[string][]byte
	extraValues int

	startCalls   int
	regenCalls   int
	destroyCalls int
	commitCalls  int
	clearCalls   int
}

func newFakeNative() *fakeNative {
	return &fakeNative{id: "sid-1", values: map[string][]byte{}}
}

func (n *fakeNative) Started() bool     { return n.started }
func (n *fakeNative) HeadersSent() bool { return n.headersSent }
func (n *fakeNative) ID() string        { return n.id }

func (n *fakeNative) Start(context.Context) error {
	n.startCalls++
	if n.startErr != nil {
		return n.startErr
	}
	n.started = true
	return nil
}

func (n *fakeNative) Lookup(key string) ([]byte, bool) {
	raw, ok := n.values[key]
	return raw, ok
}

func (n *fakeNative) Len() int                   { return len(n.values) + n.extraValues }
func (n *fakeNative) Put(key string, raw []byte) { n.values[key] = raw }
func (n *fakeNative) Remove(key string)          { delete(n.values, key) }

func (n *fakeNative) Clear() {
	n.clearCalls++
	n.values = map[string][]byte{}
}

func (n *fakeNative) RegenerateID(context.Context) error {
	n.regenCalls++
	if n.regenErr != nil {
		return n.regenErr
	}
	n.id = n.id + "-r"
	return nil
}

func (n *fakeNative) Destroy(context.Context) error {
	n.destroyCalls++
	n.started = false
	return nil
}

func (n *fakeNative) Commit(context.Context) error {
	n.commitCalls++
	return nil
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) waitFor(t *testing.T, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.events:
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected audit event %q", eventType)
			return AuditEvent{}
		}
	}
}
