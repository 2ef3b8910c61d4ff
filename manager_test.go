package goSession

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestManagerNilSafe(t *testing.T) {
	var m *Manager

	rec := httptest.NewRecorder()
	h, w := m.Begin(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if h.Valid() {
		t.Fatal("nil manager must return an invalid handler")
	}
	if w != http.ResponseWriter(rec) {
		t.Fatal("nil manager must return the writer unchanged")
	}
	if _, err := m.EstimateActiveSessions(context.Background()); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if _, err := m.Ping(context.Background()); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if m.AuditDropped() != 0 || len(m.MetricsSnapshot().Counters) != 0 {
		t.Fatal("nil manager must report empty metrics")
	}
	if m.SessionKey("k") != "k" {
		t.Fatal("nil manager must not namespace keys")
	}
	m.Close()
}

func TestManagerEstimateAndPing(t *testing.T) {
	m, _, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	for i := 0; i < 3; i++ {
		h, _ := m.Begin(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if err := h.Commit(context.Background()); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	}

	n, err := m.EstimateActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("EstimateActiveSessions failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sessions, got %d", n)
	}
	if _, err := m.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestManagerPrincipalProvider(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	m, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithPrincipalProvider(PrincipalFunc(func(r *http.Request) string {
			return r.Header.Get("X-User")
		})).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-User", "bob")
	h, _ := m.Begin(httptest.NewRecorder(), r)
	if h.Principal() != "bob" {
		t.Fatalf("expected bob, got %q", h.Principal())
	}
	if got := h.Get("user_check", nil); got != "bob" {
		t.Fatalf("expected tracking key bob, got %v", got)
	}
}

func TestContextPrincipalDefaultsToAnonymous(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ContextPrincipal.Principal(r); got != AnonymousPrincipal {
		t.Fatalf("expected anonymous, got %q", got)
	}
	r = r.WithContext(WithPrincipal(r.Context(), "7"))
	if got := ContextPrincipal.Principal(r); got != "7" {
		t.Fatalf("expected 7, got %q", got)
	}
}
