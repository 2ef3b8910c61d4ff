package scsnative

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alexedwards/scs/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newManager(t *testing.T) *goSession.Manager {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goSession.DefaultConfig()
	cfg.Metrics.Enabled = true
	m, err := goSession.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func serve(t *testing.T, h http.Handler, cookie *http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func sessionCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNativeRoundTripsValuesAcrossRequests(t *testing.T) {
	m := newManager(t)
	sm := scs.New()

	var got string
	step := 0
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.BeginNative(r.Context(), New(r.Context(), sm), "42")
		if !sess.Valid() {
			t.Fatal("expected valid handler")
		}
		switch step {
		case 0:
			if err := sess.Set("theme", "dark"); err != nil {
				t.Fatalf("set: %v", err)
			}
		case 1:
			got, _ = sess.Get("theme", "").(string)
		}
	}))

	resp := serve(t, h, nil)
	cookie := sessionCookie(resp, sm.Cookie.Name)
	if cookie == nil {
		t.Fatal("expected scs session cookie")
	}

	step = 1
	serve(t, h, cookie)
	if got != "dark" {
		t.Fatalf("expected dark, got %q", got)
	}

	snap := m.MetricsSnapshot()
	if snap.Counters[goSession.MetricSessionStarted] != 1 || snap.Counters[goSession.MetricSessionResumed] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestNativeFixationRenewsToken(t *testing.T) {
	m := newManager(t)
	sm := scs.New()

	principal := "7"
	var before, after string
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := New(r.Context(), sm)
		if principal == "42" {
			before = sm.Token(r.Context())
		}
		m.BeginNative(r.Context(), n, principal)
		after = n.ID()
	}))

	cookie := sessionCookie(serve(t, h, nil), sm.Cookie.Name)
	if cookie == nil {
		t.Fatal("expected scs session cookie")
	}

	principal = "42"
	serve(t, h, cookie)
	if before == "" || after == "" || before == after {
		t.Fatalf("expected renewed token, before=%q after=%q", before, after)
	}
	if got := m.MetricsSnapshot().Counters[goSession.MetricFixationDetected]; got != 1 {
		t.Fatalf("expected 1 fixation, got %d", got)
	}
}

func TestNativeDestroyInvalidatesHandler(t *testing.T) {
	m := newManager(t)
	sm := scs.New()

	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.BeginNative(r.Context(), New(r.Context(), sm), "")
		_ = sess.Set("k", 1)
		sess.Destroy(r.Context())
		if sess.Valid() {
			t.Fatal("handler must be invalid after destroy")
		}
		if sess.Exists("k") {
			t.Fatal("destroyed handler must not report values")
		}
	}))
	serve(t, h, nil)
}

func TestNativeWithoutLoadedContext(t *testing.T) {
	n := New(context.Background(), scs.New())
	if err := n.Start(context.Background()); err != goSession.ErrNativeNotStarted {
		t.Fatalf("expected ErrNativeNotStarted, got %v", err)
	}
	if n.Started() || n.ID() != "" {
		t.Fatal("unloaded native must not be started")
	}

	m := newManager(t)
	if m.BeginNative(context.Background(), n, "1").Valid() {
		t.Fatal("expected invalid handler")
	}
}
