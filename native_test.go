package goSession

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal"
)

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func requestWithCookie(c *http.Cookie, principal string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r.WithContext(WithPrincipal(r.Context(), principal))
}

func TestRedisNativeStartIssuesCookieAndPersists(t *testing.T) {
	m, mr, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec := httptest.NewRecorder()
	h, w := m.Begin(rec, requestWithCookie(nil, "42"))
	if !h.Valid() {
		t.Fatal("expected valid handler")
	}
	if err := h.Set("theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := h.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)

	c := sessionCookie(t, rec, "gosession")
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if !internal.ValidSessionID(c.Value) {
		t.Fatalf("expected well-formed session id, got %q", c.Value)
	}
	if c.Value != h.ID() {
		t.Fatalf("cookie %q does not match handler id %q", c.Value, h.ID())
	}
	if !c.HttpOnly || c.Path != "/" {
		t.Fatalf("unexpected cookie attributes %+v", c)
	}
	if !mr.Exists("gs:" + c.Value) {
		t.Fatal("expected record in redis")
	}
	if ttl := mr.TTL("gs:" + c.Value); ttl <= 0 || ttl > 30*time.Minute {
		t.Fatalf("expected idle ttl, got %v", ttl)
	}
	if got := m.metrics.Value(MetricSessionStarted); got != 1 {
		t.Fatalf("expected started 1, got %d", got)
	}
}

func TestRedisNativeResumesAcrossRequests(t *testing.T) {
	m, _, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec1 := httptest.NewRecorder()
	h1, _ := m.Begin(rec1, requestWithCookie(nil, "42"))
	_ = h1.Set("cart", []string{"apple"})
	if err := h1.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	c := sessionCookie(t, rec1, "gosession")

	rec2 := httptest.NewRecorder()
	h2, _ := m.Begin(rec2, requestWithCookie(c, "42"))
	if h2.ID() != c.Value {
		t.Fatalf("expected resumed id %q, got %q", c.Value, h2.ID())
	}
	items := Value(h2, "cart", []string(nil))
	if len(items) != 1 || items[0] != "apple" {
		t.Fatalf("expected cart to survive, got %v", items)
	}
	if sessionCookie(t, rec2, "gosession") != nil {
		t.Fatal("resumed session must not reissue the cookie")
	}
	if got := m.metrics.Value(MetricSessionResumed); got != 1 {
		t.Fatalf("expected resumed 1, got %d", got)
	}
}

func TestRedisNativeUnknownCookieMintsNewID(t *testing.T) {
	m, _, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	stale, err := internal.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h, _ := m.Begin(rec, requestWithCookie(&http.Cookie{Name: "gosession", Value: stale.String()}, "1"))
	if h.ID() == stale.String() {
		t.Fatal("unknown id must not be adopted")
	}
	if sessionCookie(t, rec, "gosession") == nil {
		t.Fatal("expected fresh cookie")
	}
}

func TestRedisNativeMalformedCookieIgnored(t *testing.T) {
	m, _, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec := httptest.NewRecorder()
	h, _ := m.Begin(rec, requestWithCookie(&http.Cookie{Name: "gosession", Value: "../../etc"}, "1"))
	if !h.Valid() || h.ID() == "../../etc" {
		t.Fatalf("expected fresh session, got valid=%v id=%q", h.Valid(), h.ID())
	}
}

func TestRedisNativeFixationRegeneratesID(t *testing.T) {
	m, mr, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec1 := httptest.NewRecorder()
	h1, _ := m.Begin(rec1, requestWithCookie(nil, ""))
	_ = h1.Set("cart", "kept")
	if err := h1.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	fixed := sessionCookie(t, rec1, "gosession")

	rec2 := httptest.NewRecorder()
	h2, _ := m.Begin(rec2, requestWithCookie(fixed, "alice"))
	if err := h2.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	fresh := sessionCookie(t, rec2, "gosession")
	if fresh == nil || fresh.Value == fixed.Value {
		t.Fatal("expected a new session id after principal change")
	}
	if mr.Exists("gs:" + fixed.Value) {
		t.Fatal("old record must be deleted on regeneration")
	}
	if !mr.Exists("gs:" + fresh.Value) {
		t.Fatal("expected record under the new id")
	}
	if got := h2.Get("cart", nil); got != "kept" {
		t.Fatalf("values must move with the session, got %v", got)
	}
	if got := h2.Get("user_check", nil); got != "alice" {
		t.Fatalf("expected tracking key alice, got %v", got)
	}
}

func TestRedisNativeDestroyExpiresCookieAndRecord(t *testing.T) {
	m, mr, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec1 := httptest.NewRecorder()
	h1, _ := m.Begin(rec1, requestWithCookie(nil, "42"))
	_ = h1.Set("k", "v")
	_ = h1.Commit(context.Background())
	c := sessionCookie(t, rec1, "gosession")

	rec2 := httptest.NewRecorder()
	h2, _ := m.Begin(rec2, requestWithCookie(c, "42"))
	h2.Destroy(context.Background())
	if err := h2.Commit(context.Background()); err != nil {
		t.Fatalf("Commit after Destroy failed: %v", err)
	}

	if mr.Exists("gs:" + c.Value) {
		t.Fatal("expected record deleted")
	}
	expired := sessionCookie(t, rec2, "gosession")
	if expired == nil || expired.MaxAge >= 0 || expired.Value != "" {
		t.Fatalf("expected expiring cookie, got %+v", expired)
	}
	if h2.Exists("k") {
		t.Fatal("expected no values after Destroy")
	}
}

func TestRedisNativeHeadersSentLeavesSessionInvalid(t *testing.T) {
	m, _, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec := httptest.NewRecorder()
	w := wrapResponseWriter(rec)
	w.WriteHeader(http.StatusOK)

	h, _ := m.Begin(w, requestWithCookie(nil, "42"))
	if h.Valid() {
		t.Fatal("expected invalid handler once headers are sent")
	}
}

func TestRedisNativeStartErrorOnRedisDown(t *testing.T) {
	m, mr, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	id, _ := internal.NewSessionID()
	mr.SetError("connection refused")

	rec := httptest.NewRecorder()
	h, _ := m.Begin(rec, requestWithCookie(&http.Cookie{Name: "gosession", Value: id.String()}, "42"))
	if h.Valid() {
		t.Fatal("expected invalid handler when redis is down")
	}
	if got := m.metrics.Value(MetricSessionStartFailed); got != 1 {
		t.Fatalf("expected start failure metric, got %d", got)
	}
}

func TestRedisNativeCommitTouchesUnmodified(t *testing.T) {
	m, mr, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec1 := httptest.NewRecorder()
	h1, _ := m.Begin(rec1, requestWithCookie(nil, "42"))
	_ = h1.Commit(context.Background())
	c := sessionCookie(t, rec1, "gosession")

	mr.FastForward(20 * time.Minute)

	rec2 := httptest.NewRecorder()
	h2, _ := m.Begin(rec2, requestWithCookie(c, "42"))
	if err := h2.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if ttl := mr.TTL("gs:" + c.Value); ttl <= 20*time.Minute {
		t.Fatalf("expected idle ttl renewed, got %v", ttl)
	}
}

func TestRedisNativeCommitFailure(t *testing.T) {
	m, mr, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec := httptest.NewRecorder()
	h, _ := m.Begin(rec, requestWithCookie(nil, "42"))
	mr.SetError("connection refused")

	err := h.Commit(context.Background())
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if got := m.metrics.Value(MetricCommitFailure); got != 1 {
		t.Fatalf("expected commit failure 1, got %d", got)
	}
}

func TestResponseWriterTracksHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := wrapResponseWriter(rec)
	if w.HeadersSent() {
		t.Fatal("fresh writer must not report headers sent")
	}
	if wrapResponseWriter(w) != w {
		t.Fatal("wrapping twice must reuse the writer")
	}
	_, _ = w.Write([]byte("x"))
	if !w.HeadersSent() {
		t.Fatal("Write must mark headers sent")
	}
	if w.Unwrap() != rec {
		t.Fatal("Unwrap must return the original writer")
	}
}

func TestRedisNativeOversizedKeyDoesNotBreakCommit(t *testing.T) {
	m, _, _, done := newManagerTest(t, testConfig(), nil)
	defer done()

	rec := httptest.NewRecorder()
	h, _ := m.Begin(rec, requestWithCookie(nil, "42"))
	if err := h.Set("small", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := h.Set(strings.Repeat("k", 70000), "v"); !errors.Is(err, ErrKeyTooLong) {
		t.Fatalf("expected ErrKeyTooLong, got %v", err)
	}
	if err := h.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	c := sessionCookie(t, rec, "gosession")
	h2, _ := m.Begin(httptest.NewRecorder(), requestWithCookie(c, "42"))
	if got := h2.Get("small", nil); got != "v" {
		t.Fatalf("expected small to be persisted, got %v", got)
	}
}
