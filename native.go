package goSession

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/session"
)

// Native is the host session primitive a [Handler] layers on. Implementations own
// id issuance, the cookie and storage; the handler only reads and writes raw
// values under namespaced keys.
//
// A Native serves a single request and is not safe for concurrent use.
type Native interface {
	Started() bool
	HeadersSent() bool
	Start(ctx context.Context) error
	ID() string
	Lookup(key string) ([]byte, bool)
	Put(key string, raw []byte)
	Remove(key string)
	Clear()
	RegenerateID(ctx context.Context) error
	Destroy(ctx context.Context) error
	Commit(ctx context.Context) error
}

// resumer is implemented by natives that can tell a loaded session from a fresh one.
type resumer interface {
	Resumed() bool
}

// valueCounter is implemented by natives whose storage caps the number of values.
type valueCounter interface {
	Len() int
}

// redisNative is the default [Native]: a cookie carrying a 128-bit id and a
// [session.Record] persisted through the manager's store.
type redisNative struct {
	m   *Manager
	w   *responseWriter
	r   *http.Request
	rec *session.Record

	started   bool
	resumed   bool
	dirty     bool
	destroyed bool
}

func newRedisNative(m *Manager, w *responseWriter, r *http.Request) *redisNative {
	return &redisNative{m: m, w: w, r: r}
}

func (n *redisNative) Started() bool {
	return n.started
}

func (n *redisNative) Resumed() bool {
	return n.resumed
}

func (n *redisNative) HeadersSent() bool {
	return n.w.HeadersSent()
}

func (n *redisNative) ID() string {
	if n.rec == nil {
		return ""
	}
	return n.rec.ID
}

// Start loads the record named by the request cookie or mints a new one.
//
//	Performance: 1 Redis GET when a well-formed cookie is present, none otherwise.
func (n *redisNative) Start(ctx context.Context) error {
	if n.started {
		return nil
	}
	if n.destroyed {
		return ErrNativeNotStarted
	}
	if n.HeadersSent() {
		return ErrHeadersSent
	}

	if c, err := n.r.Cookie(n.m.config.Cookie.Name); err == nil && internal.ValidSessionID(c.Value) {
		rec, err := n.m.store.Load(ctx, c.Value)
		switch {
		case err == nil:
			n.rec = rec
			n.started = true
			n.resumed = true
			return nil
		case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionCorrupt):
		default:
			return err
		}
	}

	id, err := internal.NewSessionID()
	if err != nil {
		return err
	}

	now := n.m.now()
	n.rec = &session.Record{
		ID:        id.String(),
		Values:    map[string][]byte{},
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(n.m.config.Session.AbsoluteLifetime).Unix(),
	}
	n.started = true
	n.dirty = true
	n.setCookie(n.rec.ID)
	return nil
}

func (n *redisNative) Lookup(key string) ([]byte, bool) {
	if n.rec == nil {
		return nil, false
	}
	raw, ok := n.rec.Values[key]
	return raw, ok
}

func (n *redisNative) Len() int {
	if n.rec == nil {
		return 0
	}
	return len(n.rec.Values)
}

func (n *redisNative) Put(key string, raw []byte) {
	if n.rec == nil {
		return
	}
	n.rec.Values[key] = raw
	n.dirty = true
}

func (n *redisNative) Remove(key string) {
	if n.rec == nil {
		return
	}
	if _, ok := n.rec.Values[key]; !ok {
		return
	}
	delete(n.rec.Values, key)
	n.dirty = true
}

func (n *redisNative) Clear() {
	if n.rec == nil {
		return
	}
	n.rec.Values = map[string][]byte{}
	n.dirty = true
}

// RegenerateID moves the session to a fresh id, deleting the old record and
// reissuing the cookie.
func (n *redisNative) RegenerateID(ctx context.Context) error {
	if !n.started || n.rec == nil {
		return ErrNativeNotStarted
	}
	if n.HeadersSent() {
		return ErrHeadersSent
	}

	id, err := internal.NewSessionID()
	if err != nil {
		return err
	}
	if err := n.m.store.Delete(ctx, n.rec.ID); err != nil {
		return err
	}

	n.rec.ID = id.String()
	n.resumed = false
	n.dirty = true
	n.setCookie(n.rec.ID)
	return nil
}

// Destroy drops every value, expires the cookie and deletes the stored record.
func (n *redisNative) Destroy(ctx context.Context) error {
	if !n.started || n.rec == nil {
		return ErrNativeNotStarted
	}

	id := n.rec.ID
	n.Clear()
	n.expireCookie()
	n.started = false
	n.destroyed = true
	n.dirty = false

	return n.m.store.Delete(ctx, id)
}

// Commit saves a modified record or renews the idle TTL of an unmodified one.
//
//	Performance: 1 Redis SET or EXPIRE.
func (n *redisNative) Commit(ctx context.Context) error {
	if !n.started || n.destroyed || n.rec == nil {
		return nil
	}

	idle := n.m.config.Session.IdleTimeout
	if !n.dirty {
		err := n.m.store.Touch(ctx, n.rec, idle)
		if !errors.Is(err, session.ErrSessionNotFound) {
			return err
		}
	}

	if err := n.m.store.Save(ctx, n.rec, idle); err != nil {
		return err
	}
	n.dirty = false
	return nil
}

func (n *redisNative) setCookie(id string) {
	if n.HeadersSent() {
		return
	}
	cfg := n.m.config.Cookie
	http.SetCookie(n.w, &http.Cookie{
		Name:     cfg.Name,
		Value:    id,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(n.m.config.Session.AbsoluteLifetime / time.Second),
		Secure:   cfg.Secure,
		HttpOnly: cfg.HTTPOnly,
		SameSite: cfg.SameSite,
	})
}

func (n *redisNative) expireCookie() {
	if n.HeadersSent() {
		return
	}
	cfg := n.m.config.Cookie
	http.SetCookie(n.w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(1, 0),
		Secure:   cfg.Secure,
		HttpOnly: cfg.HTTPOnly,
		SameSite: cfg.SameSite,
	})
}
