package goSession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// Handler is one request's view of one user's session. It adds namespaced keys,
// per-entry expiry and the fixation guard on top of a [Native].
//
// Every store operation is a safe no-op or returns its default while the handler
// has no valid session. A destroyed handler never becomes valid again.
// A Handler is not safe for concurrent use.
type Handler struct {
	m         *Manager
	native    Native
	principal string
	namespace string

	initialized bool
	valid       bool
	regenerated bool

	startedAt time.Time
}

// SessionKey returns the storage key for logical key k: namespace + "-" + k.
func (h *Handler) SessionKey(key string) string {
	if h == nil {
		return key
	}
	return h.namespace + "-" + key
}

// Valid reports whether a native session was established and not destroyed.
func (h *Handler) Valid() bool {
	return h != nil && h.valid
}

// ID returns the native session id, or "" without a valid session.
func (h *Handler) ID() string {
	if !h.Valid() {
		return ""
	}
	return h.native.ID()
}

// Principal returns the principal id the handler was bound to.
func (h *Handler) Principal() string {
	if h == nil {
		return AnonymousPrincipal
	}
	return h.principal
}

// Get returns the JSON-decoded value stored under key, or def when the session is
// invalid, the key is absent, the entry is malformed or it has expired. Expired
// entries are removed as a side effect.
func (h *Handler) Get(key string, def any) any {
	entry, sk, ok := h.entry(key)
	if !ok {
		return def
	}
	if entry.ExpiredAt(h.now().Unix()) {
		h.native.Remove(sk)
		h.m.metricInc(MetricEntryExpired)
		return def
	}

	var v any
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		return def
	}
	return v
}

// Scan decodes the value stored under key into dst. It follows the miss rules of
// [Handler.Get] and reports whether dst was written.
func (h *Handler) Scan(key string, dst any) bool {
	entry, sk, ok := h.entry(key)
	if !ok {
		return false
	}
	if entry.ExpiredAt(h.now().Unix()) {
		h.native.Remove(sk)
		h.m.metricInc(MetricEntryExpired)
		return false
	}
	return json.Unmarshal(entry.Value, dst) == nil
}

// Value is the typed form of [Handler.Get].
func Value[T any](h *Handler, key string, def T) T {
	var v T
	if !h.Scan(key, &v) {
		return def
	}
	return v
}

// Set stores value under key with no expiry.
func (h *Handler) Set(key string, value any) error {
	return h.SetTTL(key, value, 0)
}

// SetTTL stores value under key. A ttl <= 0 never expires; otherwise the entry
// expires ceil(ttl) seconds from now. Without a valid session SetTTL does nothing.
//
// Writes the native record could not persist are refused here, so one bad key
// never fails the Commit of the whole session.
func (h *Handler) SetTTL(key string, value any, ttl time.Duration) error {
	if !h.Valid() {
		return nil
	}

	sk := h.SessionKey(key)
	if len(sk) > session.MaxKeyLength {
		return ErrKeyTooLong
	}
	if c, ok := h.native.(valueCounter); ok {
		if _, exists := h.native.Lookup(sk); !exists && c.Len() >= session.MaxValues {
			return ErrTooManyValues
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValueEncoding, err)
	}

	entry := session.Entry{Value: data}
	if ttl > 0 {
		entry.ExpireAt = h.now().Unix() + ceilSeconds(ttl)
	}

	raw, err := session.EncodeEntry(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValueEncoding, err)
	}
	if max := h.m.config.Session.MaxEntrySize; max > 0 && len(raw) > max {
		return ErrValueTooLarge
	}

	h.native.Put(sk, raw)
	return nil
}

// Exists reports whether key holds a live entry. It never removes anything.
func (h *Handler) Exists(key string) bool {
	entry, _, ok := h.entry(key)
	if !ok {
		return false
	}
	return !entry.ExpiredAt(h.now().Unix())
}

// Delete removes key.
func (h *Handler) Delete(key string) {
	if !h.Valid() {
		return
	}
	h.native.Remove(h.SessionKey(key))
}

// Expired reports whether key holds an entry whose expiry has passed. Absent and
// malformed entries are not expired.
func (h *Handler) Expired(key string) bool {
	entry, _, ok := h.entry(key)
	if !ok {
		return false
	}
	return entry.ExpiredAt(h.now().Unix())
}

// Regenerate moves the native session to a fresh id. It runs at most once per
// handler; failures are logged and counted, never returned.
func (h *Handler) Regenerate(ctx context.Context) {
	if !h.Valid() || h.regenerated {
		return
	}
	h.regenerated = true

	oldID := h.native.ID()
	if err := h.native.RegenerateID(ctx); err != nil {
		h.m.logger.Warn().Err(err).Str("session_id", oldID).Msg("session regenerate failed")
		h.m.emitAudit(ctx, AuditEventSessionRegenerated, false, h.principal, oldID, err, nil)
		return
	}

	newID := h.native.ID()
	h.m.metricInc(MetricSessionRegenerated)
	h.m.logger.Info().Str("principal", h.principal).Msg("session regenerated")
	h.m.emitAudit(ctx, AuditEventSessionRegenerated, true, h.principal, newID, nil, func() map[string]string {
		return map[string]string{"previous_session_id": oldID}
	})
}

// Destroy clears every value, expires the cookie and destroys the native session.
// The handler is invalid afterwards for the rest of its life.
func (h *Handler) Destroy(ctx context.Context) {
	if !h.Valid() {
		return
	}

	id := h.native.ID()
	h.native.Clear()
	err := h.native.Destroy(ctx)
	h.valid = false

	h.m.metricInc(MetricSessionDestroyed)
	if err != nil {
		h.m.logger.Warn().Err(err).Str("session_id", id).Msg("session destroy failed")
	} else {
		h.m.logger.Info().Str("principal", h.principal).Msg("session destroyed")
	}
	h.m.emitAudit(ctx, AuditEventSessionDestroyed, err == nil, h.principal, id, err, nil)
}

// Commit persists the native session. It is a no-op for handlers that never held
// a session.
func (h *Handler) Commit(ctx context.Context) error {
	if h == nil || h.native == nil || !h.initialized {
		return nil
	}

	start := time.Now()
	err := h.native.Commit(ctx)
	h.m.metricObserve(MetricCommitLatency, time.Since(start))

	if err != nil {
		h.m.metricInc(MetricCommitFailure)
		h.m.emitAudit(ctx, AuditEventSessionCommitFailed, false, h.principal, h.native.ID(), err, nil)
		return err
	}
	h.m.metricInc(MetricCommitSuccess)
	return nil
}

func (h *Handler) entry(key string) (session.Entry, string, bool) {
	if !h.Valid() {
		return session.Entry{}, "", false
	}

	sk := h.SessionKey(key)
	raw, ok := h.native.Lookup(sk)
	if !ok {
		return session.Entry{}, sk, false
	}
	entry, err := session.DecodeEntry(raw)
	if err != nil {
		return session.Entry{}, sk, false
	}
	return entry, sk, true
}

func (h *Handler) now() time.Time {
	return h.m.clock()
}

func ceilSeconds(d time.Duration) int64 {
	s := int64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
