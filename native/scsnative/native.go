package scsnative

import (
	"context"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alexedwards/scs/v2"
)

// Native adapts one request's scs session to [goSession.Native]. ctx must carry
// session data loaded by LoadAndSave; scs persists and writes the cookie itself,
// so Commit is a no-op.
type Native struct {
	sm  *scs.SessionManager
	ctx context.Context

	started   bool
	resumed   bool
	destroyed bool
}

var _ goSession.Native = (*Native)(nil)

// New returns an adapter bound to ctx.
func New(ctx context.Context, sm *scs.SessionManager) *Native {
	return &Native{sm: sm, ctx: ctx}
}

func (n *Native) Started() bool {
	return n.started && !n.destroyed
}

// Resumed reports whether the request presented an existing session token.
func (n *Native) Resumed() bool {
	return n.resumed
}

// HeadersSent is always false: scs buffers the response until its cookie is set.
func (n *Native) HeadersSent() bool {
	return false
}

func (n *Native) Start(context.Context) error {
	if n.started {
		return nil
	}
	if n.sm == nil || !loaded(n.ctx, n.sm) {
		return goSession.ErrNativeNotStarted
	}
	n.started = true
	n.resumed = n.sm.Token(n.ctx) != ""
	return nil
}

func (n *Native) ID() string {
	if !n.started {
		return ""
	}
	return n.sm.Token(n.ctx)
}

func (n *Native) Lookup(key string) ([]byte, bool) {
	if !n.Started() {
		return nil, false
	}
	raw, ok := n.sm.Get(n.ctx, key).([]byte)
	return raw, ok
}

func (n *Native) Put(key string, raw []byte) {
	if !n.Started() {
		return
	}
	n.sm.Put(n.ctx, key, raw)
}

func (n *Native) Remove(key string) {
	if !n.Started() {
		return
	}
	n.sm.Remove(n.ctx, key)
}

func (n *Native) Clear() {
	if !n.Started() {
		return
	}
	_ = n.sm.Clear(n.ctx)
}

func (n *Native) RegenerateID(context.Context) error {
	if !n.Started() {
		return goSession.ErrNativeNotStarted
	}
	return n.sm.RenewToken(n.ctx)
}

func (n *Native) Destroy(context.Context) error {
	if !n.started || n.destroyed {
		return nil
	}
	n.destroyed = true
	return n.sm.Destroy(n.ctx)
}

func (n *Native) Commit(context.Context) error {
	return nil
}

// loaded reports whether ctx carries scs session data. scs panics otherwise.
func loaded(ctx context.Context, sm *scs.SessionManager) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	sm.Status(ctx)
	return true
}
