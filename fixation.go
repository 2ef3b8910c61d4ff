package goSession

import (
	"context"

	"github.com/spf13/cast"
)

// guard establishes the native session and binds it to the handler's principal.
// It runs once per handler. A stored principal that differs from the current one
// means the id may have been fixed by someone else, so the id is regenerated
// before the new principal is recorded.
func (h *Handler) guard(ctx context.Context) {
	if h.initialized {
		return
	}
	h.initialized = true

	if h.native.Started() {
		h.m.metricInc(MetricSessionResumed)
	} else if !h.native.HeadersSent() {
		if err := h.native.Start(ctx); err != nil {
			h.m.metricInc(MetricSessionStartFailed)
			h.m.logger.Debug().Err(err).Msg("session start failed")
			h.m.emitAudit(ctx, AuditEventSessionStartFailed, false, h.principal, "", err, nil)
		} else if r, ok := h.native.(resumer); ok && r.Resumed() {
			h.m.metricInc(MetricSessionResumed)
		} else {
			h.m.metricInc(MetricSessionStarted)
			h.m.emitAudit(ctx, AuditEventSessionStarted, true, h.principal, h.native.ID(), nil, nil)
		}
	}

	h.valid = h.native.Started()
	if !h.valid {
		return
	}

	trackingKey := h.m.config.Session.UserCheckKey
	stored := h.Get(trackingKey, nil)
	if stored == nil {
		h.bindPrincipal(trackingKey)
		return
	}

	previous := cast.ToString(stored)
	if previous == h.principal {
		return
	}

	h.m.metricInc(MetricFixationDetected)
	h.m.logger.Info().
		Str("previous_principal", previous).
		Str("principal", h.principal).
		Msg("session principal changed")
	h.m.emitAudit(ctx, AuditEventSessionFixationDetected, true, h.principal, h.native.ID(), nil, func() map[string]string {
		return map[string]string{
			"previous_principal": previous,
			"principal":          h.principal,
		}
	})

	h.Regenerate(ctx)
	h.bindPrincipal(trackingKey)
}

func (h *Handler) bindPrincipal(trackingKey string) {
	if err := h.Set(trackingKey, h.principal); err != nil {
		h.m.logger.Warn().Err(err).Msg("session principal bind failed")
	}
}
