package service

import (
	"context"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"

	"github.com/rs/zerolog"
)

// EffectDispatcherImpl emits the notifications and audit records of a
// committed operation. Failures are logged and never returned.
type EffectDispatcherImpl struct {
	notifier ports.Notifier
	audit    ports.AuditService
	log      zerolog.Logger
}

// NewEffectDispatcher creates a new EffectDispatcherImpl.
func NewEffectDispatcher(notifier ports.Notifier, audit ports.AuditService, log zerolog.Logger) *EffectDispatcherImpl {
	return &EffectDispatcherImpl{notifier: notifier, audit: audit, log: log}
}

// Dispatch must only be called after the producing transaction has committed.
func (d *EffectDispatcherImpl) Dispatch(ctx context.Context, effects domain.Effects) {
	for i := range effects.Audits {
		entry := effects.Audits[i]
		d.audit.Log(ctx, &entry)
	}

	for _, n := range effects.Notifications {
		if err := d.notifier.Notify(ctx, n); err != nil {
			d.log.Warn().Err(err).
				Str("event", string(n.Event)).
				Str("user_id", n.UserID).
				Msg("notification dispatch failed")
		}
	}
}
