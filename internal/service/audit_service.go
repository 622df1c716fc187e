package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	auditPersistTimeout = 5 * time.Second
	defaultAuditLimit   = 50
	maxAuditLimit       = 500
)

// AuditServiceImpl writes audit entries in the background. Persistence
// failures are logged and never reach the caller.
type AuditServiceImpl struct {
	repo ports.AuditRepository
	log  zerolog.Logger
	wg   sync.WaitGroup
}

// NewAuditService creates a new audit service.
// If repo is nil, audit logs are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget).
func (s *AuditServiceImpl) Log(_ context.Context, entry *domain.AuditLog) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ev := s.log.Info().
			Str("actor_id", entry.ActorID).
			Str("action", string(entry.Action)).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID)
		for k, v := range entry.Metadata {
			ev = ev.Str("meta_"+k, v)
		}
		ev.Msg("audit")

		if s.repo == nil {
			return
		}
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), auditPersistTimeout)
		defer cancel()
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
		}
	}()
}

// Flush blocks until every pending audit write has finished.
func (s *AuditServiceImpl) Flush() {
	s.wg.Wait()
}

// Recent returns the newest audit entries first.
func (s *AuditServiceImpl) Recent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if s.repo == nil {
		return []domain.AuditLog{}, nil
	}
	if limit < 1 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	logs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list audit logs: %w", err))
	}
	return logs, nil
}
