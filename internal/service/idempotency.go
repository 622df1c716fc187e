package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// idempotencyGuard replays the first response of a keyed request.
// Layer 1 is the Redis cache, layer 2 the idempotency log written in the
// business transaction. A nil cache skips layer 1.
type idempotencyGuard struct {
	repo  ports.IdempotencyRepository
	cache ports.IdempotencyCache
	log   zerolog.Logger
}

// lookup returns the stored response for key, or nil.
func (g idempotencyGuard) lookup(ctx context.Context, key string) ([]byte, error) {
	if g.cache != nil {
		cached, err := g.cache.Get(ctx, key)
		if err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return cached, nil
		}
	}

	idempLog, err := g.repo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return idempLog.ResponseJSON, nil
	}
	return nil, nil
}

// record writes the response into the idempotency log inside tx.
func (g idempotencyGuard) record(ctx context.Context, tx pgx.Tx, key string, resourceID uuid.UUID, resp any) ([]byte, error) {
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	entry := &domain.IdempotencyLog{
		Key:          key,
		ResourceID:   resourceID,
		ResponseJSON: respJSON,
		CreatedAt:    time.Now().UTC(),
	}
	if err := g.repo.Create(ctx, tx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			return nil, apperror.ErrDuplicateRequest()
		}
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}
	return respJSON, nil
}

// remember caches a committed response (best-effort).
func (g idempotencyGuard) remember(ctx context.Context, key string, respJSON []byte) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, key, respJSON, idempotencyTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency in redis")
	}
}

func replay[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached response: %w", err))
	}
	return &v, nil
}
