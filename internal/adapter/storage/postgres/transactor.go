package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultLockTimeout bounds how long a transaction waits on a row lock.
const DefaultLockTimeout = 5 * time.Second

// Transactor implements ports.DBTransactor. Transactions run at READ COMMITTED
// and rely on SELECT ... FOR UPDATE for wallet, invoice and job rows; a lock
// held past the timeout fails the statement with SQLSTATE 55P03.
type Transactor struct {
	pool        Pool
	lockTimeout time.Duration
}

// NewTransactor creates a Transactor with DefaultLockTimeout.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout returns a copy that uses d; zero disables the limit.
func (t *Transactor) WithLockTimeout(d time.Duration) *Transactor {
	return &Transactor{pool: t.pool, lockTimeout: d}
}

// Begin starts a transaction and applies the lock timeout to it.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	if t.lockTimeout <= 0 {
		return tx, nil
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}
	return tx, nil
}
