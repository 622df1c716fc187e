package postgres

import (
	"context"
	"errors"
	"fmt"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, owner_type, owner_id, currency, balance::text, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, owner_type, owner_id, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.OwnerType, w.OwnerID, w.Currency,
		w.Balance.String(), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var balance string
	if err := row.Scan(&w.ID, &w.OwnerType, &w.OwnerID, &w.Currency, &balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	b, err := parseDecimal("balance", balance)
	if err != nil {
		return nil, err
	}
	w.Balance = b
	return w, nil
}

func (r *WalletRepo) getOne(ctx context.Context, q querier, op, query string, args ...any) (*domain.Wallet, error) {
	w, err := scanWallet(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	return r.getOne(ctx, r.pool, "get wallet by id",
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
}

// GetByOwner fetches a wallet by owner and currency (non-locking read).
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	return r.getOne(ctx, r.pool, "get wallet by owner",
		`SELECT `+walletColumns+` FROM wallets WHERE owner_type = $1 AND owner_id = $2 AND currency = $3`,
		ownerType, ownerID, currency)
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.getOne(ctx, tx, "get wallet for update by id",
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
}

// GetByOwnerForUpdate fetches a wallet by owner and currency with pessimistic locking.
func (r *WalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	return r.getOne(ctx, tx, "get wallet for update by owner",
		`SELECT `+walletColumns+` FROM wallets WHERE owner_type = $1 AND owner_id = $2 AND currency = $3 FOR UPDATE`,
		ownerType, ownerID, currency)
}

// UpdateBalance overwrites the cached balance within a transaction.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance.String(), walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}
