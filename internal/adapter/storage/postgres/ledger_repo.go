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

const ledgerColumns = `id, wallet_id, entry_type, amount::text, currency, reference_type, reference_id,
	status, metadata, memo, created_at`

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends a ledger entry within a database transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	metadata, err := marshalMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode entry metadata: %w", err)
	}

	query := `INSERT INTO ledger_entries (id, wallet_id, entry_type, amount, currency, reference_type,
		reference_id, status, metadata, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		e.ID, e.WalletID, e.Type, e.Amount.String(), e.Currency, e.ReferenceType,
		e.ReferenceID, e.Status, metadata, e.Memo, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	var amount string
	var metadata []byte
	err := row.Scan(&e.ID, &e.WalletID, &e.Type, &amount, &e.Currency, &e.ReferenceType,
		&e.ReferenceID, &e.Status, &metadata, &e.Memo, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if e.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	if e.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID fetches a ledger entry (without locking).
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// GetByIDForUpdate locks a ledger entry row until the transaction ends.
func (r *LedgerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error) {
	e, err := scanEntry(tx.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry for update: %w", err)
	}
	return e, nil
}

// UpdateStatus changes the only mutable column of an entry.
func (r *LedgerRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.EntryStatus) error {
	tag, err := tx.Exec(ctx, `UPDATE ledger_entries SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update ledger entry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger entry not found: %s", id)
	}
	return nil
}

// ListByWallet returns a page of entries, newest first, plus the total count.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.pool.Query(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE wallet_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		walletID, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, total, nil
}

// SumPosted recomputes the signed total of posted entries.
func (r *LedgerRepo) SumPosted(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)::text
		FROM ledger_entries WHERE wallet_id = $1 AND status = 'posted'`

	var sum string
	if err := on(r.pool, tx).QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum posted entries: %w", err)
	}
	return parseDecimal("sum", sum)
}

// PendingTotals aggregates pending debits and credits separately.
func (r *LedgerRepo) PendingTotals(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (domain.PendingTotals, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE entry_type = 'DEBIT'), 0)::text,
		COALESCE(SUM(amount) FILTER (WHERE entry_type = 'CREDIT'), 0)::text
		FROM ledger_entries WHERE wallet_id = $1 AND status = 'pending'`

	var debits, credits string
	if err := on(r.pool, tx).QueryRow(ctx, query, walletID).Scan(&debits, &credits); err != nil {
		return domain.PendingTotals{}, fmt.Errorf("sum pending entries: %w", err)
	}
	d, err := parseDecimal("pending debits", debits)
	if err != nil {
		return domain.PendingTotals{}, err
	}
	c, err := parseDecimal("pending credits", credits)
	if err != nil {
		return domain.PendingTotals{}, err
	}
	return domain.PendingTotals{Debits: d, Credits: c}, nil
}
