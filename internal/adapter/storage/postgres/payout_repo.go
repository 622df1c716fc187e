package postgres

import (
	"context"
	"errors"
	"fmt"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const payoutColumns = `id, contractor_id, invoice_id, kind, amount::text, source_currency, destination_currency,
	fx_rate::text, fx_fee::text, status, provider_ref, quote_id, ledger_entry_id, failure_reason,
	estimated_arrival, created_at, updated_at`

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

// Create inserts a payout within a database transaction.
func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payout) error {
	query := `INSERT INTO payouts (id, contractor_id, invoice_id, kind, amount, source_currency,
		destination_currency, fx_rate, fx_fee, status, provider_ref, quote_id, ledger_entry_id,
		failure_reason, estimated_arrival, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.ContractorID, p.InvoiceID, p.Kind, p.Amount.String(), p.SourceCurrency,
		p.DestinationCurrency, p.FXRate.String(), p.FXFee.String(), p.Status, p.ProviderRef,
		p.QuoteID, p.LedgerEntryID, p.FailureReason, p.EstimatedArrival, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	p := &domain.Payout{}
	var amount, rate, fee string
	err := row.Scan(&p.ID, &p.ContractorID, &p.InvoiceID, &p.Kind, &amount, &p.SourceCurrency,
		&p.DestinationCurrency, &rate, &fee, &p.Status, &p.ProviderRef, &p.QuoteID,
		&p.LedgerEntryID, &p.FailureReason, &p.EstimatedArrival, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	if p.FXRate, err = parseDecimal("fx_rate", rate); err != nil {
		return nil, err
	}
	if p.FXFee, err = parseDecimal("fx_fee", fee); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID fetches a payout (without locking).
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	p, err := scanPayout(r.pool.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	return p, nil
}

// GetByIDForUpdate fetches a payout with pessimistic locking.
func (r *PayoutRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payout, error) {
	p, err := scanPayout(tx.QueryRow(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout for update: %w", err)
	}
	return p, nil
}

// Update writes the status and failure reason of a payout.
func (r *PayoutRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Payout) error {
	tag, err := tx.Exec(ctx,
		`UPDATE payouts SET status = $1, failure_reason = $2, updated_at = $3 WHERE id = $4`,
		p.Status, p.FailureReason, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout not found: %s", p.ID)
	}
	return nil
}

// ListByContractor returns a contractor's payouts, newest first.
func (r *PayoutRepo) ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]domain.Payout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE contractor_id = $1 ORDER BY created_at DESC`, contractorID)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	payouts := []domain.Payout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, *p)
	}
	return payouts, rows.Err()
}
