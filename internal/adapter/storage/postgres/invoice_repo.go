package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `id, contractor_id, amount::text, currency, description, status, due_date,
	timeline, created_at, updated_at`

// InvoiceRepo implements ports.InvoiceRepository.
type InvoiceRepo struct {
	pool Pool
}

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(pool Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

// Create inserts an invoice within a database transaction.
func (r *InvoiceRepo) Create(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	timeline, err := json.Marshal(inv.Timeline)
	if err != nil {
		return fmt.Errorf("encode invoice timeline: %w", err)
	}

	query := `INSERT INTO invoices (id, contractor_id, amount, currency, description, status, due_date,
		timeline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		inv.ID, inv.ContractorID, inv.Amount.String(), inv.Currency, inv.Description,
		inv.Status, inv.DueDate, timeline, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var amount string
	var timeline []byte
	err := row.Scan(&inv.ID, &inv.ContractorID, &amount, &inv.Currency, &inv.Description,
		&inv.Status, &inv.DueDate, &timeline, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if inv.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &inv.Timeline); err != nil {
			return nil, fmt.Errorf("decode invoice timeline: %w", err)
		}
	}
	return inv, nil
}

// GetByID fetches an invoice (without locking).
func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetByIDForUpdate fetches an invoice with pessimistic locking.
func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice for update: %w", err)
	}
	return inv, nil
}

// Update writes the status and timeline of an invoice.
func (r *InvoiceRepo) Update(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	timeline, err := json.Marshal(inv.Timeline)
	if err != nil {
		return fmt.Errorf("encode invoice timeline: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE invoices SET status = $1, timeline = $2, updated_at = $3 WHERE id = $4`,
		inv.Status, timeline, inv.UpdatedAt, inv.ID)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice not found: %s", inv.ID)
	}
	return nil
}

// ListByContractor returns a contractor's invoices, newest first.
func (r *InvoiceRepo) ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]domain.Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE contractor_id = $1 ORDER BY created_at DESC`, contractorID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}
