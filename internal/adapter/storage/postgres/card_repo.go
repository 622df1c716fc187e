package postgres

import (
	"context"
	"errors"
	"fmt"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cardColumns = `id, contractor_id, wallet_id, label, last4, provider, provider_ref, status,
	daily_limit::text, monthly_limit::text, created_at, updated_at`

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts a card within a database transaction.
func (r *CardRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Card) error {
	query := `INSERT INTO cards (id, contractor_id, wallet_id, label, last4, provider, provider_ref, status,
		daily_limit, monthly_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.ContractorID, c.WalletID, c.Label, c.Last4, c.Provider, c.ProviderRef, c.Status,
		c.DailyLimit.String(), c.MonthlyLimit.String(), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	var daily, monthly string
	err := row.Scan(&c.ID, &c.ContractorID, &c.WalletID, &c.Label, &c.Last4, &c.Provider,
		&c.ProviderRef, &c.Status, &daily, &monthly, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.DailyLimit, err = parseDecimal("daily_limit", daily); err != nil {
		return nil, err
	}
	if c.MonthlyLimit, err = parseDecimal("monthly_limit", monthly); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID fetches a card (without locking).
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	c, err := scanCard(r.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

// GetByIDForUpdate fetches a card with pessimistic locking.
func (r *CardRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Card, error) {
	c, err := scanCard(tx.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card for update: %w", err)
	}
	return c, nil
}

// UpdateStatus changes a card's status.
func (r *CardRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CardStatus) error {
	tag, err := tx.Exec(ctx, `UPDATE cards SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update card status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card not found: %s", id)
	}
	return nil
}

// ListByContractor returns a contractor's cards, newest first.
func (r *CardRepo) ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE contractor_id = $1 ORDER BY created_at DESC`, contractorID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}
