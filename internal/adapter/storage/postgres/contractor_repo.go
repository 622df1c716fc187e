package postgres

import (
	"context"
	"errors"
	"fmt"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const contractorColumns = `id, org_id, name, email, country, currency, status, kyc_status, contract_active,
	invite_token, created_at, updated_at`

// ContractorRepo implements ports.ContractorRepository.
type ContractorRepo struct {
	pool Pool
}

// NewContractorRepo creates a new ContractorRepo.
func NewContractorRepo(pool Pool) *ContractorRepo {
	return &ContractorRepo{pool: pool}
}

func nullableToken(token string) *string {
	if token == "" {
		return nil
	}
	return &token
}

// Create inserts a contractor within a database transaction.
func (r *ContractorRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Contractor) error {
	query := `INSERT INTO contractors (id, org_id, name, email, country, currency, status, kyc_status,
		contract_active, invite_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		c.ID, c.OrgID, c.Name, c.Email, c.Country, c.Currency, c.Status, c.KYCStatus,
		c.ContractActive, nullableToken(c.InviteToken), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contractor: %w", err)
	}
	return nil
}

func scanContractor(row pgx.Row) (*domain.Contractor, error) {
	c := &domain.Contractor{}
	var token *string
	err := row.Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.Country, &c.Currency, &c.Status,
		&c.KYCStatus, &c.ContractActive, &token, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if token != nil {
		c.InviteToken = *token
	}
	return c, nil
}

func (r *ContractorRepo) getOne(ctx context.Context, q querier, op, query string, args ...any) (*domain.Contractor, error) {
	c, err := scanContractor(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetByID fetches a contractor (without locking).
func (r *ContractorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contractor, error) {
	return r.getOne(ctx, r.pool, "get contractor",
		`SELECT `+contractorColumns+` FROM contractors WHERE id = $1`, id)
}

// GetByIDForUpdate fetches a contractor with pessimistic locking.
func (r *ContractorRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Contractor, error) {
	return r.getOne(ctx, tx, "get contractor for update",
		`SELECT `+contractorColumns+` FROM contractors WHERE id = $1 FOR UPDATE`, id)
}

// GetByInviteTokenForUpdate locks the contractor holding an open invite.
func (r *ContractorRepo) GetByInviteTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*domain.Contractor, error) {
	return r.getOne(ctx, tx, "get contractor by invite token",
		`SELECT `+contractorColumns+` FROM contractors WHERE invite_token = $1 FOR UPDATE`, token)
}

// Update writes the mutable onboarding columns.
func (r *ContractorRepo) Update(ctx context.Context, tx pgx.Tx, c *domain.Contractor) error {
	tag, err := tx.Exec(ctx,
		`UPDATE contractors SET status = $1, kyc_status = $2, contract_active = $3, invite_token = $4, updated_at = $5
		WHERE id = $6`,
		c.Status, c.KYCStatus, c.ContractActive, nullableToken(c.InviteToken), c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update contractor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contractor not found: %s", c.ID)
	}
	return nil
}

// ListByOrg returns an organization's contractors, newest first.
func (r *ContractorRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]domain.Contractor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contractorColumns+` FROM contractors WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list contractors: %w", err)
	}
	defer rows.Close()

	contractors := []domain.Contractor{}
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contractor: %w", err)
		}
		contractors = append(contractors, *c)
	}
	return contractors, rows.Err()
}

// PayoutMethodRepo implements ports.PayoutMethodRepository.
type PayoutMethodRepo struct {
	pool Pool
}

// NewPayoutMethodRepo creates a new PayoutMethodRepo.
func NewPayoutMethodRepo(pool Pool) *PayoutMethodRepo {
	return &PayoutMethodRepo{pool: pool}
}

// Upsert stores the contractor's single payout method, replacing any previous one.
func (r *PayoutMethodRepo) Upsert(ctx context.Context, tx pgx.Tx, m *domain.PayoutMethod) error {
	query := `INSERT INTO payout_methods (id, contractor_id, method_type, currency, bank_name,
		account_last4, account_encrypted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (contractor_id) DO UPDATE SET
			method_type = EXCLUDED.method_type,
			currency = EXCLUDED.currency,
			bank_name = EXCLUDED.bank_name,
			account_last4 = EXCLUDED.account_last4,
			account_encrypted = EXCLUDED.account_encrypted,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query,
		m.ID, m.ContractorID, m.Type, m.Currency, m.BankName,
		m.AccountLast4, m.AccountEncrypted, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert payout method: %w", err)
	}
	return nil
}

// GetByContractor fetches the contractor's payout method.
func (r *PayoutMethodRepo) GetByContractor(ctx context.Context, contractorID uuid.UUID) (*domain.PayoutMethod, error) {
	query := `SELECT id, contractor_id, method_type, currency, bank_name, account_last4, account_encrypted,
		created_at, updated_at FROM payout_methods WHERE contractor_id = $1`

	m := &domain.PayoutMethod{}
	err := r.pool.QueryRow(ctx, query, contractorID).Scan(
		&m.ID, &m.ContractorID, &m.Type, &m.Currency, &m.BankName,
		&m.AccountLast4, &m.AccountEncrypted, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout method: %w", err)
	}
	return m, nil
}
