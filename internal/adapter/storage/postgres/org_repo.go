package postgres

import (
	"context"
	"errors"
	"fmt"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrganizationRepo implements ports.OrganizationRepository.
type OrganizationRepo struct {
	pool Pool
}

// NewOrganizationRepo creates a new OrganizationRepo.
func NewOrganizationRepo(pool Pool) *OrganizationRepo {
	return &OrganizationRepo{pool: pool}
}

// GetByID fetches the organization profile.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	query := `SELECT id, name, legal_name, country, currency, updated_at FROM organizations WHERE id = $1`

	o := &domain.Organization{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.LegalName, &o.Country, &o.Currency, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return o, nil
}

// Upsert writes the organization profile.
func (r *OrganizationRepo) Upsert(ctx context.Context, tx pgx.Tx, o *domain.Organization) error {
	query := `INSERT INTO organizations (id, name, legal_name, country, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			legal_name = EXCLUDED.legal_name,
			country = EXCLUDED.country,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at`

	if _, err := tx.Exec(ctx, query, o.ID, o.Name, o.LegalName, o.Country, o.Currency, o.UpdatedAt); err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}
	return nil
}

const onboardingColumns = `company_profile_complete, funding_source_connected, first_contractor_invited,
	approval_rules_set, first_payout_sent, require_2fa_for_admins, updated_at`

// OnboardingRepo implements ports.OnboardingRepository.
type OnboardingRepo struct {
	pool Pool
}

// NewOnboardingRepo creates a new OnboardingRepo.
func NewOnboardingRepo(pool Pool) *OnboardingRepo {
	return &OnboardingRepo{pool: pool}
}

// Init inserts the default checklist unless one already exists.
func (r *OnboardingRepo) Init(ctx context.Context, orgID uuid.UUID, d domain.Checklist) error {
	query := `INSERT INTO onboarding_states (org_id, ` + onboardingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (org_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, orgID,
		d.CompanyProfileComplete, d.FundingSourceConnected, d.FirstContractorInvited,
		d.ApprovalRulesSet, d.FirstPayoutSent, d.Require2FAForAdmins,
	)
	if err != nil {
		return fmt.Errorf("init onboarding state: %w", err)
	}
	return nil
}

func scanChecklist(row pgx.Row) (*domain.Checklist, error) {
	c := &domain.Checklist{}
	err := row.Scan(&c.CompanyProfileComplete, &c.FundingSourceConnected, &c.FirstContractorInvited,
		&c.ApprovalRulesSet, &c.FirstPayoutSent, &c.Require2FAForAdmins, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get reads the checklist.
func (r *OnboardingRepo) Get(ctx context.Context, orgID uuid.UUID) (*domain.Checklist, error) {
	c, err := scanChecklist(r.pool.QueryRow(ctx,
		`SELECT `+onboardingColumns+` FROM onboarding_states WHERE org_id = $1`, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get onboarding state: %w", err)
	}
	return c, nil
}

// GetForUpdate locks the checklist row until the transaction ends.
func (r *OnboardingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, orgID uuid.UUID) (*domain.Checklist, error) {
	c, err := scanChecklist(tx.QueryRow(ctx,
		`SELECT `+onboardingColumns+` FROM onboarding_states WHERE org_id = $1 FOR UPDATE`, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get onboarding state for update: %w", err)
	}
	return c, nil
}

// Save overwrites the checklist flags.
func (r *OnboardingRepo) Save(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, c *domain.Checklist) error {
	query := `UPDATE onboarding_states SET company_profile_complete = $1, funding_source_connected = $2,
		first_contractor_invited = $3, approval_rules_set = $4, first_payout_sent = $5,
		require_2fa_for_admins = $6, updated_at = $7 WHERE org_id = $8`

	tag, err := tx.Exec(ctx, query,
		c.CompanyProfileComplete, c.FundingSourceConnected, c.FirstContractorInvited,
		c.ApprovalRulesSet, c.FirstPayoutSent, c.Require2FAForAdmins, c.UpdatedAt, orgID,
	)
	if err != nil {
		return fmt.Errorf("save onboarding state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("onboarding state not found: %s", orgID)
	}
	return nil
}
