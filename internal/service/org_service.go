package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/money"
	"contractor-payouts/pkg/ref"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrgServiceImpl implements ports.OrgService for the single workspace this
// process serves.
type OrgServiceImpl struct {
	org        domain.Organization
	orgRepo    ports.OrganizationRepository
	ledger     ports.LedgerService
	onboarding ports.OnboardingService
	idem       idempotencyGuard
	transactor ports.DBTransactor
	effects    ports.EffectDispatcher
	log        zerolog.Logger
}

// NewOrgService creates a new OrgServiceImpl. defaults seeds the organization
// row on Bootstrap.
func NewOrgService(
	defaults domain.Organization,
	orgRepo ports.OrganizationRepository,
	ledger ports.LedgerService,
	onboarding ports.OnboardingService,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	log zerolog.Logger,
) *OrgServiceImpl {
	return &OrgServiceImpl{
		org:        defaults,
		orgRepo:    orgRepo,
		ledger:     ledger,
		onboarding: onboarding,
		idem:       idempotencyGuard{repo: idempRepo, cache: idempCache, log: log},
		transactor: transactor,
		effects:    effects,
		log:        log,
	}
}

// Bootstrap creates the organization, its wallet and the onboarding checklist
// when they do not exist yet. It is safe to run on every start.
func (s *OrgServiceImpl) Bootstrap(ctx context.Context) error {
	if err := s.onboarding.Init(ctx); err != nil {
		return err
	}

	existing, err := s.orgRepo.GetByID(ctx, s.org.ID)
	if err != nil {
		return fmt.Errorf("get organization: %w", err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if existing == nil {
		s.org.UpdatedAt = time.Now().UTC()
		if err := s.orgRepo.Upsert(ctx, dbTx, &s.org); err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
	} else {
		s.org = *existing
	}

	if _, err := s.ledger.EnsureWallet(ctx, dbTx, domain.OwnerTypeOrg, s.org.ID, s.org.Currency); err != nil {
		return fmt.Errorf("ensure org wallet: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.log.Info().
		Str("org_id", s.org.ID.String()).
		Str("currency", s.org.Currency).
		Msg("organization bootstrapped")
	return nil
}

// Get returns the organization profile.
func (s *OrgServiceImpl) Get(ctx context.Context) (*domain.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, s.org.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get organization: %w", err))
	}
	if org == nil {
		return nil, apperror.ErrNotFound("organization")
	}
	return org, nil
}

// UpdateProfile saves the company profile and completes the matching
// checklist step.
func (s *OrgServiceImpl) UpdateProfile(ctx context.Context, actor domain.Actor, req ports.UpdateOrgProfileRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("organization name is required")
	}

	org, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	org.Name = name
	org.LegalName = strings.TrimSpace(req.LegalName)
	org.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	org.UpdatedAt = time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.orgRepo.Upsert(ctx, dbTx, org); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update organization: %w", err))
	}
	if org.LegalName != "" && org.Country != "" {
		if err := s.onboarding.CompleteTx(ctx, dbTx, domain.StepCompanyProfile); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionUpdateOrgProfile, "organization", org.ID.String(), map[string]string{
		"name": org.Name,
	})
	s.effects.Dispatch(ctx, fx)

	return org, nil
}

// FundWallet credits the organization wallet from the connected funding
// source. A repeated idempotency key replays the first entry.
func (s *OrgServiceImpl) FundWallet(ctx context.Context, actor domain.Actor, req ports.FundWalletRequest) (*domain.LedgerEntry, error) {
	amount, err := money.Positive(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey("fund", actor.UserID, req.IdempotencyKey)
		cached, err := s.idem.lookup(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return replay[domain.LedgerEntry](cached)
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.ledger.EnsureWallet(ctx, dbTx, domain.OwnerTypeOrg, s.org.ID, s.org.Currency)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.Post(ctx, dbTx, domain.PostRequest{
		WalletID:      wallet.ID,
		Type:          domain.EntryTypeCredit,
		Amount:        amount,
		Currency:      wallet.Currency,
		ReferenceType: domain.ReferenceFunding,
		ReferenceID:   ref.New(ref.Request),
		Status:        domain.EntryStatusPosted,
		Memo:          "Wallet funding",
	})
	if err != nil {
		return nil, err
	}

	if err := s.onboarding.CompleteTx(ctx, dbTx, domain.StepFundingSource); err != nil {
		return nil, err
	}

	var respJSON []byte
	if idempKey != "" {
		if respJSON, err = s.idem.record(ctx, dbTx, idempKey, entry.ID, entry); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		s.idem.remember(ctx, idempKey, respJSON)
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionFundWallet, "wallet", wallet.ID.String(), map[string]string{
		"entry_id": entry.ID.String(),
		"amount":   entry.Amount.StringFixed(money.Scale),
	})
	s.effects.Dispatch(ctx, fx)

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("amount", entry.Amount.StringFixed(money.Scale)).
		Msg("organization wallet funded")

	return entry, nil
}

// OrgWallet returns the organization wallet with pending amounts.
func (s *OrgServiceImpl) OrgWallet(ctx context.Context) (*domain.Wallet, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.ledger.EnsureWallet(ctx, dbTx, domain.OwnerTypeOrg, s.org.ID, s.org.Currency)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return s.ledger.GetWallet(ctx, wallet.ID)
}

// ID returns the organization id.
func (s *OrgServiceImpl) ID() uuid.UUID { return s.org.ID }
