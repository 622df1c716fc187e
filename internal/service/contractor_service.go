package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/money"
	"contractor-payouts/pkg/ref"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// ContractorServiceImpl implements ports.ContractorService.
type ContractorServiceImpl struct {
	orgID          uuid.UUID
	contractorRepo ports.ContractorRepository
	methodRepo     ports.PayoutMethodRepository
	ledger         ports.LedgerService
	onboarding     ports.OnboardingService
	encSvc         ports.EncryptionService
	transactor     ports.DBTransactor
	effects        ports.EffectDispatcher
	log            zerolog.Logger
}

// NewContractorService creates a new ContractorServiceImpl.
func NewContractorService(
	orgID uuid.UUID,
	contractorRepo ports.ContractorRepository,
	methodRepo ports.PayoutMethodRepository,
	ledger ports.LedgerService,
	onboarding ports.OnboardingService,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	log zerolog.Logger,
) *ContractorServiceImpl {
	return &ContractorServiceImpl{
		orgID:          orgID,
		contractorRepo: contractorRepo,
		methodRepo:     methodRepo,
		ledger:         ledger,
		onboarding:     onboarding,
		encSvc:         encSvc,
		transactor:     transactor,
		effects:        effects,
		log:            log,
	}
}

// Invite creates an invited contractor with a wallet in their currency.
func (s *ContractorServiceImpl) Invite(ctx context.Context, actor domain.Actor, req ports.InviteContractorRequest) (*ports.InviteResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("contractor name is required")
	}
	email := strings.TrimSpace(req.Email)
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return nil, apperror.Validation("contractor email is invalid")
	}
	currency, err := money.Currency(req.Currency)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	checklist, err := s.onboarding.State(ctx)
	if err != nil {
		return nil, err
	}
	if gate := domain.Gate(domain.GateInviteContractor, domain.GateContext{Checklist: *checklist}); !gate.Allowed {
		return nil, apperror.ErrGateBlocked(gate.Blockers)
	}

	now := time.Now().UTC()
	contractor := &domain.Contractor{
		ID:          uuid.New(),
		OrgID:       s.orgID,
		Name:        name,
		Email:       strings.ToLower(email),
		Country:     strings.ToUpper(strings.TrimSpace(req.Country)),
		Currency:    currency,
		Status:      domain.ContractorStatusInvited,
		KYCStatus:   domain.KYCStatusPending,
		InviteToken: ref.New(ref.Invite),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.contractorRepo.Create(ctx, dbTx, contractor); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create contractor: %w", err))
	}
	wallet, err := s.ledger.EnsureWallet(ctx, dbTx, domain.OwnerTypeContractor, contractor.ID, currency)
	if err != nil {
		return nil, err
	}
	if err := s.onboarding.CompleteTx(ctx, dbTx, domain.StepFirstContractor); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionInviteContractor, "contractor", contractor.ID.String(), map[string]string{
		"email":    contractor.Email,
		"currency": currency,
	})
	s.effects.Dispatch(ctx, fx)

	s.log.Info().
		Str("contractor_id", contractor.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Msg("contractor invited")

	return &ports.InviteResult{Contractor: contractor, Wallet: wallet, InviteToken: contractor.InviteToken}, nil
}

// AcceptInvite moves an invited contractor to onboarding. The token is
// single-use.
func (s *ContractorServiceImpl) AcceptInvite(ctx context.Context, token string) (*domain.Contractor, error) {
	token, err := ref.Parse(token, ref.Invite)
	if err != nil {
		return nil, apperror.Validation("invite token is invalid")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	contractor, err := s.contractorRepo.GetByInviteTokenForUpdate(ctx, dbTx, token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("invite")
	}
	if contractor.Status != domain.ContractorStatusInvited {
		return nil, apperror.ErrInvalidTransition("contractor", string(contractor.Status), string(domain.ContractorStatusOnboarding))
	}

	contractor.Status = domain.ContractorStatusOnboarding
	contractor.InviteToken = ""
	contractor.UpdatedAt = time.Now().UTC()
	if err := s.contractorRepo.Update(ctx, dbTx, contractor); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update contractor: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(contractor.ID.String(), domain.AuditActionAcceptInvite, "contractor", contractor.ID.String(), nil)
	s.effects.Dispatch(ctx, fx)

	return contractor, nil
}

// UpdateKYC records a verification outcome and re-resolves the status.
func (s *ContractorServiceImpl) UpdateKYC(ctx context.Context, actor domain.Actor, id uuid.UUID, kyc domain.KYCStatus) (*domain.Contractor, error) {
	if !kyc.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown kyc status %q", kyc))
	}
	return s.update(ctx, actor, id, domain.AuditActionKYCUpdated, func(c *domain.Contractor) map[string]string {
		c.KYCStatus = kyc
		return map[string]string{"kyc_status": string(kyc)}
	})
}

// SetContract marks the contract active or inactive and re-resolves the status.
func (s *ContractorServiceImpl) SetContract(ctx context.Context, actor domain.Actor, id uuid.UUID, active bool) (*domain.Contractor, error) {
	return s.update(ctx, actor, id, domain.AuditActionContractUpdated, func(c *domain.Contractor) map[string]string {
		c.ContractActive = active
		return map[string]string{"contract_active": strconv.FormatBool(active)}
	})
}

func (s *ContractorServiceImpl) update(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	action domain.AuditAction,
	mutate func(c *domain.Contractor) map[string]string,
) (*domain.Contractor, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	contractor, err := s.contractorRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("contractor")
	}

	meta := mutate(contractor)
	contractor.Status = domain.ResolveContractorStatus(contractor.Status, contractor.KYCStatus, contractor.ContractActive)
	contractor.UpdatedAt = time.Now().UTC()
	meta["status"] = string(contractor.Status)

	if err := s.contractorRepo.Update(ctx, dbTx, contractor); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update contractor: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, action, "contractor", contractor.ID.String(), meta)
	s.effects.Dispatch(ctx, fx)

	return contractor, nil
}

// SavePayoutMethod stores the contractor's payout method. The account number
// is encrypted; only its last four digits are kept in clear.
func (s *ContractorServiceImpl) SavePayoutMethod(ctx context.Context, actor domain.Actor, req ports.SavePayoutMethodRequest) (*domain.PayoutMethod, error) {
	if !req.Type.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown payout method type %q", req.Type))
	}
	currency, err := money.Currency(req.Currency)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	account := strings.ReplaceAll(strings.TrimSpace(req.AccountNumber), " ", "")
	if len(account) < 4 {
		return nil, apperror.Validation("account number is too short")
	}

	encrypted, err := s.encSvc.Encrypt(account)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt account number: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	contractor, err := s.contractorRepo.GetByIDForUpdate(ctx, dbTx, req.ContractorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("contractor")
	}

	now := time.Now().UTC()
	method := &domain.PayoutMethod{
		ID:               uuid.New(),
		ContractorID:     contractor.ID,
		Type:             req.Type,
		Currency:         currency,
		BankName:         strings.TrimSpace(req.BankName),
		AccountLast4:     Last4(account),
		AccountEncrypted: encrypted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.methodRepo.Upsert(ctx, dbTx, method); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save payout method: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionPayoutMethodSaved, "contractor", contractor.ID.String(), map[string]string{
		"type":          string(method.Type),
		"account_last4": method.AccountLast4,
	})
	s.effects.Dispatch(ctx, fx)

	return method, nil
}

// Get returns a contractor by id.
func (s *ContractorServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Contractor, error) {
	contractor, err := s.contractorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("contractor")
	}
	return contractor, nil
}

// List returns the organization's contractors.
func (s *ContractorServiceImpl) List(ctx context.Context) ([]domain.Contractor, error) {
	list, err := s.contractorRepo.ListByOrg(ctx, s.orgID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list contractors: %w", err))
	}
	return list, nil
}
