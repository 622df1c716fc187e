package service

import (
	"context"
	"fmt"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/money"
	"contractor-payouts/pkg/ref"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	directPayoutRefreshDelay = 5 * time.Minute
	withdrawalRefreshDelay   = 10 * time.Minute
	fxProviderName           = "fx provider"
)

// PayoutServiceImpl implements ports.PayoutService.
type PayoutServiceImpl struct {
	org            domain.Organization
	contractorRepo ports.ContractorRepository
	methodRepo     ports.PayoutMethodRepository
	invoiceRepo    ports.InvoiceRepository
	payoutRepo     ports.PayoutRepository
	jobRepo        ports.JobRepository
	ledger         ports.LedgerService
	onboarding     ports.OnboardingService
	fx             ports.FXProvider
	idem           idempotencyGuard
	transactor     ports.DBTransactor
	effects        ports.EffectDispatcher
	transferETA    time.Duration
	log            zerolog.Logger
}

// PayoutDeps groups the collaborators of PayoutServiceImpl.
type PayoutDeps struct {
	ContractorRepo ports.ContractorRepository
	MethodRepo     ports.PayoutMethodRepository
	InvoiceRepo    ports.InvoiceRepository
	PayoutRepo     ports.PayoutRepository
	JobRepo        ports.JobRepository
	IdempRepo      ports.IdempotencyRepository
	IdempCache     ports.IdempotencyCache
	Ledger         ports.LedgerService
	Onboarding     ports.OnboardingService
	FX             ports.FXProvider
	Transactor     ports.DBTransactor
	Effects        ports.EffectDispatcher
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(org domain.Organization, deps PayoutDeps, transferETA time.Duration, log zerolog.Logger) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		org:            org,
		contractorRepo: deps.ContractorRepo,
		methodRepo:     deps.MethodRepo,
		invoiceRepo:    deps.InvoiceRepo,
		payoutRepo:     deps.PayoutRepo,
		jobRepo:        deps.JobRepo,
		ledger:         deps.Ledger,
		onboarding:     deps.Onboarding,
		fx:             deps.FX,
		idem:           idempotencyGuard{repo: deps.IdempRepo, cache: deps.IdempCache, log: log},
		transactor:     deps.Transactor,
		effects:        deps.Effects,
		transferETA:    transferETA,
		log:            log,
	}
}

// Create schedules a direct payout funded by the organization wallet at
// settlement time.
func (s *PayoutServiceImpl) Create(ctx context.Context, actor domain.Actor, req ports.CreatePayoutRequest) (*domain.Payout, error) {
	amount, err := money.Positive(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey("payout", actor.UserID, req.IdempotencyKey)
		cached, err := s.idem.lookup(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return replay[domain.Payout](cached)
		}
	}

	contractor, _, err := s.gatePayout(ctx, req.ContractorID)
	if err != nil {
		return nil, err
	}

	if req.InvoiceID != nil {
		invoice, err := s.invoiceRepo.GetByID(ctx, *req.InvoiceID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get invoice: %w", err))
		}
		if invoice == nil || invoice.ContractorID != contractor.ID {
			return nil, apperror.ErrNotFound("invoice")
		}
	}

	// Cross-currency rates come from the provider, before any write.
	rate, fee, quoteID := decimal.NewFromInt(1), decimal.Zero, ""
	if s.org.Currency != contractor.Currency {
		quote, err := s.fx.GetQuote(ctx, s.org.Currency, contractor.Currency, amount)
		if err != nil {
			return nil, apperror.ErrExternalService(fxProviderName, err)
		}
		if quote.Expired(time.Now()) {
			return nil, apperror.ErrQuoteExpired()
		}
		rate, fee, quoteID = quote.Rate, quote.Fee, quote.ID
	}

	now := time.Now().UTC()
	payout := &domain.Payout{
		ID:                  uuid.New(),
		ContractorID:        contractor.ID,
		InvoiceID:           req.InvoiceID,
		Kind:                domain.PayoutKindDirect,
		Amount:              amount,
		SourceCurrency:      s.org.Currency,
		DestinationCurrency: contractor.Currency,
		FXRate:              rate,
		FXFee:               fee,
		Status:              domain.PayoutStatusPending,
		ProviderRef:         ref.New(ref.Payout),
		QuoteID:             quoteID,
		EstimatedArrival:    now.Add(s.transferETA),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	job, err := domain.NewPayoutRefreshJob(payout, now.Add(directPayoutRefreshDelay))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build refresh job: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.payoutRepo.Create(ctx, dbTx, payout); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payout: %w", err))
	}
	if err := s.jobRepo.Create(ctx, dbTx, job); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("enqueue job: %w", err))
	}
	if err := s.onboarding.CompleteTx(ctx, dbTx, domain.StepFirstPayout); err != nil {
		return nil, err
	}

	var respJSON []byte
	if idempKey != "" {
		if respJSON, err = s.idem.record(ctx, dbTx, idempKey, payout.ID, payout); err != nil {
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
	fx.Audit(actor.UserID, domain.AuditActionCreatePayout, "payout", payout.ID.String(), map[string]string{
		"contractor_id": contractor.ID.String(),
		"amount":        amount.StringFixed(money.Scale),
		"job_id":        job.ID.String(),
	})
	fx.Notify(actor.UserID, domain.EventPayoutScheduled, map[string]string{"payoutId": payout.ID.String()})
	s.effects.Dispatch(ctx, fx)

	s.log.Info().
		Str("payout_id", payout.ID.String()).
		Str("contractor_id", contractor.ID.String()).
		Str("amount", amount.StringFixed(money.Scale)).
		Time("run_at", job.RunAt).
		Msg("payout scheduled")

	return payout, nil
}

// Withdraw moves funds out of a contractor wallet. The provider is called
// first; only then are the pending debit, the payout and its refresh job
// written in one transaction.
func (s *PayoutServiceImpl) Withdraw(ctx context.Context, actor domain.Actor, req ports.WithdrawRequest) (*domain.Payout, error) {
	amount, err := money.Positive(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey("withdraw", actor.UserID, req.IdempotencyKey)
		cached, err := s.idem.lookup(ctx, idempKey)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return replay[domain.Payout](cached)
		}
	}

	contractor, method, err := s.gatePayout(ctx, req.ContractorID)
	if err != nil {
		return nil, err
	}

	destination := contractor.Currency
	if req.DestinationCurrency != "" {
		if destination, err = money.Currency(req.DestinationCurrency); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	wallet, err := s.ledger.GetWalletByOwner(ctx, domain.OwnerTypeContractor, contractor.ID, contractor.Currency)
	if err != nil {
		return nil, err
	}
	// Cheap rejection before any provider call; Post re-checks under lock.
	if amount.GreaterThan(wallet.Available) {
		return nil, apperror.ErrInsufficientFunds()
	}

	quote, err := s.fx.GetQuote(ctx, wallet.Currency, destination, amount)
	if err != nil {
		return nil, apperror.ErrExternalService(fxProviderName, err)
	}
	recipient, err := s.fx.CreateRecipient(ctx, contractor, method)
	if err != nil {
		return nil, apperror.ErrExternalService(fxProviderName, err)
	}
	transfer, err := s.fx.CreateTransfer(ctx, quote, recipient)
	if err != nil {
		return nil, apperror.ErrExternalService(fxProviderName, err)
	}

	now := time.Now().UTC()
	if quote.Expired(now) {
		return nil, apperror.ErrQuoteExpired()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payoutID := uuid.New()
	entry, err := s.ledger.Post(ctx, dbTx, domain.PostRequest{
		WalletID:      wallet.ID,
		Type:          domain.EntryTypeDebit,
		Amount:        amount,
		Currency:      wallet.Currency,
		ReferenceType: domain.ReferenceWithdrawal,
		ReferenceID:   payoutID.String(),
		Status:        domain.EntryStatusPending,
		Memo:          "Withdrawal",
		Metadata: map[string]string{
			"destinationCurrency": destination,
			"quoteId":             quote.ID,
			"providerRef":         transfer.ProviderRef,
		},
	})
	if err != nil {
		return nil, err
	}

	eta := transfer.EstimatedArrival
	if eta.IsZero() {
		eta = now.Add(s.transferETA)
	}
	entryID := entry.ID
	payout := &domain.Payout{
		ID:                  payoutID,
		ContractorID:        contractor.ID,
		Kind:                domain.PayoutKindWithdrawal,
		Amount:              amount,
		SourceCurrency:      wallet.Currency,
		DestinationCurrency: destination,
		FXRate:              quote.Rate,
		FXFee:               quote.Fee,
		Status:              domain.PayoutStatusPending,
		ProviderRef:         transfer.ProviderRef,
		QuoteID:             quote.ID,
		LedgerEntryID:       &entryID,
		EstimatedArrival:    eta,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.payoutRepo.Create(ctx, dbTx, payout); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payout: %w", err))
	}

	job, err := domain.NewPayoutRefreshJob(payout, now.Add(withdrawalRefreshDelay))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build refresh job: %w", err))
	}
	if err := s.jobRepo.Create(ctx, dbTx, job); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("enqueue job: %w", err))
	}

	var respJSON []byte
	if idempKey != "" {
		if respJSON, err = s.idem.record(ctx, dbTx, idempKey, payout.ID, payout); err != nil {
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
	fx.Audit(actor.UserID, domain.AuditActionWithdrawRequested, "payout", payout.ID.String(), map[string]string{
		"contractor_id":        contractor.ID.String(),
		"amount":               amount.StringFixed(money.Scale),
		"destination_currency": destination,
		"quote_id":             quote.ID,
	})
	fx.Notify(contractor.ID.String(), domain.EventPayoutScheduled, map[string]string{"payoutId": payout.ID.String()})
	s.effects.Dispatch(ctx, fx)

	s.log.Info().
		Str("payout_id", payout.ID.String()).
		Str("entry_id", entry.ID.String()).
		Str("provider_ref", payout.ProviderRef).
		Msg("withdrawal requested")

	return payout, nil
}

// PreviewQuote returns a provider quote without writing anything.
func (s *PayoutServiceImpl) PreviewQuote(ctx context.Context, source, destination string, amount decimal.Decimal) (*domain.FXQuote, error) {
	amount, err := money.Positive(amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if source, err = money.Currency(source); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if destination, err = money.Currency(destination); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	quote, err := s.fx.GetQuote(ctx, source, destination, amount)
	if err != nil {
		return nil, apperror.ErrExternalService(fxProviderName, err)
	}
	return quote, nil
}

// Get returns a payout by id.
func (s *PayoutServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payout: %w", err))
	}
	if payout == nil {
		return nil, apperror.ErrNotFound("payout")
	}
	return payout, nil
}

// gatePayout loads the contractor and evaluates the payout gate.
func (s *PayoutServiceImpl) gatePayout(ctx context.Context, contractorID uuid.UUID) (*domain.Contractor, *domain.PayoutMethod, error) {
	contractor, err := s.contractorRepo.GetByID(ctx, contractorID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get contractor: %w", err))
	}
	if contractor == nil {
		return nil, nil, apperror.ErrNotFound("contractor")
	}

	checklist, err := s.onboarding.State(ctx)
	if err != nil {
		return nil, nil, err
	}
	method, err := s.methodRepo.GetByContractor(ctx, contractor.ID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get payout method: %w", err))
	}

	gate := domain.Gate(domain.GatePayout, domain.GateContext{
		Checklist:       *checklist,
		HasPayoutMethod: method != nil,
	})
	if !gate.Allowed {
		return nil, nil, apperror.ErrGateBlocked(gate.Blockers)
	}
	return contractor, method, nil
}
