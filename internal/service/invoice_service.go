package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/money"
	"contractor-payouts/pkg/ref"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// InvoiceServiceImpl implements ports.InvoiceService.
type InvoiceServiceImpl struct {
	org            domain.Organization
	invoiceRepo    ports.InvoiceRepository
	contractorRepo ports.ContractorRepository
	payoutRepo     ports.PayoutRepository
	ledger         ports.LedgerService
	transactor     ports.DBTransactor
	effects        ports.EffectDispatcher
	log            zerolog.Logger
}

// NewInvoiceService creates a new InvoiceServiceImpl. Payments are funded
// from org's wallet.
func NewInvoiceService(
	org domain.Organization,
	invoiceRepo ports.InvoiceRepository,
	contractorRepo ports.ContractorRepository,
	payoutRepo ports.PayoutRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	log zerolog.Logger,
) *InvoiceServiceImpl {
	return &InvoiceServiceImpl{
		org:            org,
		invoiceRepo:    invoiceRepo,
		contractorRepo: contractorRepo,
		payoutRepo:     payoutRepo,
		ledger:         ledger,
		transactor:     transactor,
		effects:        effects,
		log:            log,
	}
}

// Submit creates an invoice in submitted status for an active contractor.
func (s *InvoiceServiceImpl) Submit(ctx context.Context, actor domain.Actor, req ports.SubmitInvoiceRequest) (*domain.Invoice, error) {
	amount, err := money.Positive(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	contractor, err := s.contractorRepo.GetByID(ctx, req.ContractorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("contractor")
	}
	if gate := domain.Gate(domain.GateSubmitInvoice, domain.GateContext{ContractorStatus: contractor.Status}); !gate.Allowed {
		return nil, apperror.ErrGateBlocked(gate.Blockers)
	}

	currency := contractor.Currency
	if req.Currency != "" {
		if currency, err = money.Currency(req.Currency); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		if currency != contractor.Currency {
			return nil, apperror.Validation(fmt.Sprintf("invoice currency must be the contractor currency %s", contractor.Currency))
		}
	}

	now := time.Now().UTC()
	invoice := &domain.Invoice{
		ID:           uuid.New(),
		ContractorID: contractor.ID,
		Amount:       amount,
		Currency:     currency,
		Description:  strings.TrimSpace(req.Description),
		Status:       domain.InvoiceStatusSubmitted,
		DueDate:      req.DueDate,
		Timeline:     []domain.TimelineEntry{{Label: domain.InvoiceStatusSubmitted.Label(), At: now}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.invoiceRepo.Create(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create invoice: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionSubmitInvoice, "invoice", invoice.ID.String(), map[string]string{
		"contractor_id": contractor.ID.String(),
		"amount":        amount.StringFixed(money.Scale),
	})
	fx.Notify(actor.UserID, domain.EventInvoiceSubmitted, map[string]string{"invoiceId": invoice.ID.String()})
	s.effects.Dispatch(ctx, fx)

	return invoice, nil
}

// Approve moves a draft or submitted invoice to approved.
func (s *InvoiceServiceImpl) Approve(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Invoice, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.lockInvoice(ctx, dbTx, id)
	if err != nil {
		return nil, err
	}
	if err := transition(invoice.Transition(domain.InvoiceStatusApproved, time.Now().UTC())); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionApproveInvoice, "invoice", invoice.ID.String(), nil)
	fx.Notify(actor.UserID, domain.EventInvoiceApproved, map[string]string{"invoiceId": invoice.ID.String()})
	s.effects.Dispatch(ctx, fx)

	return invoice, nil
}

// Pay settles an invoice: the organization wallet is debited and the
// contractor wallet credited in one transaction. Paying a paid invoice is a
// no-op reported through AlreadyPaid.
func (s *InvoiceServiceImpl) Pay(ctx context.Context, actor domain.Actor, id uuid.UUID) (*ports.PayInvoiceResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.lockInvoice(ctx, dbTx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == domain.InvoiceStatusPaid {
		return &ports.PayInvoiceResult{Invoice: invoice, AlreadyPaid: true}, nil
	}

	now := time.Now().UTC()
	if err := transition(invoice.Transition(domain.InvoiceStatusPaid, now)); err != nil {
		return nil, err
	}

	contractor, err := s.contractorRepo.GetByID(ctx, invoice.ContractorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("contractor")
	}

	// Lock order: organization wallet, then contractor wallet.
	orgWallet, err := s.ledger.EnsureWallet(ctx, dbTx, domain.OwnerTypeOrg, s.org.ID, s.org.Currency)
	if err != nil {
		return nil, err
	}
	contractorWallet, err := s.ledger.EnsureWallet(ctx, dbTx, domain.OwnerTypeContractor, contractor.ID, contractor.Currency)
	if err != nil {
		return nil, err
	}

	memo := "Invoice paid"
	debit, err := s.ledger.Post(ctx, dbTx, domain.PostRequest{
		WalletID:      orgWallet.ID,
		Type:          domain.EntryTypeDebit,
		Amount:        invoice.Amount,
		ReferenceType: domain.ReferenceInvoice,
		ReferenceID:   invoice.ID.String(),
		Status:        domain.EntryStatusPosted,
		Memo:          memo,
	})
	if err != nil {
		return nil, err
	}
	credit, err := s.ledger.Post(ctx, dbTx, domain.PostRequest{
		WalletID:      contractorWallet.ID,
		Type:          domain.EntryTypeCredit,
		Amount:        invoice.Amount,
		ReferenceType: domain.ReferenceInvoice,
		ReferenceID:   invoice.ID.String(),
		Status:        domain.EntryStatusPosted,
		Memo:          memo,
	})
	if err != nil {
		return nil, err
	}

	result := &ports.PayInvoiceResult{Invoice: invoice, Debit: debit, Credit: credit}

	if orgWallet.Currency != contractorWallet.Currency {
		conv := money.Convert(orgWallet.Currency, contractorWallet.Currency, invoice.Amount)
		invoiceID := invoice.ID
		payout := &domain.Payout{
			ID:                  uuid.New(),
			ContractorID:        contractor.ID,
			InvoiceID:           &invoiceID,
			Kind:                domain.PayoutKindInvoice,
			Amount:              invoice.Amount,
			SourceCurrency:      orgWallet.Currency,
			DestinationCurrency: contractorWallet.Currency,
			FXRate:              conv.Rate,
			FXFee:               conv.Fee,
			Status:              domain.PayoutStatusPaid,
			ProviderRef:         ref.New(ref.Payout),
			EstimatedArrival:    now,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := s.payoutRepo.Create(ctx, dbTx, payout); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create payout: %w", err))
		}
		result.Payout = payout
	}

	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionPayInvoice, "invoice", invoice.ID.String(), map[string]string{
		"contractor_id":   contractor.ID.String(),
		"amount":          invoice.Amount.StringFixed(money.Scale),
		"payout_recorded": strconv.FormatBool(result.Payout != nil),
	})
	fx.Notify(contractor.ID.String(), domain.EventInvoicePaid, map[string]string{"invoiceId": invoice.ID.String()})
	if result.Payout != nil {
		fx.Notify(actor.UserID, domain.EventPayoutCompleted, map[string]string{
			"invoiceId": invoice.ID.String(),
			"payoutId":  result.Payout.ID.String(),
		})
	}
	s.effects.Dispatch(ctx, fx)

	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("amount", invoice.Amount.StringFixed(money.Scale)).
		Bool("fx", result.Payout != nil).
		Msg("invoice paid")

	return result, nil
}

// Get returns an invoice by id.
func (s *InvoiceServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}
	return invoice, nil
}

func (s *InvoiceServiceImpl) lockInvoice(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}
	return invoice, nil
}

// transition maps a state machine rejection to VAL_003.
func transition(err error) error {
	if err == nil {
		return nil
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return apperror.ErrInvalidTransition(te.Entity, te.From, te.To)
	}
	return apperror.InternalError(err)
}
