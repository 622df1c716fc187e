package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultCardLabel = "Contractor card"

// CardServiceImpl implements ports.CardService.
type CardServiceImpl struct {
	cardRepo       ports.CardRepository
	contractorRepo ports.ContractorRepository
	ledger         ports.LedgerService
	issuer         ports.CardIssuer
	transactor     ports.DBTransactor
	effects        ports.EffectDispatcher
	log            zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	contractorRepo ports.ContractorRepository,
	ledger ports.LedgerService,
	issuer ports.CardIssuer,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo:       cardRepo,
		contractorRepo: contractorRepo,
		ledger:         ledger,
		issuer:         issuer,
		transactor:     transactor,
		effects:        effects,
		log:            log,
	}
}

// Issue issues a card against an active contractor's wallet. The wallet must
// hold a positive balance; that blocker is reported alongside the gate's.
func (s *CardServiceImpl) Issue(ctx context.Context, actor domain.Actor, req ports.IssueCardRequest) (*domain.Card, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		label = defaultCardLabel
	}

	contractor, err := s.contractorRepo.GetByID(ctx, req.ContractorID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get contractor: %w", err))
	}
	if contractor == nil {
		return nil, apperror.ErrNotFound("contractor")
	}

	wallet, err := s.ledger.GetWalletByOwner(ctx, domain.OwnerTypeContractor, contractor.ID, contractor.Currency)
	if err != nil && apperror.Code(err) != "NF_001" {
		return nil, err
	}

	gate := domain.Gate(domain.GateIssueCard, domain.GateContext{ContractorStatus: contractor.Status})
	if wallet == nil || !wallet.Balance.IsPositive() {
		gate.Blockers = append(gate.Blockers, domain.BlockerCardBalance)
	}
	if len(gate.Blockers) > 0 {
		return nil, apperror.ErrGateBlocked(gate.Blockers)
	}

	issued, err := s.issuer.Issue(ctx, contractor, label)
	if err != nil {
		return nil, apperror.ErrExternalService("card issuer", err)
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:           uuid.New(),
		ContractorID: contractor.ID,
		WalletID:     wallet.ID,
		Label:        label,
		Last4:        issued.Last4,
		Provider:     issued.Provider,
		ProviderRef:  issued.ProviderRef,
		Status:       domain.CardStatusActive,
		DailyLimit:   domain.DefaultCardDailyLimit,
		MonthlyLimit: domain.DefaultCardMonthlyLimit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.cardRepo.Create(ctx, dbTx, card); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create card: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionIssueCard, "card", card.ID.String(), map[string]string{
		"contractor_id": contractor.ID.String(),
		"last4":         card.Last4,
	})
	fx.Notify(contractor.ID.String(), domain.EventCardIssued, map[string]string{"cardId": card.ID.String()})
	s.effects.Dispatch(ctx, fx)

	return card, nil
}

// SetStatus freezes, unfreezes or closes a card.
func (s *CardServiceImpl) SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.CardStatus) (*domain.Card, error) {
	switch status {
	case domain.CardStatusActive, domain.CardStatusFrozen, domain.CardStatusClosed:
	default:
		return nil, apperror.Validation(fmt.Sprintf("unknown card status %q", status))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	card, err := s.cardRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrNotFound("card")
	}
	if !card.Status.CanTransition(status) {
		return nil, apperror.ErrInvalidTransition("card", string(card.Status), string(status))
	}

	previous := card.Status
	if err := s.cardRepo.UpdateStatus(ctx, dbTx, card.ID, status); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update card status: %w", err))
	}
	card.Status = status
	card.UpdatedAt = time.Now().UTC()

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	meta := map[string]string{"from": string(previous), "to": string(status)}
	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionUpdateCardStatus, "card", card.ID.String(), meta)
	fx.Notify(card.ContractorID.String(), domain.EventCardStatusChanged, map[string]string{
		"cardId": card.ID.String(),
		"status": string(status),
	})
	s.effects.Dispatch(ctx, fx)

	return card, nil
}

// Get returns a card by id.
func (s *CardServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrNotFound("card")
	}
	return card, nil
}
