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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LedgerServiceImpl implements ports.LedgerService. It is the only writer of
// cached wallet balances.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	effects    ports.EffectDispatcher
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		effects:    effects,
		log:        log,
	}
}

// Post appends an entry and, for posted entries, moves the cached balance in
// the same transaction. Debits may not exceed the available balance.
func (s *LedgerServiceImpl) Post(ctx context.Context, tx pgx.Tx, req domain.PostRequest) (*domain.LedgerEntry, error) {
	amount, err := money.Positive(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Type != domain.EntryTypeCredit && req.Type != domain.EntryTypeDebit {
		return nil, apperror.Validation(fmt.Sprintf("unknown entry type %q", req.Type))
	}
	status := req.Status
	if status == "" {
		status = domain.EntryStatusPosted
	}
	if status != domain.EntryStatusPosted && status != domain.EntryStatusPending {
		return nil, apperror.Validation("new entries must be pending or posted")
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, req.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	currency := req.Currency
	if currency == "" {
		currency = wallet.Currency
	}
	if !strings.EqualFold(currency, wallet.Currency) {
		return nil, apperror.Validation(fmt.Sprintf("entry currency %s does not match wallet currency %s", currency, wallet.Currency))
	}

	// Business rule: sufficient available funds
	if req.Type == domain.EntryTypeDebit {
		pending, err := s.ledgerRepo.PendingTotals(ctx, tx, wallet.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("pending totals: %w", err))
		}
		if amount.GreaterThan(wallet.Balance.Sub(pending.Debits)) {
			return nil, apperror.ErrInsufficientFunds()
		}
	}

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          req.Type,
		Amount:        amount,
		Currency:      wallet.Currency,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Status:        status,
		Metadata:      req.Metadata,
		Memo:          req.Memo,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if status == domain.EntryStatusPosted {
		if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance.Add(entry.Delta())); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
		}
	}

	s.log.Debug().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("type", string(entry.Type)).
		Str("status", string(entry.Status)).
		Str("amount", entry.Amount.StringFixed(money.Scale)).
		Msg("ledger entry posted")

	return entry, nil
}

// Promote moves a pending entry to posted and applies it to the balance.
func (s *LedgerServiceImpl) Promote(ctx context.Context, tx pgx.Tx, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	entry, wallet, err := s.lockEntry(ctx, tx, entryID, domain.EntryStatusPosted)
	if err != nil {
		return nil, err
	}

	newBalance := wallet.Balance.Add(entry.Delta())
	if newBalance.IsNegative() {
		return nil, apperror.ErrInsufficientFunds()
	}
	if err := s.ledgerRepo.UpdateStatus(ctx, tx, entry.ID, domain.EntryStatusPosted); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("promote entry: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	entry.Status = domain.EntryStatusPosted
	return entry, nil
}

// ReverseTx compensates an entry. A pending entry releases its reservation;
// a posted entry has its effect on the cached balance undone. Undoing a
// credit may not leave less than the pending debits still reserve.
func (s *LedgerServiceImpl) ReverseTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	entry, wallet, err := s.lockEntry(ctx, tx, entryID, domain.EntryStatusReversed)
	if err != nil {
		return nil, err
	}

	if entry.Status == domain.EntryStatusPosted {
		newBalance := wallet.Balance.Sub(entry.Delta())
		if entry.Type == domain.EntryTypeCredit {
			pending, err := s.ledgerRepo.PendingTotals(ctx, tx, wallet.ID)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("pending totals: %w", err))
			}
			if newBalance.LessThan(pending.Debits) {
				return nil, apperror.ErrInsufficientFunds()
			}
		}
		if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
		}
	}
	if err := s.ledgerRepo.UpdateStatus(ctx, tx, entry.ID, domain.EntryStatusReversed); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reverse entry: %w", err))
	}

	entry.Status = domain.EntryStatusReversed
	return entry, nil
}

// lockEntry loads an entry and its wallet under lock and checks that the
// entry may move to next.
func (s *LedgerServiceImpl) lockEntry(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, next domain.EntryStatus) (*domain.LedgerEntry, *domain.Wallet, error) {
	entry, err := s.ledgerRepo.GetByIDForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock ledger entry: %w", err))
	}
	if entry == nil {
		return nil, nil, apperror.ErrNotFound("ledger entry")
	}
	if !entry.Status.CanTransition(next) {
		return nil, nil, apperror.ErrInvalidTransition("ledger entry", string(entry.Status), string(next))
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, entry.WalletID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, nil, apperror.ErrNotFound("wallet")
	}
	return entry, wallet, nil
}

// Reverse compensates an entry in its own transaction.
func (s *LedgerServiceImpl) Reverse(ctx context.Context, actor domain.Actor, entryID uuid.UUID, reason string) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.ReverseTx(ctx, dbTx, entryID)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionReverseEntry, "ledger_entry", entry.ID.String(), map[string]string{
		"wallet_id": entry.WalletID.String(),
		"amount":    entry.Amount.StringFixed(money.Scale),
		"reason":    reason,
	})
	s.effects.Dispatch(ctx, fx)

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("actor_id", actor.UserID).
		Msg("ledger entry reversed")

	return entry, nil
}

// EnsureWallet returns the owner's wallet for currency, creating it lazily.
func (s *LedgerServiceImpl) EnsureWallet(ctx context.Context, tx pgx.Tx, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	currency, err := money.Currency(currency)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, ownerType, ownerID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	wallet = &domain.Wallet{
		ID:        uuid.New(),
		OwnerType: ownerType,
		OwnerID:   ownerID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_type", string(ownerType)).
		Str("owner_id", ownerID.String()).
		Str("currency", currency).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns a wallet with its read-time pending and available amounts.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	pending, err := s.ledgerRepo.PendingTotals(ctx, nil, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("pending totals: %w", err))
	}
	return wallet.WithPending(pending), nil
}

// GetWalletByOwner returns the owner's wallet for currency with its read-time
// pending and available amounts.
func (s *LedgerServiceImpl) GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerType, ownerID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	pending, err := s.ledgerRepo.PendingTotals(ctx, nil, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("pending totals: %w", err))
	}
	return wallet.WithPending(pending), nil
}

// ListEntries returns a page of a wallet's entries, newest first.
func (s *LedgerServiceImpl) ListEntries(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, 0, apperror.ErrNotFound("wallet")
	}

	entries, total, err := s.ledgerRepo.ListByWallet(ctx, walletID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list entries: %w", err))
	}
	return entries, total, nil
}

// VerifyWallet recomputes a wallet's balance from its posted entries and
// compares it with the cached value. Both reads share one locked snapshot.
func (s *LedgerServiceImpl) VerifyWallet(ctx context.Context, id uuid.UUID) (*domain.BalanceCheck, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	sum, err := s.ledgerRepo.SumPosted(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum posted: %w", err))
	}

	check := &domain.BalanceCheck{
		WalletID:   id,
		Cached:     wallet.Balance,
		Recomputed: sum,
		Consistent: wallet.Balance.Equal(sum),
	}
	if !check.Consistent {
		s.log.Error().
			Str("wallet_id", id.String()).
			Str("cached", wallet.Balance.String()).
			Str("recomputed", sum.String()).
			Msg("wallet balance drift detected")
	}
	return check, nil
}
