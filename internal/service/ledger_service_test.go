package service

import (
	"context"
	"errors"
	"testing"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc        *LedgerServiceImpl
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	transactor *mocks.MockDBTransactor
	effects    *mocks.MockEffectDispatcher
	ctrl       *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		effects:    mocks.NewMockEffectDispatcher(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewLedgerService(d.walletRepo, d.ledgerRepo, d.transactor, d.effects, newTestLogger())
	return d
}

func usdWallet(balance string) *domain.Wallet {
	return &domain.Wallet{
		ID:        uuid.New(),
		OwnerType: domain.OwnerTypeOrg,
		OwnerID:   uuid.New(),
		Currency:  "USD",
		Balance:   dec(balance),
	}
}

// ==================== Post ====================

func TestLedgerService_Post_CreditPosted(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")

	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, decimalEq("150.25")).Return(nil)

	entry, err := d.svc.Post(ctx, tx, domain.PostRequest{
		WalletID:      wallet.ID,
		Type:          domain.EntryTypeCredit,
		Amount:        dec("50.25"),
		ReferenceType: domain.ReferenceFunding,
		ReferenceID:   "req_1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusPosted, entry.Status)
	assert.Equal(t, "USD", entry.Currency)
	assert.True(t, entry.Amount.Equal(dec("50.25")))
}

func TestLedgerService_Post_PendingDoesNotMoveBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")

	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().PendingTotals(ctx, tx, wallet.ID).Return(domain.PendingTotals{}, nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	entry, err := d.svc.Post(ctx, tx, domain.PostRequest{
		WalletID: wallet.ID,
		Type:     domain.EntryTypeDebit,
		Amount:   dec("40"),
		Status:   domain.EntryStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusPending, entry.Status)
}

func TestLedgerService_Post_InsufficientAvailable(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")

	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().PendingTotals(ctx, tx, wallet.ID).Return(domain.PendingTotals{Debits: dec("70")}, nil)

	_, err := d.svc.Post(ctx, tx, domain.PostRequest{
		WalletID: wallet.ID,
		Type:     domain.EntryTypeDebit,
		Amount:   dec("40"),
	})
	assertAppError(t, err, "FUND_001")
}

func TestLedgerService_Post_Validation(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}

	_, err := d.svc.Post(ctx, tx, domain.PostRequest{WalletID: uuid.New(), Type: domain.EntryTypeCredit, Amount: dec("0")})
	assertAppError(t, err, "VAL_002")

	_, err = d.svc.Post(ctx, tx, domain.PostRequest{WalletID: uuid.New(), Type: domain.EntryTypeCredit, Amount: dec("-5")})
	assertAppError(t, err, "VAL_002")

	_, err = d.svc.Post(ctx, tx, domain.PostRequest{WalletID: uuid.New(), Type: "TRANSFER", Amount: dec("5")})
	assertAppError(t, err, "VAL_001")

	_, err = d.svc.Post(ctx, tx, domain.PostRequest{WalletID: uuid.New(), Type: domain.EntryTypeCredit, Amount: dec("5"), Status: domain.EntryStatusReversed})
	assertAppError(t, err, "VAL_001")
}

func TestLedgerService_Post_CurrencyMismatch(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")

	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)

	_, err := d.svc.Post(ctx, tx, domain.PostRequest{
		WalletID: wallet.ID,
		Type:     domain.EntryTypeCredit,
		Amount:   dec("5"),
		Currency: "EUR",
	})
	assertAppError(t, err, "VAL_001")
}

func TestLedgerService_Post_WalletNotFound(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	id := uuid.New()

	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	_, err := d.svc.Post(ctx, tx, domain.PostRequest{WalletID: id, Type: domain.EntryTypeCredit, Amount: dec("5")})
	assertAppError(t, err, "NF_001")
}

// ==================== Promote / Reverse ====================

func TestLedgerService_Promote(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")
	entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: wallet.ID, Type: domain.EntryTypeDebit, Amount: dec("30"), Status: domain.EntryStatusPending}

	d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().UpdateStatus(ctx, tx, entry.ID, domain.EntryStatusPosted).Return(nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, decimalEq("70")).Return(nil)

	got, err := d.svc.Promote(ctx, tx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusPosted, got.Status)
}

func TestLedgerService_Promote_RejectsReversed(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: uuid.New(), Status: domain.EntryStatusReversed}

	d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)

	_, err := d.svc.Promote(ctx, tx, entry.ID)
	assertAppError(t, err, "VAL_003")
}

func TestLedgerService_Promote_RefusesNegativeBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("20")
	entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: wallet.ID, Type: domain.EntryTypeDebit, Amount: dec("30"), Status: domain.EntryStatusPending}

	d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)

	_, err := d.svc.Promote(ctx, tx, entry.ID)
	assertAppError(t, err, "FUND_001")
}

func TestLedgerService_ReverseTx_PendingReleasesReservation(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")
	entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: wallet.ID, Type: domain.EntryTypeDebit, Amount: dec("30"), Status: domain.EntryStatusPending}

	d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().UpdateStatus(ctx, tx, entry.ID, domain.EntryStatusReversed).Return(nil)

	got, err := d.svc.ReverseTx(ctx, tx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusReversed, got.Status)
}

func TestLedgerService_ReverseTx_PostedCreditCannotOverdraw(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("10")
	entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: wallet.ID, Type: domain.EntryTypeCredit, Amount: dec("30"), Status: domain.EntryStatusPosted}

	d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().PendingTotals(ctx, tx, wallet.ID).Return(domain.PendingTotals{}, nil)

	_, err := d.svc.ReverseTx(ctx, tx, entry.ID)
	assertAppError(t, err, "FUND_001")
}

func TestLedgerService_ReverseTx_PostedCreditKeepsReservationsCovered(t *testing.T) {
	tests := []struct {
		name     string
		balance  string
		amount   string
		reserved string
		wantCode string
		wantBal  string
	}{
		{name: "reserved funds would be uncovered", balance: "100", amount: "100", reserved: "40", wantCode: "FUND_001"},
		{name: "exactly covers reservation", balance: "100", amount: "60", reserved: "40", wantBal: "40"},
		{name: "no reservation", balance: "100", amount: "100", reserved: "0", wantBal: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupLedgerService(t)
			ctx := context.Background()
			tx := &mockTx{}
			wallet := usdWallet(tt.balance)
			entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: wallet.ID, Type: domain.EntryTypeCredit, Amount: dec(tt.amount), Status: domain.EntryStatusPosted}

			d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)
			d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
			d.ledgerRepo.EXPECT().PendingTotals(ctx, tx, wallet.ID).Return(domain.PendingTotals{Debits: dec(tt.reserved)}, nil)
			if tt.wantCode == "" {
				d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, decimalEq(tt.wantBal)).Return(nil)
				d.ledgerRepo.EXPECT().UpdateStatus(ctx, tx, entry.ID, domain.EntryStatusReversed).Return(nil)
			}

			_, err := d.svc.ReverseTx(ctx, tx, entry.ID)
			if tt.wantCode != "" {
				assertAppError(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLedgerService_Reverse_DispatchesAudit(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")
	entry := &domain.LedgerEntry{ID: uuid.New(), WalletID: wallet.ID, Type: domain.EntryTypeDebit, Amount: dec("25"), Status: domain.EntryStatusPosted}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetByIDForUpdate(ctx, tx, entry.ID).Return(entry, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, wallet.ID, decimalEq("125")).Return(nil)
	d.ledgerRepo.EXPECT().UpdateStatus(ctx, tx, entry.ID, domain.EntryStatusReversed).Return(nil)
	d.effects.EXPECT().Dispatch(ctx, gomock.Any()).Do(func(_ context.Context, fx domain.Effects) {
		require.Len(t, fx.Audits, 1)
		assert.Equal(t, domain.AuditActionReverseEntry, fx.Audits[0].Action)
		assert.Equal(t, "duplicate", fx.Audits[0].Metadata["reason"])
	})

	_, err := d.svc.Reverse(ctx, adminActor, entry.ID, "duplicate")
	require.NoError(t, err)
}

// ==================== Wallets ====================

func TestLedgerService_EnsureWallet_CreatesWhenMissing(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	owner := uuid.New()

	d.walletRepo.EXPECT().GetByOwnerForUpdate(ctx, tx, domain.OwnerTypeContractor, owner, "EUR").Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	wallet, err := d.svc.EnsureWallet(ctx, tx, domain.OwnerTypeContractor, owner, "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", wallet.Currency)
	assert.True(t, wallet.Balance.IsZero())
}

func TestLedgerService_EnsureWallet_ReturnsExisting(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	existing := usdWallet("5")

	d.walletRepo.EXPECT().GetByOwnerForUpdate(ctx, tx, domain.OwnerTypeOrg, existing.OwnerID, "USD").Return(existing, nil)

	wallet, err := d.svc.EnsureWallet(ctx, tx, domain.OwnerTypeOrg, existing.OwnerID, "USD")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, wallet.ID)
}

func TestLedgerService_GetWallet_FillsAvailable(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	wallet := usdWallet("100")

	d.walletRepo.EXPECT().GetByID(ctx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().PendingTotals(ctx, nil, wallet.ID).Return(domain.PendingTotals{Debits: dec("40"), Credits: dec("10")}, nil)

	got, err := d.svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, got.Available.Equal(dec("60")))
	assert.True(t, got.Pending.Equal(dec("30")))
}

func TestLedgerService_GetWallet_RepoError(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	id := uuid.New()

	d.walletRepo.EXPECT().GetByID(ctx, id).Return(nil, errors.New("db down"))

	_, err := d.svc.GetWallet(ctx, id)
	assertAppError(t, err, "SYS_001")
}

func TestLedgerService_ListEntries_ClampsPaging(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	wallet := usdWallet("0")

	d.walletRepo.EXPECT().GetByID(ctx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().ListByWallet(ctx, wallet.ID, 1, maxPageSize).Return(nil, int64(0), nil)

	_, total, err := d.svc.ListEntries(ctx, wallet.ID, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestLedgerService_VerifyWallet_DetectsDrift(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	tx := &mockTx{}
	wallet := usdWallet("100")

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, wallet.ID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().SumPosted(ctx, tx, wallet.ID).Return(dec("90"), nil)

	check, err := d.svc.VerifyWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.False(t, check.Consistent)
	assert.True(t, check.Recomputed.Equal(dec("90")))
}
