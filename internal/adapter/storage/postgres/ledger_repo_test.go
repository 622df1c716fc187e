package postgres

import (
	"context"
	"testing"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumnNames = []string{"id", "wallet_id", "entry_type", "amount", "currency", "reference_type",
	"reference_id", "status", "metadata", "memo", "created_at"}

func newTestEntry(walletID uuid.UUID) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:            uuid.New(),
		WalletID:      walletID,
		Type:          domain.EntryTypeDebit,
		Amount:        decimal.RequireFromString("250.00"),
		Currency:      "USD",
		ReferenceType: domain.ReferenceWithdrawal,
		ReferenceID:   uuid.NewString(),
		Status:        domain.EntryStatusPending,
		Metadata:      map[string]string{"quoteId": "fxq_123"},
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func entryRow(e *domain.LedgerEntry) *pgxmock.Rows {
	return pgxmock.NewRows(entryColumnNames).AddRow(
		e.ID, e.WalletID, e.Type, e.Amount.String(), e.Currency, e.ReferenceType,
		e.ReferenceID, e.Status, []byte(`{"quoteId":"fxq_123"}`), e.Memo, e.CreatedAt,
	)
}

func TestLedgerRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(e.ID, e.WalletID, e.Type, "250", e.Currency, e.ReferenceType,
			e.ReferenceID, e.Status, []byte(`{"quoteId":"fxq_123"}`), e.Memo, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), tx, e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	e := newTestEntry(uuid.New())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE id .+ FOR UPDATE").
		WithArgs(e.ID).
		WillReturnRows(entryRow(e))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	got, err := repo.GetByIDForUpdate(context.Background(), tx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(e.Amount))
	assert.Equal(t, "fxq_123", got.Metadata["quoteId"])
	assert.Equal(t, domain.EntryStatusPending, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE ledger_entries SET status").
		WithArgs(domain.EntryStatusPosted, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), tx, id, domain.EntryStatusPosted)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ledger entry not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()
	e := newTestEntry(walletID)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE wallet_id .+ ORDER BY created_at DESC").
		WithArgs(walletID, 2, 2).
		WillReturnRows(entryRow(e))

	entries, total, err := repo.ListByWallet(context.Background(), walletID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_SumPosted_UsesPoolWithoutTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE\\(SUM").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("-12.30"))

	sum, err := repo.SumPosted(context.Background(), nil, walletID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("-12.3")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_PendingTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FILTER \\(WHERE entry_type = 'DEBIT'\\)").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"debits", "credits"}).AddRow("100.00", "0"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	totals, err := repo.PendingTotals(context.Background(), tx, walletID)
	require.NoError(t, err)
	assert.True(t, totals.Debits.Equal(decimal.NewFromInt(100)))
	assert.True(t, totals.Credits.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
