package service

import (
	"context"
	"io"
	"testing"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

var (
	adminActor      = domain.Actor{UserID: "admin-1", Role: domain.RoleFinanceAdmin}
	contractorActor = domain.Actor{UserID: "contractor-user", Role: domain.RoleContractor}
)

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal.Decimal by numeric value.
type decEq struct{ want decimal.Decimal }

func decimalEq(s string) gomock.Matcher { return decEq{want: dec(s)} }

func (m decEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decEq) String() string { return "is decimal " + m.want.String() }
