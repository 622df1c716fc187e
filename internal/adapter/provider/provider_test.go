package provider

import (
	"context"
	"testing"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedFX_GetQuote_CrossCurrency(t *testing.T) {
	p := NewSimulatedFX(15*time.Minute, 24*time.Hour, zerolog.Nop())

	q, err := p.GetQuote(context.Background(), "usd", "EUR", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "USD", q.SourceCurrency)
	assert.Equal(t, "EUR", q.DestinationCurrency)
	assert.Equal(t, "0.98", q.Rate.String())
	assert.Equal(t, "5", q.Fee.String())
	assert.Regexp(t, `^fxq_`, q.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), q.ExpiresAt, 5*time.Second)
}

func TestSimulatedFX_GetQuote_SameCurrency(t *testing.T) {
	p := NewSimulatedFX(time.Minute, time.Hour, zerolog.Nop())

	q, err := p.GetQuote(context.Background(), "USD", "USD", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, q.Fee.IsZero())
}

func TestSimulatedFX_GetQuote_MinimumFee(t *testing.T) {
	p := NewSimulatedFX(time.Minute, time.Hour, zerolog.Nop())

	q, err := p.GetQuote(context.Background(), "USD", "GBP", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, q.Fee.Equal(decimal.NewFromInt(1)), "fee never drops below 1")
}

func TestSimulatedFX_TransferLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewSimulatedFX(time.Minute, 24*time.Hour, zerolog.Nop())

	q, err := p.GetQuote(ctx, "USD", "EUR", decimal.NewFromInt(100))
	require.NoError(t, err)
	rcpt, err := p.CreateRecipient(ctx, &domain.Contractor{ID: uuid.New()}, &domain.PayoutMethod{Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "EUR", rcpt.Currency)

	tr, err := p.CreateTransfer(ctx, q, rcpt)
	require.NoError(t, err)
	assert.Regexp(t, `^tr_`, tr.ProviderRef)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), tr.EstimatedArrival, 5*time.Second)

	state, err := p.TransferStatus(ctx, tr.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateCompleted, state)

	p.SetTransferState(tr.ProviderRef, domain.TransferStateFailed)
	state, err = p.TransferStatus(ctx, tr.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStateFailed, state)
}

func TestSimulatedFX_CreateTransfer_ExpiredQuote(t *testing.T) {
	p := NewSimulatedFX(time.Minute, time.Hour, zerolog.Nop())
	q := &domain.FXQuote{ID: "fxq_old", ExpiresAt: time.Now().Add(-time.Second)}

	_, err := p.CreateTransfer(context.Background(), q, &domain.Recipient{ID: "rcpt_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSimulatedFX_Outage(t *testing.T) {
	ctx := context.Background()
	p := NewSimulatedFX(time.Minute, time.Hour, zerolog.Nop())
	p.SetOutage(true)

	_, err := p.GetQuote(ctx, "USD", "EUR", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = p.TransferStatus(ctx, "tr_x")
	assert.ErrorIs(t, err, ErrUnavailable)

	p.SetOutage(false)
	_, err = p.GetQuote(ctx, "USD", "EUR", decimal.NewFromInt(10))
	assert.NoError(t, err)
}

func TestSimulatedIssuer_Issue(t *testing.T) {
	i := NewSimulatedIssuer(zerolog.Nop())

	card, err := i.Issue(context.Background(), &domain.Contractor{ID: uuid.New()}, "Travel")
	require.NoError(t, err)
	assert.Equal(t, CardProviderName, card.Provider)
	assert.Len(t, card.Last4, 4)
	assert.Regexp(t, `^card_`, card.ProviderRef)
}
