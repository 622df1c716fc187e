// Package provider holds the simulated external money providers: the FX and
// transfer provider used for payouts and the card issuer.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/pkg/money"
	"contractor-payouts/pkg/ref"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned by every call while an outage is simulated.
var ErrUnavailable = errors.New("provider unavailable")

// SimulatedFX implements ports.FXProvider with the fixed cross-rate policy.
// Transfers report completed unless a state was pinned with SetTransferState.
type SimulatedFX struct {
	quoteTTL    time.Duration
	transferETA time.Duration
	log         zerolog.Logger

	mu        sync.Mutex
	states    map[string]domain.TransferState
	outageErr error
	now       func() time.Time
}

// NewSimulatedFX creates a simulated provider issuing quotes valid for
// quoteTTL and transfers arriving after transferETA.
func NewSimulatedFX(quoteTTL, transferETA time.Duration, log zerolog.Logger) *SimulatedFX {
	return &SimulatedFX{
		quoteTTL:    quoteTTL,
		transferETA: transferETA,
		log:         log,
		states:      map[string]domain.TransferState{},
		now:         time.Now,
	}
}

// GetQuote returns a quote for moving amount from source to destination.
func (p *SimulatedFX) GetQuote(_ context.Context, source, destination string, amount decimal.Decimal) (*domain.FXQuote, error) {
	if err := p.outage(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("quote amount must be positive")
	}

	now := p.now().UTC()
	conv := money.Convert(source, destination, amount)
	quote := &domain.FXQuote{
		ID:                  ref.New(ref.Quote),
		SourceCurrency:      strings.ToUpper(source),
		DestinationCurrency: strings.ToUpper(destination),
		Amount:              money.Normalize(amount),
		Rate:                conv.Rate,
		Fee:                 conv.Fee,
		ExpiresAt:           now.Add(p.quoteTTL),
		CreatedAt:           now,
	}

	p.log.Debug().
		Str("quote_id", quote.ID).
		Str("pair", quote.SourceCurrency+"/"+quote.DestinationCurrency).
		Str("rate", quote.Rate.String()).
		Str("fee", quote.Fee.String()).
		Msg("fx quote issued")
	return quote, nil
}

// CreateRecipient registers the contractor's payout method as a payee.
func (p *SimulatedFX) CreateRecipient(_ context.Context, contractor *domain.Contractor, method *domain.PayoutMethod) (*domain.Recipient, error) {
	if err := p.outage(); err != nil {
		return nil, err
	}
	if contractor == nil || method == nil {
		return nil, fmt.Errorf("recipient requires a contractor and a payout method")
	}
	return &domain.Recipient{ID: ref.New(ref.Recipient), Currency: method.Currency}, nil
}

// CreateTransfer books a transfer against a live quote.
func (p *SimulatedFX) CreateTransfer(_ context.Context, quote *domain.FXQuote, recipient *domain.Recipient) (*domain.Transfer, error) {
	if err := p.outage(); err != nil {
		return nil, err
	}
	now := p.now()
	if quote.Expired(now) {
		return nil, fmt.Errorf("quote %s expired at %s", quote.ID, quote.ExpiresAt.Format(time.RFC3339))
	}

	transfer := &domain.Transfer{
		ProviderRef:      ref.New(ref.Transfer),
		EstimatedArrival: now.UTC().Add(p.transferETA),
	}

	p.log.Debug().
		Str("provider_ref", transfer.ProviderRef).
		Str("recipient_id", recipient.ID).
		Msg("transfer created")
	return transfer, nil
}

// TransferStatus reports the state of a transfer.
func (p *SimulatedFX) TransferStatus(_ context.Context, providerRef string) (domain.TransferState, error) {
	if err := p.outage(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.states[providerRef]; ok {
		return state, nil
	}
	return domain.TransferStateCompleted, nil
}

// SetTransferState pins the state reported for providerRef.
func (p *SimulatedFX) SetTransferState(providerRef string, state domain.TransferState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[providerRef] = state
}

// SetOutage makes every call fail with ErrUnavailable until cleared.
func (p *SimulatedFX) SetOutage(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if down {
		p.outageErr = ErrUnavailable
		return
	}
	p.outageErr = nil
}

func (p *SimulatedFX) outage() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outageErr
}
