package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FXQuote is an immutable rate/fee offer with a bounded validity window.
type FXQuote struct {
	ID                  string          `json:"id"`
	SourceCurrency      string          `json:"source_currency"`
	DestinationCurrency string          `json:"destination_currency"`
	Amount              decimal.Decimal `json:"amount"`
	Rate                decimal.Decimal `json:"rate"`
	Fee                 decimal.Decimal `json:"fee"`
	ExpiresAt           time.Time       `json:"expires_at"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Expired reports whether the quote may no longer back a payout.
func (q *FXQuote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// DestinationAmount is what the recipient receives: (amount - fee) * rate.
func (q *FXQuote) DestinationAmount() decimal.Decimal {
	return q.Amount.Sub(q.Fee).Mul(q.Rate).Round(2)
}

// Recipient is a provider-side payee handle.
type Recipient struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
}

// Transfer is a provider-side money movement.
type Transfer struct {
	ProviderRef      string    `json:"provider_ref"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
}

// TransferState is what the provider reports for an in-flight transfer.
type TransferState string

const (
	TransferStateProcessing TransferState = "processing"
	TransferStateCompleted  TransferState = "completed"
	TransferStateFailed     TransferState = "failed"
)
