package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the payout lifecycle.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// IsTerminal returns true for paid and failed.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusPaid || s == PayoutStatusFailed
}

// CanTransition reports whether the payout may move from s to next.
func (s PayoutStatus) CanTransition(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		switch next {
		case PayoutStatusProcessing, PayoutStatusPaid, PayoutStatusFailed:
			return true
		}
	case PayoutStatusProcessing:
		return next == PayoutStatusPaid || next == PayoutStatusFailed
	case PayoutStatusPaid, PayoutStatusFailed:
		return false
	}
	return false
}

// PayoutKind distinguishes how the payout was funded.
type PayoutKind string

const (
	// PayoutKindDirect is funded by the organization wallet at settlement.
	PayoutKindDirect PayoutKind = "direct"
	// PayoutKindWithdrawal is funded by a pending debit on the contractor wallet.
	PayoutKindWithdrawal PayoutKind = "withdrawal"
	// PayoutKindInvoice records the FX leg of a cross-currency invoice payment.
	PayoutKindInvoice PayoutKind = "invoice"
)

// Payout is a transfer of funds out of a wallet, tracked apart from the
// ledger entries that fund it.
type Payout struct {
	ID                  uuid.UUID       `json:"id"`
	ContractorID        uuid.UUID       `json:"contractor_id"`
	InvoiceID           *uuid.UUID      `json:"invoice_id,omitempty"`
	Kind                PayoutKind      `json:"kind"`
	Amount              decimal.Decimal `json:"amount"`
	SourceCurrency      string          `json:"source_currency"`
	DestinationCurrency string          `json:"destination_currency"`
	FXRate              decimal.Decimal `json:"fx_rate"`
	FXFee               decimal.Decimal `json:"fx_fee"`
	Status              PayoutStatus    `json:"status"`
	ProviderRef         string          `json:"provider_ref"`
	QuoteID             string          `json:"quote_id,omitempty"`
	LedgerEntryID       *uuid.UUID      `json:"ledger_entry_id,omitempty"`
	FailureReason       string          `json:"failure_reason,omitempty"`
	EstimatedArrival    time.Time       `json:"estimated_arrival"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Transition moves the payout to next.
func (p *Payout) Transition(next PayoutStatus, at time.Time) error {
	if !p.Status.CanTransition(next) {
		return &TransitionError{Entity: "payout", From: string(p.Status), To: string(next)}
	}
	p.Status = next
	p.UpdatedAt = at
	return nil
}
