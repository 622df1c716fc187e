package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryTypeCredit EntryType = "CREDIT"
	EntryTypeDebit  EntryType = "DEBIT"
)

// EntryStatus is the ledger entry lifecycle.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "pending"
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// CanTransition reports whether an entry may move from s to next.
// pending -> posted | reversed, posted -> reversed; reversed is terminal.
func (s EntryStatus) CanTransition(next EntryStatus) bool {
	switch s {
	case EntryStatusPending:
		return next == EntryStatusPosted || next == EntryStatusReversed
	case EntryStatusPosted:
		return next == EntryStatusReversed
	case EntryStatusReversed:
		return false
	default:
		return false
	}
}

// ReferenceType names what a ledger entry was posted for.
type ReferenceType string

const (
	ReferenceInvoice    ReferenceType = "invoice"
	ReferencePayout     ReferenceType = "payout"
	ReferenceWithdrawal ReferenceType = "withdrawal"
	ReferenceFunding    ReferenceType = "funding"
)

// LedgerEntry is an immutable credit or debit against one wallet.
// Only Status may change after creation.
type LedgerEntry struct {
	ID            uuid.UUID         `json:"id"`
	WalletID      uuid.UUID         `json:"wallet_id"`
	Type          EntryType         `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	ReferenceType ReferenceType     `json:"reference_type"`
	ReferenceID   string            `json:"reference_id"`
	Status        EntryStatus       `json:"status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Memo          string            `json:"memo,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Delta is the signed effect of this entry on a posted balance.
func (e *LedgerEntry) Delta() decimal.Decimal {
	if e.Type == EntryTypeDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// PostRequest describes a single ledger post.
type PostRequest struct {
	WalletID      uuid.UUID
	Type          EntryType
	Amount        decimal.Decimal
	Currency      string
	ReferenceType ReferenceType
	ReferenceID   string
	Status        EntryStatus
	Memo          string
	Metadata      map[string]string
}
