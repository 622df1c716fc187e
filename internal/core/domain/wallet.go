package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerType tells whether a wallet belongs to the organization or a contractor.
type OwnerType string

const (
	OwnerTypeOrg        OwnerType = "ORG"
	OwnerTypeContractor OwnerType = "CONTRACTOR"
)

// Wallet is a currency-denominated balance holder. Balance is a cached
// projection of posted ledger entries and is only written by the ledger.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerType OwnerType       `json:"owner_type"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Pending   decimal.Decimal `json:"pending"`   // read-time aggregate, not stored
	Available decimal.Decimal `json:"available"` // Balance minus reserved debits
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PendingTotals is the aggregate of entries still in pending status.
type PendingTotals struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Signed returns debits minus credits: positive values are reserved outflows.
func (p PendingTotals) Signed() decimal.Decimal {
	return p.Debits.Sub(p.Credits)
}

// WithPending fills the read-time Pending and Available fields.
// Pending credits never raise Available.
func (w *Wallet) WithPending(p PendingTotals) *Wallet {
	w.Pending = p.Signed()
	w.Available = w.Balance.Sub(p.Debits)
	return w
}

// BalanceCheck compares the cached balance with a from-scratch recomputation.
type BalanceCheck struct {
	WalletID   uuid.UUID       `json:"wallet_id"`
	Cached     decimal.Decimal `json:"cached"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Consistent bool            `json:"consistent"`
}
