package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus is the issued card lifecycle.
type CardStatus string

const (
	CardStatusActive CardStatus = "active"
	CardStatusFrozen CardStatus = "frozen"
	CardStatusClosed CardStatus = "closed"
)

// CanTransition reports whether a card may move from s to next.
// active <-> frozen, either -> closed; closed is terminal.
func (s CardStatus) CanTransition(next CardStatus) bool {
	switch s {
	case CardStatusActive:
		return next == CardStatusFrozen || next == CardStatusClosed
	case CardStatusFrozen:
		return next == CardStatusActive || next == CardStatusClosed
	case CardStatusClosed:
		return false
	}
	return false
}

// Default spending limits for newly issued cards.
var (
	DefaultCardDailyLimit   = decimal.NewFromInt(1000)
	DefaultCardMonthlyLimit = decimal.NewFromInt(7500)
)

// Card is a spend card issued against a contractor wallet.
type Card struct {
	ID           uuid.UUID       `json:"id"`
	ContractorID uuid.UUID       `json:"contractor_id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Label        string          `json:"label"`
	Last4        string          `json:"last4"`
	Provider     string          `json:"provider"`
	ProviderRef  string          `json:"provider_ref"`
	Status       CardStatus      `json:"status"`
	DailyLimit   decimal.Decimal `json:"daily_limit"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
