package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContractorStatus is the contractor onboarding lifecycle.
type ContractorStatus string

const (
	ContractorStatusInvited    ContractorStatus = "invited"
	ContractorStatusOnboarding ContractorStatus = "onboarding"
	ContractorStatusActive     ContractorStatus = "active"
	ContractorStatusInactive   ContractorStatus = "inactive"
)

// KYCStatus is the identity verification outcome.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

// Valid reports whether k is a known KYC status.
func (k KYCStatus) Valid() bool {
	switch k {
	case KYCStatusPending, KYCStatusApproved, KYCStatusRejected:
		return true
	}
	return false
}

// ResolveContractorStatus derives the status after a KYC or contract change.
// Until KYC is approved the current status is kept.
func ResolveContractorStatus(current ContractorStatus, kyc KYCStatus, contractActive bool) ContractorStatus {
	if kyc != KYCStatusApproved {
		return current
	}
	if contractActive {
		return ContractorStatusActive
	}
	return ContractorStatusInactive
}

// Contractor is a person the organization pays.
type Contractor struct {
	ID             uuid.UUID        `json:"id"`
	OrgID          uuid.UUID        `json:"org_id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Country        string           `json:"country"`
	Currency       string           `json:"currency"`
	Status         ContractorStatus `json:"status"`
	KYCStatus      KYCStatus        `json:"kyc_status"`
	ContractActive bool             `json:"contract_active"`
	InviteToken    string           `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// PayoutMethodType is the rail a contractor is paid through.
type PayoutMethodType string

const (
	PayoutMethodBank PayoutMethodType = "bank_account"
	PayoutMethodWise PayoutMethodType = "wise"
)

// Valid reports whether t is a supported payout rail.
func (t PayoutMethodType) Valid() bool {
	return t == PayoutMethodBank || t == PayoutMethodWise
}

// PayoutMethod is where a contractor receives funds. The full account number
// is only held encrypted.
type PayoutMethod struct {
	ID               uuid.UUID        `json:"id"`
	ContractorID     uuid.UUID        `json:"contractor_id"`
	Type             PayoutMethodType `json:"type"`
	Currency         string           `json:"currency"`
	BankName         string           `json:"bank_name,omitempty"`
	AccountLast4     string           `json:"account_last4"`
	AccountEncrypted string           `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Organization is the workspace that funds payouts.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	LegalName string    `json:"legal_name,omitempty"`
	Country   string    `json:"country,omitempty"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}
