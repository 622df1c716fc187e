package dto

import (
	"time"

	"contractor-payouts/internal/core/domain"
)

// ---- Organization & onboarding ----

type UpdateOrgProfileRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	LegalName string `json:"legal_name" binding:"max=200"`
	Country   string `json:"country" binding:"omitempty,len=2,alpha"`
}

type UpdateSecurityRequest struct {
	Require2FAForAdmins *bool `json:"require_2fa_for_admins" binding:"required"`
}

type FundWalletRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
}

// ---- Contractors ----

type InviteContractorRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Country  string `json:"country" binding:"omitempty,len=2,alpha"`
	Currency string `json:"currency" binding:"required,currency"`
}

type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required,safe_id,max=128"`
}

// AcceptInviteResponse hands the contractor a session for their own wallet.
type AcceptInviteResponse struct {
	Contractor  *domain.Contractor `json:"contractor"`
	AccessToken string             `json:"access_token"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

type UpdateKYCRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected"`
}

type SetContractRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type SavePayoutMethodRequest struct {
	Type          string `json:"type" binding:"required"`
	Currency      string `json:"currency" binding:"required,currency"`
	BankName      string `json:"bank_name" binding:"max=200"`
	AccountNumber string `json:"account_number" binding:"required,min=4,max=64"`
}

// ---- Invoices ----

type SubmitInvoiceRequest struct {
	ContractorID string     `json:"contractor_id" binding:"required,uuid"`
	Amount       string     `json:"amount" binding:"required,amount"`
	Currency     string     `json:"currency" binding:"omitempty,currency"`
	Description  string     `json:"description" binding:"max=1000"`
	DueDate      *time.Time `json:"due_date"`
}

// ---- Payouts & FX ----

type CreatePayoutRequest struct {
	ContractorID string  `json:"contractor_id" binding:"required,uuid"`
	InvoiceID    *string `json:"invoice_id" binding:"omitempty,uuid"`
	Amount       string  `json:"amount" binding:"required,amount"`
}

type WithdrawRequest struct {
	ContractorID        string `json:"contractor_id" binding:"omitempty,uuid"`
	Amount              string `json:"amount" binding:"required,amount"`
	DestinationCurrency string `json:"destination_currency" binding:"omitempty,currency"`
}

type QuoteRequest struct {
	SourceCurrency      string `json:"source_currency" binding:"required,currency"`
	DestinationCurrency string `json:"destination_currency" binding:"required,currency"`
	Amount              string `json:"amount" binding:"required,amount"`
}

// ---- Ledger ----

type ReverseEntryRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ---- Cards ----

type IssueCardRequest struct {
	ContractorID string `json:"contractor_id" binding:"required,uuid"`
	Label        string `json:"label" binding:"max=100"`
}

type SetCardStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active frozen closed"`
}

// ---- Dashboard ----

// DashboardResponse summarises the workspace for the admin home screen.
type DashboardResponse struct {
	Onboarding  *domain.Checklist `json:"onboarding"`
	StepsDone   int               `json:"steps_done"`
	StepsTotal  int               `json:"steps_total"`
	OrgWallet   *domain.Wallet    `json:"org_wallet"`
	Contractors ContractorCounts  `json:"contractors"`
}

type ContractorCounts struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	KYCPending int            `json:"kyc_pending"`
}
