package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionInviteContractor  AuditAction = "invite_contractor"
	AuditActionAcceptInvite      AuditAction = "accept_invite"
	AuditActionKYCUpdated        AuditAction = "kyc_status_updated"
	AuditActionContractUpdated   AuditAction = "contract_updated"
	AuditActionPayoutMethodSaved AuditAction = "payout_method_saved"
	AuditActionSubmitInvoice     AuditAction = "submit_invoice"
	AuditActionApproveInvoice    AuditAction = "approve_invoice"
	AuditActionPayInvoice        AuditAction = "pay_invoice"
	AuditActionFundWallet        AuditAction = "fund_wallet"
	AuditActionCreatePayout      AuditAction = "create_payout"
	AuditActionWithdrawRequested AuditAction = "withdraw_requested"
	AuditActionSettlePayout      AuditAction = "mark_payout_paid"
	AuditActionFailPayout        AuditAction = "mark_payout_failed"
	AuditActionReverseEntry      AuditAction = "reverse_ledger_entry"
	AuditActionIssueCard         AuditAction = "issue_card"
	AuditActionUpdateCardStatus  AuditAction = "update_card_status"
	AuditActionUpdateOrgProfile  AuditAction = "update_org_profile"
	AuditActionUpdateSecurity    AuditAction = "update_org_security"
	AuditActionSetApprovalRules  AuditAction = "set_approval_rules"
)

// SystemActor is recorded for actions taken by the settlement worker.
const SystemActor = "system"

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID         `json:"id"`
	ActorID      string            `json:"actor_id"`
	Action       AuditAction       `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
