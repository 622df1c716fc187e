package domain

// GateAction is a privileged action guarded by onboarding state.
type GateAction string

const (
	GateInviteContractor GateAction = "invite_contractor"
	GateSubmitInvoice    GateAction = "submit_invoice"
	GatePayout           GateAction = "payout"
	GateIssueCard        GateAction = "issue_card"
)

// Blocker texts shown to users as remediation steps.
const (
	BlockerCompanyProfile   = "Complete company profile"
	BlockerContractorActive = "Contractor must be active"
	BlockerFundingSource    = "Connect funding source"
	BlockerPayoutMethod     = "Add payout method for contractor"
	BlockerCardBalance      = "Insufficient balance to issue card"
)

// GateContext is everything a gate may look at.
type GateContext struct {
	Checklist        Checklist
	ContractorStatus ContractorStatus
	HasPayoutMethod  bool
}

// GateResult lists every unmet precondition in evaluation order.
type GateResult struct {
	Allowed  bool     `json:"allowed"`
	Blockers []string `json:"blockers"`
}

// Gate evaluates action against ctx. It has no side effects and never stops
// at the first blocker.
func Gate(action GateAction, ctx GateContext) GateResult {
	blockers := []string{}
	switch action {
	case GateInviteContractor:
		if !ctx.Checklist.CompanyProfileComplete {
			blockers = append(blockers, BlockerCompanyProfile)
		}
	case GateSubmitInvoice, GateIssueCard:
		if ctx.ContractorStatus != ContractorStatusActive {
			blockers = append(blockers, BlockerContractorActive)
		}
	case GatePayout:
		if !ctx.Checklist.FundingSourceConnected {
			blockers = append(blockers, BlockerFundingSource)
		}
		if !ctx.HasPayoutMethod {
			blockers = append(blockers, BlockerPayoutMethod)
		}
	}
	return GateResult{Allowed: len(blockers) == 0, Blockers: blockers}
}
