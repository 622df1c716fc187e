package domain

import "time"

// Checklist is the workspace onboarding state read by every gate.
type Checklist struct {
	CompanyProfileComplete bool      `json:"companyProfileComplete"`
	FundingSourceConnected bool      `json:"fundingSourceConnected"`
	FirstContractorInvited bool      `json:"firstContractorInvited"`
	ApprovalRulesSet       bool      `json:"approvalRulesSet"`
	FirstPayoutSent        bool      `json:"firstPayoutSent"`
	Require2FAForAdmins    bool      `json:"require2FAForAdmins"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// DefaultChecklist is the state a new workspace starts with.
func DefaultChecklist() Checklist {
	return Checklist{Require2FAForAdmins: true}
}

// ChecklistStep is a completable onboarding milestone.
type ChecklistStep string

const (
	StepCompanyProfile  ChecklistStep = "company_profile"
	StepFundingSource   ChecklistStep = "funding_source"
	StepFirstContractor ChecklistStep = "first_contractor"
	StepApprovalRules   ChecklistStep = "approval_rules"
	StepFirstPayout     ChecklistStep = "first_payout"
)

// Complete marks step done and reports whether anything changed.
func (c *Checklist) Complete(step ChecklistStep) bool {
	var flag *bool
	switch step {
	case StepCompanyProfile:
		flag = &c.CompanyProfileComplete
	case StepFundingSource:
		flag = &c.FundingSourceConnected
	case StepFirstContractor:
		flag = &c.FirstContractorInvited
	case StepApprovalRules:
		flag = &c.ApprovalRulesSet
	case StepFirstPayout:
		flag = &c.FirstPayoutSent
	default:
		return false
	}
	if *flag {
		return false
	}
	*flag = true
	return true
}

// Progress returns completed and total milestone counts.
func (c Checklist) Progress() (done, total int) {
	for _, ok := range []bool{
		c.CompanyProfileComplete,
		c.FundingSourceConnected,
		c.FirstContractorInvited,
		c.ApprovalRulesSet,
		c.FirstPayoutSent,
	} {
		total++
		if ok {
			done++
		}
	}
	return done, total
}
