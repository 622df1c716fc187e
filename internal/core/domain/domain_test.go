package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEntryStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to EntryStatus
		want     bool
	}{
		{EntryStatusPending, EntryStatusPosted, true},
		{EntryStatusPending, EntryStatusReversed, true},
		{EntryStatusPosted, EntryStatusReversed, true},
		{EntryStatusPosted, EntryStatusPending, false},
		{EntryStatusReversed, EntryStatusPosted, false},
		{EntryStatusReversed, EntryStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestLedgerEntry_Delta(t *testing.T) {
	credit := &LedgerEntry{Type: EntryTypeCredit, Amount: dec("10.50")}
	debit := &LedgerEntry{Type: EntryTypeDebit, Amount: dec("10.50")}

	assert.True(t, credit.Delta().Equal(dec("10.50")))
	assert.True(t, debit.Delta().Equal(dec("-10.50")))
}

func TestWallet_WithPending(t *testing.T) {
	w := &Wallet{Balance: dec("100")}
	w.WithPending(PendingTotals{Debits: dec("30"), Credits: dec("50")})

	assert.True(t, w.Pending.Equal(dec("-20")), "signed pending is debits minus credits")
	assert.True(t, w.Available.Equal(dec("70")), "pending credits never raise available")
}

func TestInvoiceStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from, to InvoiceStatus
		want     bool
	}{
		{"draft submit", InvoiceStatusDraft, InvoiceStatusSubmitted, true},
		{"submitted approve", InvoiceStatusSubmitted, InvoiceStatusApproved, true},
		{"approved schedule", InvoiceStatusApproved, InvoiceStatusScheduled, true},
		{"scheduled pay", InvoiceStatusScheduled, InvoiceStatusPaid, true},
		{"approved pay", InvoiceStatusApproved, InvoiceStatusPaid, true},
		{"submitted fail", InvoiceStatusSubmitted, InvoiceStatusFailed, true},
		{"draft fail", InvoiceStatusDraft, InvoiceStatusFailed, false},
		{"draft pay", InvoiceStatusDraft, InvoiceStatusPaid, false},
		{"backwards", InvoiceStatusApproved, InvoiceStatusSubmitted, false},
		{"paid is terminal", InvoiceStatusPaid, InvoiceStatusFailed, false},
		{"failed is terminal", InvoiceStatusFailed, InvoiceStatusPaid, false},
		{"re-approve", InvoiceStatusApproved, InvoiceStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestInvoice_TransitionAppendsTimeline(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: InvoiceStatusSubmitted, Timeline: []TimelineEntry{{Label: "Submitted", At: t0}}}

	require.NoError(t, inv.Transition(InvoiceStatusApproved, t0.Add(time.Hour)))
	require.NoError(t, inv.Transition(InvoiceStatusPaid, t0.Add(2*time.Hour)))

	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	require.Len(t, inv.Timeline, 3)
	assert.Equal(t, "Approved", inv.Timeline[1].Label)
	assert.Equal(t, "Paid", inv.Timeline[2].Label)
	assert.Equal(t, t0.Add(2*time.Hour), inv.Timeline[2].At)

	err := inv.Transition(InvoiceStatusFailed, t0)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "paid", te.From)
	assert.Len(t, inv.Timeline, 3, "rejected transition leaves the timeline untouched")
}

func TestPayoutStatus_CanTransition(t *testing.T) {
	assert.True(t, PayoutStatusPending.CanTransition(PayoutStatusProcessing))
	assert.True(t, PayoutStatusPending.CanTransition(PayoutStatusPaid))
	assert.True(t, PayoutStatusProcessing.CanTransition(PayoutStatusFailed))
	assert.False(t, PayoutStatusProcessing.CanTransition(PayoutStatusPending))
	assert.False(t, PayoutStatusPaid.CanTransition(PayoutStatusFailed))
	assert.False(t, PayoutStatusFailed.CanTransition(PayoutStatusPaid))
	assert.True(t, PayoutStatusPaid.IsTerminal())
	assert.False(t, PayoutStatusProcessing.IsTerminal())
}

func TestCardStatus_CanTransition(t *testing.T) {
	assert.True(t, CardStatusActive.CanTransition(CardStatusFrozen))
	assert.True(t, CardStatusFrozen.CanTransition(CardStatusActive))
	assert.True(t, CardStatusFrozen.CanTransition(CardStatusClosed))
	assert.False(t, CardStatusClosed.CanTransition(CardStatusActive))
	assert.False(t, CardStatusActive.CanTransition(CardStatusActive))
}

func TestNewPayoutRefreshJob(t *testing.T) {
	p := &Payout{ID: uuid.New(), ProviderRef: "tr_abc"}
	runAt := time.Now().Add(5 * time.Minute)

	job, err := NewPayoutRefreshJob(p, runAt)
	require.NoError(t, err)
	assert.Equal(t, JobTypePayoutStatusRefresh, job.Type)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, runAt, job.RunAt)
	assert.JSONEq(t, `{"payoutId":"`+p.ID.String()+`","providerRef":"tr_abc"}`, string(job.Payload))
}

func TestGate(t *testing.T) {
	tests := []struct {
		name     string
		action   GateAction
		ctx      GateContext
		blockers []string
	}{
		{
			name:     "invite blocked without company profile",
			action:   GateInviteContractor,
			ctx:      GateContext{Checklist: DefaultChecklist()},
			blockers: []string{BlockerCompanyProfile},
		},
		{
			name:     "invite allowed",
			action:   GateInviteContractor,
			ctx:      GateContext{Checklist: Checklist{CompanyProfileComplete: true}},
			blockers: []string{},
		},
		{
			name:     "invoice blocked for invited contractor",
			action:   GateSubmitInvoice,
			ctx:      GateContext{ContractorStatus: ContractorStatusInvited},
			blockers: []string{BlockerContractorActive},
		},
		{
			name:     "invoice allowed for active contractor",
			action:   GateSubmitInvoice,
			ctx:      GateContext{ContractorStatus: ContractorStatusActive},
			blockers: []string{},
		},
		{
			name:     "payout accumulates both blockers",
			action:   GatePayout,
			ctx:      GateContext{},
			blockers: []string{BlockerFundingSource, BlockerPayoutMethod},
		},
		{
			name:     "payout missing method only",
			action:   GatePayout,
			ctx:      GateContext{Checklist: Checklist{FundingSourceConnected: true}},
			blockers: []string{BlockerPayoutMethod},
		},
		{
			name:     "card blocked for inactive contractor",
			action:   GateIssueCard,
			ctx:      GateContext{ContractorStatus: ContractorStatusInactive},
			blockers: []string{BlockerContractorActive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gate(tt.action, tt.ctx)
			assert.Equal(t, tt.blockers, got.Blockers)
			assert.Equal(t, len(tt.blockers) == 0, got.Allowed)
		})
	}
}

func TestChecklist(t *testing.T) {
	c := DefaultChecklist()
	assert.True(t, c.Require2FAForAdmins)

	done, total := c.Progress()
	assert.Equal(t, 0, done)
	assert.Equal(t, 5, total)

	assert.True(t, c.Complete(StepFundingSource))
	assert.False(t, c.Complete(StepFundingSource), "completing twice is a no-op")
	assert.False(t, c.Complete("unknown"))

	done, _ = c.Progress()
	assert.Equal(t, 1, done)
}

func TestResolveContractorStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  ContractorStatus
		kyc      KYCStatus
		contract bool
		want     ContractorStatus
	}{
		{"pending kyc keeps status", ContractorStatusOnboarding, KYCStatusPending, true, ContractorStatusOnboarding},
		{"rejected kyc keeps status", ContractorStatusActive, KYCStatusRejected, true, ContractorStatusActive},
		{"approved with contract", ContractorStatusOnboarding, KYCStatusApproved, true, ContractorStatusActive},
		{"approved without contract", ContractorStatusActive, KYCStatusApproved, false, ContractorStatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveContractorStatus(tt.current, tt.kyc, tt.contract))
		})
	}
}

func TestRole_Can(t *testing.T) {
	assert.True(t, RoleOwner.Can(PermManageOrgSecurity))
	assert.True(t, RoleSuperAdmin.Can(PermIssueCard))
	assert.True(t, RoleFinanceAdmin.Can(PermCreatePayout))
	assert.False(t, RoleFinanceAdmin.Can(PermIssueCard))
	assert.False(t, RoleFinanceAdmin.Can(PermManageOrgSecurity))
	assert.True(t, RoleContractor.Can(PermViewDashboard))
	assert.False(t, RoleContractor.Can(PermCreateInvoice))
	assert.True(t, RoleContractor.Can(PermWithdrawFunds))
	assert.False(t, RoleFinanceAdmin.Can(PermWithdrawFunds))
	assert.False(t, Role("GUEST").Can(PermViewDashboard))
	assert.False(t, Role("GUEST").Valid())
	assert.True(t, RoleFinanceAdmin.Valid())
}

func TestRole_RequiresSecondFactor(t *testing.T) {
	on := Checklist{Require2FAForAdmins: true}
	off := Checklist{}

	assert.True(t, RoleOwner.RequiresSecondFactor(on))
	assert.True(t, RoleFinanceAdmin.RequiresSecondFactor(on))
	assert.False(t, RoleSuperAdmin.RequiresSecondFactor(on))
	assert.False(t, RoleContractor.RequiresSecondFactor(on))
	assert.False(t, RoleOwner.RequiresSecondFactor(off))
}

func TestFXQuote(t *testing.T) {
	now := time.Now()
	q := &FXQuote{Amount: dec("1000"), Rate: dec("0.98"), Fee: dec("5"), ExpiresAt: now.Add(time.Minute)}

	assert.False(t, q.Expired(now))
	assert.True(t, q.Expired(now.Add(time.Minute)))
	assert.Equal(t, "975.10", q.DestinationAmount().StringFixed(2))
}

func TestEffects(t *testing.T) {
	var fx Effects
	assert.True(t, fx.Empty())

	fx.Notify("u1", EventPayoutCompleted, map[string]string{"payoutId": "p1"})
	fx.Audit("u1", AuditActionCreatePayout, "payout", "p1", nil)

	assert.False(t, fx.Empty())
	require.Len(t, fx.Notifications, 1)
	require.Len(t, fx.Audits, 1)
	assert.Equal(t, EventPayoutCompleted, fx.Notifications[0].Event)
	assert.NotEqual(t, uuid.Nil, fx.Audits[0].ID)
}

func TestBuildIdempotencyKey(t *testing.T) {
	assert.Equal(t, "withdraw:user-1:abc", BuildIdempotencyKey("withdraw", "user-1", "abc"))
}
