package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"contractor-payouts/internal/adapter/provider"
	"contractor-payouts/internal/adapter/storage/memory"
	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) events(userID string) []domain.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationEvent
	for _, m := range n.sent {
		if m.UserID == userID {
			out = append(out, m.Event)
		}
	}
	return out
}

const (
	testMaxAttempts = 3
	testTransferETA = 48 * time.Hour
)

// world wires every service to one in-memory store.
type world struct {
	org         domain.Organization
	store       *memory.Store
	fx          *provider.SimulatedFX
	notifier    *recordingNotifier
	audit       *AuditServiceImpl
	ledger      *LedgerServiceImpl
	onboarding  *OnboardingServiceImpl
	orgs        *OrgServiceImpl
	contractors *ContractorServiceImpl
	invoices    *InvoiceServiceImpl
	payouts     *PayoutServiceImpl
	settlement  *SettlementServiceImpl
	cards       *CardServiceImpl
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	log := newTestLogger()

	w := &world{
		org:      domain.Organization{ID: uuid.New(), Name: "Acme", Currency: "USD"},
		store:    memory.New(),
		fx:       provider.NewSimulatedFX(15*time.Minute, testTransferETA, log),
		notifier: &recordingNotifier{},
	}
	st := w.store

	w.audit = NewAuditService(st.Audit(), log)
	t.Cleanup(w.audit.Flush)
	effects := NewEffectDispatcher(w.notifier, w.audit, log)

	enc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	w.ledger = NewLedgerService(st.Wallets(), st.Ledger(), st, effects, log)
	w.onboarding = NewOnboardingService(w.org.ID, st.Onboarding(), st, effects, log)
	w.orgs = NewOrgService(w.org, st.Organizations(), w.ledger, w.onboarding, st.Idempotency(), nil, st, effects, log)
	w.contractors = NewContractorService(w.org.ID, st.Contractors(), st.PayoutMethods(), w.ledger, w.onboarding, enc, st, effects, log)
	w.invoices = NewInvoiceService(w.org, st.Invoices(), st.Contractors(), st.Payouts(), w.ledger, st, effects, log)
	w.payouts = NewPayoutService(w.org, PayoutDeps{
		ContractorRepo: st.Contractors(),
		MethodRepo:     st.PayoutMethods(),
		InvoiceRepo:    st.Invoices(),
		PayoutRepo:     st.Payouts(),
		JobRepo:        st.Jobs(),
		IdempRepo:      st.Idempotency(),
		Ledger:         w.ledger,
		Onboarding:     w.onboarding,
		FX:             w.fx,
		Transactor:     st,
		Effects:        effects,
	}, testTransferETA, log)
	w.settlement = NewSettlementService(w.org, st.Jobs(), st.Payouts(), w.ledger, w.fx, st, effects, testMaxAttempts, time.Millisecond, log)
	w.cards = NewCardService(st.Cards(), st.Contractors(), w.ledger, provider.NewSimulatedIssuer(log), st, effects, log)

	require.NoError(t, w.orgs.Bootstrap(ctx))
	return w
}

// ready completes the company profile and funds the organization wallet.
func (w *world) ready(t *testing.T, funding string) {
	t.Helper()
	ctx := context.Background()
	_, err := w.orgs.UpdateProfile(ctx, adminActor, ports.UpdateOrgProfileRequest{
		Name: "Acme", LegalName: "Acme Inc.", Country: "US",
	})
	require.NoError(t, err)
	if funding != "" {
		_, err = w.orgs.FundWallet(ctx, adminActor, ports.FundWalletRequest{Amount: dec(funding)})
		require.NoError(t, err)
	}
}

// invite creates a contractor that has not accepted yet.
func (w *world) invite(t *testing.T, currency string) *ports.InviteResult {
	t.Helper()
	res, err := w.contractors.Invite(context.Background(), adminActor, ports.InviteContractorRequest{
		Name: "Ada", Email: "Ada@Example.com", Country: "de", Currency: currency,
	})
	require.NoError(t, err)
	return res
}

// activeContractor walks a contractor to active with a payout method on file.
func (w *world) activeContractor(t *testing.T, currency string) *domain.Contractor {
	t.Helper()
	ctx := context.Background()
	res := w.invite(t, currency)

	_, err := w.contractors.AcceptInvite(ctx, res.InviteToken)
	require.NoError(t, err)
	_, err = w.contractors.UpdateKYC(ctx, adminActor, res.Contractor.ID, domain.KYCStatusApproved)
	require.NoError(t, err)
	c, err := w.contractors.SetContract(ctx, adminActor, res.Contractor.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.ContractorStatusActive, c.Status)

	_, err = w.contractors.SavePayoutMethod(ctx, adminActor, ports.SavePayoutMethodRequest{
		ContractorID:  c.ID,
		Type:          domain.PayoutMethodBank,
		Currency:      currency,
		BankName:      "N26",
		AccountNumber: "DE89 3704 0044 0532 0130 00",
	})
	require.NoError(t, err)
	return c
}

// paidInvoice submits, approves and pays an invoice for c.
func (w *world) paidInvoice(t *testing.T, c *domain.Contractor, amount string) *ports.PayInvoiceResult {
	t.Helper()
	ctx := context.Background()
	inv, err := w.invoices.Submit(ctx, adminActor, ports.SubmitInvoiceRequest{ContractorID: c.ID, Amount: dec(amount)})
	require.NoError(t, err)
	_, err = w.invoices.Approve(ctx, adminActor, inv.ID)
	require.NoError(t, err)
	res, err := w.invoices.Pay(ctx, adminActor, inv.ID)
	require.NoError(t, err)
	return res
}

func (w *world) orgWallet(t *testing.T) *domain.Wallet {
	t.Helper()
	wallet, err := w.orgs.OrgWallet(context.Background())
	require.NoError(t, err)
	return wallet
}

func (w *world) contractorWallet(t *testing.T, c *domain.Contractor) *domain.Wallet {
	t.Helper()
	wallet, err := w.ledger.GetWalletByOwner(context.Background(), domain.OwnerTypeContractor, c.ID, c.Currency)
	require.NoError(t, err)
	return wallet
}

// assertConsistent checks that the cached balance equals the sum of posted entries.
func (w *world) assertConsistent(t *testing.T, walletIDs ...uuid.UUID) {
	t.Helper()
	for _, id := range walletIDs {
		check, err := w.ledger.VerifyWallet(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, check.Consistent, "wallet %s cached %s recomputed %s", id, check.Cached, check.Recomputed)
	}
}

func (w *world) sweep(t *testing.T) *domain.SweepReport {
	t.Helper()
	report, err := w.settlement.Sweep(context.Background())
	require.NoError(t, err)
	return report
}

func (w *world) queuedJob(t *testing.T) domain.Job {
	t.Helper()
	jobs, err := w.store.Jobs().ListQueued(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0]
}

func gateBlockers(t *testing.T, err error) []string {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "GATE_001", appErr.Code)
	return appErr.Blockers
}

// ==================== Gates ====================

func TestScenario_InviteBlockedUntilCompanyProfile(t *testing.T) {
	w := newWorld(t)

	_, err := w.contractors.Invite(context.Background(), adminActor, ports.InviteContractorRequest{
		Name: "Ada", Email: "ada@example.com", Currency: "EUR",
	})
	assert.Equal(t, []string{domain.BlockerCompanyProfile}, gateBlockers(t, err))

	w.ready(t, "")
	res := w.invite(t, "EUR")
	assert.Equal(t, domain.ContractorStatusInvited, res.Contractor.Status)
	assert.Equal(t, "ada@example.com", res.Contractor.Email)

	state, err := w.onboarding.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.CompanyProfileComplete)
	assert.True(t, state.FirstContractorInvited)
}

func TestScenario_InviteRejectsMalformedEmail(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")

	for _, email := range []string{"", "ada", "ada@", "Ada Lovelace <ada@example.com>", "ada@@example.com"} {
		_, err := w.contractors.Invite(context.Background(), adminActor, ports.InviteContractorRequest{
			Name: "Ada", Email: email, Currency: "EUR",
		})
		assertAppError(t, err, "VAL_001")
	}

	contractors, err := w.contractors.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, contractors)
}

func TestScenario_PayoutGateReportsEveryBlocker(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	res := w.invite(t, "USD")

	_, err := w.payouts.Create(context.Background(), adminActor, ports.CreatePayoutRequest{
		ContractorID: res.Contractor.ID,
		Amount:       dec("10"),
	})
	assert.Equal(t, []string{domain.BlockerFundingSource, domain.BlockerPayoutMethod}, gateBlockers(t, err))
}

func TestScenario_SubmitBlockedForInvitedContractor(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	res := w.invite(t, "USD")

	_, err := w.invoices.Submit(context.Background(), adminActor, ports.SubmitInvoiceRequest{
		ContractorID: res.Contractor.ID,
		Amount:       dec("100"),
	})
	assert.Equal(t, []string{domain.BlockerContractorActive}, gateBlockers(t, err))
}

func TestScenario_AcceptInviteIsSingleUse(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	res := w.invite(t, "USD")
	ctx := context.Background()

	c, err := w.contractors.AcceptInvite(ctx, res.InviteToken)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractorStatusOnboarding, c.Status)

	_, err = w.contractors.AcceptInvite(ctx, res.InviteToken)
	assertAppError(t, err, "NF_001")

	_, err = w.contractors.AcceptInvite(ctx, "not-a-token")
	assertAppError(t, err, "VAL_001")
}

// ==================== Invoices ====================

func TestScenario_PayInvoiceMovesFundsOnce(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "1000")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	res := w.paidInvoice(t, c, "250.50")
	assert.False(t, res.AlreadyPaid)
	assert.Equal(t, domain.InvoiceStatusPaid, res.Invoice.Status)
	assert.Nil(t, res.Payout)

	again, err := w.invoices.Pay(ctx, adminActor, res.Invoice.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyPaid)

	org := w.orgWallet(t)
	cw := w.contractorWallet(t, c)
	assert.True(t, org.Balance.Equal(dec("749.50")), org.Balance.String())
	assert.True(t, cw.Balance.Equal(dec("250.50")), cw.Balance.String())
	w.assertConsistent(t, org.ID, cw.ID)

	inv, err := w.invoices.Get(ctx, res.Invoice.ID)
	require.NoError(t, err)
	labels := make([]string, 0, len(inv.Timeline))
	for _, e := range inv.Timeline {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"Submitted", "Approved", "Paid"}, labels)

	assert.Contains(t, w.notifier.events(c.ID.String()), domain.EventInvoicePaid)
}

func TestScenario_ConcurrentPayIsExactlyOnce(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "1000")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	inv, err := w.invoices.Submit(ctx, adminActor, ports.SubmitInvoiceRequest{ContractorID: c.ID, Amount: dec("100")})
	require.NoError(t, err)
	_, err = w.invoices.Approve(ctx, adminActor, inv.ID)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*ports.PayInvoiceResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = w.invoices.Pay(ctx, adminActor, inv.ID)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].AlreadyPaid {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.True(t, w.orgWallet(t).Balance.Equal(dec("900")))
	assert.True(t, w.contractorWallet(t, c).Balance.Equal(dec("100")))
}

func TestScenario_PayCrossCurrencyRecordsFXPayout(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "2000")
	c := w.activeContractor(t, "EUR")

	res := w.paidInvoice(t, c, "1000")
	require.NotNil(t, res.Payout)
	assert.Equal(t, domain.PayoutKindInvoice, res.Payout.Kind)
	assert.Equal(t, domain.PayoutStatusPaid, res.Payout.Status)
	assert.Equal(t, "USD", res.Payout.SourceCurrency)
	assert.Equal(t, "EUR", res.Payout.DestinationCurrency)
	assert.True(t, res.Payout.FXRate.Equal(dec("0.98")))
	assert.True(t, res.Payout.FXFee.Equal(dec("5")))

	assert.Contains(t, w.notifier.events(adminActor.UserID), domain.EventPayoutCompleted)
}

func TestScenario_PayRejectsInsufficientOrgFunds(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "50")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	inv, err := w.invoices.Submit(ctx, adminActor, ports.SubmitInvoiceRequest{ContractorID: c.ID, Amount: dec("100")})
	require.NoError(t, err)
	_, err = w.invoices.Approve(ctx, adminActor, inv.ID)
	require.NoError(t, err)

	_, err = w.invoices.Pay(ctx, adminActor, inv.ID)
	assertAppError(t, err, "FUND_001")

	got, err := w.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusApproved, got.Status)
	assert.True(t, w.orgWallet(t).Balance.Equal(dec("50")))
	assert.True(t, w.contractorWallet(t, c).Balance.IsZero())
}

func TestScenario_InvoiceCurrencyMustMatchContractor(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	c := w.activeContractor(t, "USD")

	_, err := w.invoices.Submit(context.Background(), adminActor, ports.SubmitInvoiceRequest{
		ContractorID: c.ID, Amount: dec("10"), Currency: "EUR",
	})
	assertAppError(t, err, "VAL_001")
}

// ==================== Withdrawals ====================

func TestScenario_WithdrawReservesThenSettles(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "100")
	ctx := context.Background()

	payout, err := w.payouts.Withdraw(ctx, contractorActor, ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("40")})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPending, payout.Status)
	require.NotNil(t, payout.LedgerEntryID)

	cw := w.contractorWallet(t, c)
	assert.True(t, cw.Balance.Equal(dec("100")))
	assert.True(t, cw.Available.Equal(dec("60")))

	report := w.sweep(t)
	assert.Equal(t, 1, report.Completed)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, got.Status)

	cw = w.contractorWallet(t, c)
	assert.True(t, cw.Balance.Equal(dec("60")))
	assert.True(t, cw.Available.Equal(dec("60")))
	w.assertConsistent(t, cw.ID)
	assert.Contains(t, w.notifier.events(c.ID.String()), domain.EventPayoutCompleted)
}

func TestScenario_WithdrawInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "30")
	ctx := context.Background()

	_, err := w.payouts.Withdraw(ctx, contractorActor, ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("30.01")})
	assertAppError(t, err, "FUND_001")

	cw := w.contractorWallet(t, c)
	assert.True(t, cw.Balance.Equal(dec("30")))
	assert.True(t, cw.Available.Equal(dec("30")))

	jobs, err := w.store.Jobs().ListQueued(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	payouts, err := w.store.Payouts().ListByContractor(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

func TestScenario_WithdrawFailureReleasesReservation(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "100")
	ctx := context.Background()

	payout, err := w.payouts.Withdraw(ctx, contractorActor, ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("70")})
	require.NoError(t, err)
	w.fx.SetTransferState(payout.ProviderRef, domain.TransferStateFailed)

	w.sweep(t)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusFailed, got.Status)
	assert.NotEmpty(t, got.FailureReason)

	entry, err := w.store.Ledger().GetByID(ctx, *payout.LedgerEntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusReversed, entry.Status)

	cw := w.contractorWallet(t, c)
	assert.True(t, cw.Balance.Equal(dec("100")))
	assert.True(t, cw.Available.Equal(dec("100")))
	w.assertConsistent(t, cw.ID)
	assert.Contains(t, w.notifier.events(c.ID.String()), domain.EventPayoutFailed)
}

func TestScenario_WithdrawProviderOutageWritesNothing(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "100")
	w.fx.SetOutage(true)

	_, err := w.payouts.Withdraw(context.Background(), contractorActor, ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("10")})
	assertAppError(t, err, "EXT_001")

	cw := w.contractorWallet(t, c)
	assert.True(t, cw.Available.Equal(dec("100")))
}

func TestScenario_WithdrawIdempotencyKeyReplays(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "100")
	ctx := context.Background()
	req := ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("25"), IdempotencyKey: "wd-1"}

	first, err := w.payouts.Withdraw(ctx, contractorActor, req)
	require.NoError(t, err)
	second, err := w.payouts.Withdraw(ctx, contractorActor, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assert.True(t, w.contractorWallet(t, c).Available.Equal(dec("75")))
}

func TestScenario_ConcurrentSameKeyReservesOnce(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "100")
	req := ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("25"), IdempotencyKey: "wd-race"}

	const callers = 6
	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := w.payouts.Withdraw(context.Background(), contractorActor, req)
			if err != nil {
				errs <- err
				return
			}
			ids <- p.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		assert.Equal(t, "VAL_004", apperror.Code(err), err.Error())
	}
	seen := map[uuid.UUID]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
	assert.True(t, w.contractorWallet(t, c).Available.Equal(dec("75")))
}

// ==================== Direct payouts & settlement ====================

func TestScenario_DirectPayoutSettlesThroughProcessing(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	payout, err := w.payouts.Create(ctx, adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("120")})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutKindDirect, payout.Kind)
	w.fx.SetTransferState(payout.ProviderRef, domain.TransferStateProcessing)

	report := w.sweep(t)
	assert.Equal(t, 1, report.Requeued)
	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusProcessing, got.Status)
	assert.Equal(t, domain.JobStatusQueued, w.queuedJob(t).Status)

	w.fx.SetTransferState(payout.ProviderRef, domain.TransferStateCompleted)
	report = w.sweep(t)
	assert.Equal(t, 1, report.Completed)

	got, err = w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, got.Status)

	org := w.orgWallet(t)
	assert.True(t, org.Balance.Equal(dec("380")))
	w.assertConsistent(t, org.ID)

	state, err := w.onboarding.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.FirstPayoutSent)
}

func TestScenario_DirectPayoutFailsWhenOrgCannotFund(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "100")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	payout, err := w.payouts.Create(ctx, adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("150")})
	require.NoError(t, err)
	job := w.queuedJob(t)

	report := w.sweep(t)
	assert.Equal(t, 1, report.Completed)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusFailed, got.Status)
	assert.Equal(t, "insufficient organization funds", got.FailureReason)

	done, err := w.store.Jobs().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.True(t, w.orgWallet(t).Balance.Equal(dec("100")))
}

func TestScenario_DirectPayoutCrossCurrencyQuotesUpFront(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "5000")
	c := w.activeContractor(t, "EUR")

	payout, err := w.payouts.Create(context.Background(), adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("1000")})
	require.NoError(t, err)
	assert.True(t, payout.FXRate.Equal(dec("0.98")))
	assert.True(t, payout.FXFee.Equal(dec("5")))
	assert.NotEmpty(t, payout.QuoteID)
}

func TestScenario_RetryBackoffThenDeadLetter(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	payout, err := w.payouts.Create(ctx, adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("10")})
	require.NoError(t, err)
	job := w.queuedJob(t)
	w.fx.SetOutage(true)

	for i := 1; i < testMaxAttempts; i++ {
		report := w.sweep(t)
		assert.Equal(t, 1, report.Requeued, "attempt %d", i)
		requeued, err := w.store.Jobs().GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, requeued.Status)
		assert.Equal(t, i, requeued.Attempts)
		assert.NotEmpty(t, requeued.LastError)
	}

	report := w.sweep(t)
	assert.Equal(t, 1, report.Failed)

	dead, err := w.store.Jobs().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, dead.Status)
	assert.Equal(t, testMaxAttempts, dead.Attempts)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPending, got.Status)
	assert.True(t, w.orgWallet(t).Balance.Equal(dec("500")))
}

func TestScenario_PollingDoesNotSpendRetryBudget(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	payout, err := w.payouts.Create(ctx, adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("10")})
	require.NoError(t, err)
	job := w.queuedJob(t)
	w.fx.SetTransferState(payout.ProviderRef, domain.TransferStateProcessing)

	for i := 0; i <= testMaxAttempts; i++ {
		report := w.sweep(t)
		assert.Equal(t, 1, report.Requeued, "poll %d", i)
	}
	polled, err := w.store.Jobs().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, polled.Attempts)

	w.fx.SetOutage(true)
	report := w.sweep(t)
	assert.Equal(t, 1, report.Requeued)
	assert.Equal(t, 0, report.Failed)

	w.fx.SetOutage(false)
	w.fx.SetTransferState(payout.ProviderRef, domain.TransferStateCompleted)
	report = w.sweep(t)
	assert.Equal(t, 1, report.Completed)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, got.Status)
}

func TestScenario_StalledJobIsReclaimed(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	payout, err := w.payouts.Create(ctx, adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("25")})
	require.NoError(t, err)
	job := w.queuedJob(t)

	// A worker claims the job and dies before finishing it.
	claimed, err := w.store.Jobs().Claim(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 0, w.sweep(t).Claimed)

	w.settlement.WithPolling(0, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	report := w.sweep(t)
	assert.Equal(t, 1, report.Reclaimed)
	assert.Equal(t, 1, report.Completed)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, got.Status)

	done, err := w.store.Jobs().GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.Equal(t, 2, done.Attempts)

	org := w.orgWallet(t)
	assert.True(t, org.Balance.Equal(dec("475")))
	w.assertConsistent(t, org.ID)
}

func TestScenario_ConcurrentSweepsClaimEachJobOnce(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "1000")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	const payouts = 6
	for i := 0; i < payouts; i++ {
		_, err := w.payouts.Create(ctx, adminActor, ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("10")})
		require.NoError(t, err)
	}

	const workers = 4
	var wg sync.WaitGroup
	reports := make([]*domain.SweepReport, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := w.settlement.Sweep(ctx)
			assert.NoError(t, err)
			reports[i] = r
		}(i)
	}
	wg.Wait()

	claimed := 0
	for _, r := range reports {
		require.NotNil(t, r)
		claimed += r.Claimed
	}
	assert.Equal(t, payouts, claimed)

	org := w.orgWallet(t)
	assert.True(t, org.Balance.Equal(dec("940")), org.Balance.String())
	w.assertConsistent(t, org.ID)
}

func TestScenario_PayoutIdempotencyKeyCreatesOneJob(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()
	req := ports.CreatePayoutRequest{ContractorID: c.ID, Amount: dec("10"), IdempotencyKey: "po-1"}

	first, err := w.payouts.Create(ctx, adminActor, req)
	require.NoError(t, err)
	second, err := w.payouts.Create(ctx, adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	w.queuedJob(t)
}

func TestScenario_FundWalletIdempotent(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	ctx := context.Background()
	req := ports.FundWalletRequest{Amount: dec("300"), IdempotencyKey: "fund-1"}

	first, err := w.orgs.FundWallet(ctx, adminActor, req)
	require.NoError(t, err)
	second, err := w.orgs.FundWallet(ctx, adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	org := w.orgWallet(t)
	assert.True(t, org.Balance.Equal(dec("300")))
	w.assertConsistent(t, org.ID)
}

func TestScenario_ReversePostedEntryKeepsBalanceConsistent(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	ctx := context.Background()

	entry, err := w.orgs.FundWallet(ctx, adminActor, ports.FundWalletRequest{Amount: dec("80")})
	require.NoError(t, err)

	reversed, err := w.ledger.Reverse(ctx, adminActor, entry.ID, "funding bounced")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusReversed, reversed.Status)

	org := w.orgWallet(t)
	assert.True(t, org.Balance.IsZero())
	w.assertConsistent(t, org.ID)

	_, err = w.ledger.Reverse(ctx, adminActor, entry.ID, "again")
	assertAppError(t, err, "VAL_003")
}

func TestScenario_ReverseCreditCannotUncoverReservation(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "1000")
	c := w.activeContractor(t, "USD")
	paid := w.paidInvoice(t, c, "100")
	require.NotNil(t, paid.Credit)
	ctx := context.Background()

	payout, err := w.payouts.Withdraw(ctx, contractorActor, ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("100")})
	require.NoError(t, err)

	_, err = w.ledger.Reverse(ctx, adminActor, paid.Credit.ID, "invoice disputed")
	assertAppError(t, err, "FUND_001")

	cw := w.contractorWallet(t, c)
	assert.True(t, cw.Balance.Equal(dec("100")))
	assert.True(t, cw.Available.IsZero())

	w.sweep(t)

	got, err := w.payouts.Get(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, got.Status)

	cw = w.contractorWallet(t, c)
	assert.True(t, cw.Balance.IsZero(), cw.Balance.String())
	assert.False(t, cw.Balance.IsNegative())
	w.assertConsistent(t, cw.ID)
}

func TestScenario_ReverseCreditAfterReservationReleased(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "1000")
	c := w.activeContractor(t, "USD")
	paid := w.paidInvoice(t, c, "100")
	ctx := context.Background()

	payout, err := w.payouts.Withdraw(ctx, contractorActor, ports.WithdrawRequest{ContractorID: c.ID, Amount: dec("100")})
	require.NoError(t, err)
	w.fx.SetTransferState(payout.ProviderRef, domain.TransferStateFailed)
	w.sweep(t)

	_, err = w.ledger.Reverse(ctx, adminActor, paid.Credit.ID, "invoice disputed")
	require.NoError(t, err)

	cw := w.contractorWallet(t, c)
	assert.True(t, cw.Balance.IsZero())
	assert.True(t, cw.Available.IsZero())
	w.assertConsistent(t, cw.ID)
}

// ==================== Cards ====================

func TestScenario_CardLifecycle(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	ctx := context.Background()

	_, err := w.cards.Issue(ctx, adminActor, ports.IssueCardRequest{ContractorID: c.ID})
	assert.Equal(t, []string{domain.BlockerCardBalance}, gateBlockers(t, err))

	w.paidInvoice(t, c, "50")
	card, err := w.cards.Issue(ctx, adminActor, ports.IssueCardRequest{ContractorID: c.ID, Label: "Travel"})
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, card.Status)
	assert.Equal(t, provider.CardProviderName, card.Provider)
	assert.Len(t, card.Last4, 4)

	card, err = w.cards.SetStatus(ctx, adminActor, card.ID, domain.CardStatusFrozen)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusFrozen, card.Status)

	_, err = w.cards.SetStatus(ctx, adminActor, card.ID, domain.CardStatusClosed)
	require.NoError(t, err)
	_, err = w.cards.SetStatus(ctx, adminActor, card.ID, domain.CardStatusActive)
	assertAppError(t, err, "VAL_003")

	events := w.notifier.events(c.ID.String())
	assert.Contains(t, events, domain.EventCardIssued)
	assert.Contains(t, events, domain.EventCardStatusChanged)
}

func TestScenario_CardBlockersAccumulate(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "")
	res := w.invite(t, "USD")

	_, err := w.cards.Issue(context.Background(), adminActor, ports.IssueCardRequest{ContractorID: res.Contractor.ID})
	assert.Equal(t, []string{domain.BlockerContractorActive, domain.BlockerCardBalance}, gateBlockers(t, err))
}

// ==================== Effects ====================

func TestScenario_AuditTrailIsPersisted(t *testing.T) {
	w := newWorld(t)
	w.ready(t, "500")
	c := w.activeContractor(t, "USD")
	w.paidInvoice(t, c, "10")
	w.audit.Flush()

	logs, err := w.store.Audit().List(context.Background(), 0)
	require.NoError(t, err)
	actions := map[domain.AuditAction]bool{}
	for _, l := range logs {
		actions[l.Action] = true
	}
	for _, want := range []domain.AuditAction{
		domain.AuditActionUpdateOrgProfile,
		domain.AuditActionFundWallet,
		domain.AuditActionInviteContractor,
		domain.AuditActionAcceptInvite,
		domain.AuditActionPayoutMethodSaved,
		domain.AuditActionSubmitInvoice,
		domain.AuditActionApproveInvoice,
		domain.AuditActionPayInvoice,
	} {
		assert.True(t, actions[want], "missing audit action %s", want)
	}
}

func TestScenario_PreviewQuote(t *testing.T) {
	w := newWorld(t)

	quote, err := w.payouts.PreviewQuote(context.Background(), "usd", "eur", dec("1000"))
	require.NoError(t, err)
	assert.True(t, quote.Rate.Equal(dec("0.98")))
	assert.True(t, quote.Fee.Equal(dec("5")))

	_, err = w.payouts.PreviewQuote(context.Background(), "usd", "euro", dec("1000"))
	assertAppError(t, err, "VAL_001")
}
