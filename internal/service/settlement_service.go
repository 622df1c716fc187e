package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"
	"contractor-payouts/pkg/money"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const sweepBatchSize = 100

const (
	// DefaultPollWindow bounds how long a processing transfer is polled.
	DefaultPollWindow = 72 * time.Hour
	// DefaultStaleAfter is how long a RUNNING job may go untouched before
	// it is reclaimed.
	DefaultStaleAfter = 5 * time.Minute
)

// errPermanent marks job failures that no retry can fix.
var errPermanent = errors.New("permanent job failure")

type jobOutcome int

const (
	outcomeCompleted jobOutcome = iota
	outcomeRequeued
)

// SettlementServiceImpl drains the job queue. Claiming is the mutual
// exclusion token, so several instances may sweep at once.
type SettlementServiceImpl struct {
	org         domain.Organization
	jobRepo     ports.JobRepository
	payoutRepo  ports.PayoutRepository
	ledger      ports.LedgerService
	fx          ports.FXProvider
	transactor  ports.DBTransactor
	effects     ports.EffectDispatcher
	maxAttempts int
	backoff     time.Duration
	pollWindow  time.Duration
	staleAfter  time.Duration
	log         zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl. A failing job is
// retried after backoff·attempts until maxAttempts, then marked FAILED.
func NewSettlementService(
	org domain.Organization,
	jobRepo ports.JobRepository,
	payoutRepo ports.PayoutRepository,
	ledger ports.LedgerService,
	fx ports.FXProvider,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	maxAttempts int,
	backoff time.Duration,
	log zerolog.Logger,
) *SettlementServiceImpl {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &SettlementServiceImpl{
		org:         org,
		jobRepo:     jobRepo,
		payoutRepo:  payoutRepo,
		ledger:      ledger,
		fx:          fx,
		transactor:  transactor,
		effects:     effects,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		pollWindow:  DefaultPollWindow,
		staleAfter:  DefaultStaleAfter,
		log:         log,
	}
}

// WithPolling sets how long a processing transfer is polled and how long a
// claimed job may stall before it is reclaimed. Zero keeps the default.
func (s *SettlementServiceImpl) WithPolling(pollWindow, staleAfter time.Duration) *SettlementServiceImpl {
	if pollWindow > 0 {
		s.pollWindow = pollWindow
	}
	if staleAfter > 0 {
		s.staleAfter = staleAfter
	}
	return s
}

// Sweep processes every queued job once, oldest runAt first. Due dates are
// not enforced.
func (s *SettlementServiceImpl) Sweep(ctx context.Context) (*domain.SweepReport, error) {
	reclaimed, err := s.jobRepo.ReclaimStale(ctx, time.Now().UTC().Add(-s.staleAfter))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reclaim stale jobs: %w", err))
	}
	if reclaimed > 0 {
		s.log.Warn().Int64("jobs", reclaimed).Msg("reclaimed stalled jobs")
	}

	jobs, err := s.jobRepo.ListQueued(ctx, sweepBatchSize)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list queued jobs: %w", err))
	}

	report := &domain.SweepReport{Seen: len(jobs), Reclaimed: int(reclaimed)}
	for _, queued := range jobs {
		if ctx.Err() != nil {
			break
		}

		job, err := s.jobRepo.Claim(ctx, queued.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("job_id", queued.ID.String()).Msg("claim failed")
			continue
		}
		if job == nil {
			// Another worker won the claim.
			continue
		}
		report.Claimed++

		outcome, fx, err := s.handle(ctx, job)
		if err != nil {
			s.retryOrFail(ctx, job, err, report)
			continue
		}

		switch outcome {
		case outcomeRequeued:
			report.Requeued++
		default:
			report.Completed++
		}
		s.effects.Dispatch(ctx, fx)
	}

	s.log.Info().
		Int("seen", report.Seen).
		Int("claimed", report.Claimed).
		Int("completed", report.Completed).
		Int("requeued", report.Requeued).
		Int("failed", report.Failed).
		Int("reclaimed", report.Reclaimed).
		Msg("sweep finished")

	return report, nil
}

func (s *SettlementServiceImpl) handle(ctx context.Context, job *domain.Job) (jobOutcome, domain.Effects, error) {
	switch job.Type {
	case domain.JobTypePayoutStatusRefresh:
		return s.refreshPayout(ctx, job)
	default:
		return outcomeCompleted, domain.Effects{}, fmt.Errorf("%w: unknown job type %q", errPermanent, job.Type)
	}
}

func (s *SettlementServiceImpl) retryOrFail(ctx context.Context, job *domain.Job, cause error, report *domain.SweepReport) {
	logger := s.log.With().
		Str("job_id", job.ID.String()).
		Str("job_type", string(job.Type)).
		Int("attempts", job.Attempts).
		Logger()

	if errors.Is(cause, errPermanent) || job.Attempts >= s.maxAttempts {
		if err := s.jobRepo.Fail(ctx, job.ID, cause.Error()); err != nil {
			logger.Error().Err(err).Msg("failed to mark job failed")
			return
		}
		report.Failed++
		logger.Error().Err(cause).Msg("job failed permanently")
		return
	}

	runAt := time.Now().UTC().Add(s.backoff * time.Duration(job.Attempts))
	if err := s.jobRepo.Requeue(ctx, job.ID, runAt, cause.Error()); err != nil {
		logger.Error().Err(err).Msg("failed to requeue job")
		return
	}
	report.Requeued++
	logger.Warn().Err(cause).Time("run_at", runAt).Msg("job requeued after error")
}

// refreshPayout asks the provider for the transfer state and settles the
// payout accordingly. A missing or already terminal payout completes the job
// without effects.
func (s *SettlementServiceImpl) refreshPayout(ctx context.Context, job *domain.Job) (jobOutcome, domain.Effects, error) {
	var fx domain.Effects

	var payload domain.PayoutRefreshPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return outcomeCompleted, fx, fmt.Errorf("%w: decode payload: %v", errPermanent, err)
	}

	payout, err := s.payoutRepo.GetByID(ctx, payload.PayoutID)
	if err != nil {
		return outcomeCompleted, fx, fmt.Errorf("get payout: %w", err)
	}
	if payout == nil || payout.Status.IsTerminal() {
		return outcomeCompleted, fx, s.completeNoop(ctx, job)
	}

	// Provider call stays outside the transaction.
	state, err := s.fx.TransferStatus(ctx, payout.ProviderRef)
	if err != nil {
		return outcomeCompleted, fx, fmt.Errorf("transfer status: %w", err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return outcomeCompleted, fx, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	payout, err = s.payoutRepo.GetByIDForUpdate(ctx, dbTx, payload.PayoutID)
	if err != nil {
		return outcomeCompleted, fx, fmt.Errorf("lock payout: %w", err)
	}
	if payout == nil || payout.Status.IsTerminal() {
		if err := s.jobRepo.Complete(ctx, dbTx, job.ID); err != nil {
			return outcomeCompleted, fx, fmt.Errorf("complete job: %w", err)
		}
		return outcomeCompleted, fx, commit(ctx, dbTx)
	}

	now := time.Now().UTC()
	outcome := outcomeCompleted
	switch state {
	case domain.TransferStateProcessing:
		if payout.Status == domain.PayoutStatusPending {
			if err := payout.Transition(domain.PayoutStatusProcessing, now); err != nil {
				return outcome, fx, err
			}
			if err := s.payoutRepo.Update(ctx, dbTx, payout); err != nil {
				return outcome, fx, fmt.Errorf("update payout: %w", err)
			}
		}
		outcome = outcomeRequeued
	case domain.TransferStateCompleted:
		if err := s.settle(ctx, dbTx, payout, now, &fx); err != nil {
			return outcome, fx, err
		}
	case domain.TransferStateFailed:
		if err := s.fail(ctx, dbTx, payout, "provider reported transfer failure", now, &fx); err != nil {
			return outcome, fx, err
		}
	default:
		return outcome, fx, fmt.Errorf("unknown transfer state %q", state)
	}

	if outcome == outcomeCompleted {
		if err := s.jobRepo.Complete(ctx, dbTx, job.ID); err != nil {
			return outcome, fx, fmt.Errorf("complete job: %w", err)
		}
	}
	if err := commit(ctx, dbTx); err != nil {
		return outcome, fx, err
	}

	if outcome == outcomeRequeued {
		if now.Sub(job.CreatedAt) >= s.pollWindow {
			return outcome, fx, fmt.Errorf("%w: transfer %s still processing after %s", errPermanent, payout.ProviderRef, s.pollWindow)
		}
		// A poll is not a failed attempt.
		if err := s.jobRepo.Reschedule(ctx, job.ID, now.Add(s.backoff)); err != nil {
			return outcome, fx, fmt.Errorf("reschedule job: %w", err)
		}
	}
	return outcome, fx, nil
}

// settle posts the funding side of a payout and marks it paid. A direct
// payout the organization can no longer fund fails instead.
func (s *SettlementServiceImpl) settle(ctx context.Context, tx pgx.Tx, payout *domain.Payout, now time.Time, fx *domain.Effects) error {
	switch payout.Kind {
	case domain.PayoutKindWithdrawal:
		if payout.LedgerEntryID == nil {
			return fmt.Errorf("%w: withdrawal %s has no ledger entry", errPermanent, payout.ID)
		}
		_, err := s.ledger.Promote(ctx, tx, *payout.LedgerEntryID)
		if apperror.Code(err) == "FUND_001" {
			return s.fail(ctx, tx, payout, "insufficient contractor funds", now, fx)
		}
		if err != nil {
			return fmt.Errorf("promote withdrawal entry: %w", err)
		}
	default:
		wallet, err := s.ledger.EnsureWallet(ctx, tx, domain.OwnerTypeOrg, s.org.ID, payout.SourceCurrency)
		if err != nil {
			return fmt.Errorf("org wallet: %w", err)
		}
		_, err = s.ledger.Post(ctx, tx, domain.PostRequest{
			WalletID:      wallet.ID,
			Type:          domain.EntryTypeDebit,
			Amount:        payout.Amount,
			Currency:      wallet.Currency,
			ReferenceType: domain.ReferencePayout,
			ReferenceID:   payout.ID.String(),
			Status:        domain.EntryStatusPosted,
			Memo:          "Payout settled",
			Metadata:      map[string]string{"providerRef": payout.ProviderRef},
		})
		if apperror.Code(err) == "FUND_001" {
			return s.fail(ctx, tx, payout, "insufficient organization funds", now, fx)
		}
		if err != nil {
			return fmt.Errorf("post payout debit: %w", err)
		}
	}

	if err := payout.Transition(domain.PayoutStatusPaid, now); err != nil {
		return err
	}
	if err := s.payoutRepo.Update(ctx, tx, payout); err != nil {
		return fmt.Errorf("update payout: %w", err)
	}

	fx.Audit(domain.SystemActor, domain.AuditActionSettlePayout, "payout", payout.ID.String(), map[string]string{
		"amount": payout.Amount.StringFixed(money.Scale),
		"kind":   string(payout.Kind),
	})
	fx.Notify(payout.ContractorID.String(), domain.EventPayoutCompleted, map[string]string{
		"payoutId":    payout.ID.String(),
		"providerRef": payout.ProviderRef,
	})

	s.log.Info().
		Str("payout_id", payout.ID.String()).
		Str("kind", string(payout.Kind)).
		Msg("payout settled")
	return nil
}

// fail marks the payout failed and releases a withdrawal's reservation.
func (s *SettlementServiceImpl) fail(ctx context.Context, tx pgx.Tx, payout *domain.Payout, reason string, now time.Time, fx *domain.Effects) error {
	if payout.Kind == domain.PayoutKindWithdrawal && payout.LedgerEntryID != nil {
		if _, err := s.ledger.ReverseTx(ctx, tx, *payout.LedgerEntryID); err != nil {
			return fmt.Errorf("reverse withdrawal entry: %w", err)
		}
	}

	if err := payout.Transition(domain.PayoutStatusFailed, now); err != nil {
		return err
	}
	payout.FailureReason = reason
	if err := s.payoutRepo.Update(ctx, tx, payout); err != nil {
		return fmt.Errorf("update payout: %w", err)
	}

	fx.Audit(domain.SystemActor, domain.AuditActionFailPayout, "payout", payout.ID.String(), map[string]string{
		"reason": reason,
	})
	fx.Notify(payout.ContractorID.String(), domain.EventPayoutFailed, map[string]string{
		"payoutId": payout.ID.String(),
		"reason":   reason,
	})

	s.log.Warn().
		Str("payout_id", payout.ID.String()).
		Str("reason", reason).
		Msg("payout failed")
	return nil
}

// completeNoop completes a job whose target no longer needs work.
func (s *SettlementServiceImpl) completeNoop(ctx context.Context, job *domain.Job) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.jobRepo.Complete(ctx, dbTx, job.ID); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return commit(ctx, dbTx)
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
