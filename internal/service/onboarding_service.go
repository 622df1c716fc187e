package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"contractor-payouts/internal/core/domain"
	"contractor-payouts/internal/core/ports"
	"contractor-payouts/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// OnboardingServiceImpl owns the workspace checklist. The checklist is
// initialised once at startup and only ever moves forward through CompleteTx.
type OnboardingServiceImpl struct {
	orgID      uuid.UUID
	repo       ports.OnboardingRepository
	transactor ports.DBTransactor
	effects    ports.EffectDispatcher
	log        zerolog.Logger
}

// NewOnboardingService creates a new OnboardingServiceImpl for orgID.
func NewOnboardingService(
	orgID uuid.UUID,
	repo ports.OnboardingRepository,
	transactor ports.DBTransactor,
	effects ports.EffectDispatcher,
	log zerolog.Logger,
) *OnboardingServiceImpl {
	return &OnboardingServiceImpl{
		orgID:      orgID,
		repo:       repo,
		transactor: transactor,
		effects:    effects,
		log:        log,
	}
}

// Init stores the default checklist unless one already exists.
func (s *OnboardingServiceImpl) Init(ctx context.Context) error {
	if err := s.repo.Init(ctx, s.orgID, domain.DefaultChecklist()); err != nil {
		return fmt.Errorf("init onboarding state: %w", err)
	}
	return nil
}

// State returns the current checklist.
func (s *OnboardingServiceImpl) State(ctx context.Context) (*domain.Checklist, error) {
	c, err := s.repo.Get(ctx, s.orgID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get onboarding state: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("onboarding state")
	}
	return c, nil
}

// CompleteTx marks step done inside the caller's transaction. Completing an
// already completed step writes nothing.
func (s *OnboardingServiceImpl) CompleteTx(ctx context.Context, tx pgx.Tx, step domain.ChecklistStep) error {
	c, err := s.repo.GetForUpdate(ctx, tx, s.orgID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock onboarding state: %w", err))
	}
	if c == nil {
		return apperror.ErrNotFound("onboarding state")
	}
	if !c.Complete(step) {
		return nil
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, tx, s.orgID, c); err != nil {
		return apperror.InternalError(fmt.Errorf("save onboarding state: %w", err))
	}
	s.log.Info().Str("step", string(step)).Msg("onboarding step completed")
	return nil
}

// SetRequire2FA toggles the second-factor requirement for admins.
func (s *OnboardingServiceImpl) SetRequire2FA(ctx context.Context, actor domain.Actor, required bool) (*domain.Checklist, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	c, err := s.repo.GetForUpdate(ctx, dbTx, s.orgID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock onboarding state: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("onboarding state")
	}

	c.Require2FAForAdmins = required
	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, dbTx, s.orgID, c); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save onboarding state: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionUpdateSecurity, "organization", s.orgID.String(), map[string]string{
		"require_2fa_for_admins": strconv.FormatBool(required),
	})
	s.effects.Dispatch(ctx, fx)

	return c, nil
}

// SetApprovalRules records that approval rules have been configured.
func (s *OnboardingServiceImpl) SetApprovalRules(ctx context.Context, actor domain.Actor) (*domain.Checklist, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.CompleteTx(ctx, dbTx, domain.StepApprovalRules); err != nil {
		return nil, err
	}
	c, err := s.repo.GetForUpdate(ctx, dbTx, s.orgID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read onboarding state: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	var fx domain.Effects
	fx.Audit(actor.UserID, domain.AuditActionSetApprovalRules, "organization", s.orgID.String(), nil)
	s.effects.Dispatch(ctx, fx)

	return c, nil
}
