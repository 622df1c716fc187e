package ports

import (
	"context"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Methods accepting pgx.Tx run inside the caller's transaction. The ForUpdate
// variants take a row lock that is held until the transaction ends.
// Lookups return (nil, nil) when the row does not exist.

// OrganizationRepository persists the workspace profile.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	Upsert(ctx context.Context, tx pgx.Tx, org *domain.Organization) error
}

// OnboardingRepository persists the onboarding checklist per organization.
type OnboardingRepository interface {
	// Init stores defaults unless a checklist already exists.
	Init(ctx context.Context, orgID uuid.UUID, defaults domain.Checklist) error
	Get(ctx context.Context, orgID uuid.UUID) (*domain.Checklist, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, orgID uuid.UUID) (*domain.Checklist, error)
	Save(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, checklist *domain.Checklist) error
}

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	// UpdateBalance overwrites the cached balance. Only the ledger calls it.
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// LedgerRepository persists ledger entries. Entries are append-only; only the
// status column is ever updated.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.EntryStatus) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error)
	// SumPosted recomputes the signed total of posted entries from scratch.
	// tx may be nil to read committed state.
	SumPosted(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error)
	// PendingTotals aggregates entries in pending status. tx may be nil.
	PendingTotals(ctx context.Context, tx pgx.Tx, walletID uuid.UUID) (domain.PendingTotals, error)
}

// InvoiceRepository defines persistence operations for invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error)
	// Update writes status, timeline and updated_at.
	Update(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]domain.Invoice, error)
}

// PayoutRepository defines persistence operations for payouts.
type PayoutRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payout, error)
	// Update writes status, failure_reason and updated_at.
	Update(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error
	ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]domain.Payout, error)
}

// JobRepository is the durable work queue.
type JobRepository interface {
	Create(ctx context.Context, tx pgx.Tx, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	// ListQueued returns QUEUED jobs ordered by run_at ascending.
	ListQueued(ctx context.Context, limit int) ([]domain.Job, error)
	// Claim atomically moves a QUEUED job to RUNNING and increments attempts.
	// It returns nil when another worker won the job.
	Claim(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	// Complete marks a RUNNING job COMPLETED inside the handler's transaction.
	Complete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	// Requeue returns a RUNNING job to QUEUED with a new run_at.
	Requeue(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
	// Reschedule returns a RUNNING job that made progress to QUEUED and
	// resets its attempt count.
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time) error
	// Fail moves a RUNNING job to FAILED.
	Fail(ctx context.Context, id uuid.UUID, lastError string) error
	// ReclaimStale returns RUNNING jobs last touched before the cutoff to
	// QUEUED. Attempts are kept.
	ReclaimStale(ctx context.Context, before time.Time) (int64, error)
}

// ContractorRepository defines persistence operations for contractors.
type ContractorRepository interface {
	Create(ctx context.Context, tx pgx.Tx, contractor *domain.Contractor) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contractor, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Contractor, error)
	GetByInviteTokenForUpdate(ctx context.Context, tx pgx.Tx, token string) (*domain.Contractor, error)
	// Update writes status, kyc_status, contract_active, invite_token and updated_at.
	Update(ctx context.Context, tx pgx.Tx, contractor *domain.Contractor) error
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]domain.Contractor, error)
}

// PayoutMethodRepository stores one payout method per contractor.
type PayoutMethodRepository interface {
	Upsert(ctx context.Context, tx pgx.Tx, method *domain.PayoutMethod) error
	GetByContractor(ctx context.Context, contractorID uuid.UUID) (*domain.PayoutMethod, error)
}

// CardRepository defines persistence operations for issued cards.
type CardRepository interface {
	Create(ctx context.Context, tx pgx.Tx, card *domain.Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Card, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CardStatus) error
	ListByContractor(ctx context.Context, contractorID uuid.UUID) ([]domain.Card, error)
}

// AuditRepository persists audit records outside any business transaction.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
