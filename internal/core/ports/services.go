package ports

import (
	"context"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- Boundary Ports (external collaborators) ---

// FXProvider is the simulated transfer provider. Every call may be slow or
// fail and must never run inside a wallet-mutating transaction.
type FXProvider interface {
	GetQuote(ctx context.Context, source, destination string, amount decimal.Decimal) (*domain.FXQuote, error)
	CreateRecipient(ctx context.Context, contractor *domain.Contractor, method *domain.PayoutMethod) (*domain.Recipient, error)
	CreateTransfer(ctx context.Context, quote *domain.FXQuote, recipient *domain.Recipient) (*domain.Transfer, error)
	TransferStatus(ctx context.Context, providerRef string) (domain.TransferState, error)
}

// CardIssuer is the simulated card program.
type CardIssuer interface {
	Issue(ctx context.Context, contractor *domain.Contractor, label string) (*IssuedCard, error)
}

// IssuedCard is what the issuer returns for a new card.
type IssuedCard struct {
	Provider    string
	ProviderRef string
	Last4       string
}

// Notifier delivers a notification. Callers treat it as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
	Close() error
}

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification of outbound payloads.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(event string, timestamp int64, id string, body string) string
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID string, role domain.Role, secondFactor bool) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID       string
	Role         domain.Role
	SecondFactor bool
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SweepLease guards the periodic sweep so only one instance runs it at a time.
// Job claiming stays exclusive without it; the lease only avoids wasted passes.
type SweepLease interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// AuditService records audit entries without failing the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
	Recent(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// EffectDispatcher emits committed side effects.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, effects domain.Effects)
}

// --- Service Ports (Business Logic) ---

// LedgerService owns ledger entries and is the only writer of cached balances.
type LedgerService interface {
	// Post appends an entry inside tx and, when posted, adjusts the cached
	// balance in the same transaction. Debits are checked for sufficiency.
	Post(ctx context.Context, tx pgx.Tx, req domain.PostRequest) (*domain.LedgerEntry, error)
	// Promote moves a pending entry to posted and applies it to the balance.
	Promote(ctx context.Context, tx pgx.Tx, entryID uuid.UUID) (*domain.LedgerEntry, error)
	// ReverseTx compensates an entry inside tx.
	ReverseTx(ctx context.Context, tx pgx.Tx, entryID uuid.UUID) (*domain.LedgerEntry, error)
	Reverse(ctx context.Context, actor domain.Actor, entryID uuid.UUID, reason string) (*domain.LedgerEntry, error)
	// EnsureWallet returns the owner's wallet for currency, creating it when absent.
	EnsureWallet(ctx context.Context, tx pgx.Tx, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error)
	ListEntries(ctx context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error)
	VerifyWallet(ctx context.Context, id uuid.UUID) (*domain.BalanceCheck, error)
}

// OnboardingService owns the checklist state object.
type OnboardingService interface {
	Init(ctx context.Context) error
	State(ctx context.Context) (*domain.Checklist, error)
	// CompleteTx marks a step inside the caller's transaction.
	CompleteTx(ctx context.Context, tx pgx.Tx, step domain.ChecklistStep) error
	SetRequire2FA(ctx context.Context, actor domain.Actor, required bool) (*domain.Checklist, error)
	SetApprovalRules(ctx context.Context, actor domain.Actor) (*domain.Checklist, error)
}

// OrgService manages the workspace profile and its funding.
type OrgService interface {
	Get(ctx context.Context) (*domain.Organization, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, req UpdateOrgProfileRequest) (*domain.Organization, error)
	FundWallet(ctx context.Context, actor domain.Actor, req FundWalletRequest) (*domain.LedgerEntry, error)
	OrgWallet(ctx context.Context) (*domain.Wallet, error)
}

// ContractorService manages contractor onboarding.
type ContractorService interface {
	Invite(ctx context.Context, actor domain.Actor, req InviteContractorRequest) (*InviteResult, error)
	AcceptInvite(ctx context.Context, token string) (*domain.Contractor, error)
	UpdateKYC(ctx context.Context, actor domain.Actor, id uuid.UUID, kyc domain.KYCStatus) (*domain.Contractor, error)
	SetContract(ctx context.Context, actor domain.Actor, id uuid.UUID, active bool) (*domain.Contractor, error)
	SavePayoutMethod(ctx context.Context, actor domain.Actor, req SavePayoutMethodRequest) (*domain.PayoutMethod, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Contractor, error)
	List(ctx context.Context) ([]domain.Contractor, error)
}

// InvoiceService drives the invoice state machine.
type InvoiceService interface {
	Submit(ctx context.Context, actor domain.Actor, req SubmitInvoiceRequest) (*domain.Invoice, error)
	Approve(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Invoice, error)
	Pay(ctx context.Context, actor domain.Actor, id uuid.UUID) (*PayInvoiceResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
}

// PayoutService creates payouts and withdrawals.
type PayoutService interface {
	Create(ctx context.Context, actor domain.Actor, req CreatePayoutRequest) (*domain.Payout, error)
	Withdraw(ctx context.Context, actor domain.Actor, req WithdrawRequest) (*domain.Payout, error)
	PreviewQuote(ctx context.Context, source, destination string, amount decimal.Decimal) (*domain.FXQuote, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
}

// SettlementService drains the job queue.
type SettlementService interface {
	Sweep(ctx context.Context) (*domain.SweepReport, error)
}

// CardService issues and manages spend cards.
type CardService interface {
	Issue(ctx context.Context, actor domain.Actor, req IssueCardRequest) (*domain.Card, error)
	SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.CardStatus) (*domain.Card, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Card, error)
}

// UpdateOrgProfileRequest holds validated input for the workspace profile.
type UpdateOrgProfileRequest struct {
	Name      string
	LegalName string
	Country   string
}

// FundWalletRequest credits the organization wallet.
type FundWalletRequest struct {
	Amount         decimal.Decimal
	IdempotencyKey string
}

// InviteContractorRequest holds validated input for an invitation.
type InviteContractorRequest struct {
	Name     string
	Email    string
	Country  string
	Currency string
}

// InviteResult is returned once; the token is not readable afterwards.
type InviteResult struct {
	Contractor  *domain.Contractor `json:"contractor"`
	Wallet      *domain.Wallet     `json:"wallet"`
	InviteToken string             `json:"invite_token"`
}

// SavePayoutMethodRequest holds validated payout method input.
type SavePayoutMethodRequest struct {
	ContractorID  uuid.UUID
	Type          domain.PayoutMethodType
	Currency      string
	BankName      string
	AccountNumber string
}

// SubmitInvoiceRequest holds validated input for a new invoice.
type SubmitInvoiceRequest struct {
	ContractorID uuid.UUID
	Amount       decimal.Decimal
	Currency     string
	Description  string
	DueDate      *time.Time
}

// PayInvoiceResult describes the outcome of paying an invoice.
// AlreadyPaid is set when the call was a no-op.
type PayInvoiceResult struct {
	Invoice     *domain.Invoice     `json:"invoice"`
	AlreadyPaid bool                `json:"already_paid"`
	Debit       *domain.LedgerEntry `json:"debit,omitempty"`
	Credit      *domain.LedgerEntry `json:"credit,omitempty"`
	Payout      *domain.Payout      `json:"payout,omitempty"`
}

// CreatePayoutRequest holds validated input for a direct payout.
type CreatePayoutRequest struct {
	ContractorID   uuid.UUID
	InvoiceID      *uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// WithdrawRequest holds validated input for a contractor withdrawal.
type WithdrawRequest struct {
	ContractorID        uuid.UUID
	Amount              decimal.Decimal
	DestinationCurrency string
	IdempotencyKey      string
}

// IssueCardRequest holds validated input for card issuance.
type IssueCardRequest struct {
	ContractorID uuid.UUID
	Label        string
}
