package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func copyMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return cloneMap(m)
}

func copyInvoice(inv domain.Invoice) *domain.Invoice {
	inv.Timeline = append([]domain.TimelineEntry(nil), inv.Timeline...)
	return &inv
}

func copyEntry(e domain.LedgerEntry) *domain.LedgerEntry {
	e.Metadata = copyMeta(e.Metadata)
	return &e
}

func copyJob(j domain.Job) *domain.Job {
	j.Payload = append(json.RawMessage(nil), j.Payload...)
	return &j
}

// --- Organizations & onboarding ---

// OrganizationRepo implements ports.OrganizationRepository.
type OrganizationRepo struct{ s *Store }

func (s *Store) Organizations() *OrganizationRepo { return &OrganizationRepo{s: s} }

func (r *OrganizationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Organization, error) {
	var out *domain.Organization
	r.s.read(func(st *state) {
		if o, ok := st.orgs[id]; ok {
			out = &o
		}
	})
	return out, nil
}

func (r *OrganizationRepo) Upsert(_ context.Context, tx pgx.Tx, org *domain.Organization) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	st.orgs[org.ID] = *org
	return nil
}

// OnboardingRepo implements ports.OnboardingRepository.
type OnboardingRepo struct{ s *Store }

func (s *Store) Onboarding() *OnboardingRepo { return &OnboardingRepo{s: s} }

func (r *OnboardingRepo) Init(ctx context.Context, orgID uuid.UUID, defaults domain.Checklist) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.checklists[orgID]; !ok {
			st.checklists[orgID] = defaults
		}
		return nil
	})
}

func (r *OnboardingRepo) Get(_ context.Context, orgID uuid.UUID) (*domain.Checklist, error) {
	var out *domain.Checklist
	r.s.read(func(st *state) {
		if c, ok := st.checklists[orgID]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r *OnboardingRepo) GetForUpdate(_ context.Context, tx pgx.Tx, orgID uuid.UUID) (*domain.Checklist, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	c, ok := st.checklists[orgID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *OnboardingRepo) Save(_ context.Context, tx pgx.Tx, orgID uuid.UUID, checklist *domain.Checklist) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	st.checklists[orgID] = *checklist
	return nil
}

// --- Wallets ---

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(_ context.Context, tx pgx.Tx, w *domain.Wallet) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	for _, existing := range st.wallets {
		if existing.OwnerType == w.OwnerType && existing.OwnerID == w.OwnerID && existing.Currency == w.Currency {
			return fmt.Errorf("wallet for %s %s in %s already exists", w.OwnerType, w.OwnerID, w.Currency)
		}
	}
	st.wallets[w.ID] = *w
	return nil
}

func findWallet(st *state, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) *domain.Wallet {
	for _, w := range st.wallets {
		if w.OwnerType == ownerType && w.OwnerID == ownerID && w.Currency == currency {
			return &w
		}
	}
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	var out *domain.Wallet
	r.s.read(func(st *state) {
		if w, ok := st.wallets[id]; ok {
			out = &w
		}
	})
	return out, nil
}

func (r *WalletRepo) GetByOwner(_ context.Context, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	var out *domain.Wallet
	r.s.read(func(st *state) { out = findWallet(st, ownerType, ownerID, currency) })
	return out, nil
}

func (r *WalletRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	w, ok := st.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WalletRepo) GetByOwnerForUpdate(_ context.Context, tx pgx.Tx, ownerType domain.OwnerType, ownerID uuid.UUID, currency string) (*domain.Wallet, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	return findWallet(st, ownerType, ownerID, currency), nil
}

func (r *WalletRepo) UpdateBalance(_ context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	w, ok := st.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet %s not found", walletID)
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	st.wallets[walletID] = w
	return nil
}

// --- Ledger ---

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ s *Store }

func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Create(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.entryIndex[e.ID]; ok {
		return fmt.Errorf("ledger entry %s already exists", e.ID)
	}
	st.entryIndex[e.ID] = len(st.entries)
	st.entries = append(st.entries, *copyEntry(*e))
	return nil
}

func (r *LedgerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	var out *domain.LedgerEntry
	r.s.read(func(st *state) {
		if i, ok := st.entryIndex[id]; ok {
			out = copyEntry(st.entries[i])
		}
	})
	return out, nil
}

func (r *LedgerRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	i, ok := st.entryIndex[id]
	if !ok {
		return nil, nil
	}
	return copyEntry(st.entries[i]), nil
}

func (r *LedgerRepo) UpdateStatus(_ context.Context, tx pgx.Tx, id uuid.UUID, status domain.EntryStatus) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	i, ok := st.entryIndex[id]
	if !ok {
		return fmt.Errorf("ledger entry %s not found", id)
	}
	st.entries[i].Status = status
	return nil
}

func (r *LedgerRepo) ListByWallet(_ context.Context, walletID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	var matched []domain.LedgerEntry
	r.s.read(func(st *state) {
		for i := len(st.entries) - 1; i >= 0; i-- {
			if st.entries[i].WalletID == walletID {
				matched = append(matched, *copyEntry(st.entries[i]))
			}
		}
	})
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *LedgerRepo) stateFor(tx pgx.Tx, fn func(st *state)) error {
	if tx == nil {
		r.s.read(fn)
		return nil
	}
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	fn(st)
	return nil
}

func (r *LedgerRepo) SumPosted(_ context.Context, tx pgx.Tx, walletID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.stateFor(tx, func(st *state) {
		for i := range st.entries {
			e := &st.entries[i]
			if e.WalletID == walletID && e.Status == domain.EntryStatusPosted {
				sum = sum.Add(e.Delta())
			}
		}
	})
	return sum, err
}

func (r *LedgerRepo) PendingTotals(_ context.Context, tx pgx.Tx, walletID uuid.UUID) (domain.PendingTotals, error) {
	totals := domain.PendingTotals{Debits: decimal.Zero, Credits: decimal.Zero}
	err := r.stateFor(tx, func(st *state) {
		for _, e := range st.entries {
			if e.WalletID != walletID || e.Status != domain.EntryStatusPending {
				continue
			}
			if e.Type == domain.EntryTypeDebit {
				totals.Debits = totals.Debits.Add(e.Amount)
			} else {
				totals.Credits = totals.Credits.Add(e.Amount)
			}
		}
	})
	return totals, err
}

// --- Invoices ---

// InvoiceRepo implements ports.InvoiceRepository.
type InvoiceRepo struct{ s *Store }

func (s *Store) Invoices() *InvoiceRepo { return &InvoiceRepo{s: s} }

func (r *InvoiceRepo) Create(_ context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	st.invoices[inv.ID] = *copyInvoice(*inv)
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var out *domain.Invoice
	r.s.read(func(st *state) {
		if inv, ok := st.invoices[id]; ok {
			out = copyInvoice(inv)
		}
	})
	return out, nil
}

func (r *InvoiceRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	inv, ok := st.invoices[id]
	if !ok {
		return nil, nil
	}
	return copyInvoice(inv), nil
}

func (r *InvoiceRepo) Update(_ context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.invoices[inv.ID]; !ok {
		return fmt.Errorf("invoice %s not found", inv.ID)
	}
	st.invoices[inv.ID] = *copyInvoice(*inv)
	return nil
}

func (r *InvoiceRepo) ListByContractor(_ context.Context, contractorID uuid.UUID) ([]domain.Invoice, error) {
	out := []domain.Invoice{}
	r.s.read(func(st *state) {
		for _, inv := range st.invoices {
			if inv.ContractorID == contractorID {
				out = append(out, *copyInvoice(inv))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Payouts ---

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct{ s *Store }

func (s *Store) Payouts() *PayoutRepo { return &PayoutRepo{s: s} }

func (r *PayoutRepo) Create(_ context.Context, tx pgx.Tx, p *domain.Payout) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	st.payouts[p.ID] = *p
	return nil
}

func (r *PayoutRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Payout, error) {
	var out *domain.Payout
	r.s.read(func(st *state) {
		if p, ok := st.payouts[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *PayoutRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payout, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	p, ok := st.payouts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *PayoutRepo) Update(_ context.Context, tx pgx.Tx, p *domain.Payout) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.payouts[p.ID]; !ok {
		return fmt.Errorf("payout %s not found", p.ID)
	}
	st.payouts[p.ID] = *p
	return nil
}

func (r *PayoutRepo) ListByContractor(_ context.Context, contractorID uuid.UUID) ([]domain.Payout, error) {
	out := []domain.Payout{}
	r.s.read(func(st *state) {
		for _, p := range st.payouts {
			if p.ContractorID == contractorID {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Jobs ---

// JobRepo implements ports.JobRepository.
type JobRepo struct{ s *Store }

func (s *Store) Jobs() *JobRepo { return &JobRepo{s: s} }

func (r *JobRepo) Create(_ context.Context, tx pgx.Tx, j *domain.Job) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	st.jobs[j.ID] = *copyJob(*j)
	return nil
}

func (r *JobRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	var out *domain.Job
	r.s.read(func(st *state) {
		if j, ok := st.jobs[id]; ok {
			out = copyJob(j)
		}
	})
	return out, nil
}

func (r *JobRepo) ListQueued(_ context.Context, limit int) ([]domain.Job, error) {
	out := []domain.Job{}
	r.s.read(func(st *state) {
		for _, j := range st.jobs {
			if j.Status == domain.JobStatusQueued {
				out = append(out, *copyJob(j))
			}
		}
	})
	sortJobs(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var claimed *domain.Job
	err := r.s.write(ctx, func(st *state) error {
		j, ok := st.jobs[id]
		if !ok || j.Status != domain.JobStatusQueued {
			return nil
		}
		j.Status = domain.JobStatusRunning
		j.Attempts++
		j.UpdatedAt = time.Now().UTC()
		st.jobs[id] = j
		claimed = copyJob(j)
		return nil
	})
	return claimed, err
}

func (r *JobRepo) Complete(_ context.Context, tx pgx.Tx, id uuid.UUID) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	j, ok := st.jobs[id]
	if !ok || j.Status != domain.JobStatusRunning {
		return fmt.Errorf("job %s is not running", id)
	}
	j.Status = domain.JobStatusCompleted
	j.LastError = ""
	j.UpdatedAt = time.Now().UTC()
	st.jobs[id] = j
	return nil
}

func (r *JobRepo) Requeue(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	return r.s.write(ctx, func(st *state) error {
		j, ok := st.jobs[id]
		if !ok || j.Status != domain.JobStatusRunning {
			return fmt.Errorf("job %s is not running", id)
		}
		j.Status = domain.JobStatusQueued
		j.RunAt = runAt
		j.LastError = lastError
		j.UpdatedAt = time.Now().UTC()
		st.jobs[id] = j
		return nil
	})
}

func (r *JobRepo) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		j, ok := st.jobs[id]
		if !ok || j.Status != domain.JobStatusRunning {
			return fmt.Errorf("job %s is not running", id)
		}
		j.Status = domain.JobStatusQueued
		j.RunAt = runAt
		j.Attempts = 0
		j.LastError = ""
		j.UpdatedAt = time.Now().UTC()
		st.jobs[id] = j
		return nil
	})
}

func (r *JobRepo) ReclaimStale(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.write(ctx, func(st *state) error {
		for id, j := range st.jobs {
			if j.Status != domain.JobStatusRunning || !j.UpdatedAt.Before(before) {
				continue
			}
			j.Status = domain.JobStatusQueued
			j.LastError = "reclaimed from stalled worker"
			j.UpdatedAt = time.Now().UTC()
			st.jobs[id] = j
			n++
		}
		return nil
	})
	return n, err
}

func (r *JobRepo) Fail(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.s.write(ctx, func(st *state) error {
		j, ok := st.jobs[id]
		if !ok || j.Status != domain.JobStatusRunning {
			return fmt.Errorf("job %s is not running", id)
		}
		j.Status = domain.JobStatusFailed
		j.LastError = lastError
		j.UpdatedAt = time.Now().UTC()
		st.jobs[id] = j
		return nil
	})
}

// --- Contractors & payout methods ---

// ContractorRepo implements ports.ContractorRepository.
type ContractorRepo struct{ s *Store }

func (s *Store) Contractors() *ContractorRepo { return &ContractorRepo{s: s} }

func (r *ContractorRepo) Create(_ context.Context, tx pgx.Tx, c *domain.Contractor) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	for _, existing := range st.contractors {
		if existing.OrgID == c.OrgID && existing.Email == c.Email {
			return fmt.Errorf("contractor with email %s already exists", c.Email)
		}
	}
	st.contractors[c.ID] = *c
	return nil
}

func (r *ContractorRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Contractor, error) {
	var out *domain.Contractor
	r.s.read(func(st *state) {
		if c, ok := st.contractors[id]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r *ContractorRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Contractor, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	c, ok := st.contractors[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *ContractorRepo) GetByInviteTokenForUpdate(_ context.Context, tx pgx.Tx, token string) (*domain.Contractor, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	for _, c := range st.contractors {
		if c.InviteToken != "" && c.InviteToken == token {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *ContractorRepo) Update(_ context.Context, tx pgx.Tx, c *domain.Contractor) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.contractors[c.ID]; !ok {
		return fmt.Errorf("contractor %s not found", c.ID)
	}
	st.contractors[c.ID] = *c
	return nil
}

func (r *ContractorRepo) ListByOrg(_ context.Context, orgID uuid.UUID) ([]domain.Contractor, error) {
	out := []domain.Contractor{}
	r.s.read(func(st *state) {
		for _, c := range st.contractors {
			if c.OrgID == orgID {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PayoutMethodRepo implements ports.PayoutMethodRepository.
type PayoutMethodRepo struct{ s *Store }

func (s *Store) PayoutMethods() *PayoutMethodRepo { return &PayoutMethodRepo{s: s} }

func (r *PayoutMethodRepo) Upsert(_ context.Context, tx pgx.Tx, m *domain.PayoutMethod) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	if existing, ok := st.methods[m.ContractorID]; ok {
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
	}
	st.methods[m.ContractorID] = *m
	return nil
}

func (r *PayoutMethodRepo) GetByContractor(_ context.Context, contractorID uuid.UUID) (*domain.PayoutMethod, error) {
	var out *domain.PayoutMethod
	r.s.read(func(st *state) {
		if m, ok := st.methods[contractorID]; ok {
			out = &m
		}
	})
	return out, nil
}

// --- Cards ---

// CardRepo implements ports.CardRepository.
type CardRepo struct{ s *Store }

func (s *Store) Cards() *CardRepo { return &CardRepo{s: s} }

func (r *CardRepo) Create(_ context.Context, tx pgx.Tx, c *domain.Card) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	st.cards[c.ID] = *c
	return nil
}

func (r *CardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	var out *domain.Card
	r.s.read(func(st *state) {
		if c, ok := st.cards[id]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r *CardRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Card, error) {
	st, err := r.s.txState(tx)
	if err != nil {
		return nil, err
	}
	c, ok := st.cards[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CardRepo) UpdateStatus(_ context.Context, tx pgx.Tx, id uuid.UUID, status domain.CardStatus) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	c, ok := st.cards[id]
	if !ok {
		return fmt.Errorf("card %s not found", id)
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	st.cards[id] = c
	return nil
}

func (r *CardRepo) ListByContractor(_ context.Context, contractorID uuid.UUID) ([]domain.Card, error) {
	out := []domain.Card{}
	r.s.read(func(st *state) {
		for _, c := range st.cards {
			if c.ContractorID == contractorID {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- Audit & idempotency ---

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	e := *entry
	e.Metadata = copyMeta(entry.Metadata)
	return r.s.write(ctx, func(st *state) error {
		st.audits = append(st.audits, e)
		return nil
	})
}

// List returns the newest entries first.
func (r *AuditRepo) List(_ context.Context, limit int) ([]domain.AuditLog, error) {
	out := []domain.AuditLog{}
	r.s.read(func(st *state) {
		for i := len(st.audits) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, st.audits[i])
		}
	})
	return out, nil
}

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct{ s *Store }

func (s *Store) Idempotency() *IdempotencyRepo { return &IdempotencyRepo{s: s} }

func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	st, err := r.s.txState(tx)
	if err != nil {
		return err
	}
	if _, ok := st.idempotency[log.Key]; ok {
		return fmt.Errorf("idempotency key %q: %w", log.Key, domain.ErrDuplicateIdempotencyKey)
	}
	st.idempotency[log.Key] = *log
	return nil
}

func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyLog, error) {
	var out *domain.IdempotencyLog
	r.s.read(func(st *state) {
		if l, ok := st.idempotency[key]; ok {
			out = &l
		}
	})
	return out, nil
}
