// Package memory is an in-process transactional store implementing the
// repository ports. A transaction works on a private copy of the state and
// publishes it on Commit; write transactions are serialised, so a reader never
// observes a half-applied transaction.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction does not belong to this store or is closed")

type state struct {
	orgs        map[uuid.UUID]domain.Organization
	checklists  map[uuid.UUID]domain.Checklist
	wallets     map[uuid.UUID]domain.Wallet
	entries     []domain.LedgerEntry
	entryIndex  map[uuid.UUID]int
	invoices    map[uuid.UUID]domain.Invoice
	payouts     map[uuid.UUID]domain.Payout
	jobs        map[uuid.UUID]domain.Job
	contractors map[uuid.UUID]domain.Contractor
	methods     map[uuid.UUID]domain.PayoutMethod // keyed by contractor
	cards       map[uuid.UUID]domain.Card
	audits      []domain.AuditLog
	idempotency map[string]domain.IdempotencyLog
}

func newState() *state {
	return &state{
		orgs:        map[uuid.UUID]domain.Organization{},
		checklists:  map[uuid.UUID]domain.Checklist{},
		wallets:     map[uuid.UUID]domain.Wallet{},
		entryIndex:  map[uuid.UUID]int{},
		invoices:    map[uuid.UUID]domain.Invoice{},
		payouts:     map[uuid.UUID]domain.Payout{},
		jobs:        map[uuid.UUID]domain.Job{},
		contractors: map[uuid.UUID]domain.Contractor{},
		methods:     map[uuid.UUID]domain.PayoutMethod{},
		cards:       map[uuid.UUID]domain.Card{},
		idempotency: map[string]domain.IdempotencyLog{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies the containers. Stored values are never mutated in place, so
// a shallow copy of each map is enough.
func (st *state) clone() *state {
	return &state{
		orgs:        cloneMap(st.orgs),
		checklists:  cloneMap(st.checklists),
		wallets:     cloneMap(st.wallets),
		entries:     append([]domain.LedgerEntry(nil), st.entries...),
		entryIndex:  cloneMap(st.entryIndex),
		invoices:    cloneMap(st.invoices),
		payouts:     cloneMap(st.payouts),
		jobs:        cloneMap(st.jobs),
		contractors: cloneMap(st.contractors),
		methods:     cloneMap(st.methods),
		cards:       cloneMap(st.cards),
		audits:      append([]domain.AuditLog(nil), st.audits...),
		idempotency: cloneMap(st.idempotency),
	}
}

// Store holds the committed state.
type Store struct {
	sem       chan struct{} // one writer at a time
	mu        sync.RWMutex  // guards committed
	committed *state
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sem:       make(chan struct{}, 1),
		committed: newState(),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()
	return &Tx{store: s, state: work}, nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.sem }

// read runs fn against committed state.
func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write applies a single-statement change outside any caller transaction.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	work := s.committed.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// Tx is a store transaction. Only Commit and Rollback are meaningful; the
// embedded pgx.Tx is nil.
type Tx struct {
	pgx.Tx
	store *Store
	state *state
	done  bool
}

// Commit publishes the transaction's state.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	t.store.committed = t.state
	t.store.mu.Unlock()
	t.store.release()
	return nil
}

// Rollback discards the transaction's state.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.release()
	return nil
}

func (s *Store) txState(tx pgx.Tx) (*state, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt.done || mt.store != s {
		return nil, errForeignTx
	}
	return mt.state, nil
}

func sortJobs(jobs []domain.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].RunAt.Equal(jobs[j].RunAt) {
			return jobs[i].RunAt.Before(jobs[j].RunAt)
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}
