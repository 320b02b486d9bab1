// Package memstore is an in-memory repositories.Store for tests and local runs.
// Transactions are serialised and work on a copy of the state that replaces
// the committed state only when the callback succeeds.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

type state struct {
	users        map[uuid.UUID]models.User
	campaigns    map[uuid.UUID]models.Campaign
	applications map[uuid.UUID]*models.Application
	transactions []models.Transaction
	revenue      []models.PlatformRevenue
	settlements  []models.Settlement
	wallets      map[uuid.UUID]models.Wallet
	audit        []models.AuditLog
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]models.User),
		campaigns:    make(map[uuid.UUID]models.Campaign),
		applications: make(map[uuid.UUID]*models.Application),
		wallets:      make(map[uuid.UUID]models.Wallet),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.campaigns {
		out.campaigns[k] = v
	}
	for k, v := range s.applications {
		out.applications[k] = v.Clone()
	}
	for k, v := range s.wallets {
		out.wallets[k] = v
	}
	out.transactions = append([]models.Transaction(nil), s.transactions...)
	out.revenue = append([]models.PlatformRevenue(nil), s.revenue...)
	out.settlements = append([]models.Settlement(nil), s.settlements...)
	out.audit = append([]models.AuditLog(nil), s.audit...)
	return out
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	committed *state
	now       func() time.Time

	failMu   sync.Mutex
	failures map[string]error
}

func New() *Store {
	return &Store{
		committed: newState(),
		now:       func() time.Time { return time.Now().UTC() },
		failures:  make(map[string]error),
	}
}

// FailOn makes the next call of op (e.g. "revenue.create") return err.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

func (s *Store) InTx(ctx context.Context, fn func(tx repositories.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(&repos{store: s, st: working, lock: noLock}); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = working
	s.mu.Unlock()
	return nil
}

func noLock() func() { return func() {} }

// direct returns repos over the committed state. Each call takes both locks,
// so writes outside InTx cannot be lost by a concurrent commit.
func (s *Store) direct() *repos {
	return &repos{store: s, lock: func() func() {
		s.txMu.Lock()
		s.mu.Lock()
		return func() {
			s.mu.Unlock()
			s.txMu.Unlock()
		}
	}}
}

func (s *Store) Campaigns() repositories.CampaignStore { return campaignStore{s.direct()} }
func (s *Store) Applications() repositories.ApplicationStore { return applicationStore{s.direct()} }
func (s *Store) Ledger() repositories.LedgerStore { return ledgerStore{s.direct()} }
func (s *Store) Revenue() repositories.RevenueStore { return revenueStore{s.direct()} }
func (s *Store) Wallets() repositories.WalletStore { return walletStore{s.direct()} }
func (s *Store) Audit() repositories.AuditStore { return auditStore{s.direct()} }
func (s *Store) Users() repositories.UserStore { return userStore{s.direct()} }

type repos struct {
	store *Store
	st    *state
	lock  func() func()
}

// enter locks and returns the state to operate on.
func (r *repos) enter() (*state, func()) {
	unlock := r.lock()
	if r.st != nil {
		return r.st, unlock
	}
	return r.store.committed, unlock
}

func (r *repos) Campaigns() repositories.CampaignStore { return campaignStore{r} }
func (r *repos) Applications() repositories.ApplicationStore { return applicationStore{r} }
func (r *repos) Ledger() repositories.LedgerStore { return ledgerStore{r} }
func (r *repos) Revenue() repositories.RevenueStore { return revenueStore{r} }
func (r *repos) Wallets() repositories.WalletStore { return walletStore{r} }
func (r *repos) Audit() repositories.AuditStore { return auditStore{r} }
func (r *repos) Users() repositories.UserStore { return userStore{r} }

var _ repositories.Store = (*Store)(nil)
