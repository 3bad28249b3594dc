// Package memstore is an in-memory ledger.Store. One mutex serializes every
// atomic unit, which trivially gives the same isolation the Postgres store
// gets from row locks. It backs the service tests and the no-database dev
// mode (STORE=memory).
package memstore

import (
	"context"
	"sync"

	"bankapp/ledger"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]*ledger.Account // by id
	byName   map[string]string          // username -> id
	journal  map[string][]ledger.Transaction
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*ledger.Account),
		byName:   make(map[string]string),
		journal:  make(map[string][]ledger.Transaction),
	}
}

func (s *Store) CreateAccount(ctx context.Context, a *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[a.Username]; taken {
		return ledger.ErrAlreadyExists
	}
	cp := *a
	s.accounts[cp.ID] = &cp
	s.byName[cp.Username] = cp.ID
	return nil
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *Store) FindTransactionsByAccount(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.journal[accountID]
	out := make([]ledger.Transaction, len(entries))
	copy(out, entries)
	return out, nil
}

// Update runs fn under the store mutex with all writes staged in the tx view.
// They are applied only when fn returns nil, so a failed unit leaves no trace.
func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, balances: make(map[string]decimal.Decimal)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, balance := range tx.balances {
		s.accounts[id].Balance = balance
	}
	for _, entry := range tx.appended {
		s.journal[entry.AccountID] = append(s.journal[entry.AccountID], entry)
	}
	return nil
}

// memTx stages balance writes and appended transactions; reads through it see
// the staged state.
type memTx struct {
	store    *Store
	balances map[string]decimal.Decimal
	appended []ledger.Transaction
}

func (t *memTx) AccountForUpdate(ctx context.Context, id string) (*ledger.Account, error) {
	a, ok := t.store.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *a
	if staged, ok := t.balances[id]; ok {
		cp.Balance = staged
	}
	return &cp, nil
}

func (t *memTx) AccountIDByUsername(ctx context.Context, username string) (string, error) {
	id, ok := t.store.byName[username]
	if !ok {
		return "", ledger.ErrNotFound
	}
	return id, nil
}

func (t *memTx) SetBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	if _, ok := t.store.accounts[id]; !ok {
		return ledger.ErrNotFound
	}
	t.balances[id] = balance
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, tr *ledger.Transaction) error {
	t.appended = append(t.appended, *tr)
	return nil
}

var _ ledger.Store = (*Store)(nil)
