// Package inmem is a memory-backed store with the same locking behavior as
// the Postgres adapter: GetAccountForUpdate blocks while another unit of
// work holds the row, and writes become visible only on commit. It backs
// the test suite and database-less local runs.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/payflowhq/payd/internal/core/domain"
	"github.com/payflowhq/payd/internal/core/ledger"
)

type accountRow struct {
	mu  sync.Mutex // row-level exclusive lock
	acc domain.Account
}

type Store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*accountRow
	order    []uuid.UUID
	emails   map[string]uuid.UUID
	txns     []domain.Transaction
	txnIndex map[uuid.UUID]int
	methods  map[uuid.UUID]domain.PaymentMethod
	mOrder   []uuid.UUID
	tokens   map[string]uuid.UUID
}

func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*accountRow),
		emails:   make(map[string]uuid.UUID),
		txnIndex: make(map[uuid.UUID]int),
		methods:  make(map[uuid.UUID]domain.PaymentMethod),
		tokens:   make(map[string]uuid.UUID),
	}
}

var _ ledger.Store = (*Store)(nil)

// WithinTx runs fn as one unit of work. Staged writes are applied while the
// row locks are still held, then the locks are released; on error nothing
// is applied.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	t := &memTx{store: s, balances: make(map[uuid.UUID]decimal.Decimal)}
	err := fn(t)
	if err == nil {
		t.commit()
	}
	t.unlock()
	return err
}

type memTx struct {
	store    *Store
	locked   []*accountRow
	balances map[uuid.UUID]decimal.Decimal
	inserted []domain.Transaction
}

func (t *memTx) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	t.store.mu.Lock()
	row, ok := t.store.accounts[id]
	t.store.mu.Unlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	// Blocks until any other in-flight unit of work commits or aborts.
	row.mu.Lock()
	t.locked = append(t.locked, row)

	acc := row.acc
	if staged, ok := t.balances[id]; ok {
		acc.Balance = staged
	}
	return &acc, nil
}

func (t *memTx) UpdateAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if _, ok := t.store.lookup(id); !ok {
		return domain.ErrAccountNotFound
	}
	t.balances[id] = balance
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	t.inserted = append(t.inserted, *txn)
	return nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	now := time.Now().UTC()
	for id, balance := range t.balances {
		row := s.accounts[id]
		row.acc.Balance = balance
		row.acc.UpdatedAt = now
	}
	for _, txn := range t.inserted {
		s.txnIndex[txn.ID] = len(s.txns)
		s.txns = append(s.txns, txn)
	}
	s.mu.Unlock()
}

func (t *memTx) unlock() {
	for i := len(t.locked) - 1; i >= 0; i-- {
		t.locked[i].mu.Unlock()
	}
	t.locked = nil
}

func (s *Store) lookup(id uuid.UUID) (*accountRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.accounts[id]
	return row, ok
}

// GetTransaction implements ledger.Store.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.txnIndex[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	txn := s.txns[idx]
	return &txn, nil
}

// ListTransactionsForAccount implements ledger.Store: newest first.
func (s *Store) ListTransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Transaction
	skipped := 0
	for i := len(s.txns) - 1; i >= 0 && len(out) < limit; i-- {
		txn := s.txns[i]
		if txn.FromAccountID != accountID && txn.ToAccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// CreateAccount registers a new account with an optional starting balance.
func (s *Store) CreateAccount(ctx context.Context, name, email string, balance decimal.Decimal, isAgent bool) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[email]; taken {
		return nil, domain.ErrEmailExists
	}
	now := time.Now().UTC()
	acc := domain.Account{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Balance:   balance,
		IsAgent:   isAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[acc.ID] = &accountRow{acc: acc}
	s.order = append(s.order, acc.ID)
	s.emails[email] = acc.ID
	return &acc, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	acc := row.acc
	return &acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Account
	for i := offset; i < len(s.order) && len(out) < limit; i++ {
		out = append(out, s.accounts[s.order[i]].acc)
	}
	return out, nil
}

// UpdateAccount patches name and/or email. Balance is deliberately not
// reachable from here; only the ledger engine mutates it.
func (s *Store) UpdateAccount(ctx context.Context, id uuid.UUID, name, email *string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if email != nil && *email != row.acc.Email {
		if _, taken := s.emails[*email]; taken {
			return nil, domain.ErrEmailExists
		}
		delete(s.emails, row.acc.Email)
		s.emails[*email] = id
		row.acc.Email = *email
	}
	if name != nil {
		row.acc.Name = *name
	}
	row.acc.UpdatedAt = time.Now().UTC()
	acc := row.acc
	return &acc, nil
}

func (s *Store) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := s.lookup(id)
	return ok, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, accountID uuid.UUID, methodType, tokenID string) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	if _, taken := s.tokens[tokenID]; taken {
		return nil, domain.ErrTokenExists
	}
	method := domain.PaymentMethod{
		ID:         uuid.New(),
		AccountID:  accountID,
		MethodType: methodType,
		TokenID:    tokenID,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	s.methods[method.ID] = method
	s.mOrder = append(s.mOrder, method.ID)
	s.tokens[tokenID] = method.ID
	return &method, nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	method, ok := s.methods[id]
	if !ok {
		return nil, domain.ErrPaymentMethodNotFound
	}
	return &method, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PaymentMethod
	for _, id := range s.mOrder {
		if m := s.methods[id]; m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out, nil
}
