package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowhq/payd/internal/adapter/storage/inmem"
	"github.com/payflowhq/payd/internal/core/domain"
	"github.com/payflowhq/payd/internal/core/ledger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedAccount(t *testing.T, store *inmem.Store, name, balance string) *domain.Account {
	t.Helper()
	acc, err := store.CreateAccount(context.Background(), name, name+"@example.com", dec(balance), false)
	require.NoError(t, err)
	return acc
}

func TestTransferCompleted(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "100.00")
	b := seedAccount(t, store, "bob", "0.00")

	txn, err := engine.Transfer(ctx, a.ID, b.ID, dec("50.00"), "rent")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, txn.Status)
	assert.Equal(t, a.ID, txn.FromAccountID)
	assert.Equal(t, b.ID, txn.ToAccountID)
	assert.True(t, txn.Amount.Equal(dec("50.00")))
	assert.Equal(t, "rent", txn.Description)
	require.NotNil(t, txn.CompletedAt)

	after1, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	after2, err := store.GetAccount(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, after1.Balance.Equal(dec("50.00")), "source balance: %s", after1.Balance)
	assert.True(t, after2.Balance.Equal(dec("50.00")), "dest balance: %s", after2.Balance)

	// Conservation: total money across the pair is unchanged.
	assert.True(t, after1.Balance.Add(after2.Balance).Equal(dec("100.00")))
}

func TestTransferInsufficientFunds(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "100.00")
	b := seedAccount(t, store, "bob", "0.00")

	txn, err := engine.Transfer(ctx, a.ID, b.ID, dec("150.00"), "")
	require.NoError(t, err, "insufficient funds is a valid outcome, not an error")

	assert.Equal(t, domain.StatusFailed, txn.Status)
	require.NotNil(t, txn.CompletedAt)

	// Balances must be untouched.
	after1, _ := store.GetAccount(ctx, a.ID)
	after2, _ := store.GetAccount(ctx, b.ID)
	assert.True(t, after1.Balance.Equal(dec("100.00")))
	assert.True(t, after2.Balance.Equal(dec("0.00")))

	// But the attempt is durably recorded for audit.
	stored, err := engine.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestTransferRequestRejected(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "100.00")
	b := seedAccount(t, store, "bob", "100.00")

	cases := []struct {
		name    string
		from    uuid.UUID
		to      uuid.UUID
		amount  decimal.Decimal
		wantErr error
	}{
		{"self transfer", a.ID, a.ID, dec("10.00"), domain.ErrSameAccount},
		{"zero amount", a.ID, b.ID, dec("0.00"), domain.ErrInvalidAmount},
		{"negative amount", a.ID, b.ID, dec("-5.00"), domain.ErrInvalidAmount},
		{"too much precision", a.ID, b.ID, dec("10.005"), domain.ErrInvalidAmount},
		{"unknown source", uuid.New(), b.ID, dec("10.00"), domain.ErrAccountNotFound},
		{"unknown destination", a.ID, uuid.New(), dec("10.00"), domain.ErrAccountNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txn, err := engine.Transfer(ctx, tc.from, tc.to, tc.amount, "")
			require.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, txn)
		})
	}

	// No rejection left a record or moved money.
	for _, acc := range []*domain.Account{a, b} {
		txns, err := engine.ListTransactionsForAccount(ctx, acc.ID, 50, 0)
		require.NoError(t, err)
		assert.Empty(t, txns)

		after, err := store.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.True(t, after.Balance.Equal(dec("100.00")))
	}
}

func TestTransferAbortsOnStoreError(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(&failingStore{Store: store})
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "100.00")
	b := seedAccount(t, store, "bob", "0.00")

	_, err := engine.Transfer(ctx, a.ID, b.ID, dec("50.00"), "")
	require.Error(t, err)

	// Aborted unit of work leaves zero observable side effects.
	after1, _ := store.GetAccount(ctx, a.ID)
	after2, _ := store.GetAccount(ctx, b.ID)
	assert.True(t, after1.Balance.Equal(dec("100.00")))
	assert.True(t, after2.Balance.Equal(dec("0.00")))

	txns, err := engine.ListTransactionsForAccount(ctx, a.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

// failingStore lets the unit of work proceed, then fails the final insert,
// simulating an infrastructure error mid-transaction.
type failingStore struct {
	*inmem.Store
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx ledger.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

type failingTx struct {
	ledger.Tx
}

func (t *failingTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	return fmt.Errorf("connection reset by peer")
}

func TestGetTransactionNotFound(t *testing.T) {
	engine := ledger.NewEngine(inmem.New())
	_, err := engine.GetTransaction(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestListTransactionsForAccount(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "100.00")
	b := seedAccount(t, store, "bob", "100.00")
	c := seedAccount(t, store, "carol", "100.00")

	first, err := engine.Transfer(ctx, a.ID, b.ID, dec("10.00"), "first")
	require.NoError(t, err)
	second, err := engine.Transfer(ctx, b.ID, a.ID, dec("5.00"), "second")
	require.NoError(t, err)
	_, err = engine.Transfer(ctx, b.ID, c.ID, dec("1.00"), "not alice's")
	require.NoError(t, err)

	txns, err := engine.ListTransactionsForAccount(ctx, a.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	// Newest first, and only transfers touching the account.
	assert.Equal(t, second.ID, txns[0].ID)
	assert.Equal(t, first.ID, txns[1].ID)

	// Pagination.
	page, err := engine.ListTransactionsForAccount(ctx, a.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "100.00")
	b := seedAccount(t, store, "bob", "100.00")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := engine.Transfer(ctx, a.ID, b.ID, dec("30.00"), "")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := engine.Transfer(ctx, b.ID, a.ID, dec("20.00"), "")
		errs <- err
	}()

	waitOrFail(t, &wg, 10*time.Second)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	after1, _ := store.GetAccount(ctx, a.ID)
	after2, _ := store.GetAccount(ctx, b.ID)
	assert.True(t, after1.Balance.Equal(dec("90.00")), "alice: %s", after1.Balance)
	assert.True(t, after2.Balance.Equal(dec("110.00")), "bob: %s", after2.Balance)
	assert.True(t, after1.Balance.Add(after2.Balance).Equal(dec("200.00")))
}

// TestDeadlockFreedom hammers a small set of accounts with transfers in a
// lock-unfriendly ring pattern (A→B, B→A, B→C, C→B, ...). Without the
// canonical lock order this wedges; with it every transfer finishes.
func TestDeadlockFreedom(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	const (
		numAccounts  = 4
		numTransfers = 100
	)
	accounts := make([]*domain.Account, numAccounts)
	for i := range accounts {
		accounts[i] = seedAccount(t, store, fmt.Sprintf("acct-%d", i), "1000.00")
	}

	var wg sync.WaitGroup
	errs := make(chan error, numTransfers)
	for i := 0; i < numTransfers; i++ {
		from := accounts[i%numAccounts]
		to := accounts[(i+1)%numAccounts]
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func(from, to uuid.UUID) {
			defer wg.Done()
			_, err := engine.Transfer(ctx, from, to, dec("1.00"), "")
			errs <- err
		}(from.ID, to.ID)
	}

	waitOrFail(t, &wg, 30*time.Second)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Money is conserved across the whole set, and nothing went negative.
	total := decimal.Zero
	for _, acc := range accounts {
		after, err := store.GetAccount(ctx, acc.ID)
		require.NoError(t, err)
		assert.False(t, after.Balance.IsNegative())
		total = total.Add(after.Balance)
	}
	assert.True(t, total.Equal(dec("4000.00")), "total: %s", total)
}

// TestConcurrentOverdraw checks non-negativity under contention: five
// transfers race to spend a balance that covers only two of them.
func TestConcurrentOverdraw(t *testing.T) {
	store := inmem.New()
	engine := ledger.NewEngine(store)
	ctx := context.Background()

	a := seedAccount(t, store, "alice", "50.00")
	b := seedAccount(t, store, "bob", "0.00")

	const attempts = 5
	var wg sync.WaitGroup
	results := make(chan *domain.Transaction, attempts)
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			txn, err := engine.Transfer(ctx, a.ID, b.ID, dec("20.00"), "")
			if err != nil {
				errs <- err
				return
			}
			results <- txn
		}()
	}
	waitOrFail(t, &wg, 10*time.Second)
	close(results)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	completed, failed := 0, 0
	for txn := range results {
		switch txn.Status {
		case domain.StatusCompleted:
			completed++
		case domain.StatusFailed:
			failed++
		default:
			t.Fatalf("non-terminal status %q returned to caller", txn.Status)
		}
	}
	assert.Equal(t, 2, completed)
	assert.Equal(t, 3, failed)

	after1, _ := store.GetAccount(ctx, a.ID)
	after2, _ := store.GetAccount(ctx, b.ID)
	assert.True(t, after1.Balance.Equal(dec("10.00")))
	assert.True(t, after2.Balance.Equal(dec("40.00")))
	assert.False(t, after1.Balance.IsNegative())

	// Audit completeness: every attempt that reached validation has a
	// terminal record.
	txns, err := engine.ListTransactionsForAccount(ctx, a.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, txns, attempts)
	for _, txn := range txns {
		assert.True(t, txn.Status.Terminal())
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("transfers did not finish in time; possible deadlock")
	}
}
