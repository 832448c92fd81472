// ABOUTME: Tests for the reconciliation worker state machine
// ABOUTME: Covers publish, expiry, fatal balance abort, skips, idempotence and locking

package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevachat/geminiboard/internal/ledger"
	"github.com/kevachat/geminiboard/internal/lock"
	"github.com/kevachat/geminiboard/internal/pool"
)

const (
	roomNS    = "NroomAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	missingNS = "NgoneAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

var t0 = time.Unix(1700000000, 0)

type fixture struct {
	worker *Worker
	ledger *ledger.MockLedger
	store  pool.Store
	now    time.Time
}

func newFixture(t *testing.T, store pool.Store) *fixture {
	t.Helper()

	l := ledger.NewMockLedger()
	l.AddNamespace(roomNS, "general")

	f := &fixture{ledger: l, store: store, now: t0}
	f.worker = New(store, l, l, Config{
		Confirmations: 1,
		Timeout:       time.Hour,
		LockPath:      filepath.Join(t.TempDir(), lock.Name("example.org")),
	}, nil)
	f.worker.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) add(t *testing.T, namespace, address string, cost ledger.Amount) *pool.Entry {
	t.Helper()
	e := &pool.Entry{
		Created:   t0,
		Cost:      cost,
		Address:   address,
		Namespace: namespace,
		Key:       "1700000000@anon",
		Value:     "hello from " + address,
	}
	require.NoError(t, f.store.Create(context.Background(), e))
	return e
}

func (f *fixture) get(t *testing.T, id int64) *pool.Entry {
	t.Helper()
	e, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return e
}

func TestPass_PaidEntryIsSent(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	e := f.add(t, roomNS, "Vaddr1", 5*ledger.Coin)
	f.ledger.SetReceived("Vaddr1", 5*ledger.Coin)
	f.ledger.SetBalance(10 * ledger.Coin)
	f.now = t0.Add(time.Minute)

	result, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1}, result)

	puts := f.ledger.Puts()
	require.Len(t, puts, 1)
	assert.Equal(t, roomNS, puts[0].Namespace)
	assert.Equal(t, e.Key, puts[0].Key)
	assert.Equal(t, e.Value, puts[0].Value)

	got := f.get(t, e.ID)
	assert.True(t, got.Sent.Equal(f.now))
	assert.True(t, got.Expired.IsZero())
}

func TestPass_UnpaidEntryExpires(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	e := f.add(t, roomNS, "Vaddr1", 5*ledger.Coin)
	f.ledger.SetBalance(100 * ledger.Coin)

	f.now = t0.Add(30 * time.Minute)
	result, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Untouched: 1}, result)
	assert.True(t, f.get(t, e.ID).IsPending())

	f.now = t0.Add(time.Hour)
	result, err = f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Expired: 1}, result)

	got := f.get(t, e.ID)
	assert.True(t, got.Expired.Equal(f.now))
	assert.True(t, got.Sent.IsZero())
	assert.Empty(t, f.ledger.Puts(), "expired entries never reach the ledger")
}

func TestPass_PartialPaymentExpires(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	e := f.add(t, roomNS, "Vaddr1", 5*ledger.Coin)
	f.ledger.SetReceived("Vaddr1", 4*ledger.Coin)
	f.ledger.SetBalance(100 * ledger.Coin)
	f.now = t0.Add(2 * time.Hour)

	result, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Expired: 1}, result)
	assert.False(t, f.get(t, e.ID).Expired.IsZero())
}

func TestPass_InsufficientFundsAbortsPass(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	cheap := f.add(t, roomNS, "Vaddr1", 1*ledger.Coin)
	dear := f.add(t, roomNS, "Vaddr2", 5*ledger.Coin)
	late := f.add(t, roomNS, "Vaddr3", 1*ledger.Coin)
	f.ledger.SetReceived("Vaddr1", 1*ledger.Coin)
	f.ledger.SetReceived("Vaddr2", 5*ledger.Coin)
	f.ledger.SetReceived("Vaddr3", 1*ledger.Coin)
	f.ledger.SetBalance(3 * ledger.Coin)
	f.now = t0.Add(time.Minute)

	result, err := f.worker.Pass(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 1, result.Sent)

	// earlier entries stay sent; the rest of the queue is not evaluated
	assert.False(t, f.get(t, cheap.ID).Sent.IsZero())
	assert.True(t, f.get(t, dear.ID).IsPending())
	assert.True(t, f.get(t, late.ID).IsPending())
	assert.Len(t, f.ledger.Puts(), 1)
}

func TestPass_UnknownNamespaceStaysPending(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	e := f.add(t, missingNS, "Vaddr1", ledger.Coin)
	f.ledger.SetReceived("Vaddr1", ledger.Coin)
	f.ledger.SetBalance(10 * ledger.Coin)
	f.now = t0.Add(2 * time.Hour)

	result, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 1}, result)
	assert.True(t, f.get(t, e.ID).IsPending(), "paid entries are never expired")
	assert.Empty(t, f.ledger.Puts())
}

func TestPass_LedgerFailureRetries(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	e := f.add(t, roomNS, "Vaddr1", ledger.Coin)
	f.ledger.SetReceived("Vaddr1", ledger.Coin)
	f.ledger.SetBalance(10 * ledger.Coin)
	f.ledger.PutErr = errors.New("node unreachable")
	f.now = t0.Add(time.Minute)

	result, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 1}, result)
	assert.True(t, f.get(t, e.ID).IsPending())

	f.ledger.PutErr = nil
	result, err = f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1}, result)
}

func TestPass_Idempotent(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	f.add(t, roomNS, "Vaddr1", ledger.Coin)
	f.add(t, roomNS, "Vaddr2", ledger.Coin)
	f.ledger.SetReceived("Vaddr1", ledger.Coin)
	f.ledger.SetBalance(10 * ledger.Coin)
	f.now = t0.Add(2 * time.Hour)

	first, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1, Expired: 1}, first)

	second, err := f.worker.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, second)
	assert.Len(t, f.ledger.Puts(), 1)
}

func TestPass_EmptyRoomList(t *testing.T) {
	store := pool.NewMockStore()
	l := ledger.NewMockLedger()
	w := New(store, l, l, Config{Timeout: time.Hour}, nil)

	_, err := w.Pass(context.Background())
	assert.ErrorIs(t, err, ErrNoRooms)
}

func TestRun_AlreadyRunning(t *testing.T) {
	f := newFixture(t, pool.NewMockStore())
	f.add(t, roomNS, "Vaddr1", ledger.Coin)

	held, err := lock.Acquire(f.worker.cfg.LockPath)
	require.NoError(t, err)
	defer held.Release()

	_, err = f.worker.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, 0, f.ledger.Calls("ListNamespaces"), "no work without the lock")
	assert.Equal(t, 0, f.ledger.Calls("ReceivedByAddress"))
}

func TestRun_SQLiteStore(t *testing.T) {
	store, err := pool.NewSQLiteStore(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	defer store.Close()

	f := newFixture(t, store)
	paid := f.add(t, roomNS, "Vaddr1", 2*ledger.Coin)
	unpaid := f.add(t, roomNS, "Vaddr2", 5*ledger.Coin)
	f.ledger.SetReceived("Vaddr1", 2*ledger.Coin)
	f.ledger.SetBalance(10 * ledger.Coin)
	f.now = t0.Add(90 * time.Minute)

	result, err := f.worker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Sent: 1, Expired: 1}, result)

	p := f.get(t, paid.ID)
	assert.False(t, p.Sent.IsZero())
	assert.True(t, p.Expired.IsZero())

	u := f.get(t, unpaid.ID)
	assert.True(t, u.Sent.IsZero())
	assert.False(t, u.Expired.IsZero())

	// the lock is released after the run
	again, err := f.worker.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, again)
}
