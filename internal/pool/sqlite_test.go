// ABOUTME: Tests for the SQLite pool store
// ABOUTME: Covers creation, pending listing and guarded terminal transitions

package pool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevachat/geminiboard/internal/ledger"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newEntry(created time.Time) *Entry {
	return &Entry{
		Created:   created,
		Cost:      5 * ledger.Coin,
		Address:   "Vaddress",
		Namespace: testNS,
		Key:       "1700000000@anon",
		Value:     "hello",
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "pool.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Unix(1700000000, 0)

	e := newEntry(created)
	require.NoError(t, s.Create(ctx, e))
	assert.NotZero(t, e.ID)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.True(t, got.Created.Equal(created))
	assert.True(t, got.IsPending())
	assert.Equal(t, 5*ledger.Coin, got.Cost)
	assert.Equal(t, "Vaddress", got.Address)
	assert.Equal(t, testNS, got.Namespace)
	assert.Equal(t, "1700000000@anon", got.Key)
	assert.Equal(t, "hello", got.Value)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	a, b, c := newEntry(now), newEntry(now), newEntry(now)
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))
	require.NoError(t, s.Create(ctx, c))

	require.NoError(t, s.MarkSent(ctx, a.ID, now.Add(time.Minute)))
	require.NoError(t, s.MarkExpired(ctx, c.ID, now.Add(time.Hour)))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestSQLiteStore_TerminalStatesExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	e := newEntry(now)
	require.NoError(t, s.Create(ctx, e))
	require.NoError(t, s.MarkSent(ctx, e.ID, now))

	assert.ErrorIs(t, s.MarkExpired(ctx, e.ID, now), ErrNotPending)
	assert.ErrorIs(t, s.MarkSent(ctx, e.ID, now), ErrNotPending)

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Sent.Equal(now))
	assert.True(t, got.Expired.IsZero())
}

func TestSQLiteStore_TransitionNotFound(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.MarkSent(context.Background(), 7, time.Now()), ErrNotFound)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	e := newEntry(time.Unix(1700000000, 0))
	require.NoError(t, s.Create(ctx, e))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, e.ID, pending[0].ID)
}
