// ABOUTME: Pool entry model and the Store interface for escrowed posts
// ABOUTME: An entry is pending until exactly one of sent or expired is set

package pool

import (
	"context"
	"errors"
	"time"

	"github.com/kevachat/geminiboard/internal/ledger"
)

var (
	// ErrNotFound is returned when a pool entry does not exist.
	ErrNotFound = errors.New("pool entry not found")

	// ErrNotPending is returned when a transition targets an entry that
	// already reached a terminal state.
	ErrNotPending = errors.New("pool entry not pending")
)

// Entry is a post held in escrow until its payment confirms.
type Entry struct {
	ID        int64
	Created   time.Time
	Sent      time.Time // zero while not sent
	Expired   time.Time // zero while not expired
	Cost      ledger.Amount
	Address   string
	Namespace string
	Key       string
	Value     string
}

// IsPending reports whether the entry has reached neither terminal state.
func (e *Entry) IsPending() bool {
	return e.Sent.IsZero() && e.Expired.IsZero()
}

// Deadline is the moment an unpaid entry becomes expirable.
func (e *Entry) Deadline(timeout time.Duration) time.Time {
	return e.Created.Add(timeout)
}

// Store persists pool entries. Transitions are single-row and only apply to
// pending entries, so a row never carries both terminal timestamps.
type Store interface {
	// Create inserts e and sets e.ID.
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id int64) (*Entry, error)
	// ListPending returns entries with neither sent nor expired set, oldest first.
	ListPending(ctx context.Context) ([]*Entry, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkExpired(ctx context.Context, id int64, at time.Time) error
	Close() error
}
