// ABOUTME: Ledger and wallet contracts consumed by the board, pool and worker
// ABOUTME: Defines namespace/entry records and integer coin amounts

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a namespace or key has no record
var ErrNotFound = errors.New("not found")

// SystemPrefix marks keys (and namespace names) reserved for metadata.
const SystemPrefix = "_"

// KeyNamespaceName is the system record holding a namespace's display name.
const KeyNamespaceName = "_KEVA_NS_"

// Namespace is a room: one ledger namespace and its display name
type Namespace struct {
	ID          string
	DisplayName string
}

// Entry is a single raw ledger record, confirmed or still pending
type Entry struct {
	Namespace string
	Key       string
	Value     string
	TxID      string
	Pending   bool
}

// IsSystem reports whether the entry is namespace metadata rather than a post.
func (e Entry) IsSystem() bool {
	return strings.HasPrefix(e.Key, SystemPrefix)
}

// Ledger is the append-only keyed store of record.
type Ledger interface {
	ListNamespaces(ctx context.Context) ([]Namespace, error)
	Filter(ctx context.Context, namespace string) ([]Entry, error)
	Pending(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, namespace, key string) (*Entry, error)
	Put(ctx context.Context, namespace, key, value string) (string, error)
}

// Wallet is the payment backend holding the board's funds.
type Wallet interface {
	NewAddress(ctx context.Context, account string) (string, error)
	ReceivedByAddress(ctx context.Context, address string, confirmations int) (Amount, error)
	Balance(ctx context.Context, confirmations int) (Amount, error)
}

// RoomEntries returns the pending writes for namespace followed by its
// confirmed records. The result is the unfiltered list a room view is built from.
func RoomEntries(ctx context.Context, l Ledger, namespace string) ([]Entry, error) {
	pending, err := l.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading pending entries: %w", err)
	}

	var raw []Entry
	for _, p := range pending {
		if p.Namespace != namespace {
			continue
		}
		raw = append(raw, p)
	}

	records, err := l.Filter(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("filtering namespace %s: %w", namespace, err)
	}
	return append(raw, records...), nil
}
