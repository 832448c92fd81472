// ABOUTME: Resolves namespace ids to human display names
// ABOUTME: Local namespace list first, then the room's _KEVA_NS_ record, else the id

package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevachat/geminiboard/internal/cache"
	"github.com/kevachat/geminiboard/internal/ledger"
)

// Names resolves and caches namespace display names.
type Names struct {
	ledger ledger.Ledger
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewNames creates a resolver caching names for ttl.
func NewNames(l ledger.Ledger, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Names {
	if logger == nil {
		logger = slog.Default()
	}
	return &Names{
		ledger: l,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("component", "names"),
	}
}

func nameKey(namespace string) cache.Key {
	return cache.NewKey("board", "name", namespace)
}

// DisplayName returns the display name of namespace, or the namespace id
// itself when no name can be resolved. Unresolved ids are not cached.
func (n *Names) DisplayName(ctx context.Context, namespace string) string {
	name, err := n.Resolve(ctx, namespace)
	if err != nil {
		n.logger.Warn("resolving namespace name failed", "namespace", namespace, "error", err)
	}
	return name
}

// Resolve is DisplayName with the lookup error exposed. The returned name
// falls back to the namespace id; err is only set when the ledger could
// not be read, in which case a later call may resolve a real name.
func (n *Names) Resolve(ctx context.Context, namespace string) (string, error) {
	if name, ok := cache.Get[string](n.cache, nameKey(namespace)); ok {
		return name, nil
	}

	name, ok, err := n.lookup(ctx, namespace)
	if !ok {
		return namespace, err
	}
	n.cache.Set(nameKey(namespace), name, n.ttl)
	return name, nil
}

func (n *Names) lookup(ctx context.Context, namespace string) (string, bool, error) {
	namespaces, listErr := n.ledger.ListNamespaces(ctx)
	for _, ns := range namespaces {
		if ns.ID == namespace {
			return ns.DisplayName, true, nil
		}
	}

	// remote nodes do not list foreign namespaces; read the name record instead
	records, err := n.ledger.Filter(ctx, namespace)
	if err != nil {
		return "", false, fmt.Errorf("reading records of %s: %w", namespace, err)
	}
	for _, r := range records {
		if r.Key == ledger.KeyNamespaceName {
			return r.Value, true, nil
		}
	}
	if listErr != nil {
		return "", false, fmt.Errorf("listing namespaces: %w", listErr)
	}
	return "", false, nil
}
