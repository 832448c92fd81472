// ABOUTME: Room listing with cached post totals and last activity
// ABOUTME: Raw room entries are memoized and invalidated on every submission

package board

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/kevachat/geminiboard/internal/cache"
	"github.com/kevachat/geminiboard/internal/codec"
	"github.com/kevachat/geminiboard/internal/ledger"
)

// Room is one listed namespace with its activity summary.
type Room struct {
	ID      string
	Name    string
	Total   int
	Updated time.Time // zero when the room has no posts
}

// Stats summarizes the valid posts of a room.
type Stats struct {
	Total   int
	Updated time.Time
}

// Rooms aggregates room listings over the ledger.
type Rooms struct {
	ledger    ledger.Ledger
	validator *codec.Validator
	names     *Names
	cache     cache.Cache
	ttl       time.Duration
	logger    *slog.Logger
}

// NewRooms creates an aggregator. ttl bounds how long totals and raw lists
// survive without a local submission to invalidate them.
func NewRooms(l ledger.Ledger, v *codec.Validator, names *Names, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Rooms {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rooms{
		ledger:    l,
		validator: v,
		names:     names,
		cache:     c,
		ttl:       ttl,
		logger:    logger.With("component", "rooms"),
	}
}

func entriesKey(namespace string) cache.Key {
	return cache.NewKey("board", "entries", namespace)
}

func statsKey(namespace string) cache.Key {
	return cache.NewKey("board", "stats", namespace)
}

// Entries returns the unfiltered entries of namespace, pending first.
func (r *Rooms) Entries(ctx context.Context, namespace string) ([]ledger.Entry, error) {
	return cache.Remember(r.cache, entriesKey(namespace), r.ttl, func() ([]ledger.Entry, error) {
		return ledger.RoomEntries(ctx, r.ledger, namespace)
	})
}

// Stats returns the number of valid posts in namespace and the time of the
// newest one.
func (r *Rooms) Stats(ctx context.Context, namespace string) (Stats, error) {
	return cache.Remember(r.cache, statsKey(namespace), r.ttl, func() (Stats, error) {
		entries, err := r.Entries(ctx, namespace)
		if err != nil {
			return Stats{}, err
		}
		var s Stats
		for _, e := range entries {
			c, ok := r.validator.Candidate(e)
			if !ok {
				continue
			}
			s.Total++
			if c.Time.After(s.Updated) {
				s.Updated = c.Time
			}
		}
		return s, nil
	})
}

// Invalidate drops the cached raw list and stats of namespace.
func (r *Rooms) Invalidate(namespace string) {
	r.cache.Delete(entriesKey(namespace))
	r.cache.Delete(statsKey(namespace))
}

// ListRooms returns the listable rooms sorted by post total, busiest first.
// Namespaces known only from pending writes are included so a freshly
// created room shows up before it confirms.
func (r *Rooms) ListRooms(ctx context.Context) ([]Room, error) {
	namespaces, err := r.ledger.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}

	var rooms []Room
	seen := make(map[string]bool)
	for _, ns := range namespaces {
		if seen[ns.ID] || !r.validator.ValidRoomName(ns.DisplayName) {
			continue
		}
		seen[ns.ID] = true
		rooms = append(rooms, Room{ID: ns.ID, Name: ns.DisplayName})
	}

	pending, err := r.ledger.Pending(ctx)
	if err != nil {
		r.logger.Warn("reading pending entries failed", "error", err)
	}
	for _, e := range pending {
		if e.Namespace == "" || seen[e.Namespace] {
			continue
		}
		seen[e.Namespace] = true
		rooms = append(rooms, Room{ID: e.Namespace, Name: r.names.DisplayName(ctx, e.Namespace)})
	}

	for i := range rooms {
		s, err := r.Stats(ctx, rooms[i].ID)
		if err != nil {
			r.logger.Warn("computing room stats failed", "namespace", rooms[i].ID, "error", err)
			continue
		}
		rooms[i].Total = s.Total
		rooms[i].Updated = s.Updated
	}

	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Total > rooms[j].Total
	})
	return rooms, nil
}
