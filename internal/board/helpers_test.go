// ABOUTME: Shared fixtures for board tests
// ABOUTME: Builds a board over the in-memory ledger with a fixed clock

package board

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kevachat/geminiboard/internal/cache"
	"github.com/kevachat/geminiboard/internal/codec"
	"github.com/kevachat/geminiboard/internal/ledger"
	"github.com/kevachat/geminiboard/internal/locale"
	"github.com/kevachat/geminiboard/internal/media"
	"github.com/kevachat/geminiboard/internal/pool"
	"github.com/kevachat/geminiboard/internal/session"
)

const (
	roomNS  = "NroomAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	fileNS  = "NfileAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	otherNS = "NotherAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	quietNS = "NquietAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	freshNS = "NfreshAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	sysNS   = "NsysAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	badNS   = "NbadAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

var epoch = time.Unix(1700000000, 0)

func txid(seed string) string {
	return strings.Repeat(seed, 64/len(seed))
}

type stubProber map[string]string

func (s stubProber) Probe(ctx context.Context, namespace string) (string, bool, error) {
	label, ok := s[namespace]
	return label, ok, nil
}

type testBoard struct {
	ledger    *ledger.MockLedger
	cache     *cache.Memory
	validator *codec.Validator
	names     *Names
	rooms     *Rooms
	assembler *Assembler
	guard     *session.Guard
	pool      *pool.Pool
	store     *pool.MockStore
	service   *Service
	linker    Linker
}

func newTestBoard(t *testing.T, patterns codec.Patterns, cfg pool.Config) *testBoard {
	t.Helper()

	v, err := codec.NewValidator(patterns)
	require.NoError(t, err)

	b := &testBoard{
		ledger:    ledger.NewMockLedger(),
		cache:     cache.NewMemory(time.Hour, time.Minute),
		validator: v,
		linker:    Linker{Host: "example.org"},
		store:     pool.NewMockStore(),
	}
	catalog := locale.Default()
	views := NewViews(catalog)

	b.names = NewNames(b.ledger, b.cache, time.Hour, nil)
	b.rooms = NewRooms(b.ledger, v, b.names, b.cache, time.Hour, nil)
	b.assembler = NewAssembler(AssemblerOptions{
		Validator: v,
		Names:     b.names,
		Media:     stubProber{fileNS: "photo.png (1.0 KiB)"},
		Linker:    b.linker,
		Catalog:   catalog,
		Views:     views,
		Cache:     b.cache,
		TTL:       time.Hour,
	})
	b.assembler.now = func() time.Time { return epoch.Add(72 * time.Hour) }

	b.guard = session.New(b.cache, time.Hour)
	b.pool = pool.New(pool.Options{
		Store:       b.store,
		Ledger:      b.ledger,
		Wallet:      b.ledger,
		Guard:       b.guard,
		Validator:   v,
		Invalidator: b.rooms,
		Config:      cfg,
	})
	b.service = NewService(ServiceOptions{
		Rooms:       b.rooms,
		Names:       b.names,
		Assembler:   b.assembler,
		Attachments: media.NewReader(b.ledger, b.cache, time.Hour, nil),
		Guard:       b.guard,
		Submitter:   b.pool,
		Views:       views,
		Catalog:     catalog,
		Linker:      b.linker,
		About:       []string{"A board for testing."},
	})
	return b
}
