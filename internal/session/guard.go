// ABOUTME: Single-use anti-replay session tokens issued per room view
// ABOUTME: Tokens live in the shared cache and are deleted on first acceptance

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevachat/geminiboard/internal/cache"
)

const component = "session"

// Guard issues and consumes session tokens. It deters replayed and scripted
// submissions; it is not an identity mechanism, and anyone who has seen a
// room view can post once with its token.
type Guard struct {
	mu    sync.Mutex
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// New creates a Guard whose tokens expire after ttl.
func New(c cache.Cache, ttl time.Duration) *Guard {
	return &Guard{
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

func tokenKey(token string) cache.Key {
	return cache.NewKey(component, "token", token)
}

// Issue creates a fresh token and records its issue time.
func (g *Guard) Issue() string {
	token := uuid.New().String()
	g.cache.Set(tokenKey(token), g.now().Unix(), g.ttl)
	return token
}

// Valid reports whether token is still resolvable.
func (g *Guard) Valid(token string) bool {
	if token == "" {
		return false
	}
	_, ok := cache.Get[int64](g.cache, tokenKey(token))
	return ok
}

// Consume deletes token and reports whether it was valid. Of any number of
// concurrent calls with the same token, at most one returns true.
func (g *Guard) Consume(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.Valid(token) {
		return false
	}
	g.cache.Delete(tokenKey(token))
	return true
}
