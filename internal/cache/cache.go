// ABOUTME: TTL-keyed memoization shared by every read-heavy component
// ABOUTME: Structured composite keys over a patrickmn/go-cache backend

package cache

import (
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultTTL selects the backend's configured default expiry.
	DefaultTTL time.Duration = gocache.DefaultExpiration
	// NoExpiry keeps an entry until it is deleted or overwritten.
	NoExpiry time.Duration = gocache.NoExpiration
)

// Key identifies a cached value by the component and operation that produced
// it plus the operation's arguments.
type Key struct {
	Component string
	Operation string
	Args      []string
}

// NewKey builds a Key.
func NewKey(component, operation string, args ...string) Key {
	return Key{Component: component, Operation: operation, Args: args}
}

// String encodes the key deterministically. Every part is quoted so that
// arguments containing separators can never collide with other keys.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(k.Component))
	b.WriteByte('/')
	b.WriteString(strconv.Quote(k.Operation))
	for _, a := range k.Args {
		b.WriteByte('/')
		b.WriteString(strconv.Quote(a))
	}
	return b.String()
}

// Cache is a get/set/delete store with per-entry expiry. Single-key
// operations are atomic; entries are never mutated in place.
type Cache interface {
	Get(key Key) (any, bool)
	Set(key Key, value any, ttl time.Duration)
	Delete(key Key)
}

// Memory is an in-process Cache. Expired entries are dropped by the
// backend's janitor every cleanup interval.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a Memory cache. defaultTTL applies to Set calls with
// DefaultTTL; a zero cleanupInterval disables the janitor.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns the cached value for key.
func (m *Memory) Get(key Key) (any, bool) {
	return m.c.Get(key.String())
}

// Set stores value under key for ttl.
func (m *Memory) Set(key Key, value any, ttl time.Duration) {
	m.c.Set(key.String(), value, ttl)
}

// Delete removes key.
func (m *Memory) Delete(key Key) {
	m.c.Delete(key.String())
}

// Len returns the number of entries, including expired ones not yet swept.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

// Get returns the value under key when it is present and of type T.
func Get[T any](c Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Remember returns the cached value under key, or computes it with fn and
// caches it for ttl. Errors from fn are returned and nothing is cached.
func Remember[T any](c Cache, key Key, ttl time.Duration, fn func() (T, error)) (T, error) {
	if v, ok := Get[T](c, key); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return v, err
	}
	c.Set(key, v, ttl)
	return v, nil
}
