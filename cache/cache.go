package cache

import (
	"log/slog"
	gosync "sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fsbadge/fsbadge/logging"
)

// store is the registry's view of a cache: something that can forget
// one key or everything.
type store interface {
	Delete(key string)
	Clear()
}

// Registry tracks every cache created through New so that a file change
// can be invalidated across all of them at once. A session owns exactly
// one Registry; caches are never unregistered, only emptied.
type Registry struct {
	mu     gosync.RWMutex
	caches []store

	// seq counts invalidations. gens holds the seq of the last
	// InvalidateAll per key since the last ClearAll, which set cleared.
	seq     uint64
	cleared uint64
	gens    map[string]uint64
}

// Token is a snapshot of the invalidation state of one key. A value
// computed after taking a Token is only stored if no invalidation of
// that key, or ClearAll, happened in between.
type Token uint64

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) register(s store) {
	r.mu.Lock()
	r.caches = append(r.caches, s)
	r.mu.Unlock()
}

// Token returns the current invalidation token for key.
func (r *Registry) Token(key string) Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token(key)
}

func (r *Registry) token(key string) Token {
	return Token(max(r.gens[key], r.cleared))
}

// InvalidateAll removes key from every registered cache.
func (r *Registry) InvalidateAll(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if r.gens == nil {
		r.gens = make(map[string]uint64)
	}
	r.gens[key] = r.seq
	for _, c := range r.caches {
		c.Delete(key)
	}
	if logging.Enabled(slog.LevelDebug) {
		logging.Sub("cache").Debug("invalidate", "path", key, "caches", len(r.caches))
	}
}

// ClearAll empties every registered cache.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.cleared = r.seq
	clear(r.gens)
	for _, c := range r.caches {
		c.Clear()
	}
	if logging.Enabled(slog.LevelDebug) {
		logging.Sub("cache").Debug("clear all", "caches", len(r.caches))
	}
}

// Len returns the number of registered caches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caches)
}

// LRU is a fixed-capacity least-recently-used cache keyed by file path.
// Get and Set both refresh recency. A stored zero value is distinct from a
// miss: Get reports presence separately.
type LRU[V any] struct {
	entries *lru.Cache[string, V]
	maxSize int
	reg     *Registry
}

// New creates an LRU of the given capacity and registers it with r.
// Capacities below 1 are treated as 1.
func New[V any](r *Registry, maxSize int) *LRU[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	entries, err := lru.New[string, V](maxSize)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	c := &LRU[V]{entries: entries, maxSize: maxSize, reg: r}
	if r != nil {
		r.register(c)
	}
	return c
}

// Get returns the value for key and marks it most recently used.
// Returns (zero, false) if key is not cached.
func (c *LRU[V]) Get(key string) (V, bool) {
	return c.entries.Get(key)
}

// Set inserts or overwrites key. If that pushes the cache past its
// capacity, the least recently used entry is evicted.
func (c *LRU[V]) Set(key string, value V) {
	if evicted := c.entries.Add(key, value); evicted && logging.Enabled(slog.LevelDebug) {
		logging.Sub("cache").Debug("evict", "cap", c.maxSize)
	}
}

// Token returns the registry's invalidation token for key. Without a
// registry it is always zero.
func (c *LRU[V]) Token(key string) Token {
	if c.reg == nil {
		return 0
	}
	return c.reg.Token(key)
}

// SetIfCurrent stores value only if key has not been invalidated since
// tok was taken. It reports whether the value was stored.
func (c *LRU[V]) SetIfCurrent(key string, value V, tok Token) bool {
	if c.reg == nil {
		c.Set(key, value)
		return true
	}
	c.reg.mu.RLock()
	defer c.reg.mu.RUnlock()
	if c.reg.token(key) != tok {
		return false
	}
	c.Set(key, value)
	return true
}

// Delete removes key. Absent keys are ignored.
func (c *LRU[V]) Delete(key string) {
	c.entries.Remove(key)
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.entries.Purge()
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	return c.entries.Len()
}
