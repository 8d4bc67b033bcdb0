// Package cache implements the in-memory TTL response cache that sits in
// front of the query pipeline. Entries expire lazily on read, and a passive
// sweep evicts every expired entry at most once per sweep interval.
package cache

import (
	"strings"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Configuration
// ─────────────────────────────────────────────────────────────────────────────

// Options controls cache behaviour.
type Options struct {
	// Enabled turns the cache on. A disabled cache never stores anything and
	// every Get misses.
	Enabled bool

	// DefaultTTL applies to Set (default 1h).
	DefaultTTL time.Duration

	// SweepInterval is the minimum time between two full expiry sweeps
	// (default 60s).
	SweepInterval time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = time.Hour
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 60 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache
// ─────────────────────────────────────────────────────────────────────────────

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Cache is a mutex-guarded key/value store with per-entry TTL.
// It is safe for concurrent use.
type Cache struct {
	opts Options

	mu        sync.Mutex
	entries   map[string]entry
	lastSweep time.Time
}

// New creates a ready-to-use Cache.
func New(opts Options) *Cache {
	opts.defaults()
	return &Cache{
		opts:      opts,
		entries:   make(map[string]entry),
		lastSweep: opts.Now(),
	}
}

// Enabled reports whether the cache stores anything at all.
func (c *Cache) Enabled() bool { return c.opts.Enabled }

// Get returns the live value for key. An expired entry is deleted and
// reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	if !c.opts.Enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	if now.Sub(c.lastSweep) > c.opts.SweepInterval {
		c.sweepLocked(now)
	}

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.opts.DefaultTTL)
}

// SetWithTTL stores value under key, overwriting any previous entry.
// A non-positive ttl falls back to the default.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if !c.opts.Enabled {
		return
	}
	if ttl <= 0 {
		ttl = c.opts.DefaultTTL
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, insertedAt: c.opts.Now(), ttl: ttl}
	c.mu.Unlock()
}

// Clear removes every key starting with prefix and returns how many were
// removed. An empty prefix wipes the whole cache.
func (c *Cache) Clear(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix == "" {
		n := len(c.entries)
		c.entries = make(map[string]entry)
		return n
	}

	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked evicts every expired entry. c.mu must be held.
func (c *Cache) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.lastSweep = now
	return removed
}
