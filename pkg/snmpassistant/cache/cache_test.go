package cache_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/cache"
)

// fakeClock is a manually advanced clock.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newCache(t *testing.T, enabled bool) (*cache.Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New(cache.Options{
		Enabled:    enabled,
		DefaultTTL: 10 * time.Second,
		Now:        clk.Now,
	})
	return c, clk
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clk := newCache(t, true)

	c.Set("k", "v")
	clk.Advance(9 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clk.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry older than its TTL must be absent")
	assert.Equal(t, 0, c.Len(), "expired entry is deleted on read")
}

func TestCache_PerEntryTTL(t *testing.T) {
	c, clk := newCache(t, true)

	c.SetWithTTL("short", 1, time.Second)
	c.SetWithTTL("long", 2, time.Minute)
	clk.Advance(5 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_OverwriteResetsTTL(t *testing.T) {
	c, clk := newCache(t, true)

	c.Set("k", "old")
	clk.Advance(8 * time.Second)
	c.Set("k", "new")
	clk.Advance(8 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCache_ClearPrefix(t *testing.T) {
	c, _ := newCache(t, true)

	c.Set("mib_oids_IF-MIB", []string{"1.3.6.1.2.1.2.1.0"})
	c.Set("mib_oids_SNMPv2-MIB", []string{"1.3.6.1.2.1.1.1.0"})
	c.Set("query_abc", "resp")

	removed := c.Clear("mib_")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("mib_oids_IF-MIB")
	assert.False(t, ok)
	_, ok = c.Get("query_abc")
	assert.True(t, ok, "keys without the prefix are untouched")
}

func TestCache_ClearAll(t *testing.T) {
	c, _ := newCache(t, true)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.Equal(t, 2, c.Clear(""))
	assert.Equal(t, 0, c.Len())
}

func TestCache_Disabled(t *testing.T) {
	c, _ := newCache(t, false)

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Enabled())
}

func TestCache_PassiveSweep(t *testing.T) {
	c, clk := newCache(t, true)

	c.SetWithTTL("a", 1, time.Second)
	c.SetWithTTL("b", 2, time.Second)
	c.SetWithTTL("keep", 3, time.Hour)

	// Before the sweep interval elapses, unrelated reads leave expired entries.
	clk.Advance(30 * time.Second)
	c.Get("keep")
	assert.Equal(t, 3, c.Len())

	// After 60s any read evicts every expired entry.
	clk.Advance(31 * time.Second)
	c.Get("missing")
	assert.Equal(t, 1, c.Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// Concurrency
// ─────────────────────────────────────────────────────────────────────────────

// atomicClock is a clock that several goroutines may advance at once.
type atomicClock struct{ nanos atomic.Int64 }

func (c *atomicClock) Now() time.Time          { return time.Unix(0, c.nanos.Load()).UTC() }
func (c *atomicClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

func TestCache_ConcurrentAccess(t *testing.T) {
	const workers, rounds = 16, 200

	tests := []struct {
		name string
		// work runs in each worker goroutine.
		work func(t *testing.T, c *cache.Cache, clk *atomicClock, w int)
		// check runs once every worker has finished.
		check func(t *testing.T, c *cache.Cache, clk *atomicClock)
	}{
		{
			name: "readers see their own writes",
			work: func(t *testing.T, c *cache.Cache, _ *atomicClock, w int) {
				key := fmt.Sprintf("own_%d", w)
				for i := range rounds {
					c.SetWithTTL(key, i, time.Hour)
					v, ok := c.Get(key)
					assert.True(t, ok)
					assert.Equal(t, i, v)
					c.Set("shared", w)
					c.Get("shared")
				}
			},
			check: func(t *testing.T, c *cache.Cache, _ *atomicClock) {
				assert.Equal(t, workers+1, c.Len())
			},
		},
		{
			name: "sweeps run while entries expire",
			work: func(t *testing.T, c *cache.Cache, clk *atomicClock, w int) {
				c.SetWithTTL(fmt.Sprintf("keep_%d", w), w, time.Hour)
				for i := range rounds {
					c.SetWithTTL(fmt.Sprintf("tmp_%d_%d", w, i), i, time.Second)
					clk.Advance(500 * time.Millisecond)
					c.Get(fmt.Sprintf("tmp_%d_%d", w, i/2))
				}
			},
			check: func(t *testing.T, c *cache.Cache, clk *atomicClock) {
				clk.Advance(2 * time.Minute)
				_, ok := c.Get("missing")
				assert.False(t, ok)
				assert.Equal(t, workers, c.Len(), "only long-lived entries survive the sweep")
				for w := range workers {
					v, ok := c.Get(fmt.Sprintf("keep_%d", w))
					assert.True(t, ok)
					assert.Equal(t, w, v)
				}
			},
		},
		{
			name: "prefix clears race with inserts",
			work: func(t *testing.T, c *cache.Cache, _ *atomicClock, w int) {
				for i := range rounds {
					c.Set(fmt.Sprintf("drop_%d_%d", w, i), i)
					c.Set(fmt.Sprintf("keep_%d_%d", w, i), i)
					if i%10 == 0 {
						c.Clear("drop_")
					}
				}
			},
			check: func(t *testing.T, c *cache.Cache, _ *atomicClock) {
				c.Clear("drop_")
				assert.Equal(t, workers*rounds, c.Len())
				assert.Equal(t, workers*rounds, c.Clear("keep_"))
				assert.Equal(t, 0, c.Len())
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clk := &atomicClock{}
			clk.nanos.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
			c := cache.New(cache.Options{
				Enabled:       true,
				DefaultTTL:    time.Hour,
				SweepInterval: time.Minute,
				Now:           clk.Now,
			})

			var wg sync.WaitGroup
			for w := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tc.work(t, c, clk, w)
				}()
			}
			wg.Wait()
			tc.check(t, c, clk)
		})
	}
}
