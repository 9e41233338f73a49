package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, maxSize int) (*LocalCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLocalCache(maxSize, 4*time.Second, WithClock(clock.Now), WithCleanupInterval(0))
	t.Cleanup(c.Close)
	return c, clock
}

func TestLocalCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, 0)
	c.Set("a", 1, 0)
	c.Set("b", 2, 10*time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(4 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "到期即失效")

	_, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestLocalCache_Eviction(t *testing.T) {
	c, clock := newTestCache(t, 2)
	c.Set("a", 1, 0)
	clock.Advance(time.Second)
	c.Set("b", 2, 0)
	clock.Advance(time.Second)
	c.Set("c", 3, 0)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "最早过期的条目被淘汰")

	t.Run("覆盖已有键不触发淘汰", func(t *testing.T) {
		c.Set("c", 30, 0)
		assert.Equal(t, 2, c.Len())
		_, ok := c.Get("b")
		assert.True(t, ok)
	})
}

func TestLocalCache_EntriesAndPurge(t *testing.T) {
	c, clock := newTestCache(t, 0)
	c.Set("late", "x", 3*time.Second)
	c.Set("early", "y", time.Second)
	c.Set("never", "z", time.Hour)

	entries := c.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "early", entries[0].Key)
	assert.Equal(t, "never", entries[2].Key)

	clock.Advance(3 * time.Second)
	assert.Len(t, c.Entries(), 1)
	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
