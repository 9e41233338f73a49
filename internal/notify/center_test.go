package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/playground/internal/domain"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type levelCounter map[string]int

func (l levelCounter) NotificationEmitted(level string) { l[level]++ }

func newTestCenter(t *testing.T) (*Center, *clock, levelCounter) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	counter := levelCounter{}
	c := NewCenter(Options{Now: clk.Now, Recorder: counter})
	t.Cleanup(c.Close)
	return c, clk, counter
}

func TestCenter_PublishAndExpire(t *testing.T) {
	c, clk, counter := newTestCenter(t)

	n := c.Publish(domain.NotificationSuccess, "Inbox cleared")
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, n.CreatedAt.Add(DefaultTTL), n.ExpiresAt)
	require.Len(t, c.Active(), 1)

	clk.Advance(3999 * time.Millisecond)
	assert.Len(t, c.Active(), 1)

	clk.Advance(time.Millisecond)
	assert.Empty(t, c.Active(), "四秒后自动消失")
	assert.Equal(t, 1, counter[string(domain.NotificationSuccess)])
}

func TestCenter_ActiveNewestFirst(t *testing.T) {
	c, clk, _ := newTestCenter(t)

	c.Notify(domain.NotificationInfo, "first")
	clk.Advance(time.Second)
	c.Notify(domain.NotificationWarning, "second")
	clk.Advance(time.Second)
	c.Notify(domain.NotificationSuccess, "third")

	active := c.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "third", active[0].Message)
	assert.Equal(t, "first", active[2].Message)

	t.Run("提前移除", func(t *testing.T) {
		c.Dismiss(active[0].ID)
		assert.Len(t, c.Active(), 2)
	})
}

func TestCenter_Subscribe(t *testing.T) {
	c, _, _ := newTestCenter(t)

	var got []string
	unsubscribe := c.Subscribe(func(n domain.Notification) { got = append(got, n.Message) })

	c.Notify(domain.NotificationInfo, "hello")
	unsubscribe()
	c.Notify(domain.NotificationInfo, "ignored")

	assert.Equal(t, []string{"hello"}, got)
}

func TestCenter_Capacity(t *testing.T) {
	clk := &clock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	c := NewCenter(Options{Now: clk.Now, Capacity: 2})
	t.Cleanup(c.Close)

	for _, msg := range []string{"a", "b", "c"} {
		c.Notify(domain.NotificationInfo, msg)
		clk.Advance(10 * time.Millisecond)
	}

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "c", active[0].Message)
	assert.Equal(t, "b", active[1].Message)
}
