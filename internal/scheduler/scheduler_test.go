package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/playground/internal/loop"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_After(t *testing.T) {
	m := NewManual(epoch)
	fired := 0
	m.After("once", 2*time.Second, func() { fired++ })

	assert.Equal(t, 1, m.Pending("once"))

	m.Advance(1999 * time.Millisecond)
	assert.Equal(t, 0, fired)

	m.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Pending("once"))

	m.Advance(time.Hour)
	assert.Equal(t, 1, fired)
}

func TestManual_Every(t *testing.T) {
	m := NewManual(epoch)
	var at []time.Duration
	m.Every("tick", time.Second, func() { at = append(at, m.Now().Sub(epoch)) })

	m.Advance(3500 * time.Millisecond)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, at)
	assert.Equal(t, epoch.Add(3500*time.Millisecond), m.Now())
	assert.Equal(t, 1, m.Pending("tick"))
}

func TestManual_EveryFunc(t *testing.T) {
	m := NewManual(epoch)
	intervals := []time.Duration{time.Second, 3 * time.Second, 2 * time.Second}
	i := 0
	next := func() time.Duration {
		d := intervals[i%len(intervals)]
		i++
		return d
	}

	var at []time.Duration
	m.EveryFunc("jitter", next, func() { at = append(at, m.Now().Sub(epoch)) })
	m.Advance(6 * time.Second)

	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second, 6 * time.Second}, at)
}

func TestManual_OrderAndCancel(t *testing.T) {
	m := NewManual(epoch)
	var order []string

	m.After("b", 2*time.Second, func() { order = append(order, "b") })
	m.After("a", time.Second, func() { order = append(order, "a") })
	m.After("c", 2*time.Second, func() { order = append(order, "c") })
	h := m.After("d", time.Second, func() { order = append(order, "d") })

	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel(), "second cancel reports nothing pending")

	m.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, m.Pending(""))
}

func TestManual_CancelInsideCallback(t *testing.T) {
	m := NewManual(epoch)
	fired := 0
	var h Handle
	h = m.Every("self-cancel", time.Second, func() {
		fired++
		if fired == 2 {
			h.Cancel()
		}
	})

	m.Advance(10 * time.Second)
	assert.Equal(t, 2, fired)
	assert.Equal(t, 0, m.Pending("self-cancel"))
}

func TestManual_ScheduleFromCallback(t *testing.T) {
	m := NewManual(epoch)
	var order []string

	m.After("outer", time.Second, func() {
		order = append(order, "outer")
		m.After("inner", time.Second, func() { order = append(order, "inner") })
	})

	m.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"outer"}, order)

	m.Advance(time.Second)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func newTimer(t *testing.T) (*Timer, *loop.Loop) {
	t.Helper()
	l := loop.New(16, nil)
	l.Start(context.Background())
	s := NewTimer(l, nil)
	t.Cleanup(func() {
		s.Stop()
		l.Stop()
	})
	return s, l
}

func TestTimer_After(t *testing.T) {
	s, _ := newTimer(t)

	done := make(chan struct{})
	s.After("once", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}

	require.Eventually(t, func() bool { return s.Pending("once") == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimer_EveryAndCancel(t *testing.T) {
	s, l := newTimer(t)

	var fired atomic.Int32
	h := s.Every("tick", 5*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Pending("tick"))

	require.NoError(t, l.Do(context.Background(), func() { h.Cancel() }))
	assert.Equal(t, 0, s.Pending("tick"))

	// 取消后不会再有回调执行
	snapshot := fired.Load()
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, snapshot, fired.Load())
}

func TestTimer_CancelBeforeFire(t *testing.T) {
	s, _ := newTimer(t)

	var fired atomic.Bool
	h := s.After("never", 20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, h.Cancel())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Equal(t, 0, s.Pending(""))
}

func TestNextFire(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantDue   time.Time
		wantDelay time.Duration
	}{
		{"准时", epoch, epoch.Add(time.Second), time.Second},
		{"回调耗时不累积", epoch.Add(300 * time.Millisecond), epoch.Add(time.Second), 700 * time.Millisecond},
		{"落后超过一个周期", epoch.Add(2500 * time.Millisecond), epoch.Add(time.Second), minInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, delay := nextFire(epoch, time.Second, tt.now)
			assert.Equal(t, tt.wantDue, due)
			assert.Equal(t, tt.wantDelay, delay)
		})
	}
}

func TestTimer_EveryKeepsSchedule(t *testing.T) {
	s, l := newTimer(t)

	const period = 10 * time.Millisecond
	var fired atomic.Int32
	h := s.Every("tick", period, func() {
		time.Sleep(4 * time.Millisecond)
		fired.Add(1)
	})
	job := h.(*timerJob)

	s.mu.Lock()
	first := job.due
	s.mu.Unlock()

	require.Eventually(t, func() bool { return fired.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, l.Do(context.Background(), func() { h.Cancel() }))

	s.mu.Lock()
	defer s.mu.Unlock()
	// 计划时间严格按周期推进，与回调耗时无关
	assert.Equal(t, first.Add(time.Duration(fired.Load())*period), job.due)
}
