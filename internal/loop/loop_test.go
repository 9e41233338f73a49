package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(16, nil)
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func TestLoop_PreservesOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, l.Submit(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_SerializesConcurrentSubmitters(t *testing.T) {
	l := startLoop(t)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = l.Do(context.Background(), func() { counter++ })
			}
		}()
	}
	wg.Wait()

	var final int
	require.NoError(t, l.Do(context.Background(), func() { final = counter }))
	assert.Equal(t, 1000, final)
}

func TestLoop_RecoversPanic(t *testing.T) {
	l := startLoop(t)

	recovered := make(chan interface{}, 1)
	l.OnPanic(func(r interface{}) { recovered <- r })

	require.NoError(t, l.Do(context.Background(), func() { panic("boom") }))

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic callback not invoked")
	}

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran, "loop should keep running after a panic")
}

func TestLoop_Stopped(t *testing.T) {
	l := New(1, nil)
	l.Start(context.Background())
	l.Stop()

	assert.ErrorIs(t, l.Submit(func() {}), ErrStopped)
	assert.False(t, l.TrySubmit(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestLoop_DoHonoursContext(t *testing.T) {
	l := startLoop(t)

	release := make(chan struct{})
	require.NoError(t, l.Submit(func() { <-release }))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
