package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byigitt/visa-checker/internal/common"
)

func TestNewWindowLimiter_RejectsNonPositiveQuota(t *testing.T) {
	for _, quota := range []int{0, -1} {
		_, err := NewWindowLimiter(quota, time.Second)
		var validation *common.ValidationError
		require.ErrorAs(t, err, &validation, "quota %d", quota)
	}
}

func TestAcquire_UnderQuotaNeverWaits(t *testing.T) {
	l, err := NewWindowLimiter(3, time.Second)
	require.NoError(t, err)
	defer l.Shutdown()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	count, _ := l.Snapshot()
	assert.Equal(t, 3, count)
}

func TestAcquire_OverQuotaWaitsOutTheWindow(t *testing.T) {
	window := 400 * time.Millisecond
	l, err := NewWindowLimiter(2, window)
	require.NoError(t, err)
	defer l.Shutdown()

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	waited := time.Since(start)

	assert.GreaterOrEqual(t, waited, 250*time.Millisecond, "third acquire must wait for the window to turn")
	assert.Less(t, waited, 2*window, "wait must not exceed one window by much")

	// The background tick may land right after the waiter claimed its slot,
	// so the counter is either 1 (waiter's slot) or 0 (tick re-anchored).
	count, _ := l.Snapshot()
	assert.LessOrEqual(t, count, 1)
}

func TestBackgroundTick_ResetsIdleCounter(t *testing.T) {
	window := 150 * time.Millisecond
	l, err := NewWindowLimiter(5, window)
	require.NoError(t, err)
	defer l.Shutdown()

	require.NoError(t, l.Acquire(context.Background()))
	count, firstStart := l.Snapshot()
	require.Equal(t, 1, count)

	// No acquires at all; the tick alone must clear the window.
	time.Sleep(window + 100*time.Millisecond)

	count, newStart := l.Snapshot()
	assert.Equal(t, 0, count)
	assert.True(t, newStart.After(firstStart), "tick must re-anchor the window start")
}

func TestAcquire_ConcurrentBurst(t *testing.T) {
	const (
		quota   = 3
		callers = 10
	)
	window := 500 * time.Millisecond
	l, err := NewWindowLimiter(quota, window)
	require.NoError(t, err)
	defer l.Shutdown()

	var immediate atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			if err := l.Acquire(context.Background()); err != nil {
				t.Error(err)
				return
			}
			if time.Since(start) < 100*time.Millisecond {
				immediate.Add(1)
			}
		}()
	}

	// Give the burst time to settle, then check no overshoot.
	time.Sleep(50 * time.Millisecond)
	count, _ := l.Snapshot()
	assert.LessOrEqual(t, count, quota, "counter must never exceed quota right after the burst")

	wg.Wait()
	assert.Equal(t, int64(quota), immediate.Load(), "exactly quota callers proceed without waiting")
}

func TestAcquire_ExpiredWindowResetsWithoutWaiting(t *testing.T) {
	window := 200 * time.Millisecond
	l, err := NewWindowLimiter(1, window)
	require.NoError(t, err)
	defer l.Shutdown()

	require.NoError(t, l.Acquire(context.Background()))
	time.Sleep(window + 50*time.Millisecond)

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "expired window must reset immediately")
}

func TestAcquire_ContextCancelledWhileWaiting(t *testing.T) {
	l, err := NewWindowLimiter(1, time.Minute)
	require.NoError(t, err)
	defer l.Shutdown()

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdown_StopsBackgroundTick(t *testing.T) {
	window := 100 * time.Millisecond
	l, err := NewWindowLimiter(5, window)
	require.NoError(t, err)

	require.NoError(t, l.Acquire(context.Background()))
	l.Shutdown()
	l.Shutdown() // idempotent

	time.Sleep(window + 100*time.Millisecond)

	count, _ := l.Snapshot()
	assert.Equal(t, 1, count, "no tick reset after shutdown")
}
