package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/byigitt/visa-checker/internal/common"
	"github.com/byigitt/visa-checker/internal/domain/notification"
)

var _ notification.RateGate = (*WindowLimiter)(nil)

// DefaultWindow is the rolling window the Telegram send quota applies to.
const DefaultWindow = time.Minute

// WindowLimiter enforces at most quota sends per rolling window. Callers over
// budget are suspended until the window turns over. A background tick also
// resets the window on its own cadence so the counter never goes stale while
// no sends happen; whichever reset fires first establishes the new window.
type WindowLimiter struct {
	quota  int
	window time.Duration

	mu          sync.Mutex
	count       int
	windowStart time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewWindowLimiter creates a limiter allowing quota sends per window and
// starts its background reset tick. Call Shutdown to stop the tick.
func NewWindowLimiter(quota int, window time.Duration) (*WindowLimiter, error) {
	if quota <= 0 {
		return nil, common.NewValidationError(fmt.Sprintf("rate limit quota must be positive, got %d", quota))
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &WindowLimiter{
		quota:       quota,
		window:      window,
		windowStart: time.Now(),
		stop:        make(chan struct{}),
	}

	go l.resetLoop()

	return l, nil
}

// resetLoop clears the window every tick, independent of Acquire traffic.
func (l *WindowLimiter) resetLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			l.count = 0
			l.windowStart = time.Now()
			l.mu.Unlock()
		}
	}
}

// Acquire claims one send slot. Under quota it increments the counter and
// returns immediately. At quota it suspends for the remainder of the window,
// then takes a slot in the fresh window. Waiters re-check the state after
// waking because the background tick may have already turned the window.
func (l *WindowLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	for l.count >= l.quota {
		remaining := l.window - time.Since(l.windowStart)
		if remaining <= 0 {
			l.count = 0
			l.windowStart = time.Now()
			break
		}

		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
		l.mu.Lock()
	}
	l.count++
	l.mu.Unlock()
	return nil
}

// Snapshot reports the current window state for the status API.
func (l *WindowLimiter) Snapshot() (count int, windowStart time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, l.windowStart
}

// Shutdown cancels the background reset tick. Acquire must not be called
// after Shutdown.
func (l *WindowLimiter) Shutdown() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}
