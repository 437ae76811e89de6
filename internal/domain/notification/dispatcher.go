package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/byigitt/visa-checker/internal/common"
)

// Dispatcher orchestrates one notification: render, acquire a slot in the
// local send budget, deliver via the transport, and absorb server-issued
// throttling by waiting the advertised delay and re-sending.
type Dispatcher struct {
	transport Transport
	limiter   RateGate
	renderer  *Renderer
	chatID    string

	// maxThrottleRetries bounds the throttle-retry loop so a remote that
	// throttles forever cannot suspend the caller indefinitely. Zero or
	// negative means retry without bound.
	maxThrottleRetries int
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(transport Transport, limiter RateGate, renderer *Renderer, chatID string, maxThrottleRetries int) *Dispatcher {
	return &Dispatcher{
		transport:          transport,
		limiter:            limiter,
		renderer:           renderer,
		chatID:             chatID,
		maxThrottleRetries: maxThrottleRetries,
	}
}

// Notify renders and delivers one event.
//
// The boolean reports delivery: true on success, false on a non-throttling
// transport failure (logged, not retried) or after exhausting throttle
// retries. The error is reserved for local problems — a structurally invalid
// event or a cancelled context — which callers should treat as bugs rather
// than delivery outcomes.
func (d *Dispatcher) Notify(ctx context.Context, ev *Event) (bool, error) {
	start := time.Now()

	text, err := d.renderer.Render(ev)
	if err != nil {
		return false, fmt.Errorf("rendering notification: %w", err)
	}

	if err := d.limiter.Acquire(ctx); err != nil {
		return false, fmt.Errorf("acquiring send slot: %w", err)
	}

	opts := SendOptions{
		ParseMode:          ParseModeHTML,
		DisableLinkPreview: true,
	}

	// Throttle retries bypass the local rate gate: the remote has already
	// told us the authoritative wait, and counting the retry against our own
	// window would double-penalize the send.
	for attempt := 0; ; attempt++ {
		err := d.transport.Send(ctx, d.chatID, text, opts)
		if err == nil {
			slog.Info("notification delivered",
				"chat_id", d.chatID,
				"attempts", attempt+1,
				"duration", time.Since(start).Round(time.Millisecond),
			)
			return true, nil
		}

		var throttled *common.ThrottledError
		if !errors.As(err, &throttled) {
			slog.Error("notification delivery failed",
				"chat_id", d.chatID,
				"attempts", attempt+1,
				"error", err,
			)
			return false, nil
		}

		if d.maxThrottleRetries > 0 && attempt >= d.maxThrottleRetries {
			slog.Error("giving up after repeated throttling",
				"chat_id", d.chatID,
				"attempts", attempt+1,
				"last_retry_after", throttled.RetryAfter,
			)
			return false, nil
		}

		slog.Warn("throttled by remote, waiting before re-send",
			"chat_id", d.chatID,
			"retry_after", throttled.RetryAfter,
			"attempt", attempt+1,
		)

		select {
		case <-ctx.Done():
			return false, fmt.Errorf("waiting out throttle delay: %w", ctx.Err())
		case <-time.After(throttled.RetryAfter):
		}
	}
}
