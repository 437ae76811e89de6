package notification

import "context"

// Transport defines the contract for the messaging endpoint that delivers
// rendered text. Implementations live in infra/ (e.g., Telegram Bot API).
type Transport interface {
	// Send delivers text to the destination chat. A *common.ThrottledError
	// return means the remote asked us to back off; any other error is a
	// non-retryable delivery failure.
	Send(ctx context.Context, chatID, text string, opts SendOptions) error
}

// RateGate defines the contract for the local send-budget gate.
// Implementations live in infra/ratelimit/.
type RateGate interface {
	// Acquire blocks until a send slot is available in the current window,
	// or returns the context error if the caller gives up first.
	Acquire(ctx context.Context) error
}
