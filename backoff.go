package wspulse

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
)

// maxBackoffDelay caps the exponential growth so long outages do not push
// single waits past any useful horizon.
const maxBackoffDelay = 5 * time.Minute

// OpenFunc opens one transport handle. The reconnect loop calls it once per
// attempt and holds no transport state between calls.
type OpenFunc func(ctx context.Context) (Conn, error)

// ReconnectPolicy bounds the retry behavior of a session: how many connection
// attempts are permitted and how long to back off between them. The delay law
// is exponential, BaseDelay * 2^(attempt-1).
type ReconnectPolicy struct {
	// MaxAttempts is the total attempt budget. Zero means no retry: a single
	// attempt is made and failure is terminal.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// OnAttempt, when set, observes every failed attempt before the backoff
	// sleep. Used for logging and state transitions.
	OnAttempt func(attempt int, err error)
}

// NextDelay returns the backoff before the attempt following `attempt`
// (1-based). Non-decreasing in the attempt count.
func (p ReconnectPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}

	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt-1))
	if d >= float64(maxBackoffDelay) {
		return maxBackoffDelay
	}
	return time.Duration(d)
}

// Exhausted reports whether the attempt budget no longer covers `attempt`.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}

// Reconnect drives the retry loop: call open, return the handle on the first
// success, otherwise sleep NextDelay and try again until the budget is spent.
// An always-failing opener is called exactly MaxAttempts times. The sleeps
// select on ctx so cancellation never waits out a backoff. Unrecoverable dial
// failures stop the loop immediately.
func (p ReconnectPolicy) Reconnect(ctx context.Context, open OpenFunc) (Conn, error) {
	budget := p.MaxAttempts
	if budget < 1 {
		// A zero retry budget still permits the initial attempt.
		budget = 1
	}

	var lastErr error

	for attempt := 1; attempt <= budget; attempt++ {
		conn, err := open(ctx)
		if err == nil {
			return conn, nil
		}

		lastErr = err
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}

		var unrecoverable *ErrUnrecoverableConnection
		if errors.As(err, &unrecoverable) {
			return nil, wrapReconnectExhausted(err)
		}

		if attempt == budget {
			break
		}

		if err := sleepContext(ctx, p.NextDelay(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, wrapReconnectExhausted(lastErr)
}

// sleepContext waits d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return errors.Wrap(ErrTerminated, ctx.Err().Error())
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Wrap(ErrTerminated, ctx.Err().Error())
	case <-timer.C:
		return nil
	}
}
