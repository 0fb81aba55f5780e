package wspulse

import (
	"context"
)

type (
	// Conn is a live, exclusively-owned transport handle: a bidirectional
	// stream of discrete frames. The session controller is its sole owner and
	// closes it on every path out of the connected state.
	Conn interface {
		// WriteFrame writes one frame. Callers must serialize access; the
		// session does so through a single write mutex shared with the
		// liveness scheduler.
		WriteFrame(f Frame) error

		// ReadFrame reads one frame, control frames included.
		ReadFrame(ctx context.Context) (Frame, error)

		// Close releases the handle. Safe to call more than once.
		Close() error
	}

	// Dialer opens transport handles. Variant implementations swap a real
	// WebSocket engine for test doubles.
	Dialer interface {
		Open(ctx context.Context) (Conn, error)
	}

	// DialerFunc adapts a plain function to the Dialer interface.
	DialerFunc func(ctx context.Context) (Conn, error)
)

func (f DialerFunc) Open(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Endpoint identifies the remote session target and its retry budget.
// Immutable after construction.
type Endpoint struct {
	Address     string
	MaxAttempts int
}
