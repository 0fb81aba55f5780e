package wspulse

import (
	"net/url"

	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed   = errors.New("connection has been closed")
	ErrCannotConnect      = errors.New("connection cannot be established")
	ErrTerminated         = errors.New("session terminated")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrNoConnection       = errors.New("no active connection")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrEncode             = errors.New("payload encode failure")
	ErrDecode             = errors.New("payload decode failure")
)

// reconnectExhaustedError marks the retry budget as spent while keeping the
// last dial error in the chain, so errors.Is matches both
// ErrReconnectExhausted and the underlying cause.
type reconnectExhaustedError struct {
	cause error
}

func (e reconnectExhaustedError) Error() string {
	return ErrReconnectExhausted.Error() + ": " + e.cause.Error()
}

func (e reconnectExhaustedError) Unwrap() error { return e.cause }

func (e reconnectExhaustedError) Is(target error) bool {
	return target == ErrReconnectExhausted
}

func wrapReconnectExhausted(cause error) error {
	if cause == nil {
		return ErrReconnectExhausted
	}
	return reconnectExhaustedError{cause: cause}
}

// ErrUnrecoverableConnection marks a dial failure that retrying cannot fix,
// such as a rejected handshake. Dial error adapters return it to make the
// reconnect loop give up early.
type ErrUnrecoverableConnection struct {
	err error
	url url.URL
}

func (e ErrUnrecoverableConnection) Error() string {
	return fmt.Sprintf("unrecoverable connection error: %s to %s", e.err, e.url.String())
}

func (e ErrUnrecoverableConnection) Unwrap() error { return e.err }

func WrapErrorUnrecoverableConnection(err error, url url.URL) *ErrUnrecoverableConnection {
	if err == nil {
		return nil
	}
	return &ErrUnrecoverableConnection{
		err: err,
		url: url,
	}
}
