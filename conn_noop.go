package wspulse

import (
	"context"

	"github.com/pkg/errors"
)

// noopConn accepts every write and blocks reads until the context ends.
type noopConn struct{}

func (noopConn) WriteFrame(Frame) error { return nil }

func (noopConn) ReadFrame(ctx context.Context) (Frame, error) {
	<-ctx.Done()
	return nil, errors.Wrap(ErrTerminated, ctx.Err().Error())
}

func (noopConn) Close() error { return nil }

// NewNoopConn returns a handle that goes nowhere.
func NewNoopConn() Conn { return noopConn{} }

// NewNoopDialer returns a Dialer whose handles go nowhere.
func NewNoopDialer() Dialer {
	return DialerFunc(func(context.Context) (Conn, error) {
		return NewNoopConn(), nil
	})
}
