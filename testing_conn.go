package wspulse

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// fakeConn is a function-field test double for Conn. Nil fields default to
// succeed (writes, close) or block until cancelled (reads).
type fakeConn struct {
	WriteFrameFunc func(f Frame) error
	ReadFrameFunc  func(ctx context.Context) (Frame, error)
	CloseFunc      func() error
}

func (c *fakeConn) WriteFrame(f Frame) error {
	if c.WriteFrameFunc != nil {
		return c.WriteFrameFunc(f)
	}
	return nil
}

func (c *fakeConn) ReadFrame(ctx context.Context) (Frame, error) {
	if c.ReadFrameFunc != nil {
		return c.ReadFrameFunc(ctx)
	}
	return noopConn{}.ReadFrame(ctx)
}

func (c *fakeConn) Close() error {
	if c.CloseFunc != nil {
		return c.CloseFunc()
	}
	return nil
}

// fakeDialer is a function-field test double for Dialer.
type fakeDialer struct {
	OpenFunc func(ctx context.Context) (Conn, error)
}

func (d *fakeDialer) Open(ctx context.Context) (Conn, error) {
	return d.OpenFunc(ctx)
}

// mockDialer is the testify-style double for expectation-driven tests.
type mockDialer struct {
	mock.Mock
}

func (m *mockDialer) Open(ctx context.Context) (Conn, error) {
	args := m.Called(ctx)
	conn, _ := args.Get(0).(Conn)
	return conn, args.Error(1)
}
