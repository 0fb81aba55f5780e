package wspulse

import (
	"sync"
	"time"

	"context"
	"io"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/fasthttp/websocket"
)

// writeWait bounds how long a single frame write may block on the wire.
const writeWait = time.Second

type (
	// DialErrorAdapter lets callers override how handshake failures are
	// classified, e.g. to map an exchange-specific rejection body onto
	// ErrUnrecoverableConnection.
	DialErrorAdapter func(*websocket.Conn, *http.Response, error) error

	// WebsocketDialer opens wsConn handles over fasthttp/websocket.
	WebsocketDialer struct {
		dialer      *websocket.Dialer
		paramsRepo  DialParamsRepo
		logger      Logger
		onDialError DialErrorAdapter
	}
)

func NewWebsocketDialer(
	dialer *websocket.Dialer,
	paramsRepo DialParamsRepo,
	logger Logger,
	onDialError DialErrorAdapter,
) *WebsocketDialer {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebsocketDialer{
		dialer:      dialer,
		paramsRepo:  paramsRepo,
		logger:      logger.WithField("net", "ws_dialer"),
		onDialError: onDialError,
	}
}

// Open performs one WebSocket handshake and returns the live handle.
func (d *WebsocketDialer) Open(ctx context.Context) (Conn, error) {
	p, err := d.paramsRepo.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(ErrCannotConnect, err.Error())
	}

	conn, resp, err := d.dialer.DialContext(ctx, p.URL.String(), p.Header)

	if err = d.handleDialError(conn, resp, err); err != nil {
		d.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return nil, err
	}

	d.logger.Debugf("success opening connection to %s", p.URL.String())

	return newWsConn(conn, d.logger), nil
}

func (d *WebsocketDialer) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if d.onDialError != nil {
		return d.onDialError(conn, resp, err)
	}

	// HTTP rejections first: some servers rate-limit the handshake itself.
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, rerr := io.ReadAll(resp.Body)
			if rerr == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}

// wsConn adapts a *websocket.Conn to the Conn interface. Control frames are
// surfaced as readable frames instead of being swallowed by the engine, so
// the session sees pings, pongs and close reasons.
type wsConn struct {
	conn      *websocket.Conn
	logger    Logger
	control   chan Frame
	closeOnce sync.Once
}

func newWsConn(conn *websocket.Conn, logger Logger) *wsConn {
	w := &wsConn{
		conn:    conn,
		logger:  logger.WithField("net", "ws_connection"),
		control: make(chan Frame, 8),
	}

	// Override the engine's control handlers so control frames reach the
	// session through ReadFrame.
	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		w.pushControl(NewPingFrame([]byte(appData)))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		w.logger.Debugln("<= [PONG]")
		w.pushControl(NewPongFrame([]byte(appData)))
		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugln("<= [CLOSE]")
		w.pushControl(NewCloseFrame(code, []byte(text)))
		return nil
	})

	return w
}

func (w *wsConn) pushControl(f Frame) {
	select {
	case w.control <- f:
	default:
		w.logger.Warnf("control frame dropped: %s", f)
	}
}

// ReadFrame returns the next frame. Control frames queued by the engine's
// handlers are drained before blocking on the wire.
func (w *wsConn) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case f := <-w.control:
		return f, nil
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetReadDeadline(deadline)
	} else {
		_ = w.conn.SetReadDeadline(time.Time{})
	}

	// A blocked read cannot observe ctx on its own: expire the read deadline
	// on cancellation so ReadMessage returns. The post-read ctx check below
	// maps the resulting error to ErrTerminated.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = w.conn.SetReadDeadline(time.Now())
		case <-readDone:
		}
	}()

	messageType, bts, err := w.conn.ReadMessage()
	if err != nil {
		// A close handshake surfaces through the handler before the read
		// errors out; hand the close frame to the caller first.
		select {
		case f := <-w.control:
			return f, nil
		default:
		}

		if cerr := ctx.Err(); cerr != nil {
			return nil, errors.Wrap(ErrTerminated, cerr.Error())
		}

		w.logger.Errorf("error occurred on websocket read: %s", err)
		return nil, errors.Wrap(ErrConnectionClosed, err.Error())
	}

	switch messageType {
	case websocket.BinaryMessage:
		w.logger.Debugln("<= [BIN]")
		return NewBinaryFrame(bts), nil
	default:
		w.logger.Debugf("<= [DATA] %s", string(bts))
		return NewDataFrame(bts), nil
	}
}

// WriteFrame writes one frame with a bounded deadline. The caller serializes
// access; wsConn itself does not lock.
func (w *wsConn) WriteFrame(f Frame) error {
	deadline := time.Now().Add(writeWait)
	_ = w.conn.SetWriteDeadline(deadline)

	var err error

	switch f.Type() {
	case FramePing:
		w.logger.Debugln("=> [PING]")
		err = w.conn.WriteControl(websocket.PingMessage, f.Data(), deadline)
		if e, ok := err.(net.Error); ok && e.Temporary() {
			err = nil
		}
	case FramePong:
		w.logger.Debugln("=> [PONG]")
		err = w.conn.WriteControl(websocket.PongMessage, f.Data(), deadline)
	case FrameClose:
		w.logger.Debugln("=> [CLOSE]")
		err = w.conn.WriteControl(websocket.CloseMessage, f.Data(), deadline)
	case FrameBinary:
		w.logger.Debugf("=> [BIN] %d bytes", len(f.Data()))
		err = w.conn.WriteMessage(websocket.BinaryMessage, f.Data())
	default:
		w.logger.Debugf("=> [DATA] %s", f.Data())
		err = w.conn.WriteMessage(websocket.TextMessage, f.Data())
	}

	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseGoingAway,
			websocket.CloseAbnormalClosure,
		) {
			return ErrConnectionClosed
		}
		return errors.Wrap(ErrConnectionClosed, err.Error())
	}

	return nil
}

func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.conn.Close()
	})
	return err
}
