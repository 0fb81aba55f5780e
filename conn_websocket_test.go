package wspulse

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newTestDialer(t *testing.T, adapter DialErrorAdapter) *WebsocketDialer {
	t.Helper()
	repo, err := NewStaticDialParamsRepo(NopLogger(), "wss://example.com/ws")
	require.NoError(t, err)
	return NewWebsocketDialer(nil, repo, NopLogger(), adapter)
}

func TestHandleDialErrorRateLimited(t *testing.T) {
	d := newTestDialer(t, nil)

	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       io.NopCloser(strings.NewReader("slow down")),
	}

	err := d.handleDialError(nil, resp, errors.New("bad handshake"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimit))
	assert.Contains(t, err.Error(), "slow down")
}

func TestHandleDialErrorNetworkFailure(t *testing.T) {
	d := newTestDialer(t, nil)

	err := d.handleDialError(nil, nil, errors.New("connection refused"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCannotConnect))
}

func TestHandleDialErrorSuccess(t *testing.T) {
	d := newTestDialer(t, nil)
	assert.NoError(t, d.handleDialError(&websocket.Conn{}, &http.Response{StatusCode: http.StatusSwitchingProtocols}, nil))
}

func TestHandleDialErrorAdapterOverride(t *testing.T) {
	custom := errors.New("custom classification")
	d := newTestDialer(t, func(*websocket.Conn, *http.Response, error) error {
		return custom
	})

	err := d.handleDialError(nil, nil, errors.New("whatever"))
	assert.Equal(t, custom, err)
}

func TestStaticDialParamsRepo(t *testing.T) {
	repo, err := NewStaticDialParamsRepo(NopLogger(), "wss://stream.example.com/v1?token=abc")
	require.NoError(t, err)

	p, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.example.com/v1?token=abc", p.URL.String())
	assert.NotNil(t, p.Header)
}

// startSilentServer serves WebSocket upgrades on a loopback listener and then
// holds every connection open without sending anything.
func startSilentServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hold := make(chan struct{})
	upgrader := websocket.FastHTTPUpgrader{}
	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			_ = upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
				<-hold
				_ = conn.Close()
			})
		},
	}
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		close(hold)
		_ = srv.Shutdown()
	})

	return "ws://" + ln.Addr().String()
}

func TestReadFrameUnblocksOnContextCancel(t *testing.T) {
	addr := startSilentServer(t)

	repo, err := NewStaticDialParamsRepo(NopLogger(), addr)
	require.NoError(t, err)

	d := NewWebsocketDialer(nil, repo, NopLogger(), nil)
	conn, err := d.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = conn.ReadFrame(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTerminated))
	assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the blocked read")
}

func TestStaticDialParamsRepoInvalidAddress(t *testing.T) {
	_, err := NewStaticDialParamsRepo(NopLogger(), "wss://exa mple.com/%zz")
	require.Error(t, err)
}
