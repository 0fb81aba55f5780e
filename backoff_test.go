package wspulse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelayExponential(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 10, BaseDelay: time.Second}

	assert.Equal(t, time.Duration(0), p.NextDelay(0))
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 8*time.Second, p.NextDelay(4))
}

func TestNextDelayNonDecreasing(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 64, BaseDelay: 250 * time.Millisecond}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 64; attempt++ {
		d := p.NextDelay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, maxBackoffDelay)
		prev = d
	}
}

func TestExhausted(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 3}

	assert.False(t, p.Exhausted(1))
	assert.False(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(4))
}

func TestReconnectExactAttemptCount(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	attempts := 0
	_, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		attempts++
		return nil, errors.New("refused")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReconnectExhausted))
	assert.Equal(t, 3, attempts)
}

func TestReconnectZeroBudgetSingleAttempt(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 0, BaseDelay: time.Second}

	attempts := 0
	start := time.Now()
	_, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		attempts++
		return nil, errors.New("refused")
	})

	require.True(t, errors.Is(err, ErrReconnectExhausted))
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "no backoff sleep expected")
}

func TestReconnectSucceedsMidBudget(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	attempts := 0
	conn, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("refused")
		}
		return NewNoopConn(), nil
	})

	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, 3, attempts)
}

func TestReconnectSleepsBetweenAttempts(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}

	start := time.Now()
	_, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		return nil, errors.New("refused")
	})

	require.Error(t, err)
	// waits 10ms + 20ms between the three attempts
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestReconnectCancellationSkipsBackoff(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 3, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	start := time.Now()
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.Reconnect(ctx, func(context.Context) (Conn, error) {
		attempts++
		return nil, errors.New("refused")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTerminated))
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second, "teardown must not wait out the backoff")
}

func TestReconnectStopsOnUnrecoverable(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	u, _ := url.Parse("wss://example.com/socket")

	attempts := 0
	_, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		attempts++
		return nil, WrapErrorUnrecoverableConnection(errors.New("handshake rejected"), *u)
	})

	require.True(t, errors.Is(err, ErrReconnectExhausted))
	assert.Equal(t, 1, attempts)

	var unrecoverable *ErrUnrecoverableConnection
	assert.True(t, errors.As(err, &unrecoverable), "the rejection stays inspectable through the exhaustion error")
}

func TestReconnectExhaustionKeepsLastCauseInChain(t *testing.T) {
	p := ReconnectPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	_, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		return nil, errors.Wrap(ErrCannotConnect, "connection refused")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReconnectExhausted))
	assert.True(t, errors.Is(err, ErrCannotConnect), "last dial error stays in the chain")
}

func TestReconnectOnAttemptObserver(t *testing.T) {
	var observed []int
	p := ReconnectPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnAttempt: func(attempt int, err error) {
			require.Error(t, err)
			observed = append(observed, attempt)
		},
	}

	_, err := p.Reconnect(context.Background(), func(context.Context) (Conn, error) {
		return nil, errors.New("refused")
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, observed)
}
