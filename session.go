package wspulse

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// SessionState is the controller's position in the connection lifecycle.
type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session orchestrates the lifecycle of one persistent connection: it owns
// the single live transport handle (or its absence), drives the reconnect
// policy on failure, runs the liveness scheduler in the background, and moves
// payloads through the codec. All writes to the handle, application sends and
// liveness probes alike, are serialized through one mutex so frames never
// interleave mid-write.
type Session struct {
	endpoint     Endpoint
	dialer       Dialer
	policy       ReconnectPolicy
	keepAlive    *KeepAlive
	probeFactory ProbeFactory
	logger       Logger
	emitter      *EventEmitter[EventType, Event]

	// mu guards state, conn and attempt.
	mu      sync.Mutex
	state   SessionState
	conn    Conn
	attempt int

	// writeMu serializes every frame write on the live handle.
	writeMu sync.Mutex

	maintainCancel context.CancelFunc
	maintainDone   chan struct{}
}

// SessionOption customizes a session at construction.
type SessionOption func(*Session)

// WithLogger plugs in a logging backend. Defaults to NopLogger.
func WithLogger(l Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithProbeFactory replaces the default empty-ping liveness probe.
func WithProbeFactory(f ProbeFactory) SessionOption {
	return func(s *Session) { s.probeFactory = f }
}

// NewSession builds a session over the given transport dialer. The dialer is
// only ever invoked through the reconnect policy.
func NewSession(cfg Config, dialer Dialer, opts ...SessionOption) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dialer == nil {
		return nil, errors.New("session: dialer is required")
	}

	s := &Session{
		endpoint: cfg.Endpoint(),
		dialer:   dialer,
		policy: ReconnectPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.BaseDelay,
		},
		logger:  NopLogger(),
		emitter: NewEventEmitter[EventType, Event](),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithField("session", cfg.Address)

	if cfg.ProbeInterval > 0 {
		s.keepAlive = &KeepAlive{
			Interval: cfg.ProbeInterval,
			Probe:    s.probeFactory,
			Logger:   s.logger,
		}
	}

	s.policy.OnAttempt = func(attempt int, err error) {
		s.logger.Warnf("connect attempt %d/%d failed: %s", attempt, s.endpoint.MaxAttempts, err)
		s.noteAttempt(attempt)
	}

	return s, nil
}

// On registers a listener for a lifecycle event.
func (s *Session) On(event EventType, fn func(Event)) {
	s.emitter.On(event, fn)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempt returns the reconnect attempt count while reconnecting, zero
// otherwise.
func (s *Session) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Connect opens the transport handle, applying the reconnect policy: the
// initial dial is attempt one of the budget. On budget exhaustion the session
// terminates and stays terminated until Reset.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateConnected, StateReconnecting:
		s.mu.Unlock()
		return errors.Wrap(ErrCannotConnect, "session already "+s.state.String())
	case StateTerminated:
		s.mu.Unlock()
		return errors.Wrap(ErrTerminated, "explicit reset required")
	}
	s.state = StateConnecting
	s.mu.Unlock()

	return s.dialWithPolicy(ctx)
}

// dialWithPolicy runs the policy loop and settles the session into
// Connected, Disconnected (cancelled) or Terminated (exhausted).
func (s *Session) dialWithPolicy(ctx context.Context) error {
	conn, err := s.policy.Reconnect(ctx, s.dialer.Open)
	if err != nil {
		if errors.Is(err, ErrReconnectExhausted) {
			s.transition(StateTerminated, EventTerminated, err)
		} else {
			s.transition(StateDisconnected, EventDisconnected, err)
		}
		return err
	}

	s.adopt(conn)
	return nil
}

// noteAttempt records a failed dial: every failure after the first moves the
// session into Reconnecting with the attempt count.
func (s *Session) noteAttempt(attempt int) {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	s.state = StateReconnecting
	s.attempt = attempt
	s.mu.Unlock()

	s.emitter.Emit(EventReconnecting, Event{
		Type:    EventReconnecting,
		State:   StateReconnecting,
		Attempt: attempt,
	})
}

// adopt installs a fresh handle and resets the attempt counter.
func (s *Session) adopt(conn Conn) {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.state = StateConnected
	s.attempt = 0
	s.mu.Unlock()

	s.logger.Infof("connected to %s", s.endpoint.Address)
	s.emitter.Emit(EventConnected, Event{Type: EventConnected, State: StateConnected})
}

func (s *Session) transition(state SessionState, event EventType, err error) {
	s.mu.Lock()
	s.state = state
	attempt := s.attempt
	s.mu.Unlock()

	s.logger.Infof("session state -> %s", state)
	s.emitter.Emit(event, Event{Type: event, State: state, Attempt: attempt, Err: err})
}

// writeFrame is the single choke point for every write on the live handle.
// The liveness scheduler borrows it per probe, so probe frames and
// application frames are totally ordered.
func (s *Session) writeFrame(f Frame) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return errors.Wrap(ErrNoConnection, "write "+f.String())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteFrame(f)
}

// Send writes an already-encoded message as one binary frame. A write
// failure surfaces to the caller and does not by itself trigger
// reconnection.
func (s *Session) Send(msg Message) error {
	if err := s.writeFrame(NewBinaryFrame(msg.Payload)); err != nil {
		return errors.Wrap(err, "send")
	}
	return nil
}

// SendValue encodes v under the given format and sends it.
func (s *Session) SendValue(v any, format PayloadFormat) error {
	msg, err := EncodeMessage(v, format)
	if err != nil {
		return err
	}
	return s.Send(msg)
}

// ConnectAndSend opens the session and delivers the first payload in one
// call.
func (s *Session) ConnectAndSend(ctx context.Context, v any, format PayloadFormat) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.SendValue(v, format)
}

// Receive reads one frame from the handle. Control frames are consumed, not
// surfaced: a ping is answered with a pong and yields (nil, nil), a pong
// yields (nil, nil). A close frame closes the handle and returns
// ErrConnectionClosed; reconnecting is then the caller's decision. Data
// frames come back as a Message with FormatUnknown, since the wire carries no
// format tag.
func (s *Session) Receive(ctx context.Context) (*Message, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil, errors.Wrap(ErrNoConnection, "receive")
	}

	f, err := conn.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}

	switch f.Type() {
	case FramePing:
		s.logger.Debugln("ping received, replying with pong")
		if werr := s.writeFrame(NewPongFrame(f.Data())); werr != nil {
			s.logger.Warnf("pong reply failed: %s", werr)
		}
		return nil, nil
	case FramePong:
		s.logger.Debugln("pong received")
		return nil, nil
	case FrameClose:
		s.logger.Infof("close received: %s", f)
		s.dropConn()
		return nil, errors.Wrap(ErrConnectionClosed, f.String())
	default:
		return &Message{Format: FormatUnknown, Payload: f.Data()}, nil
	}
}

// dropConn releases the handle and settles into Disconnected.
func (s *Session) dropConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	if s.state == StateConnected {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.emitter.Emit(EventDisconnected, Event{Type: EventDisconnected, State: StateDisconnected})
}

// Maintain starts the liveness scheduler against the current handle as a
// background task bound to ctx and the session's lifetime. When a probe
// fails, the stale handle is closed and the reconnect policy re-runs; on
// renewed success probing resumes against the new handle with the attempt
// count reset. A session without a probe interval ignores Maintain.
func (s *Session) Maintain(ctx context.Context) {
	if s.keepAlive == nil {
		s.logger.Debugln("liveness probing disabled")
		return
	}

	s.mu.Lock()
	if s.maintainCancel != nil {
		s.mu.Unlock()
		return
	}
	mctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.maintainCancel = cancel
	s.maintainDone = done
	s.mu.Unlock()

	go s.maintainLoop(mctx, done)
}

func (s *Session) maintainLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := s.keepAlive.Run(ctx, s.writeFrame)
		if err == nil || ctx.Err() != nil {
			// cancelled: session teardown, not a liveness failure
			return
		}

		s.logger.Warnf("liveness failure, reconnecting: %s", err)
		if rerr := s.redial(ctx); rerr != nil {
			s.logger.Errorf("reconnect after liveness failure gave up: %s", rerr)
			return
		}
	}
}

// redial closes the stale handle and re-enters the reconnect path with the
// attempt count starting over at one.
func (s *Session) redial(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return ErrTerminated
	}
	conn := s.conn
	s.conn = nil
	s.state = StateReconnecting
	s.attempt = 1
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.emitter.Emit(EventReconnecting, Event{
		Type:    EventReconnecting,
		State:   StateReconnecting,
		Attempt: 1,
	})

	return s.dialWithPolicy(ctx)
}

// Disconnect cancels the maintain task, joins it, then releases the handle.
// The handle is dropped even if its close fails. A terminated session stays
// terminated.
func (s *Session) Disconnect() {
	s.mu.Lock()
	cancel := s.maintainCancel
	done := s.maintainDone
	s.maintainCancel = nil
	s.maintainDone = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	terminated := s.state == StateTerminated
	if !terminated {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Warnf("close failed: %s", err)
		}
	}

	s.logger.Infoln("disconnected")
	if !terminated {
		s.emitter.Emit(EventDisconnected, Event{Type: EventDisconnected, State: StateDisconnected})
	}
}

// Reset moves a terminated session back to Disconnected so Connect may be
// called again. No-op in any other state.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.state != StateTerminated {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.attempt = 0
	s.mu.Unlock()

	s.logger.Infoln("session reset")
}
