package wspulse

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ProbeFactory builds the liveness-probe frame sent on each tick. Some peers
// require an application-level heartbeat payload instead of an empty ping.
type ProbeFactory func() Frame

// KeepAlive probes a transport handle on a fixed cadence. It only ever
// borrows the handle for the duration of one probe write and never repairs
// the connection itself; that responsibility stays with the session.
type KeepAlive struct {
	Interval time.Duration
	Probe    ProbeFactory
	Logger   Logger
}

// Run sends one probe per tick through write until the first failure or
// until ctx is cancelled. Returns nil on cancellation and the wrapped write
// error on failure, immediately and without retrying.
func (k KeepAlive) Run(ctx context.Context, write func(Frame) error) error {
	if k.Interval <= 0 {
		return errors.New("keep alive: interval must be positive")
	}

	probe := k.Probe
	if probe == nil {
		probe = func() Frame { return NewPingFrame(nil) }
	}

	log := k.Logger
	if log == nil {
		log = NopLogger()
	}

	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := write(probe()); err != nil {
				log.Errorf("liveness probe failed: %s", err)
				return errors.Wrap(err, "liveness probe")
			}
			log.Debugln("liveness probe sent")
		}
	}
}
