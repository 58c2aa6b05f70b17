package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// errListenerClosed marks a listener that stopped serving without a
// daemon shutdown, e.g. the socket was torn down underneath us.
var errListenerClosed = errors.New("listener closed unexpectedly")

// rebindPause is the wait between a failed rebind and the next attempt.
// Rebinds after a listener failure are immediate; only a rebind that
// itself fails waits.
const rebindPause = 500 * time.Millisecond

// Supervisor keeps the signal listener alive for as long as the daemon
// runs. The policy is reactive: every observed listener failure is
// answered with one rebind of the same configured endpoint, and a failed
// rebind counts as a new failure.
type Supervisor struct {
	listener *SignalListener
	metrics  *Metrics
	pause    time.Duration
}

// NewSupervisor wraps an already-bound listener.
func NewSupervisor(listener *SignalListener, metrics *Metrics) *Supervisor {
	return &Supervisor{
		listener: listener,
		metrics:  metrics,
		pause:    rebindPause,
	}
}

// Run serves the listener until the context is canceled, rebinding after
// every failure. It returns only on shutdown.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		err := s.listener.Serve(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errListenerClosed
		}

		slog.Error("signal listener failed", "error", err)
		s.metrics.RecordError("listener", err.Error(), "")
		s.listener.Close()

		s.metrics.ListenerRebinds.Add(1)
		if err := s.listener.Bind(); err != nil {
			slog.Error("listener rebind failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pause):
			}
			continue
		}

		slog.Info("signal listener rebound", "addr", s.listener.Addr().String())
	}
}
