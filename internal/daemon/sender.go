package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// ResolvePeerFunc returns the current signal target as host:port. It is
// either a static configured address or the most recent mDNS discovery.
type ResolvePeerFunc func() (string, error)

// SignalSender delivers the sleep signal to the peer. Every invocation
// opens a fresh short-lived TCP connection, writes the whole payload and
// closes; failed sends are logged, never retried. The next display edge
// tries again naturally.
type SignalSender struct {
	resolve     ResolvePeerFunc
	payload     string
	dialTimeout time.Duration
	metrics     *Metrics
}

// NewSignalSender creates a sender for the given payload.
func NewSignalSender(resolve ResolvePeerFunc, payload string, dialTimeout time.Duration, metrics *Metrics) *SignalSender {
	return &SignalSender{
		resolve:     resolve,
		payload:     payload,
		dialTimeout: dialTimeout,
		metrics:     metrics,
	}
}

// Send performs one signal delivery attempt.
func (s *SignalSender) Send(ctx context.Context) error {
	addr, err := s.resolve()
	if err != nil {
		s.metrics.SendFailures.Add(1)
		s.metrics.RecordError("resolve", err.Error(), "")
		slog.Warn("no signal target", "error", err)
		return err
	}

	dialer := &net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.metrics.SendFailures.Add(1)
		s.metrics.RecordError("dial", err.Error(), addr)
		slog.Warn("signal dial failed", "peer", addr, "error", err)
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	n, err := conn.Write([]byte(s.payload))
	if err != nil {
		s.metrics.SendFailures.Add(1)
		s.metrics.RecordError("send", err.Error(), addr)
		slog.Warn("signal send failed", "peer", addr, "error", err)
		return fmt.Errorf("send to %s: %w", addr, err)
	}

	s.metrics.SignalsSent.Add(1)
	s.metrics.BytesSent.Add(int64(n))
	slog.Info("sleep signal sent", "peer", addr, "bytes", n)
	return nil
}
