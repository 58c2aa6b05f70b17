package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"drowse.dev/go/drowse/internal/protocol"
)

// TriggerFunc puts the local display to sleep. Safe to invoke from
// multiple connection handlers concurrently; the action is idempotent.
type TriggerFunc func(ctx context.Context) error

// SignalListener accepts peer connections and fires the sleep trigger on
// an exact payload match. The listener can be torn down and rebound on
// the same configured endpoint any number of times; the Supervisor owns
// that lifecycle.
type SignalListener struct {
	addr    string // configured bind address, never changes
	matcher *protocol.Matcher
	trigger TriggerFunc
	limiter *ConnectionLimiter
	metrics *Metrics

	mu sync.Mutex
	ln net.Listener

	openConns atomic.Int32
}

// NewSignalListener creates a listener for the configured endpoint.
func NewSignalListener(addr string, matcher *protocol.Matcher, trigger TriggerFunc, limiter *ConnectionLimiter, metrics *Metrics) *SignalListener {
	return &SignalListener{
		addr:    addr,
		matcher: matcher,
		trigger: trigger,
		limiter: limiter,
		metrics: metrics,
	}
}

// Bind creates the server socket. The first Bind happens at startup and
// a failure there is fatal; later Binds are rebinds after failures.
func (l *SignalListener) Bind() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	slog.Info("signal listener bound", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil when unbound.
func (l *SignalListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close tears down the server socket, unblocking any pending accept.
func (l *SignalListener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		l.ln.Close()
		l.ln = nil
	}
}

// OpenConns returns the number of in-flight connection handlers.
func (l *SignalListener) OpenConns() int {
	return int(l.openConns.Load())
}

// Serve accepts connections until the listener fails or the context is
// canceled. A nil return means clean shutdown; an error means the
// listener itself broke and the supervisor should rebind.
func (l *SignalListener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return errors.New("listener not bound")
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if l.limiter != nil {
			if err := l.limiter.AllowConnection(conn.RemoteAddr()); err != nil {
				l.metrics.ConnectionsLimited.Add(1)
				slog.Debug("connection rejected by limiter",
					"remote", conn.RemoteAddr().String(),
					"reason", err,
				)
				conn.Close()
				continue
			}
		}

		l.metrics.ConnectionsAccepted.Add(1)
		c := newSignalConn(conn, l.matcher, l.trigger, l.metrics)

		l.openConns.Add(1)
		go func() {
			defer l.openConns.Add(-1)
			if l.limiter != nil {
				defer l.limiter.ReleaseConnection(conn.RemoteAddr())
			}
			c.run(ctx)
		}()
	}
}

// connState tracks where a connection is in its lifecycle:
// Opened -> Reading -> {Matched|Ignored} -> Reading -> ... -> Closed.
type connState int

const (
	connOpened connState = iota
	connReading
	connMatched
	connIgnored
	connClosed
)

func (s connState) String() string {
	switch s {
	case connOpened:
		return "opened"
	case connReading:
		return "reading"
	case connMatched:
		return "matched"
	case connIgnored:
		return "ignored"
	case connClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// signalConn handles one accepted connection. Handlers share nothing
// mutable; errors close this connection only.
type signalConn struct {
	id      string
	conn    net.Conn
	matcher *protocol.Matcher
	trigger TriggerFunc
	metrics *Metrics
	state   connState
}

func newSignalConn(conn net.Conn, matcher *protocol.Matcher, trigger TriggerFunc, metrics *Metrics) *signalConn {
	return &signalConn{
		id:      uuid.NewString()[:8],
		conn:    conn,
		matcher: matcher,
		trigger: trigger,
		metrics: metrics,
		state:   connOpened,
	}
}

// run reads the connection in chunks of up to protocol.MaxChunkSize
// until the peer closes or a read error occurs, classifying each chunk
// independently.
func (c *signalConn) run(ctx context.Context) {
	remote := c.conn.RemoteAddr().String()
	log := slog.With("conn", c.id, "remote", remote)
	log.Debug("connection opened")

	defer func() {
		c.state = connClosed
		c.conn.Close()
		log.Debug("connection closed")
	}()

	buf := make([]byte, protocol.MaxChunkSize)
	for {
		c.state = connReading
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.metrics.ChunksReceived.Add(1)
			c.metrics.BytesReceived.Add(int64(n))
			c.handleChunk(ctx, log, buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.metrics.RecordError("read", err.Error(), remote)
				log.Debug("read error", "error", err)
			}
			return
		}
	}
}

// handleChunk classifies one received chunk. Undecodable chunks are
// skipped without comment; mismatches are logged; a match fires the
// sleep trigger synchronously.
func (c *signalConn) handleChunk(ctx context.Context, log *slog.Logger, chunk []byte) {
	matched, decodable := c.matcher.Match(chunk)
	if !decodable {
		c.metrics.ChunksUndecodable.Add(1)
		return
	}

	if !matched {
		c.state = connIgnored
		c.metrics.ChunksIgnored.Add(1)
		log.Info("ignoring unexpected payload", "size", len(chunk))
		return
	}

	c.state = connMatched
	c.metrics.ChunksMatched.Add(1)
	log.Info("sleep signal received")

	if err := c.trigger(ctx); err != nil {
		c.metrics.TriggerFailures.Add(1)
		c.metrics.RecordError("trigger", err.Error(), c.conn.RemoteAddr().String())
		log.Error("display sleep failed", "error", err)
		return
	}
	c.metrics.TriggersFired.Add(1)
}
