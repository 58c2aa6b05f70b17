package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"drowse.dev/go/drowse/internal/config"
	"drowse.dev/go/drowse/internal/display"
	"drowse.dev/go/drowse/internal/protocol"
)

// Options configures the daemon
type Options struct {
	Config *config.Config
	Paths  *config.Paths
}

// Daemon coordinates the display watcher, the signal listener and their
// support services for one machine.
type Daemon struct {
	cfg   *config.Config
	paths *config.Paths

	instanceID string
	startTime  time.Time

	metrics       *Metrics
	logBuffer     *LogBuffer
	notifications *NotificationService
	sleeper       display.Sleeper

	watcher    *DisplayWatcher
	sender     *SignalSender
	listener   *SignalListener
	supervisor *Supervisor
	mdns       *MDNSService
	ipc        *IPCServer

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Status is the daemon state reported over IPC
type Status struct {
	PID          int    `json:"pid"`
	Uptime       string `json:"uptime"`
	Role         string `json:"role"`
	DisplayState string `json:"display_state"`
	ListenAddr   string `json:"listen_addr,omitempty"`
	Peer         string `json:"peer,omitempty"`
	OpenConns    int    `json:"open_conns"`

	EdgesDetected       int64 `json:"edges_detected"`
	SignalsSent         int64 `json:"signals_sent"`
	TriggersFired       int64 `json:"triggers_fired"`
	ConnectionsAccepted int64 `json:"connections_accepted"`
	ListenerRebinds     int64 `json:"listener_rebinds"`
}

// New creates a daemon from validated configuration.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	paths := opts.Paths
	if paths == nil {
		p, err := config.GetPaths()
		if err != nil {
			return nil, err
		}
		paths = p
	}

	d := &Daemon{
		cfg:        cfg,
		paths:      paths,
		instanceID: uuid.NewString(),
		startTime:  time.Now(),
		metrics:    NewMetrics(),
		logBuffer:  NewLogBuffer(LogBufferSize),
		sleeper:    display.NewSleeper(),
	}

	d.setupLogging()
	d.notifications = NewNotificationService(cfg.Notifications.Enabled)

	return d, nil
}

// setupLogging installs the process-wide slog handler: stderr in the
// configured format, mirrored into the IPC-queryable ring buffer.
func (d *Daemon) setupLogging() {
	opts := &slog.HandlerOptions{Level: parseLevel(d.cfg.Logging.Level)}

	var handler slog.Handler
	if d.cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(NewBufferedHandler(d.logBuffer, handler)))
}

// Start brings all configured components up. A failure to bind the
// signal listener at startup is fatal; later listener failures are
// handled by the supervisor.
func (d *Daemon) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.paths.EnsureDirectories(); err != nil {
		return err
	}
	if err := d.writePIDFile(); err != nil {
		return err
	}

	d.ipc = NewIPCServer(d.paths.SocketPath, d)
	if err := d.ipc.Start(d.ctx); err != nil {
		d.removePIDFile()
		return fmt.Errorf("start IPC server: %w", err)
	}

	if d.cfg.Listen.Enabled {
		addr := net.JoinHostPort(d.cfg.Listen.Bind, strconv.Itoa(d.cfg.Listen.Port))
		d.listener = NewSignalListener(
			addr,
			protocol.NewMatcher(d.cfg.Signal.Payload),
			d.sleepDisplay,
			NewConnectionLimiter(nil),
			d.metrics,
		)
		if err := d.listener.Bind(); err != nil {
			d.ipc.Stop()
			d.removePIDFile()
			return fmt.Errorf("bind signal listener: %w", err)
		}

		d.supervisor = NewSupervisor(d.listener, d.metrics)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.supervisor.Run(d.ctx)
		}()
	}

	if d.cfg.Discovery.MDNS {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "drowse"
		}
		d.mdns = NewMDNSService(
			fmt.Sprintf("drowse-%s", hostname),
			d.instanceID,
			d.cfg.Listen.Port,
			d.cfg.Listen.Enabled,
		)
		if err := d.mdns.Start(); err != nil {
			slog.Warn("mDNS unavailable", "error", err)
			d.mdns = nil
		}
	}

	if d.cfg.Watch.Enabled {
		d.sender = NewSignalSender(
			d.resolvePeer,
			d.cfg.Signal.Payload,
			time.Duration(d.cfg.Watch.DialTimeout)*time.Second,
			d.metrics,
		)
		d.watcher = NewDisplayWatcher(
			display.NewProber(),
			time.Duration(d.cfg.Watch.IntervalSecs)*time.Second,
			d.onDisplayOn,
			d.metrics,
		)
		d.watcher.Start(d.ctx)
	}

	slog.Info("daemon started",
		"pid", os.Getpid(),
		"role", d.role(),
		"instance", d.instanceID[:8],
	)
	return nil
}

// Run starts the daemon and blocks until SIGINT or SIGTERM arrives, then
// shuts down cleanly.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case <-d.ctx.Done():
	}

	d.Stop()
	return nil
}

// Stop shuts everything down. The context is canceled before the
// listener socket is closed so the supervisor reads the teardown as a
// shutdown, not a failure to rebind from.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		slog.Info("daemon stopping")

		d.cancel()

		if d.listener != nil {
			d.listener.Close()
		}
		if d.watcher != nil {
			d.watcher.Stop()
		}
		if d.mdns != nil {
			d.mdns.Stop()
		}

		d.wg.Wait()

		if d.ipc != nil {
			d.ipc.Stop()
		}
		d.removePIDFile()

		slog.Info("daemon stopped")
	})
}

// onDisplayOn is the watcher's edge callback. Send failures are already
// logged and counted; the next edge retries naturally.
func (d *Daemon) onDisplayOn(ctx context.Context) {
	_ = d.sender.Send(ctx)
}

// sleepDisplay is the listener's trigger: it puts the local display to
// sleep synchronously and raises a desktop notification on success.
func (d *Daemon) sleepDisplay(ctx context.Context) error {
	if err := d.sleeper.Sleep(ctx); err != nil {
		return err
	}
	if err := d.notifications.NotifySignalReceived(); err != nil {
		slog.Debug("notification failed", "error", err)
	}
	return nil
}

// resolvePeer picks the signal target: the statically configured peer
// wins, otherwise the most recent mDNS discovery.
func (d *Daemon) resolvePeer() (string, error) {
	if d.cfg.Watch.Peer != "" {
		return d.cfg.Watch.Peer, nil
	}
	if d.mdns != nil {
		if addr, ok := d.mdns.PeerAddr(); ok {
			return addr, nil
		}
	}
	return "", fmt.Errorf("no peer configured and none discovered")
}

func (d *Daemon) role() string {
	switch {
	case d.cfg.Watch.Enabled && d.cfg.Listen.Enabled:
		return "watch+listen"
	case d.cfg.Watch.Enabled:
		return "watch"
	default:
		return "listen"
	}
}

// Status returns the daemon state for the IPC status handler.
func (d *Daemon) Status() *Status {
	g := d.gauges()
	return &Status{
		PID:          os.Getpid(),
		Uptime:       time.Since(d.startTime).Round(time.Second).String(),
		Role:         g.Role,
		DisplayState: g.DisplayState,
		ListenAddr:   g.ListenAddr,
		Peer:         g.Peer,
		OpenConns:    g.OpenConns,

		EdgesDetected:       d.metrics.EdgesDetected.Load(),
		SignalsSent:         d.metrics.SignalsSent.Load(),
		TriggersFired:       d.metrics.TriggersFired.Load(),
		ConnectionsAccepted: d.metrics.ConnectionsAccepted.Load(),
		ListenerRebinds:     d.metrics.ListenerRebinds.Load(),
	}
}

// MetricsSnapshot returns the full metrics view for the IPC handler.
func (d *Daemon) MetricsSnapshot() *MetricsSnapshot {
	return d.metrics.Snapshot(d.gauges)
}

// LogBuffer exposes the log ring for the IPC logs handler.
func (d *Daemon) LogBuffer() *LogBuffer {
	return d.logBuffer
}

func (d *Daemon) gauges() GaugeMetrics {
	g := GaugeMetrics{Role: d.role(), DisplayState: display.StateUnknown.String()}

	if d.watcher != nil {
		g.DisplayState = d.watcher.LastState().String()
	}
	if d.listener != nil {
		if addr := d.listener.Addr(); addr != nil {
			g.ListenAddr = addr.String()
		}
		g.OpenConns = d.listener.OpenConns()
	}
	if addr, err := d.resolvePeer(); err == nil {
		g.Peer = addr
	}

	return g
}

func (d *Daemon) writePIDFile() error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(d.paths.PIDFile, []byte(pid), 0600); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	return nil
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.paths.PIDFile)
}

// ReadPIDFile reads the daemon's PID file. Used by `drowse stop` and
// `drowse status` to find the running daemon.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed PID file %s: %w", path, err)
	}
	return pid, nil
}
