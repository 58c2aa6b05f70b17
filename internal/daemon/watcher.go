package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"drowse.dev/go/drowse/internal/display"
)

// EdgeFunc is invoked once per detected off-to-on display transition.
type EdgeFunc func(ctx context.Context)

// DisplayWatcher polls the local display on a fixed cadence and fires an
// edge callback when it turns on. Edge-triggered: repeated "on" readings
// never re-fire, and a fresh on-reading after any off-reading fires again.
type DisplayWatcher struct {
	prober   display.Prober
	onEdge   EdgeFunc
	interval time.Duration
	metrics  *Metrics

	// last observed state, readable from other goroutines for status
	last atomic.Int32

	done chan struct{}
}

// NewDisplayWatcher creates a watcher. The first reading is compared
// against an initial "unknown" state, so a display that is already on
// when the daemon starts counts as a transition.
func NewDisplayWatcher(prober display.Prober, interval time.Duration, onEdge EdgeFunc, metrics *Metrics) *DisplayWatcher {
	w := &DisplayWatcher{
		prober:   prober,
		onEdge:   onEdge,
		interval: interval,
		metrics:  metrics,
		done:     make(chan struct{}),
	}
	w.last.Store(int32(display.StateUnknown))
	return w
}

// Start begins polling until the context is canceled or Stop is called.
func (w *DisplayWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-ticker.C:
				w.poll(ctx)
			}
		}
	}()

	slog.Info("display watcher started", "interval", w.interval)
}

// Stop stops polling.
func (w *DisplayWatcher) Stop() {
	close(w.done)
}

// LastState returns the most recent observed display state.
func (w *DisplayWatcher) LastState() display.State {
	return display.State(w.last.Load())
}

// poll samples the probe once and fires the edge callback on an
// off-or-unknown to on transition. Probe failures read as "off" so a
// flaky probe can never emit a spurious sleep signal.
func (w *DisplayWatcher) poll(ctx context.Context) {
	on, err := w.prober.Probe(ctx)
	if err != nil {
		w.metrics.ProbeFailures.Add(1)
		slog.Warn("display probe failed, treating as off", "error", err)
		on = false
	}

	next := display.StateOff
	if on {
		next = display.StateOn
	}

	prev := display.State(w.last.Load())
	if next == prev {
		return
	}
	w.last.Store(int32(next))

	if next == display.StateOn {
		w.metrics.EdgesDetected.Add(1)
		slog.Info("display turned on", "previous", prev.String())
		w.onEdge(ctx)
	} else {
		slog.Debug("display turned off")
	}
}
