package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"drowse.dev/go/drowse/internal/display"
)

// scriptProber replays a fixed sequence of probe readings.
type scriptProber struct {
	readings []probeReading
	pos      int
}

type probeReading struct {
	on  bool
	err error
}

func (p *scriptProber) Probe(ctx context.Context) (bool, error) {
	if p.pos >= len(p.readings) {
		last := p.readings[len(p.readings)-1]
		return last.on, last.err
	}
	r := p.readings[p.pos]
	p.pos++
	return r.on, r.err
}

func countEdges(t *testing.T, readings []probeReading) int64 {
	t.Helper()

	var fired atomic.Int64
	prober := &scriptProber{readings: readings}
	w := NewDisplayWatcher(prober, time.Second, func(ctx context.Context) {
		fired.Add(1)
	}, NewMetrics())

	ctx := context.Background()
	for range readings {
		w.poll(ctx)
	}
	return fired.Load()
}

func TestWatcherFiresOncePerOnRun(t *testing.T) {
	// off, on, on, on: one maximal run of "on" readings, one edge
	got := countEdges(t, []probeReading{{on: false}, {on: true}, {on: true}, {on: true}})
	if got != 1 {
		t.Errorf("edges: got %d, want 1", got)
	}
}

func TestWatcherRefiresAfterOff(t *testing.T) {
	// on sandwiched between offs fires again on the second run
	got := countEdges(t, []probeReading{{on: false}, {on: true}, {on: false}, {on: true}})
	if got != 2 {
		t.Errorf("edges: got %d, want 2", got)
	}
}

func TestWatcherInitialOnFires(t *testing.T) {
	// unknown -> on counts as a transition
	got := countEdges(t, []probeReading{{on: true}})
	if got != 1 {
		t.Errorf("edges: got %d, want 1", got)
	}
}

func TestWatcherInitialOffNeverFires(t *testing.T) {
	got := countEdges(t, []probeReading{{on: false}, {on: false}, {on: false}})
	if got != 0 {
		t.Errorf("edges: got %d, want 0", got)
	}
}

func TestWatcherProbeErrorReadsAsOff(t *testing.T) {
	probeErr := errors.New("no such device")

	// on, error (off), on: the error breaks the run, so two edges
	got := countEdges(t, []probeReading{{on: true}, {on: false, err: probeErr}, {on: true}})
	if got != 2 {
		t.Errorf("edges: got %d, want 2", got)
	}
}

func TestWatcherProbeErrorNeverFires(t *testing.T) {
	probeErr := errors.New("no such device")
	got := countEdges(t, []probeReading{{on: true, err: probeErr}, {on: true, err: probeErr}})
	if got != 0 {
		t.Errorf("edges: got %d, want 0", got)
	}
}

func TestWatcherLastState(t *testing.T) {
	prober := &scriptProber{readings: []probeReading{{on: true}, {on: false}}}
	w := NewDisplayWatcher(prober, time.Second, func(ctx context.Context) {}, NewMetrics())

	if w.LastState() != display.StateUnknown {
		t.Errorf("initial state: got %v", w.LastState())
	}

	ctx := context.Background()
	w.poll(ctx)
	if w.LastState() != display.StateOn {
		t.Errorf("after on reading: got %v", w.LastState())
	}
	w.poll(ctx)
	if w.LastState() != display.StateOff {
		t.Errorf("after off reading: got %v", w.LastState())
	}
}

func TestWatcherTickerLoop(t *testing.T) {
	var fired atomic.Int64
	prober := &scriptProber{readings: []probeReading{{on: false}, {on: true}}}
	w := NewDisplayWatcher(prober, 10*time.Millisecond, func(ctx context.Context) {
		fired.Add(1)
	}, NewMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	defer w.Stop()

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("edge never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The prober keeps returning "on"; no further edges may fire.
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("edges: got %d, want 1", got)
	}
}
