package daemon

import (
	"fmt"
	"testing"
)

func TestMetricsNew(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.startTime.IsZero() {
		t.Error("startTime should be set")
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.EdgesDetected.Add(3)
	m.SignalsSent.Add(3)
	m.SendFailures.Add(1)
	m.TriggersFired.Add(2)
	m.ListenerRebinds.Add(1)
	m.BytesReceived.Add(1024)

	snap := m.Snapshot(nil)

	if snap.Counters.EdgesDetected != 3 {
		t.Errorf("EdgesDetected: got %d, want 3", snap.Counters.EdgesDetected)
	}
	if snap.Counters.SignalsSent != 3 {
		t.Errorf("SignalsSent: got %d, want 3", snap.Counters.SignalsSent)
	}
	if snap.Counters.SendFailures != 1 {
		t.Errorf("SendFailures: got %d, want 1", snap.Counters.SendFailures)
	}
	if snap.Counters.TriggersFired != 2 {
		t.Errorf("TriggersFired: got %d, want 2", snap.Counters.TriggersFired)
	}
	if snap.Counters.BytesReceived != 1024 {
		t.Errorf("BytesReceived: got %d, want 1024", snap.Counters.BytesReceived)
	}
}

func TestMetricsRecordError(t *testing.T) {
	m := NewMetrics()

	m.RecordError("send", "connection refused", "192.168.1.20:7460")
	m.RecordError("read", "broken pipe", "192.168.1.21:51234")

	snap := m.Snapshot(nil)
	if len(snap.RecentErrors) != 2 {
		t.Fatalf("RecentErrors: got %d, want 2", len(snap.RecentErrors))
	}

	// Most recent error first
	if snap.RecentErrors[0].Type != "read" {
		t.Errorf("first error type: got %s, want read", snap.RecentErrors[0].Type)
	}
	if snap.RecentErrors[1].Remote != "192.168.1.20:7460" {
		t.Errorf("second error remote: got %s", snap.RecentErrors[1].Remote)
	}
}

func TestMetricsErrorRingWraps(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < maxRecentErrors+10; i++ {
		m.RecordError("read", fmt.Sprintf("error %d", i), "")
	}

	snap := m.Snapshot(nil)
	if len(snap.RecentErrors) != maxRecentErrors {
		t.Fatalf("RecentErrors: got %d, want %d", len(snap.RecentErrors), maxRecentErrors)
	}
	want := fmt.Sprintf("error %d", maxRecentErrors+9)
	if snap.RecentErrors[0].Message != want {
		t.Errorf("newest error: got %q, want %q", snap.RecentErrors[0].Message, want)
	}
}

func TestMetricsSnapshotGauges(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot(func() GaugeMetrics {
		return GaugeMetrics{
			Role:         "listen",
			DisplayState: "on",
			ListenAddr:   "0.0.0.0:7460",
			OpenConns:    2,
		}
	})

	if snap.Gauges.Role != "listen" {
		t.Errorf("role: got %q", snap.Gauges.Role)
	}
	if snap.Gauges.OpenConns != 2 {
		t.Errorf("open conns: got %d", snap.Gauges.OpenConns)
	}
	if snap.System.GoVersion == "" {
		t.Error("go version missing")
	}
}
