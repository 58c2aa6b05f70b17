package daemon

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// maxRecentErrors is the size of the error ring buffer
const maxRecentErrors = 50

// Metrics collects operational metrics for observability
type Metrics struct {
	startTime time.Time

	// Counters (atomic for lock-free updates)
	EdgesDetected       atomic.Int64
	ProbeFailures       atomic.Int64
	SignalsSent         atomic.Int64
	SendFailures        atomic.Int64
	ConnectionsAccepted atomic.Int64
	ConnectionsLimited  atomic.Int64
	ChunksReceived      atomic.Int64
	ChunksMatched       atomic.Int64
	ChunksIgnored       atomic.Int64
	ChunksUndecodable   atomic.Int64
	TriggersFired       atomic.Int64
	TriggerFailures     atomic.Int64
	ListenerRebinds     atomic.Int64
	BytesReceived       atomic.Int64
	BytesSent           atomic.Int64

	// Error tracking (ring buffer)
	errorsMu   sync.RWMutex
	errors     []ErrorEntry
	errorIndex int
}

// ErrorEntry records an error event
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Remote  string    `json:"remote,omitempty"`
}

// MetricsSnapshot is a point-in-time view of all metrics
type MetricsSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	UptimeSec float64   `json:"uptime_sec"`

	System   SystemMetrics  `json:"system"`
	Counters CounterMetrics `json:"counters"`
	Gauges   GaugeMetrics   `json:"gauges"`

	RecentErrors []ErrorEntry `json:"recent_errors"`
}

// SystemMetrics contains runtime/system information
type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`

	MemAllocMB float64 `json:"mem_alloc_mb"`
	MemSysMB   float64 `json:"mem_sys_mb"`
	NumGC      uint32  `json:"num_gc"`
}

// CounterMetrics contains cumulative counters
type CounterMetrics struct {
	EdgesDetected       int64 `json:"edges_detected"`
	ProbeFailures       int64 `json:"probe_failures"`
	SignalsSent         int64 `json:"signals_sent"`
	SendFailures        int64 `json:"send_failures"`
	ConnectionsAccepted int64 `json:"connections_accepted"`
	ConnectionsLimited  int64 `json:"connections_limited"`
	ChunksReceived      int64 `json:"chunks_received"`
	ChunksMatched       int64 `json:"chunks_matched"`
	ChunksIgnored       int64 `json:"chunks_ignored"`
	ChunksUndecodable   int64 `json:"chunks_undecodable"`
	TriggersFired       int64 `json:"triggers_fired"`
	TriggerFailures     int64 `json:"trigger_failures"`
	ListenerRebinds     int64 `json:"listener_rebinds"`
	BytesReceived       int64 `json:"bytes_received"`
	BytesSent           int64 `json:"bytes_sent"`
}

// GaugeMetrics contains current state values supplied by the daemon
type GaugeMetrics struct {
	Role         string `json:"role"`
	DisplayState string `json:"display_state"`
	ListenAddr   string `json:"listen_addr,omitempty"`
	Peer         string `json:"peer,omitempty"`
	OpenConns    int    `json:"open_conns"`
}

// NewMetrics creates a metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		errors:    make([]ErrorEntry, 0, maxRecentErrors),
	}
}

// RecordError adds an error to the ring buffer
func (m *Metrics) RecordError(errType, message, remote string) {
	m.errorsMu.Lock()
	defer m.errorsMu.Unlock()

	entry := ErrorEntry{
		Time:    time.Now(),
		Type:    errType,
		Message: message,
		Remote:  remote,
	}

	if len(m.errors) < maxRecentErrors {
		m.errors = append(m.errors, entry)
	} else {
		m.errors[m.errorIndex] = entry
	}
	m.errorIndex = (m.errorIndex + 1) % maxRecentErrors
}

// recentErrors returns errors newest-first
func (m *Metrics) recentErrors() []ErrorEntry {
	m.errorsMu.RLock()
	defer m.errorsMu.RUnlock()

	result := make([]ErrorEntry, 0, len(m.errors))
	for i := 0; i < len(m.errors); i++ {
		idx := (m.errorIndex - 1 - i + maxRecentErrors) % maxRecentErrors
		if idx < len(m.errors) {
			result = append(result, m.errors[idx])
		}
	}
	return result
}

// Snapshot returns a point-in-time view of all metrics. gauges may be
// nil when the caller has no gauge state to contribute.
func (m *Metrics) Snapshot(gauges func() GaugeMetrics) *MetricsSnapshot {
	uptime := time.Since(m.startTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := &MetricsSnapshot{
		Timestamp: time.Now(),
		Uptime:    uptime.Round(time.Second).String(),
		UptimeSec: uptime.Seconds(),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   float64(memStats.Alloc) / 1024 / 1024,
			MemSysMB:     float64(memStats.Sys) / 1024 / 1024,
			NumGC:        memStats.NumGC,
		},
		Counters: CounterMetrics{
			EdgesDetected:       m.EdgesDetected.Load(),
			ProbeFailures:       m.ProbeFailures.Load(),
			SignalsSent:         m.SignalsSent.Load(),
			SendFailures:        m.SendFailures.Load(),
			ConnectionsAccepted: m.ConnectionsAccepted.Load(),
			ConnectionsLimited:  m.ConnectionsLimited.Load(),
			ChunksReceived:      m.ChunksReceived.Load(),
			ChunksMatched:       m.ChunksMatched.Load(),
			ChunksIgnored:       m.ChunksIgnored.Load(),
			ChunksUndecodable:   m.ChunksUndecodable.Load(),
			TriggersFired:       m.TriggersFired.Load(),
			TriggerFailures:     m.TriggerFailures.Load(),
			ListenerRebinds:     m.ListenerRebinds.Load(),
			BytesReceived:       m.BytesReceived.Load(),
			BytesSent:           m.BytesSent.Load(),
		},
		RecentErrors: m.recentErrors(),
	}

	if gauges != nil {
		snap.Gauges = gauges()
	}

	return snap
}
