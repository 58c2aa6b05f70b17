package daemon

import (
	"net"
	"testing"
)

func tcpAddr(ip string) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: 51234}
}

func TestConnectionLimiterAllowsNormalTraffic(t *testing.T) {
	cl := NewConnectionLimiter(nil)

	for i := 0; i < 3; i++ {
		if err := cl.AllowConnection(tcpAddr("192.168.1.20")); err != nil {
			t.Fatalf("connection %d rejected: %v", i, err)
		}
	}
	if cl.CurrentConnections() != 3 {
		t.Errorf("current: got %d, want 3", cl.CurrentConnections())
	}

	for i := 0; i < 3; i++ {
		cl.ReleaseConnection(tcpAddr("192.168.1.20"))
	}
	if cl.CurrentConnections() != 0 {
		t.Errorf("current after release: got %d, want 0", cl.CurrentConnections())
	}
}

func TestConnectionLimiterMaxPerIP(t *testing.T) {
	cl := NewConnectionLimiter(&ConnectionLimiterConfig{
		MaxConnections:      100,
		ConnectionsPerSec:   1000,
		ConnectionBurst:     1000,
		MaxConnectionsPerIP: 2,
		IPConnectionsPerSec: 1000,
		IPConnectionBurst:   1000,
	})

	addr := tcpAddr("192.168.1.20")
	for i := 0; i < 2; i++ {
		if err := cl.AllowConnection(addr); err != nil {
			t.Fatalf("connection %d rejected: %v", i, err)
		}
	}

	if err := cl.AllowConnection(addr); err == nil {
		t.Error("third concurrent connection from one IP accepted")
	}

	// A different IP is unaffected
	if err := cl.AllowConnection(tcpAddr("192.168.1.21")); err != nil {
		t.Errorf("other IP rejected: %v", err)
	}

	// Releasing frees the slot
	cl.ReleaseConnection(addr)
	if err := cl.AllowConnection(addr); err != nil {
		t.Errorf("connection after release rejected: %v", err)
	}
}

func TestConnectionLimiterMaxTotal(t *testing.T) {
	cl := NewConnectionLimiter(&ConnectionLimiterConfig{
		MaxConnections:      2,
		ConnectionsPerSec:   1000,
		ConnectionBurst:     1000,
		MaxConnectionsPerIP: 100,
		IPConnectionsPerSec: 1000,
		IPConnectionBurst:   1000,
	})

	if err := cl.AllowConnection(tcpAddr("10.0.0.1")); err != nil {
		t.Fatal(err)
	}
	if err := cl.AllowConnection(tcpAddr("10.0.0.2")); err != nil {
		t.Fatal(err)
	}
	if err := cl.AllowConnection(tcpAddr("10.0.0.3")); err == nil {
		t.Error("connection over global cap accepted")
	}
}

func TestConnectionLimiterPerIPRate(t *testing.T) {
	cl := NewConnectionLimiter(&ConnectionLimiterConfig{
		MaxConnections:      100,
		ConnectionsPerSec:   1000,
		ConnectionBurst:     1000,
		MaxConnectionsPerIP: 100,
		IPConnectionsPerSec: 1,
		IPConnectionBurst:   2,
	})

	addr := tcpAddr("192.168.1.20")
	allowed := 0
	for i := 0; i < 10; i++ {
		if err := cl.AllowConnection(addr); err == nil {
			allowed++
			cl.ReleaseConnection(addr)
		}
	}

	// Burst of 2 plus at most a token of refill
	if allowed > 3 {
		t.Errorf("allowed %d rapid connections, want <= 3", allowed)
	}
}
