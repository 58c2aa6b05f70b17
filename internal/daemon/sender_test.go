package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func staticPeer(addr string) ResolvePeerFunc {
	return func() (string, error) { return addr, nil }
}

func TestSenderDeliversPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	m := NewMetrics()
	s := NewSignalSender(staticPeer(ln.Addr().String()), "sleep_display", time.Second, m)

	if err := s.Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != "sleep_display" {
			t.Errorf("payload: got %q, want %q", data, "sleep_display")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("payload never arrived")
	}

	if m.SignalsSent.Load() != 1 {
		t.Errorf("SignalsSent: got %d, want 1", m.SignalsSent.Load())
	}
}

func TestSenderClosesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	closed := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Drain until the sender closes its end
		io.Copy(io.Discard, conn)
		close(closed)
	}()

	s := NewSignalSender(staticPeer(ln.Addr().String()), "sleep_display", time.Second, NewMetrics())
	if err := s.Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("sender never closed the connection")
	}
}

func TestSenderDialFailureIsNonFatal(t *testing.T) {
	// Grab a port and close it so the dial is refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	m := NewMetrics()
	s := NewSignalSender(staticPeer(addr), "sleep_display", 500*time.Millisecond, m)

	if err := s.Send(context.Background()); err == nil {
		t.Error("send to closed port succeeded")
	}
	if m.SendFailures.Load() != 1 {
		t.Errorf("SendFailures: got %d, want 1", m.SendFailures.Load())
	}
	if m.SignalsSent.Load() != 0 {
		t.Errorf("SignalsSent: got %d, want 0", m.SignalsSent.Load())
	}
}

func TestSenderResolveFailure(t *testing.T) {
	m := NewMetrics()
	s := NewSignalSender(func() (string, error) {
		return "", errors.New("no peer discovered yet")
	}, "sleep_display", time.Second, m)

	if err := s.Send(context.Background()); err == nil {
		t.Error("send without a target succeeded")
	}
	if m.SendFailures.Load() != 1 {
		t.Errorf("SendFailures: got %d, want 1", m.SendFailures.Load())
	}
}
