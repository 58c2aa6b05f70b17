//go:build !windows

package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"drowse.dev/go/drowse/internal/config"
)

// freePort grabs an ephemeral port and releases it for the daemon to
// bind. Small race window, acceptable in tests.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func testDaemon(t *testing.T) (*Daemon, *config.Paths) {
	t.Helper()

	dir := t.TempDir()
	paths := &config.Paths{
		ConfigDir:  dir,
		ConfigFile: filepath.Join(dir, "config.toml"),
		PIDFile:    filepath.Join(dir, "daemon.pid"),
		SocketPath: filepath.Join(dir, "d.sock"),
		LogDir:     filepath.Join(dir, "logs"),
	}

	cfg := config.Default()
	cfg.Watch.Enabled = false
	cfg.Listen.Bind = "127.0.0.1"
	cfg.Listen.Port = freePort(t)
	cfg.Discovery.MDNS = false
	cfg.Notifications.Enabled = false
	cfg.Logging.Level = "error"

	d, err := New(Options{Config: cfg, Paths: paths})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, paths
}

func ipcCall(t *testing.T, socketPath, method string) *Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		t.Fatalf("dial IPC socket: %v", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(&Request{ID: "1", Method: method}); err != nil {
		t.Fatalf("send request: %v", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return &resp
}

func TestDaemonStartStatusStop(t *testing.T) {
	d, paths := testDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if _, err := os.Stat(paths.PIDFile); err != nil {
		t.Errorf("PID file not written: %v", err)
	}

	resp := ipcCall(t, paths.SocketPath, "status")
	if resp.Error != nil {
		t.Fatalf("status error: %v", resp.Error.Message)
	}
	var status Status
	if err := json.Unmarshal(resp.Result, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Role != "listen" {
		t.Errorf("role: got %q, want %q", status.Role, "listen")
	}
	if status.PID != os.Getpid() {
		t.Errorf("pid: got %d, want %d", status.PID, os.Getpid())
	}
	if status.ListenAddr == "" {
		t.Error("listen addr empty while listening")
	}

	// A connection with a non-matching payload is accepted, classified
	// and does not fire the sleep trigger
	conn, err := net.Dial("tcp", status.ListenAddr)
	if err != nil {
		t.Fatalf("dial listener: %v", err)
	}
	conn.Write([]byte("not_the_signal"))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && d.metrics.ChunksIgnored.Load() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := d.metrics.ChunksIgnored.Load(); got != 1 {
		t.Errorf("chunks ignored: got %d, want 1", got)
	}
	if got := d.metrics.TriggersFired.Load(); got != 0 {
		t.Errorf("triggers fired on mismatch: got %d, want 0", got)
	}

	listenAddr := status.ListenAddr
	d.Stop()

	if _, err := os.Stat(paths.PIDFile); !os.IsNotExist(err) {
		t.Error("PID file not removed on stop")
	}
	if c, err := net.DialTimeout("tcp", listenAddr, 500*time.Millisecond); err == nil {
		c.Close()
		t.Error("listener still accepting after stop")
	}
	if got := d.metrics.ListenerRebinds.Load(); got != 0 {
		t.Errorf("rebinds during clean shutdown: got %d, want 0", got)
	}
}

func TestDaemonStartFailsOnOccupiedPort(t *testing.T) {
	d, _ := testDaemon(t)

	// Occupy the daemon's port before it starts
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(d.cfg.Listen.Port))
	occupied, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err == nil {
		d.Stop()
		t.Fatal("start succeeded with occupied listen port")
	}
}

func TestDaemonUnknownIPCMethod(t *testing.T) {
	d, paths := testDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	resp := ipcCall(t, paths.SocketPath, "no_such_method")
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("error code: got %d, want %d", resp.Error.Code, ErrCodeMethodNotFound)
	}
}

func TestReadPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	if _, err := ReadPIDFile(path); err == nil {
		t.Error("expected error for missing PID file")
	}

	os.WriteFile(path, []byte("12345\n"), 0600)
	pid, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pid != 12345 {
		t.Errorf("pid: got %d, want 12345", pid)
	}

	os.WriteFile(path, []byte("not-a-pid"), 0600)
	if _, err := ReadPIDFile(path); err == nil {
		t.Error("expected error for malformed PID file")
	}
}
