package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if cfg.Listen.Port != DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Listen.Port, DefaultPort)
	}
	if cfg.Signal.Payload != "sleep_display" {
		t.Errorf("payload: got %q", cfg.Signal.Payload)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[watch]
enabled = true
peer = "192.168.1.20:7460"
interval_secs = 2

[listen]
enabled = false

[signal]
payload = "goodnight"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Watch.Peer != "192.168.1.20:7460" {
		t.Errorf("peer: got %q", cfg.Watch.Peer)
	}
	if cfg.Watch.IntervalSecs != 2 {
		t.Errorf("interval: got %d", cfg.Watch.IntervalSecs)
	}
	if cfg.Listen.Enabled {
		t.Error("listen should be disabled")
	}
	if cfg.Signal.Payload != "goodnight" {
		t.Errorf("payload: got %q", cfg.Signal.Payload)
	}
	// Unset sections keep defaults
	if !cfg.Discovery.MDNS {
		t.Error("discovery default lost")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestValidatePortRange(t *testing.T) {
	for _, port := range []int{1, 80, DefaultPort, 65535} {
		if err := ValidatePort(port); err != nil {
			t.Errorf("port %d rejected: %v", port, err)
		}
	}
	for _, port := range []int{0, -1, 65536, 70000} {
		if err := ValidatePort(port); err == nil {
			t.Errorf("port %d accepted", port)
		}
	}
}

func TestValidateRejectsBadListenPort(t *testing.T) {
	for _, port := range []int{0, 70000} {
		cfg := Default()
		cfg.Listen.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("listen port %d accepted", port)
		}
	}
}

func TestValidatePeer(t *testing.T) {
	good := []string{"10.0.0.2:7460", "desk.local:1", "[::1]:65535"}
	for _, peer := range good {
		if err := ValidatePeer(peer); err != nil {
			t.Errorf("peer %q rejected: %v", peer, err)
		}
	}

	bad := []string{"10.0.0.2", "10.0.0.2:0", "10.0.0.2:70000", ":7460", "10.0.0.2:port"}
	for _, peer := range bad {
		if err := ValidatePeer(peer); err == nil {
			t.Errorf("peer %q accepted", peer)
		}
	}
}

func TestValidateRejectsNothingEnabled(t *testing.T) {
	cfg := Default()
	cfg.Watch.Enabled = false
	cfg.Listen.Enabled = false
	if err := cfg.Validate(); err == nil {
		t.Error("config with no roles accepted")
	}
}

func TestValidateRejectsBadPayload(t *testing.T) {
	cfg := Default()
	cfg.Signal.Payload = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty payload accepted")
	}
}
