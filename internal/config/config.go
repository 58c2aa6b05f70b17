package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"drowse.dev/go/drowse/internal/protocol"
)

// DefaultPort is the TCP port the signal listener binds when unset.
const DefaultPort = 7460

// Config represents the drowse configuration file
type Config struct {
	Watch         WatchConfig         `toml:"watch"`
	Listen        ListenConfig        `toml:"listen"`
	Signal        SignalConfig        `toml:"signal"`
	Discovery     DiscoveryConfig     `toml:"discovery"`
	Logging       LoggingConfig       `toml:"logging"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// WatchConfig controls the sender side: polling the local display and
// signaling the peer when it turns on.
type WatchConfig struct {
	Enabled      bool   `toml:"enabled"`
	Peer         string `toml:"peer"` // host:port; empty means discover via mDNS
	IntervalSecs int    `toml:"interval_secs"`
	DialTimeout  int    `toml:"dial_timeout_secs"`
}

// ListenConfig controls the receiver side: accepting peer signals and
// sleeping the local display.
type ListenConfig struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
	Port    int    `toml:"port"`
}

// SignalConfig sets the wire payload exchanged between peers.
type SignalConfig struct {
	Payload string `toml:"payload"`
}

// DiscoveryConfig contains mDNS settings
type DiscoveryConfig struct {
	MDNS bool `toml:"mdns"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

// NotificationsConfig contains desktop notification settings
type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Enabled:      true,
			Peer:         "",
			IntervalSecs: 1,
			DialTimeout:  5,
		},
		Listen: ListenConfig{
			Enabled: true,
			Bind:    "0.0.0.0",
			Port:    DefaultPort,
		},
		Signal: SignalConfig{
			Payload: protocol.DefaultSignal,
		},
		Discovery: DiscoveryConfig{
			MDNS: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
	}
}

// Load loads the configuration from the default config file
func Load() (*Config, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, fmt.Errorf("get paths: %w", err)
	}

	return LoadFrom(paths.ConfigFile)
}

// LoadFrom loads the configuration from a specific file. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default config file
func (c *Config) Save() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("get paths: %w", err)
	}

	if err := os.MkdirAll(paths.ConfigDir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(paths.ConfigFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// Validate checks the configuration before any socket is opened.
func (c *Config) Validate() error {
	if !c.Watch.Enabled && !c.Listen.Enabled {
		return fmt.Errorf("both watch and listen are disabled, nothing to do")
	}

	if c.Listen.Enabled {
		if err := ValidatePort(c.Listen.Port); err != nil {
			return fmt.Errorf("listen port: %w", err)
		}
	}

	if c.Watch.Enabled {
		if c.Watch.IntervalSecs < 1 {
			return fmt.Errorf("watch interval must be at least 1 second, got %d", c.Watch.IntervalSecs)
		}
		if c.Watch.Peer != "" {
			if err := ValidatePeer(c.Watch.Peer); err != nil {
				return fmt.Errorf("watch peer: %w", err)
			}
		}
	}

	if err := protocol.ValidateSignal(c.Signal.Payload); err != nil {
		return fmt.Errorf("signal payload: %w", err)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	return nil
}

// ValidatePort rejects ports outside [1,65535].
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be in range 1-65535, got %d", port)
	}
	return nil
}

// ValidatePeer checks a host:port peer address.
func ValidatePeer(peer string) error {
	host, portStr, err := net.SplitHostPort(peer)
	if err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	if host == "" {
		return fmt.Errorf("missing host in %q", peer)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q", portStr)
	}
	return ValidatePort(port)
}
