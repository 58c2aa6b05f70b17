package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds the platform-specific file paths for drowse
type Paths struct {
	ConfigDir  string // ~/.config/drowse or equivalent
	ConfigFile string // ~/.config/drowse/config.toml
	PIDFile    string // ~/.config/drowse/daemon.pid
	SocketPath string // /run/user/<uid>/drowse.sock or equivalent
	LogDir     string // platform log directory
}

// GetPaths returns platform-specific paths for drowse
func GetPaths() (*Paths, error) {
	var configDir, socketPath, logDir string

	// Allow override via environment variable (useful for testing
	// multiple instances on one machine)
	if envConfigDir := os.Getenv("DROWSE_CONFIG_DIR"); envConfigDir != "" {
		configDir = envConfigDir
		socketPath = filepath.Join(configDir, "daemon.sock")
		logDir = filepath.Join(configDir, "logs")
	} else {
		switch runtime.GOOS {
		case "linux":
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "drowse")

			runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
			if runtimeDir == "" {
				runtimeDir = fmt.Sprintf("/run/user/%d", os.Getuid())
			}
			socketPath = filepath.Join(runtimeDir, "drowse.sock")
			logDir = filepath.Join(home, ".local", "state", "drowse")

		case "darwin":
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "drowse")
			socketPath = filepath.Join(home, "Library", "Application Support", "drowse", "daemon.sock")
			logDir = filepath.Join(home, "Library", "Logs", "drowse")

		case "windows":
			appData := os.Getenv("APPDATA")
			if appData == "" {
				return nil, fmt.Errorf("APPDATA environment variable not set")
			}
			configDir = filepath.Join(appData, "drowse")
			// On Windows IPC runs over a named pipe; the path is
			// unused but kept non-empty for display purposes.
			socketPath = `\\.\pipe\drowse`
			logDir = filepath.Join(appData, "drowse", "logs")

		default:
			return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
		}
	}

	return &Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, "config.toml"),
		PIDFile:    filepath.Join(configDir, "daemon.pid"),
		SocketPath: socketPath,
		LogDir:     logDir,
	}, nil
}

// EnsureDirectories creates the directories drowse writes to.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConfigDir, filepath.Dir(p.SocketPath), p.LogDir} {
		if dir == "" || dir[0] == '\\' {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
