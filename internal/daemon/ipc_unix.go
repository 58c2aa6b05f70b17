//go:build !windows

package daemon

import (
	"fmt"
	"net"
	"os"
)

// createIPCListener creates a unix domain socket listener
func createIPCListener(socketPath string) (net.Listener, error) {
	// Remove stale socket from a previous run
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}

	// Restrict access to the owning user
	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	return listener, nil
}

// cleanupIPCListener removes the socket file
func cleanupIPCListener(socketPath string) {
	os.Remove(socketPath)
}

// getIPCAddress returns the network type and address for logging
func getIPCAddress(socketPath string) (string, string) {
	return "unix", socketPath
}
