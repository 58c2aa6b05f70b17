//go:build windows

package daemon

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// createIPCListener creates a named pipe listener
func createIPCListener(pipePath string) (net.Listener, error) {
	// Owner-only access; SYSTEM retained for service mode
	config := &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;OW)(A;;GA;;;SY)",
	}
	return winio.ListenPipe(pipePath, config)
}

// cleanupIPCListener is a no-op on Windows; the pipe disappears with
// its last handle.
func cleanupIPCListener(pipePath string) {}

// getIPCAddress returns the network type and address for logging
func getIPCAddress(pipePath string) (string, string) {
	return "pipe", pipePath
}
