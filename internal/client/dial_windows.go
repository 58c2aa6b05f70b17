//go:build windows

package client

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func dialIPC(pipePath string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(pipePath, &timeout)
}
