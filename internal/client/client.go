// Package client is the IPC client used by CLI commands to talk to a
// running drowse daemon.
package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"drowse.dev/go/drowse/internal/config"
	"drowse.dev/go/drowse/internal/daemon"
)

// ErrDaemonNotRunning is returned when the daemon is not running
var ErrDaemonNotRunning = errors.New("daemon is not running")

// Client is an IPC client for communicating with the daemon
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	mu      sync.Mutex
	reqID   uint64
	timeout time.Duration
}

// Connect creates a new IPC client connected to the daemon
func Connect() (*Client, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("get paths: %w", err)
	}

	return ConnectTo(paths.SocketPath)
}

// ConnectTo creates a new IPC client connected to a specific socket
// (named pipe on Windows).
func ConnectTo(socketPath string) (*Client, error) {
	conn, err := dialIPC(socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}

	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		timeout: 30 * time.Second,
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call makes an IPC call and returns the raw result
func (c *Client) Call(method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := fmt.Sprintf("%d", atomic.AddUint64(&c.reqID, 1))

	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	req := daemon.Request{
		ID:     id,
		Method: method,
		Params: paramsJSON,
	}

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := json.NewEncoder(c.writer).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	var resp daemon.Response
	if err := json.NewDecoder(c.reader).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("%s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	return resp.Result, nil
}

// CallResult makes an IPC call and unmarshals the result
func (c *Client) CallResult(method string, params any, result any) error {
	raw, err := c.Call(method, params)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return nil
}

// Status gets the daemon status
func (c *Client) Status() (*daemon.Status, error) {
	var status daemon.Status
	if err := c.CallResult("status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Metrics gets the full daemon metrics snapshot
func (c *Client) Metrics() (*daemon.MetricsSnapshot, error) {
	var snap daemon.MetricsSnapshot
	if err := c.CallResult("metrics", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Logs queries the daemon's in-memory log buffer
func (c *Client) Logs(query daemon.LogQuery) ([]daemon.LogEntry, error) {
	var entries []daemon.LogEntry
	if err := c.CallResult("logs", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetTimeout sets the request timeout
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// IsRunning checks if the daemon is running by attempting a status call
func IsRunning() bool {
	client, err := Connect()
	if err != nil {
		return false
	}
	defer client.Close()

	_, err = client.Status()
	return err == nil
}

// RequireDaemon returns an error if the daemon is not running
func RequireDaemon() error {
	if !IsRunning() {
		return ErrDaemonNotRunning
	}
	return nil
}
