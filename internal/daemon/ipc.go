package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// Request represents an IPC request from a CLI client
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents an IPC response to a client
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error represents an IPC error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// IPCServer answers status queries from CLI clients over a unix socket
// (named pipe on Windows).
type IPCServer struct {
	socketPath string
	listener   net.Listener
	daemon     *Daemon
	clients    map[net.Conn]bool
	clientsMu  sync.Mutex
	done       chan struct{}
}

// NewIPCServer creates a new IPC server
func NewIPCServer(socketPath string, daemon *Daemon) *IPCServer {
	return &IPCServer{
		socketPath: socketPath,
		daemon:     daemon,
		clients:    make(map[net.Conn]bool),
		done:       make(chan struct{}),
	}
}

// Start starts the IPC server
func (s *IPCServer) Start(ctx context.Context) error {
	listener, err := createIPCListener(s.socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener

	_, address := getIPCAddress(s.socketPath)
	slog.Info("IPC server listening", "address", address)

	go s.acceptLoop(ctx)

	return nil
}

// Stop stops the IPC server
func (s *IPCServer) Stop() {
	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clientsMu.Unlock()

	cleanupIPCListener(s.socketPath)
}

func (s *IPCServer) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("IPC accept error", "error", err)
				continue
			}
		}

		s.clientsMu.Lock()
		s.clients[conn] = true
		s.clientsMu.Unlock()

		go s.handleClient(ctx, conn)
	}
}

func (s *IPCServer) handleClient(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	decoder := json.NewDecoder(bufio.NewReader(conn))
	writer := bufio.NewWriter(conn)
	encoder := json.NewEncoder(writer)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		var req Request
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Debug("IPC decode error", "error", err)
			return
		}

		resp := s.handleRequest(ctx, &req)
		if err := encoder.Encode(resp); err != nil {
			slog.Debug("IPC send error", "error", err)
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func (s *IPCServer) handleRequest(ctx context.Context, req *Request) *Response {
	handler, ok := ipcHandlers[req.Method]
	if !ok {
		return &Response{
			ID: req.ID,
			Error: &Error{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("method not found: %s", req.Method),
			},
		}
	}

	result, err := handler(ctx, s.daemon, req.Params)
	if err != nil {
		return &Response{
			ID: req.ID,
			Error: &Error{
				Code:    ErrCodeInternalError,
				Message: err.Error(),
			},
		}
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return &Response{
			ID: req.ID,
			Error: &Error{
				Code:    ErrCodeInternalError,
				Message: "failed to encode result",
			},
		}
	}

	return &Response{
		ID:     req.ID,
		Result: resultJSON,
	}
}

// IPCHandler handles one IPC method
type IPCHandler func(ctx context.Context, d *Daemon, params json.RawMessage) (any, error)

var ipcHandlers = map[string]IPCHandler{
	"status":  handleStatus,
	"metrics": handleMetrics,
	"logs":    handleLogs,
}

func handleStatus(ctx context.Context, d *Daemon, params json.RawMessage) (any, error) {
	return d.Status(), nil
}

func handleMetrics(ctx context.Context, d *Daemon, params json.RawMessage) (any, error) {
	return d.MetricsSnapshot(), nil
}

func handleLogs(ctx context.Context, d *Daemon, params json.RawMessage) (any, error) {
	var query LogQuery
	if len(params) > 0 {
		if err := json.Unmarshal(params, &query); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	return d.LogBuffer().Query(query), nil
}
