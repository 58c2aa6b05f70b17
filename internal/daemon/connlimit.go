package daemon

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// ConnectionLimiter protects the signal listener from connection floods.
// Limits are applied before any payload is read.
type ConnectionLimiter struct {
	maxConnections     int32
	currentConnections atomic.Int32
	globalRate         *rate.Limiter

	perIP sync.Map // ip -> *ipLimit

	maxConnectionsPerIP int32
	ipRate              float64
	ipBurst             int
}

// ipLimit tracks connection state for a single remote IP
type ipLimit struct {
	connections atomic.Int32
	limiter     *rate.Limiter
}

// ConnectionLimiterConfig holds limiter settings
type ConnectionLimiterConfig struct {
	MaxConnections      int32   // max concurrent connections total
	ConnectionsPerSec   float64 // new connections per second globally
	ConnectionBurst     int     // global burst allowance
	MaxConnectionsPerIP int32   // max concurrent connections per IP
	IPConnectionsPerSec float64 // new connections per second per IP
	IPConnectionBurst   int     // burst per IP
}

// DefaultConnectionLimiterConfig returns defaults sized for a protocol
// whose legitimate traffic is one tiny connection per display wake.
func DefaultConnectionLimiterConfig() *ConnectionLimiterConfig {
	return &ConnectionLimiterConfig{
		MaxConnections:      64,
		ConnectionsPerSec:   20,
		ConnectionBurst:     40,
		MaxConnectionsPerIP: 16,
		IPConnectionsPerSec: 5,
		IPConnectionBurst:   20,
	}
}

// NewConnectionLimiter creates a connection limiter
func NewConnectionLimiter(config *ConnectionLimiterConfig) *ConnectionLimiter {
	if config == nil {
		config = DefaultConnectionLimiterConfig()
	}

	return &ConnectionLimiter{
		maxConnections:      config.MaxConnections,
		globalRate:          rate.NewLimiter(rate.Limit(config.ConnectionsPerSec), config.ConnectionBurst),
		maxConnectionsPerIP: config.MaxConnectionsPerIP,
		ipRate:              config.IPConnectionsPerSec,
		ipBurst:             config.IPConnectionBurst,
	}
}

// AllowConnection checks whether a new connection may be handled. On
// success the connection is counted until ReleaseConnection.
func (cl *ConnectionLimiter) AllowConnection(remoteAddr net.Addr) error {
	ip := extractIP(remoteAddr)

	if !cl.globalRate.Allow() {
		return fmt.Errorf("global connection rate exceeded")
	}

	if cl.currentConnections.Load() >= cl.maxConnections {
		return fmt.Errorf("max connections reached")
	}

	limit := cl.getIPLimit(ip)

	if limit.connections.Load() >= cl.maxConnectionsPerIP {
		return fmt.Errorf("per-IP connection limit exceeded")
	}

	if !limit.limiter.Allow() {
		return fmt.Errorf("per-IP rate limit exceeded")
	}

	cl.currentConnections.Add(1)
	limit.connections.Add(1)

	return nil
}

// ReleaseConnection frees the slots taken by AllowConnection.
func (cl *ConnectionLimiter) ReleaseConnection(remoteAddr net.Addr) {
	ip := extractIP(remoteAddr)

	cl.currentConnections.Add(-1)
	if v, ok := cl.perIP.Load(ip); ok {
		v.(*ipLimit).connections.Add(-1)
	}
}

// CurrentConnections returns the number of tracked connections.
func (cl *ConnectionLimiter) CurrentConnections() int {
	return int(cl.currentConnections.Load())
}

func (cl *ConnectionLimiter) getIPLimit(ip string) *ipLimit {
	if v, ok := cl.perIP.Load(ip); ok {
		return v.(*ipLimit)
	}

	limit := &ipLimit{
		limiter: rate.NewLimiter(rate.Limit(cl.ipRate), cl.ipBurst),
	}
	actual, _ := cl.perIP.LoadOrStore(ip, limit)
	return actual.(*ipLimit)
}

func extractIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}
		return host
	}
}
