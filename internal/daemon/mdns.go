package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// MDNSServiceType is the mDNS service type advertised by listeners
	MDNSServiceType = "_drowse._tcp"

	// MDNSDomain is the mDNS domain
	MDNSDomain = "local."

	// MDNSBrowseInterval is how often the watcher rescans for listeners
	MDNSBrowseInterval = 30 * time.Second

	// mdnsBrowseWindow bounds a single browse pass
	mdnsBrowseWindow = 5 * time.Second
)

// DiscoveredListener is a peer listener found via mDNS
type DiscoveredListener struct {
	Instance     string
	ID           string
	Host         string
	Port         int
	DiscoveredAt time.Time
}

// Addr returns the listener's dialable address.
func (d *DiscoveredListener) Addr() string {
	return net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))
}

// MDNSService advertises the local signal listener and discovers peer
// listeners on the LAN. The watch role uses the most recently discovered
// listener when no static peer is configured.
type MDNSService struct {
	instanceName string
	instanceID   string
	port         int
	advertise    bool

	mu      sync.RWMutex
	running bool
	server  *zeroconf.Server
	current *DiscoveredListener

	ctx    context.Context
	cancel context.CancelFunc
}

// NewMDNSService creates an mDNS service. port and advertise describe
// the local listener; discovery runs regardless.
func NewMDNSService(instanceName, instanceID string, port int, advertise bool) *MDNSService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MDNSService{
		instanceName: instanceName,
		instanceID:   instanceID,
		port:         port,
		advertise:    advertise,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins advertising and browsing.
func (m *MDNSService) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.mu.Unlock()

	slog.Info("mDNS service starting",
		"instance", m.instanceName,
		"advertise", m.advertise,
		"port", m.port,
	)

	if m.advertise {
		if err := m.startAdvertising(); err != nil {
			// Discovery still works without advertising
			slog.Warn("failed to start mDNS advertising", "error", err)
		}
	}

	go m.discoveryLoop()

	return nil
}

// Stop shuts the service down.
func (m *MDNSService) Stop() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		m.server.Shutdown()
		m.server = nil
	}
	m.running = false
}

// PeerAddr returns the most recently discovered peer listener address.
func (m *MDNSService) PeerAddr() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Addr(), true
}

func (m *MDNSService) startAdvertising() error {
	txt := []string{
		fmt.Sprintf("id=%s", m.instanceID),
		"v=1",
	}

	server, err := zeroconf.Register(
		m.instanceName,
		MDNSServiceType,
		MDNSDomain,
		m.port,
		txt,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register mDNS service: %w", err)
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	return nil
}

// discoveryLoop browses for peer listeners on a fixed cadence.
func (m *MDNSService) discoveryLoop() {
	m.browse()

	ticker := time.NewTicker(MDNSBrowseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.browse()
		}
	}
}

func (m *MDNSService) browse() {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		slog.Warn("mDNS resolver failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, mdnsBrowseWindow)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	go func() {
		for entry := range entries {
			m.handleEntry(entry)
		}
	}()

	if err := resolver.Browse(ctx, MDNSServiceType, MDNSDomain, entries); err != nil {
		slog.Warn("mDNS browse failed", "error", err)
		return
	}

	<-ctx.Done()
}

func (m *MDNSService) handleEntry(entry *zeroconf.ServiceEntry) {
	id := txtValue(entry.Text, "id")

	// Skip our own advertisement
	if id != "" && id == m.instanceID {
		return
	}

	host := ""
	if len(entry.AddrIPv4) > 0 {
		host = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		host = entry.AddrIPv6[0].String()
	} else {
		host = strings.TrimSuffix(entry.HostName, ".")
	}
	if host == "" || entry.Port == 0 {
		return
	}

	discovered := &DiscoveredListener{
		Instance:     entry.Instance,
		ID:           id,
		Host:         host,
		Port:         entry.Port,
		DiscoveredAt: time.Now(),
	}

	m.mu.Lock()
	fresh := m.current == nil || m.current.ID != discovered.ID || m.current.Addr() != discovered.Addr()
	m.current = discovered
	m.mu.Unlock()

	if fresh {
		slog.Info("mDNS discovered peer listener",
			"instance", discovered.Instance,
			"addr", discovered.Addr(),
		)
	}
}

func txtValue(txt []string, key string) string {
	prefix := key + "="
	for _, record := range txt {
		if strings.HasPrefix(record, prefix) {
			return strings.TrimPrefix(record, prefix)
		}
	}
	return ""
}
