package swarm

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/zeroconf/v2"
	ma "github.com/multiformats/go-multiaddr"
)

const (
	mdnsServiceName    = "_dusk._udp"
	mdnsBrowseInterval = 30 * time.Second
	mdnsBrowseTimeout  = 10 * time.Second
	mdnsDedupeInterval = 30 * time.Second
	dnsaddrPrefix      = "dnsaddr="
)

// PeerFoundFunc receives one batch of newly-discovered peers per browse
// round. The node dials each peer in the batch; RequestSync and the profile
// announcement are published once per new connection, not once per batch.
type PeerFoundFunc func(batch []peer.AddrInfo)

// MDNS advertises this host on the LAN and periodically browses for peers
// advertising the same service name. It drives zeroconf directly, skipping
// the platform-specific native-browse split in favor of the pure-Go path.
type MDNS struct {
	host    host.Host
	onFound PeerFoundFunc

	server *zeroconf.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastTry map[peer.ID]time.Time
}

// NewMDNS returns an MDNS for h that reports discovered batches to onFound.
func NewMDNS(h host.Host, onFound PeerFoundFunc) *MDNS {
	return &MDNS{host: h, onFound: onFound, lastTry: make(map[peer.ID]time.Time)}
}

// Start registers the LAN service record and begins the browse loop.
func (m *MDNS) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	if err := m.startServer(); err != nil {
		return err
	}
	m.wg.Add(1)
	go m.browseLoop()
	return nil
}

// Close stops browsing and withdraws the service record.
func (m *MDNS) Close() error {
	m.cancel()
	if m.server != nil {
		m.server.Shutdown()
	}
	m.wg.Wait()
	return nil
}

func (m *MDNS) startServer() error {
	interfaceAddrs, err := m.host.Network().InterfaceListenAddresses()
	if err != nil {
		return err
	}
	p2pAddrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: m.host.ID(), Addrs: interfaceAddrs})
	if err != nil {
		return err
	}
	txts := make([]string, 0, len(p2pAddrs))
	for _, addr := range p2pAddrs {
		txts = append(txts, dnsaddrPrefix+addr.String())
	}

	name := randomInstanceName()
	server, err := zeroconf.RegisterProxy(name, mdnsServiceName, "local.", 4001, name, nil, txts, nil)
	if err != nil {
		return err
	}
	m.server = server
	return nil
}

func (m *MDNS) browseLoop() {
	defer m.wg.Done()

	select {
	case <-time.After(2 * time.Second):
	case <-m.ctx.Done():
		return
	}
	m.runBrowse()

	ticker := time.NewTicker(mdnsBrowseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.runBrowse()
		}
	}
}

func (m *MDNS) runBrowse() {
	browseCtx, cancel := context.WithTimeout(m.ctx, mdnsBrowseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	go func() {
		if err := zeroconf.Browse(browseCtx, mdnsServiceName, "local.", entries); err != nil && m.ctx.Err() == nil {
			slog.Debug("mdns browse failed", "error", err)
		}
	}()

	var batch []peer.AddrInfo
	for entry := range entries {
		if info, ok := m.parseEntry(entry); ok {
			batch = append(batch, info)
		}
	}
	if len(batch) > 0 && m.onFound != nil {
		m.onFound(batch)
	}
}

func (m *MDNS) parseEntry(entry *zeroconf.ServiceEntry) (peer.AddrInfo, bool) {
	var addrs []ma.Multiaddr
	for _, txt := range entry.Text {
		if !strings.HasPrefix(txt, dnsaddrPrefix) {
			continue
		}
		addr, err := ma.NewMultiaddr(txt[len(dnsaddrPrefix):])
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return peer.AddrInfo{}, false
	}
	infos, err := peer.AddrInfosFromP2pAddrs(addrs...)
	if err != nil || len(infos) == 0 {
		return peer.AddrInfo{}, false
	}
	info := infos[0]
	if info.ID == m.host.ID() {
		return peer.AddrInfo{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastTry[info.ID]; ok && time.Since(last) < mdnsDedupeInterval {
		return peer.AddrInfo{}, false
	}
	m.lastTry[info.ID] = time.Now()
	return info, true
}

func randomInstanceName() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 24)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}
