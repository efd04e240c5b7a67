// Package swarm composes the libp2p transports, gossipsub, Kademlia DHT,
// mDNS discovery, and relay client into the peer stack the node event loop
// drives. Everything is wired up together at construction time rather than
// behind feature toggles: one libp2p.Host with all of its services enabled
// up front.
package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	connmgr "github.com/libp2p/go-libp2p/p2p/net/connmgr"
	p2pping "github.com/libp2p/go-libp2p/p2p/protocol/ping"
	libp2pquic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ws "github.com/libp2p/go-libp2p/p2p/transport/websocket"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/duskchat/dusk-node/internal/protocol"
)

// idleConnectionTimeout bounds how long an idle connection is kept open by
// the connection manager's grace period before it becomes a trim candidate.
const idleConnectionTimeout = 300 * time.Second

// Config describes how to build a Swarm. RelayAddr is optional; when set,
// the host is built with that relay as a static AutoRelay candidate and
// RelayInfo is populated on the resulting Swarm.
type Config struct {
	PrivateKey         crypto.PrivKey
	ListenAddrs        []string
	RelayAddr          string
	EnableNATPortMap   bool
	EnableHolePunching bool
}

// Swarm is the peer stack a single node drives: one libp2p host, its
// gossipsub router, its Kademlia DHT (used only for rendezvous discovery),
// and the derived routing-discovery and ping helpers.
type Swarm struct {
	Host      host.Host
	PubSub    *pubsub.PubSub
	DHT       *dht.IpfsDHT
	Discovery *drouting.RoutingDiscovery
	Ping      *p2pping.PingService
	RelayInfo *peer.AddrInfo

	relayAddr string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	subs   map[string]*pubsub.Subscription
}

// Build constructs the host and its attached services. The returned Swarm
// owns the host and must be closed with Close.
func Build(ctx context.Context, cfg Config) (*Swarm, error) {
	hostOpts := []libp2p.Option{
		libp2p.Identity(cfg.PrivateKey),
		libp2p.ProtocolVersion(protocol.IdentifyProtocolID),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Transport(libp2pquic.NewTransport),
		libp2p.Transport(ws.New),
		libp2p.EnableRelay(),
	}
	if len(cfg.ListenAddrs) > 0 {
		hostOpts = append(hostOpts, libp2p.ListenAddrStrings(cfg.ListenAddrs...))
	}

	var relayInfo *peer.AddrInfo
	if cfg.RelayAddr != "" {
		info, err := ParseRelayAddr(cfg.RelayAddr)
		if err != nil {
			return nil, fmt.Errorf("swarm: parse relay address: %w", err)
		}
		relayInfo = info
		hostOpts = append(hostOpts, libp2p.EnableAutoRelayWithStaticRelays([]peer.AddrInfo{*info}))
	}
	if cfg.EnableNATPortMap {
		hostOpts = append(hostOpts, libp2p.NATPortMap())
	}
	if cfg.EnableHolePunching {
		hostOpts = append(hostOpts, libp2p.EnableHolePunching())
	}

	cm, err := connmgr.NewConnManager(64, 256, connmgr.WithGracePeriod(idleConnectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("swarm: connection manager: %w", err)
	}
	hostOpts = append(hostOpts, libp2p.ConnectionManager(cm))

	h, err := libp2p.New(hostOpts...)
	if err != nil {
		return nil, fmt.Errorf("swarm: create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign),
		pubsub.WithMessageIdFn(messageIDFn),
		pubsub.WithGossipSubParams(gossipSubParams()),
	)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("swarm: create gossipsub: %w", err)
	}

	kad, err := dht.New(ctx, h, dht.Mode(dht.ModeAuto))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("swarm: create dht: %w", err)
	}
	if err := kad.Bootstrap(ctx); err != nil {
		h.Close()
		return nil, fmt.Errorf("swarm: bootstrap dht: %w", err)
	}

	s := &Swarm{
		Host:      h,
		PubSub:    ps,
		DHT:       kad,
		Discovery: drouting.NewRoutingDiscovery(kad),
		Ping:      p2pping.NewPingService(h),
		RelayInfo: relayInfo,
		relayAddr: cfg.RelayAddr,
		topics:    make(map[string]*pubsub.Topic),
		subs:      make(map[string]*pubsub.Subscription),
	}
	return s, nil
}

// Close tears down the DHT and the host, releasing all attached services.
func (s *Swarm) Close() error {
	s.mu.Lock()
	for t, sub := range s.subs {
		sub.Cancel()
		delete(s.subs, t)
	}
	for t, top := range s.topics {
		top.Close()
		delete(s.topics, t)
	}
	s.mu.Unlock()

	if s.DHT != nil {
		s.DHT.Close()
	}
	return s.Host.Close()
}

// ParseRelayAddr decodes a /p2p-circuit-capable multiaddr string into the
// AddrInfo libp2p's relay and discovery APIs expect.
func ParseRelayAddr(addr string) (*peer.AddrInfo, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, fmt.Errorf("swarm: invalid relay multiaddr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return nil, fmt.Errorf("swarm: relay multiaddr missing peer id: %w", err)
	}
	return info, nil
}
