package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
)

// mdnsDialTimeout bounds each LAN-discovered peer dial so one unreachable
// peer can't stall the rest of the batch.
const mdnsDialTimeout = 10 * time.Second

// handleMDNSBatch processes one batch of peers discovered via LAN
// multicast: each is dialed, which seeds the peerstore and brings it into
// the gossipsub mesh and connected-peer set, and added to the Kademlia
// routing table for subsequent lookups. A newly established connection
// triggers the same connNotifiee path as any other dial (PeerConnected,
// RequestSync, profile announcement), so no separate batch-level
// publish is needed here.
func (n *Node) handleMDNSBatch(batch []peer.AddrInfo) {
	local := n.LocalPeerID()
	for _, info := range batch {
		if info.ID == local {
			continue
		}
		n.sw.Host.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.TempAddrTTL)

		ctx, cancel := context.WithTimeout(n.ctx, mdnsDialTimeout)
		err := n.sw.Host.Connect(ctx, info)
		cancel()
		if err != nil {
			slog.Debug("mdns dial failed", "peer", info.ID, "error", err)
			if n.metrics != nil {
				n.metrics.MDNSDiscoveredTotal.WithLabelValues("dial_failed").Inc()
			}
			continue
		}
		if n.metrics != nil {
			n.metrics.MDNSDiscoveredTotal.WithLabelValues("connected").Inc()
		}
		if n.sw.DHT != nil {
			_, _ = n.sw.DHT.RoutingTable().TryAddPeer(info.ID, false, false)
		}
	}
}
