package node

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	ma "github.com/multiformats/go-multiaddr"
)

// connEvent carries a connectedness transition from the libp2p network
// notifiee into the event loop.
type connEvent struct {
	Peer      peer.ID
	Connected bool
}

type connNotifiee struct {
	n *Node
}

func newConnNotifiee(n *Node) network.Notifiee {
	return &connNotifiee{n: n}
}

func (c *connNotifiee) Connected(_ network.Network, conn network.Conn) {
	c.send(conn.RemotePeer(), true)
}

func (c *connNotifiee) Disconnected(_ network.Network, conn network.Conn) {
	c.send(conn.RemotePeer(), false)
}

func (c *connNotifiee) Listen(network.Network, ma.Multiaddr)      {}
func (c *connNotifiee) ListenClose(network.Network, ma.Multiaddr) {}

func (c *connNotifiee) send(pid peer.ID, connected bool) {
	select {
	case c.n.connCh <- connEvent{Peer: pid, Connected: connected}:
	case <-c.n.ctx.Done():
	}
}

// handleConnEvent implements the connection-established / connection-closed
// transition: it updates connectivity bookkeeping, triggers a sync request
// and profile (re)announcement on a fresh connection, starts relay-specific
// bookkeeping, and on loss of the last link to a peer cleans up voice
// participation and emits the disconnect event.
func (n *Node) handleConnEvent(ev connEvent) {
	if ev.Connected {
		n.onPeerConnected(ev.Peer)
		return
	}

	if n.sw.Host.Network().Connectedness(ev.Peer) == network.Connected {
		// Another connection to this peer remains open.
		return
	}
	n.onPeerDisconnected(ev.Peer)
}

func (n *Node) onPeerConnected(pid peer.ID) {
	alreadyConnected := n.connected[pid]
	n.connected[pid] = true

	if n.sw.RelayInfo != nil && pid == n.sw.RelayInfo.ID {
		n.onRelayConnected()
	}

	if alreadyConnected {
		return
	}

	n.emit(PeerConnected{PeerID: pid.String()})
	n.emit(NodeStatus{ConnectedPeers: len(n.connected)})
	if n.metrics != nil {
		n.metrics.ConnectedPeers.WithLabelValues().Set(float64(len(n.connected)))
	}

	ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
	defer cancel()

	req := gossipMessageSyncRequest(n.LocalPeerID().String())
	if data, err := req.Marshal(); err == nil {
		_ = n.sw.Publish(ctx, syncTopicName, data)
	}

	isRelay := n.sw.RelayInfo != nil && pid == n.sw.RelayInfo.ID
	if !isRelay {
		n.publishProfileAnnouncement(ctx)
	}
}

func (n *Node) onPeerDisconnected(pid peer.ID) {
	delete(n.connected, pid)

	n.emit(PeerDisconnected{PeerID: pid.String()})
	n.emit(NodeStatus{ConnectedPeers: len(n.connected)})
	if n.metrics != nil {
		n.metrics.ConnectedPeers.WithLabelValues().Set(float64(len(n.connected)))
	}

	for _, pair := range n.voice.RemovePeerEverywhere(pid.String()) {
		n.emit(VoiceParticipantLeft{CommunityID: pair[0], ChannelID: pair[1], PeerID: pid.String()})
	}

	if n.sw.RelayInfo != nil && pid == n.sw.RelayInfo.ID {
		n.relayReservationActive = false
		n.bumpRelayBackoff()
	}
}
