package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/storage"
	"github.com/duskchat/dusk-node/internal/swarm"
	"github.com/duskchat/dusk-node/internal/topic"
)

// scheduleRelayDial kicks off the first relay connection attempt
// immediately rather than waiting for the retry timer.
func (n *Node) scheduleRelayDial() {
	n.relayRetryTimer.Reset(0)
}

// fireRelayRetry is called when the retry timer elapses. It attempts to
// reserve a circuit at the relay; on failure it reschedules with doubled
// backoff, capped at relayBackoffCap.
func (n *Node) fireRelayRetry() {
	if n.sw.RelayInfo == nil {
		return
	}
	if n.connected[n.sw.RelayInfo.ID] && n.relayReservationActive {
		return
	}

	ctx, cancel := context.WithTimeout(n.ctx, 15*time.Second)
	_, err := n.sw.ReserveRelay(ctx)
	cancel()
	if err != nil {
		slog.Debug("relay dial failed", "error", err)
		n.bumpRelayBackoff()
		return
	}

	n.onRelayReservationAccepted()
}

func (n *Node) bumpRelayBackoff() {
	if n.metrics != nil {
		n.metrics.RelayReconnectsTotal.WithLabelValues("failure").Inc()
		n.metrics.RelayBackoffSeconds.WithLabelValues().Set(n.backoff.Seconds())
	}
	n.relayRetryTimer.Reset(n.backoff)
	if !n.relayWarnPending {
		n.relayWarnPending = true
		n.relayWarnTimer.Reset(relayWarnGrace)
	}
	n.backoff *= 2
	if n.backoff > relayBackoffCap {
		n.backoff = relayBackoffCap
	}
}

// fireRelayWarn surfaces the user-visible "relay unreachable" status once
// the grace period elapses with the relay still disconnected.
func (n *Node) fireRelayWarn() {
	n.relayWarnPending = false
	if !n.relayReservationActive {
		n.emit(RelayStatus{Connected: false})
		if n.audit != nil {
			n.audit.RelayStatusChanged(false)
		}
		if n.metrics != nil {
			n.metrics.RelayConnected.WithLabelValues().Set(0)
		}
	}
}

// onRelayConnected handles the connection-established effects for the
// relay peer when no reservation is active yet: the transport link is up,
// so backoff resets, any pending warn is cancelled, the user-visible
// status flips to connected, and the host starts listening on the circuit
// address. The reservation-specific effects (flag set, queue drain,
// profile republish) wait for the reservation itself to be accepted.
func (n *Node) onRelayConnected() {
	if n.relayReservationActive {
		return
	}
	n.backoff = relayBackoffBase
	n.relayWarnPending = false
	n.relayWarnTimer.Stop()

	n.emit(RelayStatus{Connected: true})
	if n.audit != nil {
		n.audit.RelayStatusChanged(true)
	}
	if n.metrics != nil {
		n.metrics.RelayConnected.WithLabelValues().Set(1)
	}

	if err := n.sw.ListenCircuit(); err != nil {
		slog.Debug("listen on circuit address failed", "error", err)
	}
}

// onRelayReservationAccepted resets backoff state, drains any queued
// rendezvous ops, and republishes the profile announcement so WAN peers
// learn of this node now that it's reachable through the relay. Called
// only when ReserveRelay actually succeeded — a relay that accepts the
// connection but denies the reservation must keep the retry timer alive.
func (n *Node) onRelayReservationAccepted() {
	n.relayReservationActive = true
	n.relayWarnPending = false
	n.relayWarnTimer.Stop()
	n.backoff = relayBackoffBase
	n.relayRetryTimer.Stop()

	n.emit(RelayStatus{Connected: true})
	if n.audit != nil {
		n.audit.RelayStatusChanged(true)
	}
	if n.metrics != nil {
		n.metrics.RelayConnected.WithLabelValues().Set(1)
		n.metrics.RelayReconnectsTotal.WithLabelValues("success").Inc()
	}

	n.drainPendingRendezvous()
	n.publishOwnProfileAnnouncement()
}

func (n *Node) drainPendingRendezvous() {
	for _, ns := range n.pendingRegistrations {
		n.issueRegisterRendezvous(ns)
	}
	n.pendingRegistrations = nil
	n.pendingRegSince = time.Time{}

	for _, ns := range n.pendingDiscoveries {
		n.issueDiscoverRendezvous(ns)
	}
	n.pendingDiscoveries = nil
	n.pendingDiscSince = time.Time{}
}

func (n *Node) requestRegisterRendezvous(ns string) {
	if n.relayReservationActive {
		n.issueRegisterRendezvous(ns)
		return
	}
	if len(n.pendingRegistrations) == 0 {
		n.pendingRegSince = time.Now()
	}
	n.pendingRegistrations = append(n.pendingRegistrations, ns)
}

func (n *Node) requestDiscoverRendezvous(ns string) {
	if n.relayReservationActive {
		n.issueDiscoverRendezvous(ns)
		return
	}
	if len(n.pendingDiscoveries) == 0 {
		n.pendingDiscSince = time.Now()
	}
	n.pendingDiscoveries = append(n.pendingDiscoveries, ns)
}

// unregisterRendezvous drops ns from both pending queues and the
// registered set. A DHT advertisement cannot be retracted; dropping ns from
// registeredNamespaces stops the 120s refresh from renewing it, and the
// advertisement expires on its own TTL.
func (n *Node) unregisterRendezvous(ns string) {
	n.pendingRegistrations = removeString(n.pendingRegistrations, ns)
	n.pendingDiscoveries = removeString(n.pendingDiscoveries, ns)
	delete(n.registeredNamespaces, ns)
}

func (n *Node) issueRegisterRendezvous(ns string) {
	ctx, cancel := context.WithTimeout(n.ctx, 10*time.Second)
	defer cancel()
	if _, err := n.sw.RegisterRendezvous(ctx, ns); err != nil {
		slog.Debug("rendezvous register failed", "namespace", ns, "error", err)
		return
	}
	n.registeredNamespaces[ns] = true
	if n.metrics != nil {
		n.metrics.RendezvousRegisteredTotal.WithLabelValues().Inc()
	}
}

func (n *Node) issueDiscoverRendezvous(ns string) {
	ctx, cancel := context.WithTimeout(n.ctx, 10*time.Second)
	defer cancel()
	infos, err := n.sw.DiscoverRendezvous(ctx, ns)
	if err != nil {
		slog.Debug("rendezvous discover failed", "namespace", ns, "error", err)
		return
	}
	n.handleRendezvousDiscovered(infos)
}

// refreshRendezvous re-advertises every registered namespace on the 120s
// tick, and clears pending queues that have been waiting past their TTL.
func (n *Node) refreshRendezvous() {
	if n.relayReservationActive {
		for ns := range n.registeredNamespaces {
			n.issueRegisterRendezvous(ns)
		}
	}
	if !n.pendingRegSince.IsZero() && time.Since(n.pendingRegSince) > pendingQueueTTL {
		n.pendingRegistrations = nil
		n.pendingRegSince = time.Time{}
	}
	if !n.pendingDiscSince.IsZero() && time.Since(n.pendingDiscSince) > pendingQueueTTL {
		n.pendingDiscoveries = nil
		n.pendingDiscSince = time.Time{}
	}
}

func (n *Node) handleRendezvousDiscovered(infos []peer.AddrInfo) {
	var relayID peer.ID
	if n.sw.RelayInfo != nil {
		relayID = n.sw.RelayInfo.ID
	}
	for _, info := range infos {
		if info.ID == n.LocalPeerID() || info.ID == relayID {
			continue
		}
		if _, err := n.store.LoadDirectoryEntry(info.ID.String()); err != nil {
			_ = n.store.SaveDirectoryEntryIfNew(storage.DirectoryEntry{
				PeerID:   info.ID.String(),
				LastSeen: time.Now().UnixMilli(),
			})
		}
		if n.sw.RelayInfo != nil {
			addr := swarm.CircuitAddr(n.relayAddr, info.ID)
			if err := n.dialAddrString(addr); err != nil {
				slog.Debug("rendezvous circuit dial failed", "peer", info.ID, "error", err)
			}
		}
		if n.metrics != nil {
			n.metrics.RendezvousDiscoveredTotal.WithLabelValues().Inc()
		}
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// handleDialCommand dials an explicit multiaddr string (used by
// set_relay_address's restart path and ad hoc peer dials).
func (n *Node) handleDialCommand(addr string) {
	if err := n.dialAddrString(addr); err != nil {
		slog.Debug("dial failed", "addr", addr, "error", err)
	}
}

func (n *Node) publishOwnProfileAnnouncement() {
	ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
	defer cancel()
	n.publishProfileAnnouncement(ctx)
}

func (n *Node) broadcastPresence(status protocol.PresenceStatus) {
	local := n.LocalPeerID().String()
	for _, cid := range n.crdt.CommunityIDs() {
		msg := protocol.GossipMessage{Presence: &protocol.PresenceUpdate{
			CommunityID: cid,
			PeerID:      local,
			Status:      status,
		}}
		data, err := msg.Marshal()
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
		_ = n.sw.Publish(ctx, topic.CommunityPresence(cid), data)
		cancel()
	}
}
