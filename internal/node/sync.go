package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/topic"
)

// gossipMessageSyncRequest builds the RequestSync envelope published on
// dusk/sync whenever this node wants every other participant to offer its
// known community documents.
func gossipMessageSyncRequest(peerID string) protocol.SyncMessage {
	return protocol.SyncMessage{RequestSync: &protocol.RequestSyncPayload{PeerID: peerID}}
}

// handleSyncMessage processes one message received on the global sync
// topic.
func (n *Node) handleSyncMessage(msg gossipMsg) {
	sm, err := protocol.UnmarshalSyncMessage(msg.Data)
	if err != nil {
		if n.metrics != nil {
			n.metrics.GossipDecodeErrors.WithLabelValues("sync").Inc()
		}
		return
	}

	switch {
	case sm.RequestSync != nil:
		n.handleRequestSync()
	case sm.DocumentOffer != nil:
		n.handleDocumentOffer(sm.DocumentOffer)
	}
}

// handleRequestSync offers every locally known community document back on
// dusk/sync in response to a peer's RequestSync.
func (n *Node) handleRequestSync() {
	for _, cid := range n.crdt.CommunityIDs() {
		n.offerDocument(cid)
	}
}

func (n *Node) offerDocument(cid string) {
	data, err := n.crdt.GetDocBytes(cid)
	if err != nil {
		return
	}
	offer := protocol.SyncMessage{DocumentOffer: &protocol.DocumentOfferPayload{CommunityID: cid, DocBytes: data}}
	payload, err := offer.Marshal()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
	defer cancel()
	if err := n.sw.Publish(ctx, syncTopicName, payload); err != nil {
		slog.Debug("publish document offer failed", "community", cid, "error", err)
	}
}

// handleDocumentOffer merges a remote snapshot into the matching local
// document. A DocumentOffer for a community this node has no local
// document for is discarded without creating any state — this also covers
// a community the local peer has explicitly left, since leave_community
// removes the document and there is no separate re-creation path that a
// stray late offer could trigger.
func (n *Node) handleDocumentOffer(offer *protocol.DocumentOfferPayload) {
	cid := offer.CommunityID
	if n.leftCommunities[cid] {
		return
	}
	if !n.crdt.HasCommunity(cid) {
		if n.metrics != nil {
			n.metrics.SyncMergeRejected.WithLabelValues().Inc()
		}
		return
	}

	if err := n.crdt.MergeRemoteDoc(cid, offer.DocBytes); err != nil {
		slog.Debug("merge remote doc failed", "community", cid, "error", err)
		return
	}
	if n.metrics != nil {
		n.metrics.SyncMergesTotal.WithLabelValues(cid).Inc()
	}

	if n.pendingJoinRoleGuard[cid] {
		n.enforceJoinRoleGuard(cid)
	}

	n.resubscribeCommunityTopics(cid)
	n.emit(SyncComplete{CommunityID: cid})
}

// enforceJoinRoleGuard downgrades the local peer's role to member exactly
// once after the first merge following a join_community call, in case the
// placeholder document happened to carry this peer as owner/admin before
// the authoritative community snapshot arrived. The corrected snapshot is
// rebroadcast so other peers converge on the downgrade too.
func (n *Node) enforceJoinRoleGuard(cid string) {
	defer delete(n.pendingJoinRoleGuard, cid)

	members, err := n.crdt.GetMembers(cid)
	if err != nil {
		return
	}
	local := n.LocalPeerID().String()
	elevated := false
	for _, m := range members {
		if m.PeerID != local {
			continue
		}
		for _, r := range m.Roles {
			if r == crdt.RoleOwner || r == crdt.RoleAdmin {
				elevated = true
			}
		}
	}
	if !elevated {
		return
	}

	if err := n.crdt.SetMemberRole(cid, local, []string{crdt.RoleMember}, local); err != nil {
		slog.Warn("join role guard downgrade failed", "community", cid, "error", err)
		return
	}
	n.offerDocument(cid)
}

// resubscribeCommunityTopics subscribes to every channel's messages+typing
// topics plus the community presence topic. Called after a merge, since
// the remote snapshot may have introduced channels this node wasn't yet
// subscribed to.
func (n *Node) resubscribeCommunityTopics(cid string) {
	channels, err := n.crdt.GetChannels(cid)
	if err != nil {
		return
	}
	_ = n.subscribeTopic(topic.CommunityPresence(cid), n.gossipCh)
	for _, ch := range channels {
		_ = n.subscribeTopic(topic.CommunityMessages(cid, ch.ID), n.gossipCh)
		_ = n.subscribeTopic(topic.CommunityTyping(cid, ch.ID), n.gossipCh)
	}
}
