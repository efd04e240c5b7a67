package node

import (
	"log/slog"
	"time"

	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/envelope"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/storage"
	"github.com/duskchat/dusk-node/internal/topic"
	"github.com/duskchat/dusk-node/internal/voice"
)

// handleCommunityGossip dispatches one message received on a community,
// directory, voice, or DM topic to the matching GossipMessage variant
// handler. Every decode is fallible and every handler is self-contained:
// a malformed or adversarial payload is dropped, never propagated into a
// panic or a half-applied mutation.
func (n *Node) handleCommunityGossip(msg gossipMsg) {
	gm, err := protocol.UnmarshalGossipMessage(msg.Data)
	if err != nil {
		if n.metrics != nil {
			n.metrics.GossipDecodeErrors.WithLabelValues("community").Inc()
		}
		return
	}

	if n.metrics != nil {
		n.metrics.GossipReceivedTotal.WithLabelValues(gossipVariant(gm)).Inc()
	}

	switch {
	case gm.Chat != nil:
		n.handleChat(msg.Topic, gm.Chat)
	case gm.Typing != nil:
		n.handleTyping(gm.Typing)
	case gm.DeleteMessage != nil:
		n.handleDeleteMessage(gm.DeleteMessage)
	case gm.MemberKicked != nil:
		n.handleMemberKicked(gm.MemberKicked)
	case gm.Presence != nil:
		n.handlePresence(gm.Presence)
	case gm.MetaUpdate != nil:
		n.emit(SyncComplete{CommunityID: gm.MetaUpdate.CommunityID})
	case gm.ProfileAnnounce != nil:
		n.handleProfileAnnounce(gm.ProfileAnnounce)
	case gm.ProfileRevoke != nil:
		n.handleProfileRevoke(gm.ProfileRevoke)
	case gm.VoiceJoin != nil:
		n.handleVoiceJoin(gm.VoiceJoin)
	case gm.VoiceLeave != nil:
		n.handleVoiceLeave(gm.VoiceLeave)
	case gm.VoiceMediaStateUpdate != nil:
		n.handleVoiceMediaStateUpdate(gm.VoiceMediaStateUpdate)
	case gm.VoiceSdp != nil:
		n.handleVoiceSdp(gm.VoiceSdp)
	case gm.VoiceIceCandidate != nil:
		n.handleVoiceIceCandidate(gm.VoiceIceCandidate)
	case gm.DirectMessage != nil:
		n.handleDirectMessage(msg.Topic, gm.DirectMessage)
	case gm.DMTyping != nil:
		n.handleDMTyping(gm.DMTyping)
	}
}

func gossipVariant(gm *protocol.GossipMessage) string {
	switch {
	case gm.Chat != nil:
		return "chat"
	case gm.Typing != nil:
		return "typing"
	case gm.DeleteMessage != nil:
		return "delete_message"
	case gm.MemberKicked != nil:
		return "member_kicked"
	case gm.Presence != nil:
		return "presence"
	case gm.MetaUpdate != nil:
		return "meta_update"
	case gm.ProfileAnnounce != nil:
		return "profile_announce"
	case gm.ProfileRevoke != nil:
		return "profile_revoke"
	case gm.VoiceJoin != nil:
		return "voice_join"
	case gm.VoiceLeave != nil:
		return "voice_leave"
	case gm.VoiceMediaStateUpdate != nil:
		return "voice_media_state_update"
	case gm.VoiceSdp != nil:
		return "voice_sdp"
	case gm.VoiceIceCandidate != nil:
		return "voice_ice_candidate"
	case gm.DirectMessage != nil:
		return "direct_message"
	case gm.DMTyping != nil:
		return "dm_typing"
	default:
		return "unknown"
	}
}

func (n *Node) handleChat(topicName string, msg *protocol.ChatMessage) {
	cid, ok := topic.CommunityIDFromTopic(topicName)
	if !ok {
		return
	}
	if err := n.crdt.AppendMessage(cid, crdt.Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}); err != nil {
		slog.Debug("append remote message failed", "community", cid, "error", err)
		return
	}
	n.emit(MessageReceived{Message: *msg})
}

func (n *Node) handleTyping(ind *protocol.TypingIndicator) {
	n.emit(Typing{PeerID: ind.PeerID, ChannelID: ind.ChannelID})
}

func (n *Node) handleDeleteMessage(p *protocol.DeleteMessagePayload) {
	if err := n.crdt.DeleteMessage(p.CommunityID, p.MessageID); err != nil {
		slog.Debug("remote delete message failed", "community", p.CommunityID, "error", err)
		return
	}
	n.emit(MessageDeleted{CommunityID: p.CommunityID, MessageID: p.MessageID})
}

func (n *Node) handleMemberKicked(p *protocol.MemberKickedPayload) {
	if err := n.crdt.RemoveMember(p.CommunityID, p.PeerID); err != nil {
		slog.Debug("remote member kick failed", "community", p.CommunityID, "error", err)
		return
	}
	n.emit(MemberKicked{CommunityID: p.CommunityID, PeerID: p.PeerID})
}

func (n *Node) handlePresence(p *protocol.PresenceUpdate) {
	n.emit(PresenceUpdated{Update: *p})
	if p.Status == protocol.PresenceOffline {
		n.emit(PeerDisconnected{PeerID: p.PeerID})
		return
	}
	n.emit(PeerConnected{PeerID: p.PeerID})
}

// handleProfileAnnounce verifies the signature against the announcement's
// own embedded public key and rejects announcements with no verification
// proof, before any directory side effect. is_friend is always submitted
// as false: SaveDirectoryEntryIfNew ignores it on the update path and
// preserves whatever was already stored, and a first-seen peer has no
// existing friend flag to preserve.
func (n *Node) handleProfileAnnounce(a *envelope.ProfileAnnouncement) {
	if !envelope.VerifyAnnouncement(a) {
		if n.audit != nil {
			n.audit.ProfileRejected(a.PeerID, "signature verification failed")
		}
		return
	}
	if a.VerificationProof == "" {
		if n.audit != nil {
			n.audit.ProfileRejected(a.PeerID, "missing verification proof")
		}
		return
	}
	if n.audit != nil {
		n.audit.ProfileVerified(a.PeerID)
	}

	err := n.store.SaveDirectoryEntryIfNew(storage.DirectoryEntry{
		PeerID:      a.PeerID,
		DisplayName: a.DisplayName,
		Bio:         a.Bio,
		PublicKey:   a.PublicKey,
		LastSeen:    time.Now().UnixMilli(),
		IsFriend:    false,
	})
	if err != nil {
		slog.Warn("save directory entry failed", "peer", a.PeerID, "error", err)
		return
	}
	n.emit(ProfileReceived{Announcement: *a})
}

func (n *Node) handleProfileRevoke(r *envelope.ProfileRevocation) {
	if !envelope.VerifyRevocation(r) {
		if n.audit != nil {
			n.audit.ProfileRejected(r.PeerID, "revocation signature verification failed")
		}
		return
	}
	if err := n.store.RemoveDirectoryEntry(r.PeerID); err != nil {
		slog.Warn("remove directory entry failed", "peer", r.PeerID, "error", err)
		return
	}
	n.emit(ProfileRevoked{PeerID: r.PeerID})
}

func (n *Node) handleVoiceJoin(p *protocol.VoiceJoinPayload) {
	participant := voice.Participant{PeerID: p.PeerID, DisplayName: p.DisplayName, MediaState: p.MediaState}
	n.voice.Join(p.CommunityID, p.ChannelID, participant)
	n.emit(VoiceJoined{CommunityID: p.CommunityID, ChannelID: p.ChannelID, Participant: participant})
}

func (n *Node) handleVoiceLeave(p *protocol.VoiceLeavePayload) {
	if n.voice.Leave(p.CommunityID, p.ChannelID, p.PeerID) {
		n.emit(VoiceLeft{CommunityID: p.CommunityID, ChannelID: p.ChannelID, PeerID: p.PeerID})
	}
}

func (n *Node) handleVoiceMediaStateUpdate(p *protocol.VoiceMediaStateUpdatePayload) {
	if n.voice.UpdateMediaState(p.CommunityID, p.ChannelID, p.PeerID, p.MediaState) {
		n.emit(VoiceMediaStateUpdated{
			CommunityID: p.CommunityID,
			ChannelID:   p.ChannelID,
			PeerID:      p.PeerID,
			MediaState:  p.MediaState,
		})
	}
}

func (n *Node) handleVoiceSdp(p *protocol.VoiceSdpPayload) {
	if p.ToPeer != n.LocalPeerID().String() {
		return
	}
	n.emit(VoiceSdp{Payload: *p})
}

func (n *Node) handleVoiceIceCandidate(p *protocol.VoiceIceCandidatePayload) {
	if p.ToPeer != n.LocalPeerID().String() {
		return
	}
	n.emit(VoiceIceCandidate{Payload: *p})
}

// handleDirectMessage delivers a DM addressed to the local peer, deduping
// against whichever topic (pair or personal inbox) it arrives on first —
// spec requires append_dm_message observe a given message ID at most once
// even though both topics can carry it.
func (n *Node) handleDirectMessage(topicName string, dm *protocol.DirectMessage) {
	local := n.LocalPeerID().String()
	if dm.ToPeer != local {
		return
	}
	if n.dmDedup.SeenOrAdd(dm.ID) {
		if n.metrics != nil {
			n.metrics.DMDedupDropsTotal.WithLabelValues().Inc()
		}
		return
	}

	if topicName == topic.DMInbox(local) {
		_ = n.subscribeTopic(topic.DMPair(dm.FromPeer, dm.ToPeer), n.gossipCh)
	}

	convID := topic.ConversationID(dm.FromPeer, dm.ToPeer)
	peerDisplayName := dm.FromPeer
	if entry, err := n.store.LoadDirectoryEntry(dm.FromPeer); err == nil && entry.DisplayName != "" {
		peerDisplayName = entry.DisplayName
	}

	if err := n.store.AppendDMMessage(convID, *dm, peerDisplayName); err != nil {
		slog.Warn("persist dm failed", "conversation", convID, "error", err)
		return
	}

	conv, err := n.store.LoadDMConversation(convID)
	if err != nil {
		conv = storage.DMConversation{ConversationID: convID, PeerID: dm.FromPeer}
	}
	conv.PeerDisplayName = peerDisplayName
	conv.LastMessagePreview = dm.Content
	conv.LastMessageTime = dm.Timestamp
	conv.UnreadCount++
	if err := n.store.SaveDMConversation(conv); err != nil {
		slog.Warn("save dm conversation failed", "conversation", convID, "error", err)
	}

	n.emit(DMReceived{Message: *dm})
}

func (n *Node) handleDMTyping(ind *protocol.DMTypingIndicator) {
	if ind.ToPeer != n.LocalPeerID().String() {
		return
	}
	n.emit(DMTyping{PeerID: ind.FromPeer})
}
