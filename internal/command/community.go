package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/invite"
	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/topic"
	"github.com/duskchat/dusk-node/internal/validate"
)

// CreateCommunity creates a new community owned by the local peer, caches
// its listing metadata, and returns the derived community ID.
func (a *App) CreateCommunity(ctx context.Context, name, description string) (string, error) {
	if err := validate.CommunityName(name); err != nil {
		return "", wrapf("create community: %w", err)
	}
	local := a.id.PeerID().String()
	now := nowMs()
	cid := newCommunityID(name, local, now)

	if err := a.crdt.CreateCommunity(cid, name, description, local, now); err != nil {
		return "", wrapf("create community: %w", err)
	}
	if err := a.store.SaveCommunityMeta(crdt.CommunityMeta{
		CommunityID: cid,
		Name:        name,
		Description: description,
		CreatedBy:   local,
		CreatedAt:   now,
	}); err != nil {
		return "", wrapf("save community meta: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityPresence(cid)}})
	if channels, err := a.crdt.GetChannels(cid); err == nil {
		for _, ch := range channels {
			a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityMessages(cid, ch.ID)}})
			a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityTyping(cid, ch.ID)}})
		}
	}
	a.sendNode(ctx, node.Command{RegisterRendezvous: &node.RegisterRendezvousCmd{Namespace: topic.CommunityRendezvousNamespace(cid)}})
	return cid, nil
}

// CreateChannel adds a new channel to an existing community and subscribes
// to its gossip topics if the node is running.
func (a *App) CreateChannel(ctx context.Context, communityID, name, kind string) (string, error) {
	if err := validate.ChannelName(name); err != nil {
		return "", wrapf("create channel: %w", err)
	}
	local := a.id.PeerID().String()
	now := nowMs()
	channelID := newChannelID(communityID, name, now)

	if err := a.crdt.AddChannel(communityID, channelID, name, kind, local); err != nil {
		return "", wrapf("add channel: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityMessages(communityID, channelID)}})
	a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityTyping(communityID, channelID)}})
	a.broadcastMetaUpdateLocked(ctx, communityID)
	return channelID, nil
}

// JoinCommunity decodes an invite code, creates a placeholder document if
// none exists locally, arms the pending-join-role guard, subscribes to the
// community's presence topic, registers/discovers its rendezvous
// namespace, and requests a sync from any peer already subscribed to
// dusk/sync.
func (a *App) JoinCommunity(ctx context.Context, inviteCode string) (string, error) {
	payload, err := invite.Decode(inviteCode)
	if err != nil {
		return "", wrapf("decode invite: %w", err)
	}
	cid := payload.CommunityID
	now := nowMs()

	if !a.crdt.HasCommunity(cid) {
		if err := a.crdt.CreatePlaceholderCommunity(cid, payload.CommunityName, "", now); err != nil {
			return "", wrapf("create placeholder community: %w", err)
		}
		if err := a.store.SaveCommunityMeta(crdt.CommunityMeta{
			CommunityID: cid,
			Name:        payload.CommunityName,
			CreatedAt:   now,
		}); err != nil {
			return "", wrapf("save community meta: %w", err)
		}
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{MarkJoinedCommunity: &node.MarkJoinedCommunityCmd{CommunityID: cid}})
	a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityPresence(cid)}})
	a.sendNode(ctx, node.Command{RegisterRendezvous: &node.RegisterRendezvousCmd{Namespace: topic.CommunityRendezvousNamespace(cid)}})
	a.sendNode(ctx, node.Command{DiscoverRendezvous: &node.DiscoverRendezvousCmd{Namespace: topic.CommunityRendezvousNamespace(cid)}})

	local := a.id.PeerID().String()
	sm := protocol.SyncMessage{RequestSync: &protocol.RequestSyncPayload{PeerID: local}}
	if data, merr := sm.Marshal(); merr == nil {
		a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.SyncTopic, Data: data}})
	}
	return cid, nil
}

// LeaveCommunity removes the local peer from the member list (if present),
// broadcasts the updated snapshot and a MemberKicked for itself, unsubscribes
// from every topic the community used, unregisters its rendezvous namespace,
// and removes the local document.
func (a *App) LeaveCommunity(ctx context.Context, communityID string) error {
	local := a.id.PeerID().String()

	channels, _ := a.crdt.GetChannels(communityID)
	if err := a.crdt.RemoveMember(communityID, local); err != nil && err != crdt.ErrCommunityUnknown {
		return wrapf("remove self from members: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()

	if data, derr := a.crdt.GetDocBytes(communityID); derr == nil {
		offer := protocol.SyncMessage{DocumentOffer: &protocol.DocumentOfferPayload{CommunityID: communityID, DocBytes: data}}
		if payload, merr := offer.Marshal(); merr == nil {
			a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.SyncTopic, Data: payload}})
		}
	}
	a.broadcastMemberKickedLocked(ctx, communityID, local)
	for _, ch := range channels {
		a.unsubscribeLocked(ctx, topic.CommunityMessages(communityID, ch.ID))
		a.unsubscribeLocked(ctx, topic.CommunityTyping(communityID, ch.ID))
	}
	a.unsubscribeLocked(ctx, topic.CommunityPresence(communityID))
	a.sendNode(ctx, node.Command{UnregisterRendezvous: &node.UnregisterRendezvousCmd{Namespace: topic.CommunityRendezvousNamespace(communityID)}})
	a.sendNode(ctx, node.Command{MarkLeftCommunity: &node.MarkLeftCommunityCmd{CommunityID: communityID}})

	a.crdt.RemoveCommunity(communityID)
	_ = a.store.RemoveCommunityDocument(communityID)
	_ = a.store.RemoveCommunityMeta(communityID)
	return nil
}

func (a *App) unsubscribeLocked(ctx context.Context, t string) {
	a.sendNode(ctx, node.Command{Unsubscribe: &node.UnsubscribeCmd{Topic: t}})
}

// SendChatMessage appends a message locally first, then broadcasts it on
// the channel's messages topic — publish only follows a successful local
// mutation, so the sender's own state is never behind what it announces.
func (a *App) SendChatMessage(ctx context.Context, communityID, channelID, content string) (protocol.ChatMessage, error) {
	local := a.id.PeerID().String()
	now := nowMs()
	msg := protocol.ChatMessage{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		ChannelID:   channelID,
		SenderID:    local,
		Content:     content,
		Timestamp:   now,
	}

	if err := a.crdt.AppendMessage(communityID, crdt.Message{
		ID:        msg.ID,
		ChannelID: channelID,
		SenderID:  local,
		Content:   content,
		Timestamp: now,
	}); err != nil {
		return protocol.ChatMessage{}, wrapf("append message: %w", err)
	}

	gm := protocol.GossipMessage{Chat: &msg}
	data, err := gm.Marshal()
	if err != nil {
		return protocol.ChatMessage{}, wrapf("marshal chat message: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityMessages(communityID, channelID), Data: data}})
	return msg, nil
}

// SendTyping broadcasts a typing indicator without touching durable state.
func (a *App) SendTyping(ctx context.Context, communityID, channelID string) {
	local := a.id.PeerID().String()
	gm := protocol.GossipMessage{Typing: &protocol.TypingIndicator{CommunityID: communityID, ChannelID: channelID, PeerID: local}}
	data, err := gm.Marshal()
	if err != nil {
		return
	}
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityTyping(communityID, channelID), Data: data}})
}

// DeleteMessage authorizes only the message's original author, then
// tombstones it locally and broadcasts the deletion.
func (a *App) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	local := a.id.PeerID().String()

	msgs, err := a.crdt.GetMessages(communityID, channelID, nil, 0)
	if err != nil {
		return wrapf("get messages: %w", err)
	}
	authorized := false
	for _, m := range msgs {
		if m.ID == messageID {
			authorized = m.SenderID == local
			break
		}
	}
	if !authorized {
		a.audit.AuthorizationDenied(local, "delete_message")
		return fmt.Errorf("%w to delete this message", ErrNotAuthorized)
	}

	if err := a.crdt.DeleteMessage(communityID, messageID); err != nil {
		return wrapf("delete message: %w", err)
	}

	gm := protocol.GossipMessage{DeleteMessage: &protocol.DeleteMessagePayload{CommunityID: communityID, MessageID: messageID}}
	data, merr := gm.Marshal()
	if merr != nil {
		return nil
	}
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityMessages(communityID, channelID), Data: data}})
	return nil
}

// KickMember authorizes only peers with role owner or admin, refuses to
// kick the owner, then removes the member locally and broadcasts the kick.
func (a *App) KickMember(ctx context.Context, communityID, targetPeerID string) error {
	local := a.id.PeerID().String()

	members, err := a.crdt.GetMembers(communityID)
	if err != nil {
		return wrapf("get members: %w", err)
	}
	var actorRoles, targetRoles []string
	for _, m := range members {
		switch m.PeerID {
		case local:
			actorRoles = m.Roles
		case targetPeerID:
			targetRoles = m.Roles
		}
	}
	if !hasRole(actorRoles, crdt.RoleOwner) && !hasRole(actorRoles, crdt.RoleAdmin) {
		a.audit.AuthorizationDenied(local, "kick_member")
		return fmt.Errorf("%w to kick members", ErrNotAuthorized)
	}
	if hasRole(targetRoles, crdt.RoleOwner) {
		a.audit.AuthorizationDenied(local, "kick_member")
		return fmt.Errorf("%w: cannot kick the owner", ErrNotAuthorized)
	}

	if err := a.crdt.RemoveMember(communityID, targetPeerID); err != nil {
		return wrapf("remove member: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.broadcastMemberKickedLocked(ctx, communityID, targetPeerID)
	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a *App) broadcastMemberKickedLocked(ctx context.Context, communityID, peerID string) {
	gm := protocol.GossipMessage{MemberKicked: &protocol.MemberKickedPayload{CommunityID: communityID, PeerID: peerID}}
	data, err := gm.Marshal()
	if err != nil {
		return
	}
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityPresence(communityID), Data: data}})
}

func (a *App) broadcastMetaUpdateLocked(ctx context.Context, communityID string) {
	metas, err := a.store.ListCommunityMeta()
	if err != nil {
		return
	}
	for _, m := range metas {
		if m.CommunityID != communityID {
			continue
		}
		gm := protocol.GossipMessage{MetaUpdate: &m}
		if data, merr := gm.Marshal(); merr == nil {
			a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityPresence(communityID), Data: data}})
		}
		return
	}
}

// SetMemberRole replaces a member's role list.
func (a *App) SetMemberRole(communityID, peerID string, roles []string) error {
	local := a.id.PeerID().String()
	if err := a.crdt.SetMemberRole(communityID, peerID, roles, local); err != nil {
		return wrapf("set member role: %w", err)
	}
	return nil
}

// TransferOwnership atomically demotes the current owner to admin and
// promotes newOwner to owner.
func (a *App) TransferOwnership(communityID, newOwner string) error {
	local := a.id.PeerID().String()
	if err := a.crdt.TransferOwnership(communityID, local, newOwner); err != nil {
		return wrapf("transfer ownership: %w", err)
	}
	return nil
}

// RemoveMember removes a member without the kick authorization/broadcast
// semantics (used for local bookkeeping, e.g. after a remote kick syncs).
func (a *App) RemoveMember(communityID, peerID string) error {
	if err := a.crdt.RemoveMember(communityID, peerID); err != nil {
		return wrapf("remove member: %w", err)
	}
	return nil
}

// ReorderChannels updates channel display order.
func (a *App) ReorderChannels(communityID string, orderedIDs []string) error {
	local := a.id.PeerID().String()
	if err := a.crdt.ReorderChannels(communityID, orderedIDs, local); err != nil {
		return wrapf("reorder channels: %w", err)
	}
	return nil
}

// GetMessages, GetChannels, GetMembers, and GetCategories are read-only
// passthroughs to the CRDT engine — they never touch the node handle, so
// they work whether or not a node is running.
func (a *App) GetMessages(communityID, channelID string, before *int64, limit int) ([]crdt.Message, error) {
	return a.crdt.GetMessages(communityID, channelID, before, limit)
}

func (a *App) GetChannels(communityID string) ([]crdt.Channel, error) {
	return a.crdt.GetChannels(communityID)
}

func (a *App) GetMembers(communityID string) ([]crdt.Member, error) {
	return a.crdt.GetMembers(communityID)
}

func (a *App) GetCategories(communityID string) ([]crdt.Category, error) {
	return a.crdt.GetCategories(communityID)
}

// ListCommunities returns the cached listing metadata for every community
// this peer currently belongs to.
func (a *App) ListCommunities() ([]crdt.CommunityMeta, error) {
	return a.store.ListCommunityMeta()
}

// GenerateInvite produces a base58 invite code for communityID using its
// cached display name.
func (a *App) GenerateInvite(communityID string) (string, error) {
	metas, err := a.store.ListCommunityMeta()
	if err != nil {
		return "", wrapf("list community meta: %w", err)
	}
	name := communityID
	for _, m := range metas {
		if m.CommunityID == communityID {
			name = m.Name
			break
		}
	}
	code, err := invite.Encode(communityID, name)
	if err != nil {
		return "", wrapf("encode invite: %w", err)
	}
	return code, nil
}

// BroadcastPresence announces a presence status on every community this
// peer belongs to.
func (a *App) BroadcastPresence(ctx context.Context, status protocol.PresenceStatus) {
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{BroadcastPresence: &node.BroadcastPresenceCmd{Status: status}})
}
