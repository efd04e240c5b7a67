package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/storage"
	"github.com/duskchat/dusk-node/internal/topic"
)

// SendDM persists a direct message locally first, then publishes it on both
// the sender/recipient pair topic and the recipient's personal inbox topic,
// and nudges a rendezvous discover on the recipient's namespace in case
// they're only reachable through a fresh connection.
func (a *App) SendDM(ctx context.Context, toPeer, content string) (protocol.DirectMessage, error) {
	local := a.id.PeerID().String()
	now := nowMs()
	dm := protocol.DirectMessage{
		ID:        uuid.NewString(),
		FromPeer:  local,
		ToPeer:    toPeer,
		Content:   content,
		Timestamp: now,
	}

	convID := topic.ConversationID(local, toPeer)
	peerDisplayName := toPeer
	if entry, err := a.store.LoadDirectoryEntry(toPeer); err == nil && entry.DisplayName != "" {
		peerDisplayName = entry.DisplayName
	}
	if err := a.store.AppendDMMessage(convID, dm, peerDisplayName); err != nil {
		return protocol.DirectMessage{}, wrapf("append dm message: %w", err)
	}

	conv, err := a.store.LoadDMConversation(convID)
	if err != nil {
		conv = storage.DMConversation{ConversationID: convID, PeerID: toPeer}
	}
	conv.PeerDisplayName = peerDisplayName
	conv.LastMessagePreview = content
	conv.LastMessageTime = now
	if err := a.store.SaveDMConversation(conv); err != nil {
		return protocol.DirectMessage{}, wrapf("save dm conversation: %w", err)
	}

	gm := protocol.GossipMessage{DirectMessage: &dm}
	data, err := gm.Marshal()
	if err != nil {
		return protocol.DirectMessage{}, wrapf("marshal direct message: %w", err)
	}

	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.DMPair(local, toPeer)}})
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.DMPair(local, toPeer), Data: data}})
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.DMInbox(toPeer), Data: data}})
	a.sendNode(ctx, node.Command{DiscoverRendezvous: &node.DiscoverRendezvousCmd{Namespace: topic.PeerRendezvousNamespace(toPeer)}})
	return dm, nil
}

// SendDMTyping broadcasts a DM typing indicator on the pair topic.
func (a *App) SendDMTyping(ctx context.Context, toPeer string) {
	local := a.id.PeerID().String()
	gm := protocol.GossipMessage{DMTyping: &protocol.DMTypingIndicator{FromPeer: local, ToPeer: toPeer}}
	data, err := gm.Marshal()
	if err != nil {
		return
	}
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.DMPair(local, toPeer), Data: data}})
}

// MarkConversationRead zeroes a conversation's unread counter.
func (a *App) MarkConversationRead(peerID string) error {
	local := a.id.PeerID().String()
	convID := topic.ConversationID(local, peerID)
	conv, err := a.store.LoadDMConversation(convID)
	if err != nil {
		return wrapf("load dm conversation: %w", err)
	}
	conv.UnreadCount = 0
	if err := a.store.SaveDMConversation(conv); err != nil {
		return wrapf("save dm conversation: %w", err)
	}
	return nil
}

// ListDMConversations returns every known DM conversation, most recent
// activity first.
func (a *App) ListDMConversations() ([]storage.DMConversation, error) {
	convs, err := a.store.LoadAllDMConversations()
	if err != nil {
		return nil, wrapf("load dm conversations: %w", err)
	}
	return convs, nil
}

// LoadDMMessages pages backward through a conversation's message history.
func (a *App) LoadDMMessages(peerID string, before *int64, limit int) ([]protocol.DirectMessage, error) {
	local := a.id.PeerID().String()
	convID := topic.ConversationID(local, peerID)
	msgs, err := a.store.LoadDMMessages(convID, before, limit)
	if err != nil {
		return nil, wrapf("load dm messages: %w", err)
	}
	return msgs, nil
}

// SearchDMMessages searches a conversation's history with the given filters.
func (a *App) SearchDMMessages(peerID string, params storage.SearchDMParams) ([]protocol.DirectMessage, error) {
	local := a.id.PeerID().String()
	convID := topic.ConversationID(local, peerID)
	msgs, err := a.store.SearchDMMessages(convID, params)
	if err != nil {
		return nil, wrapf("search dm messages: %w", err)
	}
	return msgs, nil
}
