package node

import (
	"context"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"

	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/envelope"
	"github.com/duskchat/dusk-node/internal/identity"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/storage"
	"github.com/duskchat/dusk-node/internal/swarm"
	"github.com/duskchat/dusk-node/internal/topic"
	"github.com/duskchat/dusk-node/internal/voice"
)

// newTestNode builds a Node around a real loopback libp2p host and a
// temp-dir SQLite store. The event loop is not started; tests call handler
// methods directly, which is safe because nothing else touches loop-owned
// state.
func newTestNode(t *testing.T) *Node {
	t.Helper()

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	id, err := identity.New(priv)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sw, err := swarm.Build(ctx, swarm.Config{
		PrivateKey:  priv,
		ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"},
	})
	if err != nil {
		cancel()
		t.Fatalf("build swarm: %v", err)
	}

	store, err := storage.Open(filepath.Join(t.TempDir(), "dusk.db"))
	if err != nil {
		sw.Close()
		cancel()
		t.Fatalf("open storage: %v", err)
	}

	n := New(Config{
		Swarm:    sw,
		Identity: id,
		CRDT:     crdt.NewEngine(store),
		Store:    store,
		Voice:    voice.New(),
	})
	n.ctx, n.cancel = context.WithCancel(ctx)
	n.relayRetryTimer = newStoppedTimer()
	n.relayWarnTimer = newStoppedTimer()

	t.Cleanup(func() {
		n.cancel()
		n.wg.Wait()
		store.Close()
		sw.Close()
		cancel()
	})
	return n
}

func newStoppedTimer() *time.Timer {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	return timer
}

// drainEvents returns every event currently buffered.
func drainEvents(n *Node) []any {
	var out []any
	for {
		select {
		case ev := <-n.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func findEvent[T any](events []any) (T, bool) {
	for _, ev := range events {
		if v, ok := ev.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func marshalGossip(t *testing.T, gm protocol.GossipMessage) []byte {
	t.Helper()
	data, err := gm.Marshal()
	if err != nil {
		t.Fatalf("marshal gossip: %v", err)
	}
	return data
}

func TestHandleChatAppendsAndEmits(t *testing.T) {
	n := newTestNode(t)
	if err := n.crdt.CreateCommunity("com_1", "Books", "", "peerA", 1000); err != nil {
		t.Fatalf("create community: %v", err)
	}
	channels, _ := n.crdt.GetChannels("com_1")
	chid := channels[0].ID

	data := marshalGossip(t, protocol.GossipMessage{Chat: &protocol.ChatMessage{
		ID: "m1", CommunityID: "com_1", ChannelID: chid, SenderID: "peerA", Content: "hi", Timestamp: 2000,
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityMessages("com_1", chid), Data: data})

	msgs, err := n.crdt.GetMessages("com_1", chid, nil, 50)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if _, ok := findEvent[MessageReceived](drainEvents(n)); !ok {
		t.Fatal("expected MessageReceived event")
	}
}

func TestHandleChatUnknownCommunityDropped(t *testing.T) {
	n := newTestNode(t)
	data := marshalGossip(t, protocol.GossipMessage{Chat: &protocol.ChatMessage{
		ID: "m1", CommunityID: "com_x", ChannelID: "ch_x", SenderID: "peerA", Content: "hi", Timestamp: 1,
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityMessages("com_x", "ch_x"), Data: data})
	if events := drainEvents(n); len(events) != 0 {
		t.Fatalf("expected no events for unknown community, got %+v", events)
	}
}

func TestMalformedGossipDropped(t *testing.T) {
	n := newTestNode(t)
	n.handleCommunityGossip(gossipMsg{Topic: "dusk/directory", Data: []byte("not json")})
	// An unknown future variant decodes to an envelope with no field set and
	// must fall through every dispatch arm.
	n.handleCommunityGossip(gossipMsg{Topic: "dusk/directory", Data: []byte(`{"SomeFutureVariant":{"x":1}}`)})
	if events := drainEvents(n); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}

func TestHandlePresenceEmitsConnectivityEvents(t *testing.T) {
	n := newTestNode(t)

	online := marshalGossip(t, protocol.GossipMessage{Presence: &protocol.PresenceUpdate{
		CommunityID: "com_1", PeerID: "peerA", Status: protocol.PresenceOnline,
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityPresence("com_1"), Data: online})
	events := drainEvents(n)
	if _, ok := findEvent[PresenceUpdated](events); !ok {
		t.Fatal("expected PresenceUpdated")
	}
	if _, ok := findEvent[PeerConnected](events); !ok {
		t.Fatal("expected PeerConnected companion for non-offline status")
	}

	offline := marshalGossip(t, protocol.GossipMessage{Presence: &protocol.PresenceUpdate{
		CommunityID: "com_1", PeerID: "peerA", Status: protocol.PresenceOffline,
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityPresence("com_1"), Data: offline})
	if _, ok := findEvent[PeerDisconnected](drainEvents(n)); !ok {
		t.Fatal("expected PeerDisconnected companion for offline status")
	}
}

func TestHandleProfileAnnounceVerifiesAndPreservesFriend(t *testing.T) {
	n := newTestNode(t)

	remotePriv, _, _ := crypto.GenerateEd25519Key(rand.Reader)
	ann, err := envelope.SignAnnouncement(remotePriv, "12D3RemotePeer", "Ada", "hello", 1000, "abcd", "proof-sig")
	if err != nil {
		t.Fatalf("sign announcement: %v", err)
	}
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileAnnounce: ann})})

	entry, err := n.store.LoadDirectoryEntry("12D3RemotePeer")
	if err != nil {
		t.Fatalf("expected directory entry after valid announcement: %v", err)
	}
	if entry.DisplayName != "Ada" || entry.Bio != "hello" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if _, ok := findEvent[ProfileReceived](drainEvents(n)); !ok {
		t.Fatal("expected ProfileReceived event")
	}

	if err := n.store.SetDirectoryFriend("12D3RemotePeer", true); err != nil {
		t.Fatalf("set friend: %v", err)
	}
	ann2, _ := envelope.SignAnnouncement(remotePriv, "12D3RemotePeer", "Ada Lovelace", "hello", 2000, "abcd", "proof-sig")
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileAnnounce: ann2})})

	entry, _ = n.store.LoadDirectoryEntry("12D3RemotePeer")
	if entry.DisplayName != "Ada Lovelace" {
		t.Fatalf("expected display name update, got %+v", entry)
	}
	if !entry.IsFriend {
		t.Fatal("re-announcement must preserve is_friend")
	}
}

func TestHandleProfileAnnounceRejectsTamperedOrUnproven(t *testing.T) {
	n := newTestNode(t)
	remotePriv, _, _ := crypto.GenerateEd25519Key(rand.Reader)

	tampered, _ := envelope.SignAnnouncement(remotePriv, "12D3Tampered", "Eve", "", 1000, "abcd", "proof-sig")
	tampered.DisplayName = "Mallory"
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileAnnounce: tampered})})
	if _, err := n.store.LoadDirectoryEntry("12D3Tampered"); err == nil {
		t.Fatal("tampered announcement must not create a directory entry")
	}

	unproven, _ := envelope.SignAnnouncement(remotePriv, "12D3Unproven", "Eve", "", 1000, "", "")
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileAnnounce: unproven})})
	if _, err := n.store.LoadDirectoryEntry("12D3Unproven"); err == nil {
		t.Fatal("announcement without verification proof must be rejected")
	}
	if events := drainEvents(n); len(events) != 0 {
		t.Fatalf("expected no events for rejected announcements, got %+v", events)
	}
}

func TestHandleProfileRevoke(t *testing.T) {
	n := newTestNode(t)
	remotePriv, _, _ := crypto.GenerateEd25519Key(rand.Reader)

	ann, _ := envelope.SignAnnouncement(remotePriv, "12D3Gone", "Ada", "", 1000, "abcd", "proof-sig")
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileAnnounce: ann})})
	drainEvents(n)

	forged, _ := envelope.SignRevocation(remotePriv, "12D3Gone", 2000)
	forged.Timestamp = 3000
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileRevoke: forged})})
	if _, err := n.store.LoadDirectoryEntry("12D3Gone"); err != nil {
		t.Fatal("forged revocation must not remove the directory entry")
	}

	rev, _ := envelope.SignRevocation(remotePriv, "12D3Gone", 2000)
	n.handleCommunityGossip(gossipMsg{Topic: topic.DirectoryTopic, Data: marshalGossip(t, protocol.GossipMessage{ProfileRevoke: rev})})
	if _, err := n.store.LoadDirectoryEntry("12D3Gone"); err == nil {
		t.Fatal("valid revocation must remove the directory entry")
	}
	if _, ok := findEvent[ProfileRevoked](drainEvents(n)); !ok {
		t.Fatal("expected ProfileRevoked event")
	}
}

func TestHandleDirectMessageDedupAcrossTopics(t *testing.T) {
	n := newTestNode(t)
	local := n.LocalPeerID().String()

	dm := protocol.DirectMessage{ID: "dm-1", FromPeer: "12D3Sender", ToPeer: local, Content: "hey", Timestamp: 1000}
	data := marshalGossip(t, protocol.GossipMessage{DirectMessage: &dm})

	// First delivery on the personal inbox topic, second on the pair topic —
	// the storage layer must observe the message exactly once.
	n.handleCommunityGossip(gossipMsg{Topic: topic.DMInbox(local), Data: data})
	n.handleCommunityGossip(gossipMsg{Topic: topic.DMPair("12D3Sender", local), Data: data})

	convID := topic.ConversationID("12D3Sender", local)
	msgs, err := n.store.LoadDMMessages(convID, nil, 50)
	if err != nil {
		t.Fatalf("load dm messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hey" {
		t.Fatalf("expected one stored DM, got %+v", msgs)
	}

	conv, err := n.store.LoadDMConversation(convID)
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if conv.UnreadCount != 1 {
		t.Fatalf("expected unread_count=1, got %d", conv.UnreadCount)
	}

	events := drainEvents(n)
	count := 0
	for _, ev := range events {
		if _, ok := ev.(DMReceived); ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one DMReceived, got %d", count)
	}
}

func TestHandleDirectMessageIgnoresOtherRecipients(t *testing.T) {
	n := newTestNode(t)
	dm := protocol.DirectMessage{ID: "dm-2", FromPeer: "12D3Sender", ToPeer: "12D3SomeoneElse", Content: "psst", Timestamp: 1}
	n.handleCommunityGossip(gossipMsg{Topic: topic.DMPair("12D3Sender", "12D3SomeoneElse"), Data: marshalGossip(t, protocol.GossipMessage{DirectMessage: &dm})})
	if events := drainEvents(n); len(events) != 0 {
		t.Fatalf("expected no events for a DM addressed elsewhere, got %+v", events)
	}
}

func TestHandleVoiceSignalingTargeting(t *testing.T) {
	n := newTestNode(t)
	local := n.LocalPeerID().String()

	other := marshalGossip(t, protocol.GossipMessage{VoiceSdp: &protocol.VoiceSdpPayload{
		CommunityID: "com_1", ChannelID: "ch_1", FromPeer: "12D3A", ToPeer: "12D3B", SdpType: "offer", Sdp: "v=0",
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityVoice("com_1", "ch_1"), Data: other})
	if events := drainEvents(n); len(events) != 0 {
		t.Fatalf("SDP for another peer must not be forwarded, got %+v", events)
	}

	mine := marshalGossip(t, protocol.GossipMessage{VoiceSdp: &protocol.VoiceSdpPayload{
		CommunityID: "com_1", ChannelID: "ch_1", FromPeer: "12D3A", ToPeer: local, SdpType: "offer", Sdp: "v=0",
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityVoice("com_1", "ch_1"), Data: mine})
	if _, ok := findEvent[VoiceSdp](drainEvents(n)); !ok {
		t.Fatal("expected VoiceSdp event for locally-addressed SDP")
	}
}

func TestHandleVoiceJoinLeaveTracksParticipants(t *testing.T) {
	n := newTestNode(t)

	join := marshalGossip(t, protocol.GossipMessage{VoiceJoin: &protocol.VoiceJoinPayload{
		CommunityID: "com_1", ChannelID: "ch_1", PeerID: "12D3A", DisplayName: "Ada",
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityVoice("com_1", "ch_1"), Data: join})
	if got := n.voice.Participants("com_1", "ch_1"); len(got) != 1 || got[0].PeerID != "12D3A" {
		t.Fatalf("unexpected participants: %+v", got)
	}
	if _, ok := findEvent[VoiceJoined](drainEvents(n)); !ok {
		t.Fatal("expected VoiceJoined event")
	}

	leave := marshalGossip(t, protocol.GossipMessage{VoiceLeave: &protocol.VoiceLeavePayload{
		CommunityID: "com_1", ChannelID: "ch_1", PeerID: "12D3A",
	}})
	n.handleCommunityGossip(gossipMsg{Topic: topic.CommunityVoice("com_1", "ch_1"), Data: leave})
	if got := n.voice.Participants("com_1", "ch_1"); len(got) != 0 {
		t.Fatalf("expected empty channel after leave, got %+v", got)
	}
}
