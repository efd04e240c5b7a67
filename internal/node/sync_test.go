package node

import (
	"crypto/rand"
	"testing"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/topic"
)

func TestDocumentOfferUnknownCommunityDiscarded(t *testing.T) {
	n := newTestNode(t)

	remote := crdt.NewEngine(nil)
	if err := remote.CreateCommunity("com_unsolicited", "Spam", "", "12D3Remote", 1000); err != nil {
		t.Fatalf("create remote community: %v", err)
	}
	docBytes, _ := remote.GetDocBytes("com_unsolicited")

	n.handleDocumentOffer(&protocol.DocumentOfferPayload{CommunityID: "com_unsolicited", DocBytes: docBytes})

	if n.crdt.HasCommunity("com_unsolicited") {
		t.Fatal("a DocumentOffer for an unknown community must not create state")
	}
	if events := drainEvents(n); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}

func TestDocumentOfferLeftCommunityDiscarded(t *testing.T) {
	n := newTestNode(t)

	remote := crdt.NewEngine(nil)
	if err := remote.CreateCommunity("com_left", "Old Haunt", "", "12D3Remote", 1000); err != nil {
		t.Fatalf("create remote community: %v", err)
	}
	docBytes, _ := remote.GetDocBytes("com_left")

	n.leftCommunities["com_left"] = true
	n.handleDocumentOffer(&protocol.DocumentOfferPayload{CommunityID: "com_left", DocBytes: docBytes})

	if n.crdt.HasCommunity("com_left") {
		t.Fatal("a DocumentOffer must not re-create an explicitly left community")
	}
}

func TestDocumentOfferMergesAndResubscribes(t *testing.T) {
	n := newTestNode(t)
	local := n.LocalPeerID().String()

	// Local side joined via invite: placeholder only.
	if err := n.crdt.CreatePlaceholderCommunity("com_books", "Books", "", 1000); err != nil {
		t.Fatalf("create placeholder: %v", err)
	}

	// Remote side is the authoritative community with its creator as owner.
	remote := crdt.NewEngine(nil)
	if err := remote.CreateCommunity("com_books", "Books", "a book club", "12D3Creator", 500); err != nil {
		t.Fatalf("create remote community: %v", err)
	}
	if err := remote.AddMember("com_books", local, "", []string{crdt.RoleMember}, 1000, "12D3Creator"); err != nil {
		t.Fatalf("add local member remotely: %v", err)
	}
	docBytes, _ := remote.GetDocBytes("com_books")

	n.handleDocumentOffer(&protocol.DocumentOfferPayload{CommunityID: "com_books", DocBytes: docBytes})

	if _, ok := findEvent[SyncComplete](drainEvents(n)); !ok {
		t.Fatal("expected SyncComplete after merge")
	}

	channels, err := n.crdt.GetChannels("com_books")
	if err != nil {
		t.Fatalf("get channels: %v", err)
	}
	if len(channels) != 1 || channels[0].Name != "general" {
		t.Fatalf("unexpected channels after merge: %+v", channels)
	}
	for _, ch := range channels {
		if _, ok := n.subscriptions[topic.CommunityMessages("com_books", ch.ID)]; !ok {
			t.Fatalf("expected subscription to %s", topic.CommunityMessages("com_books", ch.ID))
		}
		if _, ok := n.subscriptions[topic.CommunityTyping("com_books", ch.ID)]; !ok {
			t.Fatalf("expected subscription to %s", topic.CommunityTyping("com_books", ch.ID))
		}
	}
	if _, ok := n.subscriptions[topic.CommunityPresence("com_books")]; !ok {
		t.Fatal("expected subscription to the presence topic")
	}
}

func TestJoinRoleGuardDowngradesExactlyOnce(t *testing.T) {
	n := newTestNode(t)
	local := n.LocalPeerID().String()

	// The local document (created before the authoritative snapshot arrived)
	// wrongly shows this peer as owner.
	if err := n.crdt.CreateCommunity("com_books", "Books", "", local, 1000); err != nil {
		t.Fatalf("create community: %v", err)
	}
	n.pendingJoinRoleGuard["com_books"] = true

	remote := crdt.NewEngine(nil)
	if err := remote.CreatePlaceholderCommunity("com_books", "Books", "", 500); err != nil {
		t.Fatalf("create remote placeholder: %v", err)
	}
	docBytes, _ := remote.GetDocBytes("com_books")

	n.handleDocumentOffer(&protocol.DocumentOfferPayload{CommunityID: "com_books", DocBytes: docBytes})

	members, err := n.crdt.GetMembers("com_books")
	if err != nil {
		t.Fatalf("get members: %v", err)
	}
	var localRoles []string
	for _, m := range members {
		if m.PeerID == local {
			localRoles = m.Roles
		}
	}
	if len(localRoles) != 1 || localRoles[0] != crdt.RoleMember {
		t.Fatalf("expected downgrade to member, got %v", localRoles)
	}
	if n.pendingJoinRoleGuard["com_books"] {
		t.Fatal("guard must be cleared after the first merge")
	}
}

func TestRequestSyncOffersKnownDocuments(t *testing.T) {
	n := newTestNode(t)
	if err := n.crdt.CreateCommunity("com_1", "Books", "", "peerA", 1000); err != nil {
		t.Fatalf("create community: %v", err)
	}

	// handleRequestSync publishes a DocumentOffer per known community on the
	// sync topic; with no peers the publish is a no-op, but it must not error
	// or mutate local state.
	sm := protocol.SyncMessage{RequestSync: &protocol.RequestSyncPayload{PeerID: "12D3Asker"}}
	data, _ := sm.Marshal()
	n.handleSyncMessage(gossipMsg{Topic: topic.SyncTopic, Data: data})

	if !n.crdt.HasCommunity("com_1") {
		t.Fatal("RequestSync must not mutate local documents")
	}
}

func TestHandleRendezvousDiscoveredAddsStubEntries(t *testing.T) {
	n := newTestNode(t)

	remotePriv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	remoteID, err := peer.IDFromPrivateKey(remotePriv)
	if err != nil {
		t.Fatalf("derive peer id: %v", err)
	}

	n.handleRendezvousDiscovered([]peer.AddrInfo{{ID: remoteID}})

	entry, err := n.store.LoadDirectoryEntry(remoteID.String())
	if err != nil {
		t.Fatalf("expected stub directory entry for discovered peer: %v", err)
	}
	if entry.LastSeen == 0 {
		t.Fatal("stub entry must carry a last_seen timestamp")
	}
}
