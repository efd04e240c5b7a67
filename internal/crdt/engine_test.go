package crdt

import "testing"

func TestCreateCommunityDefaultChannel(t *testing.T) {
	e := NewEngine(nil)
	if err := e.CreateCommunity("com_1", "Books", "a book club", "peerA", 1000); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.CreateCommunity("com_1", "Books", "a book club", "peerA", 1000); err != ErrCommunityExists {
		t.Fatalf("expected ErrCommunityExists, got %v", err)
	}

	channels, err := e.GetChannels("com_1")
	if err != nil {
		t.Fatalf("get channels: %v", err)
	}
	if len(channels) != 1 || channels[0].Name != "general" || channels[0].Kind != ChannelKindText {
		t.Fatalf("unexpected channels: %+v", channels)
	}

	members, err := e.GetMembers("com_1")
	if err != nil {
		t.Fatalf("get members: %v", err)
	}
	if len(members) != 1 || members[0].PeerID != "peerA" || members[0].Roles[0] != RoleOwner {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestMergeRemoteDocRejectsUnknown(t *testing.T) {
	e := NewEngine(nil)
	if err := e.MergeRemoteDoc("com_unknown", []byte("{}")); err != ErrCommunityUnknown {
		t.Fatalf("expected ErrCommunityUnknown, got %v", err)
	}
}

func TestAppendAndGetMessages(t *testing.T) {
	e := NewEngine(nil)
	if err := e.CreateCommunity("com_1", "Books", "", "peerA", 1000); err != nil {
		t.Fatalf("create: %v", err)
	}
	channels, _ := e.GetChannels("com_1")
	chid := channels[0].ID

	if err := e.AppendMessage("com_1", Message{ID: "m1", ChannelID: chid, SenderID: "peerA", Content: "hi", Timestamp: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := e.GetMessages("com_1", chid, nil, 50)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestDeleteMessageTombstones(t *testing.T) {
	e := NewEngine(nil)
	e.CreateCommunity("com_1", "Books", "", "peerA", 1000)
	channels, _ := e.GetChannels("com_1")
	chid := channels[0].ID
	e.AppendMessage("com_1", Message{ID: "m1", ChannelID: chid, SenderID: "peerA", Content: "hi", Timestamp: 1})

	if err := e.DeleteMessage("com_1", "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := e.DeleteMessage("com_1", "m1"); err != ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound on second delete, got %v", err)
	}

	msgs, _ := e.GetMessages("com_1", chid, nil, 50)
	if len(msgs) != 0 {
		t.Fatalf("expected tombstoned message to be excluded, got %+v", msgs)
	}
}

// Two independently-created replicas of the same community, seeded from the
// same snapshot, must converge after exchanging their post-snapshot edits —
// regardless of the order those edits are merged in.
func TestMergeConverges(t *testing.T) {
	a := NewEngine(nil)
	a.CreateCommunity("com_1", "Books", "", "peerA", 1000)
	seed, _ := a.GetDocBytes("com_1")

	b := NewEngine(nil)
	b.InsertDoc("com_1", seed)

	channels, _ := a.GetChannels("com_1")
	chid := channels[0].ID
	a.AppendMessage("com_1", Message{ID: "m1", ChannelID: chid, SenderID: "peerA", Content: "from a", Timestamp: 2})
	b.AppendMessage("com_1", Message{ID: "m2", ChannelID: chid, SenderID: "peerB", Content: "from b", Timestamp: 3})

	aBytes, _ := a.GetDocBytes("com_1")
	bBytes, _ := b.GetDocBytes("com_1")

	if err := a.MergeRemoteDoc("com_1", bBytes); err != nil {
		t.Fatalf("merge into a: %v", err)
	}
	if err := b.MergeRemoteDoc("com_1", aBytes); err != nil {
		t.Fatalf("merge into b: %v", err)
	}

	aMsgs, _ := a.GetMessages("com_1", chid, nil, 50)
	bMsgs, _ := b.GetMessages("com_1", chid, nil, 50)
	if len(aMsgs) != 2 || len(bMsgs) != 2 {
		t.Fatalf("expected both replicas to hold 2 messages, got a=%d b=%d", len(aMsgs), len(bMsgs))
	}
	if aMsgs[0].ID != bMsgs[0].ID || aMsgs[1].ID != bMsgs[1].ID {
		t.Fatalf("replicas diverged: a=%+v b=%+v", aMsgs, bMsgs)
	}
}

func TestTransferOwnershipRequiresExistingMembers(t *testing.T) {
	e := NewEngine(nil)
	e.CreateCommunity("com_1", "Books", "", "peerA", 1000)

	if err := e.TransferOwnership("com_1", "peerA", "peerB"); err != ErrMemberUnknown {
		t.Fatalf("expected ErrMemberUnknown for nonexistent newOwner member row, got %v", err)
	}
}

func TestClear(t *testing.T) {
	e := NewEngine(nil)
	e.CreateCommunity("com_1", "Books", "", "peerA", 1000)
	e.Clear()
	if e.HasCommunity("com_1") {
		t.Fatal("expected Clear to drop all documents")
	}
}
