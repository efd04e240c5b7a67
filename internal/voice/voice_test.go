package voice

import (
	"testing"

	"github.com/duskchat/dusk-node/internal/protocol"
)

func TestJoinLeave(t *testing.T) {
	c := New()
	c.Join("com_1", "ch_voice", Participant{PeerID: "peerA", DisplayName: "alice"})
	c.Join("com_1", "ch_voice", Participant{PeerID: "peerB", DisplayName: "bob"})

	list := c.Participants("com_1", "ch_voice")
	if len(list) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(list))
	}

	if !c.Leave("com_1", "ch_voice", "peerA") {
		t.Fatal("expected Leave to report peerA was present")
	}
	if c.Leave("com_1", "ch_voice", "peerA") {
		t.Fatal("expected second Leave to report absence")
	}

	list = c.Participants("com_1", "ch_voice")
	if len(list) != 1 || list[0].PeerID != "peerB" {
		t.Fatalf("unexpected remaining participants: %+v", list)
	}
}

func TestJoinUpdatesExisting(t *testing.T) {
	c := New()
	c.Join("com_1", "ch_voice", Participant{PeerID: "peerA", DisplayName: "alice"})
	c.Join("com_1", "ch_voice", Participant{PeerID: "peerA", DisplayName: "alice2"})

	list := c.Participants("com_1", "ch_voice")
	if len(list) != 1 || list[0].DisplayName != "alice2" {
		t.Fatalf("expected rejoin to update in place, got %+v", list)
	}
}

func TestUpdateMediaState(t *testing.T) {
	c := New()
	c.Join("com_1", "ch_voice", Participant{PeerID: "peerA"})
	if !c.UpdateMediaState("com_1", "ch_voice", "peerA", protocol.MediaState{Muted: true}) {
		t.Fatal("expected update to succeed for existing participant")
	}
	list := c.Participants("com_1", "ch_voice")
	if !list[0].MediaState.Muted {
		t.Fatal("expected media state to be updated")
	}
	if c.UpdateMediaState("com_1", "ch_voice", "peerZ", protocol.MediaState{}) {
		t.Fatal("expected update to fail for unknown participant")
	}
}

func TestRemovePeerEverywhere(t *testing.T) {
	c := New()
	c.Join("com_1", "ch_a", Participant{PeerID: "peerA"})
	c.Join("com_2", "ch_b", Participant{PeerID: "peerA"})
	c.Join("com_1", "ch_a", Participant{PeerID: "peerB"})

	removed := c.RemovePeerEverywhere("peerA")
	if len(removed) != 2 {
		t.Fatalf("expected 2 removals, got %d: %+v", len(removed), removed)
	}

	remaining := c.Participants("com_1", "ch_a")
	if len(remaining) != 1 || remaining[0].PeerID != "peerB" {
		t.Fatalf("unexpected remaining participants: %+v", remaining)
	}
}
