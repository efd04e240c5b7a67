package crdt

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func seededEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	e := NewEngine(nil)
	if err := e.CreateCommunity("com_1", "Books", "", "peerA", 1000); err != nil {
		t.Fatalf("create: %v", err)
	}
	channels, _ := e.GetChannels("com_1")
	return e, channels[0].ID
}

// Any two replicas that exchange snapshots converge to the same message
// set and channel list regardless of how the writes were partitioned
// between them.
func TestMergeIsCommutative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		msgIDs := rapid.SliceOfNDistinct(rapid.StringMatching(`m[0-9]{1,4}`), 1, 8, rapid.ID[string]).Draw(rt, "ids")
		split := rapid.IntRange(0, len(msgIDs)).Draw(rt, "split")

		a := NewEngine(nil)
		b := NewEngine(nil)
		if err := a.CreateCommunity("com_1", "Books", "", "peerA", 1000); err != nil {
			rt.Fatalf("create a: %v", err)
		}
		if err := b.CreateCommunity("com_1", "Books", "", "peerA", 1000); err != nil {
			rt.Fatalf("create b: %v", err)
		}
		channels, _ := a.GetChannels("com_1")
		chid := channels[0].ID

		// Partition the messages between the two replicas, then exchange
		// snapshots in both directions.
		for i, id := range msgIDs {
			msg := Message{ID: id, ChannelID: chid, SenderID: "peerA", Content: "c-" + id, Timestamp: int64(1000 + i)}
			target := a
			if i >= split {
				target = b
			}
			if err := target.AppendMessage("com_1", msg); err != nil {
				rt.Fatalf("append %s: %v", id, err)
			}
		}

		aBytes, err := a.GetDocBytes("com_1")
		if err != nil {
			rt.Fatalf("doc bytes a: %v", err)
		}
		bBytes, err := b.GetDocBytes("com_1")
		if err != nil {
			rt.Fatalf("doc bytes b: %v", err)
		}
		if err := a.MergeRemoteDoc("com_1", bBytes); err != nil {
			rt.Fatalf("merge into a: %v", err)
		}
		if err := b.MergeRemoteDoc("com_1", aBytes); err != nil {
			rt.Fatalf("merge into b: %v", err)
		}

		aMsgs, _ := a.GetMessages("com_1", chid, nil, 0)
		bMsgs, _ := b.GetMessages("com_1", chid, nil, 0)
		if !reflect.DeepEqual(aMsgs, bMsgs) {
			rt.Fatalf("replicas diverged:\n a=%+v\n b=%+v", aMsgs, bMsgs)
		}
		if len(aMsgs) != len(msgIDs) {
			rt.Fatalf("expected %d messages after merge, got %d", len(msgIDs), len(aMsgs))
		}

		aChannels, _ := a.GetChannels("com_1")
		bChannels, _ := b.GetChannels("com_1")
		if len(aChannels) != len(bChannels) {
			rt.Fatalf("channel counts diverged: %d vs %d", len(aChannels), len(bChannels))
		}
		for i := range aChannels {
			if aChannels[i].ID != bChannels[i].ID || aChannels[i].Position != bChannels[i].Position {
				rt.Fatalf("channel lists diverged at %d: %+v vs %+v", i, aChannels[i], bChannels[i])
			}
		}
	})
}

func TestMergeDeletionTombstoneWins(t *testing.T) {
	a, chA := seededEngine(t)
	b, _ := seededEngine(t)

	msg := Message{ID: "m1", ChannelID: chA, SenderID: "peerA", Content: "hi", Timestamp: 2000}
	if err := a.AppendMessage("com_1", msg); err != nil {
		t.Fatalf("append: %v", err)
	}

	// B learns the message, then A deletes it, then A re-merges B's
	// pre-delete snapshot: the tombstone must win and the message must not
	// resurrect.
	aBytes, _ := a.GetDocBytes("com_1")
	if err := b.MergeRemoteDoc("com_1", aBytes); err != nil {
		t.Fatalf("merge into b: %v", err)
	}
	preDelete, _ := b.GetDocBytes("com_1")

	if err := a.DeleteMessage("com_1", "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := a.MergeRemoteDoc("com_1", preDelete); err != nil {
		t.Fatalf("re-merge into a: %v", err)
	}

	msgs, _ := a.GetMessages("com_1", chA, nil, 0)
	if len(msgs) != 0 {
		t.Fatalf("tombstoned message resurrected: %+v", msgs)
	}

	postDelete, _ := a.GetDocBytes("com_1")
	if err := b.MergeRemoteDoc("com_1", postDelete); err != nil {
		t.Fatalf("merge tombstone into b: %v", err)
	}
	msgs, _ = b.GetMessages("com_1", chA, nil, 0)
	if len(msgs) != 0 {
		t.Fatalf("deletion did not converge on b: %+v", msgs)
	}
}
