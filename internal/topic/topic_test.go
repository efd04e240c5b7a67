package topic

import "testing"

func TestCommunityIDFromTopic(t *testing.T) {
	cases := []struct {
		topic string
		want  string
		ok    bool
	}{
		{CommunityMessages("com_abc", "ch_general"), "com_abc", true},
		{CommunityPresence("com_abc"), "com_abc", true},
		{DirectoryTopic, "", false},
		{SyncTopic, "", false},
		{"garbage", "", false},
	}
	for _, c := range cases {
		got, ok := CommunityIDFromTopic(c.topic)
		if ok != c.ok || got != c.want {
			t.Errorf("CommunityIDFromTopic(%q) = (%q, %v), want (%q, %v)", c.topic, got, ok, c.want, c.ok)
		}
	}
}

func TestDMPairOrderIndependent(t *testing.T) {
	if DMPair("a", "b") != DMPair("b", "a") {
		t.Fatal("DMPair must be symmetric")
	}
}

func TestConversationIDStable(t *testing.T) {
	id1 := ConversationID("12D3peerA", "12D3peerB")
	id2 := ConversationID("12D3peerB", "12D3peerA")
	if id1 != id2 {
		t.Fatalf("ConversationID not order-independent: %q vs %q", id1, id2)
	}
	if len(id1) != len("dm_")+16 {
		t.Fatalf("unexpected conversation ID length: %q", id1)
	}
}

func TestHash64Deterministic(t *testing.T) {
	if Hash64([]byte("hi")) != Hash64([]byte("hi")) {
		t.Fatal("Hash64 must be deterministic")
	}
	if Hash64([]byte("hi")) == Hash64([]byte("bye")) {
		t.Fatal("Hash64 collision on distinct inputs (statistically implausible)")
	}
}
