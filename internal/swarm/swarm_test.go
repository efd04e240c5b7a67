package swarm

import (
	"testing"
	"time"

	pb "github.com/libp2p/go-libp2p-pubsub/pb"
)

func TestGossipSubParams(t *testing.T) {
	params := gossipSubParams()

	if params.D != 6 || params.Dlo != 4 || params.Dhi != 12 {
		t.Fatalf("unexpected mesh sizing: D=%d Dlo=%d Dhi=%d", params.D, params.Dlo, params.Dhi)
	}
	if params.HistoryLength != 5 || params.HistoryGossip != 3 {
		t.Fatalf("unexpected history params: length=%d gossip=%d", params.HistoryLength, params.HistoryGossip)
	}
	if params.HeartbeatInterval != time.Second {
		t.Fatalf("unexpected heartbeat: %v", params.HeartbeatInterval)
	}
}

func TestMessageIDFnIsContentAddressed(t *testing.T) {
	payload := []byte(`{"Chat":{"id":"m1"}}`)
	from := []byte("12D3KooWSenderA")

	a := messageIDFn(&pb.Message{Data: payload, From: from})
	b := messageIDFn(&pb.Message{Data: payload, From: from})
	if a != b {
		t.Fatalf("same payload and sender must produce the same ID: %q vs %q", a, b)
	}

	otherPayload := messageIDFn(&pb.Message{Data: []byte(`{"Chat":{"id":"m2"}}`), From: from})
	if a == otherPayload {
		t.Fatal("different payloads must produce different IDs")
	}

	otherSender := messageIDFn(&pb.Message{Data: payload, From: []byte("12D3KooWSenderB")})
	if a == otherSender {
		t.Fatal("different senders must produce different IDs")
	}
}

func TestParseRelayAddr(t *testing.T) {
	info, err := ParseRelayAddr("/ip4/203.0.113.7/tcp/4001/p2p/12D3KooWDpJ7As7BWAwRMfu1VU2WCqNjvq387JEYKDBj4kx6nh6T")
	if err != nil {
		t.Fatalf("parse valid relay addr: %v", err)
	}
	if info.ID.String() != "12D3KooWDpJ7As7BWAwRMfu1VU2WCqNjvq387JEYKDBj4kx6nh6T" {
		t.Fatalf("unexpected peer id: %s", info.ID)
	}

	if _, err := ParseRelayAddr("/ip4/203.0.113.7/tcp/4001"); err == nil {
		t.Fatal("relay addr without /p2p/{peer_id} must be rejected")
	}
	if _, err := ParseRelayAddr("not a multiaddr"); err == nil {
		t.Fatal("garbage must be rejected")
	}
}

func TestCircuitAddr(t *testing.T) {
	const relay = "/ip4/203.0.113.7/tcp/4001/p2p/12D3KooWDpJ7As7BWAwRMfu1VU2WCqNjvq387JEYKDBj4kx6nh6T"
	info, err := ParseRelayAddr(relay)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := CircuitAddr(relay, info.ID)
	want := relay + "/p2p-circuit/p2p/" + info.ID.String()
	if got != want {
		t.Fatalf("unexpected circuit addr:\n got %s\nwant %s", got, want)
	}
}
