package node

import (
	"crypto/rand"
	"testing"
	"time"

	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// bareNode builds a Node with no swarm attached, enough for exercising the
// loop-owned relay/rendezvous state machines that never touch the host.
func bareNode() *Node {
	n := New(Config{})
	n.relayRetryTimer = newStoppedTimer()
	n.relayWarnTimer = newStoppedTimer()
	return n
}

func TestRelayBackoffSchedule(t *testing.T) {
	n := bareNode()

	want := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		32 * time.Second, 64 * time.Second, 120 * time.Second, 120 * time.Second,
	}
	for i, expected := range want {
		if n.backoff != expected {
			t.Fatalf("attempt %d: expected backoff %v, got %v", i, expected, n.backoff)
		}
		n.bumpRelayBackoff()
	}

	if !n.relayWarnPending {
		t.Fatal("first failed attempt must arm the deferred warn timer")
	}
}

func TestRelayReservationAcceptedResetsStateAndDrainsQueues(t *testing.T) {
	n := newTestNode(t)
	for i := 0; i < 5; i++ {
		n.bumpRelayBackoff()
	}
	n.requestRegisterRendezvous("dusk/community/com_1")
	n.requestDiscoverRendezvous("dusk/peer/12D3A")

	n.onRelayReservationAccepted()

	if n.backoff != relayBackoffBase {
		t.Fatalf("expected backoff reset to base, got %v", n.backoff)
	}
	if !n.relayReservationActive {
		t.Fatal("reservation flag must be set")
	}
	if n.relayWarnPending {
		t.Fatal("pending warn must be cancelled")
	}
	if len(n.pendingRegistrations) != 0 || len(n.pendingDiscoveries) != 0 {
		t.Fatalf("queues must drain, got reg=%v disc=%v", n.pendingRegistrations, n.pendingDiscoveries)
	}

	status, ok := findEvent[RelayStatus](drainEvents(n))
	if !ok {
		t.Fatal("expected RelayStatus event")
	}
	if !status.Connected {
		t.Fatal("reservation acceptance must report connected=true")
	}
}

func TestRendezvousQueuesWhileRelayDown(t *testing.T) {
	n := bareNode()

	n.requestRegisterRendezvous("dusk/community/com_1")
	n.requestRegisterRendezvous("dusk/community/com_2")
	n.requestDiscoverRendezvous("dusk/peer/12D3A")

	if len(n.pendingRegistrations) != 2 || len(n.pendingDiscoveries) != 1 {
		t.Fatalf("expected queued ops, got reg=%v disc=%v", n.pendingRegistrations, n.pendingDiscoveries)
	}
	if n.pendingRegSince.IsZero() || n.pendingDiscSince.IsZero() {
		t.Fatal("queue-age timestamps must be set on first enqueue")
	}
}

func TestRendezvousQueueTTLSweep(t *testing.T) {
	n := bareNode()

	n.requestRegisterRendezvous("dusk/community/com_1")
	n.requestDiscoverRendezvous("dusk/peer/12D3A")

	// Simulate queues stuck past their TTL, then the 120s tick firing.
	n.pendingRegSince = time.Now().Add(-pendingQueueTTL - time.Second)
	n.pendingDiscSince = time.Now().Add(-pendingQueueTTL - time.Second)
	n.refreshRendezvous()

	if len(n.pendingRegistrations) != 0 || len(n.pendingDiscoveries) != 0 {
		t.Fatalf("stale queues must be cleared, got reg=%v disc=%v", n.pendingRegistrations, n.pendingDiscoveries)
	}
	if !n.pendingRegSince.IsZero() || !n.pendingDiscSince.IsZero() {
		t.Fatal("queue-age timestamps must be reset after the sweep")
	}
}

func TestRendezvousQueueBelowTTLKept(t *testing.T) {
	n := bareNode()

	n.requestRegisterRendezvous("dusk/community/com_1")
	n.pendingRegSince = time.Now().Add(-pendingQueueTTL / 2)
	n.refreshRendezvous()

	if len(n.pendingRegistrations) != 1 {
		t.Fatalf("queue younger than the TTL must survive the tick, got %v", n.pendingRegistrations)
	}
}

func TestUnregisterRendezvousDropsEverywhere(t *testing.T) {
	n := bareNode()

	n.requestRegisterRendezvous("dusk/community/com_1")
	n.requestDiscoverRendezvous("dusk/community/com_1")
	n.registeredNamespaces["dusk/community/com_1"] = true

	n.unregisterRendezvous("dusk/community/com_1")

	if len(n.pendingRegistrations) != 0 || len(n.pendingDiscoveries) != 0 {
		t.Fatalf("unregister must clear pending queues, got reg=%v disc=%v", n.pendingRegistrations, n.pendingDiscoveries)
	}
	if n.registeredNamespaces["dusk/community/com_1"] {
		t.Fatal("unregister must drop the namespace from the registered set")
	}
}

// A relay that accepts the transport connection but denies the circuit
// reservation: the connection-established path must not fake a
// reservation, drain queues, or kill the retry schedule.
func TestRelayConnectWithoutReservationKeepsRetrying(t *testing.T) {
	n := newTestNode(t)

	relayPriv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	relayID, err := peer.IDFromPrivateKey(relayPriv)
	if err != nil {
		t.Fatalf("derive peer id: %v", err)
	}
	n.sw.RelayInfo = &peer.AddrInfo{ID: relayID}

	// Two reservation attempts already failed, so backoff has advanced.
	n.bumpRelayBackoff()
	n.bumpRelayBackoff()
	n.requestRegisterRendezvous("dusk/community/com_1")
	drainEvents(n)

	// The transport link comes up — the notifiee queued this before the
	// reservation outcome was known.
	n.onPeerConnected(relayID)

	if n.relayReservationActive {
		t.Fatal("a transport connection alone must not mark the reservation active")
	}
	if n.backoff != relayBackoffBase {
		t.Fatalf("connection established must reset backoff to base, got %v", n.backoff)
	}
	if len(n.pendingRegistrations) != 1 {
		t.Fatalf("pending rendezvous ops must stay queued until the reservation lands, got %v", n.pendingRegistrations)
	}
	status, ok := findEvent[RelayStatus](drainEvents(n))
	if !ok || !status.Connected {
		t.Fatal("expected RelayStatus{connected:true} on the transport link coming up")
	}
}

func TestFireRelayWarnEmitsDisconnectedStatus(t *testing.T) {
	n := bareNode()
	n.relayWarnPending = true

	n.fireRelayWarn()

	status, ok := findEvent[RelayStatus](drainEvents(n))
	if !ok {
		t.Fatal("expected RelayStatus event")
	}
	if status.Connected {
		t.Fatal("warn firing while disconnected must report connected=false")
	}
	if n.relayWarnPending {
		t.Fatal("warn must clear its pending flag")
	}
}

func TestFireRelayWarnSuppressedWhenReserved(t *testing.T) {
	n := bareNode()
	n.relayWarnPending = true
	n.relayReservationActive = true

	n.fireRelayWarn()

	if _, ok := findEvent[RelayStatus](drainEvents(n)); ok {
		t.Fatal("warn must not fire once the reservation is active")
	}
}
