package swarm

import (
	"context"
	"errors"

	"github.com/libp2p/go-libp2p/core/peer"
	relayclient "github.com/libp2p/go-libp2p/p2p/protocol/circuitv2/client"
	ma "github.com/multiformats/go-multiaddr"
)

// ErrNoRelayConfigured is returned by ReserveRelay when the swarm was built
// without a relay address.
var ErrNoRelayConfigured = errors.New("swarm: no relay configured")

// ReserveRelay dials (if not already connected) and reserves a circuit-v2
// slot at the configured relay. Call it once after connecting and again on
// the reservation's renewal schedule to keep the slot alive.
func (s *Swarm) ReserveRelay(ctx context.Context) (*relayclient.Reservation, error) {
	if s.RelayInfo == nil {
		return nil, ErrNoRelayConfigured
	}
	if err := s.Host.Connect(ctx, *s.RelayInfo); err != nil {
		return nil, err
	}
	return relayclient.Reserve(ctx, s.Host, *s.RelayInfo)
}

// ListenCircuit starts listening on the relay's circuit address so inbound
// connections can be routed through the relay once a reservation lands.
func (s *Swarm) ListenCircuit() error {
	if s.RelayInfo == nil {
		return ErrNoRelayConfigured
	}
	addr, err := ma.NewMultiaddr(s.relayAddr + "/p2p-circuit")
	if err != nil {
		return err
	}
	return s.Host.Network().Listen(addr)
}

// CircuitAddr returns the dial address for peerID reached through relayAddr,
// in the "{relay}/p2p-circuit/p2p/{peer}" form relay-mediated dials use.
func CircuitAddr(relayAddr string, peerID peer.ID) string {
	return relayAddr + "/p2p-circuit/p2p/" + peerID.String()
}
