package validate

import (
	"fmt"

	"github.com/multiformats/go-multiaddr"
)

// RelayAddr checks that addr parses as a multiaddr and carries a /p2p/{peer_id}
// component, so the node can extract the relay's peer ID for reservation and
// circuit dialing.
func RelayAddr(addr string) error {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRelayAddr, err)
	}
	if _, err := ma.ValueForProtocol(multiaddr.P_P2P); err != nil {
		return fmt.Errorf("%w: missing /p2p/{peer_id} component", ErrInvalidRelayAddr)
	}
	return nil
}
