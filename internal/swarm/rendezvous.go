package swarm

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/peer"
)

// rendezvousDiscoverLimit bounds how many peers a single discovery round
// asks the DHT for, so one popular namespace can't flood the dial queue.
const rendezvousDiscoverLimit = 32

// RegisterRendezvous advertises ns on the DHT and returns the TTL the node
// should wait before re-advertising.
func (s *Swarm) RegisterRendezvous(ctx context.Context, ns string) (time.Duration, error) {
	return s.Discovery.Advertise(ctx, ns)
}

// DiscoverRendezvous looks up peers advertising under ns and drains them
// into a slice bounded by rendezvousDiscoverLimit.
func (s *Swarm) DiscoverRendezvous(ctx context.Context, ns string) ([]peer.AddrInfo, error) {
	ch, err := s.Discovery.FindPeers(ctx, ns, discovery.Limit(rendezvousDiscoverLimit))
	if err != nil {
		return nil, err
	}
	var out []peer.AddrInfo
	for info := range ch {
		if info.ID == s.Host.ID() {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}
