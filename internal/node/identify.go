package node

import (
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/peer"
)

// watchIdentify forwards completed identify exchanges into identifyCh so
// the loop can seed the DHT routing table with the peer's observed listen
// addresses. Runs until ctx is cancelled.
func (n *Node) watchIdentify() {
	defer n.wg.Done()

	sub, err := n.sw.Host.EventBus().Subscribe(new(event.EvtPeerIdentificationCompleted))
	if err != nil {
		return
	}
	defer sub.Close()

	for {
		select {
		case <-n.ctx.Done():
			return
		case evt, ok := <-sub.Out():
			if !ok {
				return
			}
			e := evt.(event.EvtPeerIdentificationCompleted)
			select {
			case n.identifyCh <- e.Peer:
			case <-n.ctx.Done():
				return
			}
		}
	}
}

// handleIdentify seeds the DHT routing table with a freshly identified
// peer so subsequent lookups can route through it.
func (n *Node) handleIdentify(pid peer.ID) {
	if n.sw.DHT == nil {
		return
	}
	_, _ = n.sw.DHT.RoutingTable().TryAddPeer(pid, false, false)
}
