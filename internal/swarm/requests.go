package swarm

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	coreprotocol "github.com/libp2p/go-libp2p/core/protocol"

	"github.com/duskchat/dusk-node/internal/protocol"
)

// Request opens a stream to peerID speaking protoID, writes req as a CBOR
// frame, and reads back a single CBOR-framed response. It backs the GIF
// search, directory search, and TURN credentials request-response calls,
// all of which share this one-shot open/write/read/close shape.
func Request[Req, Resp any](ctx context.Context, h host.Host, peerID peer.ID, protoID string, req Req) (Resp, error) {
	var resp Resp

	s, err := h.NewStream(ctx, peerID, coreprotocol.ID(protoID))
	if err != nil {
		return resp, fmt.Errorf("swarm: open stream %s: %w", protoID, err)
	}
	defer s.Close()

	if err := protocol.WriteCBORFrame(s, req); err != nil {
		return resp, fmt.Errorf("swarm: write request on %s: %w", protoID, err)
	}
	if err := protocol.ReadCBORFrame(ctx, s, &resp); err != nil {
		return resp, fmt.Errorf("swarm: read response on %s: %w", protoID, err)
	}
	return resp, nil
}
