package node

import (
	"context"
	"errors"
	"time"

	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/swarm"
)

// requestTimeout bounds every outbound auxiliary request-response call
// against the relay (GIF search, directory search, TURN credentials).
const requestTimeout = 5 * time.Second

// ErrNoRelay is returned (and surfaced in Reply.Error where applicable) when
// an auxiliary request is issued with no relay configured or connected.
var ErrNoRelay = errors.New("node: no relay connected")

func (n *Node) handleGifSearch(cmd *GifSearchCmd) {
	if n.sw.RelayInfo == nil {
		sendReply(cmd.Reply, protocol.GifSearchResponse{Error: ErrNoRelay.Error()})
		return
	}
	relayID := n.sw.RelayInfo.ID
	req := protocol.GifSearchRequest{RequestID: protocol.NewRequestID(), Query: cmd.Query}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(n.ctx, requestTimeout)
		defer cancel()
		resp, err := swarm.Request[protocol.GifSearchRequest, protocol.GifSearchResponse](ctx, n.sw.Host, relayID, protocol.GifSearchProtocolID, req)
		if err != nil {
			resp = protocol.GifSearchResponse{RequestID: req.RequestID, Error: err.Error()}
		}
		sendReply(cmd.Reply, resp)
	}()
}

func (n *Node) handleDirectorySearch(cmd *DirectorySearchCmd) {
	if n.sw.RelayInfo == nil {
		sendReply(cmd.Reply, protocol.DirectorySearchResponse{Error: ErrNoRelay.Error()})
		return
	}
	relayID := n.sw.RelayInfo.ID
	req := protocol.DirectorySearchRequest{RequestID: protocol.NewRequestID(), Query: cmd.Query}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(n.ctx, requestTimeout)
		defer cancel()
		resp, err := swarm.Request[protocol.DirectorySearchRequest, protocol.DirectorySearchResponse](ctx, n.sw.Host, relayID, protocol.DirectorySearchProtocolID, req)
		if err != nil {
			resp = protocol.DirectorySearchResponse{RequestID: req.RequestID, Error: err.Error()}
		}
		sendReply(cmd.Reply, resp)
	}()
}

func (n *Node) handleGetTurnCredentials(cmd *GetTurnCredentialsCmd) {
	if n.sw.RelayInfo == nil {
		sendReply(cmd.Reply, protocol.TurnCredentialsResponse{Error: ErrNoRelay.Error()})
		return
	}
	relayID := n.sw.RelayInfo.ID
	req := protocol.TurnCredentialsRequest{RequestID: protocol.NewRequestID()}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(n.ctx, requestTimeout)
		defer cancel()
		resp, err := swarm.Request[protocol.TurnCredentialsRequest, protocol.TurnCredentialsResponse](ctx, n.sw.Host, relayID, protocol.TurnCredentialsProtocolID, req)
		if err != nil {
			resp = protocol.TurnCredentialsResponse{RequestID: req.RequestID, Error: err.Error()}
		}
		sendReply(cmd.Reply, resp)
	}()
}

// handleSetRelayDiscoverable toggles whether this node's own directory
// entry is eligible for discovery by peers searching the relay's
// directory index; the toggle itself is carried by a directory-wide
// rendezvous namespace rather than a separate protocol.
func (n *Node) handleSetRelayDiscoverable(cmd *SetRelayDiscoverableCmd) {
	const discoverableNamespace = "dusk/directory/discoverable"
	if cmd.Enabled {
		n.requestRegisterRendezvous(discoverableNamespace)
	} else {
		n.unregisterRendezvous(discoverableNamespace)
	}
	sendReply(cmd.Reply, nil)
}
