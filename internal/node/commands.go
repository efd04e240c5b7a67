package node

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/topic"
)

var syncTopicName = topic.SyncTopic

// ErrNotRunning is returned by Send when the node's event loop has already
// exited (or never started).
var ErrNotRunning = errors.New("node: not running")

// Command is the externally-tagged command envelope the Command API
// enqueues; exactly one field is set per instance, mirroring the same
// tagged-union shape protocol.GossipMessage uses for wire envelopes.
type Command struct {
	Shutdown             *ShutdownCmd
	SendMessage          *SendMessageCmd
	Subscribe            *SubscribeCmd
	Unsubscribe          *UnsubscribeCmd
	GetListenAddrs       *GetListenAddrsCmd
	Dial                 *DialCmd
	BroadcastPresence    *BroadcastPresenceCmd
	RegisterRendezvous   *RegisterRendezvousCmd
	DiscoverRendezvous   *DiscoverRendezvousCmd
	UnregisterRendezvous *UnregisterRendezvousCmd
	SetRelayDiscoverable *SetRelayDiscoverableCmd
	GifSearch            *GifSearchCmd
	DirectorySearch      *DirectorySearchCmd
	GetTurnCredentials   *GetTurnCredentialsCmd
	MarkJoinedCommunity  *MarkJoinedCommunityCmd
	MarkLeftCommunity    *MarkLeftCommunityCmd
}

type ShutdownCmd struct{}

type SendMessageCmd struct {
	Topic string
	Data  []byte
}

type SubscribeCmd struct{ Topic string }

type UnsubscribeCmd struct{ Topic string }

type GetListenAddrsCmd struct{ Reply chan<- []string }

type DialCmd struct{ Addr string }

type BroadcastPresenceCmd struct{ Status protocol.PresenceStatus }

type RegisterRendezvousCmd struct{ Namespace string }

type DiscoverRendezvousCmd struct{ Namespace string }

type UnregisterRendezvousCmd struct{ Namespace string }

type SetRelayDiscoverableCmd struct {
	Enabled bool
	Reply   chan<- error
}

type GifSearchCmd struct {
	Query string
	Reply chan<- protocol.GifSearchResponse
}

type DirectorySearchCmd struct {
	Query string
	Reply chan<- protocol.DirectorySearchResponse
}

type GetTurnCredentialsCmd struct {
	Reply chan<- protocol.TurnCredentialsResponse
}

// MarkJoinedCommunityCmd arms the pending-join-role guard for a community
// and clears any stale left-community marker. Sent by join_community right
// after it creates the placeholder document, since pendingJoinRoleGuard and
// leftCommunities are loop-owned state touched only from inside Run.
type MarkJoinedCommunityCmd struct{ CommunityID string }

// MarkLeftCommunityCmd records that the local peer explicitly left a
// community, so a DocumentOffer racing the leave broadcast can't recreate
// it. Sent by leave_community after removing the local document.
type MarkLeftCommunityCmd struct{ CommunityID string }

// Send enqueues cmd, blocking until there's room, ctx is done, or the loop
// has exited.
func (n *Node) Send(ctx context.Context, cmd Command) error {
	select {
	case n.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-n.done:
		return ErrNotRunning
	}
}

// handleCommand executes one queued command. It returns true when the loop
// should exit (Shutdown).
func (n *Node) handleCommand(cmd Command) bool {
	switch {
	case cmd.Shutdown != nil:
		return true

	case cmd.SendMessage != nil:
		c := cmd.SendMessage
		ctx, cancel := context.WithTimeout(n.ctx, 5*time.Second)
		defer cancel()
		if err := n.sw.Publish(ctx, c.Topic, c.Data); err != nil {
			slog.Warn("publish failed", "topic", c.Topic, "error", err)
		}

	case cmd.Subscribe != nil:
		t := cmd.Subscribe.Topic
		dest := n.destFor(t)
		if err := n.subscribeTopic(t, dest); err != nil {
			slog.Warn("subscribe failed", "topic", t, "error", err)
		}

	case cmd.Unsubscribe != nil:
		n.unsubscribeTopic(cmd.Unsubscribe.Topic)

	case cmd.GetListenAddrs != nil:
		addrs := make([]string, 0)
		for _, a := range n.sw.Host.Addrs() {
			addrs = append(addrs, a.String()+"/p2p/"+n.sw.Host.ID().String())
		}
		sendReply(cmd.GetListenAddrs.Reply, addrs)

	case cmd.Dial != nil:
		n.handleDialCommand(cmd.Dial.Addr)

	case cmd.BroadcastPresence != nil:
		n.broadcastPresence(cmd.BroadcastPresence.Status)

	case cmd.RegisterRendezvous != nil:
		n.requestRegisterRendezvous(cmd.RegisterRendezvous.Namespace)

	case cmd.DiscoverRendezvous != nil:
		n.requestDiscoverRendezvous(cmd.DiscoverRendezvous.Namespace)

	case cmd.UnregisterRendezvous != nil:
		n.unregisterRendezvous(cmd.UnregisterRendezvous.Namespace)

	case cmd.SetRelayDiscoverable != nil:
		n.handleSetRelayDiscoverable(cmd.SetRelayDiscoverable)

	case cmd.GifSearch != nil:
		n.handleGifSearch(cmd.GifSearch)

	case cmd.DirectorySearch != nil:
		n.handleDirectorySearch(cmd.DirectorySearch)

	case cmd.GetTurnCredentials != nil:
		n.handleGetTurnCredentials(cmd.GetTurnCredentials)

	case cmd.MarkJoinedCommunity != nil:
		cid := cmd.MarkJoinedCommunity.CommunityID
		delete(n.leftCommunities, cid)
		n.pendingJoinRoleGuard[cid] = true

	case cmd.MarkLeftCommunity != nil:
		cid := cmd.MarkLeftCommunity.CommunityID
		n.leftCommunities[cid] = true
		delete(n.pendingJoinRoleGuard, cid)
	}
	return false
}

// destFor routes an incoming-gossip forwarder to the sync-message channel
// for the sync topic and the gossip-envelope channel for everything else.
func (n *Node) destFor(t string) chan<- gossipMsg {
	if t == syncTopicName {
		return n.syncCh
	}
	return n.gossipCh
}

func sendReply[T any](reply chan<- T, v T) {
	if reply == nil {
		return
	}
	select {
	case reply <- v:
	default:
	}
}
