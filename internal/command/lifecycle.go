package command

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/duskchat/dusk-node/internal/config"
	"github.com/duskchat/dusk-node/internal/envelope"
	"github.com/duskchat/dusk-node/internal/identity"
	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/swarm"
	"github.com/duskchat/dusk-node/internal/topic"
	"github.com/duskchat/dusk-node/internal/validate"
)

// resetIdentityPropagationWait is how long reset_identity waits after
// publishing the revocation before tearing the node down, giving gossip a
// chance to reach connected peers.
const resetIdentityPropagationWait = 500 * time.Millisecond

// StartNode builds the swarm around the current identity, starts the event
// loop, subscribes to every topic implied by already-known durable state,
// registers the namespaces that make this peer discoverable, and announces
// initial presence plus the signed profile.
func (a *App) StartNode(ctx context.Context) error {
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	if a.isRunningLocked() {
		return ErrNodeAlreadyRunning
	}

	settings, err := a.store.LoadSettings()
	if err != nil {
		return wrapf("load settings: %w", err)
	}
	relayAddr := config.ResolveRelayAddr(os.Getenv("DUSK_RELAY_ADDR"), settings.CustomRelayAddr)
	if relayAddr == "" {
		relayAddr = config.CompiledDefaultRelayAddr
	}

	sw, err := swarm.Build(ctx, swarm.Config{
		PrivateKey:         a.id.PrivateKey(),
		ListenAddrs:        a.netCfg.ListenAddresses,
		RelayAddr:          relayAddr,
		EnableNATPortMap:   a.netCfg.EnableNATPortMap,
		EnableHolePunching: a.netCfg.EnableHolePunching,
	})
	if err != nil {
		return wrapf("build swarm: %w", err)
	}

	n := node.New(node.Config{
		Swarm:     sw,
		Identity:  a.id,
		CRDT:      a.crdt,
		Store:     a.store,
		Voice:     a.voice,
		Metrics:   a.metrics,
		Audit:     a.audit,
		RelayAddr: relayAddr,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := n.Run(runCtx); err != nil {
			slog.Error("node run exited with error", "error", err)
		}
	}()

	a.n = n
	a.nodeCancel = cancel
	a.nodeDone = done
	a.relayAddr = relayAddr

	a.bootstrapSubscriptions(ctx)
	return nil
}

// bootstrapSubscriptions issues every subscribe/register/discover/announce
// call start_node is responsible for. Failures are neither logged nor returned:
// by the time the node is running, durable state (identity, CRDT, storage)
// is already consistent, and a missed subscription self-heals on the next
// rendezvous refresh or reconnect. Caller must hold nodeMu with a freshly
// started a.n.
func (a *App) bootstrapSubscriptions(ctx context.Context) {
	subCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	local := a.id.PeerID().String()

	a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.SyncTopic}})
	a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.DirectoryTopic}})
	a.sendNode(subCtx, node.Command{RegisterRendezvous: &node.RegisterRendezvousCmd{Namespace: topic.GlobalPeersNamespace}})
	a.sendNode(subCtx, node.Command{DiscoverRendezvous: &node.DiscoverRendezvousCmd{Namespace: topic.GlobalPeersNamespace}})
	a.sendNode(subCtx, node.Command{RegisterRendezvous: &node.RegisterRendezvousCmd{Namespace: topic.PeerRendezvousNamespace(local)}})

	for _, cid := range a.crdt.CommunityIDs() {
		a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityPresence(cid)}})
		if channels, err := a.crdt.GetChannels(cid); err == nil {
			for _, ch := range channels {
				a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityMessages(cid, ch.ID)}})
				a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.CommunityTyping(cid, ch.ID)}})
			}
		}
		a.sendNode(subCtx, node.Command{RegisterRendezvous: &node.RegisterRendezvousCmd{Namespace: topic.CommunityRendezvousNamespace(cid)}})
		a.sendNode(subCtx, node.Command{DiscoverRendezvous: &node.DiscoverRendezvousCmd{Namespace: topic.CommunityRendezvousNamespace(cid)}})
	}

	if convs, err := a.store.LoadAllDMConversations(); err == nil {
		for _, c := range convs {
			a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.DMPair(local, c.PeerID)}})
		}
	}
	a.sendNode(subCtx, node.Command{Subscribe: &node.SubscribeCmd{Topic: topic.DMInbox(local)}})

	a.sendNode(subCtx, node.Command{BroadcastPresence: &node.BroadcastPresenceCmd{Status: protocol.PresenceOnline}})
	a.publishProfileAnnouncementLocked(subCtx)
}

// publishProfileAnnouncementLocked signs the current profile and publishes
// it on the directory topic. Caller must hold nodeMu with a running node.
func (a *App) publishProfileAnnouncementLocked(ctx context.Context) {
	local := a.id.PeerID().String()
	profile := a.id.Profile()

	metricsHash, proof := "", ""
	if profile.VerificationProof != nil {
		metricsHash = profile.VerificationProof.MetricsHash
		proof = profile.VerificationProof.Signature
	}

	ann, err := envelope.SignAnnouncement(a.id.PrivateKey(), local, profile.DisplayName, profile.Bio, nowMs(), metricsHash, proof)
	if err != nil {
		slog.Warn("sign profile announcement failed", "error", err)
		return
	}
	gm := protocol.GossipMessage{ProfileAnnounce: ann}
	data, err := gm.Marshal()
	if err != nil {
		return
	}
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.DirectoryTopic, Data: data}})
}

// StopNode broadcasts an offline presence, shuts the event loop down, and
// waits for it to exit. Safe to call when no node is running (a silent
// no-op), matching the boundary's "no-op rather than error" policy for
// operations whose durable-state side is irrelevant.
func (a *App) StopNode(ctx context.Context) error {
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	return a.stopNodeLocked(ctx)
}

// stopNodeLocked does the actual teardown. Caller must hold nodeMu.
func (a *App) stopNodeLocked(ctx context.Context) error {
	if !a.isRunningLocked() {
		return nil
	}
	n := a.n

	offCtx, cancel := withDefaultTimeout(ctx)
	_ = n.Send(offCtx, node.Command{BroadcastPresence: &node.BroadcastPresenceCmd{Status: protocol.PresenceOffline}})
	_ = n.Send(offCtx, node.Command{Shutdown: &node.ShutdownCmd{}})
	cancel()

	n.Close()
	a.nodeCancel()
	<-a.nodeDone

	a.n = nil
	a.nodeCancel = nil
	a.nodeDone = nil
	return nil
}

// SetRelayAddress validates addr as a multiaddr carrying a /p2p/{peer_id}
// component, persists it to settings, and restarts the node (if it was
// running) so the new address takes effect immediately. An empty addr
// clears the override, falling back to DUSK_RELAY_ADDR or the compiled
// default on the next start.
func (a *App) SetRelayAddress(ctx context.Context, addr string) error {
	if addr != "" {
		if err := validate.RelayAddr(addr); err != nil {
			return wrapf("relay address %q: %w", addr, err)
		}
	}

	settings, err := a.store.LoadSettings()
	if err != nil {
		return wrapf("load settings: %w", err)
	}
	settings.CustomRelayAddr = addr
	if err := a.store.SaveSettings(settings); err != nil {
		return wrapf("save settings: %w", err)
	}

	a.nodeMu.Lock()
	running := a.isRunningLocked()
	if running {
		if err := a.stopNodeLocked(ctx); err != nil {
			a.nodeMu.Unlock()
			return err
		}
	}
	a.nodeMu.Unlock()

	if !running {
		return nil
	}
	return a.StartNode(ctx)
}

// ResetIdentity signs and publishes a profile revocation, waits briefly for
// it to propagate, stops the node, clears all in-memory and durable state,
// and leaves the app ready for a fresh identity to be installed by the
// caller. has_identity() (storage.HasIdentity) returns false once this
// returns, and the legacy_migrated marker is preserved deliberately — a
// reset must not re-trigger the one-time legacy filesystem migration.
func (a *App) ResetIdentity(ctx context.Context) error {
	a.nodeMu.Lock()
	running := a.isRunningLocked()
	var n *node.Node
	if running {
		n = a.n
	}
	a.nodeMu.Unlock()

	if running {
		local := a.id.PeerID().String()
		rev, err := envelope.SignRevocation(a.id.PrivateKey(), local, nowMs())
		if err != nil {
			slog.Warn("sign profile revocation failed", "error", err)
		} else {
			gm := protocol.GossipMessage{ProfileRevoke: rev}
			if data, merr := gm.Marshal(); merr == nil {
				pubCtx, cancel := withDefaultTimeout(ctx)
				_ = n.Send(pubCtx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.DirectoryTopic, Data: data}})
				cancel()
			}
		}

		select {
		case <-time.After(resetIdentityPropagationWait):
		case <-ctx.Done():
		}

		a.nodeMu.Lock()
		stopErr := a.stopNodeLocked(ctx)
		a.nodeMu.Unlock()
		if stopErr != nil {
			return stopErr
		}
	}

	a.crdt.Clear()
	a.id.SetProfile(identity.Profile{})
	if err := a.store.Wipe(); err != nil {
		return wrapf("wipe storage: %w", err)
	}
	return nil
}
