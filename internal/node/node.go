// Package node implements the single cooperative event loop that owns the
// libp2p swarm: it is the only goroutine that ever touches the host,
// pubsub, or DHT directly. Everything else reaches it through a bounded
// command queue and reads its effects back as domain events.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/duskchat/dusk-node/internal/audit"
	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/identity"
	"github.com/duskchat/dusk-node/internal/metrics"
	"github.com/duskchat/dusk-node/internal/storage"
	"github.com/duskchat/dusk-node/internal/swarm"
	"github.com/duskchat/dusk-node/internal/voice"
)

// commandQueueCapacity is the mpsc queue depth between the Command API and
// the event loop.
const commandQueueCapacity = 256

// rendezvousRefreshInterval is how often registered namespaces are
// re-advertised and stale pending queues are swept.
const rendezvousRefreshInterval = 120 * time.Second

// pendingQueueTTL bounds how long a rendezvous op can wait for a relay
// reservation before it's discarded rather than retried forever.
const pendingQueueTTL = 600 * time.Second

// relayWarnGrace is how long the loop waits after a relay dial failure
// before surfacing a user-visible RelayStatus{connected:false}.
const relayWarnGrace = 8 * time.Second

const (
	relayBackoffBase = 2 * time.Second
	relayBackoffCap  = 120 * time.Second
)

// Config bundles the already-constructed collaborators a Node drives. All
// fields are required except Metrics and Audit (nil disables them) and
// RelayAddr, which is empty when no relay was configured.
type Config struct {
	Swarm     *swarm.Swarm
	Identity  *identity.Identity
	CRDT      *crdt.Engine
	Store     *storage.Store
	Voice     *voice.Channels
	Metrics   *metrics.Metrics
	Audit     *audit.Logger
	RelayAddr string
}

// Node is the running event loop plus the queues used to drive it.
type Node struct {
	sw        *swarm.Swarm
	id        *identity.Identity
	crdt      *crdt.Engine
	store     *storage.Store
	voice     *voice.Channels
	metrics   *metrics.Metrics
	audit     *audit.Logger
	relayAddr string

	commands chan Command
	events   chan any

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done chan struct{}

	// swarm-event intake, populated by forwarder goroutines the loop spawns.
	gossipCh   chan gossipMsg
	syncCh     chan gossipMsg
	mdnsCh     chan []peer.AddrInfo
	connCh     chan connEvent
	identifyCh chan peer.ID

	subscriptions map[string]context.CancelFunc

	// runtime state — touched only by the loop goroutine.
	connected              map[peer.ID]bool
	relayReservationActive bool
	registeredNamespaces   map[string]bool
	pendingRegistrations   []string
	pendingRegSince        time.Time
	pendingDiscoveries     []string
	pendingDiscSince       time.Time
	backoff                time.Duration
	relayWarnPending       bool
	pendingJoinRoleGuard   map[string]bool
	leftCommunities        map[string]bool
	dmDedup                *dedupSet

	relayRetryTimer *time.Timer
	relayWarnTimer  *time.Timer
}

// New builds a Node around cfg. The swarm and its host are assumed already
// built; New does not start the event loop — call Run for that.
func New(cfg Config) *Node {
	return &Node{
		sw:        cfg.Swarm,
		id:        cfg.Identity,
		crdt:      cfg.CRDT,
		store:     cfg.Store,
		voice:     cfg.Voice,
		metrics:   cfg.Metrics,
		audit:     cfg.Audit,
		relayAddr: cfg.RelayAddr,

		commands: make(chan Command, commandQueueCapacity),
		events:   make(chan any, commandQueueCapacity),
		done:     make(chan struct{}),

		gossipCh:   make(chan gossipMsg, 64),
		syncCh:     make(chan gossipMsg, 16),
		mdnsCh:     make(chan []peer.AddrInfo, 8),
		connCh:     make(chan connEvent, 32),
		identifyCh: make(chan peer.ID, 32),

		subscriptions: make(map[string]context.CancelFunc),

		connected:            make(map[peer.ID]bool),
		registeredNamespaces: make(map[string]bool),
		pendingJoinRoleGuard: make(map[string]bool),
		leftCommunities:      make(map[string]bool),
		dmDedup:              newDedupSet(10000),
		backoff:              relayBackoffBase,
	}
}

// Commands returns the send side of the command queue.
func (n *Node) Commands() chan<- Command { return n.commands }

// Events returns the receive side of the domain-event stream.
func (n *Node) Events() <-chan any { return n.events }

// LocalPeerID returns this node's own peer ID.
func (n *Node) LocalPeerID() peer.ID { return n.sw.Host.ID() }

// Run starts the event loop and blocks until it exits (on Shutdown or ctx
// cancellation). It is meant to be called from its own goroutine by the
// Command API's start_node handler.
func (n *Node) Run(ctx context.Context) error {
	n.ctx, n.cancel = context.WithCancel(ctx)
	// Deferred teardown order on exit: cancel the loop context first so
	// every forwarder goroutine unblocks, then wait for them, then signal
	// done to release Close callers.
	defer close(n.done)
	defer n.wg.Wait()
	defer n.cancel()

	notifiee := newConnNotifiee(n)
	n.sw.Host.Network().Notify(notifiee)
	defer n.sw.Host.Network().StopNotify(notifiee)

	n.wg.Add(1)
	go n.watchIdentify()

	mdns := swarm.NewMDNS(n.sw.Host, func(batch []peer.AddrInfo) {
		select {
		case n.mdnsCh <- batch:
		case <-n.ctx.Done():
		}
	})
	if err := mdns.Start(n.ctx); err != nil {
		slog.Warn("mdns start failed", "error", err)
	} else {
		defer mdns.Close()
	}

	n.relayWarnTimer = time.NewTimer(time.Hour)
	n.relayWarnTimer.Stop()
	n.relayRetryTimer = time.NewTimer(time.Hour)
	n.relayRetryTimer.Stop()
	rendezvousTicker := time.NewTicker(rendezvousRefreshInterval)
	defer rendezvousTicker.Stop()

	if n.relayAddr != "" {
		n.scheduleRelayDial()
	}

	for {
		select {
		case <-n.ctx.Done():
			return nil

		case cmd := <-n.commands:
			if n.handleCommand(cmd) {
				return nil
			}

		case msg := <-n.gossipCh:
			n.handleCommunityGossip(msg)

		case msg := <-n.syncCh:
			n.handleSyncMessage(msg)

		case batch := <-n.mdnsCh:
			n.handleMDNSBatch(batch)

		case ev := <-n.connCh:
			n.handleConnEvent(ev)

		case pid := <-n.identifyCh:
			n.handleIdentify(pid)

		case <-rendezvousTicker.C:
			n.refreshRendezvous()

		case <-n.relayRetryTimer.C:
			n.fireRelayRetry()

		case <-n.relayWarnTimer.C:
			n.fireRelayWarn()
		}
	}
}

// Close tears down the loop if it's still running and waits for it to
// exit. Safe to call multiple times.
func (n *Node) Close() {
	if n.cancel != nil {
		n.cancel()
	}
	<-n.done
}

func (n *Node) subscribeTopic(t string, dest chan<- gossipMsg) error {
	if _, ok := n.subscriptions[t]; ok {
		return nil
	}
	sub, err := n.sw.Subscribe(t)
	if err != nil {
		return fmt.Errorf("node: subscribe %s: %w", t, err)
	}
	ctx, cancel := context.WithCancel(n.ctx)
	n.subscriptions[t] = cancel
	n.wg.Add(1)
	go n.forwardSubscription(ctx, t, sub, dest)
	return nil
}

func (n *Node) unsubscribeTopic(t string) {
	if cancel, ok := n.subscriptions[t]; ok {
		cancel()
		delete(n.subscriptions, t)
	}
	n.sw.Unsubscribe(t)
}

type gossipMsg struct {
	Topic string
	Data  []byte
	From  peer.ID
}

func (n *Node) forwardSubscription(ctx context.Context, topicName string, sub *pubsub.Subscription, dest chan<- gossipMsg) {
	defer n.wg.Done()
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == n.sw.Host.ID() {
			continue
		}
		select {
		case dest <- gossipMsg{Topic: topicName, Data: msg.Data, From: msg.ReceivedFrom}:
		case <-ctx.Done():
			return
		}
	}
}
