// Package command is the boundary layer between an outer UI/CLI surface and
// the node's durable state and swarm: every exported method on App is one
// async command, callable concurrently, each responsible for acquiring
// locks in a fixed order (identity, then the CRDT engine, then the node
// handle, then voice channels) and for mutating durable state before
// enqueueing any network side effect.
package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/duskchat/dusk-node/internal/audit"
	"github.com/duskchat/dusk-node/internal/config"
	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/identity"
	"github.com/duskchat/dusk-node/internal/metrics"
	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/storage"
	"github.com/duskchat/dusk-node/internal/voice"
)

// ErrNodeNotRunning is returned by commands that need a request round trip
// through a running node (GIF search and TURN credentials). Other
// node-bound commands, such as a second stop_node or a voice/DM send before
// start_node, are silent no-ops without a node. Read-only queries against
// durable state never return it.
var ErrNodeNotRunning = errors.New("command: node not running")

// ErrNodeAlreadyRunning is returned by start_node when a node is already
// active.
var ErrNodeAlreadyRunning = errors.New("command: node already running")

// ErrNotAuthorized is returned by delete_message and kick_member when the
// acting peer lacks the privilege the operation requires.
var ErrNotAuthorized = errors.New("command: not authorized")

// App is the single long-lived aggregate a CLI or daemon entry point
// constructs once per process: identity, the CRDT engine, durable storage,
// and voice-channel state outlive any individual node run, while the node
// handle itself is started and stopped by start_node/stop_node.
type App struct {
	id      *identity.Identity
	crdt    *crdt.Engine
	store   *storage.Store
	voice   *voice.Channels
	metrics *metrics.Metrics
	audit   *audit.Logger
	netCfg  config.NetworkConfig

	// nodeMu serializes StartNode/StopNode against each other and against
	// every command that needs to know whether the node is running.
	nodeMu     sync.Mutex
	n          *node.Node
	nodeCancel context.CancelFunc
	nodeDone   chan struct{}
	relayAddr  string
}

// Config bundles the already-constructed collaborators an App drives. All
// fields are required; the caller (typically cmd/duskd) is responsible for
// opening storage, loading or creating the identity keypair, and populating
// the CRDT engine from persisted community documents before constructing
// the App.
type Config struct {
	Identity *identity.Identity
	CRDT     *crdt.Engine
	Store    *storage.Store
	Voice    *voice.Channels
	Metrics  *metrics.Metrics
	Audit    *audit.Logger
	Network  config.NetworkConfig
}

// New constructs an App. The node itself is not started; call StartNode.
func New(cfg Config) *App {
	return &App{
		id:      cfg.Identity,
		crdt:    cfg.CRDT,
		store:   cfg.Store,
		voice:   cfg.Voice,
		metrics: cfg.Metrics,
		audit:   cfg.Audit,
		netCfg:  cfg.Network,
	}
}

// Events returns the running node's domain-event stream, or nil if no node
// is currently running. Callers should re-fetch this after every
// StartNode, since the channel is replaced on each run.
func (a *App) Events() <-chan any {
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	if a.n == nil {
		return nil
	}
	return a.n.Events()
}

// isRunningLocked reports whether a node is active. Caller must hold nodeMu.
func (a *App) isRunningLocked() bool { return a.n != nil }

// sendNode enqueues cmd on the running node's command queue. Per the
// boundary contract, an absent node is a silent no-op rather than an error
// for operations whose durable-state mutation has already succeeded.
// Caller must already hold nodeMu — nodeMu is not reentrant, and every call
// site reads a.n after acquiring it for exactly this reason.
func (a *App) sendNode(ctx context.Context, cmd node.Command) {
	n := a.n
	if n == nil {
		return
	}
	if err := n.Send(ctx, cmd); err != nil && !errors.Is(err, node.ErrNotRunning) {
		// queue full or ctx cancelled; the mutation already landed durably.
	}
}

// defaultCommandTimeout bounds a command's network-side-effect enqueue so a
// stalled queue can't hang a caller indefinitely.
const defaultCommandTimeout = 5 * time.Second

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultCommandTimeout)
}

func nowMs() int64 { return time.Now().UnixMilli() }

func wrapf(format string, args ...any) error { return fmt.Errorf("command: "+format, args...) }
