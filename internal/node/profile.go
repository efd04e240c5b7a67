package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/duskchat/dusk-node/internal/envelope"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/swarm"
	"github.com/duskchat/dusk-node/internal/topic"
)

// publishProfileAnnouncement signs the current profile and publishes it on
// the global directory topic so both LAN and WAN peers pick up display
// name, bio, and verification proof changes.
func (n *Node) publishProfileAnnouncement(ctx context.Context) {
	profile := n.id.Profile()
	metricsHash, verificationProof := "", ""
	if profile.VerificationProof != nil {
		metricsHash = profile.VerificationProof.MetricsHash
		verificationProof = profile.VerificationProof.Signature
	}

	ann, err := envelope.SignAnnouncement(
		n.id.PrivateKey(),
		n.LocalPeerID().String(),
		profile.DisplayName,
		profile.Bio,
		time.Now().UnixMilli(),
		metricsHash,
		verificationProof,
	)
	if err != nil {
		slog.Warn("sign profile announcement failed", "error", err)
		return
	}

	msg := protocol.GossipMessage{ProfileAnnounce: ann}
	data, err := msg.Marshal()
	if err != nil {
		slog.Warn("marshal profile announcement failed", "error", err)
		return
	}
	if err := n.sw.Publish(ctx, topic.DirectoryTopic, data); err != nil {
		slog.Debug("publish profile announcement failed", "error", err)
	}
}

// dialAddrString parses and dials an explicit multiaddr string (optionally
// ending in /p2p/<id>).
func (n *Node) dialAddrString(addr string) error {
	info, err := swarm.ParseRelayAddr(addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(n.ctx, 20*time.Second)
	defer cancel()
	return n.sw.Host.Connect(ctx, *info)
}
