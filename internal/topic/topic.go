// Package topic derives the deterministic gossip-topic and conversation-ID
// strings shared by every other component. All functions here are pure.
package topic

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

const (
	// DirectoryTopic is the global directory/profile-announcement topic.
	DirectoryTopic = "dusk/directory"
	// SyncTopic is the global CRDT document-sync topic.
	SyncTopic = "dusk/sync"
	// GlobalPeersNamespace is the rendezvous namespace every node registers
	// on and discovers from regardless of community membership.
	GlobalPeersNamespace = "dusk/peers"

	communityPrefix = "dusk/community/"
	peerNSPrefix    = "dusk/peer/"
	dmPrefix        = "dusk/dm/"
	dmInboxPrefix   = "dusk/dm/inbox/"
)

// CommunityRendezvousNamespace returns the rendezvous namespace a community
// is advertised and discovered under.
func CommunityRendezvousNamespace(communityID string) string {
	return communityPrefix + communityID
}

// PeerRendezvousNamespace returns a peer's personal rendezvous namespace,
// used to guarantee WAN reachability for direct messages.
func PeerRendezvousNamespace(peerID string) string {
	return peerNSPrefix + peerID
}

// CommunityMessages returns the per-channel chat topic.
func CommunityMessages(communityID, channelID string) string {
	return fmt.Sprintf("%s%s/channel/%s/messages", communityPrefix, communityID, channelID)
}

// CommunityTyping returns the per-channel typing-indicator topic.
func CommunityTyping(communityID, channelID string) string {
	return fmt.Sprintf("%s%s/channel/%s/typing", communityPrefix, communityID, channelID)
}

// CommunityPresence returns the per-community presence topic.
func CommunityPresence(communityID string) string {
	return fmt.Sprintf("%s%s/presence", communityPrefix, communityID)
}

// CommunityVoice returns the per-channel voice-signaling topic.
func CommunityVoice(communityID, channelID string) string {
	return fmt.Sprintf("%s%s/channel/%s/voice", communityPrefix, communityID, channelID)
}

// DMPair returns the topic shared by a pair of peers exchanging direct
// messages. Peer IDs are sorted lexicographically so both sides derive the
// same string regardless of who initiates.
func DMPair(peerA, peerB string) string {
	a, b := peerA, peerB
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s%s/%s", dmPrefix, a, b)
}

// DMInbox returns a peer's personal DM inbox topic.
func DMInbox(peerID string) string {
	return dmInboxPrefix + peerID
}

// CommunityIDFromTopic extracts the community ID from a community-scoped
// topic string. The ID is the third "/"-separated segment (after "dusk/community/").
// Returns ("", false) if the topic doesn't start with the community prefix
// or doesn't have enough segments.
func CommunityIDFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, communityPrefix) {
		return "", false
	}
	parts := strings.Split(topic, "/")
	// "dusk" "community" "{cid}" ...
	if len(parts) < 3 {
		return "", false
	}
	return parts[2], true
}

// Hash64 returns a stable 64-bit hash of data, truncated from a BLAKE3
// digest. Used for conversation-ID derivation and as the gossipsub
// content-addressed message-ID function.
func Hash64(data []byte) uint64 {
	sum := blake3.Sum256(data)
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(sum[i])
	}
	return v
}

// ConversationID derives the stable "dm_"-prefixed conversation ID for a
// pair of peers, independent of argument order.
func ConversationID(peerA, peerB string) string {
	a, b := peerA, peerB
	if b < a {
		a, b = b, a
	}
	h := Hash64([]byte(a + b))
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(h)
		h >>= 8
	}
	return "dm_" + hex.EncodeToString(buf)
}

// SortPeers returns its two arguments in lexicographic order.
func SortPeers(peerA, peerB string) (string, string) {
	ids := []string{peerA, peerB}
	sort.Strings(ids)
	return ids[0], ids[1]
}
