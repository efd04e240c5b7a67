package command

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// newCommunityID derives a community's stable ID from its name, creator,
// and creation time, so two peers that independently decided to create "the
// same" community still end up with distinct, collision-resistant IDs:
// "com_" + first 16 hex of sha256(name || creator_peer_id || u64_le(ts)).
func newCommunityID(name, creatorPeerID string, timestampMs int64) string {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(timestampMs))
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte(creatorPeerID))
	h.Write(ts[:])
	sum := h.Sum(nil)
	return "com_" + hex.EncodeToString(sum)[:16]
}

// newChannelID derives a channel's stable ID from its owning community,
// name, and creation time: "ch_" + first 12 hex of
// sha256(community_id || name || u64_le(ts)).
func newChannelID(communityID, name string, timestampMs int64) string {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(timestampMs))
	h := sha256.New()
	h.Write([]byte(communityID))
	h.Write([]byte(name))
	h.Write(ts[:])
	sum := h.Sum(nil)
	return "ch_" + hex.EncodeToString(sum)[:12]
}
