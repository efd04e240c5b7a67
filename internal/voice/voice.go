// Package voice tracks voice-channel participant presence. State is
// rebuilt entirely from gossip and never persisted — a process restart
// starts with empty channels.
package voice

import (
	"sync"

	"github.com/duskchat/dusk-node/internal/protocol"
)

// Participant is one peer's presence within a voice channel.
type Participant struct {
	PeerID      string
	DisplayName string
	MediaState  protocol.MediaState
}

// key identifies a voice channel as "community_id:channel_id".
func key(communityID, channelID string) string {
	return communityID + ":" + channelID
}

// Channels is the shared, lock-protected map of voice-channel presence.
// Mutated by both the event loop (on incoming gossip) and voice commands.
type Channels struct {
	mu       sync.Mutex
	channels map[string][]Participant
}

// New returns an empty Channels map.
func New() *Channels {
	return &Channels{channels: make(map[string][]Participant)}
}

// Join adds or updates a participant in a voice channel, returning the
// locally-tracked participant list after the join.
//
// The returned list only reflects locally-tracked peers: a joining peer
// does not yet see participants whose VoiceJoin gossip predates this node's
// subscription.
// TODO: request a roster snapshot from an existing participant on join so
// late joiners see the full channel.
func (c *Channels) Join(communityID, channelID string, p Participant) []Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(communityID, channelID)
	list := c.channels[k]
	for i := range list {
		if list[i].PeerID == p.PeerID {
			list[i] = p
			c.channels[k] = list
			return append([]Participant(nil), list...)
		}
	}
	list = append(list, p)
	c.channels[k] = list
	return append([]Participant(nil), list...)
}

// Leave removes a participant from a voice channel. Returns true if the
// participant was present.
func (c *Channels) Leave(communityID, channelID, peerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(communityID, channelID)
	list := c.channels[k]
	for i := range list {
		if list[i].PeerID == peerID {
			c.channels[k] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateMediaState updates a participant's media state in place.
func (c *Channels) UpdateMediaState(communityID, channelID, peerID string, state protocol.MediaState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.channels[key(communityID, channelID)]
	for i := range list {
		if list[i].PeerID == peerID {
			list[i].MediaState = state
			return true
		}
	}
	return false
}

// Participants returns a snapshot of a voice channel's participant list.
func (c *Channels) Participants(communityID, channelID string) []Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.channels[key(communityID, channelID)]
	return append([]Participant(nil), list...)
}

// RemovePeerEverywhere removes peerID from every voice channel it
// participates in (used on connection loss), returning the
// (communityID, channelID) pairs it was removed from so callers can emit
// one VoiceParticipantLeft event per removal.
func (c *Channels) RemovePeerEverywhere(peerID string) [][2]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed [][2]string
	for k, list := range c.channels {
		for i := range list {
			if list[i].PeerID == peerID {
				c.channels[k] = append(list[:i], list[i+1:]...)
				cid, chid := splitKey(k)
				removed = append(removed, [2]string{cid, chid})
				break
			}
		}
	}
	return removed
}

func splitKey(k string) (string, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == ':' {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}
