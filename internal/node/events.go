package node

import (
	"github.com/duskchat/dusk-node/internal/envelope"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/voice"
)

// Events carries every domain event the loop emits to external observers
// (a UI layer, in the language this repo is written for). Each concrete
// type below corresponds to one named event in the gossip/swarm handler
// table; observers type-switch on the value they receive.
type (
	MessageReceived struct{ Message protocol.ChatMessage }
	Typing          struct {
		PeerID    string
		ChannelID string
	}
	MessageDeleted struct {
		CommunityID string
		MessageID   string
	}
	MemberKicked struct {
		CommunityID string
		PeerID      string
	}
	PresenceUpdated  struct{ Update protocol.PresenceUpdate }
	PeerConnected    struct{ PeerID string }
	PeerDisconnected struct{ PeerID string }
	SyncComplete     struct{ CommunityID string }
	ProfileReceived  struct{ Announcement envelope.ProfileAnnouncement }
	ProfileRevoked   struct{ PeerID string }

	VoiceJoined struct {
		CommunityID string
		ChannelID   string
		Participant voice.Participant
	}
	VoiceLeft struct {
		CommunityID string
		ChannelID   string
		PeerID      string
	}
	VoiceMediaStateUpdated struct {
		CommunityID string
		ChannelID   string
		PeerID      string
		MediaState  protocol.MediaState
	}
	VoiceParticipantLeft struct {
		CommunityID string
		ChannelID   string
		PeerID      string
	}
	VoiceSdp          struct{ Payload protocol.VoiceSdpPayload }
	VoiceIceCandidate struct {
		Payload protocol.VoiceIceCandidatePayload
	}

	DMReceived struct{ Message protocol.DirectMessage }
	DMTyping   struct{ PeerID string }

	RelayStatus struct{ Connected bool }
	NodeStatus  struct {
		ConnectedPeers int
	}
)

// emit sends ev to the observer channel without blocking the loop — a slow
// or absent observer must never stall swarm processing. A full buffer
// drops the oldest pending event rather than the newest, since the newest
// carries the most current state.
func (n *Node) emit(ev any) {
	select {
	case n.events <- ev:
	default:
		select {
		case <-n.events:
		default:
		}
		select {
		case n.events <- ev:
		default:
		}
	}
}
