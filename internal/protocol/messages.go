// Package protocol defines the externally-tagged wire envelopes that ride
// gossipsub, plus the auxiliary request-response protocol IDs and payloads.
// Every gossip payload is JSON; adding a variant is a non-breaking addition
// and receivers silently drop variants they don't recognize.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/duskchat/dusk-node/internal/crdt"
	"github.com/duskchat/dusk-node/internal/envelope"
)

// Protocol IDs for core and auxiliary streams.
const (
	IdentifyProtocolID        = "/dusk/1.0.0"
	GifSearchProtocolID       = "/dusk/gif/1.0.0"
	DirectorySearchProtocolID = "/dusk/directory/1.0.0"
	TurnCredentialsProtocolID = "/dusk/turn-credentials/1.0.0"
)

// ChatMessage is a single channel message payload.
type ChatMessage struct {
	ID          string `json:"id"`
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	SenderID    string `json:"sender_id"`
	Content     string `json:"content"`
	Timestamp   int64  `json:"timestamp"`
}

// TypingIndicator signals a peer is composing a message.
type TypingIndicator struct {
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	PeerID      string `json:"peer_id"`
}

// PresenceStatus enumerates the recognized presence states.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceIdle    PresenceStatus = "idle"
	PresenceDND     PresenceStatus = "dnd"
	PresenceOffline PresenceStatus = "offline"
)

// PresenceUpdate announces a peer's current status within a community.
type PresenceUpdate struct {
	CommunityID string         `json:"community_id"`
	PeerID      string         `json:"peer_id"`
	Status      PresenceStatus `json:"status"`
}

// MediaState is a voice participant's current audio/video state.
type MediaState struct {
	Muted         bool `json:"muted"`
	Deafened      bool `json:"deafened"`
	VideoEnabled  bool `json:"video_enabled"`
	ScreenSharing bool `json:"screen_sharing"`
}

// DirectMessage is a one-to-one message routed outside any community.
type DirectMessage struct {
	ID        string `json:"id"`
	FromPeer  string `json:"from_peer"`
	ToPeer    string `json:"to_peer"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// DMTypingIndicator signals a peer is composing a direct message.
type DMTypingIndicator struct {
	FromPeer string `json:"from_peer"`
	ToPeer   string `json:"to_peer"`
}

// GossipMessage is the externally-tagged envelope for every payload that
// rides gossip. Exactly one field is non-nil per instance.
type GossipMessage struct {
	Chat                  *ChatMessage                  `json:"Chat,omitempty"`
	Typing                *TypingIndicator              `json:"Typing,omitempty"`
	Presence              *PresenceUpdate               `json:"Presence,omitempty"`
	MetaUpdate            *crdt.CommunityMeta           `json:"MetaUpdate,omitempty"`
	DeleteMessage         *DeleteMessagePayload         `json:"DeleteMessage,omitempty"`
	MemberKicked          *MemberKickedPayload          `json:"MemberKicked,omitempty"`
	ProfileAnnounce       *envelope.ProfileAnnouncement `json:"ProfileAnnounce,omitempty"`
	ProfileRevoke         *envelope.ProfileRevocation   `json:"ProfileRevoke,omitempty"`
	DirectMessage         *DirectMessage                `json:"DirectMessage,omitempty"`
	DMTyping              *DMTypingIndicator            `json:"DMTyping,omitempty"`
	VoiceJoin             *VoiceJoinPayload             `json:"VoiceJoin,omitempty"`
	VoiceLeave            *VoiceLeavePayload            `json:"VoiceLeave,omitempty"`
	VoiceMediaStateUpdate *VoiceMediaStateUpdatePayload `json:"VoiceMediaStateUpdate,omitempty"`
	VoiceSdp              *VoiceSdpPayload              `json:"VoiceSdp,omitempty"`
	VoiceIceCandidate     *VoiceIceCandidatePayload     `json:"VoiceIceCandidate,omitempty"`
}

type DeleteMessagePayload struct {
	CommunityID string `json:"community_id"`
	MessageID   string `json:"message_id"`
}

type MemberKickedPayload struct {
	CommunityID string `json:"community_id"`
	PeerID      string `json:"peer_id"`
}

type VoiceJoinPayload struct {
	CommunityID string     `json:"community_id"`
	ChannelID   string     `json:"channel_id"`
	PeerID      string     `json:"peer_id"`
	DisplayName string     `json:"display_name"`
	MediaState  MediaState `json:"media_state"`
}

type VoiceLeavePayload struct {
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	PeerID      string `json:"peer_id"`
}

type VoiceMediaStateUpdatePayload struct {
	CommunityID string     `json:"community_id"`
	ChannelID   string     `json:"channel_id"`
	PeerID      string     `json:"peer_id"`
	MediaState  MediaState `json:"media_state"`
}

type VoiceSdpPayload struct {
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	FromPeer    string `json:"from_peer"`
	ToPeer      string `json:"to_peer"`
	SdpType     string `json:"sdp_type"`
	Sdp         string `json:"sdp"`
}

type VoiceIceCandidatePayload struct {
	CommunityID   string `json:"community_id"`
	ChannelID     string `json:"channel_id"`
	FromPeer      string `json:"from_peer"`
	ToPeer        string `json:"to_peer"`
	Candidate     string `json:"candidate"`
	SdpMid        string `json:"sdp_mid,omitempty"`
	SdpMLineIndex *int   `json:"sdp_mline_index,omitempty"`
}

// Marshal serializes a GossipMessage as the JSON tagged union.
func (m GossipMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalGossipMessage decodes a JSON tagged union. Callers must drop
// the message silently on error — a malformed remote payload must never
// crash or corrupt local state.
func UnmarshalGossipMessage(data []byte) (*GossipMessage, error) {
	var m GossipMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal gossip message: %w", err)
	}
	return &m, nil
}

// SyncMessage is the externally-tagged envelope on the global sync topic.
type SyncMessage struct {
	RequestSync   *RequestSyncPayload   `json:"RequestSync,omitempty"`
	DocumentOffer *DocumentOfferPayload `json:"DocumentOffer,omitempty"`
}

type RequestSyncPayload struct {
	PeerID string `json:"peer_id"`
}

type DocumentOfferPayload struct {
	CommunityID string `json:"community_id"`
	DocBytes    []byte `json:"doc_bytes"`
}

// Marshal serializes a SyncMessage as the JSON tagged union.
func (m SyncMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalSyncMessage decodes a JSON tagged union from dusk/sync.
func UnmarshalSyncMessage(data []byte) (*SyncMessage, error) {
	var m SyncMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal sync message: %w", err)
	}
	return &m, nil
}
