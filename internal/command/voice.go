package command

import (
	"context"

	"github.com/duskchat/dusk-node/internal/node"
	"github.com/duskchat/dusk-node/internal/protocol"
	"github.com/duskchat/dusk-node/internal/topic"
	"github.com/duskchat/dusk-node/internal/voice"
)

// JoinVoiceChannel registers the local peer's presence in a voice channel
// and broadcasts the join, returning the locally-known participant list
// including this peer.
//
// This list only reflects peers this node has locally observed join; a
// full roster requires the community's existing members to also still be
// connected and broadcasting, which voice.Channels does not retroactively
// reconstruct.
func (a *App) JoinVoiceChannel(ctx context.Context, communityID, channelID string, mediaState protocol.MediaState) []voice.Participant {
	local := a.id.PeerID().String()
	profile := a.id.Profile()

	participants := a.voice.Join(communityID, channelID, voice.Participant{
		PeerID:      local,
		DisplayName: profile.DisplayName,
		MediaState:  mediaState,
	})

	gm := protocol.GossipMessage{VoiceJoin: &protocol.VoiceJoinPayload{
		CommunityID: communityID,
		ChannelID:   channelID,
		PeerID:      local,
		DisplayName: profile.DisplayName,
		MediaState:  mediaState,
	}}
	if data, err := gm.Marshal(); err == nil {
		a.nodeMu.Lock()
		a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityVoice(communityID, channelID), Data: data}})
		a.nodeMu.Unlock()
	}
	return participants
}

// LeaveVoiceChannel removes the local peer's presence and broadcasts the
// departure.
func (a *App) LeaveVoiceChannel(ctx context.Context, communityID, channelID string) {
	local := a.id.PeerID().String()
	a.voice.Leave(communityID, channelID, local)

	gm := protocol.GossipMessage{VoiceLeave: &protocol.VoiceLeavePayload{CommunityID: communityID, ChannelID: channelID, PeerID: local}}
	if data, err := gm.Marshal(); err == nil {
		a.nodeMu.Lock()
		a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityVoice(communityID, channelID), Data: data}})
		a.nodeMu.Unlock()
	}
}

// UpdateVoiceMediaState updates the local peer's mute/video/screen-share
// state and broadcasts it.
func (a *App) UpdateVoiceMediaState(ctx context.Context, communityID, channelID string, mediaState protocol.MediaState) {
	local := a.id.PeerID().String()
	a.voice.UpdateMediaState(communityID, channelID, local, mediaState)

	gm := protocol.GossipMessage{VoiceMediaStateUpdate: &protocol.VoiceMediaStateUpdatePayload{
		CommunityID: communityID, ChannelID: channelID, PeerID: local, MediaState: mediaState,
	}}
	if data, err := gm.Marshal(); err == nil {
		a.nodeMu.Lock()
		a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityVoice(communityID, channelID), Data: data}})
		a.nodeMu.Unlock()
	}
}

// SendVoiceSdp relays an SDP offer/answer directly to a peer over the
// channel's voice topic. No local voice-state mutation is needed: this is
// pure peer-to-peer signaling.
func (a *App) SendVoiceSdp(ctx context.Context, communityID, channelID, toPeer, sdpType, sdp string) {
	local := a.id.PeerID().String()
	gm := protocol.GossipMessage{VoiceSdp: &protocol.VoiceSdpPayload{
		CommunityID: communityID, ChannelID: channelID, FromPeer: local, ToPeer: toPeer, SdpType: sdpType, Sdp: sdp,
	}}
	data, err := gm.Marshal()
	if err != nil {
		return
	}
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityVoice(communityID, channelID), Data: data}})
}

// SendVoiceIceCandidate relays an ICE candidate directly to a peer.
func (a *App) SendVoiceIceCandidate(ctx context.Context, communityID, channelID, toPeer, candidate, sdpMid string, sdpMLineIndex *int) {
	local := a.id.PeerID().String()
	gm := protocol.GossipMessage{VoiceIceCandidate: &protocol.VoiceIceCandidatePayload{
		CommunityID: communityID, ChannelID: channelID, FromPeer: local, ToPeer: toPeer,
		Candidate: candidate, SdpMid: sdpMid, SdpMLineIndex: sdpMLineIndex,
	}}
	data, err := gm.Marshal()
	if err != nil {
		return
	}
	a.nodeMu.Lock()
	defer a.nodeMu.Unlock()
	a.sendNode(ctx, node.Command{SendMessage: &node.SendMessageCmd{Topic: topic.CommunityVoice(communityID, channelID), Data: data}})
}

// GetTurnCredentials fetches ephemeral TURN credentials from the relay.
func (a *App) GetTurnCredentials(ctx context.Context) (protocol.TurnCredentialsResponse, error) {
	a.nodeMu.Lock()
	n := a.n
	a.nodeMu.Unlock()
	if n == nil {
		return protocol.TurnCredentialsResponse{}, ErrNodeNotRunning
	}

	reply := make(chan protocol.TurnCredentialsResponse, 1)
	sendCtx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	if err := n.Send(sendCtx, node.Command{GetTurnCredentials: &node.GetTurnCredentialsCmd{Reply: reply}}); err != nil {
		return protocol.TurnCredentialsResponse{}, wrapf("send get turn credentials: %w", err)
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-sendCtx.Done():
		return protocol.TurnCredentialsResponse{}, sendCtx.Err()
	}
}
