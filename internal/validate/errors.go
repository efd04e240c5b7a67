package validate

import "errors"

var (
	// ErrInvalidCommunityName is returned when a community display name is
	// empty, too long, or contains control characters.
	ErrInvalidCommunityName = errors.New("invalid community name")

	// ErrInvalidChannelName is returned when a channel name does not match
	// the topic-safe format (1-32 lowercase alphanumeric + hyphens).
	ErrInvalidChannelName = errors.New("invalid channel name")

	// ErrInvalidRelayAddr is returned when a relay address does not parse as
	// a multiaddr or lacks a /p2p/{peer_id} component.
	ErrInvalidRelayAddr = errors.New("invalid relay address")
)
