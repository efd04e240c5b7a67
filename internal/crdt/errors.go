package crdt

import "errors"

var (
	// ErrCommunityExists is returned by CreateCommunity when cid is already loaded.
	ErrCommunityExists = errors.New("crdt: community already exists")
	// ErrCommunityUnknown is returned when an operation targets a community
	// this engine has no document for.
	ErrCommunityUnknown = errors.New("crdt: community unknown")
	// ErrChannelUnknown is returned when an operation targets a missing channel.
	ErrChannelUnknown = errors.New("crdt: channel unknown")
	// ErrMemberUnknown is returned when an operation targets a missing member.
	ErrMemberUnknown = errors.New("crdt: member unknown")
	// ErrMessageNotFound is returned by DeleteMessage when no matching,
	// non-deleted message exists.
	ErrMessageNotFound = errors.New("crdt: message not found")
)
