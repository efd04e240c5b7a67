// Package invite encodes and decodes community invite codes.
//
// An invite code is base58(utf8-json({community_id, community_name})),
// chosen so it travels cleanly through chat clients, QR codes, and URLs
// without escaping while staying short for typical community names.
package invite

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrInvalidCode is returned when a code fails to base58-decode or does not
// contain a well-formed invite payload.
var ErrInvalidCode = errors.New("invalid invite code")

// Payload is the decoded content of an invite code.
type Payload struct {
	CommunityID   string `json:"community_id"`
	CommunityName string `json:"community_name"`
}

// Encode produces an invite code for the given community.
func Encode(communityID, communityName string) (string, error) {
	if communityID == "" {
		return "", fmt.Errorf("%w: community_id cannot be empty", ErrInvalidCode)
	}
	data, err := json.Marshal(Payload{CommunityID: communityID, CommunityName: communityName})
	if err != nil {
		return "", fmt.Errorf("encode invite payload: %w", err)
	}
	return base58.Encode(data), nil
}

// Decode parses an invite code back into its payload.
func Decode(code string) (Payload, error) {
	data, err := base58.Decode(code)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if p.CommunityID == "" {
		return Payload{}, fmt.Errorf("%w: missing community_id", ErrInvalidCode)
	}
	return p, nil
}
