package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// maxCommunityNameLen bounds community display names; they travel inside
// invite codes and the community meta cache, not inside topic strings, so
// they only need to stay small and printable.
const maxCommunityNameLen = 64

// channelNameRe matches channel names: 1-32 lowercase alphanumeric or
// hyphens, starting and ending with alphanumeric. Channel names feed the
// deterministic channel-ID derivation and show up in UI lists next to the
// default "general", so they follow the same shape.
var channelNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,30}[a-z0-9])?$`)

// CommunityName checks that a community display name is non-empty after
// trimming, within length, and free of control characters.
func CommunityName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCommunityName)
	}
	if len(trimmed) > maxCommunityNameLen {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidCommunityName, trimmed, maxCommunityNameLen)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidCommunityName, trimmed)
		}
	}
	return nil
}

// ChannelName checks that a channel name is 1-32 lowercase alphanumeric
// characters or hyphens, starting and ending with alphanumeric.
func ChannelName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidChannelName)
	}
	if !channelNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q must be 1-32 lowercase alphanumeric characters or hyphens, starting and ending with alphanumeric", ErrInvalidChannelName, name)
	}
	return nil
}
