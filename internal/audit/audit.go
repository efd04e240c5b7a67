// Package audit writes structured audit events for security-relevant
// node actions. All methods are nil-safe: calling any method on a nil
// *Logger is a no-op, so call sites never need a nil check.
package audit

import "log/slog"

// Logger writes structured audit events under the "audit" group.
type Logger struct {
	logger *slog.Logger
}

// New creates a Logger writing to the given handler.
func New(handler slog.Handler) *Logger {
	return &Logger{logger: slog.New(handler).WithGroup("audit")}
}

// ProfileVerified logs a successful profile-announcement signature check.
func (a *Logger) ProfileVerified(peerID string) {
	if a == nil {
		return
	}
	a.logger.Info("profile_verified", "peer", peerID)
}

// ProfileRejected logs a failed profile-announcement signature check.
func (a *Logger) ProfileRejected(peerID, reason string) {
	if a == nil {
		return
	}
	a.logger.Warn("profile_rejected", "peer", peerID, "reason", reason)
}

// AuthorizationDenied logs a kick/delete authorization failure.
func (a *Logger) AuthorizationDenied(actorPeerID, action string) {
	if a == nil {
		return
	}
	a.logger.Warn("authorization_denied", "peer", actorPeerID, "action", action)
}

// RelayStatusChanged logs a relay connectivity transition.
func (a *Logger) RelayStatusChanged(connected bool) {
	if a == nil {
		return
	}
	a.logger.Info("relay_status_changed", "connected", connected)
}

// IdentityReset logs a completed identity reset (wipe).
func (a *Logger) IdentityReset(peerID string) {
	if a == nil {
		return
	}
	a.logger.Info("identity_reset", "peer", peerID)
}

// CommunityMembershipChanged logs a join/leave/kick event.
func (a *Logger) CommunityMembershipChanged(communityID, peerID, action string) {
	if a == nil {
		return
	}
	a.logger.Info("community_membership_changed", "community", communityID, "peer", peerID, "action", action)
}
