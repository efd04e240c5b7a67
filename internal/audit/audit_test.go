package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNilLoggerIsNoOp(t *testing.T) {
	var a *Logger
	a.ProfileVerified("peerA")
	a.ProfileRejected("peerA", "bad signature")
	a.AuthorizationDenied("peerA", "kick")
	a.RelayStatusChanged(true)
	a.IdentityReset("peerA")
	a.CommunityMembershipChanged("com_1", "peerA", "joined")
}

func TestLoggerWritesUnderAuditGroup(t *testing.T) {
	var buf bytes.Buffer
	a := New(slog.NewJSONHandler(&buf, nil))
	a.ProfileRejected("peerA", "bad signature")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	audit, ok := entry["audit"].(map[string]any)
	if !ok {
		t.Fatalf("expected audit group in log entry: %v", entry)
	}
	if audit["peer"] != "peerA" || audit["reason"] != "bad signature" {
		t.Fatalf("unexpected audit fields: %v", audit)
	}
}
