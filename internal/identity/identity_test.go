package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
)

func TestLoadOrCreateKeyFileCreatesThenReuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.key")

	priv1, err := LoadOrCreateKeyFile(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	priv2, err := LoadOrCreateKeyFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	b1, _ := crypto.MarshalPrivateKey(priv1)
	b2, _ := crypto.MarshalPrivateKey(priv2)
	if string(b1) != string(b2) {
		t.Fatal("reloaded key does not match created key")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("expected mode 0600, got %04o", perm)
	}
}

func TestIdentityProfileRoundTrip(t *testing.T) {
	priv, _, err := crypto.GenerateKeyPair(crypto.Ed25519, -1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	id, err := New(priv)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	id.SetProfile(Profile{DisplayName: "alice", Bio: "hi"})
	got := id.Profile()
	if got.DisplayName != "alice" || got.Bio != "hi" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestCheckConnectivityNoHosts(t *testing.T) {
	if CheckConnectivity(context.Background(), nil) {
		t.Fatal("expected false with no hosts")
	}
}

func TestCheckConnectivityUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if CheckConnectivity(ctx, []string{"192.0.2.1:1"}) {
		t.Fatal("expected false for unreachable TEST-NET-1 host")
	}
}
