// Package identity owns the node's long-lived Ed25519 signing keypair, its
// derived peer ID, and the mutable profile metadata (display name, bio,
// optional verification proof) layered on top of it.
package identity

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

// VerificationProof is a signed summary of a human-interaction challenge
// bound to this identity's keypair, per the identity-creation input
// contract (scored elsewhere; this component only stores and carries it).
type VerificationProof struct {
	MetricsHash string `json:"metrics_hash"`
	Signature   string `json:"signature"`
	Timestamp   int64  `json:"timestamp"`
	Score       int    `json:"score"`
}

// Profile is the mutable portion of an identity.
type Profile struct {
	DisplayName       string             `json:"display_name"`
	Bio               string             `json:"bio"`
	VerificationProof *VerificationProof `json:"verification_proof,omitempty"`
}

// Identity is the single writer-locked owner of the local keypair and
// profile. The event loop and Command API borrow it read-only except
// through the dedicated mutation methods below, which Command API handlers
// call under the identity lock (first in the identity → crdt → node-handle
// → voice-channels acquisition order).
type Identity struct {
	mu      sync.RWMutex
	priv    crypto.PrivKey
	peerID  peer.ID
	profile Profile
}

// New wraps an already-loaded keypair into an Identity with an empty profile.
func New(priv crypto.PrivKey) (*Identity, error) {
	pid, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	return &Identity{priv: priv, peerID: pid}, nil
}

// PrivateKey returns the signing key.
func (id *Identity) PrivateKey() crypto.PrivKey {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.priv
}

// PeerID returns the stable peer ID derived from the public key.
func (id *Identity) PeerID() peer.ID {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.peerID
}

// Profile returns a copy of the current profile metadata.
func (id *Identity) Profile() Profile {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.profile
}

// SetProfile replaces the profile metadata wholesale. Called by the Command
// API under the identity lock.
func (id *Identity) SetProfile(p Profile) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.profile = p
}

// CheckKeyFilePermissions verifies that a key file is not readable by group
// or others.
func CheckKeyFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat key file %s: %w", path, err)
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("key file %s has insecure permissions %04o (expected 0600); fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// LoadOrCreateKeyFile loads an existing Ed25519 private key from path, or
// generates and persists a new one (mode 0600) if none exists.
func LoadOrCreateKeyFile(path string) (crypto.PrivKey, error) {
	if data, err := os.ReadFile(path); err == nil {
		if err := CheckKeyFilePermissions(path); err != nil {
			return nil, err
		}
		priv, err := crypto.UnmarshalPrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal key from %s: %w", path, err)
		}
		return priv, nil
	}

	priv, _, err := crypto.GenerateKeyPair(crypto.Ed25519, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}

	data, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to save key to %s: %w", path, err)
	}
	return priv, nil
}
