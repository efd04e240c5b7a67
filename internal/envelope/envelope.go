// Package envelope implements the canonical byte encoding and Ed25519
// sign/verify operations for signed profile announcements and revocations.
package envelope

import (
	"encoding/hex"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
)

const sep = "‖" // '‖', U+2016 DOUBLE VERTICAL LINE

// ProfileAnnouncement is the signed, gossiped profile broadcast.
type ProfileAnnouncement struct {
	PeerID            string `json:"peer_id"`
	DisplayName       string `json:"display_name"`
	Bio               string `json:"bio"`
	PublicKey         string `json:"public_key"` // hex-encoded
	Timestamp         int64  `json:"timestamp"`
	MetricsHash       string `json:"metrics_hash,omitempty"`
	VerificationProof string `json:"verification_proof,omitempty"`
	Signature         string `json:"signature"` // hex-encoded
}

// ProfileRevocation is the signed, gossiped identity-retraction broadcast.
type ProfileRevocation struct {
	PeerID    string `json:"peer_id"`
	PublicKey string `json:"public_key"` // hex-encoded
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"` // hex-encoded
}

func announcementBytes(peerID, displayName, bio, publicKeyHex string, timestamp int64, metricsHash string) []byte {
	return []byte(fmt.Sprintf("dusk-announce%s%s%s%s%s%s%s%s%d%s%s",
		sep, peerID, sep, displayName, sep, bio, sep, publicKeyHex, timestamp, sep, metricsHash))
}

func revocationBytes(peerID, publicKeyHex string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("dusk-revoke%s%s%s%s%s%d", sep, peerID, sep, publicKeyHex, sep, timestamp))
}

// SignAnnouncement produces a signed ProfileAnnouncement. metricsHash and
// verificationProof may be empty when no verification proof is attached.
func SignAnnouncement(priv crypto.PrivKey, peerID, displayName, bio string, timestamp int64, metricsHash, verificationProof string) (*ProfileAnnouncement, error) {
	pubBytes, err := crypto.MarshalPublicKey(priv.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	pubHex := hex.EncodeToString(pubBytes)

	msg := announcementBytes(peerID, displayName, bio, pubHex, timestamp, metricsHash)
	sig, err := priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("sign announcement: %w", err)
	}

	return &ProfileAnnouncement{
		PeerID:            peerID,
		DisplayName:       displayName,
		Bio:               bio,
		PublicKey:         pubHex,
		Timestamp:         timestamp,
		MetricsHash:       metricsHash,
		VerificationProof: verificationProof,
		Signature:         hex.EncodeToString(sig),
	}, nil
}

// VerifyAnnouncement reports whether a's signature verifies against its own
// embedded public key. An unsigned or malformed announcement must be
// rejected before any storage side effect — callers must check this before
// touching the directory.
func VerifyAnnouncement(a *ProfileAnnouncement) bool {
	if a == nil {
		return false
	}
	pubKey, sig, ok := decodeHexPair(a.PublicKey, a.Signature)
	if !ok {
		return false
	}
	msg := announcementBytes(a.PeerID, a.DisplayName, a.Bio, a.PublicKey, a.Timestamp, a.MetricsHash)
	valid, err := pubKey.Verify(msg, sig)
	return err == nil && valid
}

// SignRevocation produces a signed ProfileRevocation.
func SignRevocation(priv crypto.PrivKey, peerID string, timestamp int64) (*ProfileRevocation, error) {
	pubBytes, err := crypto.MarshalPublicKey(priv.GetPublic())
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	pubHex := hex.EncodeToString(pubBytes)

	msg := revocationBytes(peerID, pubHex, timestamp)
	sig, err := priv.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("sign revocation: %w", err)
	}

	return &ProfileRevocation{
		PeerID:    peerID,
		PublicKey: pubHex,
		Timestamp: timestamp,
		Signature: hex.EncodeToString(sig),
	}, nil
}

// VerifyRevocation reports whether r's signature verifies against its own
// embedded public key.
func VerifyRevocation(r *ProfileRevocation) bool {
	if r == nil {
		return false
	}
	pubKey, sig, ok := decodeHexPair(r.PublicKey, r.Signature)
	if !ok {
		return false
	}
	msg := revocationBytes(r.PeerID, r.PublicKey, r.Timestamp)
	valid, err := pubKey.Verify(msg, sig)
	return err == nil && valid
}

func decodeHexPair(publicKeyHex, signatureHex string) (crypto.PubKey, []byte, bool) {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, nil, false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return nil, nil, false
	}
	pubKey, err := crypto.UnmarshalPublicKey(pubBytes)
	if err != nil {
		return nil, nil, false
	}
	return pubKey, sig, true
}
