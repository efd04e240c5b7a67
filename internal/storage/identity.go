package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/duskchat/dusk-node/internal/identity"
)

// SaveKeypair persists the marshaled private key bytes, replacing any
// existing row (there is only ever one local identity per database).
func (s *Store) SaveKeypair(data []byte) error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identity_keypair (id, private_key) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET private_key = excluded.private_key`, data)
	if err != nil {
		return fmt.Errorf("storage: save keypair: %w", err)
	}
	return nil
}

// LoadKeypair returns the marshaled private key bytes, or ErrNotFound if no
// identity has been created yet.
func (s *Store) LoadKeypair() ([]byte, error) {
	ctx, cancel := opContext()
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT private_key FROM identity_keypair WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load keypair: %w", err)
	}
	return data, nil
}

// HasIdentity reports whether a keypair has been saved.
func (s *Store) HasIdentity() (bool, error) {
	ctx, cancel := opContext()
	defer cancel()
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identity_keypair WHERE id = 1`).Scan(&count); err != nil {
		return false, fmt.Errorf("storage: has identity: %w", err)
	}
	return count > 0, nil
}

// SaveProfile persists the mutable profile metadata.
func (s *Store) SaveProfile(p identity.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: marshal profile: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile (id, data) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	if err != nil {
		return fmt.Errorf("storage: save profile: %w", err)
	}
	return nil
}

// LoadProfile returns the saved profile, or a zero-value Profile with
// ErrNotFound if none has been saved yet.
func (s *Store) LoadProfile() (identity.Profile, error) {
	ctx, cancel := opContext()
	defer cancel()
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profile WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Profile{}, ErrNotFound
	}
	if err != nil {
		return identity.Profile{}, fmt.Errorf("storage: load profile: %w", err)
	}
	var p identity.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return identity.Profile{}, fmt.Errorf("storage: unmarshal profile: %w", err)
	}
	return p, nil
}

// SaveVerificationProof persists the signed verification proof.
func (s *Store) SaveVerificationProof(p identity.VerificationProof) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("storage: marshal verification proof: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_proof (id, data) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	if err != nil {
		return fmt.Errorf("storage: save verification proof: %w", err)
	}
	return nil
}

// LoadVerificationProof returns the saved proof, or ErrNotFound if absent.
func (s *Store) LoadVerificationProof() (identity.VerificationProof, error) {
	ctx, cancel := opContext()
	defer cancel()
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM verification_proof WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.VerificationProof{}, ErrNotFound
	}
	if err != nil {
		return identity.VerificationProof{}, fmt.Errorf("storage: load verification proof: %w", err)
	}
	var p identity.VerificationProof
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return identity.VerificationProof{}, fmt.Errorf("storage: unmarshal verification proof: %w", err)
	}
	return p, nil
}
