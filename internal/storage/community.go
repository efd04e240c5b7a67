package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/duskchat/dusk-node/internal/crdt"
)

// SaveCommunityDocument persists the opaque CRDT snapshot for a community.
// Implements crdt.Persister so the Engine can drive durability without
// knowing about SQLite.
func (s *Store) SaveCommunityDocument(communityID string, data []byte) error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO community_documents (community_id, data) VALUES (?, ?)
		 ON CONFLICT(community_id) DO UPDATE SET data = excluded.data`, communityID, data)
	if err != nil {
		return fmt.Errorf("storage: save community document %s: %w", communityID, err)
	}
	return nil
}

// LoadCommunityDocument returns the saved snapshot bytes for communityID.
func (s *Store) LoadCommunityDocument(communityID string) ([]byte, error) {
	ctx, cancel := opContext()
	defer cancel()
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM community_documents WHERE community_id = ?`, communityID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load community document %s: %w", communityID, err)
	}
	return data, nil
}

// ListCommunityIDs returns every community ID with a saved document, for
// rebuilding the CRDT engine's in-memory registry at startup.
func (s *Store) ListCommunityIDs() ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT community_id FROM community_documents`)
	if err != nil {
		return nil, fmt.Errorf("storage: list community ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan community id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RemoveCommunityDocument deletes the stored snapshot, used by leave_community.
func (s *Store) RemoveCommunityDocument(communityID string) error {
	ctx, cancel := opContext()
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM community_documents WHERE community_id = ?`, communityID); err != nil {
		return fmt.Errorf("storage: remove community document %s: %w", communityID, err)
	}
	return nil
}

// SaveCommunityMeta caches a community's descriptive metadata for fast
// listing without decoding the full document.
func (s *Store) SaveCommunityMeta(meta crdt.CommunityMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("storage: marshal community meta: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO community_meta (community_id, data) VALUES (?, ?)
		 ON CONFLICT(community_id) DO UPDATE SET data = excluded.data`, meta.CommunityID, string(data))
	if err != nil {
		return fmt.Errorf("storage: save community meta %s: %w", meta.CommunityID, err)
	}
	return nil
}

// RemoveCommunityMeta deletes the cached metadata row.
func (s *Store) RemoveCommunityMeta(communityID string) error {
	ctx, cancel := opContext()
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM community_meta WHERE community_id = ?`, communityID); err != nil {
		return fmt.Errorf("storage: remove community meta %s: %w", communityID, err)
	}
	return nil
}

// ListCommunityMeta returns every cached community metadata row.
func (s *Store) ListCommunityMeta() ([]crdt.CommunityMeta, error) {
	ctx, cancel := opContext()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM community_meta`)
	if err != nil {
		return nil, fmt.Errorf("storage: list community meta: %w", err)
	}
	defer rows.Close()

	var out []crdt.CommunityMeta
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("storage: scan community meta: %w", err)
		}
		var m crdt.CommunityMeta
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("storage: unmarshal community meta: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
