package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// DirectoryEntry is one row of the peer directory, keyed by peer_id.
type DirectoryEntry struct {
	PeerID      string `json:"peer_id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	PublicKey   string `json:"public_key"`
	LastSeen    int64  `json:"last_seen"`
	IsFriend    bool   `json:"is_friend"`
}

// SaveDirectoryEntryIfNew inserts entry if peer_id is unknown. If a row
// already exists, it updates display_name and last_seen = max(old, new)
// while preserving bio, public_key, and is_friend from the existing row.
func (s *Store) SaveDirectoryEntryIfNew(entry DirectoryEntry) error {
	ctx, cancel := opContext()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin directory upsert: %w", err)
	}
	defer tx.Rollback()

	var existing DirectoryEntry
	err = tx.QueryRowContext(ctx,
		`SELECT peer_id, display_name, bio, public_key, last_seen, is_friend FROM directory_entries WHERE peer_id = ?`,
		entry.PeerID,
	).Scan(&existing.PeerID, &existing.DisplayName, &existing.Bio, &existing.PublicKey, &existing.LastSeen, &existing.IsFriend)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO directory_entries (peer_id, display_name, bio, public_key, last_seen, is_friend)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.PeerID, entry.DisplayName, entry.Bio, entry.PublicKey, entry.LastSeen, entry.IsFriend)
		if err != nil {
			return fmt.Errorf("storage: insert directory entry %s: %w", entry.PeerID, err)
		}
	case err != nil:
		return fmt.Errorf("storage: load directory entry %s: %w", entry.PeerID, err)
	default:
		lastSeen := entry.LastSeen
		if existing.LastSeen > lastSeen {
			lastSeen = existing.LastSeen
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE directory_entries SET display_name = ?, last_seen = ? WHERE peer_id = ?`,
			entry.DisplayName, lastSeen, entry.PeerID)
		if err != nil {
			return fmt.Errorf("storage: update directory entry %s: %w", entry.PeerID, err)
		}
	}
	return tx.Commit()
}

// LoadDirectoryEntry returns one directory row, or ErrNotFound if absent.
func (s *Store) LoadDirectoryEntry(peerID string) (DirectoryEntry, error) {
	ctx, cancel := opContext()
	defer cancel()
	var e DirectoryEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT peer_id, display_name, bio, public_key, last_seen, is_friend FROM directory_entries WHERE peer_id = ?`,
		peerID,
	).Scan(&e.PeerID, &e.DisplayName, &e.Bio, &e.PublicKey, &e.LastSeen, &e.IsFriend)
	if errors.Is(err, sql.ErrNoRows) {
		return DirectoryEntry{}, ErrNotFound
	}
	if err != nil {
		return DirectoryEntry{}, fmt.Errorf("storage: load directory entry %s: %w", peerID, err)
	}
	return e, nil
}

// RemoveDirectoryEntry deletes a directory row (used on profile revocation).
func (s *Store) RemoveDirectoryEntry(peerID string) error {
	ctx, cancel := opContext()
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM directory_entries WHERE peer_id = ?`, peerID); err != nil {
		return fmt.Errorf("storage: remove directory entry %s: %w", peerID, err)
	}
	return nil
}

// ListDirectoryEntries returns every directory row, ordered by last_seen desc.
func (s *Store) ListDirectoryEntries() ([]DirectoryEntry, error) {
	ctx, cancel := opContext()
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		`SELECT peer_id, display_name, bio, public_key, last_seen, is_friend FROM directory_entries ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list directory entries: %w", err)
	}
	defer rows.Close()

	var out []DirectoryEntry
	for rows.Next() {
		var e DirectoryEntry
		if err := rows.Scan(&e.PeerID, &e.DisplayName, &e.Bio, &e.PublicKey, &e.LastSeen, &e.IsFriend); err != nil {
			return nil, fmt.Errorf("storage: scan directory entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetDirectoryFriend updates only the is_friend flag for an existing entry.
func (s *Store) SetDirectoryFriend(peerID string, isFriend bool) error {
	ctx, cancel := opContext()
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `UPDATE directory_entries SET is_friend = ? WHERE peer_id = ?`, isFriend, peerID); err != nil {
		return fmt.Errorf("storage: set directory friend %s: %w", peerID, err)
	}
	return nil
}
