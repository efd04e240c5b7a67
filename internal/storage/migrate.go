package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duskchat/dusk-node/internal/identity"
	"github.com/duskchat/dusk-node/internal/protocol"
)

// legacyDMFile is the on-disk shape of one dms/<conversation_id>.json
// artifact from the pre-SQLite filesystem store.
type legacyDMFile struct {
	PeerID          string                   `json:"peer_id"`
	PeerDisplayName string                   `json:"peer_display_name"`
	Messages        []protocol.DirectMessage `json:"messages"`
}

// IsLegacyMigrated reports whether the one-shot filesystem import has
// already run against this database.
func (s *Store) IsLegacyMigrated() (bool, error) {
	ctx, cancel := opContext()
	defer cancel()
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_meta WHERE key = ?`, legacyMigratedKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: check legacy migrated: %w", err)
	}
	return value == "1", nil
}

func (s *Store) setLegacyMigrated() error {
	ctx, cancel := opContext()
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_meta (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, legacyMigratedKey)
	if err != nil {
		return fmt.Errorf("storage: set legacy migrated marker: %w", err)
	}
	return nil
}

// MigrateLegacy imports well-known filesystem artifacts under root
// (identity/, communities/, directory/, dms/) into the durable store, then
// sets the legacy_migrated marker and removes the imported files. A no-op
// if the marker is already set; if root doesn't exist, only the marker is set.
func (s *Store) MigrateLegacy(root string) error {
	migrated, err := s.IsLegacyMigrated()
	if err != nil {
		return err
	}
	if migrated {
		return nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return s.setLegacyMigrated()
	}

	if err := s.migrateIdentity(filepath.Join(root, "identity")); err != nil {
		return err
	}
	if err := s.migrateCommunities(filepath.Join(root, "communities")); err != nil {
		return err
	}
	if err := s.migrateDirectory(filepath.Join(root, "directory")); err != nil {
		return err
	}
	if err := s.migrateDMs(filepath.Join(root, "dms")); err != nil {
		return err
	}

	if err := s.setLegacyMigrated(); err != nil {
		return err
	}
	return os.RemoveAll(root)
}

func (s *Store) migrateIdentity(dir string) error {
	if keyData, err := os.ReadFile(filepath.Join(dir, "keypair.bin")); err == nil {
		if err := s.SaveKeypair(keyData); err != nil {
			return fmt.Errorf("storage: migrate keypair: %w", err)
		}
	}
	if profileData, err := os.ReadFile(filepath.Join(dir, "profile.json")); err == nil {
		var p identity.Profile
		if err := json.Unmarshal(profileData, &p); err != nil {
			return fmt.Errorf("storage: migrate profile: %w", err)
		}
		if err := s.SaveProfile(p); err != nil {
			return fmt.Errorf("storage: migrate profile: %w", err)
		}
	}
	return nil
}

func (s *Store) migrateCommunities(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read legacy communities dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".bin") {
			continue
		}
		cid := strings.TrimSuffix(name, ".bin")
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("storage: read legacy community %s: %w", cid, err)
		}
		if err := s.SaveCommunityDocument(cid, data); err != nil {
			return fmt.Errorf("storage: migrate community document %s: %w", cid, err)
		}
	}
	return nil
}

func (s *Store) migrateDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read legacy directory dir: %w", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("storage: read legacy directory entry %s: %w", e.Name(), err)
		}
		var entry DirectoryEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return fmt.Errorf("storage: migrate directory entry %s: %w", e.Name(), err)
		}
		if err := s.SaveDirectoryEntryIfNew(entry); err != nil {
			return fmt.Errorf("storage: migrate directory entry %s: %w", e.Name(), err)
		}
	}
	return nil
}

// migrateDMs imports legacy per-conversation DM files and rebuilds the FTS
// index from the imported messages (AppendDMMessage mirrors each insert).
func (s *Store) migrateDMs(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: read legacy dms dir: %w", err)
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		convID := strings.TrimSuffix(e.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("storage: read legacy dm conversation %s: %w", convID, err)
		}
		var legacy legacyDMFile
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("storage: migrate dm conversation %s: %w", convID, err)
		}
		for _, msg := range legacy.Messages {
			if err := s.AppendDMMessage(convID, msg, legacy.PeerDisplayName); err != nil {
				return fmt.Errorf("storage: migrate dm message %s/%s: %w", convID, msg.ID, err)
			}
		}
	}
	return nil
}
