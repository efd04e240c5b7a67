package storage

import "fmt"

// legacyMigratedKey is the app_meta row gating the one-shot filesystem
// migration so a wiped database never re-imports stale artifacts.
const legacyMigratedKey = "legacy_migrated"

// Wipe deletes every user row (identity reset) while preserving the
// legacy_migrated marker in app_meta so a subsequent legacy import never
// reruns against a freshly wiped database.
func (s *Store) Wipe() error {
	ctx, cancel := opContext()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin wipe: %w", err)
	}
	defer tx.Rollback()

	tables := []string{
		"identity_keypair",
		"profile",
		"settings",
		"verification_proof",
		"community_documents",
		"community_meta",
		"directory_entries",
		"dm_conversations",
		"dm_messages",
		"dm_message_fts",
		"kv_scratch",
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("storage: wipe table %s: %w", table, err)
		}
	}
	return tx.Commit()
}
