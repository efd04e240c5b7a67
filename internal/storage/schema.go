package storage

// schemaStatements returns every CREATE TABLE/INDEX statement that brings a
// fresh database up to the current schema. All statements are idempotent
// (IF NOT EXISTS) so createSchema can run unconditionally on every Open.
func schemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS app_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS kv_scratch (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS identity_keypair (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			private_key BLOB NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS verification_proof (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS community_documents (
			community_id TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS community_meta (
			community_id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS directory_entries (
			peer_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			public_key TEXT NOT NULL DEFAULT '',
			last_seen INTEGER NOT NULL,
			is_friend INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_directory_last_seen ON directory_entries(last_seen DESC);`,

		`CREATE TABLE IF NOT EXISTS dm_conversations (
			conversation_id TEXT PRIMARY KEY,
			peer_id TEXT NOT NULL,
			peer_display_name TEXT NOT NULL DEFAULT '',
			last_message_preview TEXT NOT NULL DEFAULT '',
			last_message_time INTEGER NOT NULL DEFAULT 0,
			unread_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_dm_conversations_last_message ON dm_conversations(last_message_time DESC, peer_display_name ASC);`,

		`CREATE TABLE IF NOT EXISTS dm_messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			mentions TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_dm_messages_conv_ts ON dm_messages(conversation_id, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_dm_messages_sender ON dm_messages(sender_id);`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS dm_message_fts USING fts5(
			message_id UNINDEXED,
			conversation_id UNINDEXED,
			content
		);`,
	}
}
