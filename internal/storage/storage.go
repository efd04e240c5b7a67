// Package storage is the durable layer behind identity, settings,
// community documents, the directory, and direct messages. It is backed by
// SQLite through database/sql, using modernc.org/sqlite's pure-Go driver so
// the binary stays cgo-free.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the single connection to the node's SQLite database. SQLite
// serializes writes internally; a busy_timeout absorbs lock contention
// between the event loop and Command API handlers instead of failing fast.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// schemaContext bounds schema and migration operations with a generous
// timeout; they run once at startup against a cold database.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// opContext bounds a single read/write operation.
func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *Store) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, stmt := range schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: schema statement failed: %s: %w", stmt, err)
		}
	}
	return nil
}
