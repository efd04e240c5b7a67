package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/duskchat/dusk-node/internal/config"
)

// SaveSettings persists the single-row settings blob.
func (s *Store) SaveSettings(settings config.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("storage: marshal settings: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	if err != nil {
		return fmt.Errorf("storage: save settings: %w", err)
	}
	return nil
}

// LoadSettings returns the saved settings, filling recognized-option
// defaults for any row that doesn't exist yet.
func (s *Store) LoadSettings() (config.Settings, error) {
	ctx, cancel := opContext()
	defer cancel()
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return config.DefaultSettings(), nil
	}
	if err != nil {
		return config.Settings{}, fmt.Errorf("storage: load settings: %w", err)
	}
	settings := config.DefaultSettings()
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return config.Settings{}, fmt.Errorf("storage: unmarshal settings: %w", err)
	}
	return settings, nil
}
