package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingsStore persists application key/value settings in app_settings.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetSetting returns the stored value and whether the key exists.
func (s *SettingsStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(`SELECT value FROM app_settings WHERE name = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) SetSetting(ctx context.Context, key, value string) error {
	query := `INSERT INTO app_settings (name, value) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET value = excluded.value`
	if s.db.dialect == DialectMySQL {
		query = `INSERT INTO app_settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}
	if _, err := s.db.conn.ExecContext(ctx, s.db.rebind(query), key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
