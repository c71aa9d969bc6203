package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SettingsKey is the single key the preference record is stored under.
const SettingsKey = "qrSettings"

// SettingsStore manages SQLite-backed key-value storage for the widget
// preferences.
type SettingsStore struct {
	db  *sql.DB
	log *slog.Logger
}

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
`

// NewSettingsStore opens (or creates) the SQLite database at dbPath,
// initialises the schema, and returns a ready-to-use SettingsStore.
func NewSettingsStore(dbPath string, log *slog.Logger) (*SettingsStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema statement: %w", err)
	}

	return &SettingsStore{db: db, log: log}, nil
}

// Get returns the stored settings. Missing records and read or decode
// failures all yield DefaultSettings.
func (s *SettingsStore) Get(ctx context.Context) Settings {
	raw, err := s.getValue(ctx, SettingsKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Debug("settings read failed, using defaults", "error", err)
		}
		return DefaultSettings()
	}

	settings := DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.log.Debug("settings decode failed, using defaults", "error", err)
		return DefaultSettings()
	}
	return settings.Normalize()
}

// Set persists settings under SettingsKey, replacing any previous record.
func (s *SettingsStore) Set(ctx context.Context, settings Settings) error {
	b, err := json.Marshal(settings.Normalize())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.setValue(ctx, SettingsKey, string(b))
}

// Close closes the underlying database connection.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// --- helpers ----------------------------------------------------------------

func (s *SettingsStore) getValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) setValue(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
