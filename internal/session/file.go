package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage/sqlite"
)

// Keys held in the kv table.
const (
	keyToken = "token"
	keyUser  = "user"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)

// FileStore persists the session in a SQLite key/value file readable only by
// the owner.
type FileStore struct {
	db   *sql.DB
	path string
}

// OpenFile opens (or creates) the session database at path.
func OpenFile(path string) (*FileStore, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to restrict session file: %w", err)
	}
	return &FileStore{db: db, path: path}, nil
}

// Path returns the database location.
func (f *FileStore) Path() string {
	return f.path
}

// Close closes the database.
func (f *FileStore) Close() error {
	return f.db.Close()
}

func (f *FileStore) Get(ctx context.Context) (models.Session, bool, error) {
	rows, err := f.db.QueryContext(ctx, "SELECT key, value FROM kv WHERE key IN (?, ?)", keyToken, keyUser)
	if err != nil {
		return models.Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	defer rows.Close()

	var s models.Session
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Session{}, false, fmt.Errorf("failed to scan session: %w", err)
		}
		switch key {
		case keyToken:
			s.Token = value
		case keyUser:
			if err := json.Unmarshal([]byte(value), &s.User); err != nil {
				return models.Session{}, false, fmt.Errorf("failed to decode cached user: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return models.Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	if s.Token == "" {
		return models.Session{}, false, nil
	}
	return s, true, nil
}

// Set writes both keys in one transaction.
func (f *FileStore) Set(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = "INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := tx.ExecContext(ctx, upsert, keyToken, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, keyUser, string(userJSON)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	_, err := f.db.ExecContext(ctx, "DELETE FROM kv WHERE key IN (?, ?)", keyToken, keyUser)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
