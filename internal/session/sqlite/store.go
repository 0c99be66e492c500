// Package sqlite persists game sessions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/platform/sqlitedb"
	"battleship-ledger/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    name TEXT PRIMARY KEY,
    blob BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Store provides SQLite-backed session persistence. Each save is a single
// upsert, so a session is never partially written.
type Store struct {
	sqlDB *sql.DB
}

func Open(path string) (*Store, error) {
	sqlDB, err := sqlitedb.Open(path, schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", failure.ErrPersistence, err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, name string) (session.GameSession, error) {
	var data []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT blob FROM sessions WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return session.GameSession{}, session.ErrNotFound
	}
	if err != nil {
		return session.GameSession{}, fmt.Errorf("%w: load session: %v", failure.ErrPersistence, err)
	}
	return session.Decode(data)
}

func (s *Store) Save(ctx context.Context, gs session.GameSession) error {
	data, err := session.Encode(gs)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", failure.ErrPersistence, err)
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (name, blob, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
`, gs.Name, data, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: save session: %v", failure.ErrPersistence, err)
	}
	return nil
}

// Put writes raw bytes under name, bypassing the codec.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (name, blob, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
`, name, data, time.Now().UTC().UnixMilli())
	return err
}

var _ session.Store = (*Store)(nil)
