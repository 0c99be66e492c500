// Package sqlite stores ledger records in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/platform/sqlitedb"
)

//go:embed schema.sql
var schema string

// Store provides SQLite-backed ledger persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a ledger SQLite store and applies the schema.
func Open(path string) (*Store, error) {
	sqlDB, err := sqlitedb.Open(path, schema)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, name string) (ledger.ContractState, error) {
	var (
		state ledger.ContractState
		raw   []byte
	)
	err := s.sqlDB.QueryRowContext(ctx, `SELECT state FROM games WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return state, ledger.ErrNotFound
	}
	if err != nil {
		return state, fmt.Errorf("get game: %w", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("decode game %s: %w", name, err)
	}
	return state, nil
}

func (s *Store) Create(ctx context.Context, name string, state ledger.ContractState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO games (name, next_turn, state, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO NOTHING
`, name, uint32(state.NextTurn), raw, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	if n == 0 {
		return ledger.ErrGameExists
	}
	return nil
}

func (s *Store) Swap(ctx context.Context, name string, expect ledger.NextTurn, state ledger.ContractState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE games SET next_turn = ?, state = ?, updated_at = ?
WHERE name = ? AND next_turn = ?
`, uint32(state.NextTurn), raw, time.Now().UTC().UnixMilli(), name, uint32(expect))
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, name); err != nil {
		return err
	}
	return ledger.ErrOutOfTurn
}

var _ ledger.Store = (*Store)(nil)
