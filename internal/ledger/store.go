package ledger

import (
	"context"
	"sync"
)

// Store persists one ContractState per game name. Swap is a compare-and-swap
// on NextTurn: it fails with ErrOutOfTurn when the stored value differs from
// expect, so two racing submissions cannot both land.
type Store interface {
	Get(ctx context.Context, name string) (ContractState, error)
	Create(ctx context.Context, name string, state ContractState) error
	Swap(ctx context.Context, name string, expect NextTurn, state ContractState) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]ContractState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]ContractState)}
}

func (m *MemoryStore) Get(ctx context.Context, name string) (ContractState, error) {
	if err := ctx.Err(); err != nil {
		return ContractState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.games[name]
	if !ok {
		return ContractState{}, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, name string, state ContractState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[name]; ok {
		return ErrGameExists
	}
	m.games[name] = state.Clone()
	return nil
}

func (m *MemoryStore) Swap(ctx context.Context, name string, expect NextTurn, state ContractState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[name]
	if !ok {
		return ErrNotFound
	}
	if cur.NextTurn != expect {
		return ErrOutOfTurn
	}
	m.games[name] = state.Clone()
	return nil
}
