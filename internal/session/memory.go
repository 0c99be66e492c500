package session

import (
	"context"
	"fmt"
	"sync"

	"battleship-ledger/internal/failure"
)

// MemoryStore keeps encoded sessions in memory, so loads go through the same
// codec as durable stores.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, name string) (GameSession, error) {
	if err := ctx.Err(); err != nil {
		return GameSession{}, err
	}
	m.mu.Lock()
	data, ok := m.blobs[name]
	m.mu.Unlock()
	if !ok {
		return GameSession{}, ErrNotFound
	}
	return Decode(data)
}

func (m *MemoryStore) Save(ctx context.Context, s GameSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", failure.ErrPersistence, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[s.Name] = data
	m.saves++
	return nil
}

// Saves reports how many successful saves the store has seen.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Put stores raw bytes under name, for simulating damaged blobs.
func (m *MemoryStore) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), data...)
}
