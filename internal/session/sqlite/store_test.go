package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleship-ledger/internal/game"
	"battleship-ledger/internal/game/gametest"
	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/session"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, err := store.Load(ctx, "g1")
	require.ErrorIs(t, err, session.ErrNotFound)

	s := session.New("g1", "bob", ledger.SeatP2, gametest.Shifted(), "Ready!")
	s.RemoteShots[game.NewPosition(3, 4)] = game.Pending
	pos := game.NewPosition(3, 4)
	s.LastShot = &pos
	s.IsFirst = false
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	s := session.New("g1", "alice", ledger.SeatP1, gametest.Fleet(), "Init")
	require.NoError(t, store.Save(ctx, s))
	s.Status = "Ready!"
	s.TurnProcessed = true
	s.LocalShots[game.NewPosition(0, 0)] = game.Hit
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Load(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, got.TurnProcessed)
	assert.Equal(t, game.Hit, got.LocalShots[game.NewPosition(0, 0)])
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTestStore(t)
	s := session.New("g1", "alice", ledger.SeatP1, gametest.Fleet(), "Waiting for other player.")
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestCorruptBlob(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	require.NoError(t, store.Put(ctx, "g1", []byte{0xa1, 0x01}))

	_, err := store.Load(ctx, "g1")
	assert.ErrorIs(t, err, session.ErrCorrupt)
}
