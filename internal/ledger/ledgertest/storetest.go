// Package ledgertest checks ledger.Store implementations against one shared
// set of expectations.
package ledgertest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/merkle"
)

func sample() ledger.ContractState {
	return ledger.ContractState{
		NextTurn: ledger.AwaitingP2Setup,
		P1:       ledger.PlayerState{ID: "alice", Board: merkle.Digest{1, 2, 3, 4, 5, 6, 7, 8}},
	}
}

// RunStoreTests exercises the Store contract. newStore must return an empty
// store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := newStore(t).Get(ctx, "nope")
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("create then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, "g1", sample()))
		got, err := s.Get(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, sample(), got)
	})

	t.Run("create twice", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, "g1", sample()))
		other := sample()
		other.P1.ID = "mallory"
		assert.ErrorIs(t, s.Create(ctx, "g1", other), ledger.ErrGameExists)
		got, err := s.Get(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.P1.ID)
	})

	t.Run("swap on expected turn", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, "g1", sample()))
		next := sample()
		next.NextTurn = ledger.P1MustProcess
		next.P2 = ledger.PlayerState{ID: "bob", LastShot: game.NewPosition(3, 4)}
		require.NoError(t, s.Swap(ctx, "g1", ledger.AwaitingP2Setup, next))

		got, err := s.Get(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, next, got)

		hit := game.Sunk(2)
		next.P1.LastHit = &hit
		next.NextTurn = ledger.P2MustProcess
		require.NoError(t, s.Swap(ctx, "g1", ledger.P1MustProcess, next))
		got, err = s.Get(ctx, "g1")
		require.NoError(t, err)
		require.NotNil(t, got.P1.LastHit)
		assert.Equal(t, game.Sunk(2), *got.P1.LastHit)
	})

	t.Run("swap on stale turn", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, "g1", sample()))
		next := sample()
		next.NextTurn = ledger.P1MustProcess
		assert.ErrorIs(t, s.Swap(ctx, "g1", ledger.P2MustProcess, next), ledger.ErrOutOfTurn)
		got, err := s.Get(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, ledger.AwaitingP2Setup, got.NextTurn)
	})

	t.Run("swap missing", func(t *testing.T) {
		err := newStore(t).Swap(ctx, "nope", ledger.AwaitingP2Setup, sample())
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})

	t.Run("racing swaps", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, "g1", sample()))
		next := sample()
		next.NextTurn = ledger.P1MustProcess

		const racers = 8
		var wg sync.WaitGroup
		errs := make(chan error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Swap(ctx, "g1", ledger.AwaitingP2Setup, next)
			}()
		}
		wg.Wait()
		close(errs)

		won := 0
		for err := range errs {
			if err == nil {
				won++
				continue
			}
			assert.ErrorIs(t, err, ledger.ErrOutOfTurn)
		}
		assert.Equal(t, 1, won)
	})
}
