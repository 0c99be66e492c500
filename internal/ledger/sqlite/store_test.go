package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/ledger/ledgertest"
)

func TestStore(t *testing.T) {
	ledgertest.RunStoreTests(t, func(t *testing.T) ledger.Store {
		store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
