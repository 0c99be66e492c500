// Package oracle defines the proof oracle consumed by the turn engine and an
// HTTP client for a remote oracle.
package oracle

import (
	"context"
	"fmt"

	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/game"
)

var (
	// ErrInvalidInput means the oracle refused the request body.
	ErrInvalidInput = fmt.Errorf("%w: oracle rejected input", failure.ErrProof)
	// ErrServerFault means the oracle accepted the input but failed to prove it.
	ErrServerFault = fmt.Errorf("%w: oracle server fault", failure.ErrProof)
	// ErrUnavailable means the oracle could not be reached.
	ErrUnavailable = fmt.Errorf("%w: oracle unreachable", failure.ErrNetwork)
)

// Oracle produces receipts for board setup and for answering a shot. Both
// calls are slow and may fail.
type Oracle interface {
	ProveSetup(ctx context.Context, state game.State) (string, error)
	ProveRound(ctx context.Context, params game.RoundParams) (game.RoundResult, string, error)
}
