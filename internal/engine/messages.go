package engine

import (
	"fmt"

	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
)

// Msg is one input to the engine. The set is closed: only the types in this
// file implement it.
type Msg interface {
	Name() string
	sealed()
}

// Init proves the creator's board and creates the game on the ledger.
type Init struct{}

// Shot fires at Pos. It is only accepted while the session is Ready.
type Shot struct{ Pos game.Position }

// SaveAndWait persists the session after a ledger submission and starts
// polling for the opponent.
type SaveAndWait struct{}

// WaitTurn polls the ledger once and either processes the turn or sleeps.
type WaitTurn struct{}

// CheckTurn reconciles a resumed session with the ledger.
type CheckTurn struct{}

// ProcessTurn folds the opponent's move, as recorded in State, into the
// session and answers the opponent's shot.
type ProcessTurn struct{ State ledger.ContractState }

// UpdateState stores the oracle's answer to Shot.
type UpdateState struct {
	Receipt string
	Result  game.RoundResult
	Shot    game.Position
}

// Resume marks a caught-up session Ready.
type Resume struct{}

// Error records a failed action. Message becomes the session status verbatim.
type Error struct {
	Kind    failure.Kind
	Message string

	undo *shotUndo
	// unconfirmed keeps undo pending instead of applying it.
	unconfirmed bool
}

// reconciled wraps the message a CheckTurn read chose once it has settled
// an unconfirmed shot.
type reconciled struct {
	next   Msg
	undo   *shotUndo
	landed bool
}

// shotUndo restores the optimistic marks of a rejected shot.
type shotUndo struct {
	pos      game.Position
	lastShot *game.Position
	isFirst  bool
}

func (Init) Name() string         { return "Init" }
func (Shot) Name() string         { return "Shot" }
func (SaveAndWait) Name() string  { return "SaveAndWait" }
func (WaitTurn) Name() string     { return "WaitTurn" }
func (CheckTurn) Name() string    { return "CheckTurn" }
func (ProcessTurn) Name() string  { return "ProcessTurn" }
func (UpdateState) Name() string  { return "UpdateState" }
func (Resume) Name() string       { return "Resume" }
func (Error) Name() string        { return "Error" }
func (r reconciled) Name() string { return r.next.Name() }

func (Init) sealed()        {}
func (Shot) sealed()        {}
func (SaveAndWait) sealed() {}
func (WaitTurn) sealed()    {}
func (CheckTurn) sealed()   {}
func (ProcessTurn) sealed() {}
func (UpdateState) sealed() {}
func (Resume) sealed()      {}
func (Error) sealed()       {}
func (reconciled) sealed()  {}

// failed builds an Error message from err, prefixed with the failing step.
func failed(step string, err error) Error {
	return Error{Kind: failure.Classify(err), Message: fmt.Sprintf("%s: %v", step, err)}
}
