// Package failure classifies errors into the kinds the turn engine reacts to.
package failure

import "errors"

// Kind is the coarse failure category surfaced to the player.
type Kind int

const (
	Unknown Kind = iota
	Network
	Proof
	OutOfTurn
	Persistence
	// Rejected covers requests the ledger refuses for what they name, not
	// for when they arrive: a missing game or a malformed call. Syncing
	// cannot fix them.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Proof:
		return "proof"
	case OutOfTurn:
		return "out-of-turn"
	case Persistence:
		return "persistence"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// Sentinels for each kind. Component errors wrap one of these with %w.
var (
	ErrNetwork     = errors.New("network failure")
	ErrProof       = errors.New("proof failure")
	ErrOutOfTurn   = errors.New("out of turn")
	ErrPersistence = errors.New("persistence failure")
	ErrRejected    = errors.New("rejected")
)

// Classify returns the kind of the first sentinel found in err's chain.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, ErrRejected):
		return Rejected
	case errors.Is(err, ErrOutOfTurn):
		return OutOfTurn
	case errors.Is(err, ErrPersistence):
		return Persistence
	case errors.Is(err, ErrProof):
		return Proof
	case errors.Is(err, ErrNetwork):
		return Network
	}
	return Unknown
}
