// Package ledger holds the public game record and the contract that guards
// its transitions. The contract only sequences moves; move legality comes
// from receipt verification.
package ledger

import (
	"fmt"

	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/merkle"
)

var (
	ErrNotFound       = fmt.Errorf("%w: game not found", failure.ErrRejected)
	ErrGameExists     = fmt.Errorf("%w: game already exists", failure.ErrOutOfTurn)
	ErrOutOfTurn      = fmt.Errorf("%w: not the caller's turn", failure.ErrOutOfTurn)
	ErrInvalidReceipt = fmt.Errorf("%w: receipt failed verification", failure.ErrProof)
	ErrBadRequest     = fmt.Errorf("%w: malformed ledger request", failure.ErrRejected)
	// ErrUnavailable means the ledger could not be reached.
	ErrUnavailable = fmt.Errorf("%w: ledger unreachable", failure.ErrNetwork)
)

// NextTurn says whose action is outstanding.
//
//	0: p1 has set up, p2 must set up and fire first
//	1: p1 must answer p2's shot and fire back
//	2: p2 must answer p1's shot and fire back
type NextTurn uint32

const (
	AwaitingP2Setup NextTurn = iota
	P1MustProcess
	P2MustProcess
)

func (n NextTurn) String() string {
	switch n {
	case AwaitingP2Setup:
		return "awaiting-p2-setup"
	case P1MustProcess:
		return "p1-must-process"
	case P2MustProcess:
		return "p2-must-process"
	}
	return fmt.Sprintf("next-turn(%d)", uint32(n))
}

// Seat is a player's fixed role in one game.
type Seat uint8

const (
	SeatP1 Seat = 1 // created the game, answers first
	SeatP2 Seat = 2 // joined the game, fires first
)

// Turn is the NextTurn value that lets this seat act.
func (s Seat) Turn() NextTurn {
	if s == SeatP1 {
		return P1MustProcess
	}
	return P2MustProcess
}

func (s Seat) Opponent() Seat {
	if s == SeatP1 {
		return SeatP2
	}
	return SeatP1
}

func (s Seat) String() string {
	if s == SeatP1 {
		return "p1"
	}
	return "p2"
}

// PlayerState is the public part of one player's progress. LastHit is the
// attested outcome of the opponent's previous shot at this player.
type PlayerState struct {
	ID       string        `json:"id"`
	Board    merkle.Digest `json:"board"`
	LastShot game.Position `json:"last_shot"`
	LastHit  *game.HitType `json:"last_hit,omitempty"`
}

// ContractState is the ledger record of one game.
type ContractState struct {
	NextTurn NextTurn    `json:"next_turn"`
	P1       PlayerState `json:"p1"`
	P2       PlayerState `json:"p2"`
}

// Player returns the state of the given seat.
func (c ContractState) Player(s Seat) PlayerState {
	if s == SeatP1 {
		return c.P1
	}
	return c.P2
}

// SeatOf reports which seat id occupies.
func (c ContractState) SeatOf(id string) (Seat, bool) {
	switch {
	case id == "":
		return 0, false
	case c.P1.ID == id:
		return SeatP1, true
	case c.P2.ID == id:
		return SeatP2, true
	}
	return 0, false
}

// Clone returns a deep copy.
func (c ContractState) Clone() ContractState {
	out := c
	if c.P1.LastHit != nil {
		h := *c.P1.LastHit
		out.P1.LastHit = &h
	}
	if c.P2.LastHit != nil {
		h := *c.P2.LastHit
		out.P2.LastHit = &h
	}
	return out
}
