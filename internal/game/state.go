package game

import (
	"errors"
	"fmt"
)

type Direction uint8

const (
	Horizontal Direction = iota
	Vertical
)

// Ship is anchored at its top-left cell. HitMask bit i is set once the i-th
// cell from the anchor has been struck.
type Ship struct {
	X       uint32    `json:"x"`
	Y       uint32    `json:"y"`
	Dir     Direction `json:"dir"`
	HitMask uint32    `json:"hit_mask"`
}

// Cells lists the positions covered by the ship for the given span.
func (s Ship) Cells(span int) []Position {
	out := make([]Position, span)
	for i := 0; i < span; i++ {
		p := Position{X: int(s.X), Y: int(s.Y)}
		if s.Dir == Horizontal {
			p.X += i
		} else {
			p.Y += i
		}
		out[i] = p
	}
	return out
}

func (s Ship) fits(span int) bool {
	if s.Dir == Horizontal {
		return int(s.X)+span <= BoardSize && int(s.Y) < BoardSize
	}
	return int(s.Y)+span <= BoardSize && int(s.X) < BoardSize
}

func (s Ship) Sunk(span int) bool { return s.HitMask == uint32(1)<<span-1 }

// State is a player's hidden state: the fleet with its damage, and the salt
// that blinds the board commitment.
type State struct {
	Ships [FleetSize]Ship `json:"ships"`
	Salt  string          `json:"salt"`
}

// Validate checks the fleet is on the board and has no overlapping ships.
func (st *State) Validate() error {
	var taken Board
	for i, s := range st.Ships {
		span := FleetSpans[i]
		if s.Dir != Horizontal && s.Dir != Vertical {
			return fmt.Errorf("ship %d: bad direction", i)
		}
		if !s.fits(span) {
			return fmt.Errorf("ship %d does not fit on the board", i)
		}
		if s.HitMask >= uint32(1)<<span {
			return fmt.Errorf("ship %d: hit mask out of range", i)
		}
		if overlaps(&taken, s, span) {
			return fmt.Errorf("ship %d overlaps another ship", i)
		}
		for _, p := range s.Cells(span) {
			taken.Cells[p.Y][p.X] = 1
		}
	}
	if st.Salt == "" {
		return errors.New("missing salt")
	}
	return nil
}

// Board renders the fleet as ship/water cells. Damage does not change it.
func (st *State) Board() Board {
	var b Board
	for i, s := range st.Ships {
		for _, p := range s.Cells(FleetSpans[i]) {
			if p.Valid() {
				b.Cells[p.Y][p.X] = 1
			}
		}
	}
	return b
}

// ApplyShot returns the updated state and the outcome of a shot at p.
func (st State) ApplyShot(p Position) (State, HitType) {
	for i, s := range st.Ships {
		span := FleetSpans[i]
		for k, c := range s.Cells(span) {
			if c != p {
				continue
			}
			s.HitMask |= 1 << k
			st.Ships[i] = s
			if s.Sunk(span) {
				return st, Sunk(i)
			}
			return st, Hit
		}
	}
	return st, Miss
}

// FleetSunk reports whether every ship has been destroyed.
func (st *State) FleetSunk() bool {
	for i, s := range st.Ships {
		if !s.Sunk(FleetSpans[i]) {
			return false
		}
	}
	return true
}

// RoundParams is the oracle input for one round: the prover's hidden state
// and the incoming shot it must answer.
type RoundParams struct {
	State State    `json:"state"`
	Shot  Position `json:"shot"`
}

// RoundResult is the oracle output: the updated hidden state and the outcome.
type RoundResult struct {
	State State   `json:"state"`
	Hit   HitType `json:"hit"`
}
