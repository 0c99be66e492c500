package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// BoardSize is the side length of the square board.
const BoardSize = 10

// ShipCells is the number of board cells covered by a full fleet.
const ShipCells = 17

// FleetSpans holds the length of each ship; a ship's identifier is its index here.
var FleetSpans = [FleetSize]int{5, 4, 3, 3, 2}

// FleetSize is the number of ships each player places.
const FleetSize = 5

// Board is a 10x10 grid. Cell: 0=water, 1=ship.
type Board struct{ Cells [BoardSize][BoardSize]uint8 }

func (b *Board) Validate() error {
	total := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			v := b.Cells[r][c]
			if v != 0 && v != 1 {
				return errors.New("board has non-binary cell")
			}
			total += int(v)
		}
	}
	if total != ShipCells {
		return fmt.Errorf("board must contain exactly %d ship cells", ShipCells)
	}
	return nil
}

// Flatten returns the cells in row-major order, matching Position.Index.
func (b *Board) Flatten() []uint8 {
	out := make([]uint8, BoardSize*BoardSize)
	k := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			out[k] = b.Cells[r][c]
			k++
		}
	}
	return out
}

// At reports the cell value under p.
func (b *Board) At(p Position) uint8 { return b.Cells[p.Y][p.X] }

// RandomFleet places the standard ships without overlap (no adjacency rule).
func RandomFleet(rng *rand.Rand) ([FleetSize]Ship, error) {
	var fleet [FleetSize]Ship
	var taken Board
	tries := 0
	for i, span := range FleetSpans {
		for {
			if tries > 10000 {
				return fleet, errors.New("failed to place ships")
			}
			tries++
			dir := Horizontal
			if rng.IntN(2) == 0 {
				dir = Vertical
			}
			s := Ship{X: uint32(rng.IntN(BoardSize)), Y: uint32(rng.IntN(BoardSize)), Dir: dir}
			if !s.fits(span) || overlaps(&taken, s, span) {
				continue
			}
			for _, p := range s.Cells(span) {
				taken.Cells[p.Y][p.X] = 1
			}
			fleet[i] = s
			break
		}
	}
	return fleet, nil
}

func overlaps(b *Board, s Ship, span int) bool {
	for _, p := range s.Cells(span) {
		if b.At(p) == 1 {
			return true
		}
	}
	return false
}
