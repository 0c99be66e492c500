// Package gametest holds fixed boards for tests.
package gametest

import "battleship-ledger/internal/game"

// Salt is a valid commitment salt.
const Salt = "0x2a"

// Fleet returns ships laid horizontally from column 0 on rows 0, 2, 4, 6
// and 8, in fleet order. Ship i occupies row 2*i, columns 0..span-1.
func Fleet() game.State {
	var st game.State
	for i := range st.Ships {
		st.Ships[i] = game.Ship{X: 0, Y: uint32(2 * i), Dir: game.Horizontal}
	}
	st.Salt = Salt
	return st
}

// Shifted is Fleet moved three columns right, so its boards differ.
func Shifted() game.State {
	st := Fleet()
	for i := range st.Ships {
		st.Ships[i].X = 3
	}
	st.Salt = "0x2b"
	return st
}

// Cells returns the positions of ship i in Fleet.
func Cells(i int) []game.Position {
	return Fleet().Ships[i].Cells(game.FleetSpans[i])
}
