package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

const (
	MerkleDepth = 7 // 128 leaves
	BoardCells  = 100
	ShipCells   = 17
)

// BoardCircuit proves a committed board has exactly ShipCells ship cells.
type BoardCircuit struct {
	Cells [BoardCells]frontend.Variable `gnark:",secret"`
	Salt  frontend.Variable             `gnark:",secret"`

	Commitment frontend.Variable `gnark:",public"`
}

func (c *BoardCircuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	total := frontend.Variable(0)
	level := make([]frontend.Variable, 1<<MerkleDepth)
	for i := range level {
		cell := frontend.Variable(0)
		if i < BoardCells {
			cell = c.Cells[i]
			api.AssertIsBoolean(cell)
			total = api.Add(total, cell)
		}
		h.Reset()
		h.Write(cell)
		level[i] = h.Sum()
	}
	api.AssertIsEqual(total, ShipCells)

	for len(level) > 1 {
		up := make([]frontend.Variable, len(level)/2)
		for i := range up {
			h.Reset()
			h.Write(level[2*i], level[2*i+1])
			up[i] = h.Sum()
		}
		level = up
	}

	h.Reset()
	h.Write(c.Salt, level[0])
	api.AssertIsEqual(h.Sum(), c.Commitment)
	return nil
}

// ShotCircuit proves the cell at a public index holds Hit under the commitment.
type ShotCircuit struct {
	Bit  frontend.Variable              `gnark:",secret"`
	Path [MerkleDepth]frontend.Variable `gnark:",secret"`
	Salt frontend.Variable              `gnark:",secret"`

	Commitment frontend.Variable `gnark:",public"`
	Index      frontend.Variable `gnark:",public"`
	Hit        frontend.Variable `gnark:",public"`
}

func (c *ShotCircuit) Define(api frontend.API) error {
	api.AssertIsBoolean(c.Bit)      // Bit ∈ {0,1}
	api.AssertIsEqual(c.Hit, c.Bit) // reveal only Hit = Bit
	api.AssertIsLessOrEqual(c.Index, BoardCells-1)

	// leaf hash = MiMC(Bit)  (v0.14 returns (MiMC, error))
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Reset()
	h.Write(c.Bit)
	curr := h.Sum()

	// walk Merkle path; index bits say whether the current node is a right child
	dir := api.ToBinary(c.Index, MerkleDepth)
	for i := 0; i < MerkleDepth; i++ {
		h.Reset()
		left := api.Select(dir[i], c.Path[i], curr)
		right := api.Select(dir[i], curr, c.Path[i])
		h.Write(left, right)
		curr = h.Sum()
	}

	h.Reset()
	h.Write(c.Salt, curr)
	api.AssertIsEqual(h.Sum(), c.Commitment)
	return nil
}
