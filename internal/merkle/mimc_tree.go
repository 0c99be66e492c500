package merkle

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Leaves is the padded leaf count of a board tree (100 cells -> 128).
const Leaves = 128

// --- encode BN254 field elements as 32-byte big-endian ---
func feBytes(x *big.Int) []byte {
	b := x.Bytes()
	if len(b) == 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func bytesToFE(b []byte) *big.Int { return new(big.Int).SetBytes(b) }

// MiMC helpers (off-chain), consistent with in-circuit MiMC
func HashLeafMiMC(bit uint8) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(new(big.Int).SetUint64(uint64(bit))))
	return bytesToFE(h.Sum(nil))
}

func HashNodeMiMC(left, right *big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	h.Write(feBytes(left))
	h.Write(feBytes(right))
	return bytesToFE(h.Sum(nil))
}

// Fixed-size binary Merkle tree stored level-by-level.
type Tree struct {
	Depth  int          `json:"depth"`
	Levels [][]*big.Int `json:"levels"` // Levels[0]=leaves, Levels[Depth]=root
}

func BuildFixedTree(leavesBits []uint8, size int) (*Tree, error) {
	if size&(size-1) != 0 {
		return nil, errors.New("size must be power of two")
	}
	if len(leavesBits) > size {
		return nil, errors.New("too many leaves")
	}

	pad := HashLeafMiMC(0)
	L0 := make([]*big.Int, size)
	for i := 0; i < size; i++ {
		if i < len(leavesBits) {
			L0[i] = HashLeafMiMC(leavesBits[i])
		} else {
			L0[i] = new(big.Int).Set(pad)
		}
	}
	levels := [][]*big.Int{L0}

	for n := size; n > 1; n /= 2 {
		prev := levels[len(levels)-1]
		up := make([]*big.Int, n/2)
		for i := range up {
			up[i] = HashNodeMiMC(prev[2*i], prev[2*i+1])
		}
		levels = append(levels, up)
	}

	return &Tree{Depth: len(levels) - 1, Levels: levels}, nil
}

func (t *Tree) Root() *big.Int { return new(big.Int).Set(t.Levels[len(t.Levels)-1][0]) }

// Path returns sibling hashes for index idx, leaf level first.
func (t *Tree) Path(idx int) ([]*big.Int, error) {
	if idx < 0 || idx >= len(t.Levels[0]) {
		return nil, errors.New("idx OOB")
	}
	path := make([]*big.Int, 0, t.Depth)
	cur := idx
	for level := 0; level < t.Depth; level++ {
		path = append(path, new(big.Int).Set(t.Levels[level][cur^1]))
		cur /= 2
	}
	return path, nil
}

// Digest is a commitment split into eight big-endian 32-bit words, the
// shape the ledger stores.
type Digest [8]uint32

func DigestOf(x *big.Int) Digest {
	var d Digest
	b := feBytes(x)
	for i := range d {
		d[i] = binary.BigEndian.Uint32(b[4*i:])
	}
	return d
}

func (d Digest) Int() *big.Int {
	b := make([]byte, 32)
	for i, w := range d {
		binary.BigEndian.PutUint32(b[4*i:], w)
	}
	return bytesToFE(b)
}

func (d Digest) String() string { return fmt.Sprintf("0x%064x", d.Int()) }

// Commit hashes the salt with the tree root so equal boards commit differently.
func Commit(salt, root *big.Int) *big.Int { return HashNodeMiMC(salt, root) }

// NewSaltHex draws a random field element and formats it as 0x-prefixed hex.
func NewSaltHex() (string, error) {
	n, err := rand.Int(rand.Reader, fr.Modulus())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%x", n), nil
}

// ParseSalt parses a 0x-prefixed hex salt and checks it is a field element.
func ParseSalt(s string) (*big.Int, error) {
	if len(s) < 3 || !strings.HasPrefix(s, "0x") {
		return nil, errors.New("missing or invalid salt")
	}
	salt, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, errors.New("cannot parse salt hex")
	}
	if salt.Sign() < 0 || salt.Cmp(fr.Modulus()) >= 0 {
		return nil, errors.New("salt is not a field element")
	}
	return salt, nil
}
