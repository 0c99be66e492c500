package merkle

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFixedTree(t *testing.T) {
	bits := make([]uint8, 100)
	bits[7], bits[42] = 1, 1

	tree, err := BuildFixedTree(bits, Leaves)
	require.NoError(t, err)
	assert.Equal(t, 7, tree.Depth)

	again, err := BuildFixedTree(bits, Leaves)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Root().Cmp(again.Root()))

	bits[42] = 0
	other, err := BuildFixedTree(bits, Leaves)
	require.NoError(t, err)
	assert.NotEqual(t, 0, tree.Root().Cmp(other.Root()))

	_, err = BuildFixedTree(bits, 100)
	assert.Error(t, err)
	_, err = BuildFixedTree(make([]uint8, 129), Leaves)
	assert.Error(t, err)
}

func TestPathRebuildsRoot(t *testing.T) {
	bits := make([]uint8, 100)
	bits[42] = 1
	tree, err := BuildFixedTree(bits, Leaves)
	require.NoError(t, err)

	for _, idx := range []int{0, 42, 99, 127} {
		path, err := tree.Path(idx)
		require.NoError(t, err)
		require.Len(t, path, tree.Depth)

		cur := HashLeafMiMC(bits[min(idx, 99)])
		if idx >= 100 {
			cur = HashLeafMiMC(0)
		}
		for level, sib := range path {
			if (idx>>level)&1 == 0 {
				cur = HashNodeMiMC(cur, sib)
			} else {
				cur = HashNodeMiMC(sib, cur)
			}
		}
		assert.Equal(t, 0, cur.Cmp(tree.Root()), "index %d", idx)
	}

	_, err = tree.Path(-1)
	assert.Error(t, err)
	_, err = tree.Path(Leaves)
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	x := HashNodeMiMC(big.NewInt(42), big.NewInt(7))
	d := DigestOf(x)
	assert.Equal(t, 0, d.Int().Cmp(x))
	assert.Len(t, d.String(), 66)

	small := DigestOf(big.NewInt(1))
	assert.Equal(t, Digest{0, 0, 0, 0, 0, 0, 0, 1}, small)
}

func TestCommitIsSalted(t *testing.T) {
	root := HashLeafMiMC(1)
	assert.NotEqual(t, 0, Commit(big.NewInt(1), root).Cmp(Commit(big.NewInt(2), root)))
}

func TestSalt(t *testing.T) {
	s, err := NewSaltHex()
	require.NoError(t, err)
	salt, err := ParseSalt(s)
	require.NoError(t, err)
	assert.Equal(t, -1, salt.Cmp(fr.Modulus()))

	for _, bad := range []string{"", "0x", "2a", "0xzz", "0x" + fr.Modulus().Text(16)} {
		_, err := ParseSalt(bad)
		assert.Error(t, err, bad)
	}
}
