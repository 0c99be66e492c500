package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleship-ledger/internal/game"
	"battleship-ledger/internal/merkle"
)

func TestReceiptEncoding(t *testing.T) {
	shot, hit := game.NewPosition(3, 4), game.Sunk(2)
	r := Receipt{
		Journal: Journal{Commitment: merkle.Digest{1, 2, 3, 4, 5, 6, 7, 8}, Shot: &shot, Outcome: &hit},
		Seal:    []byte{0xde, 0xad},
	}
	s, err := r.Encode()
	require.NoError(t, err)

	back, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, r, back)

	_, err = Decode("")
	assert.Error(t, err)
	_, err = Decode("%%%")
	assert.Error(t, err)
	_, err = Decode("bm90IGpzb24=")
	assert.Error(t, err)
}

func TestJournalRound(t *testing.T) {
	shot, hit := game.NewPosition(3, 4), game.Hit
	p, h, err := Journal{Shot: &shot, Outcome: &hit}.Round()
	require.NoError(t, err)
	assert.Equal(t, shot, p)
	assert.Equal(t, game.Hit, h)

	off := game.NewPosition(10, 0)
	pending := game.Pending
	cases := map[string]Journal{
		"setup":     {},
		"no shot":   {Outcome: &hit},
		"off board": {Shot: &off, Outcome: &hit},
		"pending":   {Shot: &shot, Outcome: &pending},
	}
	for name, j := range cases {
		_, _, err := j.Round()
		assert.Error(t, err, name)
	}
}
