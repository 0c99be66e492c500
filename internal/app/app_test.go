package app_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleship-ledger/internal/app"
	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/game/gametest"
	"battleship-ledger/internal/oracle"
	"battleship-ledger/internal/zk"
)

func TestInitState(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	a, err := app.InitState(rng)
	require.NoError(t, err)
	require.NoError(t, a.Validate())
	b, err := app.InitState(rng)
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
}

func TestCommit(t *testing.T) {
	a, err := app.Commit(gametest.Fleet())
	require.NoError(t, err)
	again, err := app.Commit(gametest.Fleet())
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), again.Digest())

	resalted := gametest.Fleet()
	resalted.Salt = "0x2b"
	other, err := app.Commit(resalted)
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest(), other.Digest(), "the salt blinds equal boards")

	// Damage is not part of the commitment.
	hit, _ := gametest.Fleet().ApplyShot(game.NewPosition(0, 0))
	damaged, err := app.Commit(hit)
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), damaged.Digest())

	bad := gametest.Fleet()
	bad.Salt = "nope"
	_, err = app.Commit(bad)
	assert.Error(t, err)
}

// Generates real Groth16 keys; slow.
func TestProveAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	dir := t.TempDir()
	require.NoError(t, zk.EnsureKeys(dir))
	p, err := zk.LoadProver(dir)
	require.NoError(t, err)
	zv, err := zk.LoadVerifier(dir)
	require.NoError(t, err)
	svc, v := app.NewService(p), app.NewVerifier(zv)
	ctx := context.Background()
	st := gametest.Fleet()

	setup, err := svc.ProveSetup(ctx, st)
	require.NoError(t, err)
	j, err := v.VerifySetup(setup)
	require.NoError(t, err)
	c, err := app.Commit(st)
	require.NoError(t, err)
	assert.Equal(t, c.Digest(), j.Commitment)
	_, err = v.VerifyRound(setup)
	assert.Error(t, err, "a setup receipt is not a round receipt")

	res, round, err := svc.ProveRound(ctx, game.RoundParams{State: st, Shot: game.NewPosition(0, 0)})
	require.NoError(t, err)
	assert.Equal(t, game.Hit, res.Hit)
	j, err = v.VerifyRound(round)
	require.NoError(t, err)
	assert.Equal(t, game.NewPosition(0, 0), *j.Shot)
	_, err = v.VerifySetup(round)
	assert.Error(t, err)

	res, miss, err := svc.ProveRound(ctx, game.RoundParams{State: st, Shot: game.NewPosition(9, 9)})
	require.NoError(t, err)
	assert.Equal(t, game.Miss, res.Hit)
	_, err = v.VerifyRound(miss)
	require.NoError(t, err)

	// A receipt whose journal lies about the outcome fails verification.
	r, err := codec.Decode(miss)
	require.NoError(t, err)
	lie := game.Hit
	r.Journal.Outcome = &lie
	forged, err := r.Encode()
	require.NoError(t, err)
	_, err = v.VerifyRound(forged)
	assert.Error(t, err)

	_, _, err = svc.ProveRound(ctx, game.RoundParams{State: st, Shot: game.NewPosition(10, 0)})
	assert.ErrorIs(t, err, oracle.ErrInvalidInput)
	bad := st
	bad.Ships[1] = bad.Ships[0]
	_, err = svc.ProveSetup(ctx, bad)
	assert.ErrorIs(t, err, oracle.ErrInvalidInput)
}
