package app

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"

	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/merkle"
	"battleship-ledger/internal/oracle"
	"battleship-ledger/internal/zk"
)

// InitState places a random fleet and draws a fresh commitment salt.
func InitState(rng *rand.Rand) (game.State, error) {
	ships, err := game.RandomFleet(rng)
	if err != nil {
		return game.State{}, err
	}
	salt, err := merkle.NewSaltHex()
	if err != nil {
		return game.State{}, err
	}
	return game.State{Ships: ships, Salt: salt}, nil
}

// CommitResult is everything needed to prove statements about one board.
type CommitResult struct {
	Board      game.Board
	Tree       *merkle.Tree
	Salt       *big.Int
	Commitment *big.Int
}

func (c *CommitResult) Digest() merkle.Digest { return merkle.DigestOf(c.Commitment) }

// Commit validates st and computes its salted board commitment.
func Commit(st game.State) (*CommitResult, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	b := st.Board()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	salt, err := merkle.ParseSalt(st.Salt)
	if err != nil {
		return nil, err
	}
	t, err := merkle.BuildFixedTree(b.Flatten(), merkle.Leaves)
	if err != nil {
		return nil, err
	}
	// this is to make root unique for same boards
	commitment := merkle.Commit(salt, t.Root())
	return &CommitResult{Board: b, Tree: t, Salt: salt, Commitment: commitment}, nil
}

// Service is the local proof oracle backed by the gnark prover.
type Service struct {
	prover *zk.Prover
}

func NewService(p *zk.Prover) *Service { return &Service{prover: p} }

func (s *Service) ProveSetup(ctx context.Context, st game.State) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c, err := Commit(st)
	if err != nil {
		return "", fmt.Errorf("%w: %v", oracle.ErrInvalidInput, err)
	}
	seal, err := s.prover.ProveBoard(c.Board.Flatten(), c.Salt, c.Commitment)
	if err != nil {
		return "", fmt.Errorf("%w: prove board: %v", oracle.ErrServerFault, err)
	}
	return codec.Receipt{Journal: codec.Journal{Commitment: c.Digest()}, Seal: seal}.Encode()
}

func (s *Service) ProveRound(ctx context.Context, params game.RoundParams) (game.RoundResult, string, error) {
	if err := ctx.Err(); err != nil {
		return game.RoundResult{}, "", err
	}
	if !params.Shot.Valid() {
		return game.RoundResult{}, "", fmt.Errorf("%w: shot %s is off the board", oracle.ErrInvalidInput, params.Shot)
	}
	c, err := Commit(params.State)
	if err != nil {
		return game.RoundResult{}, "", fmt.Errorf("%w: %v", oracle.ErrInvalidInput, err)
	}

	idx := params.Shot.Index()
	bit := c.Board.At(params.Shot)
	path, err := c.Tree.Path(idx)
	if err != nil {
		return game.RoundResult{}, "", fmt.Errorf("%w: %v", oracle.ErrInvalidInput, err)
	}
	seal, err := s.prover.ProveShot(bit, idx, path, c.Salt, c.Commitment)
	if err != nil {
		return game.RoundResult{}, "", fmt.Errorf("%w: prove shot: %v", oracle.ErrServerFault, err)
	}

	next, hit := params.State.ApplyShot(params.Shot)
	shot := params.Shot
	receipt, err := codec.Receipt{
		Journal: codec.Journal{Commitment: c.Digest(), Shot: &shot, Outcome: &hit},
		Seal:    seal,
	}.Encode()
	if err != nil {
		return game.RoundResult{}, "", err
	}
	return game.RoundResult{State: next, Hit: hit}, receipt, nil
}

var _ oracle.Oracle = (*Service)(nil)
