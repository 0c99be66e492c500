// Package oracletest provides a fast oracle and verifier pair for tests. The
// receipts carry real commitments and journals but an unchecked seal.
package oracletest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"battleship-ledger/internal/app"
	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/oracle"
)

var seal = []byte("insecure-test-seal")

// Oracle counts calls and can be told to fail the next request.
type Oracle struct {
	mu         sync.Mutex
	setupCalls int
	roundCalls int
	rounds     []game.RoundParams
	failNext   error
}

func New() *Oracle { return &Oracle{} }

// FailNext makes the next prove call return err.
func (o *Oracle) FailNext(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failNext = err
}

func (o *Oracle) SetupCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.setupCalls
}

func (o *Oracle) RoundCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.roundCalls
}

// Rounds returns the round requests seen so far.
func (o *Oracle) Rounds() []game.RoundParams {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]game.RoundParams(nil), o.rounds...)
}

func (o *Oracle) takeFailure() error {
	err := o.failNext
	o.failNext = nil
	return err
}

func (o *Oracle) ProveSetup(ctx context.Context, st game.State) (string, error) {
	o.mu.Lock()
	o.setupCalls++
	err := o.takeFailure()
	o.mu.Unlock()
	if err != nil {
		return "", err
	}
	c, err := app.Commit(st)
	if err != nil {
		return "", fmt.Errorf("%w: %v", oracle.ErrInvalidInput, err)
	}
	return codec.Receipt{Journal: codec.Journal{Commitment: c.Digest()}, Seal: seal}.Encode()
}

func (o *Oracle) ProveRound(ctx context.Context, params game.RoundParams) (game.RoundResult, string, error) {
	o.mu.Lock()
	o.roundCalls++
	o.rounds = append(o.rounds, params)
	err := o.takeFailure()
	o.mu.Unlock()
	if err != nil {
		return game.RoundResult{}, "", err
	}
	c, err := app.Commit(params.State)
	if err != nil {
		return game.RoundResult{}, "", fmt.Errorf("%w: %v", oracle.ErrInvalidInput, err)
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

// Verifier accepts receipts minted by Oracle.
type Verifier struct{}

func (Verifier) VerifySetup(receipt string) (codec.Journal, error) {
	r, err := decode(receipt)
	if err != nil {
		return codec.Journal{}, err
	}
	if r.Journal.Shot != nil || r.Journal.Outcome != nil {
		return codec.Journal{}, errors.New("setup receipt carries a round journal")
	}
	return r.Journal, nil
}

func (Verifier) VerifyRound(receipt string) (codec.Journal, error) {
	r, err := decode(receipt)
	if err != nil {
		return codec.Journal{}, err
	}
	if _, _, err := r.Journal.Round(); err != nil {
		return codec.Journal{}, err
	}
	return r.Journal, nil
}

func decode(receipt string) (codec.Receipt, error) {
	r, err := codec.Decode(receipt)
	if err != nil {
		return r, err
	}
	if !bytes.Equal(r.Seal, seal) {
		return r, errors.New("bad seal")
	}
	return r, nil
}

// Receipt mints a receipt for an arbitrary journal, for tests that need to
// forge ledger submissions.
func Receipt(j codec.Journal) string {
	s, err := codec.Receipt{Journal: j, Seal: seal}.Encode()
	if err != nil {
		panic(err)
	}
	return s
}

var _ oracle.Oracle = (*Oracle)(nil)
