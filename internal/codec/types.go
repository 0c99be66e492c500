package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"battleship-ledger/internal/game"
	"battleship-ledger/internal/merkle"
)

// Journal is the public part of a receipt. Setup receipts carry only the
// commitment; round receipts also name the answered shot and its outcome.
type Journal struct {
	Commitment merkle.Digest  `json:"commitment"`
	Shot       *game.Position `json:"shot,omitempty"`
	Outcome    *game.HitType  `json:"outcome,omitempty"`
}

// Receipt pairs a journal with the seal (a serialized Groth16 proof) that
// attests it.
type Receipt struct {
	Journal Journal `json:"journal"`
	Seal    []byte  `json:"seal"`
}

// Encode renders the receipt as base64 text, safe for any transport.
func (r Receipt) Encode() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a receipt produced by Encode.
func Decode(s string) (Receipt, error) {
	var r Receipt
	if s == "" {
		return r, errors.New("empty receipt")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return r, fmt.Errorf("receipt encoding: %w", err)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("receipt body: %w", err)
	}
	return r, nil
}

// Round checks the journal describes a round and returns its shot and outcome.
func (j Journal) Round() (game.Position, game.HitType, error) {
	if j.Shot == nil || j.Outcome == nil {
		return game.Position{}, game.HitType{}, errors.New("journal is not a round journal")
	}
	if !j.Shot.Valid() {
		return game.Position{}, game.HitType{}, fmt.Errorf("journal shot %s is off the board", *j.Shot)
	}
	if !j.Outcome.Concrete() {
		return game.Position{}, game.HitType{}, fmt.Errorf("journal outcome %s is not concrete", *j.Outcome)
	}
	return *j.Shot, *j.Outcome, nil
}

// TurnResult is the oracle's round response body.
type TurnResult struct {
	State   game.RoundResult `json:"state"`
	Receipt string           `json:"receipt"`
}
