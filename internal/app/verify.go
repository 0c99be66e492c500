package app

import (
	"fmt"

	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/zk"
)

// Verifier checks receipts produced by Service.
type Verifier struct {
	v *zk.Verifier
}

func NewVerifier(v *zk.Verifier) *Verifier { return &Verifier{v: v} }

// VerifySetup checks a setup receipt and returns its journal.
func (v *Verifier) VerifySetup(receipt string) (codec.Journal, error) {
	r, err := codec.Decode(receipt)
	if err != nil {
		return codec.Journal{}, err
	}
	if r.Journal.Shot != nil || r.Journal.Outcome != nil {
		return codec.Journal{}, fmt.Errorf("setup receipt carries a round journal")
	}
	if err := v.v.VerifyBoard(r.Seal, r.Journal.Commitment.Int()); err != nil {
		return codec.Journal{}, fmt.Errorf("verify board proof: %w", err)
	}
	return r.Journal, nil
}

// VerifyRound checks a round receipt and returns its journal. The proof
// covers the hit bit at the shot index; the sunk ship id rides along in the
// journal.
func (v *Verifier) VerifyRound(receipt string) (codec.Journal, error) {
	r, err := codec.Decode(receipt)
	if err != nil {
		return codec.Journal{}, err
	}
	shot, outcome, err := r.Journal.Round()
	if err != nil {
		return codec.Journal{}, err
	}
	var hit uint8
	if outcome.Struck() {
		hit = 1
	}
	if err := v.v.VerifyShot(r.Seal, r.Journal.Commitment.Int(), shot.Index(), hit); err != nil {
		return codec.Journal{}, fmt.Errorf("verify shot proof: %w", err)
	}
	return r.Journal, nil
}
