package session

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
)

// blob is the stored shape: shot maps become ordered record lists.
type blob struct {
	Name          string            `cbor:"1,keyasint"`
	Player        string            `cbor:"2,keyasint"`
	State         game.State        `cbor:"3,keyasint"`
	LocalShots    []game.ShotRecord `cbor:"4,keyasint"`
	RemoteShots   []game.ShotRecord `cbor:"5,keyasint"`
	LastReceipt   string            `cbor:"6,keyasint"`
	LastShot      *game.Position    `cbor:"7,keyasint,omitempty"`
	IsFirst       bool              `cbor:"8,keyasint"`
	Status        string            `cbor:"9,keyasint"`
	Seat          ledger.Seat       `cbor:"10,keyasint"`
	TurnProcessed bool              `cbor:"11,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode serializes s to CBOR.
func Encode(s GameSession) ([]byte, error) {
	return encMode.Marshal(blob{
		Name:          s.Name,
		Player:        s.Player,
		State:         s.State,
		LocalShots:    s.LocalShots.Records(),
		RemoteShots:   s.RemoteShots.Records(),
		LastReceipt:   s.LastReceipt,
		LastShot:      s.LastShot,
		IsFirst:       s.IsFirst,
		Status:        s.Status,
		Seat:          s.Seat,
		TurnProcessed: s.TurnProcessed,
	})
}

// Decode parses and validates a blob written by Encode. Any failure is
// reported as ErrCorrupt.
func Decode(data []byte) (GameSession, error) {
	var b blob
	if err := cbor.Unmarshal(data, &b); err != nil {
		return GameSession{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	local, err := game.ShotMapFromRecords(b.LocalShots)
	if err != nil {
		return GameSession{}, fmt.Errorf("%w: local shots: %v", ErrCorrupt, err)
	}
	remote, err := game.ShotMapFromRecords(b.RemoteShots)
	if err != nil {
		return GameSession{}, fmt.Errorf("%w: remote shots: %v", ErrCorrupt, err)
	}
	s := GameSession{
		Name:          b.Name,
		Player:        b.Player,
		State:         b.State,
		LocalShots:    local,
		RemoteShots:   remote,
		LastReceipt:   b.LastReceipt,
		LastShot:      b.LastShot,
		IsFirst:       b.IsFirst,
		Status:        b.Status,
		Seat:          b.Seat,
		TurnProcessed: b.TurnProcessed,
	}
	if err := s.Validate(); err != nil {
		return GameSession{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}
