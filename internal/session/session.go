// Package session holds the per-player game session and its persistence.
package session

import (
	"context"
	"errors"
	"fmt"

	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
)

var (
	// ErrNotFound means no session has been saved under the name.
	ErrNotFound = errors.New("session not found")
	// ErrCorrupt means a saved session could not be decoded; resuming from it
	// could double-submit, so it is fatal.
	ErrCorrupt = fmt.Errorf("%w: session is corrupt", failure.ErrPersistence)
)

// GameSession is one player's private view of one game. RemoteShots marks
// the opponent's board (shots this player fired, Pending until confirmed);
// LocalShots marks this player's board (attested outcomes of incoming shots).
type GameSession struct {
	Name          string         `json:"name"`
	Player        string         `json:"player"`
	State         game.State     `json:"state"`
	LocalShots    game.ShotMap   `json:"local_shots"`
	RemoteShots   game.ShotMap   `json:"remote_shots"`
	LastReceipt   string         `json:"last_receipt"`
	LastShot      *game.Position `json:"last_shot,omitempty"`
	IsFirst       bool           `json:"is_first"`
	Status        string         `json:"status"`
	Seat          ledger.Seat    `json:"seat"`
	TurnProcessed bool           `json:"turn_processed"`
}

// New starts a session for seat. Only the joiner fires the first shot of the
// match through join_game.
func New(name, player string, seat ledger.Seat, state game.State, status string) GameSession {
	return GameSession{
		Name:        name,
		Player:      player,
		State:       state,
		LocalShots:  game.ShotMap{},
		RemoteShots: game.ShotMap{},
		IsFirst:     seat == ledger.SeatP2,
		Status:      status,
		Seat:        seat,
	}
}

// Clone returns a copy that shares nothing mutable with s.
func (s GameSession) Clone() GameSession {
	out := s
	out.LocalShots = s.LocalShots.Clone()
	out.RemoteShots = s.RemoteShots.Clone()
	if s.LastShot != nil {
		p := *s.LastShot
		out.LastShot = &p
	}
	return out
}

// Validate checks the invariants a loaded session must satisfy.
func (s *GameSession) Validate() error {
	if s.Name == "" {
		return errors.New("missing name")
	}
	if s.Seat != ledger.SeatP1 && s.Seat != ledger.SeatP2 {
		return fmt.Errorf("bad seat %d", s.Seat)
	}
	if err := s.State.Validate(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	for p, h := range s.LocalShots {
		if !h.Concrete() {
			return fmt.Errorf("local shot %s is %s", p, h)
		}
	}
	for p, h := range s.RemoteShots {
		if !h.Concrete() && !h.IsPending() {
			return fmt.Errorf("remote shot %s is %s", p, h)
		}
	}
	if s.LastShot != nil && !s.LastShot.Valid() {
		return fmt.Errorf("last shot %s is off the board", *s.LastShot)
	}
	return nil
}

// Store saves and restores sessions by game name. Save must be atomic for
// the whole session.
type Store interface {
	Load(ctx context.Context, name string) (GameSession, error)
	Save(ctx context.Context, s GameSession) error
}
