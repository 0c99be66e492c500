package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/game"
)

// Verifier checks receipts and returns their journals.
type Verifier interface {
	VerifySetup(receipt string) (codec.Journal, error)
	VerifyRound(receipt string) (codec.Journal, error)
}

// Contract enforces the structural transitions of a game record.
type Contract struct {
	store    Store
	verifier Verifier
	log      *log.Logger
}

func NewContract(store Store, verifier Verifier, logger *log.Logger) *Contract {
	return &Contract{store: store, verifier: verifier, log: logger.WithPrefix("ledger")}
}

func checkNames(name, player string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: game name is required", ErrBadRequest)
	}
	if strings.ContainsAny(name, "/?#") {
		return fmt.Errorf("%w: game name must not contain '/', '?' or '#'", ErrBadRequest)
	}
	if strings.TrimSpace(player) == "" {
		return fmt.Errorf("%w: player id is required", ErrBadRequest)
	}
	return nil
}

func checkShot(shot game.Position) error {
	if !shot.Valid() {
		return fmt.Errorf("%w: shot %s is off the board", ErrBadRequest, shot)
	}
	return nil
}

// GetState returns the record for name or ErrNotFound.
func (c *Contract) GetState(ctx context.Context, name string) (ContractState, error) {
	return c.store.Get(ctx, name)
}

// NewGame records p1's board commitment. The name must be unused.
func (c *Contract) NewGame(ctx context.Context, name, player, receipt string) error {
	if err := checkNames(name, player); err != nil {
		return err
	}
	if _, err := c.store.Get(ctx, name); err == nil {
		return ErrGameExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	journal, err := c.verifier.VerifySetup(receipt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	state := ContractState{
		NextTurn: AwaitingP2Setup,
		P1:       PlayerState{ID: player, Board: journal.Commitment},
	}
	if err := c.store.Create(ctx, name, state); err != nil {
		return err
	}
	c.log.Info("game created", "game", name, "player", player)
	return nil
}

// JoinGame records p2's commitment together with the opening shot at p1.
func (c *Contract) JoinGame(ctx context.Context, name, player, receipt string, shot game.Position) error {
	if err := checkNames(name, player); err != nil {
		return err
	}
	if err := checkShot(shot); err != nil {
		return err
	}
	state, err := c.store.Get(ctx, name)
	if err != nil {
		return err
	}
	if state.NextTurn != AwaitingP2Setup {
		return fmt.Errorf("%w: game already joined", ErrOutOfTurn)
	}
	if state.P1.ID == player {
		return fmt.Errorf("%w: creator cannot join own game", ErrOutOfTurn)
	}
	journal, err := c.verifier.VerifySetup(receipt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	state.P2 = PlayerState{ID: player, Board: journal.Commitment, LastShot: shot}
	state.NextTurn = P1MustProcess
	if err := c.store.Swap(ctx, name, AwaitingP2Setup, state); err != nil {
		return err
	}
	c.log.Info("game joined", "game", name, "player", player, "shot", shot)
	return nil
}

// Turn records the caller's answer to the opponent's last shot and the
// caller's next shot. The receipt must bind the caller's committed board and
// answer exactly the opponent's last shot.
func (c *Contract) Turn(ctx context.Context, name, player, receipt string, shot game.Position) error {
	if err := checkNames(name, player); err != nil {
		return err
	}
	if err := checkShot(shot); err != nil {
		return err
	}
	state, err := c.store.Get(ctx, name)
	if err != nil {
		return err
	}
	seat, ok := state.SeatOf(player)
	if !ok {
		return fmt.Errorf("%w: %s is not playing %s", ErrOutOfTurn, player, name)
	}
	if state.NextTurn != seat.Turn() {
		return fmt.Errorf("%w: next turn is %s, caller is %s", ErrOutOfTurn, state.NextTurn, seat)
	}

	journal, err := c.verifier.VerifyRound(receipt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	answered, outcome, err := journal.Round()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReceipt, err)
	}
	self, opp := state.Player(seat), state.Player(seat.Opponent())
	if journal.Commitment != self.Board {
		return fmt.Errorf("%w: receipt is for a different board", ErrInvalidReceipt)
	}
	if answered != opp.LastShot {
		return fmt.Errorf("%w: receipt answers %s, last shot was %s", ErrInvalidReceipt, answered, opp.LastShot)
	}

	expect := state.NextTurn
	self.LastShot = shot
	self.LastHit = &outcome
	if seat == SeatP1 {
		state.P1 = self
		state.NextTurn = P2MustProcess
	} else {
		state.P2 = self
		state.NextTurn = P1MustProcess
	}
	if err := c.store.Swap(ctx, name, expect, state); err != nil {
		return err
	}
	c.log.Info("turn recorded", "game", name, "seat", seat, "answered", answered, "outcome", outcome, "shot", shot)
	return nil
}
