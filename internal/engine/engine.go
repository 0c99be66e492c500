// Package engine drives one player's side of a game: it owns the session,
// polls the ledger for the opponent's moves, asks the oracle for proofs and
// submits them.
//
// The engine handles one message at a time on the goroutine running Run.
// Anything slow (ledger reads, proofs, submissions, the poll sleep) runs as a
// task goroutine that hands back exactly one follow-up message.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/oracle"
	"battleship-ledger/internal/session"
)

// DefaultPollInterval is how long WaitTurn sleeps between ledger reads.
const DefaultPollInterval = 5 * time.Second

// Session statuses the engine sets itself. Errors replace the status with
// their message.
const (
	StatusReady    = "Ready!"
	StatusWaiting  = "Waiting for other player."
	StatusInit     = "Init"
	StatusChecking = "Checking turn."
	StatusProcess  = "ProcessTurn"
)

// Ledger is the part of the ledger contract the engine calls.
type Ledger interface {
	GetState(ctx context.Context, name string) (ledger.ContractState, error)
	NewGame(ctx context.Context, name, player, receipt string) error
	JoinGame(ctx context.Context, name, player, receipt string, shot game.Position) error
	Turn(ctx context.Context, name, player, receipt string, shot game.Position) error
}

// Config selects the game and this process's seat in it.
type Config struct {
	Name   string
	Player string
	// Player and Seat apply only when no session is saved; a resumed
	// session keeps the identity and seat it was created with.
	Seat         ledger.Seat
	PollInterval time.Duration
	// NewState builds the hidden board for a fresh session.
	NewState func() (game.State, error)
}

type envelope struct {
	msg      Msg
	fromTask bool
}

// Engine is the turn synchronization state machine for one player.
type Engine struct {
	cfg       Config
	ledger    Ledger
	oracle    oracle.Oracle
	store     session.Store
	observers []Observer
	log       *log.Logger
	tracer    trace.Tracer

	mu     sync.Mutex
	queue  []envelope
	notify chan struct{}

	// Set by start before any task runs; the identity every submission uses.
	player string

	// Owned by the Run goroutine.
	s     session.GameSession
	tasks int
	// unconfirmed is a submitted shot whose outcome on the ledger is unknown.
	unconfirmed *shotUndo
}

// New validates cfg and builds an engine. Nothing is loaded until Run.
func New(cfg Config, l Ledger, o oracle.Oracle, store session.Store, logger *log.Logger, observers ...Observer) (*Engine, error) {
	if cfg.Name == "" || cfg.Player == "" {
		return nil, errors.New("engine: game name and player are required")
	}
	if cfg.Seat != ledger.SeatP1 && cfg.Seat != ledger.SeatP2 {
		return nil, fmt.Errorf("engine: invalid seat %d", cfg.Seat)
	}
	if cfg.NewState == nil {
		return nil, errors.New("engine: NewState is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Engine{
		cfg:       cfg,
		ledger:    l,
		oracle:    o,
		store:     store,
		observers: observers,
		log:       logger.WithPrefix("engine").With("game", cfg.Name),
		tracer:    otel.Tracer("battleship-ledger/engine"),
		notify:    make(chan struct{}, 1),
	}, nil
}

// Send queues msg behind everything already queued. It never blocks.
func (e *Engine) Send(msg Msg) { e.put(envelope{msg: msg}) }

func (e *Engine) put(env envelope) {
	e.mu.Lock()
	e.queue = append(e.queue, env)
	e.mu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) take(ctx context.Context) (envelope, bool) {
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			env := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return env, true
		}
		e.mu.Unlock()
		select {
		case <-e.notify:
		case <-ctx.Done():
			return envelope{}, false
		}
	}
}

// Run loads or creates the session and processes messages until ctx is
// cancelled. Results of tasks still running at that point are dropped.
// A session that cannot be loaded is fatal.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.start(ctx); err != nil {
		return err
	}
	for {
		env, ok := e.take(ctx)
		if !ok {
			return ctx.Err()
		}
		if env.fromTask {
			e.tasks--
		}
		e.handle(ctx, env)
	}
}

func (e *Engine) start(ctx context.Context) error {
	s, err := e.store.Load(ctx, e.cfg.Name)
	switch {
	case err == nil:
		if s.Seat != e.cfg.Seat {
			e.log.Warn("resuming with saved seat", "saved", s.Seat, "requested", e.cfg.Seat)
		}
		if s.Player != e.cfg.Player {
			e.log.Warn("resuming with saved player", "saved", s.Player, "requested", e.cfg.Player)
		}
		e.s = s
		e.player = s.Player
		e.log.Info("session restored, checking turn", "seat", s.Seat)
		e.Send(CheckTurn{})
		return nil
	case !errors.Is(err, session.ErrNotFound):
		return fmt.Errorf("load session %s: %w", e.cfg.Name, err)
	}

	st, err := e.cfg.NewState()
	if err != nil {
		return fmt.Errorf("new board: %w", err)
	}
	e.player = e.cfg.Player
	if e.cfg.Seat == ledger.SeatP1 {
		e.s = session.New(e.cfg.Name, e.player, e.cfg.Seat, st, StatusInit)
		e.log.Info("new session, creating game")
		e.Send(Init{})
		return nil
	}
	e.s = session.New(e.cfg.Name, e.player, e.cfg.Seat, st, StatusReady)
	e.notice("Fire a shot to join the game.")
	return nil
}

// spawn runs fn on its own goroutine and queues its result, unless ctx has
// ended by then.
func (e *Engine) spawn(ctx context.Context, fn func(ctx context.Context) Msg) {
	e.tasks++
	go func() {
		msg := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		e.put(envelope{msg: msg, fromTask: true})
	}()
}

// traced runs fn inside a span named op.
func (e *Engine) traced(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("game", e.cfg.Name),
		attribute.String("player", e.player),
	))
	defer span.End()
	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (e *Engine) emit(ev Event) {
	ev.Session = e.s.Clone()
	for _, o := range e.observers {
		o.Observe(ev)
	}
}

func (e *Engine) notice(text string) {
	e.log.Info(text)
	e.emit(Event{Type: EventNotice, Text: text})
}

func (e *Engine) handle(ctx context.Context, env envelope) {
	switch m := env.msg.(type) {
	case Init:
		e.onInit(ctx)
	case Shot:
		e.onShot(ctx, m.Pos)
	case SaveAndWait:
		e.onSaveAndWait(ctx)
	case WaitTurn:
		e.onWaitTurn(ctx)
	case CheckTurn:
		if !env.fromTask && e.tasks > 0 {
			e.notice("A ledger request is already in flight.")
			return
		}
		e.onCheckTurn(ctx)
	case ProcessTurn:
		e.onProcessTurn(ctx, m.State)
	case UpdateState:
		e.onUpdateState(ctx, m)
	case Resume:
		e.s.Status = StatusReady
	case reconciled:
		e.settle(m)
		e.handle(ctx, envelope{msg: m.next, fromTask: env.fromTask})
		return
	case Error:
		e.onError(m)
		return
	}
	e.emit(Event{Type: EventTransition, Msg: env.msg.Name()})
}

func (e *Engine) onInit(ctx context.Context) {
	e.s.Status = StatusInit
	state := e.s.State
	e.spawn(ctx, func(ctx context.Context) Msg {
		var receipt string
		err := e.traced(ctx, "oracle.prove_setup", func(ctx context.Context) (err error) {
			receipt, err = e.oracle.ProveSetup(ctx, state)
			return err
		})
		if err != nil {
			return failed("prove setup", err)
		}
		err = e.traced(ctx, "ledger.new_game", func(ctx context.Context) error {
			return e.ledger.NewGame(ctx, e.cfg.Name, e.player, receipt)
		})
		if err != nil {
			return failed("new_game", err)
		}
		e.log.Info("game created, save and wait turn")
		return SaveAndWait{}
	})
}

func (e *Engine) onShot(ctx context.Context, pos game.Position) {
	if e.s.Status != StatusReady {
		e.notice("Waiting for other player!")
		return
	}
	if !pos.Valid() {
		e.notice(fmt.Sprintf("Shot %s is off the board.", pos))
		return
	}
	if _, ok := e.s.RemoteShots[pos]; ok {
		e.notice(fmt.Sprintf("Already fired at %s.", pos))
		return
	}

	undo := &shotUndo{pos: pos, lastShot: e.s.LastShot, isFirst: e.s.IsFirst}
	e.s.Status = fmt.Sprintf("Shot: %s", pos)
	p := pos
	e.s.LastShot = &p
	e.s.RemoteShots[pos] = game.Pending
	isFirst := e.s.IsFirst
	e.s.IsFirst = false
	state, receipt := e.s.State, e.s.LastReceipt

	e.spawn(ctx, func(ctx context.Context) Msg {
		if isFirst {
			var setup string
			err := e.traced(ctx, "oracle.prove_setup", func(ctx context.Context) (err error) {
				setup, err = e.oracle.ProveSetup(ctx, state)
				return err
			})
			if err != nil {
				m := failed("prove setup", err)
				m.undo = undo
				return m
			}
			err = e.traced(ctx, "ledger.join_game", func(ctx context.Context) error {
				return e.ledger.JoinGame(ctx, e.cfg.Name, e.player, setup, pos)
			})
			if err != nil {
				return submitFailed("join_game", err, undo)
			}
			e.log.Info("game joined, save and wait turn", "shot", pos)
			return SaveAndWait{}
		}
		err := e.traced(ctx, "ledger.turn", func(ctx context.Context) error {
			return e.ledger.Turn(ctx, e.cfg.Name, e.player, receipt, pos)
		})
		if err != nil {
			return submitFailed("turn", err, undo)
		}
		e.log.Info("turn sent, save and wait turn", "shot", pos)
		return SaveAndWait{}
	})
}

// submitFailed rolls a rejected shot back. After a network failure the
// submission may have landed anyway, so the marks stay until a CheckTurn
// read settles it.
func submitFailed(step string, err error, undo *shotUndo) Error {
	m := failed(step, err)
	m.undo = undo
	m.unconfirmed = m.Kind == failure.Network
	return m
}

func (e *Engine) onSaveAndWait(ctx context.Context) {
	e.s.Status = StatusWaiting
	e.s.TurnProcessed = false
	if err := e.save(ctx, e.s); err != nil {
		e.Send(failed("save session", err))
		return
	}
	e.Send(WaitTurn{})
}

func (e *Engine) onWaitTurn(ctx context.Context) {
	e.s.Status = StatusWaiting
	mine := e.s.Seat.Turn()
	e.spawn(ctx, func(ctx context.Context) Msg {
		st, err := e.getState(ctx)
		if err != nil {
			return failed("get_state", err)
		}
		if st.NextTurn == mine {
			return ProcessTurn{State: st}
		}
		return e.sleep(ctx)
	})
}

func (e *Engine) onCheckTurn(ctx context.Context) {
	e.s.Status = StatusChecking
	seat := e.s.Seat
	processed := e.s.TurnProcessed
	u := e.unconfirmed
	e.spawn(ctx, func(ctx context.Context) Msg {
		st, err := e.getState(ctx)
		if err != nil {
			return failed("check_turn get_state", err)
		}
		if u == nil {
			return e.resumeTurn(ctx, st, seat.Turn(), processed)
		}
		r := reconciled{undo: u, landed: shotLanded(st, seat, e.player, u)}
		switch {
		case r.landed && st.NextTurn == seat.Turn():
			r.next = ProcessTurn{State: st}
		case r.landed:
			r.next = SaveAndWait{}
		case u.isFirst && st.NextTurn != ledger.AwaitingP2Setup:
			r.next = Error{Kind: failure.Rejected, Message: "check_turn: another player joined the game"}
		case u.isFirst:
			r.next = Resume{}
		default:
			r.next = e.resumeTurn(ctx, st, seat.Turn(), processed)
		}
		return r
	})
}

func (e *Engine) resumeTurn(ctx context.Context, st ledger.ContractState, mine ledger.NextTurn, processed bool) Msg {
	switch {
	case st.NextTurn != mine:
		return e.sleep(ctx)
	case processed:
		return Resume{}
	}
	return ProcessTurn{State: st}
}

// shotLanded reports whether the ledger holds u as player's latest shot. A
// seat that never fired reads as (0, 0), so a creator's first shot only
// counts once the ledger has moved past it.
func shotLanded(st ledger.ContractState, seat ledger.Seat, player string, u *shotUndo) bool {
	if s, ok := st.SeatOf(player); !ok || s != seat {
		return false
	}
	if st.Player(seat).LastShot != u.pos {
		return false
	}
	if u.lastShot != nil || u.isFirst {
		return true
	}
	return st.NextTurn != seat.Turn() || st.Player(seat.Opponent()).LastHit != nil
}

// settle applies what a CheckTurn read learned about an unconfirmed shot.
func (e *Engine) settle(r reconciled) {
	if e.unconfirmed == r.undo {
		e.unconfirmed = nil
	}
	if r.landed {
		e.s.TurnProcessed = false
		e.log.Info("unconfirmed shot is on the ledger", "shot", r.undo.pos)
		return
	}
	e.rollback(r.undo)
	e.log.Info("unconfirmed shot never reached the ledger", "shot", r.undo.pos)
}

func (e *Engine) getState(ctx context.Context) (ledger.ContractState, error) {
	var st ledger.ContractState
	err := e.traced(ctx, "ledger.get_state", func(ctx context.Context) (err error) {
		st, err = e.ledger.GetState(ctx, e.cfg.Name)
		return err
	})
	return st, err
}

// sleep waits one poll interval and asks for another poll. Polling has no
// limit; it stops when the engine's context ends.
func (e *Engine) sleep(ctx context.Context) Msg {
	t := time.NewTimer(e.cfg.PollInterval)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return WaitTurn{}
}

func (e *Engine) onProcessTurn(ctx context.Context, st ledger.ContractState) {
	e.s.Status = StatusProcess
	opp := st.Player(e.s.Seat.Opponent())

	if e.s.LastShot != nil {
		if opp.LastHit == nil || !opp.LastHit.Concrete() {
			e.Send(Error{
				Kind:    failure.Proof,
				Message: fmt.Sprintf("process_turn: ledger has no outcome for shot %s", *e.s.LastShot),
			})
			return
		}
		hit := *opp.LastHit
		e.s.RemoteShots[*e.s.LastShot] = hit
		e.log.Info("shot confirmed", "shot", *e.s.LastShot, "outcome", hit)
		if hit.Kind == game.KindSunk {
			e.emit(Event{Type: EventSunk, Ship: hit.Ship, Text: "You sunk an opponent's ship!"})
			if len(e.s.RemoteShots.SunkShips()) == game.FleetSize {
				e.notice("Victory! Every opponent ship has been sunk.")
			}
		}
	}

	params := game.RoundParams{State: e.s.State, Shot: opp.LastShot}
	e.spawn(ctx, func(ctx context.Context) Msg {
		var (
			result  game.RoundResult
			receipt string
		)
		err := e.traced(ctx, "oracle.prove_round", func(ctx context.Context) (err error) {
			result, receipt, err = e.oracle.ProveRound(ctx, params)
			return err
		})
		if err != nil {
			return failed("prove round", err)
		}
		return UpdateState{Receipt: receipt, Result: result, Shot: params.Shot}
	})
}

func (e *Engine) onUpdateState(ctx context.Context, m UpdateState) {
	if !m.Result.Hit.Concrete() {
		e.Send(Error{Kind: failure.Proof, Message: fmt.Sprintf("update_state: oracle returned outcome %s", m.Result.Hit)})
		return
	}
	next := e.s.Clone()
	next.Status = StatusReady
	next.State = m.Result.State
	next.LastReceipt = m.Receipt
	next.LocalShots[m.Shot] = m.Result.Hit
	next.TurnProcessed = true
	if err := e.save(ctx, next); err != nil {
		e.Send(failed("save session", err))
		return
	}
	e.s = next
	e.log.Info("turn processed", "incoming", m.Shot, "outcome", m.Result.Hit)
	if e.s.State.FleetSunk() {
		e.notice("Defeat. Every ship in your fleet has been sunk.")
	}
}

func (e *Engine) onError(m Error) {
	switch {
	case m.undo == nil:
	case m.unconfirmed:
		e.unconfirmed = m.undo
	default:
		e.rollback(m.undo)
	}
	e.s.Status = m.Message
	e.log.Error("action failed", "kind", m.Kind, "err", m.Message)
	e.emit(Event{Type: EventError, Msg: m.Name(), Kind: m.Kind, Text: m.Message})
	switch {
	case m.unconfirmed:
		e.notice("The shot may not have reached the ledger; run sync to check.")
	case m.Kind == failure.OutOfTurn:
		e.notice("The ledger is ahead of this session; run sync to check the turn again.")
	}
}

func (e *Engine) rollback(u *shotUndo) {
	delete(e.s.RemoteShots, u.pos)
	e.s.LastShot = u.lastShot
	e.s.IsFirst = u.isFirst
}

func (e *Engine) save(ctx context.Context, s session.GameSession) error {
	return e.traced(ctx, "session.save", func(ctx context.Context) error {
		return e.store.Save(ctx, s)
	})
}
