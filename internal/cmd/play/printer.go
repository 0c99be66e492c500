package play

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mitchellh/go-wordwrap"

	"battleship-ledger/internal/engine"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/session"
)

const lineWidth = 60

// printer writes engine events to the terminal and remembers the latest
// session snapshot for the status command.
type printer struct {
	mu         sync.Mutex
	out        io.Writer
	latest     session.GameSession
	lastStatus string
}

func newPrinter(out io.Writer) *printer { return &printer{out: out} }

func (p *printer) Observe(ev engine.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = ev.Session

	switch ev.Type {
	case engine.EventTransition:
		// Polling repeats the same status; print changes only.
		if ev.Session.Status == p.lastStatus {
			return
		}
		p.lastStatus = ev.Session.Status
		p.line("» " + ev.Session.Status)
	case engine.EventNotice:
		p.line("* " + ev.Text)
	case engine.EventSunk:
		p.line(fmt.Sprintf("* %s (%s)", ev.Text, shipName(ev.Ship)))
	case engine.EventError:
		p.lastStatus = ev.Session.Status
		p.line(fmt.Sprintf("! [%s] %s", ev.Kind, ev.Text))
	}
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.out, wordwrap.WrapString(s, lineWidth))
}

func (p *printer) say(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line(s)
}

// write prints s as is; boards must not be wrapped.
func (p *printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}

func (p *printer) snapshot() session.GameSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest.Clone()
}

var shipNames = [game.FleetSize]string{"carrier", "battleship", "cruiser", "submarine", "destroyer"}

func shipName(id int) string {
	if id < 0 || id >= len(shipNames) {
		return fmt.Sprintf("ship %d", id)
	}
	return shipNames[id]
}

// renderBoards draws the player's fleet next to their marks on the opponent.
func renderBoards(s session.GameSession) string {
	own := s.State.Board()
	var b strings.Builder
	b.WriteString("   your fleet              opponent\n")
	b.WriteString("   0 1 2 3 4 5 6 7 8 9     0 1 2 3 4 5 6 7 8 9\n")
	for y := 0; y < game.BoardSize; y++ {
		fmt.Fprintf(&b, "%d  ", y)
		for x := 0; x < game.BoardSize; x++ {
			p := game.NewPosition(x, y)
			c := "."
			if own.At(p) == 1 {
				c = "#"
			}
			if hit, ok := s.LocalShots[p]; ok {
				c = mark(hit)
			}
			b.WriteString(c + " ")
		}
		fmt.Fprintf(&b, "  %d  ", y)
		for x := 0; x < game.BoardSize; x++ {
			c := "."
			if hit, ok := s.RemoteShots[game.NewPosition(x, y)]; ok {
				c = mark(hit)
			}
			b.WriteString(c + " ")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "game %s as %s (%s): %s", s.Name, s.Player, s.Seat, s.Status)
	return b.String()
}

func mark(h game.HitType) string {
	switch {
	case h.IsPending():
		return "?"
	case h.Struck():
		return "X"
	}
	return "o"
}
