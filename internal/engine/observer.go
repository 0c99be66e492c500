package engine

import (
	"battleship-ledger/internal/failure"
	"battleship-ledger/internal/session"
)

// EventType tags an Event.
type EventType int

const (
	// EventTransition is sent after every handled message.
	EventTransition EventType = iota
	// EventNotice carries a message meant for the player.
	EventNotice
	// EventSunk reports that one of the player's shots sank ship Ship.
	EventSunk
	// EventError reports a failed action.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTransition:
		return "transition"
	case EventNotice:
		return "notice"
	case EventSunk:
		return "sunk"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is broadcast to observers. Session is a private copy taken when the
// event was raised.
type Event struct {
	Type    EventType
	Msg     string
	Text    string
	Ship    int
	Kind    failure.Kind
	Session session.GameSession
}

// Observer receives engine events on the engine goroutine; it must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
