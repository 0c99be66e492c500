package play

import (
	"fmt"
	"strconv"
	"strings"

	"battleship-ledger/internal/game"
)

// Verb names a terminal command.
type Verb string

const (
	VerbFire   Verb = "fire"
	VerbStatus Verb = "status"
	VerbSync   Verb = "sync"
	VerbHelp   Verb = "help"
	VerbQuit   Verb = "quit"
)

// Command is one parsed input line. Pos is set for fire only.
type Command struct {
	Verb Verb
	Pos  game.Position
}

const help = `commands:
  fire X Y   shoot at column X, row Y (0-9)
  status     print both boards
  sync       check the ledger for the current turn
  quit       leave; the session is kept for the next run`

// ParseCommand reads one line of input. Empty lines yield a zero Command.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, nil
	}
	verb, args := Verb(fields[0]), fields[1:]
	switch verb {
	case VerbFire, "f", "shoot":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: fire X Y")
		}
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("bad column %q", args[0])
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return Command{}, fmt.Errorf("bad row %q", args[1])
		}
		return Command{Verb: VerbFire, Pos: game.NewPosition(x, y)}, nil
	case VerbStatus, VerbSync, VerbHelp, VerbQuit:
	case "exit", "q":
		verb = VerbQuit
	case "?":
		verb = VerbHelp
	default:
		return Command{}, fmt.Errorf("unknown command %q; try help", fields[0])
	}
	if len(args) != 0 {
		return Command{}, fmt.Errorf("%s takes no arguments", verb)
	}
	return Command{Verb: verb}, nil
}
