// Package play parses play command flags and drives one player's turn
// engine from the terminal.
package play

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"battleship-ledger/internal/app"
	"battleship-ledger/internal/engine"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/oracle"
	"battleship-ledger/internal/platform/config"
	"battleship-ledger/internal/session"
	"battleship-ledger/internal/session/sqlite"
)

// Config holds play command configuration.
type Config struct {
	Game      string `env:"BATTLESHIP_GAME"`
	Player    string `env:"BATTLESHIP_PLAYER"`
	Create    bool
	Join      bool
	LedgerURL string `env:"BATTLESHIP_LEDGER_URL" envDefault:"http://localhost:8080"`
	OracleURL string `env:"BATTLESHIP_ORACLE_URL" envDefault:"http://localhost:8080"`
	SessionDB string `env:"BATTLESHIP_SESSION_DB" envDefault:"data/sessions.db"`
	BoardFile string `env:"BATTLESHIP_BOARD"`
	LogLevel  string `env:"BATTLESHIP_LOG_LEVEL" envDefault:"warn"`

	PollInterval   time.Duration `env:"BATTLESHIP_POLL_INTERVAL" envDefault:"5s"`
	RequestTimeout time.Duration `env:"BATTLESHIP_REQUEST_TIMEOUT" envDefault:"2m"`
}

// Seat is the seat requested on the command line.
func (c Config) Seat() ledger.Seat {
	if c.Join {
		return ledger.SeatP2
	}
	return ledger.SeatP1
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Game, "game", cfg.Game, "game name")
	fs.StringVar(&cfg.Player, "player", cfg.Player, "player identity (random when empty)")
	fs.BoolVar(&cfg.Create, "create", false, "create the game and take the first seat")
	fs.BoolVar(&cfg.Join, "join", false, "join an existing game")
	fs.StringVar(&cfg.LedgerURL, "ledger", cfg.LedgerURL, "ledger base URL")
	fs.StringVar(&cfg.OracleURL, "oracle", cfg.OracleURL, "proof oracle base URL")
	fs.StringVar(&cfg.SessionDB, "session-db", cfg.SessionDB, "SQLite session store path")
	fs.StringVar(&cfg.BoardFile, "board", cfg.BoardFile, "fleet JSON written by the board command (random when empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "ledger polling interval")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout for ledger and oracle calls")
	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	cfg.Game = strings.TrimSpace(cfg.Game)
	if cfg.Game == "" {
		return Config{}, errors.New("--game is required")
	}
	if cfg.Create == cfg.Join {
		return Config{}, errors.New("exactly one of --create or --join is required")
	}
	if strings.TrimSpace(cfg.Player) == "" {
		cfg.Player = uuid.NewString()
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	return cfg, nil
}

// Run opens the session store and plays until quit, end of input or ctx
// cancellation.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, logger *log.Logger) error {
	store, err := sqlite.Open(cfg.SessionDB)
	if err != nil {
		return fmt.Errorf("open session db: %w", err)
	}
	defer store.Close()

	l := ledger.NewClient(cfg.LedgerURL, cfg.RequestTimeout, logger)
	o := oracle.NewClient(cfg.OracleURL, cfg.RequestTimeout, logger)
	return play(ctx, cfg, l, o, store, in, out, logger)
}

// newState returns the fleet for a new session: the board file when one is
// configured, otherwise a random placement.
func (c Config) newState() (game.State, error) {
	if c.BoardFile == "" {
		return app.InitState(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}
	return LoadBoard(c.BoardFile)
}

// LoadBoard reads and validates a fleet JSON file.
func LoadBoard(path string) (game.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return game.State{}, err
	}
	var st game.State
	if err := json.Unmarshal(data, &st); err != nil {
		return game.State{}, fmt.Errorf("board %s: %w", path, err)
	}
	if err := st.Validate(); err != nil {
		return game.State{}, fmt.Errorf("board %s: %w", path, err)
	}
	return st, nil
}

func play(ctx context.Context, cfg Config, l engine.Ledger, o oracle.Oracle, store session.Store, in io.Reader, out io.Writer, logger *log.Logger) error {
	p := newPrinter(out)
	eng, err := engine.New(engine.Config{
		Name:         cfg.Game,
		Player:       cfg.Player,
		Seat:         cfg.Seat(),
		PollInterval: cfg.PollInterval,
		NewState:     cfg.newState,
	}, l, o, store, logger, p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	p.say(fmt.Sprintf("playing %s as %s; type help for commands", cfg.Game, cfg.Player))
	for {
		select {
		case err := <-done:
			return err
		case line, ok := <-lines:
			if ok && !exec(eng, p, line) {
				continue
			}
			cancel()
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}

// exec runs one input line and reports whether play should stop.
func exec(eng *engine.Engine, p *printer, line string) bool {
	cmd, err := ParseCommand(line)
	if err != nil {
		p.say("! " + err.Error())
		return false
	}
	switch cmd.Verb {
	case VerbFire:
		eng.Send(engine.Shot{Pos: cmd.Pos})
	case VerbSync:
		eng.Send(engine.CheckTurn{})
	case VerbStatus:
		p.write(renderBoards(p.snapshot()))
	case VerbHelp:
		p.write(help)
	case VerbQuit:
		return true
	}
	return false
}
