// Package serve parses serve command flags and runs the ledger and oracle
// HTTP server.
package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"battleship-ledger/internal/app"
	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/ledger/dynamo"
	"battleship-ledger/internal/ledger/sqlite"
	"battleship-ledger/internal/oracle"
	"battleship-ledger/internal/platform/config"
	"battleship-ledger/internal/server"
	"battleship-ledger/internal/zk"
)

// Ledger backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamodb"
)

// Config holds serve command configuration.
type Config struct {
	Addr     string `env:"BATTLESHIP_ADDR" envDefault:":8080"`
	KeysDir  string `env:"BATTLESHIP_KEYS" envDefault:"./keys"`
	Oracle   bool   `env:"BATTLESHIP_ORACLE" envDefault:"true"`
	LogLevel string `env:"BATTLESHIP_LOG_LEVEL" envDefault:"info"`

	Backend        string `env:"BATTLESHIP_LEDGER" envDefault:"memory"`
	SQLitePath     string `env:"BATTLESHIP_LEDGER_DB" envDefault:"data/ledger.db"`
	DynamoTable    string `env:"BATTLESHIP_DYNAMO_TABLE" envDefault:"battleship-games"`
	DynamoRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
	DynamoEndpoint string `env:"BATTLESHIP_DYNAMO_ENDPOINT"`

	ShutdownTimeout time.Duration `env:"BATTLESHIP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.KeysDir, "keys", cfg.KeysDir, "keys directory")
	fs.BoolVar(&cfg.Oracle, "oracle", cfg.Oracle, "serve the proof oracle under /v1/prove")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.Backend, "ledger", cfg.Backend, "ledger backend: memory, sqlite or dynamodb")
	fs.StringVar(&cfg.SQLitePath, "ledger-db", cfg.SQLitePath, "SQLite ledger path")
	fs.StringVar(&cfg.DynamoTable, "dynamo-table", cfg.DynamoTable, "DynamoDB table name")
	fs.StringVar(&cfg.DynamoRegion, "dynamo-region", cfg.DynamoRegion, "DynamoDB region")
	fs.StringVar(&cfg.DynamoEndpoint, "dynamo-endpoint", cfg.DynamoEndpoint, "DynamoDB endpoint override (local testing)")
	if err := config.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case BackendMemory, BackendSQLite, BackendDynamo:
	default:
		return Config{}, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
	return cfg, nil
}

// OpenStore builds the configured ledger store. The returned func releases it.
func OpenStore(cfg Config) (ledger.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case BackendMemory:
		return ledger.NewMemoryStore(), noop, nil
	case BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open ledger db: %w", err)
		}
		return s, s.Close, nil
	case BackendDynamo:
		awsCfg := &aws.Config{Region: aws.String(cfg.DynamoRegion)}
		if cfg.DynamoEndpoint != "" {
			awsCfg.Endpoint = aws.String(cfg.DynamoEndpoint)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("aws session: %w", err)
		}
		return dynamo.New(dynamodb.New(sess), cfg.DynamoTable), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
}

// Run serves until ctx is cancelled, then shuts the server down.
func Run(ctx context.Context, cfg Config, logger *log.Logger) error {
	if err := zk.EnsureKeys(cfg.KeysDir); err != nil {
		return fmt.Errorf("ensure keys: %w", err)
	}
	zv, err := zk.LoadVerifier(cfg.KeysDir)
	if err != nil {
		return err
	}
	var o oracle.Oracle
	if cfg.Oracle {
		p, err := zk.LoadProver(cfg.KeysDir)
		if err != nil {
			return err
		}
		o = app.NewService(p)
	}

	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close ledger store", "err", err)
		}
	}()

	contract := ledger.NewContract(store, app.NewVerifier(zv), logger)
	mux := http.NewServeMux()
	server.New(contract, o, cfg.Backend, logger).Routes(mux)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.WithCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, cfg.ShutdownTimeout, logger)
}

func serve(ctx context.Context, srv *http.Server, timeout time.Duration, logger *log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
