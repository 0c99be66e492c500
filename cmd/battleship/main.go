package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"battleship-ledger/internal/app"
	"battleship-ledger/internal/cmd/play"
	"battleship-ledger/internal/cmd/serve"
	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/platform/config"
	"battleship-ledger/internal/zk"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "keys":
		err = cmdKeys(args)
	case "serve":
		err = cmdServe(ctx, args)
	case "play":
		err = cmdPlay(ctx, args)
	case "board":
		err = cmdBoard(args)
	case "verify":
		err = cmdVerify(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		config.Exitf("battleship %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Println(`Battleship ledger CLI

Commands:
  keys   --keys ./keys
  serve  --addr :8080 --keys ./keys --ledger memory|sqlite|dynamodb
  play   --game NAME --create|--join [--player ID] [--board board.json]
  board  [--out board.json]
  verify --keys ./keys --receipt receipt.txt`)
}

func cmdKeys(args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	keysDir := fs.String("keys", "./keys", "keys directory")
	if err := config.ParseArgs(fs, args); err != nil {
		return err
	}
	log.Info("compiling circuits", "dir", *keysDir)
	if err := zk.EnsureKeys(*keysDir); err != nil {
		return err
	}
	fmt.Println("✓ keys ready in", *keysDir)
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	cfg, err := serve.ParseConfig(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	logger, err := config.Logger(cfg.LogLevel)
	if err != nil {
		return err
	}
	return serve.Run(ctx, cfg, logger)
}

func cmdPlay(ctx context.Context, args []string) error {
	cfg, err := play.ParseConfig(flag.NewFlagSet("play", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	logger, err := config.Logger(cfg.LogLevel)
	if err != nil {
		return err
	}
	return play.Run(ctx, cfg, os.Stdin, os.Stdout, logger)
}

func cmdBoard(args []string) error {
	fs := flag.NewFlagSet("board", flag.ExitOnError)
	out := fs.String("out", "", "output file (stdout when empty)")
	if err := config.ParseArgs(fs, args); err != nil {
		return err
	}
	st, err := app.InitState(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if *out == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o600); err != nil {
		return err
	}
	fmt.Println("✓ wrote", *out)
	return nil
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	keysDir := fs.String("keys", "./keys", "keys directory")
	receiptPath := fs.String("receipt", "receipt.txt", "receipt file")
	if err := config.ParseArgs(fs, args); err != nil {
		return err
	}
	raw, err := os.ReadFile(*receiptPath)
	if err != nil {
		return err
	}
	receipt := strings.TrimSpace(string(raw))
	r, err := codec.Decode(receipt)
	if err != nil {
		return err
	}
	zv, err := zk.LoadVerifier(*keysDir)
	if err != nil {
		return err
	}
	v := app.NewVerifier(zv)

	if r.Journal.Shot == nil {
		j, err := v.VerifySetup(receipt)
		if err != nil {
			return err
		}
		fmt.Println("✓ valid setup receipt, commitment", j.Commitment)
		return nil
	}
	j, err := v.VerifyRound(receipt)
	if err != nil {
		return err
	}
	shot, outcome, _ := j.Round()
	fmt.Printf("✓ valid round receipt, commitment %s, shot %s: %s\n", j.Commitment, shot, outcome)
	return nil
}
