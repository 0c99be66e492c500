// Package server exposes the ledger contract and the proof oracle over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/game"
	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/oracle"
)

const maxBody = 1 << 20

// Ledger is the contract surface served under /v1/games.
type Ledger interface {
	GetState(ctx context.Context, name string) (ledger.ContractState, error)
	NewGame(ctx context.Context, name, player, receipt string) error
	JoinGame(ctx context.Context, name, player, receipt string, shot game.Position) error
	Turn(ctx context.Context, name, player, receipt string, shot game.Position) error
}

type Server struct {
	ledger  Ledger
	oracle  oracle.Oracle // nil disables /v1/prove
	backend string
	log     *log.Logger
	tracer  trace.Tracer

	// Milliseconds since epoch when this server booted.
	startAt int64
}

// New builds a server. backend names the ledger store for /v1/status.
func New(l Ledger, o oracle.Oracle, backend string, logger *log.Logger) *Server {
	return &Server{
		ledger:  l,
		oracle:  o,
		backend: backend,
		log:     logger.WithPrefix("http"),
		tracer:  otel.Tracer("battleship-ledger/server"),
		startAt: time.Now().UnixMilli(),
	}
}

func (s *Server) Routes(mux *http.ServeMux) {
	// Ledger
	mux.HandleFunc("/v1/games/{name}", s.handleGame)
	mux.HandleFunc("/v1/games/{name}/join", s.handleJoin)
	mux.HandleFunc("/v1/games/{name}/turn", s.handleTurn)

	// Oracle
	mux.HandleFunc("/v1/prove/setup", s.handleProveSetup)
	mux.HandleFunc("/v1/prove/round", s.handleProveRound)

	mux.HandleFunc("/v1/status", s.handleStatus)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ledger.ErrorBody{Error: err.Error(), Code: ledger.ErrorCode(err)})
}

// trace starts a span for one request.
func (s *Server) trace(r *http.Request, route string) (context.Context, trace.Span) {
	return s.tracer.Start(r.Context(), r.Method+" "+route, trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.route", route),
	))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", ledger.ErrBadRequest, err)
	}
	return nil
}

// === Ledger ===

func ledgerStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrGameExists), errors.Is(err, ledger.ErrOutOfTurn):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidReceipt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) ledgerError(w http.ResponseWriter, span trace.Span, op, name string, err error) {
	code := ledgerStatus(err)
	if code == http.StatusInternalServerError {
		s.log.Error(op+" failed", "game", name, "err", err)
	} else {
		s.log.Warn(op+" rejected", "game", name, "status", code, "err", err)
	}
	fail(span, err)
	writeError(w, code, err)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := s.trace(r, "/v1/games/{name}")
	defer span.End()
	span.SetAttributes(attribute.String("game", name))

	switch r.Method {
	case http.MethodGet:
		st, err := s.ledger.GetState(ctx, name)
		if err != nil {
			s.ledgerError(w, span, "get_state", name, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodPost:
		var req ledger.SubmitRequest
		if err := decodeBody(r, &req); err != nil {
			s.ledgerError(w, span, "new_game", name, err)
			return
		}
		if err := s.ledger.NewGame(ctx, name, req.Player, req.Receipt); err != nil {
			s.ledgerError(w, span, "new_game", name, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"game": name})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, "join_game", "/v1/games/{name}/join", s.ledger.JoinGame)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, "turn", "/v1/games/{name}/turn", s.ledger.Turn)
}

type submitFunc func(ctx context.Context, name, player, receipt string, shot game.Position) error

func (s *Server) submit(w http.ResponseWriter, r *http.Request, op, route string, fn submitFunc) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.PathValue("name")
	ctx, span := s.trace(r, route)
	defer span.End()
	span.SetAttributes(attribute.String("game", name))

	var req ledger.SubmitRequest
	if err := decodeBody(r, &req); err != nil {
		s.ledgerError(w, span, op, name, err)
		return
	}
	shot := game.NewPosition(req.X, req.Y)
	if err := fn(ctx, name, req.Player, req.Receipt, shot); err != nil {
		s.ledgerError(w, span, op, name, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": name, "shot": shot})
}

// === Oracle ===

func (s *Server) oracleError(w http.ResponseWriter, span trace.Span, op string, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, oracle.ErrInvalidInput) || errors.Is(err, ledger.ErrBadRequest) {
		code = http.StatusBadRequest
	}
	s.log.Warn(op+" failed", "status", code, "err", err)
	fail(span, err)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) oracleReady(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if s.oracle == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "oracle disabled"})
		return false
	}
	return true
}

func (s *Server) handleProveSetup(w http.ResponseWriter, r *http.Request) {
	if !s.oracleReady(w, r) {
		return
	}
	ctx, span := s.trace(r, "/v1/prove/setup")
	defer span.End()

	var st game.State
	if err := decodeBody(r, &st); err != nil {
		s.oracleError(w, span, "prove setup", err)
		return
	}
	started := time.Now()
	receipt, err := s.oracle.ProveSetup(ctx, st)
	if err != nil {
		s.oracleError(w, span, "prove setup", err)
		return
	}
	s.log.Info("setup proven", "took", time.Since(started).Round(time.Millisecond))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, receipt)
}

func (s *Server) handleProveRound(w http.ResponseWriter, r *http.Request) {
	if !s.oracleReady(w, r) {
		return
	}
	ctx, span := s.trace(r, "/v1/prove/round")
	defer span.End()

	var params game.RoundParams
	if err := decodeBody(r, &params); err != nil {
		s.oracleError(w, span, "prove round", err)
		return
	}
	started := time.Now()
	result, receipt, err := s.oracle.ProveRound(ctx, params)
	if err != nil {
		s.oracleError(w, span, "prove round", err)
		return
	}
	s.log.Info("round proven", "shot", params.Shot, "outcome", result.Hit, "took", time.Since(started).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, codec.TurnResult{State: result, Receipt: receipt})
}

// === Status ===

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"startedAt": s.startAt,
		"ledger":    s.backend,
		"oracle":    s.oracle != nil,
	})
}

// === CORS ===

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// In dev we allow any origin. For production, set this to the specific origin(s).
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
