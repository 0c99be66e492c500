package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"battleship-ledger/internal/game"
)

// SubmitRequest is the body of every state-changing ledger call.
type SubmitRequest struct {
	Player  string `json:"player"`
	Receipt string `json:"receipt"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// Client reaches a ledger served over HTTP.
type Client struct {
	client  http.Client
	baseURL string
	log     *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.Client{Timeout: timeout},
		log:     logger.WithPrefix("ledger"),
	}
}

func (c *Client) GetState(ctx context.Context, name string) (ContractState, error) {
	var state ContractState
	body, err := c.do(ctx, http.MethodGet, name, "", nil)
	if err != nil {
		return state, fmt.Errorf("get_state: %w", err)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		return state, fmt.Errorf("get_state: %w: %v", ErrUnavailable, err)
	}
	return state, nil
}

func (c *Client) NewGame(ctx context.Context, name, player, receipt string) error {
	_, err := c.do(ctx, http.MethodPost, name, "", &SubmitRequest{Player: player, Receipt: receipt})
	if err != nil {
		return fmt.Errorf("new_game: %w", err)
	}
	return nil
}

func (c *Client) JoinGame(ctx context.Context, name, player, receipt string, shot game.Position) error {
	_, err := c.do(ctx, http.MethodPost, name, "join", &SubmitRequest{Player: player, Receipt: receipt, X: shot.X, Y: shot.Y})
	if err != nil {
		return fmt.Errorf("join_game: %w", err)
	}
	return nil
}

func (c *Client) Turn(ctx context.Context, name, player, receipt string, shot game.Position) error {
	_, err := c.do(ctx, http.MethodPost, name, "turn", &SubmitRequest{Player: player, Receipt: receipt, X: shot.X, Y: shot.Y})
	if err != nil {
		return fmt.Errorf("turn: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, name, action string, payload *SubmitRequest) ([]byte, error) {
	elems := []string{"/v1/games", name}
	if action != "" {
		elems = append(elems, action)
	}
	path, err := url.JoinPath(c.baseURL, elems...)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payloadJSON)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.log.Debug("response", "method", method, "game", name, "action", action, "statusCode", res.StatusCode)
	if err := statusError(res.StatusCode, resBody); err != nil {
		return nil, err
	}
	return resBody, nil
}

// ErrorBody is the JSON error shape the ledger server writes.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorCode names the ledger sentinel in err's chain, for transport.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

var errorCodes = []struct {
	code string
	err  error
}{
	{"game_exists", ErrGameExists},
	{"not_found", ErrNotFound},
	{"out_of_turn", ErrOutOfTurn},
	{"invalid_receipt", ErrInvalidReceipt},
	{"bad_request", ErrBadRequest},
}

// statusError maps a ledger HTTP response back onto the ledger sentinels.
func statusError(code int, body []byte) error {
	if code == http.StatusOK || code == http.StatusCreated {
		return nil
	}
	var e ErrorBody
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	for _, c := range errorCodes {
		if e.Code == c.code {
			return fmt.Errorf("%w: %s", c.err, msg)
		}
	}
	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrOutOfTurn, msg)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidReceipt, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, msg)
	}
	return fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, msg)
}
