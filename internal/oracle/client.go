package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"battleship-ledger/internal/codec"
	"battleship-ledger/internal/game"
)

// Client talks to an oracle served over HTTP.
type Client struct {
	client  http.Client
	baseURL string
	log     *log.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.Client{Timeout: timeout},
		log:     logger.WithPrefix("oracle"),
	}
}

func (c *Client) ProveSetup(ctx context.Context, state game.State) (string, error) {
	body, err := c.post(ctx, "/v1/prove/setup", state)
	if err != nil {
		return "", fmt.Errorf("POST /v1/prove/setup: %w", err)
	}
	receipt := strings.TrimSpace(string(body))
	if receipt == "" {
		return "", fmt.Errorf("POST /v1/prove/setup: %w: empty receipt", ErrServerFault)
	}
	return receipt, nil
}

func (c *Client) ProveRound(ctx context.Context, params game.RoundParams) (game.RoundResult, string, error) {
	body, err := c.post(ctx, "/v1/prove/round", params)
	if err != nil {
		return game.RoundResult{}, "", fmt.Errorf("POST /v1/prove/round: %w", err)
	}
	var res codec.TurnResult
	if err := json.Unmarshal(body, &res); err != nil {
		return game.RoundResult{}, "", fmt.Errorf("round result: %w: %v", ErrServerFault, err)
	}
	return res.State, res.Receipt, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payloadJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("request", "path", path)
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.log.Debug("response", "path", path, "statusCode", res.StatusCode)

	switch {
	case res.StatusCode == http.StatusOK:
		return body, nil
	case res.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", ErrServerFault, errorText(body))
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, errorText(body))
	}
}

// errorText extracts {"error": "..."} bodies, falling back to the raw text.
func errorText(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
