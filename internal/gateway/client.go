package gateway

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

	"go.uber.org/zap"
)

const (
	pathAvailableGames = "/available_games"
	pathJoinGame       = "/join_game"
	pathCreateGame     = "/create_game"
	pathSelectNumber   = "/select_number"
	pathAcceptCard     = "/accept_card"
	pathGameStatus     = "/game_status"
	pathCallNumber     = "/call_number"
	pathCheckBingo     = "/check_bingo"
)

// Statuses the service uses to refuse a request.
var rejectionStatuses = map[string]bool{
	"failed":       true,
	"invalid":      true,
	"complete":     true,
	"unauthorized": true,
}

type envelope struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the remote game service.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept": "application/json",
		},
		logger: logger.Named("gateway"),
	}
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, in any) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return 0, nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("remote call failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return 0, nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("remote call",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return resp.StatusCode, respBody, nil
}

// decode classifies a response. accept lets an endpoint claim bodies that
// would otherwise count as failures (a kick verdict arrives as a 403).
func decode(endpoint string, code int, body []byte, out any, accept func(envelope) bool) error {
	var env envelope
	_ = json.Unmarshal(body, &env)

	if accept == nil || !accept(env) {
		if rejectionStatuses[env.Status] {
			reason := env.Reason
			if reason == "" {
				reason = env.Status
			}
			return &RejectionError{Endpoint: endpoint, StatusCode: code, Status: env.Status, Reason: reason}
		}
		if code < 200 || code >= 300 {
			return &TransportError{Endpoint: endpoint, StatusCode: code, Body: string(body)}
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &TransportError{Endpoint: endpoint, StatusCode: code, Body: string(body), Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, in, out any, accept func(envelope) bool) error {
	code, body, err := c.makeRequest(ctx, method, endpoint, in)
	if err != nil {
		return err
	}
	return decode(endpoint, code, body, out, accept)
}

func (c *Client) AvailableGames(ctx context.Context) ([]AvailableGame, error) {
	var resp struct {
		Games []AvailableGame `json:"games"`
	}
	if err := c.call(ctx, http.MethodGet, pathAvailableGames, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) JoinGame(ctx context.Context, req JoinRequest) (JoinResponse, error) {
	var resp JoinResponse
	err := c.call(ctx, http.MethodPost, pathJoinGame, req, &resp, nil)
	return resp, err
}

func (c *Client) CreateGame(ctx context.Context, req JoinRequest) (JoinResponse, error) {
	req.GameID = ""
	var resp JoinResponse
	err := c.call(ctx, http.MethodPost, pathCreateGame, req, &resp, nil)
	return resp, err
}

func (c *Client) SelectNumber(ctx context.Context, req SelectRequest) (CardResponse, error) {
	var resp CardResponse
	err := c.call(ctx, http.MethodPost, pathSelectNumber, req, &resp, nil)
	return resp, err
}

func (c *Client) AcceptCard(ctx context.Context, req GameRequest) (CardResponse, error) {
	var resp CardResponse
	err := c.call(ctx, http.MethodPost, pathAcceptCard, req, &resp, nil)
	return resp, err
}

// GameStatus fetches the authoritative status. An unknown game is reported
// through Status rather than as an error.
func (c *Client) GameStatus(ctx context.Context, gameID string, userID UserID) (GameStatus, error) {
	q := url.Values{}
	q.Set("game_id", gameID)
	q.Set("user_id", userID.String())
	endpoint := pathGameStatus + "?" + q.Encode()

	code, body, err := c.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GameStatus{}, err
	}
	var status GameStatus
	notFound := func(e envelope) bool { return e.Status == string(StateNotFound) }
	if err := decode(pathGameStatus, code, body, &status, notFound); err != nil {
		return GameStatus{}, err
	}
	status.Raw = json.RawMessage(body)
	return status, nil
}

func (c *Client) CallNumber(ctx context.Context, req GameRequest) (CallResult, error) {
	var resp CallResult
	err := c.call(ctx, http.MethodPost, pathCallNumber, req, &resp, nil)
	return resp, err
}

// CheckBingo returns the verdict for a bingo claim. Losing and kicked claims
// come back with 4xx statuses but still carry a message.
func (c *Client) CheckBingo(ctx context.Context, req GameRequest) (Verdict, error) {
	var resp Verdict
	hasMessage := func(e envelope) bool { return e.Message != "" }
	err := c.call(ctx, http.MethodPost, pathCheckBingo, req, &resp, hasMessage)
	return resp, err
}
