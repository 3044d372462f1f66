package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UserID is the chat-app user id the remote service keys players by.
type UserID int64

func (u UserID) String() string { return strconv.FormatInt(int64(u), 10) }

// GameState is the authoritative lifecycle state of a remote game.
type GameState string

const (
	StateWaiting  GameState = "waiting"
	StateActive   GameState = "active"
	StateFinished GameState = "finished"
	StateNotFound GameState = "not_found"
)

// The service stores "started" for a running game.
func (s *GameState) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("game state: %w", err)
	}
	switch raw {
	case "started":
		*s = StateActive
	default:
		*s = GameState(raw)
	}
	return nil
}

// ID accepts a JSON string, number or null.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Amount is a whole currency amount.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	v, ok, err := decodeNumber(b)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if !ok {
		*a = 0
		return nil
	}
	*a = Amount(math.Trunc(v))
	return nil
}

// Numbers is a list of game numbers. Card and called-number lists come back
// either as integers or as numeric strings depending on the endpoint.
type Numbers []int

func (n *Numbers) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("numbers: %w", err)
	}
	out := make(Numbers, 0, len(raw))
	for _, r := range raw {
		v, ok, err := decodeNumber(r)
		if err != nil {
			return fmt.Errorf("numbers: %w", err)
		}
		if !ok {
			continue
		}
		out = append(out, int(v))
	}
	*n = out
	return nil
}

var errNotNumeric = errors.New("value is not numeric")

// decodeNumber reports ok=false for null and empty strings.
func decodeNumber(b []byte) (float64, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false, err
	}
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false, err
		}
		return f, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%q: %w", x, errNotNumeric)
		}
		return f, true, nil
	default:
		return 0, false, errNotNumeric
	}
}

// Timestamp parses both RFC 3339 and the zone-less ISO form the service emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

type JoinRequest struct {
	UserID    UserID `json:"user_id"`
	GameID    string `json:"game_id,omitempty"`
	BetAmount Amount `json:"bet_amount"`
}

type JoinResponse struct {
	Status    string `json:"status"`
	GameID    ID     `json:"game_id"`
	BetAmount Amount `json:"bet_amount"`
	Players   int    `json:"players,omitempty"`
}

type AvailableGame struct {
	GameID    ID     `json:"game_id"`
	BetAmount Amount `json:"bet_amount"`
	Players   int    `json:"players"`
}

type SelectRequest struct {
	UserID         UserID `json:"user_id"`
	GameID         string `json:"game_id"`
	SelectedNumber int    `json:"selected_number"`
}

// GameRequest is the body shared by accept_card, call_number and check_bingo.
type GameRequest struct {
	UserID UserID `json:"user_id"`
	GameID string `json:"game_id"`
}

type CardResponse struct {
	Status         string  `json:"status"`
	CardNumbers    Numbers `json:"card_numbers"`
	SelectedNumber int     `json:"selected_number,omitempty"`
}

// GameStatus is one authoritative poll result. Raw keeps the full body so
// fields the session does not interpret can still reach the display layer.
type GameStatus struct {
	Status          GameState       `json:"status"`
	StartTime       *Timestamp      `json:"start_time,omitempty"`
	EndTime         *Timestamp      `json:"end_time,omitempty"`
	PrizeAmount     Amount          `json:"prize_amount"`
	CalledNumbers   Numbers         `json:"numbers_called"`
	WinnerID        ID              `json:"winner_id"`
	Players         []ID            `json:"players"`
	CardNumbers     Numbers         `json:"card_numbers,omitempty"`
	SelectedNumbers Numbers         `json:"selected_numbers,omitempty"`
	BetAmount       Amount          `json:"bet_amount"`
	Raw             json.RawMessage `json:"-"`
}

// Finished reports a completed game with a declared winner.
func (s GameStatus) Finished() bool {
	return s.Status == StateFinished && s.WinnerID != ""
}

type CallResult struct {
	Number        int     `json:"number"`
	Remaining     int     `json:"remaining"`
	CalledNumbers Numbers `json:"called_numbers"`
}

// Verdict is the service's answer to a bingo claim.
type Verdict struct {
	Message string `json:"message"`
	Won     bool   `json:"won"`
	Kicked  bool   `json:"kicked"`
	Prize   Amount `json:"prize,omitempty"`
}
