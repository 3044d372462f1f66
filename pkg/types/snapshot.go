package types

import (
	"encoding/json"
	"time"
)

// StateSnapshot:
//   session_id: string
//   version: number
//   phase: "idle" | "bet_selecting" | "number_selecting" | "card_preview" | "playing" | "post_win"
//   user_id: string
//   game_id: string // present while a game is held
//   bet_amount: number
//   bet_options: number[]
//   busy: boolean // a request is in flight; controls are disabled
//   selector: { min, max, disabled: number[], candidate, pending } // number_selecting | card_preview
//   card: { rows: [{ letter, cells: [{ index, value, free, marked }] }], marked: number[] }
//   game: { status, numbers_called, players, winner_id, prize_amount, start_time, end_time, raw }
//   notice: { kind: "info" | "error" | "win" | "kick", text }
//   last_result: { game_id, winner_id, prize_amount, won } // post_win
type StateSnapshot struct {
	SessionID  string      `json:"session_id"`
	Version    int         `json:"version"`
	Phase      string      `json:"phase"`
	UserID     string      `json:"user_id"`
	GameID     string      `json:"game_id,omitempty"`
	BetAmount  int64       `json:"bet_amount,omitempty"`
	BetOptions []int64     `json:"bet_options"`
	Busy       bool        `json:"busy"`
	Selector   *Selector   `json:"selector,omitempty"`
	Card       *Card       `json:"card,omitempty"`
	Game       *GameStatus `json:"game,omitempty"`
	Notice     *Notice     `json:"notice,omitempty"`
	LastResult *LastResult `json:"last_result,omitempty"`
}

type Selector struct {
	Min       int   `json:"min"`
	Max       int   `json:"max"`
	Disabled  []int `json:"disabled"`
	Candidate int   `json:"candidate,omitempty"`
	Pending   bool  `json:"pending"`
}

type Card struct {
	Rows   []CardRow `json:"rows"`
	Marked []int     `json:"marked"`
}

type CardRow struct {
	Letter string     `json:"letter"`
	Cells  []CardCell `json:"cells"`
}

type CardCell struct {
	Index  int  `json:"index"`
	Value  int  `json:"value"`
	Free   bool `json:"free,omitempty"`
	Marked bool `json:"marked"`
}

type GameStatus struct {
	Status        string          `json:"status"`
	CalledNumbers []int           `json:"numbers_called"`
	Players       []string        `json:"players"`
	WinnerID      string          `json:"winner_id,omitempty"`
	PrizeAmount   int64           `json:"prize_amount"`
	StartTime     *time.Time      `json:"start_time,omitempty"`
	EndTime       *time.Time      `json:"end_time,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

type Notice struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type LastResult struct {
	GameID      string `json:"game_id"`
	WinnerID    string `json:"winner_id"`
	PrizeAmount int64  `json:"prize_amount"`
	Won         bool   `json:"won"`
}
