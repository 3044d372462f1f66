package types

// Client -> Server
// Every action is { type, ...fields }. Over HTTP the type comes from the
// path: POST /sessions/{id}/actions/{type}.
//
// open: {}
//
// join:
//   bet_amount: 10 | 50 | 100 | 200
//
// claim:
//   number: 1..100
//
// accept: {}
// cancel: {}
// call: {}
// bingo: {}
//
// toggle (local bookkeeping only, overwritten by the next poll):
//   cell: 0..24
//
// continue: {}  // same bet, next game
// back: {}      // return to bet selection
// close: {}

// Server -> Client
// StateSnapshot:
//   version: number
//   snapshot: StateSnapshot
//
// Error:
//   error: string
//   snapshot: StateSnapshot // current state when the action was refused

type ClientMessage struct {
	Type      string `json:"type"`
	BetAmount int64  `json:"bet_amount,omitempty"`
	Number    int    `json:"number,omitempty"`
	Cell      *int   `json:"cell,omitempty"`
}

type ServerMessage struct {
	Type     string         `json:"type"` // "StateSnapshot" | "Error"
	Version  int            `json:"version,omitempty"`
	Snapshot *StateSnapshot `json:"snapshot,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type CreateSessionRequest struct {
	UserID int64 `json:"user_id"`
}

type CreateSessionResponse struct {
	SessionID string        `json:"session_id"`
	Snapshot  StateSnapshot `json:"snapshot"`
}

type ErrorResponse struct {
	Error    string         `json:"error"`
	Snapshot *StateSnapshot `json:"snapshot,omitempty"`
}
