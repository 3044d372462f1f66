package types

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/bingo-miniapp/internal/cardview"
	"github.com/DoyleJ11/bingo-miniapp/internal/engine"
	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/selector"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
	api "github.com/DoyleJ11/bingo-miniapp/pkg/types"
)

// ToCommand maps a client message onto a reducer command.
func ToCommand(m api.ClientMessage) (engine.Command, error) {
	t, ok := engine.ParseCommand(m.Type)
	if !ok {
		return engine.Command{}, fmt.Errorf("%w: %q", engine.ErrUnsupportedCommand, m.Type)
	}

	cmd := engine.Command{Type: t, BetAmount: m.BetAmount, Number: m.Number}
	if t == engine.CmdToggle {
		if m.Cell == nil {
			return engine.Command{}, fmt.Errorf("%w: toggle needs a cell", cardview.ErrCellOutOfRange)
		}
		cmd.Cell = *m.Cell
	}
	return cmd, nil
}

func NewSnapshot(snap session.Snapshot) api.StateSnapshot {
	s := snap.Session
	out := api.StateSnapshot{
		SessionID:  snap.ID,
		Version:    snap.Version,
		Phase:      string(s.Phase),
		UserID:     s.UserID.String(),
		GameID:     s.GameID,
		BetAmount:  s.Bet,
		BetOptions: s.Rules.BetOptions,
		Busy:       snap.Busy,
	}

	switch s.Phase {
	case engine.PhaseNumberSelecting, engine.PhaseCardPreview:
		out.Selector = &api.Selector{
			Min:       selector.MinNumber,
			Max:       selector.MaxNumber,
			Disabled:  s.Selector.Disabled(),
			Candidate: s.Selector.Candidate,
			Pending:   s.Selector.Pending,
		}
	}
	if !s.Board.Empty() {
		out.Card = newCard(s.Board)
	}
	if s.Status != nil {
		out.Game = newGameStatus(*s.Status)
	}
	if s.Notice.Text != "" {
		out.Notice = &api.Notice{Kind: string(s.Notice.Kind), Text: s.Notice.Text}
	}
	if s.Last != nil {
		out.LastResult = &api.LastResult{
			GameID:      s.Last.GameID,
			WinnerID:    s.Last.WinnerID,
			PrizeAmount: s.Last.Prize,
			Won:         s.Last.Won,
		}
	}
	return out
}

func newCard(b cardview.Board) *api.Card {
	grid := b.Grid()
	card := &api.Card{Rows: make([]api.CardRow, 0, len(grid)), Marked: b.Marked()}
	for _, row := range grid {
		r := api.CardRow{Letter: row.Letter, Cells: make([]api.CardCell, 0, len(row.Cells))}
		for _, c := range row.Cells {
			r.Cells = append(r.Cells, api.CardCell{Index: c.Index, Value: c.Value, Free: c.Free, Marked: c.Marked})
		}
		card.Rows = append(card.Rows, r)
	}
	return card
}

func newGameStatus(st gateway.GameStatus) *api.GameStatus {
	players := make([]string, 0, len(st.Players))
	for _, p := range st.Players {
		players = append(players, string(p))
	}
	called := []int(st.CalledNumbers)
	if called == nil {
		called = []int{}
	}
	return &api.GameStatus{
		Status:        string(st.Status),
		CalledNumbers: called,
		Players:       players,
		WinnerID:      string(st.WinnerID),
		PrizeAmount:   int64(st.PrizeAmount),
		StartTime:     timeOf(st.StartTime),
		EndTime:       timeOf(st.EndTime),
		Raw:           st.Raw,
	}
}

func timeOf(ts *gateway.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
