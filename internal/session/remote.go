package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/engine"
	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
)

var errNoGameCreated = errors.New("service did not return a game id")

// perform runs the gateway call for cmd off the loop and posts the result
// back. s is the session as it was when the action was accepted.
func (c *Controller) perform(s engine.Session, cmd engine.Command, reply chan Ack) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	defer cancel()

	cmd.Result = c.call(ctx, s, cmd)
	if err := cmd.Result.Err; err != nil {
		c.logger.Warn("remote action failed",
			zap.String("action", string(cmd.Type)),
			zap.String("game_id", s.GameID),
			zap.Error(err))
	}

	select {
	case c.inbox <- remoteDone{cmd: cmd, reply: reply}:
	case <-c.ctx.Done():
	}
}

func (c *Controller) call(ctx context.Context, s engine.Session, cmd engine.Command) engine.Result {
	req := gateway.GameRequest{UserID: s.UserID, GameID: s.GameID}

	switch cmd.Type {
	case engine.CmdJoin:
		return c.joinOrCreate(ctx, s.UserID, cmd.BetAmount)

	case engine.CmdContinue:
		return c.joinOrCreate(ctx, s.UserID, s.Bet)

	case engine.CmdClaim:
		resp, err := c.gw.SelectNumber(ctx, gateway.SelectRequest{
			UserID:         s.UserID,
			GameID:         s.GameID,
			SelectedNumber: cmd.Number,
		})
		return engine.Result{Err: err, Card: resp.CardNumbers}

	case engine.CmdAccept:
		resp, err := c.gw.AcceptCard(ctx, req)
		return engine.Result{Err: err, Card: resp.CardNumbers}

	case engine.CmdCall:
		res, err := c.gw.CallNumber(ctx, req)
		if err != nil {
			return engine.Result{Err: err}
		}
		return engine.Result{Call: &res}

	case engine.CmdBingo:
		v, err := c.gw.CheckBingo(ctx, req)
		if err != nil {
			return engine.Result{Err: err}
		}
		return engine.Result{Verdict: &v}
	}
	return engine.Result{Err: fmt.Errorf("%w: %s", engine.ErrUnsupportedCommand, cmd.Type)}
}

// joinOrCreate joins a waiting game with a matching bet, creating one first
// when none is open.
func (c *Controller) joinOrCreate(ctx context.Context, userID gateway.UserID, bet int64) engine.Result {
	games, err := c.gw.AvailableGames(ctx)
	if err != nil {
		return engine.Result{Err: err}
	}

	gameID := ""
	for _, g := range games {
		if g.GameID != "" && int64(g.BetAmount) == bet {
			gameID = string(g.GameID)
			break
		}
	}

	if gameID == "" {
		created, err := c.gw.CreateGame(ctx, gateway.JoinRequest{UserID: userID, BetAmount: gateway.Amount(bet)})
		if err != nil {
			return engine.Result{Err: err}
		}
		if created.GameID == "" {
			return engine.Result{Err: errNoGameCreated}
		}
		gameID = string(created.GameID)
		c.logger.Info("game created", zap.String("game_id", gameID), zap.Int64("bet", bet))
	}

	joined, err := c.gw.JoinGame(ctx, gateway.JoinRequest{
		UserID:    userID,
		GameID:    gameID,
		BetAmount: gateway.Amount(bet),
	})
	if err != nil {
		return engine.Result{Err: err}
	}
	if joined.GameID != "" {
		gameID = string(joined.GameID)
	}
	amount := int64(joined.BetAmount)
	if amount == 0 {
		amount = bet
	}
	c.logger.Info("joined game", zap.String("game_id", gameID), zap.Int64("bet", amount))
	return engine.Result{GameID: gameID, Bet: amount}
}
