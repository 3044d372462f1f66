package session

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/engine"
	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/poller"
)

var ErrClosed = errors.New("session closed")

const DefaultRequestTimeout = 10 * time.Second

// Gateway is the part of the game service a session talks to.
type Gateway interface {
	AvailableGames(ctx context.Context) ([]gateway.AvailableGame, error)
	JoinGame(ctx context.Context, req gateway.JoinRequest) (gateway.JoinResponse, error)
	CreateGame(ctx context.Context, req gateway.JoinRequest) (gateway.JoinResponse, error)
	SelectNumber(ctx context.Context, req gateway.SelectRequest) (gateway.CardResponse, error)
	AcceptCard(ctx context.Context, req gateway.GameRequest) (gateway.CardResponse, error)
	GameStatus(ctx context.Context, gameID string, userID gateway.UserID) (gateway.GameStatus, error)
	CallNumber(ctx context.Context, req gateway.GameRequest) (gateway.CallResult, error)
	CheckBingo(ctx context.Context, req gateway.GameRequest) (gateway.Verdict, error)
}

type Msg interface{ isSessionMsg() }

// Dispatch carries one player action. Reply receives the outcome once the
// action has been applied, or immediately if it was refused.
type Dispatch struct {
	Cmd   engine.Command
	Reply chan Ack
}

func (Dispatch) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

// remoteDone returns a finished gateway call to the loop.
type remoteDone struct {
	cmd   engine.Command
	reply chan Ack
}

func (remoteDone) isSessionMsg() {}

type pollTick struct{ tick poller.Tick }

func (pollTick) isSessionMsg() {}

type Snapshot struct {
	ID      string
	Version int
	Session engine.Session
	Busy    bool
}

type Ack struct {
	Snapshot Snapshot
	Err      error
}

type View struct {
	Version    int
	NumClients int
	Session    engine.Session
	Busy       bool
	Polling    bool
	PollGame   string
}

type Options struct {
	Clock          clockwork.Clock
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Rules          engine.Rules
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = poller.DefaultInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
