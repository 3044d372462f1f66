package hub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
)

// Factory builds the controller for a new session.
type Factory func(ctx context.Context, id string, userID gateway.UserID) *session.Controller

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	UserID gateway.UserID
	Reply  chan *session.Controller
}

type GetSession struct {
	ID    string
	Reply chan *session.Controller
}

type RemoveSession struct {
	ID    string
	Reply chan bool // optional
}

type CountSessions struct {
	Reply chan int
}

type ShutdownHub struct {
	Done chan struct{} // optional; closed once every session has stopped
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (CountSessions) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Controller
	factory  Factory
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, factory Factory, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Controller),
		factory:  factory,
		logger:   logger.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Create(ctx context.Context, userID gateway.UserID) (*session.Controller, error) {
	reply := make(chan *session.Controller, 1)
	if err := h.send(ctx, CreateSession{UserID: userID, Reply: reply}); err != nil {
		return nil, err
	}
	return h.await(ctx, reply)
}

// Get returns the session with id, or nil.
func (h *Hub) Get(ctx context.Context, id string) (*session.Controller, error) {
	reply := make(chan *session.Controller, 1)
	if err := h.send(ctx, GetSession{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	return h.await(ctx, reply)
}

// Remove stops the session and reports whether it existed.
func (h *Hub) Remove(ctx context.Context, id string) (bool, error) {
	reply := make(chan bool, 1)
	if err := h.send(ctx, RemoveSession{ID: id, Reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Shutdown stops every session and then the hub itself.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	if err := h.send(ctx, ShutdownHub{Done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	if h.ctx.Err() != nil {
		return session.ErrClosed
	}
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return session.ErrClosed
	}
}

func (h *Hub) await(ctx context.Context, reply chan *session.Controller) (*session.Controller, error) {
	select {
	case c := <-reply:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, session.ErrClosed
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				id := uuid.NewString()
				for h.sessions[id] != nil {
					id = uuid.NewString()
				}
				c := h.factory(h.ctx, id, msg.UserID)
				h.sessions[id] = c
				h.logger.Info("session created",
					zap.String("session_id", id),
					zap.Stringer("user_id", msg.UserID),
					zap.Int("sessions", len(h.sessions)))
				msg.Reply <- c

			case GetSession:
				msg.Reply <- h.sessions[msg.ID] // May be nil

			case RemoveSession:
				c, ok := h.sessions[msg.ID]
				if ok {
					delete(h.sessions, msg.ID)
					c.Close()
					h.logger.Info("session removed", zap.String("session_id", msg.ID))
				}
				if msg.Reply != nil {
					msg.Reply <- ok
				}

			case CountSessions:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				h.closeAll()
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

func (h *Hub) closeAll() {
	for id, c := range h.sessions {
		c.Close()
		delete(h.sessions, id)
	}
}
