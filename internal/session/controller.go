package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/engine"
	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/poller"
)

// Controller owns one player's session. All state changes happen on its loop
// goroutine; remote calls run beside it and report back through the inbox.
type Controller struct {
	id      string
	userID  gateway.UserID
	inbox   chan Msg
	session engine.Session
	version int
	busy    bool
	clients map[string]chan Snapshot

	gw      Gateway
	poller  *poller.Poller
	pollGen uint64
	opts    Options
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, id string, userID gateway.UserID, gw Gateway, opts Options) *Controller {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(parent)

	c := &Controller{
		id:      id,
		userID:  userID,
		inbox:   make(chan Msg, 64),
		session: engine.NewSession(userID, opts.Rules),
		clients: make(map[string]chan Snapshot),
		gw:      gw,
		opts:    opts,
		logger: opts.Logger.Named("session").With(
			zap.String("session_id", id),
			zap.Stringer("user_id", userID)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.poller = poller.New(opts.Clock, opts.PollInterval, c.fetchStatus, c.deliverTick, opts.Logger)

	go c.loop()
	return c
}

func (c *Controller) ID() string { return c.id }

// Inbox exposes the loop's mailbox to the transport layers and tests.
func (c *Controller) Inbox() chan<- Msg { return c.inbox }

func (c *Controller) Done() <-chan struct{} { return c.done }

// Do dispatches cmd and waits until it has been applied.
func (c *Controller) Do(ctx context.Context, cmd engine.Command) (Snapshot, error) {
	reply := make(chan Ack, 1)
	if err := c.send(ctx, Dispatch{Cmd: cmd, Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case ack := <-reply:
		return ack.Snapshot, ack.Err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.done:
		return Snapshot{}, ErrClosed
	}
}

func (c *Controller) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := c.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.done:
		return View{}, ErrClosed
	}
}

// Snapshot returns the current state without changing it.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	v, err := c.State(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ID: c.id, Version: v.Version, Session: v.Session, Busy: v.Busy}, nil
}

func (c *Controller) Subscribe(ctx context.Context, clientID string, outbox chan Snapshot) error {
	return c.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

func (c *Controller) Unsubscribe(clientID string) {
	select {
	case c.inbox <- Leave{ClientID: clientID}:
	case <-c.done:
	}
}

// Close stops the loop and its poll task. It is safe to call more than once.
func (c *Controller) Close() {
	select {
	case c.inbox <- Shutdown{}:
	case <-c.done:
		return
	}
	<-c.done
}

func (c *Controller) send(ctx context.Context, m Msg) error {
	select {
	case c.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				c.clients[msg.ClientID] = msg.Outbox
				select {
				case msg.Outbox <- c.snapshot():
				default:
				}

			case Leave:
				delete(c.clients, msg.ClientID)

			case Dispatch:
				c.dispatch(msg)

			case remoteDone:
				c.busy = false
				if !c.apply(msg.cmd, msg.reply) {
					// clients still show the request pending
					c.publish()
				}

			case pollTick:
				c.onTick(msg.tick)

			case GetState:
				_, gameID, polling := c.poller.Current()
				msg.Reply <- View{
					Version:    c.version,
					NumClients: len(c.clients),
					Session:    c.session,
					Busy:       c.busy,
					Polling:    polling,
					PollGame:   gameID,
				}

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Controller) dispatch(msg Dispatch) {
	cmd := msg.Cmd
	if c.busy {
		respond(msg.Reply, Ack{Snapshot: c.snapshot(), Err: engine.ErrBusy})
		return
	}
	if cmd.Type == engine.CmdPollResult {
		respond(msg.Reply, Ack{Snapshot: c.snapshot(), Err: engine.ErrUnsupportedCommand})
		return
	}
	if !engine.Remote(cmd.Type) {
		c.apply(cmd, msg.Reply)
		return
	}

	next, err := engine.Begin(c.session, cmd)
	if err != nil {
		respond(msg.Reply, Ack{Snapshot: c.snapshot(), Err: err})
		return
	}
	c.session = next
	c.busy = true
	c.publish()

	c.logger.Debug("remote action started", zap.String("action", string(cmd.Type)))
	go c.perform(next, cmd, msg.Reply)
}

// apply runs cmd through the reducer and reports whether the session changed.
func (c *Controller) apply(cmd engine.Command, reply chan Ack) bool {
	effects, next, err := engine.Apply(c.session, cmd)
	if err != nil {
		c.logger.Debug("action refused",
			zap.String("action", string(cmd.Type)),
			zap.String("phase", string(c.session.Phase)),
			zap.Error(err))
		respond(reply, Ack{Snapshot: c.snapshot(), Err: err})
		return false
	}

	c.session = next
	c.runEffects(effects)
	c.publish()
	respond(reply, Ack{Snapshot: c.snapshot()})
	return true
}

func (c *Controller) runEffects(effects []engine.Effect) {
	for _, e := range effects {
		switch e.Type {
		case engine.EffPollStart:
			c.pollGen = c.poller.Start(c.ctx, e.GameID)
		case engine.EffPollStop:
			c.poller.Stop()
			c.pollGen = 0
		case engine.EffRefreshStatus:
			c.poller.Trigger()
		case engine.EffPhaseChanged:
			c.logger.Info("phase changed", zap.String("phase", string(e.Phase)))
		case engine.EffCardReconciled:
			if ce := c.logger.Check(zap.DebugLevel, "card reconciled"); ce != nil {
				ce.Write(zap.Stringer("card", c.session.Board))
			}
		case engine.EffCandidateDisabled:
			c.logger.Debug("candidate disabled", zap.Int("number", e.Number))
		case engine.EffNotice:
			if e.Notice.Kind == engine.NoticeError {
				c.logger.Warn("notice", zap.String("text", e.Notice.Text))
			}
		}
	}
}

func (c *Controller) onTick(t poller.Tick) {
	if t.Gen != c.pollGen || t.GameID != c.session.GameID {
		c.logger.Debug("dropping stale poll",
			zap.Uint64("gen", t.Gen),
			zap.String("game_id", t.GameID))
		return
	}
	status := t.Status
	cmd := engine.Command{
		Type: engine.CmdPollResult,
		Result: engine.Result{
			GameID: t.GameID,
			Status: &status,
			Err:    t.Err,
		},
	}
	if t.Err != nil {
		cmd.Result.Status = nil
	}
	c.apply(cmd, nil)
}

func (c *Controller) fetchStatus(ctx context.Context, gameID string) (gateway.GameStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	return c.gw.GameStatus(ctx, gameID, c.userID)
}

func (c *Controller) deliverTick(ctx context.Context, t poller.Tick) {
	select {
	case c.inbox <- pollTick{tick: t}:
	case <-ctx.Done():
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{ID: c.id, Version: c.version, Session: c.session, Busy: c.busy}
}

func (c *Controller) publish() {
	c.version++
	c.broadcast(c.snapshot())
}

func (c *Controller) broadcast(snap Snapshot) {
	for id, ch := range c.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(c.clients, id)
		}
	}
}

func (c *Controller) shutdown() {
	c.cancel()
	c.poller.Stop()
	for id, ch := range c.clients {
		close(ch) // Tell client no more snapshots
		delete(c.clients, id)
	}
	c.logger.Debug("session closed")
}

func respond(reply chan Ack, ack Ack) {
	if reply == nil {
		return
	}
	select {
	case reply <- ack:
	default:
	}
}
