package poller

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
)

const DefaultInterval = 5 * time.Second

type FetchFunc func(ctx context.Context, gameID string) (gateway.GameStatus, error)

// SinkFunc receives each tick. ctx is the task's context; a sink that blocks
// must give up when it is done.
type SinkFunc func(ctx context.Context, t Tick)

// Tick is one poll result. Gen identifies the task that produced it so the
// receiver can drop results from a superseded task.
type Tick struct {
	Gen    uint64
	GameID string
	Status gateway.GameStatus
	Err    error
}

type task struct {
	gen     uint64
	gameID  string
	cancel  context.CancelFunc
	trigger chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (t *task) stop() bool {
	stopped := false
	t.once.Do(func() {
		t.cancel()
		stopped = true
	})
	<-t.done
	return stopped
}

// Poller runs at most one polling task at a time.
type Poller struct {
	clock    clockwork.Clock
	interval time.Duration
	fetch    FetchFunc
	sink     SinkFunc
	logger   *zap.Logger

	mu     sync.Mutex
	gen    uint64
	active *task
}

func New(clock clockwork.Clock, interval time.Duration, fetch FetchFunc, sink SinkFunc, logger *zap.Logger) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		clock:    clock,
		interval: interval,
		fetch:    fetch,
		sink:     sink,
		logger:   logger.Named("poller"),
	}
}

// Start cancels any running task, waits for it to exit, then starts polling
// gameID. It returns the new task's generation.
func (p *Poller) Start(parent context.Context, gameID string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	p.gen++
	ctx, cancel := context.WithCancel(parent)
	t := &task{
		gen:     p.gen,
		gameID:  gameID,
		cancel:  cancel,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.active = t

	go p.run(ctx, t)

	p.logger.Debug("poll task started",
		zap.String("game_id", gameID),
		zap.Uint64("gen", t.gen),
		zap.Duration("interval", p.interval))
	return t.gen
}

// Stop cancels the running task. It reports whether a task was running.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Poller) stopLocked() bool {
	if p.active == nil {
		return false
	}
	t := p.active
	p.active = nil
	stopped := t.stop()
	if stopped {
		p.logger.Debug("poll task cancelled", zap.String("game_id", t.gameID), zap.Uint64("gen", t.gen))
	}
	return stopped
}

// Trigger asks the running task for an immediate fetch.
func (p *Poller) Trigger() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return false
	}
	select {
	case p.active.trigger <- struct{}{}:
	default:
	}
	return true
}

// Current returns the running task's generation and game id.
func (p *Poller) Current() (uint64, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return 0, "", false
	}
	return p.active.gen, p.active.gameID, true
}

func (p *Poller) run(ctx context.Context, t *task) {
	defer close(t.done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.poll(ctx, t)
		case <-t.trigger:
			p.poll(ctx, t)
		}
	}
}

func (p *Poller) poll(ctx context.Context, t *task) {
	if ctx.Err() != nil {
		return
	}
	status, err := p.fetch(ctx, t.gameID)
	if ctx.Err() != nil {
		// cancelled mid-flight
		return
	}
	if err != nil {
		p.logger.Warn("poll failed", zap.String("game_id", t.gameID), zap.Error(err))
	}
	p.sink(ctx, Tick{Gen: t.gen, GameID: t.gameID, Status: status, Err: err})
}
