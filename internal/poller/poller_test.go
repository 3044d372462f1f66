package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) fetch(_ context.Context, gameID string) (gateway.GameStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, gameID)
	if r.err != nil {
		return gateway.GameStatus{}, r.err
	}
	return gateway.GameStatus{Status: gateway.StateActive, CalledNumbers: gateway.Numbers{7}}, nil
}

func (r *recorder) fetched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestPoller(t *testing.T, rec *recorder) (*Poller, *clockwork.FakeClock, chan Tick) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	ticks := make(chan Tick, 8)
	sink := func(ctx context.Context, tk Tick) {
		select {
		case ticks <- tk:
		case <-ctx.Done():
		}
	}
	p := New(clock, time.Second, rec.fetch, sink, zap.NewNop())
	t.Cleanup(func() { p.Stop() })
	return p, clock, ticks
}

func recvTick(t *testing.T, ch <-chan Tick) Tick {
	t.Helper()
	select {
	case tk := <-ch:
		return tk
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tick")
		return Tick{}
	}
}

func noTick(t *testing.T, ch <-chan Tick) {
	t.Helper()
	select {
	case tk := <-ch:
		t.Fatalf("unexpected tick: %+v", tk)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitTicker(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestStart_FirstFetchAfterInterval(t *testing.T) {
	rec := &recorder{}
	p, clock, ticks := newTestPoller(t, rec)

	gen := p.Start(context.Background(), "G1")
	waitTicker(t, clock)
	noTick(t, ticks)

	clock.Advance(time.Second)
	tk := recvTick(t, ticks)
	assert.Equal(t, gen, tk.Gen)
	assert.Equal(t, "G1", tk.GameID)
	assert.NoError(t, tk.Err)
	assert.Equal(t, gateway.Numbers{7}, tk.Status.CalledNumbers)

	clock.Advance(time.Second)
	recvTick(t, ticks)
	assert.Equal(t, []string{"G1", "G1"}, rec.fetched())
}

func TestStart_ReplacesPreviousTask(t *testing.T) {
	rec := &recorder{}
	p, clock, ticks := newTestPoller(t, rec)

	genA := p.Start(context.Background(), "A")
	waitTicker(t, clock)
	clock.Advance(time.Second)
	assert.Equal(t, "A", recvTick(t, ticks).GameID)

	genB := p.Start(context.Background(), "B")
	assert.Greater(t, genB, genA)
	waitTicker(t, clock)

	clock.Advance(time.Second)
	tk := recvTick(t, ticks)
	assert.Equal(t, "B", tk.GameID)
	assert.Equal(t, genB, tk.Gen)
	noTick(t, ticks)

	assert.Equal(t, []string{"A", "B"}, rec.fetched())

	gen, gameID, ok := p.Current()
	assert.True(t, ok)
	assert.Equal(t, genB, gen)
	assert.Equal(t, "B", gameID)
}

func TestStop(t *testing.T) {
	rec := &recorder{}
	p, clock, ticks := newTestPoller(t, rec)

	assert.False(t, p.Stop())

	p.Start(context.Background(), "G1")
	waitTicker(t, clock)
	assert.True(t, p.Stop())
	assert.False(t, p.Stop())

	clock.Advance(5 * time.Second)
	noTick(t, ticks)
	assert.Empty(t, rec.fetched())

	_, _, ok := p.Current()
	assert.False(t, ok)
}

func TestTrigger_FetchesImmediately(t *testing.T) {
	rec := &recorder{}
	p, _, ticks := newTestPoller(t, rec)

	assert.False(t, p.Trigger())

	p.Start(context.Background(), "G1")
	assert.True(t, p.Trigger())

	tk := recvTick(t, ticks)
	assert.Equal(t, "G1", tk.GameID)
}

func TestFetchError_IsDelivered(t *testing.T) {
	rec := &recorder{err: errors.New("connection refused")}
	p, clock, ticks := newTestPoller(t, rec)

	p.Start(context.Background(), "G1")
	waitTicker(t, clock)
	clock.Advance(time.Second)

	tk := recvTick(t, ticks)
	assert.EqualError(t, tk.Err, "connection refused")

	// polling continues after a failure
	clock.Advance(time.Second)
	recvTick(t, ticks)
}

func TestParentCancel_EndsTask(t *testing.T) {
	rec := &recorder{}
	p, clock, ticks := newTestPoller(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, "G1")
	waitTicker(t, clock)
	cancel()

	// Stop still returns once the task has exited on its own.
	assert.True(t, p.Stop())
	clock.Advance(time.Second)
	noTick(t, ticks)
}
