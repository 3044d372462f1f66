package hub

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
)

// stubFactory builds sessions with no gateway; the hub never drives them.
func stubFactory(ctx context.Context, id string, userID gateway.UserID) *session.Controller {
	return session.New(ctx, id, userID, nil, session.Options{Logger: zap.NewNop()})
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(context.Background(), stubFactory, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	c1, err := h.Create(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, c1)
	_, err = uuid.Parse(c1.ID())
	assert.NoError(t, err)

	c2, err := h.Get(ctx, c1.ID())
	require.NoError(t, err)

	if c1 == nil || c2 == nil || c1 != c2 {
		t.Fatalf("expected same session pointer")
	}

	missing, err := h.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHub_SessionsAreIndependent(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	a, err := h.Create(ctx, 1)
	require.NoError(t, err)
	b, err := h.Create(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	reply := make(chan int, 1)
	h.Inbox() <- CountSessions{Reply: reply}
	assert.Equal(t, 2, <-reply)
}

func TestHub_Remove_ClosesSession(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	c, err := h.Create(ctx, 42)
	require.NoError(t, err)

	ok, err := h.Remove(ctx, c.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed on remove")
	}

	ok, err = h.Remove(ctx, c.ID())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := h.Get(ctx, c.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHub_Shutdown_ClosesEverySession(t *testing.T) {
	h := NewHub(context.Background(), stubFactory, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, err := h.Create(ctx, 1)
	require.NoError(t, err)
	b, err := h.Create(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, h.Shutdown(ctx))
	for _, c := range []*session.Controller{a, b} {
		select {
		case <-c.Done():
		default:
			t.Fatalf("session %s still running", c.ID())
		}
	}

	_, err = h.Create(ctx, 3)
	assert.ErrorIs(t, err, session.ErrClosed)
}
