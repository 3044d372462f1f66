package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/hub"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
	api "github.com/DoyleJ11/bingo-miniapp/pkg/types"
)

func newTestServer(t *testing.T) (*hub.Hub, *httptest.Server) {
	t.Helper()
	factory := func(ctx context.Context, id string, userID gateway.UserID) *session.Controller {
		// local actions only; no game service behind it
		return session.New(ctx, id, userID, nil, session.Options{Logger: zap.NewNop()})
	}
	h := hub.NewHub(context.Background(), factory, zap.NewNop())

	mux := http.NewServeMux()
	mux.Handle("/ws", Handler(h, Options{Logger: zap.NewNop()}))
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + sessionID
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) api.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var msg api.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func writeMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, v))
}

func TestHandler_StreamsSnapshotsAndAppliesActions(t *testing.T) {
	h, srv := newTestServer(t)
	c, err := h.Create(context.Background(), 42)
	require.NoError(t, err)

	conn := dial(t, srv, c.ID())

	first := readMsg(t, conn)
	assert.Equal(t, "StateSnapshot", first.Type)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, "idle", first.Snapshot.Phase)
	assert.Equal(t, c.ID(), first.Snapshot.SessionID)

	writeMsg(t, conn, api.ClientMessage{Type: "open"})
	next := readMsg(t, conn)
	assert.Equal(t, "StateSnapshot", next.Type)
	assert.Equal(t, "bet_selecting", next.Snapshot.Phase)
	assert.Greater(t, next.Version, first.Version)
}

func TestHandler_ReportsRefusals(t *testing.T) {
	h, srv := newTestServer(t)
	c, err := h.Create(context.Background(), 42)
	require.NoError(t, err)

	conn := dial(t, srv, c.ID())
	readMsg(t, conn)

	writeMsg(t, conn, api.ClientMessage{Type: "teleport"})
	msg := readMsg(t, conn)
	assert.Equal(t, "Error", msg.Type)
	assert.Contains(t, msg.Error, "unsupported command")

	// accept is not allowed while idle
	writeMsg(t, conn, api.ClientMessage{Type: "accept"})
	msg = readMsg(t, conn)
	assert.Equal(t, "Error", msg.Type)
	assert.Contains(t, msg.Error, "not allowed")
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, "idle", msg.Snapshot.Phase)
}

func TestHandler_ClosesWhenSessionEnds(t *testing.T) {
	h, srv := newTestServer(t)
	c, err := h.Create(context.Background(), 42)
	require.NoError(t, err)

	conn := dial(t, srv, c.ID())
	readMsg(t, conn)

	_, err = h.Remove(context.Background(), c.ID())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestHandler_UnknownSession(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws?session=missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"https://miniapp.example", "*.telegram.org", "http://localhost:3000", "https://"})
	assert.Equal(t, []string{"miniapp.example", "*.telegram.org", "localhost:3000"}, got)
}
