package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/hub"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
	"github.com/DoyleJ11/bingo-miniapp/internal/types"
	api "github.com/DoyleJ11/bingo-miniapp/pkg/types"
)

const writeTimeout = 3 * time.Second

type Options struct {
	// OriginPatterns are allowed page origins, as URLs or host patterns.
	OriginPatterns []string
	Logger         *zap.Logger
}

// Handler streams a session's snapshots to the page and feeds the page's
// actions back into the session.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ws")
	hosts := originHosts(opts.OriginPatterns)

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		c, err := h.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if c == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: hosts})
		if err != nil {
			logger.Debug("upgrade failed", zap.String("session_id", id), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 16)
		acks := make(chan session.Ack, 8)
		clientID := uuid.NewString()

		if err := c.Subscribe(r.Context(), clientID, out); err != nil {
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer c.Unsubscribe(clientID)

		log := logger.With(zap.String("session_id", id), zap.String("client_id", clientID))
		log.Debug("client connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go writeLoop(ctx, cancel, conn, out, acks, log)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client disconnected")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm api.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reject(acks, err)
				continue
			}
			cmd, err := types.ToCommand(cm)
			if err != nil {
				reject(acks, err)
				continue
			}

			select {
			case c.Inbox() <- session.Dispatch{Cmd: cmd, Reply: acks}:
			case <-c.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func writeLoop(ctx context.Context, stop context.CancelFunc, conn *websocket.Conn, out <-chan session.Snapshot, acks <-chan session.Ack, log *zap.Logger) {
	defer stop()
	for {
		var msg api.ServerMessage
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-out:
			if !ok {
				// session closed or this client fell behind
				conn.Close(websocket.StatusGoingAway, "session closed")
				return
			}
			s := types.NewSnapshot(snap)
			msg = api.ServerMessage{Type: "StateSnapshot", Version: snap.Version, Snapshot: &s}

		case ack := <-acks:
			if ack.Err == nil {
				continue
			}
			msg = api.ServerMessage{Type: "Error", Error: ack.Err.Error()}
			if ack.Snapshot.ID != "" {
				s := types.NewSnapshot(ack.Snapshot)
				msg.Version = ack.Snapshot.Version
				msg.Snapshot = &s
			}
		}

		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, conn, msg)
		cancel()
		if err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

func reject(acks chan<- session.Ack, err error) {
	select {
	case acks <- session.Ack{Err: err}:
	default:
	}
}

// originHosts turns configured origins into the host patterns the websocket
// library matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if !strings.Contains(o, "://") {
			hosts = append(hosts, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
