package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bingo-miniapp/internal/gateway"
	"github.com/DoyleJ11/bingo-miniapp/internal/hub"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
	"github.com/DoyleJ11/bingo-miniapp/internal/types"
	api "github.com/DoyleJ11/bingo-miniapp/pkg/types"
)

var errMissingUser = errors.New("user_id is required")

func CreateSession(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decode[api.CreateSessionRequest](r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err, nil)
			return
		}
		if payload.UserID <= 0 {
			writeError(w, http.StatusBadRequest, errMissingUser, nil)
			return
		}

		c, err := h.Create(r.Context(), gateway.UserID(payload.UserID))
		if err != nil {
			logger.Error("create session failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, err, nil)
			return
		}

		snap, err := c.Snapshot(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, api.CreateSessionResponse{
			SessionID: c.ID(),
			Snapshot:  types.NewSnapshot(snap),
		})
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := lookup(w, r, h)
		if !ok {
			return
		}
		snap, err := c.Snapshot(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err, nil)
			return
		}
		writeJSON(w, http.StatusOK, types.NewSnapshot(snap))
	}
}

// Action dispatches one player action and answers once it has been applied.
func Action(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := lookup(w, r, h)
		if !ok {
			return
		}

		msg := api.ClientMessage{}
		if r.ContentLength != 0 {
			body, err := decode[api.ClientMessage](r.Body)
			if err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, err, nil)
				return
			}
			msg = body
		}
		msg.Type = chi.URLParam(r, "action")

		cmd, err := types.ToCommand(msg)
		if err != nil {
			writeError(w, statusFor(err), err, nil)
			return
		}

		snap, err := c.Do(r.Context(), cmd)
		if err != nil {
			logger.Debug("action refused",
				zap.String("session_id", c.ID()),
				zap.String("action", msg.Type),
				zap.Error(err))
			var out *api.StateSnapshot
			if snap.ID != "" {
				v := types.NewSnapshot(snap)
				out = &v
			}
			writeError(w, statusFor(err), err, out)
			return
		}
		writeJSON(w, http.StatusOK, types.NewSnapshot(snap))
	}
}

func DeleteSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := h.Remove(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err, nil)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, errSessionNotFound, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) (*session.Controller, bool) {
	c, err := h.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err, nil)
		return nil, false
	}
	if c == nil {
		writeError(w, http.StatusNotFound, errSessionNotFound, nil)
		return nil, false
	}
	return c, true
}

func decode[T any](body io.Reader) (T, error) {
	var payload T
	err := json.NewDecoder(body).Decode(&payload)
	return payload, err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error, snap *api.StateSnapshot) {
	writeJSON(w, code, api.ErrorResponse{Error: err.Error(), Snapshot: snap})
}
