package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/DoyleJ11/bingo-miniapp/internal/cardview"
	"github.com/DoyleJ11/bingo-miniapp/internal/engine"
	"github.com/DoyleJ11/bingo-miniapp/internal/selector"
	"github.com/DoyleJ11/bingo-miniapp/internal/session"
)

var errSessionNotFound = errors.New("session not found")

// statusFor maps refusals to HTTP statuses. Remote failures never get here:
// they are applied as notices and answered with 200.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrWrongPhase),
		errors.Is(err, engine.ErrInvalidBet),
		errors.Is(err, selector.ErrOutOfRange),
		errors.Is(err, selector.ErrDisabled),
		errors.Is(err, selector.ErrPending),
		errors.Is(err, selector.ErrPreviewOpen),
		errors.Is(err, selector.ErrNoPreview),
		errors.Is(err, cardview.ErrCellOutOfRange),
		errors.Is(err, cardview.ErrFreeCell),
		errors.Is(err, cardview.ErrNoCard):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
