package web

import (
	"context"
	"errors"
	"net/http"

	"coffeeshop/pkg/order"
)

const msgNotFound = "The requested resource was not found."

// statusFor maps a core error to an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var ve *order.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	default:
		return http.StatusInternalServerError, "Internal server error: " + err.Error()
	}
}

// logFailure logs server-side failures. Client errors are already visible
// in the request log.
func (h *Handler) logFailure(ctx context.Context, op string, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error(ctx, op, "error", err)
	}
}
