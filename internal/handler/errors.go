package handler

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// respondError maps the service error taxonomy onto HTTP statuses. Every
// error body carries a human message and a stable machine code.
func respondError(c echo.Context, err error) error {
	var conflict *service.ConflictError
	var provider *service.ProviderError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "some seats are no longer available",
			"code":  "conflict",
			"seats": conflict.Seats,
		})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "invalid_input"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error(), "code": "not_found"})
	case errors.As(err, &provider):
		status := http.StatusBadGateway
		if timedOut(provider.Err) {
			status = http.StatusGatewayTimeout
		}
		return c.JSON(status, echo.Map{
			"error":     provider.Message,
			"code":      "provider_error",
			"retryable": provider.Retryable,
		})
	case errors.Is(err, service.ErrVerificationFailed):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error(), "code": "verification_failed"})
	case errors.Is(err, service.ErrAlreadyRefunded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "already_refunded"})
	case errors.Is(err, service.ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "already_processed"})
	case errors.Is(err, service.ErrPaymentNotCompleted):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "payment_not_completed"})
	case errors.Is(err, context.Canceled):
		// client went away; the status is never read
		return c.NoContent(499)
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}

func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_input"})
}
