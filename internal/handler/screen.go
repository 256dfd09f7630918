package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Layout: GET /v1/screens/:id/layout returns the seat grid with prices.
func (h *BookingHandler) Layout(c echo.Context) error {
	screenID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid screen id")
	}
	l, err := h.Svc.Availability.Layout(c.Request().Context(), screenID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"screen_id":      l.Screen.ID,
		"name":           l.Screen.Name,
		"screen_type":    l.Screen.ScreenType,
		"rows":           l.Screen.RowsCount,
		"seats_per_row":  l.Screen.SeatsPerRow,
		"capacity":       l.Capacity,
		"premium_rows":   model.PremiumRows,
		"price_standard": model.ToMajor(l.Screen.PriceStandardMinor),
		"price_premium":  model.ToMajor(l.Screen.PricePremiumMinor),
		"layout":         l.Rows,
	})
}
