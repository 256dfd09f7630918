package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers login, token refresh, logout and /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts a bearer token or a refresh_token body, so no JWT middleware
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// BookingMiddleware carries the optional Redis backed middleware. A nil
// entry is skipped.
type BookingMiddleware struct {
	RateLimit   echo.MiddlewareFunc
	LayoutCache echo.MiddlewareFunc
}

// RegisterBooking registers the seat, order, payment and booking routes.
// Seat status is public; a valid bearer token adds the caller's own locks.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, mw BookingMiddleware) {
	limited := optional(mw.RateLimit)

	e.GET("/v1/screens/:id/layout", h.Layout, optional(mw.LayoutCache)...)
	e.GET("/v1/showtimes/:id/seats", h.SeatStatus, middleware.OptionalJWT(jwtSecret))

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/showtimes/:id/seats/check", h.CheckSeats)
	g.POST("/showtimes/:id/locks", h.LockSeats, limited...)
	g.DELETE("/showtimes/:id/locks", h.UnlockSeats)
	g.POST("/orders", h.CreateOrder, limited...)
	g.POST("/payments/verify", h.VerifyPayment)
	g.GET("/bookings", h.MyBookings)
	g.GET("/bookings/:booking_id", h.GetBooking)
}

// RegisterAdmin registers the ADMIN-only booking routes.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.GET("/bookings", h.AdminBookings)
	g.POST("/bookings/:booking_id/refund", h.Refund)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
