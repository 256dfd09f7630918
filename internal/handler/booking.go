package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// BookingHandler serves seat status, locks, orders, payments and bookings.
type BookingHandler struct {
	Svc *service.Service
}

func NewBookingHandler(svc *service.Service) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

// ----- DTOs -----

// A single request selects at most 10 seats.
type seatsReq struct {
	Seats []string `json:"seats" validate:"required,min=1,max=10,dive,required,max=8"`
}

// unlockReq allows an empty list, which releases every seat of the caller.
type unlockReq struct {
	Seats []string `json:"seats" validate:"max=10,dive,max=8"`
}

type createOrderReq struct {
	MovieID    uint64   `json:"movie_id"`
	ScreenID   uint64   `json:"screen_id"`
	ShowtimeID uint64   `json:"showtime_id" validate:"required"`
	Seats      []string `json:"seats" validate:"required,min=1,max=10,dive,required,max=8"`
	BaseAmount float64  `json:"base_amount" validate:"gt=0,lte=10000000"`
}

type verifyReq struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	BookingID string `json:"booking_id" validate:"required"`
}

type refundReq struct {
	Reason string `json:"reason" validate:"max=255"`
}

type bookingResp struct {
	BookingID     string    `json:"booking_id"`
	UserID        uint64    `json:"user_id"`
	MovieID       uint64    `json:"movie_id"`
	ScreenID      uint64    `json:"screen_id"`
	ShowtimeID    uint64    `json:"showtime_id"`
	MovieTitle    string    `json:"movie_title"`
	ScreenName    string    `json:"screen_name"`
	ShowDate      string    `json:"show_date"`
	ShowTime      string    `json:"show_time"`
	UserEmail     string    `json:"user_email,omitempty"`
	UserName      string    `json:"user_name,omitempty"`
	Seats         []string  `json:"seats"`
	BaseAmount    float64   `json:"base_amount"`
	TaxAmount     float64   `json:"tax_amount"`
	TotalAmount   float64   `json:"total_amount"`
	Currency      string    `json:"currency"`
	PaymentStatus string    `json:"payment_status"`
	BookingStatus string    `json:"booking_status"`
	OrderID       string    `json:"order_id"`
	PaymentID     string    `json:"payment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type paymentResp struct {
	TransactionID string          `json:"transaction_id"`
	Amount        float64         `json:"amount"`
	Method        string          `json:"payment_method"`
	Status        string          `json:"payment_status"`
	Details       json.RawMessage `json:"payment_details,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toBookingResp(d model.BookingDetail) bookingResp {
	return bookingResp{
		BookingID:     d.BookingID,
		UserID:        d.UserID,
		MovieID:       d.MovieID,
		ScreenID:      d.ScreenID,
		ShowtimeID:    d.ShowtimeID,
		MovieTitle:    d.MovieTitle,
		ScreenName:    d.ScreenName,
		ShowDate:      d.ShowDate,
		ShowTime:      d.ShowTime,
		UserEmail:     d.UserEmail,
		UserName:      d.UserName,
		Seats:         d.Seats,
		BaseAmount:    model.ToMajor(d.BaseAmountMinor),
		TaxAmount:     model.ToMajor(d.TaxAmountMinor),
		TotalAmount:   model.ToMajor(d.TotalAmountMinor),
		Currency:      d.Currency,
		PaymentStatus: string(d.PaymentStatus),
		BookingStatus: string(d.BookingStatus),
		OrderID:       d.ExternalOrderID,
		PaymentID:     d.ExternalPaymentID,
		CreatedAt:     d.CreatedAt,
	}
}

func toBookingList(ds []model.BookingDetail) []bookingResp {
	out := make([]bookingResp, 0, len(ds))
	for _, d := range ds {
		out = append(out, toBookingResp(d))
	}
	return out
}

// SeatStatus: GET /v1/showtimes/:id/seats. Anonymous callers get no "mine".
func (h *BookingHandler) SeatStatus(c echo.Context) error {
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	viewer, _ := getUserID(c)
	st, err := h.Svc.Availability.Status(c.Request().Context(), showtimeID, viewer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id":      st.ShowtimeID,
		"booked":           st.Booked,
		"locked":           st.Locked,
		"mine":             st.Mine,
		"timestamp":        st.Timestamp,
		"poll_interval_ms": st.PollInterval.Milliseconds(),
	})
}

// CheckSeats: POST /v1/showtimes/:id/seats/check
func (h *BookingHandler) CheckSeats(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	var req seatsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.Svc.Availability.Check(c.Request().Context(), showtimeID, uid, req.Seats)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available":   res.Available,
		"unavailable": res.Unavailable,
		"mine":        res.Mine,
	})
}

// LockSeats: POST /v1/showtimes/:id/locks. Partial success answers 200;
// when nothing could be locked the answer is 409 with the same body.
func (h *BookingHandler) LockSeats(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	var req seatsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.Svc.Locks.Acquire(c.Request().Context(), showtimeID, uid, req.Seats)
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusOK
	if len(res.Locked) == 0 {
		status = http.StatusConflict
	}
	return c.JSON(status, echo.Map{
		"locked":     res.Locked,
		"failed":     res.Failed,
		"expires_at": res.ExpiresAt,
	})
}

// UnlockSeats: DELETE /v1/showtimes/:id/locks. An empty body releases
// every lock the caller holds on the showtime.
func (h *BookingHandler) UnlockSeats(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	var req unlockReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	n, err := h.Svc.Locks.Release(c.Request().Context(), showtimeID, uid, req.Seats)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "seats released", "released": n})
}

// CreateOrder: POST /v1/orders
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req createOrderReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.Svc.Orders.CreateOrder(c.Request().Context(), service.CreateOrderInput{
		UserID:          uid,
		MovieID:         req.MovieID,
		ScreenID:        req.ScreenID,
		ShowtimeID:      req.ShowtimeID,
		Seats:           req.Seats,
		BaseAmountMinor: model.ToMinor(req.BaseAmount),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":           res.OrderID,
		"booking_id":         res.BookingID,
		"seats":              res.Seats,
		"amount":             res.Amount(),
		"amount_minor_units": res.AmountMinor,
		"base_amount":        model.ToMajor(res.BaseMinor),
		"tax_amount":         model.ToMajor(res.TaxMinor),
		"tax_rate":           res.TaxRate,
		"currency":           res.Currency,
		"provider_key":       res.ProviderKey,
	})
}

// VerifyPayment: POST /v1/payments/verify
func (h *BookingHandler) VerifyPayment(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req verifyReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	d, err := h.Svc.Orders.VerifyAndConfirm(c.Request().Context(), service.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		BookingID: req.BookingID,
		UserID:    uid,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "payment verified",
		"booking": toBookingResp(*d),
	})
}

// MyBookings: GET /v1/bookings
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ds, err := h.Svc.Bookings.ListUserBookings(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingList(ds)})
}

// GetBooking: GET /v1/bookings/:booking_id. Admins may read any booking.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	admin := middleware.Role(c) == model.RoleAdmin
	v, err := h.Svc.Bookings.GetBooking(c.Request().Context(), c.Param("booking_id"), uid, admin)
	if err != nil {
		return respondError(c, err)
	}
	payments := make([]paymentResp, 0, len(v.Payments))
	for _, p := range v.Payments {
		payments = append(payments, paymentResp{
			TransactionID: p.TransactionID,
			Amount:        model.ToMajor(p.AmountMinor),
			Method:        p.Method,
			Status:        p.Status,
			Details:       p.PaymentDetails,
			CreatedAt:     p.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":  toBookingResp(v.BookingDetail),
		"payments": payments,
	})
}

// AdminBookings: GET /v1/admin/bookings?limit=
func (h *BookingHandler) AdminBookings(c echo.Context) error {
	limit := service.MaxRecentBookings
	if q := c.QueryParam("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}
	ds, err := h.Svc.Bookings.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingList(ds)})
}

// Refund: POST /v1/admin/bookings/:booking_id/refund
func (h *BookingHandler) Refund(c echo.Context) error {
	adminID, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req refundReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.Svc.Refunds.Refund(c.Request().Context(), service.RefundInput{
		BookingID: c.Param("booking_id"),
		Reason:    req.Reason,
		AdminID:   adminID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":             "refund initiated",
		"booking_id":          res.BookingID,
		"refund_id":           res.RefundID,
		"refund_amount":       res.RefundAmount(),
		"refund_amount_minor": res.RefundAmountMinor,
	})
}
