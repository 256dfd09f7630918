// Package queue carries booking notifications over RabbitMQ: a publisher
// used by the booking services and a consumer that dispatches e-tickets
// and refund notices.
package queue

import (
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Queue names. Routing uses the default exchange, so the routing key is
// the queue name.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingRefunded  = "booking.refunded"
)

// BookingConfirmedEvent is published once a booking is paid. It carries
// everything an e-ticket needs without querying the database.
type BookingConfirmedEvent struct {
	BookingID        string   `json:"booking_id"`
	UserID           uint64   `json:"user_id"`
	UserEmail        string   `json:"user_email"`
	UserName         string   `json:"user_name"`
	ShowtimeID       uint64   `json:"showtime_id"`
	MovieTitle       string   `json:"movie_title"`
	ScreenName       string   `json:"screen_name"`
	ShowDate         string   `json:"show_date"`
	ShowTime         string   `json:"show_time"`
	Seats            []string `json:"seats"`
	TotalAmountMinor int64    `json:"total_amount_minor"`
	Currency         string   `json:"currency"`
	PaymentID        string   `json:"payment_id"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// BookingRefundedEvent is published once a refund went through.
type BookingRefundedEvent struct {
	BookingID         string   `json:"booking_id"`
	UserID            uint64   `json:"user_id"`
	UserEmail         string   `json:"user_email"`
	MovieTitle        string   `json:"movie_title"`
	Seats             []string `json:"seats"`
	RefundID          string   `json:"refund_id"`
	RefundAmountMinor int64    `json:"refund_amount_minor"`
	Currency          string   `json:"currency"`
	Reason            string   `json:"reason"`
	RefundedAt        string   `json:"refunded_at"`
}

// NewBookingConfirmedEvent builds the event for a confirmed booking.
func NewBookingConfirmedEvent(d model.BookingDetail, at time.Time) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:        d.BookingID,
		UserID:           d.UserID,
		UserEmail:        d.UserEmail,
		UserName:         d.UserName,
		ShowtimeID:       d.ShowtimeID,
		MovieTitle:       d.MovieTitle,
		ScreenName:       d.ScreenName,
		ShowDate:         d.ShowDate,
		ShowTime:         d.ShowTime,
		Seats:            d.Seats,
		TotalAmountMinor: d.TotalAmountMinor,
		Currency:         d.Currency,
		PaymentID:        d.ExternalPaymentID,
		ConfirmedAt:      at.UTC().Format(time.RFC3339),
	}
}

// NewBookingRefundedEvent builds the event for a refunded booking.
func NewBookingRefundedEvent(d model.BookingDetail, refundID, reason string, at time.Time) BookingRefundedEvent {
	return BookingRefundedEvent{
		BookingID:         d.BookingID,
		UserID:            d.UserID,
		UserEmail:         d.UserEmail,
		MovieTitle:        d.MovieTitle,
		Seats:             d.Seats,
		RefundID:          refundID,
		RefundAmountMinor: d.TotalAmountMinor,
		Currency:          d.Currency,
		Reason:            reason,
		RefundedAt:        at.UTC().Format(time.RFC3339),
	}
}
