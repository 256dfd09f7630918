package model

import "time"

// PaymentStatus tracks the money side of a booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// BookingStatus tracks the seat side of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a purchase of one or more seats for a showtime. The only
// valid lifecycles are pending/pending -> completed/confirmed ->
// refunded/cancelled.
type Booking struct {
	ID                uint64        // bookings.id
	BookingID         string        // bookings.booking_id, public code
	UserID            uint64        // bookings.user_id
	MovieID           uint64        // bookings.movie_id
	ScreenID          uint64        // bookings.screen_id
	ShowtimeID        uint64        // bookings.showtime_id
	Seats             []string      // bookings.seats (JSON array)
	BaseAmountMinor   int64         // bookings.base_amount_minor
	TaxAmountMinor    int64         // bookings.tax_amount_minor
	TotalAmountMinor  int64         // bookings.total_amount_minor
	Currency          string        // bookings.currency
	PaymentStatus     PaymentStatus // bookings.payment_status
	BookingStatus     BookingStatus // bookings.booking_status
	ExternalOrderID   string        // bookings.external_order_id
	ExternalPaymentID string        // bookings.external_payment_id (empty until paid)
	CreatedAt         time.Time     // bookings.created_at
	UpdatedAt         time.Time     // bookings.updated_at
}

// IsPending reports whether the booking still awaits payment.
func (b Booking) IsPending() bool {
	return b.PaymentStatus == PaymentPending && b.BookingStatus == BookingPending
}

// IsConfirmed reports whether the booking holds its seats as sold.
func (b Booking) IsConfirmed() bool {
	return b.PaymentStatus == PaymentCompleted && b.BookingStatus == BookingConfirmed
}

// BookingDetail is a booking joined with the display fields used on
// receipts, e-tickets and booking listings.
type BookingDetail struct {
	Booking
	MovieTitle string
	ScreenName string
	ShowDate   string
	ShowTime   string
	UserEmail  string
	UserName   string
}

// PendingSeats are the seats of a pending booking that has not been
// abandoned yet.
type PendingSeats struct {
	UserID    uint64
	Seats     []string
	CreatedAt time.Time
}
