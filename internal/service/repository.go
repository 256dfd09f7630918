package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Transactor runs fn inside one storage transaction. The transaction
// travels in the context passed to fn; a returned error rolls it back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LockStore persists seat locks.
type LockStore interface {
	// PurgeExpiredLocks deletes locks of the showtime that expired at or
	// before now. A zero showtime purges every showtime.
	PurgeExpiredLocks(ctx context.Context, showtimeID uint64, now time.Time) (int64, error)
	// AcquireLock drops an expired lock on the seat, then inserts the lock
	// or refreshes it when the same holder already owns it, as one atomic
	// upsert, and returns the holder that owns the seat afterwards.
	AcquireLock(ctx context.Context, lock model.Lock, now time.Time) (uint64, error)
	// ReleaseLocks deletes locks of the showtime. Empty seats means every
	// seat; a zero holder means any holder.
	ReleaseLocks(ctx context.Context, showtimeID uint64, seats []string, holderID uint64) (int64, error)
	// ActiveLocks lists the showtime's locks that are still in force at now.
	ActiveLocks(ctx context.Context, showtimeID uint64, now time.Time) ([]model.Lock, error)
}

// BookingStore persists bookings and the per-seat ledger of sold seats.
type BookingStore interface {
	PurgeAbandonedBookings(ctx context.Context, createdBefore time.Time) (int64, error)
	BookedSeats(ctx context.Context, showtimeID uint64) ([]string, error)
	PendingSeats(ctx context.Context, showtimeID uint64, createdAfter time.Time) ([]model.PendingSeats, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	// GetBooking loads a booking by its public id. forUpdate takes a row
	// lock for the rest of the transaction.
	GetBooking(ctx context.Context, bookingID string, forUpdate bool) (*model.Booking, error)
	// ConfirmBooking marks the booking completed/confirmed and records one
	// sold-seat row per seat; repository.ErrSeatTaken reports a seat that
	// is already sold.
	ConfirmBooking(ctx context.Context, b *model.Booking, paymentID string) error
	// RefundBooking marks the booking refunded/cancelled and frees its seats.
	RefundBooking(ctx context.Context, b *model.Booking) error
	GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error)
	ListConfirmedByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListRecent(ctx context.Context, limit int) ([]model.BookingDetail, error)
}

// PaymentStore appends to and reads the payment ledger.
type PaymentStore interface {
	AppendPayment(ctx context.Context, p *model.Payment) error
	ListPayments(ctx context.Context, bookingID uint64) ([]model.Payment, error)
}

// ShowtimeStore reads showtimes and screens.
type ShowtimeStore interface {
	GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	// LockShowtime takes a row lock on the showtime for the rest of the
	// transaction so concurrent orders for it run one after another.
	LockShowtime(ctx context.Context, id uint64) error
	GetScreen(ctx context.Context, id uint64) (*model.Screen, error)
}

// Repository is the full storage surface used by the booking services.
type Repository interface {
	Transactor
	LockStore
	BookingStore
	PaymentStore
	ShowtimeStore
}
