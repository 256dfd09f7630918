package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// BookingRepo persists bookings and the booked_seats ledger. A seat row in
// booked_seats exists exactly while its booking is completed/confirmed;
// the primary key on (showtime_id, seat_id) keeps sold seats disjoint.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.booking_id, b.user_id, b.movie_id, b.screen_id, b.showtime_id, b.seats,
	b.base_amount_minor, b.tax_amount_minor, b.total_amount_minor, b.currency,
	b.payment_status, b.booking_status, b.external_order_id, b.external_payment_id,
	b.created_at, b.updated_at`

const detailSelect = `SELECT ` + bookingColumns + `,
	COALESCE(m.title, ''), COALESCE(sc.name, ''),
	COALESCE(DATE_FORMAT(st.show_date, '%Y-%m-%d'), ''), COALESCE(TIME_FORMAT(st.show_time, '%H:%i'), ''),
	COALESCE(u.email, ''), COALESCE(u.name, '')
	FROM bookings b
	LEFT JOIN showtimes st ON st.id = b.showtime_id
	LEFT JOIN movies m ON m.id = b.movie_id
	LEFT JOIN screens sc ON sc.id = b.screen_id
	LEFT JOIN users u ON u.id = b.user_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func bookingDest(b *model.Booking, seats *[]byte, paymentID *sql.NullString) []interface{} {
	return []interface{}{
		&b.ID, &b.BookingID, &b.UserID, &b.MovieID, &b.ScreenID, &b.ShowtimeID, seats,
		&b.BaseAmountMinor, &b.TaxAmountMinor, &b.TotalAmountMinor, &b.Currency,
		&b.PaymentStatus, &b.BookingStatus, &b.ExternalOrderID, paymentID,
		&b.CreatedAt, &b.UpdatedAt,
	}
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b         model.Booking
		seats     []byte
		paymentID sql.NullString
	)
	if err := row.Scan(bookingDest(&b, &seats, &paymentID)...); err != nil {
		return nil, err
	}
	if err := finishBooking(&b, seats, paymentID); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanDetail(row rowScanner) (*model.BookingDetail, error) {
	var (
		d         model.BookingDetail
		seats     []byte
		paymentID sql.NullString
	)
	dest := append(bookingDest(&d.Booking, &seats, &paymentID),
		&d.MovieTitle, &d.ScreenName, &d.ShowDate, &d.ShowTime, &d.UserEmail, &d.UserName)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := finishBooking(&d.Booking, seats, paymentID); err != nil {
		return nil, err
	}
	return &d, nil
}

func finishBooking(b *model.Booking, seats []byte, paymentID sql.NullString) error {
	if err := json.Unmarshal(seats, &b.Seats); err != nil {
		return fmt.Errorf("decode seats of booking %s: %w", b.BookingID, err)
	}
	b.ExternalPaymentID = paymentID.String
	return nil
}

// PurgeAbandonedBookings deletes pending bookings created before the
// cutoff. Their seats were never sold, so booked_seats is untouched.
func (r *BookingRepo) PurgeAbandonedBookings(ctx context.Context, createdBefore time.Time) (int64, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM bookings WHERE payment_status = 'pending' AND booking_status = 'pending' AND created_at < ?`,
		createdBefore.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookedSeats returns the sold seats of a showtime ordered by seat id.
func (r *BookingRepo) BookedSeats(ctx context.Context, showtimeID uint64) ([]string, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT seat_id FROM booked_seats WHERE showtime_id = ? ORDER BY seat_id`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// PendingSeats returns the seats of pending bookings of the showtime that
// were created after the cutoff.
func (r *BookingRepo) PendingSeats(ctx context.Context, showtimeID uint64, createdAfter time.Time) ([]model.PendingSeats, error) {
	const q = `SELECT user_id, seats, created_at
	           FROM bookings
	           WHERE showtime_id = ? AND payment_status = 'pending' AND booking_status = 'pending' AND created_at >= ?`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, showtimeID, createdAfter.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PendingSeats
	for rows.Next() {
		var (
			p     model.PendingSeats
			seats []byte
		)
		if err := rows.Scan(&p.UserID, &seats, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(seats, &p.Seats); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateBooking inserts a booking and sets its generated ID.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings
	           (booking_id, user_id, movie_id, screen_id, showtime_id, seats,
	            base_amount_minor, tax_amount_minor, total_amount_minor, currency,
	            payment_status, booking_status, external_order_id, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		b.BookingID, b.UserID, b.MovieID, b.ScreenID, b.ShowtimeID, string(seats),
		b.BaseAmountMinor, b.TaxAmountMinor, b.TotalAmountMinor, b.Currency,
		string(b.PaymentStatus), string(b.BookingStatus), b.ExternalOrderID,
		b.CreatedAt.UTC(), b.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.UpdatedAt = b.CreatedAt
	return nil
}

// GetBooking loads a booking by public id. With forUpdate the row stays
// locked until the surrounding transaction ends.
func (r *BookingRepo) GetBooking(ctx context.Context, bookingID string, forUpdate bool) (*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.booking_id = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, q, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ConfirmBooking records one booked_seats row per seat and promotes the
// booking to completed/confirmed. A seat already sold yields ErrSeatTaken;
// a booking no longer pending yields ErrNoChange.
func (r *BookingRepo) ConfirmBooking(ctx context.Context, b *model.Booking, paymentID string) error {
	db := conn(ctx, r.db)
	if len(b.Seats) > 0 {
		q := `INSERT INTO booked_seats (showtime_id, seat_id, booking_id) VALUES `
		args := make([]interface{}, 0, len(b.Seats)*3)
		for i, s := range b.Seats {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, b.ShowtimeID, s, b.ID)
		}
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			if isDuplicateKey(err) {
				return ErrSeatTaken
			}
			return err
		}
	}
	res, err := db.ExecContext(ctx,
		`UPDATE bookings
		 SET payment_status = 'completed', booking_status = 'confirmed', external_payment_id = ?
		 WHERE id = ? AND payment_status = 'pending' AND booking_status = 'pending'`,
		paymentID, b.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoChange
	}
	b.PaymentStatus = model.PaymentCompleted
	b.BookingStatus = model.BookingConfirmed
	b.ExternalPaymentID = paymentID
	return nil
}

// RefundBooking moves a completed booking to refunded/cancelled and
// returns its seats to sale.
func (r *BookingRepo) RefundBooking(ctx context.Context, b *model.Booking) error {
	db := conn(ctx, r.db)
	res, err := db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = 'refunded', booking_status = 'cancelled'
		 WHERE id = ? AND payment_status = 'completed'`,
		b.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoChange
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM booked_seats WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	b.PaymentStatus = model.PaymentRefunded
	b.BookingStatus = model.BookingCancelled
	return nil
}

// GetBookingDetail loads a booking with movie, screen, showtime and user
// display fields.
func (r *BookingRepo) GetBookingDetail(ctx context.Context, bookingID string) (*model.BookingDetail, error) {
	d, err := scanDetail(conn(ctx, r.db).QueryRowContext(ctx, detailSelect+` WHERE b.booking_id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return d, err
}

// ListConfirmedByUser returns the user's confirmed bookings, newest first.
func (r *BookingRepo) ListConfirmedByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, detailSelect+` WHERE b.user_id = ? AND b.booking_status = 'confirmed' ORDER BY b.created_at DESC, b.id DESC`, userID)
}

// ListRecent returns the newest bookings across all users.
func (r *BookingRepo) ListRecent(ctx context.Context, limit int) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, detailSelect+` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`, limit)
}

func (r *BookingRepo) listDetails(ctx context.Context, q string, args ...interface{}) ([]model.BookingDetail, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
