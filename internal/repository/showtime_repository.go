package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ShowtimeRepo reads showtimes and the screens they run on. Showtime and
// screen administration happens outside this service.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// GetShowtime retrieves a showtime joined with its screen and movie title.
// It returns ErrShowtimeNotFound if there is no matching row.
func (r *ShowtimeRepo) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT st.id, st.movie_id, st.screen_id,
	                  DATE_FORMAT(st.show_date, '%Y-%m-%d'), TIME_FORMAT(st.show_time, '%H:%i'),
	                  st.price_standard_minor, st.price_premium_minor, st.status, COALESCE(m.title, ''),
	                  sc.id, sc.name, sc.screen_type, sc.rows_count, sc.seats_per_row,
	                  sc.price_standard_minor, sc.price_premium_minor
	           FROM showtimes st
	           JOIN screens sc ON sc.id = st.screen_id
	           LEFT JOIN movies m ON m.id = st.movie_id
	           WHERE st.id = ?`
	var s model.Showtime
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.ScreenID, &s.ShowDate, &s.ShowTime,
		&s.PriceStandardMinor, &s.PricePremiumMinor, &s.Status, &s.MovieTitle,
		&s.Screen.ID, &s.Screen.Name, &s.Screen.ScreenType, &s.Screen.RowsCount, &s.Screen.SeatsPerRow,
		&s.Screen.PriceStandardMinor, &s.Screen.PricePremiumMinor,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// LockShowtime takes a row lock on the showtime inside the current
// transaction.
func (r *ShowtimeRepo) LockShowtime(ctx context.Context, id uint64) error {
	var got uint64
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT id FROM showtimes WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShowtimeNotFound
	}
	return err
}

// GetScreen retrieves a screen by id.
func (r *ShowtimeRepo) GetScreen(ctx context.Context, id uint64) (*model.Screen, error) {
	const q = `SELECT id, name, screen_type, rows_count, seats_per_row, price_standard_minor, price_premium_minor
	           FROM screens WHERE id = ?`
	var s model.Screen
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Name, &s.ScreenType, &s.RowsCount, &s.SeatsPerRow, &s.PriceStandardMinor, &s.PricePremiumMinor,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreenNotFound
		}
		return nil, err
	}
	return &s, nil
}
