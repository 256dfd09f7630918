package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// MaxRecentBookings caps the admin booking list.
const MaxRecentBookings = 100

// BookingView is a booking with its payment history.
type BookingView struct {
	model.BookingDetail
	Payments []model.Payment
}

// QueryService reads bookings for customers and admins.
type QueryService struct {
	*deps
	log *zap.Logger
}

// ListUserBookings returns the user's confirmed bookings, newest first.
func (s *QueryService) ListUserBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	if userID == 0 {
		return nil, invalid("user is required")
	}
	out, err := s.repo.ListConfirmedByUser(ctx, userID)
	if err != nil {
		s.log.Error("list user bookings failed", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// GetBooking returns a booking to its owner or to an admin. Anyone else
// gets ErrNotFound.
func (s *QueryService) GetBooking(ctx context.Context, bookingID string, viewerID uint64, admin bool) (*BookingView, error) {
	if bookingID == "" {
		return nil, invalid("booking_id is required")
	}
	d, err := s.repo.GetBookingDetail(ctx, bookingID)
	if err != nil {
		return nil, translate(err)
	}
	if !admin && d.UserID != viewerID {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}
	payments, err := s.repo.ListPayments(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return &BookingView{BookingDetail: *d, Payments: payments}, nil
}

// ListRecent returns the newest bookings in any state. limit is clamped
// to MaxRecentBookings.
func (s *QueryService) ListRecent(ctx context.Context, limit int) ([]model.BookingDetail, error) {
	if limit <= 0 || limit > MaxRecentBookings {
		limit = MaxRecentBookings
	}
	return s.repo.ListRecent(ctx, limit)
}
