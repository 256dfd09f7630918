package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/utils"
)

// MaxBaseAmountMinor caps the pre-tax amount of one order so tax
// arithmetic stays inside int64.
const MaxBaseAmountMinor = 1_000_000_000

// CreateOrderInput opens a payment order for a seat selection.
// BaseAmountMinor is the pre-tax price in minor units.
type CreateOrderInput struct {
	UserID          uint64
	MovieID         uint64
	ScreenID        uint64
	ShowtimeID      uint64
	Seats           []string
	BaseAmountMinor int64
}

// OrderResult is what the checkout widget needs to take the payment.
type OrderResult struct {
	OrderID     string
	BookingID   string
	Seats       []string
	AmountMinor int64
	BaseMinor   int64
	TaxMinor    int64
	TaxRate     float64
	Currency    string
	ProviderKey string
}

// Amount is the total in major units.
func (r OrderResult) Amount() float64 { return model.ToMajor(r.AmountMinor) }

// VerifyInput is the checkout callback.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	BookingID string
	// UserID restricts confirmation to the booking owner when set.
	UserID uint64
}

// OrderService creates pending bookings and confirms them once paid.
type OrderService struct {
	*deps
	log *zap.Logger
}

// CreateOrder checks the seats are neither sold nor held by someone else,
// opens a provider order for base plus tax and records a pending booking.
// The caller's locks on the seats are released. A provider failure leaves
// no local state behind.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderResult, error) {
	if in.UserID == 0 {
		return nil, invalid("user is required")
	}
	if in.BaseAmountMinor <= 0 || in.BaseAmountMinor > MaxBaseAmountMinor {
		return nil, invalid("base_amount must be positive and at most %d minor units", MaxBaseAmountMinor)
	}
	if in.ShowtimeID == 0 {
		return nil, invalid("showtime_id is required")
	}

	var res *OrderResult
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockShowtime(ctx, in.ShowtimeID); err != nil {
			return translate(err)
		}
		st, seats, err := s.showtimeSeats(ctx, in.ShowtimeID, in.Seats)
		if err != nil {
			return err
		}
		if st.Status == "cancelled" {
			return invalid("showtime %d is cancelled", st.ID)
		}
		if in.MovieID != 0 && in.MovieID != st.MovieID {
			return invalid("movie_id %d does not match showtime", in.MovieID)
		}
		if in.ScreenID != 0 && in.ScreenID != st.ScreenID {
			return invalid("screen_id %d does not match showtime", in.ScreenID)
		}

		now := s.clock()
		if err := s.sweep(ctx, st.ID, now); err != nil {
			return err
		}
		if err := s.checkSeats(ctx, st.ID, in.UserID, seats, now); err != nil {
			return err
		}

		tax, total := s.cfg.Quote(in.BaseAmountMinor)
		order, err := s.gateway.CreateOrder(ctx, paymentOrder(s.cfg, st, in.UserID, seats, total, now))
		if err != nil {
			return providerError("create order", err)
		}

		b := &model.Booking{
			BookingID:        utils.BookingCode(s.cfg.BookingPrefix, now),
			UserID:           in.UserID,
			MovieID:          st.MovieID,
			ScreenID:         st.ScreenID,
			ShowtimeID:       st.ID,
			Seats:            seats,
			BaseAmountMinor:  in.BaseAmountMinor,
			TaxAmountMinor:   tax,
			TotalAmountMinor: total,
			Currency:         s.cfg.Currency,
			PaymentStatus:    model.PaymentPending,
			BookingStatus:    model.BookingPending,
			ExternalOrderID:  order.ID,
			CreatedAt:        now,
		}
		if err := s.repo.CreateBooking(ctx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		if _, err := s.repo.ReleaseLocks(ctx, st.ID, seats, in.UserID); err != nil {
			return fmt.Errorf("release locks: %w", err)
		}
		res = &OrderResult{
			OrderID:     order.ID,
			BookingID:   b.BookingID,
			Seats:       seats,
			AmountMinor: total,
			BaseMinor:   in.BaseAmountMinor,
			TaxMinor:    tax,
			TaxRate:     s.cfg.TaxRate,
			Currency:    s.cfg.Currency,
			ProviderKey: s.gateway.KeyID(),
		}
		return nil
	})
	if err != nil {
		s.logFailure("create order failed", err, zap.Uint64("showtime_id", in.ShowtimeID), zap.Uint64("user_id", in.UserID))
		return nil, err
	}
	s.log.Info("order created",
		zap.String("booking_id", res.BookingID),
		zap.String("order_id", res.OrderID),
		zap.Int64("amount_minor", res.AmountMinor),
	)
	return res, nil
}

// checkSeats rejects seats that are sold, locked by another holder or,
// when pending bookings hold seats, reserved by another pending booking.
func (s *OrderService) checkSeats(ctx context.Context, showtimeID, userID uint64, seats []string, now time.Time) error {
	booked, err := s.bookedSet(ctx, showtimeID)
	if err != nil {
		return err
	}
	locks, err := s.repo.ActiveLocks(ctx, showtimeID, now)
	if err != nil {
		return err
	}
	pending, err := s.pendingHolds(ctx, showtimeID, now)
	if err != nil {
		return err
	}
	held := map[string]bool{}
	for _, l := range locks {
		if l.HolderID != userID {
			held[l.SeatID] = true
		}
	}
	for seat, l := range pending {
		if l.HolderID != userID {
			held[seat] = true
		}
	}
	var conflict []string
	for _, seat := range seats {
		if booked[seat] || held[seat] {
			conflict = append(conflict, seat)
		}
	}
	if len(conflict) > 0 {
		return &ConflictError{Seats: conflict}
	}
	return nil
}

func paymentOrder(cfg BookingConfig, st *model.Showtime, userID uint64, seats []string, total int64, now time.Time) payment.OrderRequest {
	return payment.OrderRequest{
		Amount:   total,
		Currency: cfg.Currency,
		Receipt:  utils.Receipt(cfg.BookingPrefix, now, userID),
		Notes: map[string]string{
			"movie_id":    strconv.FormatUint(st.MovieID, 10),
			"screen_id":   strconv.FormatUint(st.ScreenID, 10),
			"showtime_id": strconv.FormatUint(st.ID, 10),
			"seats":       strings.Join(seats, ","),
		},
	}
}

// VerifyAndConfirm checks the checkout signature and promotes the pending
// booking to confirmed. A bad signature leaves the booking pending. The
// confirmation notification is sent in the background.
func (s *OrderService) VerifyAndConfirm(ctx context.Context, in VerifyInput) (*model.BookingDetail, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" || in.BookingID == "" {
		return nil, invalid("order_id, payment_id, signature and booking_id are required")
	}
	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		s.log.Warn("signature mismatch", zap.String("booking_id", in.BookingID), zap.String("order_id", in.OrderID))
		return nil, ErrVerificationFailed
	}

	var detail *model.BookingDetail
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBooking(ctx, in.BookingID, true)
		if err != nil {
			return translate(err)
		}
		if in.UserID != 0 && b.UserID != in.UserID {
			return fmt.Errorf("%w: booking %s", ErrNotFound, in.BookingID)
		}
		if b.ExternalOrderID != in.OrderID {
			return fmt.Errorf("%w: order does not belong to booking", ErrVerificationFailed)
		}
		if !b.IsPending() {
			return fmt.Errorf("%w: booking %s is %s", ErrAlreadyProcessed, b.BookingID, b.BookingStatus)
		}

		if err := s.repo.ConfirmBooking(ctx, b, in.PaymentID); err != nil {
			if errors.Is(err, repository.ErrSeatTaken) {
				return s.soldConflict(ctx, b)
			}
			return translate(err)
		}
		if _, err := s.repo.ReleaseLocks(ctx, b.ShowtimeID, b.Seats, 0); err != nil {
			return fmt.Errorf("release locks: %w", err)
		}
		details, _ := json.Marshal(map[string]string{"order_id": in.OrderID, "payment_id": in.PaymentID})
		if err := s.repo.AppendPayment(ctx, &model.Payment{
			BookingID:      b.ID,
			TransactionID:  utils.TransactionID(s.clock()),
			AmountMinor:    b.TotalAmountMinor,
			Method:         model.PaymentMethodProvider,
			Status:         model.PaymentRecordSuccess,
			PaymentDetails: details,
			CreatedAt:      s.clock(),
		}); err != nil {
			return fmt.Errorf("append payment: %w", err)
		}
		detail, err = s.repo.GetBookingDetail(ctx, b.BookingID)
		return translate(err)
	})
	if err != nil {
		s.logFailure("confirm booking failed", err, zap.String("booking_id", in.BookingID))
		return nil, err
	}

	s.log.Info("booking confirmed", zap.String("booking_id", detail.BookingID), zap.String("payment_id", in.PaymentID))
	d := *detail
	s.notify(s.log, d.BookingID, func(ctx context.Context) error {
		return s.notifier.BookingConfirmed(ctx, d)
	})
	return detail, nil
}

// soldConflict builds the Conflict error for a booking whose seats were
// sold to someone else in the meantime.
func (s *OrderService) soldConflict(ctx context.Context, b *model.Booking) error {
	booked, err := s.bookedSet(ctx, b.ShowtimeID)
	if err != nil {
		return err
	}
	var seats []string
	for _, seat := range b.Seats {
		if booked[seat] {
			seats = append(seats, seat)
		}
	}
	sort.Strings(seats)
	return &ConflictError{Seats: seats}
}

// logFailure logs unexpected errors at Error and domain rejections at Info.
func (s *OrderService) logFailure(msg string, err error, fields ...zap.Field) {
	logFailure(s.log, msg, err, fields...)
}

func logFailure(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if isDomainError(err) {
		log.Info(msg, fields...)
		return
	}
	log.Error(msg, fields...)
}

func isDomainError(err error) bool {
	for _, target := range []error{ErrInvalidInput, ErrNotFound, ErrConflict, ErrVerificationFailed, ErrAlreadyProcessed, ErrPaymentNotCompleted} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
