package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// PaymentGateway is the external order/refund API.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error)
	Refund(ctx context.Context, paymentID string, req payment.RefundRequest) (*payment.Refund, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Notifier receives best-effort booking notifications. Errors are logged
// by the caller and never undo the booking change.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b model.BookingDetail) error
	BookingRefunded(ctx context.Context, b model.BookingDetail, refundID, reason string) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) BookingConfirmed(context.Context, model.BookingDetail) error { return nil }

func (NopNotifier) BookingRefunded(context.Context, model.BookingDetail, string, string) error {
	return nil
}

// Service groups the booking services built on one repository.
type Service struct {
	Availability *AvailabilityService
	Locks        *LockService
	Orders       *OrderService
	Refunds      *RefundService
	Bookings     *QueryService
}

// Option customizes the services built by NewService.
type Option func(*deps)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithNotifyTimeout bounds each asynchronous notification.
func WithNotifyTimeout(t time.Duration) Option {
	return func(d *deps) { d.notifyTimeout = t }
}

type deps struct {
	repo          Repository
	gateway       PaymentGateway
	notifier      Notifier
	cfg           BookingConfig
	now           func() time.Time
	notifyTimeout time.Duration
}

// NewService wires the services. A nil notifier disables notifications.
func NewService(repo Repository, gateway PaymentGateway, notifier Notifier, cfg BookingConfig, log *zap.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	d := &deps{
		repo:          repo,
		gateway:       gateway,
		notifier:      notifier,
		cfg:           cfg,
		now:           time.Now,
		notifyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return &Service{
		Availability: &AvailabilityService{deps: d, log: log.With(zap.String("service", "availability"))},
		Locks:        &LockService{deps: d, log: log.With(zap.String("service", "lock"))},
		Orders:       &OrderService{deps: d, log: log.With(zap.String("service", "order"))},
		Refunds:      &RefundService{deps: d, log: log.With(zap.String("service", "refund"))},
		Bookings:     &QueryService{deps: d, log: log.With(zap.String("service", "booking"))},
	}
}

func (d *deps) clock() time.Time { return d.now().UTC().Truncate(time.Second) }

// sweep purges the showtime's expired locks and every pending booking
// older than the abandonment threshold.
func (d *deps) sweep(ctx context.Context, showtimeID uint64, now time.Time) error {
	if _, err := d.repo.PurgeExpiredLocks(ctx, showtimeID, now); err != nil {
		return fmt.Errorf("purge expired locks: %w", err)
	}
	if _, err := d.repo.PurgeAbandonedBookings(ctx, now.Add(-d.cfg.AbandonAfter)); err != nil {
		return fmt.Errorf("purge abandoned bookings: %w", err)
	}
	return nil
}

// pendingHolds maps seats of live pending bookings to their owner and the
// time the grace window ends. It is empty unless pending bookings hold seats.
func (d *deps) pendingHolds(ctx context.Context, showtimeID uint64, now time.Time) (map[string]model.Lock, error) {
	out := map[string]model.Lock{}
	if !d.cfg.PendingHoldsSeats {
		return out, nil
	}
	pending, err := d.repo.PendingSeats(ctx, showtimeID, now.Add(-d.cfg.AbandonAfter))
	if err != nil {
		return nil, fmt.Errorf("pending seats: %w", err)
	}
	for _, p := range pending {
		for _, s := range p.Seats {
			out[s] = model.Lock{ShowtimeID: showtimeID, SeatID: s, HolderID: p.UserID, ExpiresAt: p.CreatedAt.Add(d.cfg.AbandonAfter)}
		}
	}
	return out, nil
}

func (d *deps) bookedSet(ctx context.Context, showtimeID uint64) (map[string]bool, error) {
	booked, err := d.repo.BookedSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("booked seats: %w", err)
	}
	set := make(map[string]bool, len(booked))
	for _, s := range booked {
		set[s] = true
	}
	return set, nil
}

// showtimeSeats loads the showtime and checks the seats against its grid.
func (d *deps) showtimeSeats(ctx context.Context, showtimeID uint64, seats []string) (*model.Showtime, []string, error) {
	if showtimeID == 0 {
		return nil, nil, invalid("showtime_id is required")
	}
	seats = model.UniqueSeats(seats)
	if len(seats) == 0 {
		return nil, nil, invalid("seats are required")
	}
	st, err := d.repo.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, nil, translate(err)
	}
	var bad []string
	for _, s := range seats {
		if !st.Screen.Contains(s) {
			bad = append(bad, s)
		}
	}
	if len(bad) > 0 {
		return nil, nil, invalid("seats not on screen %q: %v", st.Screen.Name, bad)
	}
	return st, seats, nil
}

// notify runs fn in the background with its own timeout.
func (d *deps) notify(log *zap.Logger, bookingID string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn("notification failed", zap.String("booking_id", bookingID), zap.Error(err))
		}
	}()
}

// translate maps repository sentinels onto the error taxonomy.
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrShowtimeNotFound),
		errors.Is(err, repository.ErrScreenNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrNoChange):
		return ErrAlreadyProcessed
	}
	return err
}

func providerError(op string, err error) error {
	return &ProviderError{Op: op, Message: err.Error(), Retryable: payment.Temporary(err), Err: err}
}
