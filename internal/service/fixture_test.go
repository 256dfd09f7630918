package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/repository/memory"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

const (
	testSecret = "test_secret"
	showtimeID = uint64(10)
	screenID   = uint64(1)
	movieID    = uint64(3)
)

type fakeGateway struct {
	mu        sync.Mutex
	orders    []payment.OrderRequest
	refunds   []payment.RefundRequest
	orderErr  error
	refundErr error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.orders = append(g.orders, req)
	return &payment.Order{ID: fmt.Sprintf("order_%d", len(g.orders)), Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, req payment.RefundRequest) (*payment.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return &payment.Refund{ID: "rfnd_" + paymentID, PaymentID: paymentID, Amount: req.Amount, Status: "processed"}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(orderID, paymentID, signature, testSecret)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type note struct {
	kind      string
	bookingID string
	refundID  string
}

type recordingNotifier struct {
	ch  chan note
	err error
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, b model.BookingDetail) error {
	n.ch <- note{kind: "confirmed", bookingID: b.BookingID}
	return n.err
}

func (n *recordingNotifier) BookingRefunded(_ context.Context, b model.BookingDetail, refundID, _ string) error {
	n.ch <- note{kind: "refunded", bookingID: b.BookingID, refundID: refundID}
	return n.err
}

func (n *recordingNotifier) wait(t *testing.T) note {
	t.Helper()
	select {
	case got := <-n.ch:
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
		return note{}
	}
}

type fixture struct {
	store *memory.Store
	gw    *fakeGateway
	notes *recordingNotifier
	svc   *service.Service
	now   time.Time
}

func newFixture(t *testing.T, tweak ...func(*service.BookingConfig)) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		gw:    &fakeGateway{},
		notes: &recordingNotifier{ch: make(chan note, 8)},
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.store.AddScreen(model.Screen{ID: screenID, Name: "Screen 1", ScreenType: "2D", RowsCount: 5, SeatsPerRow: 10, PriceStandardMinor: 20000, PricePremiumMinor: 25000})
	f.store.AddShowtime(model.Showtime{ID: showtimeID, MovieID: movieID, ScreenID: screenID, ShowDate: "2025-03-01", ShowTime: "18:30", Status: "active", MovieTitle: "Inception"})
	f.store.AddUser(model.User{ID: 1, Email: "one@example.com", Name: "One"})
	f.store.AddUser(model.User{ID: 2, Email: "two@example.com", Name: "Two"})

	cfg := service.DefaultBookingConfig()
	for _, fn := range tweak {
		fn(&cfg)
	}
	f.svc = service.NewService(f.store, f.gw, f.notes, cfg, zap.NewNop(),
		service.WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// order locks the seats for the user and opens an order for them.
func (f *fixture) order(t *testing.T, userID uint64, seats ...string) *service.OrderResult {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.Locks.Acquire(ctx, showtimeID, userID, seats)
	require.NoError(t, err)
	require.Len(t, res.Locked, len(seats))
	out, err := f.svc.Orders.CreateOrder(ctx, service.CreateOrderInput{
		UserID: userID, MovieID: movieID, ScreenID: screenID, ShowtimeID: showtimeID,
		Seats: seats, BaseAmountMinor: 50000,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) pay(ctx context.Context, o *service.OrderResult, paymentID string) (*model.BookingDetail, error) {
	return f.svc.Orders.VerifyAndConfirm(ctx, service.VerifyInput{
		OrderID:   o.OrderID,
		PaymentID: paymentID,
		Signature: payment.Sign(o.OrderID, paymentID, testSecret),
		BookingID: o.BookingID,
	})
}

// confirmed runs the whole checkout for the seats.
func (f *fixture) confirmed(t *testing.T, userID uint64, seats ...string) *model.BookingDetail {
	t.Helper()
	o := f.order(t, userID, seats...)
	d, err := f.pay(context.Background(), o, "pay_"+o.BookingID)
	require.NoError(t, err)
	require.Equal(t, "confirmed", f.notes.wait(t).kind)
	return d
}

func conflictSeats(t *testing.T, err error) []string {
	t.Helper()
	var ce *service.ConflictError
	require.True(t, errors.As(err, &ce), "want ConflictError, got %v", err)
	return ce.Seats
}
