package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

func TestStatusUnknownShowtimeIsEmpty(t *testing.T) {
	f := newFixture(t)
	status, err := f.svc.Availability.Status(context.Background(), 404, 0)
	require.NoError(t, err)
	assert.Empty(t, status.Booked)
	assert.Empty(t, status.Locked)
	assert.Empty(t, status.Mine)
	assert.Equal(t, 3*time.Second, status.PollInterval)
	assert.Equal(t, f.now, status.Timestamp)
}

func TestStatusPartitionsSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirmed(t, 1, "A1")
	_, err := f.svc.Locks.Acquire(ctx, showtimeID, 1, []string{"B1"})
	require.NoError(t, err)
	_, err = f.svc.Locks.Acquire(ctx, showtimeID, 2, []string{"C1"})
	require.NoError(t, err)

	anon, err := f.svc.Availability.Status(ctx, showtimeID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, anon.Booked)
	require.Len(t, anon.Locked, 2)
	assert.Equal(t, "B1", anon.Locked[0].SeatID)
	assert.Equal(t, "C1", anon.Locked[1].SeatID)
	assert.Empty(t, anon.Mine)

	mine, err := f.svc.Availability.Status(ctx, showtimeID, 1)
	require.NoError(t, err)
	require.Len(t, mine.Locked, 1)
	assert.Equal(t, "C1", mine.Locked[0].SeatID)
	require.Len(t, mine.Mine, 1)
	assert.Equal(t, "B1", mine.Mine[0].SeatID)
}

func TestCheckSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirmed(t, 2, "A1")
	_, err := f.svc.Locks.Acquire(ctx, showtimeID, 2, []string{"A2"})
	require.NoError(t, err)
	_, err = f.svc.Locks.Acquire(ctx, showtimeID, 1, []string{"A3"})
	require.NoError(t, err)

	check, err := f.svc.Availability.Check(ctx, showtimeID, 1, []string{"A1", "A2", "A3", "A4"})
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.Equal(t, []string{"A1", "A2"}, check.Unavailable)
	assert.Equal(t, []string{"A3"}, check.Mine)

	check, err = f.svc.Availability.Check(ctx, showtimeID, 1, []string{"A3", "A4"})
	require.NoError(t, err)
	assert.True(t, check.Available)

	_, err = f.svc.Availability.Check(ctx, showtimeID, 1, []string{"Z99"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestLayout(t *testing.T) {
	f := newFixture(t)
	layout, err := f.svc.Availability.Layout(context.Background(), screenID)
	require.NoError(t, err)
	assert.Equal(t, 50, layout.Capacity)
	require.Len(t, layout.Rows, 5)
	assert.True(t, layout.Rows[0].Premium)
	assert.False(t, layout.Rows[3].Premium)
	assert.Equal(t, "E10", layout.Rows[4].Seats[9])

	_, err = f.svc.Availability.Layout(context.Background(), 77)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAbandonedBookingIsPurgedOnRead(t *testing.T) {
	f := newFixture(t, func(c *service.BookingConfig) { c.PendingHoldsSeats = true })
	ctx := context.Background()
	o := f.order(t, 1, "E5")

	status, err := f.svc.Availability.Status(ctx, showtimeID, 2)
	require.NoError(t, err)
	require.Len(t, status.Locked, 1)
	assert.Equal(t, "E5", status.Locked[0].SeatID)

	f.advance(31 * time.Minute)
	status, err = f.svc.Availability.Status(ctx, showtimeID, 2)
	require.NoError(t, err)
	assert.Empty(t, status.Locked)

	_, err = f.svc.Bookings.GetBooking(ctx, o.BookingID, 1, false)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.pay(ctx, o, "pay_late")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPendingBookingGraceWindow(t *testing.T) {
	t.Run("off", func(t *testing.T) {
		f := newFixture(t)
		f.order(t, 1, "B5")
		res, err := f.svc.Locks.Acquire(context.Background(), showtimeID, 2, []string{"B5"})
		require.NoError(t, err)
		assert.Equal(t, []string{"B5"}, res.Locked)
	})
	t.Run("on", func(t *testing.T) {
		f := newFixture(t, func(c *service.BookingConfig) { c.PendingHoldsSeats = true })
		ctx := context.Background()
		f.order(t, 1, "B5")

		res, err := f.svc.Locks.Acquire(ctx, showtimeID, 2, []string{"B5"})
		require.NoError(t, err)
		assert.Empty(t, res.Locked)
		assert.Equal(t, service.ReasonPending, res.Failed[0].Reason)

		_, err = f.svc.Orders.CreateOrder(ctx, service.CreateOrderInput{
			UserID: 2, ShowtimeID: showtimeID, Seats: []string{"B5"}, BaseAmountMinor: 100,
		})
		assert.Equal(t, []string{"B5"}, conflictSeats(t, err))

		mine, err := f.svc.Availability.Status(ctx, showtimeID, 1)
		require.NoError(t, err)
		require.Len(t, mine.Mine, 1)
		assert.Equal(t, f.now.Add(30*time.Minute), mine.Mine[0].ExpiresAt)
	})
}
