package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

func TestBookingQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	paid := f.confirmed(t, 1, "A1")
	f.order(t, 1, "A2")
	f.confirmed(t, 2, "A3")

	mine, err := f.svc.Bookings.ListUserBookings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, paid.BookingID, mine[0].BookingID)

	view, err := f.svc.Bookings.GetBooking(ctx, paid.BookingID, 1, false)
	require.NoError(t, err)
	assert.Len(t, view.Payments, 1)

	_, err = f.svc.Bookings.GetBooking(ctx, paid.BookingID, 2, false)
	assert.ErrorIs(t, err, service.ErrNotFound)

	view, err = f.svc.Bookings.GetBooking(ctx, paid.BookingID, 2, true)
	require.NoError(t, err)
	assert.Equal(t, "One", view.UserName)

	recent, err := f.svc.Bookings.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	recent, err = f.svc.Bookings.ListRecent(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestQuoteRoundsHalfUp(t *testing.T) {
	cfg := service.DefaultBookingConfig()
	tax, total := cfg.Quote(50000)
	assert.Equal(t, int64(9000), tax)
	assert.Equal(t, int64(59000), total)

	tax, total = cfg.Quote(25)
	assert.Equal(t, int64(5), tax) // 4.5 rounds up
	assert.Equal(t, int64(30), total)
}
