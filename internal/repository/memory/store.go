// Package memory is an in-process implementation of the booking storage
// used by tests and local demos. Transactions are serialized and roll back
// by restoring a snapshot.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

type seatKey struct {
	showtimeID uint64
	seatID     string
}

type data struct {
	locks     map[seatKey]model.Lock
	bookings  map[uint64]model.Booking
	byCode    map[string]uint64
	booked    map[seatKey]uint64
	payments  []model.Payment
	nextID    uint64
	nextPayID uint64
}

func (d *data) clone() data {
	c := data{
		locks:     make(map[seatKey]model.Lock, len(d.locks)),
		bookings:  make(map[uint64]model.Booking, len(d.bookings)),
		byCode:    make(map[string]uint64, len(d.byCode)),
		booked:    make(map[seatKey]uint64, len(d.booked)),
		payments:  append([]model.Payment(nil), d.payments...),
		nextID:    d.nextID,
		nextPayID: d.nextPayID,
	}
	for k, v := range d.locks {
		c.locks[k] = v
	}
	for k, v := range d.bookings {
		v.Seats = append([]string(nil), v.Seats...)
		c.bookings[k] = v
	}
	for k, v := range d.byCode {
		c.byCode[k] = v
	}
	for k, v := range d.booked {
		c.booked[k] = v
	}
	return c
}

// Store keeps everything in maps. The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	screens   map[uint64]model.Screen
	showtimes map[uint64]model.Showtime
	users     map[uint64]model.User
	d         data
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		screens:   map[uint64]model.Screen{},
		showtimes: map[uint64]model.Showtime{},
		users:     map[uint64]model.User{},
		d: data{
			locks:    map[seatKey]model.Lock{},
			bookings: map[uint64]model.Booking{},
			byCode:   map[string]uint64{},
			booked:   map[seatKey]uint64{},
		},
	}
}

// AddScreen registers a screen.
func (s *Store) AddScreen(sc model.Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[sc.ID] = sc
}

// AddShowtime registers a showtime; its Screen is filled from the
// registered screen when present.
func (s *Store) AddShowtime(st model.Showtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.screens[st.ScreenID]; ok {
		st.Screen = sc
	}
	s.showtimes[st.ID] = st
}

// AddUser registers a user for booking display fields.
func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

type txKey struct{}

// WithTx runs fn with every other transaction excluded. An error from fn
// restores the state captured when the transaction began.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// ---- locks ----

func (s *Store) PurgeExpiredLocks(_ context.Context, showtimeID uint64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, l := range s.d.locks {
		if (showtimeID == 0 || k.showtimeID == showtimeID) && !l.Active(now) {
			delete(s.d.locks, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) AcquireLock(_ context.Context, lock model.Lock, now time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := seatKey{lock.ShowtimeID, lock.SeatID}
	cur, ok := s.d.locks[k]
	if ok && cur.Active(now) && cur.HolderID != lock.HolderID {
		return cur.HolderID, nil
	}
	s.d.locks[k] = lock
	return lock.HolderID, nil
}

func (s *Store) ReleaseLocks(_ context.Context, showtimeID uint64, seats []string, holderID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(seats))
	for _, id := range seats {
		want[id] = true
	}
	var n int64
	for k, l := range s.d.locks {
		if k.showtimeID != showtimeID {
			continue
		}
		if len(seats) > 0 && !want[k.seatID] {
			continue
		}
		if holderID != 0 && l.HolderID != holderID {
			continue
		}
		delete(s.d.locks, k)
		n++
	}
	return n, nil
}

func (s *Store) ActiveLocks(_ context.Context, showtimeID uint64, now time.Time) ([]model.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Lock{}
	for k, l := range s.d.locks {
		if k.showtimeID == showtimeID && l.Active(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

// ---- bookings ----

func (s *Store) PurgeAbandonedBookings(_ context.Context, createdBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, b := range s.d.bookings {
		if b.IsPending() && b.CreatedAt.Before(createdBefore) {
			delete(s.d.bookings, id)
			delete(s.d.byCode, b.BookingID)
			n++
		}
	}
	return n, nil
}

func (s *Store) BookedSeats(_ context.Context, showtimeID uint64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for k := range s.d.booked {
		if k.showtimeID == showtimeID {
			out = append(out, k.seatID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) PendingSeats(_ context.Context, showtimeID uint64, createdAfter time.Time) ([]model.PendingSeats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PendingSeats
	for _, b := range s.d.bookings {
		if b.ShowtimeID == showtimeID && b.IsPending() && !b.CreatedAt.Before(createdAfter) {
			out = append(out, model.PendingSeats{UserID: b.UserID, Seats: append([]string(nil), b.Seats...), CreatedAt: b.CreatedAt})
		}
	}
	return out, nil
}

func (s *Store) CreateBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.nextID++
	b.ID = s.d.nextID
	b.UpdatedAt = b.CreatedAt
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	s.d.bookings[b.ID] = cp
	s.d.byCode[b.BookingID] = b.ID
	return nil
}

func (s *Store) GetBooking(_ context.Context, bookingID string, _ bool) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.d.byCode[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b := s.d.bookings[id]
	b.Seats = append([]string(nil), b.Seats...)
	return &b, nil
}

func (s *Store) ConfirmBooking(_ context.Context, b *model.Booking, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.d.bookings[b.ID]
	if !ok || !cur.IsPending() {
		return repository.ErrNoChange
	}
	for _, seat := range cur.Seats {
		if _, taken := s.d.booked[seatKey{cur.ShowtimeID, seat}]; taken {
			return repository.ErrSeatTaken
		}
	}
	for _, seat := range cur.Seats {
		s.d.booked[seatKey{cur.ShowtimeID, seat}] = cur.ID
	}
	cur.PaymentStatus = model.PaymentCompleted
	cur.BookingStatus = model.BookingConfirmed
	cur.ExternalPaymentID = paymentID
	cur.UpdatedAt = time.Now().UTC()
	s.d.bookings[cur.ID] = cur
	b.PaymentStatus, b.BookingStatus, b.ExternalPaymentID = cur.PaymentStatus, cur.BookingStatus, paymentID
	return nil
}

func (s *Store) RefundBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.d.bookings[b.ID]
	if !ok || cur.PaymentStatus != model.PaymentCompleted {
		return repository.ErrNoChange
	}
	for k, owner := range s.d.booked {
		if owner == cur.ID {
			delete(s.d.booked, k)
		}
	}
	cur.PaymentStatus = model.PaymentRefunded
	cur.BookingStatus = model.BookingCancelled
	cur.UpdatedAt = time.Now().UTC()
	s.d.bookings[cur.ID] = cur
	b.PaymentStatus, b.BookingStatus = cur.PaymentStatus, cur.BookingStatus
	return nil
}

func (s *Store) detail(b model.Booking) model.BookingDetail {
	b.Seats = append([]string(nil), b.Seats...)
	d := model.BookingDetail{Booking: b}
	if st, ok := s.showtimes[b.ShowtimeID]; ok {
		d.MovieTitle, d.ShowDate, d.ShowTime = st.MovieTitle, st.ShowDate, st.ShowTime
	}
	if sc, ok := s.screens[b.ScreenID]; ok {
		d.ScreenName = sc.Name
	}
	if u, ok := s.users[b.UserID]; ok {
		d.UserEmail, d.UserName = u.Email, u.Name
	}
	return d
}

func (s *Store) GetBookingDetail(_ context.Context, bookingID string) (*model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.d.byCode[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	d := s.detail(s.d.bookings[id])
	return &d, nil
}

func (s *Store) sortedDetails(keep func(model.Booking) bool) []model.BookingDetail {
	out := []model.BookingDetail{}
	for _, b := range s.d.bookings {
		if keep(b) {
			out = append(out, s.detail(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) ListConfirmedByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedDetails(func(b model.Booking) bool {
		return b.UserID == userID && b.BookingStatus == model.BookingConfirmed
	}), nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sortedDetails(func(model.Booking) bool { return true })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- payments ----

func (s *Store) AppendPayment(_ context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.nextPayID++
	p.ID = s.d.nextPayID
	s.d.payments = append(s.d.payments, *p)
	return nil
}

func (s *Store) ListPayments(_ context.Context, bookingID uint64) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Payment{}
	for _, p := range s.d.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ---- showtimes ----

func (s *Store) GetShowtime(_ context.Context, id uint64) (*model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[id]
	if !ok {
		return nil, repository.ErrShowtimeNotFound
	}
	return &st, nil
}

// LockShowtime only checks existence; WithTx already serializes.
func (s *Store) LockShowtime(ctx context.Context, id uint64) error {
	_, err := s.GetShowtime(ctx, id)
	return err
}

func (s *Store) GetScreen(_ context.Context, id uint64) (*model.Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.screens[id]
	if !ok {
		return nil, repository.ErrScreenNotFound
	}
	return &sc, nil
}
