package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// LockedSeat is a seat held by an active lock.
type LockedSeat struct {
	SeatID    string    `json:"seat_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SeatStatus partitions a showtime's seats. Seats in neither list are free.
type SeatStatus struct {
	ShowtimeID   uint64
	Booked       []string
	Locked       []LockedSeat // held by someone other than the viewer
	Mine         []LockedSeat // held by the viewer
	Timestamp    time.Time
	PollInterval time.Duration
}

// SeatCheck answers whether a candidate selection can still be locked.
type SeatCheck struct {
	Available   bool
	Unavailable []string
	Mine        []string
}

// ScreenLayout is the seat grid of a screen.
type ScreenLayout struct {
	Screen   model.Screen
	Rows     []model.LayoutRow
	Capacity int
}

// AvailabilityService resolves booked, locked and free seats.
type AvailabilityService struct {
	*deps
	log *zap.Logger
}

// Status returns the current seat partition of a showtime. Expired locks
// and abandoned bookings are purged first. A showtime without rows yields
// empty lists.
func (s *AvailabilityService) Status(ctx context.Context, showtimeID, viewerID uint64) (*SeatStatus, error) {
	now := s.clock()
	out := &SeatStatus{
		ShowtimeID:   showtimeID,
		Booked:       []string{},
		Locked:       []LockedSeat{},
		Mine:         []LockedSeat{},
		Timestamp:    now,
		PollInterval: s.cfg.PollInterval,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.sweep(ctx, showtimeID, now); err != nil {
			return err
		}
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

		for seat := range booked {
			out.Booked = append(out.Booked, seat)
		}
		seen := map[string]bool{}
		add := func(l model.Lock) {
			if booked[l.SeatID] || seen[l.SeatID] {
				return
			}
			seen[l.SeatID] = true
			ls := LockedSeat{SeatID: l.SeatID, ExpiresAt: l.ExpiresAt}
			if viewerID != 0 && l.HolderID == viewerID {
				out.Mine = append(out.Mine, ls)
			} else {
				out.Locked = append(out.Locked, ls)
			}
		}
		for _, l := range locks {
			add(l)
		}
		for _, l := range pending {
			add(l)
		}
		return nil
	})
	if err != nil {
		s.log.Error("seat status failed", zap.Uint64("showtime_id", showtimeID), zap.Error(err))
		return nil, err
	}
	sort.Strings(out.Booked)
	sortLocked(out.Locked)
	sortLocked(out.Mine)
	return out, nil
}

// Check reports which of the seats are booked or held by someone other
// than the viewer.
func (s *AvailabilityService) Check(ctx context.Context, showtimeID, viewerID uint64, seats []string) (*SeatCheck, error) {
	_, seats, err := s.showtimeSeats(ctx, showtimeID, seats)
	if err != nil {
		return nil, err
	}
	status, err := s.Status(ctx, showtimeID, viewerID)
	if err != nil {
		return nil, err
	}
	taken := map[string]bool{}
	for _, id := range status.Booked {
		taken[id] = true
	}
	for _, l := range status.Locked {
		taken[l.SeatID] = true
	}
	mine := map[string]bool{}
	for _, l := range status.Mine {
		mine[l.SeatID] = true
	}
	out := &SeatCheck{Unavailable: []string{}, Mine: []string{}}
	for _, id := range seats {
		switch {
		case taken[id]:
			out.Unavailable = append(out.Unavailable, id)
		case mine[id]:
			out.Mine = append(out.Mine, id)
		}
	}
	out.Available = len(out.Unavailable) == 0
	return out, nil
}

// Layout returns the seat grid of a screen.
func (s *AvailabilityService) Layout(ctx context.Context, screenID uint64) (*ScreenLayout, error) {
	if screenID == 0 {
		return nil, invalid("screen id is required")
	}
	sc, err := s.repo.GetScreen(ctx, screenID)
	if err != nil {
		return nil, translate(err)
	}
	return &ScreenLayout{Screen: *sc, Rows: sc.Layout(), Capacity: sc.Capacity()}, nil
}

func sortLocked(ls []LockedSeat) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].SeatID < ls[j].SeatID })
}
