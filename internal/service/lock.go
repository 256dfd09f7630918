package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Reasons a seat could not be locked.
const (
	ReasonBooked  = "booked"
	ReasonLocked  = "locked"
	ReasonPending = "pending_payment"
)

// FailedSeat is a seat the caller did not get.
type FailedSeat struct {
	SeatID string `json:"seat_id"`
	Reason string `json:"reason"`
}

// LockResult reports per seat outcomes. Some seats may lock while others fail.
type LockResult struct {
	Locked    []string
	Failed    []FailedSeat
	ExpiresAt time.Time
}

// LockService acquires and releases seat locks.
type LockService struct {
	*deps
	log *zap.Logger
}

// Acquire locks each seat for holderID unless it is sold or held by
// another holder. A seat the holder already owns gets a fresh expiry.
func (s *LockService) Acquire(ctx context.Context, showtimeID, holderID uint64, seats []string) (*LockResult, error) {
	if holderID == 0 {
		return nil, invalid("holder is required")
	}
	st, seats, err := s.showtimeSeats(ctx, showtimeID, seats)
	if err != nil {
		return nil, err
	}
	if st.Status == "cancelled" {
		return nil, invalid("showtime %d is cancelled", showtimeID)
	}

	now := s.clock()
	res := &LockResult{Locked: []string{}, Failed: []FailedSeat{}, ExpiresAt: now.Add(s.cfg.LockTTL)}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		res.Locked, res.Failed = res.Locked[:0], res.Failed[:0]
		if err := s.sweep(ctx, showtimeID, now); err != nil {
			return err
		}
		booked, err := s.bookedSet(ctx, showtimeID)
		if err != nil {
			return err
		}
		pending, err := s.pendingHolds(ctx, showtimeID, now)
		if err != nil {
			return err
		}
		for _, seat := range seats {
			if booked[seat] {
				res.Failed = append(res.Failed, FailedSeat{SeatID: seat, Reason: ReasonBooked})
				continue
			}
			if p, ok := pending[seat]; ok && p.HolderID != holderID {
				res.Failed = append(res.Failed, FailedSeat{SeatID: seat, Reason: ReasonPending})
				continue
			}
			owner, err := s.repo.AcquireLock(ctx, model.Lock{
				ShowtimeID: showtimeID,
				SeatID:     seat,
				HolderID:   holderID,
				ExpiresAt:  res.ExpiresAt,
			}, now)
			if err != nil {
				return err
			}
			if owner != holderID {
				res.Failed = append(res.Failed, FailedSeat{SeatID: seat, Reason: ReasonLocked})
				continue
			}
			res.Locked = append(res.Locked, seat)
		}
		return nil
	})
	if err != nil {
		s.log.Error("acquire locks failed", zap.Uint64("showtime_id", showtimeID), zap.Uint64("holder_id", holderID), zap.Error(err))
		return nil, err
	}
	s.log.Debug("locks acquired",
		zap.Uint64("showtime_id", showtimeID),
		zap.Uint64("holder_id", holderID),
		zap.Strings("locked", res.Locked),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// Release deletes the holder's locks on the seats, or on every seat of the
// showtime when seats is empty. Releasing nothing is not an error.
func (s *LockService) Release(ctx context.Context, showtimeID, holderID uint64, seats []string) (int64, error) {
	if showtimeID == 0 {
		return 0, invalid("showtime_id is required")
	}
	if holderID == 0 {
		return 0, invalid("holder is required")
	}
	ids := model.UniqueSeats(seats)
	if len(seats) > 0 && len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.ReleaseLocks(ctx, showtimeID, ids, holderID)
	if err != nil {
		s.log.Error("release locks failed", zap.Uint64("showtime_id", showtimeID), zap.Error(err))
		return 0, err
	}
	return n, nil
}
