package model

import "time"

// Lock is a short-lived advisory reservation of one seat for one holder.
// (ShowtimeID, SeatID) is unique. A lock whose ExpiresAt is not after the
// current time counts as absent.
type Lock struct {
	ShowtimeID uint64    // seat_locks.showtime_id
	SeatID     string    // seat_locks.seat_id
	HolderID   uint64    // seat_locks.user_id
	ExpiresAt  time.Time // seat_locks.lock_expires_at
}

// Active reports whether the lock is still in force at now.
func (l Lock) Active(now time.Time) bool { return l.ExpiresAt.After(now) }
