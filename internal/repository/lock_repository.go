package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// LockRepo provides data access to the seat_locks table. The unique key
// on (showtime_id, seat_id) makes concurrent acquirers of one seat
// serialize on the row; only one of them can own it.
type LockRepo struct {
	db *sql.DB
}

// NewLockRepo returns a new LockRepo bound to the provided database.
func NewLockRepo(db *sql.DB) *LockRepo { return &LockRepo{db: db} }

// PurgeExpiredLocks removes locks whose lock_expires_at is at or before
// now. A zero showtimeID sweeps every showtime.
func (r *LockRepo) PurgeExpiredLocks(ctx context.Context, showtimeID uint64, now time.Time) (int64, error) {
	q := `DELETE FROM seat_locks WHERE lock_expires_at <= ?`
	args := []interface{}{now.UTC()}
	if showtimeID != 0 {
		q += ` AND showtime_id = ?`
		args = append(args, showtimeID)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AcquireLock claims one seat for lock.HolderID. An expired row is dropped
// first; the upsert then inserts a fresh row or, when the row already
// belongs to the same holder, pushes its expiry. A row held by someone
// else is left untouched. The holder returned is whoever owns the seat
// after the statement, so the caller won iff it equals lock.HolderID.
// The holder is read with FOR UPDATE: a plain read inside a REPEATABLE
// READ transaction returns the snapshot and can miss a row another
// transaction committed after it began.
func (r *LockRepo) AcquireLock(ctx context.Context, lock model.Lock, now time.Time) (uint64, error) {
	db := conn(ctx, r.db)
	if _, err := db.ExecContext(ctx,
		`DELETE FROM seat_locks WHERE showtime_id = ? AND seat_id = ? AND lock_expires_at <= ?`,
		lock.ShowtimeID, lock.SeatID, now.UTC(),
	); err != nil {
		return 0, err
	}
	const upsert = `INSERT INTO seat_locks (showtime_id, seat_id, user_id, lock_expires_at)
	                VALUES (?, ?, ?, ?)
	                ON DUPLICATE KEY UPDATE
	                    lock_expires_at = IF(user_id = VALUES(user_id), VALUES(lock_expires_at), lock_expires_at)`
	if _, err := db.ExecContext(ctx, upsert, lock.ShowtimeID, lock.SeatID, lock.HolderID, lock.ExpiresAt.UTC()); err != nil {
		return 0, err
	}
	var holder uint64
	err := db.QueryRowContext(ctx,
		`SELECT user_id FROM seat_locks WHERE showtime_id = ? AND seat_id = ? FOR UPDATE`,
		lock.ShowtimeID, lock.SeatID,
	).Scan(&holder)
	if err != nil {
		return 0, err
	}
	return holder, nil
}

// ReleaseLocks deletes the showtime's locks on seats. With no seats every
// lock of the showtime matches; a non-zero holderID restricts the delete
// to that holder. Missing rows are not an error.
func (r *LockRepo) ReleaseLocks(ctx context.Context, showtimeID uint64, seats []string, holderID uint64) (int64, error) {
	q := `DELETE FROM seat_locks WHERE showtime_id = ?`
	args := []interface{}{showtimeID}
	if len(seats) > 0 {
		q += ` AND seat_id IN (` + placeholders(len(seats)) + `)`
		for _, s := range seats {
			args = append(args, s)
		}
	}
	if holderID != 0 {
		q += ` AND user_id = ?`
		args = append(args, holderID)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveLocks lists locks of the showtime that expire after now, ordered
// by seat id.
func (r *LockRepo) ActiveLocks(ctx context.Context, showtimeID uint64, now time.Time) ([]model.Lock, error) {
	const q = `SELECT showtime_id, seat_id, user_id, lock_expires_at
	           FROM seat_locks
	           WHERE showtime_id = ? AND lock_expires_at > ?
	           ORDER BY seat_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, showtimeID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	locks := []model.Lock{}
	for rows.Next() {
		var l model.Lock
		if err := rows.Scan(&l.ShowtimeID, &l.SeatID, &l.HolderID, &l.ExpiresAt); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locks, nil
}
