// Package repository implements storage on MySQL. Sentinel errors let the
// service layer tell missing rows and constraint violations apart from
// infrastructure failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrScreenNotFound   = errors.New("screen not found")
	ErrBookingNotFound  = errors.New("booking not found")
	// ErrSeatTaken is returned when a seat is already sold for the showtime.
	ErrSeatTaken = errors.New("seat already booked")
	// ErrNoChange indicates the UPDATE matched no row in the expected state.
	ErrNoChange = errors.New("no change")
)

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
