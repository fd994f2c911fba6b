// Package repository holds the MySQL-backed stores.  Sentinel errors let
// the service and handler layers tell failure cases apart without looking
// at driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrForbidden is returned when the caller attempts an operation on a
	// resource they do not own.  Handlers translate it into a 403.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals a uniqueness or state conflict.  Handlers
	// translate it into a 409.
	ErrConflict = errors.New("conflict")

	ErrNotFound            = errors.New("not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrMovieNotFound       = errors.New("movie not found")
	ErrHallNotFound        = errors.New("hall not found")
	ErrMovieDetailNotFound = errors.New("movie detail not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailExists         = errors.New("email already exists")

	// ErrSeatTaken is returned when the per-showing seat index rejects a
	// row, i.e. another reservation already holds the seat.
	ErrSeatTaken = errors.New("seat already taken")
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func isMissingReference(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}
