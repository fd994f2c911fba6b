package inventory

import "errors"

// Errors returned by the admission and lifecycle checks.  All of them are
// recoverable and map to a rejected request at the HTTP boundary.
var (
	ErrCapacityExceeded  = errors.New("not enough seats available for this showing")
	ErrSeatConflict      = errors.New("some of the selected seats are already reserved, please select different seats")
	ErrMalformedSeatID   = errors.New("malformed seat identifier")
	ErrShowtimeNotFound  = errors.New("showtime not found")
	ErrInvalidTransition = errors.New("invalid reservation status transition")
	ErrCutoffPassed      = errors.New("too close to the showing")
	ErrLayoutInvalid     = errors.New("invalid hall layout")
	ErrShowtimesInvalid  = errors.New("invalid showtimes")
	ErrSeatCount         = errors.New("invalid number of seats")
)
