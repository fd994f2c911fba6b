package inventory

import "fmt"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Active reports whether a reservation in this status holds its seats.
func (s Status) Active() bool { return s == StatusPending || s == StatusConfirmed }

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.Active() || s == StatusCancelled }

// Rank orders statuses for listings: confirmed, pending, cancelled.
func (s Status) Rank() int {
	switch s {
	case StatusConfirmed:
		return 0
	case StatusPending:
		return 1
	case StatusCancelled:
		return 2
	}
	return 99
}

// CanTransition reports whether from -> to is allowed.  Nothing leaves
// cancelled.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled
	}
	return false
}

// Transition returns to when from -> to is allowed and wraps
// ErrInvalidTransition otherwise.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}
