package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/reeltime/internal/repository"
)

var (
	// ErrAdminOnly is returned to non-admin callers of admin operations.
	ErrAdminOnly = fmt.Errorf("%w: admin only", repository.ErrForbidden)

	// ErrBusy means the showing's lock could not be taken in time.  The
	// request can be retried as is.
	ErrBusy = errors.New("this showing is busy, please try again")

	ErrNotShowing = errors.New("the movie is not showing on the selected date")

	// ErrInUse refuses a catalogue change that would strand pending or
	// confirmed reservations.
	ErrInUse = fmt.Errorf("%w: still held by active reservations", repository.ErrConflict)

	// ErrOnBehalf is returned when a caller books for another user without
	// administering the movie detail.
	ErrOnBehalf = fmt.Errorf("%w: only the movie detail's admin may book for another user", repository.ErrForbidden)
)
