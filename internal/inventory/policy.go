package inventory

import (
	"fmt"
	"time"
)

// Policy holds the cutoffs applied to non-admin changes before a showing.
type Policy struct {
	CancelCutoff time.Duration
	EditCutoff   time.Duration
	Location     *time.Location
}

// DefaultPolicy is a one-hour cancel cutoff and a two-hour edit cutoff in UTC.
func DefaultPolicy() Policy {
	return Policy{CancelCutoff: time.Hour, EditCutoff: 2 * time.Hour, Location: time.UTC}
}

func (p Policy) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// ShowingStart combines a calendar date with a showtime label in the
// policy's location.  A label that does not parse yields midnight of the
// date together with the parse error.
func (p Policy) ShowingStart(date time.Time, showtime string) (time.Time, error) {
	y, m, d := date.Date()
	clock, err := ParseClock(showtime)
	if err != nil {
		return time.Date(y, m, d, 0, 0, 0, 0, p.loc()), err
	}
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, p.loc()), nil
}

// Change describes a reservation a principal wants to edit or cancel.
// IsAdmin is set only for the admin of the showing's movie detail and lifts
// the cutoffs.
type Change struct {
	Status   Status
	Date     time.Time
	Showtime string
	IsAdmin  bool
}

// CheckCancel enforces the cancellation rules at now.
func (p Policy) CheckCancel(c Change, now time.Time) error {
	if _, err := Transition(c.Status, StatusCancelled); err != nil {
		return err
	}
	return p.checkCutoff(c, p.CancelCutoff, "cancel", now)
}

// CheckEdit enforces the edit rules at now.
func (p Policy) CheckEdit(c Change, now time.Time) error {
	if !c.Status.Active() {
		return fmt.Errorf("%w: a %s reservation cannot be edited", ErrInvalidTransition, c.Status)
	}
	return p.checkCutoff(c, p.EditCutoff, "edit", now)
}

func (p Policy) checkCutoff(c Change, cutoff time.Duration, action string, now time.Time) error {
	if c.IsAdmin {
		return nil
	}
	start, _ := p.ShowingStart(c.Date, c.Showtime)
	if start.Sub(now) < cutoff {
		return fmt.Errorf("%w: reservations can no longer %s within %s of the showing", ErrCutoffPassed, action, cutoff)
	}
	return nil
}

// TotalCost is price times seat count, in cents.
func TotalCost(priceCents int64, seats int) int64 {
	return priceCents * int64(seats)
}
