package inventory

import (
	"fmt"
	"sort"
)

// Holding is the part of a reservation the ledger needs: how many seats it
// holds, which ones, and whether it still holds them.
type Holding struct {
	ReservationID uint64
	Status        Status
	Count         int
	Seats         []string
}

// Held sums the seat counts of active holdings.
func Held(holdings []Holding) int {
	n := 0
	for _, h := range holdings {
		if h.Status.Active() {
			n += h.Count
		}
	}
	return n
}

// Remaining is capacity minus seats held by active holdings for the
// showtime.  An unknown showtime has no capacity, so the result is 0.  The
// value is not clamped and goes negative for an over-booked showing.
func Remaining(defs []ShowtimeDefinition, showtime string, holdings []Holding) int {
	def, ok := FindShowtime(defs, showtime)
	if !ok {
		return 0
	}
	return def.Capacity - Held(holdings)
}

// CheckCapacity fails when more seats are requested than remain.
func CheckCapacity(remaining, requested int) error {
	if requested > remaining {
		return ErrCapacityExceeded
	}
	return nil
}

// TakenSeats is the union of seats held by active holdings other than
// exclude, in canonical form.
func TakenSeats(holdings []Holding, exclude uint64) map[string]struct{} {
	taken := make(map[string]struct{})
	for _, h := range holdings {
		if !h.Status.Active() || (exclude != 0 && h.ReservationID == exclude) {
			continue
		}
		for _, s := range h.Seats {
			taken[canonical(s)] = struct{}{}
		}
	}
	return taken
}

// FindConflicts returns the candidate seats already taken, sorted.
func FindConflicts(holdings []Holding, exclude uint64, candidate []SeatID) []SeatID {
	taken := TakenSeats(holdings, exclude)
	var out []SeatID
	for _, id := range candidate {
		if _, ok := taken[id.String()]; ok {
			out = append(out, id)
		}
	}
	SortSeats(out)
	return out
}

// CheckConflict reports ErrSeatConflict without naming the seats involved.
func CheckConflict(holdings []Holding, exclude uint64, candidate []SeatID) error {
	if len(FindConflicts(holdings, exclude, candidate)) > 0 {
		return ErrSeatConflict
	}
	return nil
}

// Request is a proposed seat selection for one showing.
type Request struct {
	Showtimes []ShowtimeDefinition
	Showtime  string
	Layout    []SeatCell // optional; when it has seats, every requested seat must be one of them
	Seats     []string
	Exclude   uint64 // reservation being edited, 0 for a new one
}

// Admission is the result of a successful Admit.
type Admission struct {
	Seats     []SeatID
	Remaining int // after the request is applied
}

// Admit runs every write-time check in order: seat ids, showtime, conflicts,
// capacity.  The caller is expected to hold the showing's critical section
// and to have read holdings inside it.
func Admit(req Request, holdings []Holding) (Admission, error) {
	if len(req.Seats) == 0 {
		return Admission{}, fmt.Errorf("%w: no seats selected", ErrSeatCount)
	}
	seats, err := ParseSeatIDs(req.Seats)
	if err != nil {
		return Admission{}, err
	}
	if valid := seatSet(req.Layout); len(valid) > 0 {
		for _, id := range seats {
			if _, ok := valid[id]; !ok {
				return Admission{}, fmt.Errorf("%w: %s is not a seat in this hall", ErrMalformedSeatID, id)
			}
		}
	}
	if _, ok := FindShowtime(req.Showtimes, req.Showtime); !ok {
		return Admission{}, fmt.Errorf("%w: %w", ErrCapacityExceeded, ErrShowtimeNotFound)
	}
	if err := CheckConflict(holdings, req.Exclude, seats); err != nil {
		return Admission{}, err
	}

	others := make([]Holding, 0, len(holdings))
	for _, h := range holdings {
		if req.Exclude == 0 || h.ReservationID != req.Exclude {
			others = append(others, h)
		}
	}
	remaining := Remaining(req.Showtimes, req.Showtime, others)
	if err := CheckCapacity(remaining, len(seats)); err != nil {
		return Admission{}, err
	}
	return Admission{Seats: seats, Remaining: remaining - len(seats)}, nil
}

// TakenList returns TakenSeats as a sorted slice, for seat maps.
func TakenList(holdings []Holding) []string {
	taken := TakenSeats(holdings, 0)
	out := make([]string, 0, len(taken))
	for s := range taken {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
