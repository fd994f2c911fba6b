package inventory

import "fmt"

// CellKind tells seats from the cells around them.
type CellKind string

const (
	KindSeat    CellKind = "seat"
	KindNonSeat CellKind = "non-seat"
)

// SeatCell is one cell of a hall grid.  Non-seat cells mark aisles, the
// screen and gaps.
type SeatCell struct {
	Row  int      `json:"row"`
	Col  int      `json:"col"`
	Kind CellKind `json:"type"`
}

// ValidateLayout checks cell kinds, coordinates and uniqueness.  An empty
// layout is valid.
func ValidateLayout(cells []SeatCell) error {
	seen := make(map[SeatID]struct{}, len(cells))
	for i, c := range cells {
		if c.Kind != KindSeat && c.Kind != KindNonSeat {
			return fmt.Errorf("%w: cell %d has unknown type %q", ErrLayoutInvalid, i, c.Kind)
		}
		if c.Row < 0 || c.Col < 0 {
			return fmt.Errorf("%w: cell %d has negative coordinates", ErrLayoutInvalid, i)
		}
		id := SeatID{Row: c.Row, Col: c.Col}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: cell %s listed twice", ErrLayoutInvalid, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SeatCount counts seat cells.
func SeatCount(cells []SeatCell) int {
	n := 0
	for _, c := range cells {
		if c.Kind == KindSeat {
			n++
		}
	}
	return n
}

func seatSet(cells []SeatCell) map[SeatID]struct{} {
	m := make(map[SeatID]struct{}, len(cells))
	for _, c := range cells {
		if c.Kind == KindSeat {
			m[SeatID{Row: c.Row, Col: c.Col}] = struct{}{}
		}
	}
	return m
}

// MissingSeats returns the seat ids in held that cells no longer offer as
// seats, in the order given.  A layout without seats constrains nothing,
// and a malformed id counts as missing.
func MissingSeats(cells []SeatCell, held []string) []string {
	valid := seatSet(cells)
	if len(valid) == 0 {
		return nil
	}
	var out []string
	for _, raw := range held {
		id, err := ParseSeatID(raw)
		if err != nil {
			out = append(out, raw)
			continue
		}
		if _, ok := valid[id]; !ok {
			out = append(out, raw)
		}
	}
	return out
}
