package inventory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SeatID addresses a single cell of a hall layout.  Its wire form is "row-col".
type SeatID struct {
	Row int
	Col int
}

func (s SeatID) String() string { return strconv.Itoa(s.Row) + "-" + strconv.Itoa(s.Col) }

// ParseSeatID parses "row-col" where both parts are non-negative integers.
func ParseSeatID(raw string) (SeatID, error) {
	r, c, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return SeatID{}, fmt.Errorf("%w: %q", ErrMalformedSeatID, raw)
	}
	row, err := parseIndex(r)
	if err != nil {
		return SeatID{}, fmt.Errorf("%w: %q", ErrMalformedSeatID, raw)
	}
	col, err := parseIndex(c)
	if err != nil {
		return SeatID{}, fmt.Errorf("%w: %q", ErrMalformedSeatID, raw)
	}
	return SeatID{Row: row, Col: col}, nil
}

func parseIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}

// ParseSeatIDs parses every identifier and rejects duplicates.  The result
// keeps the input order.
func ParseSeatIDs(raw []string) ([]SeatID, error) {
	out := make([]SeatID, 0, len(raw))
	seen := make(map[SeatID]struct{}, len(raw))
	for _, r := range raw {
		id, err := ParseSeatID(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q selected twice", ErrMalformedSeatID, r)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// SeatStrings renders ids in their canonical wire form.
func SeatStrings(ids []SeatID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// SortSeats orders ids row first, then column.
func SortSeats(ids []SeatID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Row != ids[j].Row {
			return ids[i].Row < ids[j].Row
		}
		return ids[i].Col < ids[j].Col
	})
}

// canonical returns the "row-col" form of raw, or raw trimmed when it does
// not parse, so stored legacy values still compare by exact text.
func canonical(raw string) string {
	if id, err := ParseSeatID(raw); err == nil {
		return id.String()
	}
	return strings.TrimSpace(raw)
}
