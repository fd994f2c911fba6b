package inventory

import (
	"sort"
	"strconv"
)

// Labeler turns "row-col" ids into display labels such as "B3".  Rows are
// lettered from the first row that has a seat; seats are numbered from the
// right-hand end of their row.
type Labeler struct {
	minRow int
	rows   map[int][]int
}

// NewLabeler indexes the seat cells of a layout.  Non-seat cells take no
// label.
func NewLabeler(cells []SeatCell) *Labeler {
	l := &Labeler{rows: map[int][]int{}}
	first := true
	for _, c := range cells {
		if c.Kind != KindSeat {
			continue
		}
		if first || c.Row < l.minRow {
			l.minRow = c.Row
			first = false
		}
		l.rows[c.Row] = append(l.rows[c.Row], c.Col)
	}
	for r := range l.rows {
		sort.Sort(sort.Reverse(sort.IntSlice(l.rows[r])))
	}
	return l
}

// Label returns the display label for raw, or false when raw does not parse
// or is not a seat of the layout.
func (l *Labeler) Label(raw string) (string, bool) {
	id, err := ParseSeatID(raw)
	if err != nil {
		return "", false
	}
	cols, ok := l.rows[id.Row]
	if !ok {
		return "", false
	}
	for i, c := range cols {
		if c == id.Col {
			return RowLabel(id.Row-l.minRow) + strconv.Itoa(i+1), true
		}
	}
	return "", false
}

// Labels formats every id it can and returns the rest in skipped.
func (l *Labeler) Labels(raw []string) (labels, skipped []string) {
	labels = make([]string, 0, len(raw))
	for _, r := range raw {
		if lbl, ok := l.Label(r); ok {
			labels = append(labels, lbl)
		} else {
			skipped = append(skipped, r)
		}
	}
	return labels, skipped
}

// RowLabel converts a zero-based index to A..Z, AA..AZ, BA...
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}
