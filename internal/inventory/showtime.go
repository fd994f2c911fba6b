package inventory

import (
	"fmt"
	"strings"
	"time"
)

// ShowtimeDefinition is one scheduled time of day with its seat capacity.
type ShowtimeDefinition struct {
	Time     string `json:"time"`
	Capacity int    `json:"capacity"`
}

// ValidateShowtimes requires a non-empty time and a positive capacity for
// every definition.  No two times may name the same clock time or differ
// only in case and surrounding space.
func ValidateShowtimes(defs []ShowtimeDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for i, d := range defs {
		if strings.TrimSpace(d.Time) == "" {
			return fmt.Errorf("%w: showtime %d has no time", ErrShowtimesInvalid, i)
		}
		if d.Capacity <= 0 {
			return fmt.Errorf("%w: showtime %q needs a positive capacity", ErrShowtimesInvalid, d.Time)
		}
		key := showtimeKey(d.Time)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: showtime %q listed twice", ErrShowtimesInvalid, d.Time)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func showtimeKey(label string) string {
	if t, err := ParseClock(label); err == nil {
		return t.Format("15:04:05")
	}
	return strings.ToLower(strings.TrimSpace(label))
}

// FindShowtime looks a definition up by exact string match.
func FindShowtime(defs []ShowtimeDefinition, showtime string) (ShowtimeDefinition, bool) {
	for _, d := range defs {
		if d.Time == showtime {
			return d, true
		}
	}
	return ShowtimeDefinition{}, false
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM", "03:04 PM"}

// ParseClock parses a showtime label into a time of day on 0000-01-01.
func ParseClock(showtime string) (time.Time, error) {
	s := strings.ToUpper(strings.TrimSpace(showtime))
	for _, l := range clockLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot read time %q", ErrShowtimesInvalid, showtime)
}

// CompareShowtimes orders by parsed time of day; labels that do not parse
// sort after those that do and compare as text among themselves.
func CompareShowtimes(a, b string) int {
	ta, errA := ParseClock(a)
	tb, errB := ParseClock(b)
	switch {
	case errA == nil && errB == nil:
		return ta.Compare(tb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
