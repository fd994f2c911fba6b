package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition(StatusCancelled, StatusPending))

	_, err := Transition(StatusCancelled, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusRank(t *testing.T) {
	assert.Less(t, StatusConfirmed.Rank(), StatusPending.Rank())
	assert.Less(t, StatusPending.Rank(), StatusCancelled.Rank())
	assert.False(t, Status("refunded").Valid())
}

func TestShowingStart(t *testing.T) {
	p := DefaultPolicy()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	for _, label := range []string{"18:30", "18:30:00", "6:30 PM", "6:30 pm"} {
		got, err := p.ShowingStart(date, label)
		require.NoError(t, err, label)
		assert.Equal(t, time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC), got, label)
	}

	got, err := p.ShowingStart(date, "evening")
	assert.Error(t, err)
	assert.Equal(t, date, got)
}

func TestPolicyCutoffs(t *testing.T) {
	p := DefaultPolicy()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	change := Change{Status: StatusConfirmed, Date: date, Showtime: "20:00"}

	tests := []struct {
		name      string
		now       time.Time
		admin     bool
		cancelErr error
		editErr   error
	}{
		{name: "day before", now: date.Add(-12 * time.Hour)},
		{name: "three hours before", now: date.Add(17 * time.Hour)},
		{name: "ninety minutes before", now: date.Add(18*time.Hour + 30*time.Minute), editErr: ErrCutoffPassed},
		{name: "thirty minutes before", now: date.Add(19*time.Hour + 30*time.Minute), cancelErr: ErrCutoffPassed, editErr: ErrCutoffPassed},
		{name: "after start", now: date.Add(21 * time.Hour), cancelErr: ErrCutoffPassed, editErr: ErrCutoffPassed},
		{name: "admin after start", now: date.Add(21 * time.Hour), admin: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := change
			c.IsAdmin = tt.admin
			err := p.CheckCancel(c, tt.now)
			if tt.cancelErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.cancelErr)
			}
			err = p.CheckEdit(c, tt.now)
			if tt.editErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.editErr)
			}
		})
	}
}

func TestPolicyCancelledIsFinal(t *testing.T) {
	p := DefaultPolicy()
	c := Change{Status: StatusCancelled, Date: time.Now().AddDate(0, 0, 7), Showtime: "20:00", IsAdmin: true}
	assert.ErrorIs(t, p.CheckCancel(c, time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, p.CheckEdit(c, time.Now()), ErrInvalidTransition)
}

func TestTotalCost(t *testing.T) {
	assert.Equal(t, int64(3750), TotalCost(1250, 3))
	assert.Equal(t, int64(0), TotalCost(1250, 0))
}

func TestValidateShowtimes(t *testing.T) {
	assert.NoError(t, ValidateShowtimes(nil))
	assert.NoError(t, ValidateShowtimes(tenSeats()))
	assert.ErrorIs(t, ValidateShowtimes([]ShowtimeDefinition{{Time: "", Capacity: 1}}), ErrShowtimesInvalid)
	assert.ErrorIs(t, ValidateShowtimes([]ShowtimeDefinition{{Time: "10:00", Capacity: 0}}), ErrShowtimesInvalid)
	assert.ErrorIs(t, ValidateShowtimes([]ShowtimeDefinition{{Time: "10:00", Capacity: 1}, {Time: "10:00", Capacity: 2}}), ErrShowtimesInvalid)
}

func TestValidateShowtimesSameClockTime(t *testing.T) {
	tests := []struct {
		a, b string
		dup  bool
	}{
		{"18:00", "6:00 PM", true},
		{"18:00", "18:00:00", true},
		{"Matinee", "matinee ", true},
		{"6:00 pm", "6:00 PM", true},
		{"18:00", "18:30", false},
		{"Matinee", "Evening", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			err := ValidateShowtimes([]ShowtimeDefinition{{Time: tt.a, Capacity: 1}, {Time: tt.b, Capacity: 1}})
			if tt.dup {
				assert.ErrorIs(t, err, ErrShowtimesInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLayout(t *testing.T) {
	assert.NoError(t, ValidateLayout(nil))
	assert.ErrorIs(t, ValidateLayout([]SeatCell{{Row: 0, Col: 0, Kind: "chair"}}), ErrLayoutInvalid)
	assert.ErrorIs(t, ValidateLayout([]SeatCell{{Row: -1, Col: 0, Kind: KindSeat}}), ErrLayoutInvalid)
	assert.ErrorIs(t, ValidateLayout([]SeatCell{{Row: 1, Col: 1, Kind: KindSeat}, {Row: 1, Col: 1, Kind: KindNonSeat}}), ErrLayoutInvalid)
	assert.Equal(t, 1, SeatCount([]SeatCell{{Row: 1, Col: 1, Kind: KindSeat}, {Row: 1, Col: 2, Kind: KindNonSeat}}))
}

func TestCompareShowtimes(t *testing.T) {
	assert.Negative(t, CompareShowtimes("9:00 AM", "13:00"))
	assert.Positive(t, CompareShowtimes("21:00", "6:45 PM"))
	assert.Zero(t, CompareShowtimes("18:00", "6:00 PM"))
	assert.Negative(t, CompareShowtimes("10:00", "late show"))
}

func TestMissingSeats(t *testing.T) {
	cells := []SeatCell{
		{Row: 0, Col: 0, Kind: KindSeat},
		{Row: 0, Col: 1, Kind: KindSeat},
		{Row: 0, Col: 2, Kind: KindNonSeat},
	}
	tests := []struct {
		name  string
		cells []SeatCell
		held  []string
		want  []string
	}{
		{name: "all still seats", cells: cells, held: []string{"0-0", "0-1"}},
		{name: "turned into aisle", cells: cells, held: []string{"0-1", "0-2"}, want: []string{"0-2"}},
		{name: "removed", cells: cells, held: []string{"3-3"}, want: []string{"3-3"}},
		{name: "malformed", cells: cells, held: []string{"x"}, want: []string{"x"}},
		{name: "no layout", held: []string{"9-9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingSeats(tt.cells, tt.held))
		})
	}
}
