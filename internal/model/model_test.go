package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reeltime/internal/inventory"
)

func TestHallLayoutAcceptsBothShapes(t *testing.T) {
	want := HallLayout{
		{Row: 0, Col: 0, Kind: inventory.KindNonSeat},
		{Row: 1, Col: 0, Kind: inventory.KindSeat},
	}

	var list HallLayout
	require.NoError(t, json.Unmarshal([]byte(`[{"row":0,"col":0,"type":"screen"},{"row":1,"col":0,"type":"seat"}]`), &list))
	assert.Equal(t, want, list)

	var env HallLayout
	require.NoError(t, json.Unmarshal([]byte(`{"seat_map":[{"row":0,"col":0,"type":"aisle"},{"row":1,"col":0,"kind":"Seat"}]}`), &env))
	assert.Equal(t, want, env)

	var bad HallLayout
	assert.Error(t, json.Unmarshal([]byte(`"grid"`), &bad))
}

func TestHallLayoutColumnRoundTrip(t *testing.T) {
	in := HallLayout{{Row: 2, Col: 3, Kind: inventory.KindSeat}}
	v, err := in.Value()
	require.NoError(t, err)

	var out HallLayout
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)

	var empty HallLayout
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
	assert.Error(t, empty.Scan(42))
}

func TestMovieDetailValidate(t *testing.T) {
	d := MovieDetail{
		ReleaseDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		PriceCents:  1200,
		Showtimes:   Showtimes{{Time: "18:00", Capacity: 50}},
	}
	assert.NoError(t, d.Validate())
	assert.True(t, d.Runs(time.Date(2026, 1, 31, 22, 0, 0, 0, time.UTC)))
	assert.False(t, d.Runs(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))

	same := d
	same.EndDate = same.ReleaseDate
	assert.NoError(t, same.Validate())

	backwards := d
	backwards.EndDate = d.ReleaseDate.AddDate(0, 0, -1)
	assert.ErrorIs(t, backwards.Validate(), ErrReleaseWindow)

	zeroCap := d
	zeroCap.Showtimes = Showtimes{{Time: "18:00", Capacity: 0}}
	assert.ErrorIs(t, zeroCap.Validate(), inventory.ErrShowtimesInvalid)
}

func TestSeatListScan(t *testing.T) {
	var s SeatList
	require.NoError(t, s.Scan(`["0-1","0-2"]`))
	assert.Equal(t, SeatList{"0-1", "0-2"}, s)

	v, err := SeatList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestShowingKey(t *testing.T) {
	s := Showing{MovieDetailID: 12, Date: time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC), Showtime: "18:00"}
	assert.Equal(t, "12:2026-05-02:18:00", s.Key())
}

func TestPrincipalOwns(t *testing.T) {
	user := Principal{UserID: 5}
	admin := Principal{UserID: 9, IsAdmin: true}

	assert.True(t, user.Owns(5, 9))
	assert.False(t, user.Owns(6, 5))
	assert.True(t, admin.Owns(5, 9))
	assert.False(t, admin.Owns(5, 10))

	assert.True(t, admin.Administers(9))
	assert.False(t, admin.Administers(10))
	assert.False(t, Principal{UserID: 9}.Administers(9))
}

func TestChangeCarriesDetailAdminOnly(t *testing.T) {
	r := Reservation{Status: inventory.StatusConfirmed, SelectedDate: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), SelectedShowtime: "18:00"}
	assert.True(t, r.Change(true).IsAdmin)
	assert.False(t, r.Change(false).IsAdmin)
	assert.Equal(t, "18:00", r.Change(false).Showtime)
}

func TestMovieWindow(t *testing.T) {
	m := Movie{
		ReleaseDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, m.ComingSoon(time.Date(2026, 5, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, m.IsNowShowing(time.Date(2026, 6, 30, 23, 0, 0, 0, time.UTC)))
	assert.False(t, m.IsNowShowing(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
}
