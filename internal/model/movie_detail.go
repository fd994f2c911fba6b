package model

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/iliyamo/reeltime/internal/inventory"
)

// ErrReleaseWindow rejects a window that ends before it starts.
var ErrReleaseWindow = errors.New("release date must not be after end date")

// MovieDetail is one admin's publication of a movie: the dates it runs,
// the ticket price, the hall and the daily showtimes.  Unique per
// (movie, admin, release_date, end_date).
type MovieDetail struct {
	ID          uint64    `db:"id" json:"id"`                     // movie_details.id
	MovieID     uint64    `db:"movie_id" json:"movie_id"`         // movie_details.movie_id
	AdminID     uint64    `db:"admin_id" json:"admin_id"`         // movie_details.admin_id
	HallID      *uint64   `db:"hall_id" json:"hall_id,omitempty"` // movie_details.hall_id (nullable)
	CinemaName  string    `db:"cinema_name" json:"cinema_name"`   // movie_details.cinema_name
	ReleaseDate time.Time `db:"release_date" json:"release_date"` // movie_details.release_date
	EndDate     time.Time `db:"end_date" json:"end_date"`         // movie_details.end_date
	PriceCents  int64     `db:"price_cents" json:"price_cents"`   // movie_details.price_cents
	Showtimes   Showtimes `db:"showtimes" json:"showtimes"`       // movie_details.showtimes (JSON)
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	MovieTitle string `db:"movie_title" json:"movie_title,omitempty"` // joined from movies.title
}

// Validate checks the release window and the showtime definitions.
func (d MovieDetail) Validate() error {
	if DateOf(d.ReleaseDate).After(DateOf(d.EndDate)) {
		return ErrReleaseWindow
	}
	if d.PriceCents < 0 {
		return errors.New("price must not be negative")
	}
	return inventory.ValidateShowtimes(d.Showtimes)
}

// Runs reports whether date is inside the release window.
func (d MovieDetail) Runs(date time.Time) bool {
	day := DateOf(date)
	return !day.Before(DateOf(d.ReleaseDate)) && !day.After(DateOf(d.EndDate))
}

// Showtimes is the ordered list of daily showtimes, stored as JSON.
type Showtimes []inventory.ShowtimeDefinition

func (s Showtimes) Definitions() []inventory.ShowtimeDefinition {
	return []inventory.ShowtimeDefinition(s)
}

func (s *Showtimes) Scan(src any) error { return scanJSON(src, (*[]inventory.ShowtimeDefinition)(s)) }

func (s Showtimes) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return valueJSON([]inventory.ShowtimeDefinition(s))
}
