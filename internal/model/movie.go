package model

import "time"

// Movie is a catalogue entry shared by every cinema.
type Movie struct {
	ID              uint64    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Slug            string    `db:"slug" json:"slug"`
	Description     string    `db:"description" json:"description"`
	Genre           string    `db:"genre" json:"genre,omitempty"`
	Director        string    `db:"director" json:"director,omitempty"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Rating          string    `db:"rating" json:"rating,omitempty"`
	ReleaseDate     time.Time `db:"release_date" json:"release_date"`
	EndDate         time.Time `db:"end_date" json:"end_date"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// IsNowShowing reports whether today falls inside the release window.
func (m Movie) IsNowShowing(now time.Time) bool {
	d := DateOf(now)
	return !d.Before(DateOf(m.ReleaseDate)) && !d.After(DateOf(m.EndDate))
}

func (m Movie) ComingSoon(now time.Time) bool {
	return DateOf(now).Before(DateOf(m.ReleaseDate))
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
