package model

import (
	"database/sql/driver"
	"strconv"
	"time"

	"github.com/iliyamo/reeltime/internal/inventory"
)

// Reservation records a user's claim on seats for one showing, identified
// by (MovieDetailID, SelectedDate, SelectedShowtime).
//
// Fields:
//  Seats            – "row-col" identifiers, also mirrored row by row in
//                     reservation_seats while the reservation is active.
//  NumberOfSeats    – seats held; equal to len(Seats) after every write.
//  TotalCostCents   – price × NumberOfSeats at the time of the last write.
//  ConfirmationSent – set by the notification consumer.
//  ReminderSent     – set by the notification consumer.
type Reservation struct {
	ID               uint64           `db:"id" json:"id"`                               // reservations.id
	UserID           uint64           `db:"user_id" json:"user_id"`                     // reservations.user_id
	MovieDetailID    uint64           `db:"movie_detail_id" json:"movie_detail_id"`     // reservations.movie_detail_id
	CinemaName       string           `db:"cinema_name" json:"cinema_name"`             // reservations.cinema_name
	SelectedDate     time.Time        `db:"selected_date" json:"selected_date"`         // reservations.selected_date (DATE)
	SelectedShowtime string           `db:"selected_showtime" json:"selected_showtime"` // reservations.selected_showtime
	Seats            SeatList         `db:"seats" json:"seats"`                         // reservations.seats (JSON)
	NumberOfSeats    int              `db:"number_of_seats" json:"number_of_seats"`     // reservations.number_of_seats
	Status           inventory.Status `db:"status" json:"status"`                       // reservations.status
	TotalCostCents   int64            `db:"total_cost_cents" json:"total_cost_cents"`   // reservations.total_cost_cents
	Code             string           `db:"code" json:"code"`                           // reservations.code
	ConfirmationSent bool             `db:"confirmation_sent" json:"confirmation_sent"` // reservations.confirmation_sent
	ReminderSent     bool             `db:"reminder_sent" json:"reminder_sent"`         // reservations.reminder_sent
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`               // reservations.created_at
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`               // reservations.updated_at
}

// Holding projects the reservation onto what the seat ledger counts.
func (r Reservation) Holding() inventory.Holding {
	return inventory.Holding{
		ReservationID: r.ID,
		Status:        r.Status,
		Count:         r.NumberOfSeats,
		Seats:         []string(r.Seats),
	}
}

// Change projects the reservation onto what the cutoff policy checks.
// byDetailAdmin is true only when the caller administers the reservation's
// movie detail.
func (r Reservation) Change(byDetailAdmin bool) inventory.Change {
	return inventory.Change{
		Status:   r.Status,
		Date:     r.SelectedDate,
		Showtime: r.SelectedShowtime,
		IsAdmin:  byDetailAdmin,
	}
}

// ReservationView is a reservation joined with the fields listings show.
type ReservationView struct {
	Reservation
	MovieTitle string     `db:"movie_title" json:"movie_title"`
	UserEmail  string     `db:"user_email" json:"user_email,omitempty"`
	UserName   string     `db:"user_name" json:"-"`
	AdminID    uint64     `db:"admin_id" json:"-"`
	PriceCents int64      `db:"price_cents" json:"-"`
	HallLayout HallLayout `db:"hall_layout" json:"-"`
	SeatLabels []string   `db:"-" json:"seat_labels"`
}

// Showing identifies one occurrence of a showtime.
type Showing struct {
	MovieDetailID uint64
	Date          time.Time
	Showtime      string
}

// Key is the ledger key used for locks and caches.
func (s Showing) Key() string {
	return strconv.FormatUint(s.MovieDetailID, 10) + ":" + DateOf(s.Date).Format("2006-01-02") + ":" + s.Showtime
}

// SeatList is a JSON array of seat identifiers.
type SeatList []string

func (s *SeatList) Scan(src any) error { return scanJSON(src, (*[]string)(s)) }

func (s SeatList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return valueJSON([]string(s))
}
