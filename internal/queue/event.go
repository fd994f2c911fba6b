package queue

import "time"

// Kind selects the message a notification renders to.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindCancellation Kind = "cancellation"
)

// NotificationEvent is the payload published after a reservation state
// change.  It is self-contained so the consumer never reads the database
// to render a message.
type NotificationEvent struct {
	Kind           Kind      `json:"kind"`
	ReservationID  uint64    `json:"reservation_id"`
	Code           string    `json:"code"`
	UserID         uint64    `json:"user_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	MovieTitle     string    `json:"movie_title"`
	CinemaName     string    `json:"cinema_name"`
	Date           string    `json:"date"` // YYYY-MM-DD
	Showtime       string    `json:"showtime"`
	Seats          []string  `json:"seats"`
	SeatLabels     []string  `json:"seat_labels"`
	NumberOfSeats  int       `json:"number_of_seats"`
	TotalCostCents int64     `json:"total_cost_cents"`
	OccurredAt     time.Time `json:"occurred_at"`
}
