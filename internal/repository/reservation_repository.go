package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/model"
)

// ReservationWriter is the set of statements that run inside the
// transaction guarding one showing.
type ReservationWriter interface {
	// ActiveForShowing returns pending and confirmed reservations for the
	// showing and row-locks them, so concurrent writers queue up.
	ActiveForShowing(ctx context.Context, s model.Showing) ([]model.Reservation, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	Insert(ctx context.Context, r *model.Reservation) error
	ReplaceSeats(ctx context.Context, r *model.Reservation) error
	SetStatus(ctx context.Context, id uint64, status inventory.Status) error
	Delete(ctx context.Context, id uint64) error

	// LockDetail reads a movie detail and its hall layout under a shared
	// lock held until commit.  Catalogue changes lock the same rows for
	// update, so a seat write sees either the old or the new showtimes and
	// layout for its whole transaction.
	LockDetail(ctx context.Context, id uint64) (model.MovieDetail, model.HallLayout, error)
}

// ReservationRepo stores reservations and mirrors the seats of active ones
// into reservation_seats, whose unique (showing, seat) key rejects double
// bookings even if two writers got past the application checks.
type ReservationRepo struct {
	db *sqlx.DB
}

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var activeStatuses = []string{string(inventory.StatusPending), string(inventory.StatusConfirmed)}

const reservationColumns = `r.id, r.user_id, r.movie_detail_id, r.cinema_name, r.selected_date,
 r.selected_showtime, r.seats, r.number_of_seats, r.status, r.total_cost_cents, r.code,
 r.confirmation_sent, r.reminder_sent, r.created_at, r.updated_at`

const reservationViewSelect = `SELECT ` + reservationColumns + `,
 m.title AS movie_title, u.email AS user_email, u.name AS user_name,
 md.admin_id, md.price_cents, h.layout AS hall_layout
FROM reservations r
JOIN movie_details md ON md.id = r.movie_detail_id
JOIN movies m ON m.id = md.movie_id
JOIN users u ON u.id = r.user_id
LEFT JOIN halls h ON h.id = md.hall_id`

// InTx runs fn inside a transaction, committing when fn returns nil.
func (r *ReservationRepo) InTx(ctx context.Context, fn func(w ReservationWriter) error) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error { return fn(&reservationTx{tx: tx}) })
}

// Get loads one reservation with its listing fields.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.ReservationView, error) {
	var v model.ReservationView
	err := r.db.GetContext(ctx, &v, reservationViewSelect+` WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrReservationNotFound
	}
	return v, err
}

// ListForUser returns the user's reservations on or after from.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID uint64, from time.Time) ([]model.ReservationView, error) {
	var out []model.ReservationView
	err := r.db.SelectContext(ctx, &out,
		reservationViewSelect+` WHERE r.user_id = ? AND r.selected_date >= ?`, userID, model.DateOf(from))
	return out, err
}

// ListForAdmin returns reservations against the admin's movie details on or
// after from.
func (r *ReservationRepo) ListForAdmin(ctx context.Context, adminID uint64, from time.Time) ([]model.ReservationView, error) {
	var out []model.ReservationView
	err := r.db.SelectContext(ctx, &out,
		reservationViewSelect+` WHERE md.admin_id = ? AND r.selected_date >= ?`, adminID, model.DateOf(from))
	return out, err
}

// ListDueReminders returns confirmed reservations on date whose reminder
// has not been sent.
func (r *ReservationRepo) ListDueReminders(ctx context.Context, date time.Time) ([]model.ReservationView, error) {
	var out []model.ReservationView
	err := r.db.SelectContext(ctx, &out,
		reservationViewSelect+` WHERE r.status = ? AND r.reminder_sent = 0 AND r.selected_date = ? ORDER BY r.id`,
		string(inventory.StatusConfirmed), model.DateOf(date))
	return out, err
}

// ListUnsentConfirmations returns confirmed reservations created before
// olderThan whose confirmation email never went out.
func (r *ReservationRepo) ListUnsentConfirmations(ctx context.Context, olderThan time.Time, limit int) ([]model.ReservationView, error) {
	var out []model.ReservationView
	err := r.db.SelectContext(ctx, &out,
		reservationViewSelect+` WHERE r.status = ? AND r.confirmation_sent = 0 AND r.created_at < ? ORDER BY r.id LIMIT ?`,
		string(inventory.StatusConfirmed), olderThan.UTC(), limit)
	return out, err
}

// ActiveForShowing is the unlocked read used by the availability queries.
func (r *ReservationRepo) ActiveForShowing(ctx context.Context, s model.Showing) ([]model.Reservation, error) {
	return selectActive(ctx, r.db, s, false)
}

// ActiveForDate returns active reservations for every showtime of a detail
// on one date.
func (r *ReservationRepo) ActiveForDate(ctx context.Context, detailID uint64, date time.Time) ([]model.Reservation, error) {
	q, args, err := sqlx.In(`SELECT `+reservationColumns+` FROM reservations r
 WHERE r.movie_detail_id = ? AND r.selected_date = ? AND r.status IN (?)`,
		detailID, model.DateOf(date), activeStatuses)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...)
	return out, err
}

func (r *ReservationRepo) MarkConfirmationSent(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reservations SET confirmation_sent = 1 WHERE id = ?`, id)
	return err
}

func (r *ReservationRepo) MarkReminderSent(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE reservations SET reminder_sent = 1 WHERE id = ?`, id)
	return err
}

type reservationTx struct {
	tx *sqlx.Tx
}

func (t *reservationTx) ActiveForShowing(ctx context.Context, s model.Showing) ([]model.Reservation, error) {
	return selectActive(ctx, t.tx, s, true)
}

func (t *reservationTx) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := t.tx.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ? FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrReservationNotFound
	}
	return res, err
}

type lockedDetail struct {
	model.MovieDetail
	HallLayout model.HallLayout `db:"hall_layout"`
}

func (t *reservationTx) LockDetail(ctx context.Context, id uint64) (model.MovieDetail, model.HallLayout, error) {
	var d lockedDetail
	err := t.tx.GetContext(ctx, &d, `SELECT `+movieDetailColumns+`, h.layout AS hall_layout
FROM movie_details md
JOIN movies m ON m.id = md.movie_id
LEFT JOIN halls h ON h.id = md.hall_id
WHERE md.id = ? LOCK IN SHARE MODE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d.MovieDetail, nil, ErrMovieDetailNotFound
	}
	return d.MovieDetail, d.HallLayout, err
}

func (t *reservationTx) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, movie_detail_id, cinema_name, selected_date,
 selected_showtime, seats, number_of_seats, status, total_cost_cents, code)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := t.tx.ExecContext(ctx, q, res.UserID, res.MovieDetailID, res.CinemaName,
		model.DateOf(res.SelectedDate), res.SelectedShowtime, res.Seats, res.NumberOfSeats,
		string(res.Status), res.TotalCostCents, res.Code)
	if isMissingReference(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	if err := t.insertSeats(ctx, res); err != nil {
		return err
	}
	return t.tx.GetContext(ctx, res, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, res.ID)
}

func (t *reservationTx) ReplaceSeats(ctx context.Context, res *model.Reservation) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM reservation_seats WHERE reservation_id = ?`, res.ID); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE reservations SET seats = ?, number_of_seats = ?, total_cost_cents = ? WHERE id = ?`,
		res.Seats, res.NumberOfSeats, res.TotalCostCents, res.ID); err != nil {
		return err
	}
	return t.insertSeats(ctx, res)
}

// SetStatus updates the status; leaving the active set releases the seat rows.
func (t *reservationTx) SetStatus(ctx context.Context, id uint64, status inventory.Status) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	if !status.Active() {
		_, err = t.tx.ExecContext(ctx, `DELETE FROM reservation_seats WHERE reservation_id = ?`, id)
	}
	return err
}

func (t *reservationTx) Delete(ctx context.Context, id uint64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// insertSeats writes one reservation_seats row per seat in a single
// statement.  A duplicate key means another reservation holds a seat.
func (t *reservationTx) insertSeats(ctx context.Context, res *model.Reservation) error {
	if len(res.Seats) == 0 || !res.Status.Active() {
		return nil
	}
	placeholders := make([]string, 0, len(res.Seats))
	args := make([]any, 0, len(res.Seats)*5)
	date := model.DateOf(res.SelectedDate)
	for _, s := range res.Seats {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, res.ID, res.MovieDetailID, date, res.SelectedShowtime, s)
	}
	q := `INSERT INTO reservation_seats (reservation_id, movie_detail_id, selected_date, selected_showtime, seat_id) VALUES ` +
		strings.Join(placeholders, ", ")
	if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
		if isDuplicate(err) {
			return ErrSeatTaken
		}
		return err
	}
	return nil
}

func selectActive(ctx context.Context, q sqlx.ExtContext, s model.Showing, forUpdate bool) ([]model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r
 WHERE r.movie_detail_id = ? AND r.selected_date = ? AND r.selected_showtime = ? AND r.status IN (?)
 ORDER BY r.id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	query, args, err := sqlx.In(query, s.MovieDetailID, model.DateOf(s.Date), s.Showtime, activeStatuses)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	err = sqlx.SelectContext(ctx, q, &out, q.Rebind(query), args...)
	return out, err
}
