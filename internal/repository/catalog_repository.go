package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/reeltime/internal/model"
)

// CatalogWriter is the set of statements behind a catalogue change that a
// concurrent seat write must not interleave with.  The ...ForUpdate reads
// hold their rows until commit; seat writers take a shared lock on the
// same detail and hall rows, so the checks below see every reservation
// that can still land.
type CatalogWriter interface {
	MovieForUpdate(ctx context.Context, id uint64) (model.Movie, error)
	HallForUpdate(ctx context.Context, id uint64) (model.Hall, error)
	DetailForUpdate(ctx context.Context, id uint64) (model.MovieDetail, error)
	DetailsOfHallForUpdate(ctx context.Context, hallID uint64) ([]model.MovieDetail, error)
	DetailsOfMovieForUpdate(ctx context.Context, movieID uint64) ([]model.MovieDetail, error)

	// HeldPerShowtime returns, per showtime label, the largest number of
	// seats held on any single date from from onwards.
	HeldPerShowtime(ctx context.Context, detailID uint64, from time.Time) (map[string]int, error)
	// HeldSeats returns the distinct seat ids held on the details from
	// from onwards.
	HeldSeats(ctx context.Context, detailIDs []uint64, from time.Time) ([]string, error)
	// CountActive counts the pending and confirmed reservations on the
	// details from from onwards.
	CountActive(ctx context.Context, detailIDs []uint64, from time.Time) (int, error)

	UpdateShowtimes(ctx context.Context, id uint64, showtimes model.Showtimes) error
	UpdateHall(ctx context.Context, h *model.Hall) error
	// DeleteDetail removes a detail with its reservations.
	DeleteDetail(ctx context.Context, id uint64) error
	// DeleteHall removes a hall.  Details in it keep running without one.
	DeleteHall(ctx context.Context, id uint64) error
	// DeleteMovie removes a movie with its details and their reservations.
	DeleteMovie(ctx context.Context, id uint64) error
}

// CatalogRepo runs catalogue changes under row locks.
type CatalogRepo struct{ db *sqlx.DB }

func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// InTx runs fn inside a transaction, committing when fn returns nil.
func (r *CatalogRepo) InTx(ctx context.Context, fn func(w CatalogWriter) error) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error { return fn(&catalogTx{tx: tx}) })
}

type catalogTx struct {
	tx *sqlx.Tx
}

func (t *catalogTx) MovieForUpdate(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := t.tx.GetContext(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE id = ? FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrMovieNotFound
	}
	return m, err
}

func (t *catalogTx) HallForUpdate(ctx context.Context, id uint64) (model.Hall, error) {
	var h model.Hall
	err := t.tx.GetContext(ctx, &h, `SELECT `+hallColumns+` FROM halls WHERE id = ? FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return h, ErrHallNotFound
	}
	return h, err
}

func (t *catalogTx) DetailForUpdate(ctx context.Context, id uint64) (model.MovieDetail, error) {
	var d model.MovieDetail
	err := t.tx.GetContext(ctx, &d, movieDetailSelect+` WHERE md.id = ? FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrMovieDetailNotFound
	}
	return d, err
}

func (t *catalogTx) DetailsOfHallForUpdate(ctx context.Context, hallID uint64) ([]model.MovieDetail, error) {
	var out []model.MovieDetail
	err := t.tx.SelectContext(ctx, &out, movieDetailSelect+` WHERE md.hall_id = ? ORDER BY md.id FOR UPDATE`, hallID)
	return out, err
}

func (t *catalogTx) DetailsOfMovieForUpdate(ctx context.Context, movieID uint64) ([]model.MovieDetail, error) {
	var out []model.MovieDetail
	err := t.tx.SelectContext(ctx, &out, movieDetailSelect+` WHERE md.movie_id = ? ORDER BY md.id FOR UPDATE`, movieID)
	return out, err
}

func (t *catalogTx) HeldPerShowtime(ctx context.Context, detailID uint64, from time.Time) (map[string]int, error) {
	q, args, err := sqlx.In(`SELECT selected_showtime, MAX(held) FROM (
 SELECT r.selected_showtime, r.selected_date, SUM(r.number_of_seats) AS held
 FROM reservations r
 WHERE r.movie_detail_id = ? AND r.selected_date >= ? AND r.status IN (?)
 GROUP BY r.selected_showtime, r.selected_date) t
 GROUP BY selected_showtime`, detailID, model.DateOf(from), activeStatuses)
	if err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryxContext(ctx, t.tx.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			showtime string
			held     int
		)
		if err := rows.Scan(&showtime, &held); err != nil {
			return nil, err
		}
		out[showtime] = held
	}
	return out, rows.Err()
}

func (t *catalogTx) HeldSeats(ctx context.Context, detailIDs []uint64, from time.Time) ([]string, error) {
	if len(detailIDs) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT DISTINCT seat_id FROM reservation_seats
 WHERE movie_detail_id IN (?) AND selected_date >= ? ORDER BY seat_id`, detailIDs, model.DateOf(from))
	if err != nil {
		return nil, err
	}
	var out []string
	err = t.tx.SelectContext(ctx, &out, t.tx.Rebind(q), args...)
	return out, err
}

func (t *catalogTx) CountActive(ctx context.Context, detailIDs []uint64, from time.Time) (int, error) {
	if len(detailIDs) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`SELECT COUNT(*) FROM reservations
 WHERE movie_detail_id IN (?) AND selected_date >= ? AND status IN (?)`, detailIDs, model.DateOf(from), activeStatuses)
	if err != nil {
		return 0, err
	}
	var n int
	err = t.tx.GetContext(ctx, &n, t.tx.Rebind(q), args...)
	return n, err
}

func (t *catalogTx) UpdateShowtimes(ctx context.Context, id uint64, showtimes model.Showtimes) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE movie_details SET showtimes = ? WHERE id = ?`, showtimes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieDetailNotFound
	}
	return nil
}

func (t *catalogTx) UpdateHall(ctx context.Context, h *model.Hall) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE halls SET name = ?, capacity = ?, layout = ? WHERE id = ?`, h.Name, h.Capacity, h.Layout, h.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (t *catalogTx) DeleteDetail(ctx context.Context, id uint64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM reservations WHERE movie_detail_id = ?`, id); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM movie_details WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieDetailNotFound
	}
	return nil
}

func (t *catalogTx) DeleteHall(ctx context.Context, id uint64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM halls WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHallNotFound
	}
	return nil
}

func (t *catalogTx) DeleteMovie(ctx context.Context, id uint64) error {
	stmts := []string{
		`DELETE r FROM reservations r JOIN movie_details md ON md.id = r.movie_detail_id WHERE md.movie_id = ?`,
		`DELETE FROM movie_details WHERE movie_id = ?`,
	}
	for _, q := range stmts {
		if _, err := t.tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMovieNotFound
	}
	return nil
}
