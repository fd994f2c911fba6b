package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/reeltime/internal/model"
)

// MovieDetailRepo stores movie details.  Reads join the movie title.
type MovieDetailRepo struct{ db *sqlx.DB }

func NewMovieDetailRepo(db *sqlx.DB) *MovieDetailRepo { return &MovieDetailRepo{db: db} }

const movieDetailColumns = `md.id, md.movie_id, md.admin_id, md.hall_id, md.cinema_name,
 md.release_date, md.end_date, md.price_cents, md.showtimes, md.created_at, md.updated_at,
 m.title AS movie_title`

const movieDetailSelect = `SELECT ` + movieDetailColumns + `
FROM movie_details md
JOIN movies m ON m.id = md.movie_id`

// Create inserts a movie detail.  The (movie, admin, window) key is unique.
func (r *MovieDetailRepo) Create(ctx context.Context, d *model.MovieDetail) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movie_details (movie_id, admin_id, hall_id, cinema_name, release_date, end_date, price_cents, showtimes)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.MovieID, d.AdminID, d.HallID, d.CinemaName, model.DateOf(d.ReleaseDate), model.DateOf(d.EndDate),
		d.PriceCents, d.Showtimes)
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

func (r *MovieDetailRepo) GetByID(ctx context.Context, id uint64) (model.MovieDetail, error) {
	var d model.MovieDetail
	err := r.db.GetContext(ctx, &d, movieDetailSelect+` WHERE md.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrMovieDetailNotFound
	}
	return d, err
}

// ListRunning returns details whose window has not ended by on.
func (r *MovieDetailRepo) ListRunning(ctx context.Context, on time.Time) ([]model.MovieDetail, error) {
	var out []model.MovieDetail
	err := r.db.SelectContext(ctx, &out,
		movieDetailSelect+` WHERE md.end_date >= ? ORDER BY md.release_date, md.id`, model.DateOf(on))
	return out, err
}

func (r *MovieDetailRepo) ListByAdmin(ctx context.Context, adminID uint64) ([]model.MovieDetail, error) {
	var out []model.MovieDetail
	err := r.db.SelectContext(ctx, &out, movieDetailSelect+` WHERE md.admin_id = ? ORDER BY md.release_date, md.id`, adminID)
	return out, err
}
