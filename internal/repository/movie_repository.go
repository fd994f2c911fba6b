package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/reeltime/internal/model"
)

// MovieRepo stores the movie catalogue.
type MovieRepo struct{ db *sqlx.DB }

func NewMovieRepo(db *sqlx.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, slug, description, genre, director, duration_minutes, rating,
 release_date, end_date, created_at`

// Create inserts the movie under a slug derived from its title.  A taken
// slug gets a numeric suffix.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	base := slug.Make(m.Title)
	if base == "" {
		base = "movie"
	}
	const q = `INSERT INTO movies (title, slug, description, genre, director, duration_minutes, rating, release_date, end_date)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for attempt := 1; attempt <= 20; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = base + "-" + strconv.Itoa(attempt)
		}
		res, err := r.db.ExecContext(ctx, q, m.Title, candidate, m.Description, m.Genre, m.Director,
			m.DurationMinutes, m.Rating, model.DateOf(m.ReleaseDate), model.DateOf(m.EndDate))
		if isDuplicate(err) {
			continue
		}
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m.ID = uint64(id)
		m.Slug = candidate
		return nil
	}
	return ErrConflict
}

func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	var m model.Movie
	err := r.db.GetContext(ctx, &m, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrMovieNotFound
	}
	return m, err
}

// List returns every movie, newest release first.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	var out []model.Movie
	err := r.db.SelectContext(ctx, &out, `SELECT `+movieColumns+` FROM movies ORDER BY release_date DESC, id DESC`)
	return out, err
}
