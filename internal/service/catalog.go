package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/cache"
	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/repository"
)

// MovieStore reads and creates movies.  *repository.MovieRepo implements it.
type MovieStore interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	List(ctx context.Context) ([]model.Movie, error)
}

// HallStore persists halls.
type HallStore interface {
	Create(ctx context.Context, h *model.Hall) error
	GetByID(ctx context.Context, id uint64) (model.Hall, error)
	ListByAdmin(ctx context.Context, adminID uint64) ([]model.Hall, error)
}

// DetailStore persists movie details.  Changes to existing details go
// through CatalogTx.
type DetailStore interface {
	Create(ctx context.Context, d *model.MovieDetail) error
	GetByID(ctx context.Context, id uint64) (model.MovieDetail, error)
	ListRunning(ctx context.Context, on time.Time) ([]model.MovieDetail, error)
	ListByAdmin(ctx context.Context, adminID uint64) ([]model.MovieDetail, error)
}

// CatalogTx runs catalogue changes that seat writes must not interleave
// with.  *repository.CatalogRepo implements it.
type CatalogTx interface {
	InTx(ctx context.Context, fn func(w repository.CatalogWriter) error) error
}

// CatalogService manages movies, halls and the movie details admins
// publish.
type CatalogService struct {
	movies  MovieStore
	halls   HallStore
	details DetailStore
	tx      CatalogTx
	cache   RemainingCache
	log     *zap.Logger
	now     func() time.Time
}

// NewCatalogService wires the catalogue.  A nil cache or logger falls back
// to a no-op.
func NewCatalogService(movies MovieStore, halls HallStore, details DetailStore, tx CatalogTx, c RemainingCache, log *zap.Logger) *CatalogService {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{movies: movies, halls: halls, details: details, tx: tx, cache: c, log: log, now: time.Now}
}

func (s *CatalogService) CreateMovie(ctx context.Context, p model.Principal, m *model.Movie) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	if model.DateOf(m.ReleaseDate).After(model.DateOf(m.EndDate)) {
		return model.ErrReleaseWindow
	}
	if err := s.movies.Create(ctx, m); err != nil {
		return err
	}
	s.log.Info("movie created", zap.Uint64("movie_id", m.ID), zap.String("slug", m.Slug))
	return nil
}

func (s *CatalogService) ListMovies(ctx context.Context) ([]model.Movie, error) {
	return s.movies.List(ctx)
}

// CreateHall validates the layout and stores the hall for the caller.  A
// zero capacity defaults to the number of seat cells.
func (s *CatalogService) CreateHall(ctx context.Context, p model.Principal, h *model.Hall) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	if err := h.Layout.Validate(); err != nil {
		return err
	}
	h.AdminID = p.UserID
	if h.Capacity == 0 {
		h.Capacity = inventory.SeatCount(h.Layout.Cells())
	}
	return s.halls.Create(ctx, h)
}

func (s *CatalogService) GetHall(ctx context.Context, p model.Principal, id uint64) (model.Hall, error) {
	h, err := s.halls.GetByID(ctx, id)
	if err != nil {
		return model.Hall{}, err
	}
	if !p.IsAdmin || h.AdminID != p.UserID {
		return model.Hall{}, repository.ErrForbidden
	}
	return h, nil
}

func (s *CatalogService) ListHalls(ctx context.Context, p model.Principal) ([]model.Hall, error) {
	if !p.IsAdmin {
		return nil, ErrAdminOnly
	}
	return s.halls.ListByAdmin(ctx, p.UserID)
}

// CreateMovieDetail publishes a movie with its dates, price and showtimes.
// The hall, when given, must belong to the caller.
func (s *CatalogService) CreateMovieDetail(ctx context.Context, p model.Principal, d *model.MovieDetail) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	if err := d.Validate(); err != nil {
		return err
	}
	movie, err := s.movies.GetByID(ctx, d.MovieID)
	if err != nil {
		return err
	}
	if d.HallID != nil {
		h, err := s.halls.GetByID(ctx, *d.HallID)
		if err != nil {
			return err
		}
		if h.AdminID != p.UserID {
			return repository.ErrForbidden
		}
		if d.CinemaName == "" {
			d.CinemaName = h.Name
		}
	}
	d.AdminID = p.UserID
	if err := s.details.Create(ctx, d); err != nil {
		return err
	}
	d.MovieTitle = movie.Title
	s.log.Info("movie detail created", zap.Uint64("movie_detail_id", d.ID), zap.Uint64("movie_id", d.MovieID))
	return nil
}

// UpdateShowtimes replaces a detail's showtimes.  A showtime that still has
// seats held on some upcoming date cannot be dropped or shrunk below them.
// The detail row stays locked from the check to the write, so no booking
// lands in between.
func (s *CatalogService) UpdateShowtimes(ctx context.Context, p model.Principal, id uint64, showtimes model.Showtimes) (model.MovieDetail, error) {
	if !p.IsAdmin {
		return model.MovieDetail{}, ErrAdminOnly
	}
	if err := inventory.ValidateShowtimes(showtimes); err != nil {
		return model.MovieDetail{}, err
	}
	var d model.MovieDetail
	err := s.tx.InTx(ctx, func(w repository.CatalogWriter) error {
		var err error
		if d, err = w.DetailForUpdate(ctx, id); err != nil {
			return err
		}
		if !p.Administers(d.AdminID) {
			return repository.ErrForbidden
		}
		held, err := w.HeldPerShowtime(ctx, id, s.today())
		if err != nil {
			return fmt.Errorf("count held seats: %w", err)
		}
		if err := checkHeldShowtimes(showtimes, held); err != nil {
			return err
		}
		return w.UpdateShowtimes(ctx, id, showtimes)
	})
	if err != nil {
		return model.MovieDetail{}, err
	}
	s.invalidateDetail(ctx, id)
	d.Showtimes = showtimes
	s.log.Info("showtimes updated", zap.Uint64("movie_detail_id", id), zap.Int("showtimes", len(showtimes)))
	return d, nil
}

func checkHeldShowtimes(showtimes model.Showtimes, held map[string]int) error {
	for showtime, n := range held {
		if n <= 0 {
			continue
		}
		def, ok := inventory.FindShowtime(showtimes, showtime)
		if !ok {
			return fmt.Errorf("%w: showtime %q still has %d seats reserved", inventory.ErrShowtimesInvalid, showtime, n)
		}
		if def.Capacity < n {
			return fmt.Errorf("%w: showtime %q has %d seats reserved, capacity %d is too small", inventory.ErrShowtimesInvalid, showtime, n, def.Capacity)
		}
	}
	return nil
}

// UpdateHall renames a hall or replaces its layout.  Seats held by an
// upcoming reservation in any detail of the hall must stay seats.
func (s *CatalogService) UpdateHall(ctx context.Context, p model.Principal, id uint64, in *model.Hall) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	if err := in.Layout.Validate(); err != nil {
		return err
	}
	err := s.tx.InTx(ctx, func(w repository.CatalogWriter) error {
		cur, err := w.HallForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.AdminID != p.UserID {
			return repository.ErrForbidden
		}
		details, err := w.DetailsOfHallForUpdate(ctx, id)
		if err != nil {
			return err
		}
		held, err := w.HeldSeats(ctx, detailIDs(details), s.today())
		if err != nil {
			return fmt.Errorf("list held seats: %w", err)
		}
		if missing := inventory.MissingSeats(in.Layout.Cells(), held); len(missing) > 0 {
			return fmt.Errorf("%w: seats %s are reserved", ErrInUse, strings.Join(missing, ", "))
		}
		in.ID = id
		in.AdminID = cur.AdminID
		in.CreatedAt = cur.CreatedAt
		if in.Capacity == 0 {
			in.Capacity = inventory.SeatCount(in.Layout.Cells())
		}
		return w.UpdateHall(ctx, in)
	})
	if err != nil {
		return err
	}
	s.log.Info("hall updated", zap.Uint64("hall_id", id), zap.Int("capacity", in.Capacity))
	return nil
}

// DeleteHall removes one of the caller's halls.  A hall with upcoming
// active reservations in any of its details stays.
func (s *CatalogService) DeleteHall(ctx context.Context, p model.Principal, id uint64) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	err := s.tx.InTx(ctx, func(w repository.CatalogWriter) error {
		h, err := w.HallForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if h.AdminID != p.UserID {
			return repository.ErrForbidden
		}
		details, err := w.DetailsOfHallForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkUnused(ctx, w, details); err != nil {
			return err
		}
		return w.DeleteHall(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("hall deleted", zap.Uint64("hall_id", id))
	return nil
}

// DeleteMovieDetail withdraws a detail the caller published, together with
// its past and cancelled reservations.  Upcoming active ones block it.
func (s *CatalogService) DeleteMovieDetail(ctx context.Context, p model.Principal, id uint64) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	err := s.tx.InTx(ctx, func(w repository.CatalogWriter) error {
		d, err := w.DetailForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.Administers(d.AdminID) {
			return repository.ErrForbidden
		}
		if err := s.checkUnused(ctx, w, []model.MovieDetail{d}); err != nil {
			return err
		}
		return w.DeleteDetail(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidateDetail(ctx, id)
	s.log.Info("movie detail deleted", zap.Uint64("movie_detail_id", id))
	return nil
}

// DeleteMovie removes a movie and the caller's details of it.  A movie
// another admin has published stays, as does one with upcoming active
// reservations.
func (s *CatalogService) DeleteMovie(ctx context.Context, p model.Principal, id uint64) error {
	if !p.IsAdmin {
		return ErrAdminOnly
	}
	var details []model.MovieDetail
	err := s.tx.InTx(ctx, func(w repository.CatalogWriter) error {
		if _, err := w.MovieForUpdate(ctx, id); err != nil {
			return err
		}
		var err error
		if details, err = w.DetailsOfMovieForUpdate(ctx, id); err != nil {
			return err
		}
		for _, d := range details {
			if !p.Administers(d.AdminID) {
				return fmt.Errorf("%w: the movie is published by another admin", repository.ErrForbidden)
			}
		}
		if err := s.checkUnused(ctx, w, details); err != nil {
			return err
		}
		return w.DeleteMovie(ctx, id)
	})
	if err != nil {
		return err
	}
	for _, d := range details {
		s.invalidateDetail(ctx, d.ID)
	}
	s.log.Info("movie deleted", zap.Uint64("movie_id", id), zap.Int("movie_details", len(details)))
	return nil
}

func (s *CatalogService) checkUnused(ctx context.Context, w repository.CatalogWriter, details []model.MovieDetail) error {
	n, err := w.CountActive(ctx, detailIDs(details), s.today())
	if err != nil {
		return fmt.Errorf("count active reservations: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d upcoming reservations", ErrInUse, n)
	}
	return nil
}

func (s *CatalogService) invalidateDetail(ctx context.Context, id uint64) {
	if err := s.cache.InvalidateDetail(ctx, id); err != nil {
		s.log.Warn("remaining cache invalidate failed", zap.Uint64("movie_detail_id", id), zap.Error(err))
	}
}

func (s *CatalogService) today() time.Time { return model.DateOf(s.now()) }

func detailIDs(details []model.MovieDetail) []uint64 {
	ids := make([]uint64, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}
	return ids
}

// ListMovieDetails returns the details still running today.
func (s *CatalogService) ListMovieDetails(ctx context.Context) ([]model.MovieDetail, error) {
	return s.details.ListRunning(ctx, s.today())
}

// ListAdminMovieDetails returns the caller's own details.
func (s *CatalogService) ListAdminMovieDetails(ctx context.Context, p model.Principal) ([]model.MovieDetail, error) {
	if !p.IsAdmin {
		return nil, ErrAdminOnly
	}
	return s.details.ListByAdmin(ctx, p.UserID)
}
