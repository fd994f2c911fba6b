package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reeltime/internal/model"
)

// Catalog is the part of service.CatalogService the HTTP layer calls.
type Catalog interface {
	CreateMovie(ctx context.Context, p model.Principal, m *model.Movie) error
	ListMovies(ctx context.Context) ([]model.Movie, error)
	CreateHall(ctx context.Context, p model.Principal, h *model.Hall) error
	GetHall(ctx context.Context, p model.Principal, id uint64) (model.Hall, error)
	ListHalls(ctx context.Context, p model.Principal) ([]model.Hall, error)
	CreateMovieDetail(ctx context.Context, p model.Principal, d *model.MovieDetail) error
	UpdateShowtimes(ctx context.Context, p model.Principal, id uint64, showtimes model.Showtimes) (model.MovieDetail, error)
	ListMovieDetails(ctx context.Context) ([]model.MovieDetail, error)
	ListAdminMovieDetails(ctx context.Context, p model.Principal) ([]model.MovieDetail, error)
	UpdateHall(ctx context.Context, p model.Principal, id uint64, h *model.Hall) error
	DeleteHall(ctx context.Context, p model.Principal, id uint64) error
	DeleteMovieDetail(ctx context.Context, p model.Principal, id uint64) error
	DeleteMovie(ctx context.Context, p model.Principal, id uint64) error
}

// CatalogHandler serves the public listings and the admin catalogue.
type CatalogHandler struct {
	svc Catalog
	now func() time.Time
}

func NewCatalogHandler(svc Catalog) *CatalogHandler {
	if svc == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{svc: svc, now: time.Now}
}

type createMovieReq struct {
	Title           string `json:"title" validate:"required,max=255"`
	Description     string `json:"description"`
	Genre           string `json:"genre" validate:"max=100"`
	Director        string `json:"director" validate:"max=255"`
	DurationMinutes *int   `json:"duration_minutes" validate:"omitempty,min=1"`
	Rating          string `json:"rating" validate:"max=10"`
	ReleaseDate     string `json:"release_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type movieResp struct {
	model.Movie
	NowShowing bool `json:"now_showing"`
	ComingSoon bool `json:"coming_soon"`
}

type createHallReq struct {
	Name     string           `json:"name" validate:"required,max=100"`
	Capacity int              `json:"capacity" validate:"omitempty,min=1"`
	Layout   model.HallLayout `json:"layout" validate:"required,min=1"`
}

type createDetailReq struct {
	MovieID     uint64          `json:"movie_id" validate:"required"`
	HallID      *uint64         `json:"hall_id" validate:"omitempty,min=1"`
	CinemaName  string          `json:"cinema_name" validate:"max=255"`
	ReleaseDate string          `json:"release_date" validate:"required,datetime=2006-01-02"`
	EndDate     string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	PriceCents  int64           `json:"price_cents" validate:"min=0"`
	Showtimes   model.Showtimes `json:"showtimes" validate:"required,min=1"`
}

type showtimesReq struct {
	Showtimes model.Showtimes `json:"showtimes" validate:"required,min=1"`
}

// ListMovies handles GET /v1/movies.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, err := h.svc.ListMovies(c.Request().Context())
	if err != nil {
		return err
	}
	now := h.now()
	out := make([]movieResp, 0, len(movies))
	for _, m := range movies {
		out = append(out, movieResp{Movie: m, NowShowing: m.IsNowShowing(now), ComingSoon: m.ComingSoon(now)})
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": out})
}

// ListMovieDetails handles GET /v1/movie-details.
func (h *CatalogHandler) ListMovieDetails(c echo.Context) error {
	details, err := h.svc.ListMovieDetails(c.Request().Context())
	if err != nil {
		return err
	}
	if details == nil {
		details = []model.MovieDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"movie_details": details})
}

// CreateMovie handles POST /v1/admin/movies.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createMovieReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	release, err := parseDate(req.ReleaseDate, "release_date")
	if err != nil {
		return err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return err
	}
	m := &model.Movie{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Genre:           req.Genre,
		Director:        req.Director,
		DurationMinutes: req.DurationMinutes,
		Rating:          req.Rating,
		ReleaseDate:     release,
		EndDate:         end,
	}
	if err := h.svc.CreateMovie(c.Request().Context(), p, m); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// CreateHall handles POST /v1/admin/halls.
func (h *CatalogHandler) CreateHall(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createHallReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	hall := &model.Hall{Name: strings.TrimSpace(req.Name), Capacity: req.Capacity, Layout: req.Layout}
	if err := h.svc.CreateHall(c.Request().Context(), p, hall); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, hall)
}

// ListHalls handles GET /v1/admin/halls.
func (h *CatalogHandler) ListHalls(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	halls, err := h.svc.ListHalls(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if halls == nil {
		halls = []model.Hall{}
	}
	return c.JSON(http.StatusOK, echo.Map{"halls": halls})
}

// GetHall handles GET /v1/admin/halls/:id.
func (h *CatalogHandler) GetHall(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	hall, err := h.svc.GetHall(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hall)
}

// CreateMovieDetail handles POST /v1/admin/movie-details.
func (h *CatalogHandler) CreateMovieDetail(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createDetailReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	release, err := parseDate(req.ReleaseDate, "release_date")
	if err != nil {
		return err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return err
	}
	d := &model.MovieDetail{
		MovieID:     req.MovieID,
		HallID:      req.HallID,
		CinemaName:  strings.TrimSpace(req.CinemaName),
		ReleaseDate: release,
		EndDate:     end,
		PriceCents:  req.PriceCents,
		Showtimes:   req.Showtimes,
	}
	if err := h.svc.CreateMovieDetail(c.Request().Context(), p, d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

// ListAdminMovieDetails handles GET /v1/admin/movie-details.
func (h *CatalogHandler) ListAdminMovieDetails(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	details, err := h.svc.ListAdminMovieDetails(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if details == nil {
		details = []model.MovieDetail{}
	}
	return c.JSON(http.StatusOK, echo.Map{"movie_details": details})
}

// UpdateShowtimes handles PUT /v1/admin/movie-details/:id/showtimes.
func (h *CatalogHandler) UpdateShowtimes(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req showtimesReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	d, err := h.svc.UpdateShowtimes(c.Request().Context(), p, id, req.Showtimes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateHall handles PUT /v1/admin/halls/:id.
func (h *CatalogHandler) UpdateHall(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req createHallReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	hall := &model.Hall{Name: strings.TrimSpace(req.Name), Capacity: req.Capacity, Layout: req.Layout}
	if err := h.svc.UpdateHall(c.Request().Context(), p, id, hall); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hall)
}

// DeleteHall handles DELETE /v1/admin/halls/:id.
func (h *CatalogHandler) DeleteHall(c echo.Context) error {
	return h.deleteByID(c, h.svc.DeleteHall)
}

// DeleteMovieDetail handles DELETE /v1/admin/movie-details/:id.
func (h *CatalogHandler) DeleteMovieDetail(c echo.Context) error {
	return h.deleteByID(c, h.svc.DeleteMovieDetail)
}

// DeleteMovie handles DELETE /v1/admin/movies/:id.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	return h.deleteByID(c, h.svc.DeleteMovie)
}

func (h *CatalogHandler) deleteByID(c echo.Context, del func(ctx context.Context, p model.Principal, id uint64) error) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := del(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
