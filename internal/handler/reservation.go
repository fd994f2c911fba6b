package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/service"
)

// Reservations is the part of service.ReservationService the HTTP layer
// calls.
type Reservations interface {
	Remaining(ctx context.Context, detailID uint64, date time.Time, showtime string) (int, error)
	Availability(ctx context.Context, detailID uint64, date time.Time) (service.Availability, error)
	Create(ctx context.Context, p model.Principal, in service.CreateInput) (model.ReservationView, error)
	Edit(ctx context.Context, p model.Principal, id uint64, in service.EditInput) (model.ReservationView, error)
	Cancel(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error)
	Delete(ctx context.Context, p model.Principal, id uint64) error
	Get(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error)
	List(ctx context.Context, p model.Principal) ([]model.ReservationView, error)
	SendReminders(ctx context.Context, today time.Time) (int, error)
	Today() time.Time
}

// ReservationHandler serves the reservation and seat availability routes.
type ReservationHandler struct {
	svc Reservations
}

func NewReservationHandler(svc Reservations) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

type createReservationReq struct {
	UserID           uint64   `json:"user_id" validate:"omitempty,min=1"`
	MovieDetailID    uint64   `json:"movie_detail_id" validate:"required"`
	SelectedDate     string   `json:"selected_date" validate:"required,datetime=2006-01-02"`
	SelectedShowtime string   `json:"selected_showtime" validate:"required"`
	Seats            []string `json:"seats" validate:"required,min=1"`
	NumberOfSeats    int      `json:"number_of_seats" validate:"omitempty,min=1"`
}

type editReservationReq struct {
	Seats []string `json:"seats" validate:"required,min=1"`
}

type remainingResp struct {
	MovieDetailID uint64 `json:"movie_detail_id"`
	Date          string `json:"date"`
	Showtime      string `json:"showtime"`
	Remaining     int    `json:"remaining"`
}

// Create handles POST /v1/reservations.  An admin may name user_id to book
// for a customer of one of their movie details.
func (h *ReservationHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createReservationReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	date, err := parseDate(req.SelectedDate, "selected_date")
	if err != nil {
		return err
	}
	v, err := h.svc.Create(c.Request().Context(), p, service.CreateInput{
		UserID:        req.UserID,
		MovieDetailID: req.MovieDetailID,
		Date:          date,
		Showtime:      strings.TrimSpace(req.SelectedShowtime),
		Seats:         req.Seats,
		NumberOfSeats: req.NumberOfSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	views, err := h.svc.List(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if views == nil {
		views = []model.ReservationView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": views})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// Edit handles PATCH /v1/reservations/:id.  Only the seats can change.
func (h *ReservationHandler) Edit(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req editReservationReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	v, err := h.svc.Edit(c.Request().Context(), p, id, service.EditInput{Seats: req.Seats})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// Cancel handles DELETE /v1/reservations/:id.  The row is kept with
// status cancelled.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.Cancel(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// Availability handles GET /v1/movie-details/:id/availability?date=.
func (h *ReservationHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date, err := parseDate(c.QueryParam("date"), "date")
	if err != nil {
		return err
	}
	a, err := h.svc.Availability(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Remaining handles GET /v1/movie-details/:id/remaining?date=&showtime=.
func (h *ReservationHandler) Remaining(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	date, err := parseDate(c.QueryParam("date"), "date")
	if err != nil {
		return err
	}
	showtime := strings.TrimSpace(c.QueryParam("showtime"))
	if showtime == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "showtime is required")
	}
	n, err := h.svc.Remaining(c.Request().Context(), id, date, showtime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, remainingResp{
		MovieDetailID: id,
		Date:          date.Format(dateLayout),
		Showtime:      showtime,
		Remaining:     n,
	})
}

// AdminDelete handles DELETE /v1/admin/reservations/:id.
func (h *ReservationHandler) AdminDelete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RunReminders handles POST /v1/admin/reminders/run.  It queues the same
// reminders the daily job would.
func (h *ReservationHandler) RunReminders(c echo.Context) error {
	today := h.svc.Today()
	n, err := h.svc.SendReminders(c.Request().Context(), today)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":   today.AddDate(0, 0, 1).Format(dateLayout),
		"queued": n,
	})
}
