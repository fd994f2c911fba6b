package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/repository"
	"github.com/iliyamo/reeltime/internal/service"
)

func reservationEcho(svc *mockReservations) *echo.Echo {
	e := newTestEcho()
	h := NewReservationHandler(svc)
	e.GET("/movie-details/:id/remaining", h.Remaining)
	e.GET("/movie-details/:id/availability", h.Availability)
	g := e.Group("/reservations", authMW())
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Edit)
	g.DELETE("/:id", h.Cancel)
	e.DELETE("/admin/reservations/:id", h.AdminDelete, authMW())
	e.POST("/admin/reminders/run", h.RunReminders, authMW())
	return e
}

func TestCreateReservation(t *testing.T) {
	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	valid := map[string]any{
		"movie_detail_id":   1,
		"selected_date":     "2026-04-02",
		"selected_showtime": "18:00",
		"seats":             []string{"0-0", "0-1"},
		"number_of_seats":   2,
	}
	in := service.CreateInput{MovieDetailID: 1, Date: date, Showtime: "18:00", Seats: []string{"0-0", "0-1"}, NumberOfSeats: 2}

	tests := []struct {
		name     string
		body     any
		as       *model.Principal
		svcErr   error
		wantCode int
		wantErr  string
	}{
		{"created", valid, &customer, nil, http.StatusCreated, ""},
		{"unauthenticated", valid, nil, nil, http.StatusUnauthorized, "unauthorized"},
		{"missing seats", map[string]any{"movie_detail_id": 1, "selected_date": "2026-04-02", "selected_showtime": "18:00"}, &customer, nil, http.StatusBadRequest, "bad_request"},
		{"bad date", map[string]any{"movie_detail_id": 1, "selected_date": "02/04/2026", "selected_showtime": "18:00", "seats": []string{"0-0"}}, &customer, nil, http.StatusBadRequest, "bad_request"},
		{"seat conflict", valid, &customer, inventory.ErrSeatConflict, http.StatusConflict, "seat_conflict"},
		{"capacity", valid, &customer, fmt.Errorf("%w: %w", inventory.ErrCapacityExceeded, inventory.ErrShowtimeNotFound), http.StatusConflict, "capacity_exceeded"},
		{"malformed seat", valid, &customer, inventory.ErrMalformedSeatID, http.StatusBadRequest, "malformed_seat_id"},
		{"busy", valid, &customer, service.ErrBusy, http.StatusServiceUnavailable, "busy"},
		{"unknown detail", valid, &customer, repository.ErrMovieDetailNotFound, http.StatusNotFound, "movie_detail_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockReservations)
			if tt.as != nil && tt.wantCode != http.StatusBadRequest {
				svc.On("Create", mock.Anything, *tt.as, in).
					Return(model.ReservationView{Reservation: model.Reservation{ID: 9, Seats: in.Seats}, SeatLabels: []string{"A2", "A1"}}, tt.svcErr)
			}
			rec := do(t, reservationEcho(svc), http.MethodPost, "/reservations", tt.as, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
			} else {
				got := decode[model.ReservationView](t, rec)
				assert.Equal(t, uint64(9), got.ID)
				assert.Equal(t, []string{"A2", "A1"}, got.SeatLabels)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestCreateReservationForUser(t *testing.T) {
	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	body := map[string]any{
		"user_id":           7,
		"movie_detail_id":   1,
		"selected_date":     "2026-04-02",
		"selected_showtime": "18:00",
		"seats":             []string{"0-0"},
	}
	in := service.CreateInput{UserID: 7, MovieDetailID: 1, Date: date, Showtime: "18:00", Seats: []string{"0-0"}}

	tests := []struct {
		name    string
		as      model.Principal
		svcErr  error
		want    int
		wantErr string
	}{
		{"admin of the detail", admin, nil, http.StatusCreated, ""},
		{"customer", customer, service.ErrOnBehalf, http.StatusForbidden, "forbidden"},
		{"unknown user", admin, repository.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockReservations)
			svc.On("Create", mock.Anything, tt.as, in).
				Return(model.ReservationView{Reservation: model.Reservation{ID: 9, UserID: 7}}, tt.svcErr)
			rec := do(t, reservationEcho(svc), http.MethodPost, "/reservations", &tt.as, body)
			assert.Equal(t, tt.want, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
			} else {
				assert.Equal(t, uint64(7), decode[model.ReservationView](t, rec).UserID)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestReservationLifecycleRoutes(t *testing.T) {
	cancelled := model.ReservationView{Reservation: model.Reservation{ID: 3, Status: inventory.StatusCancelled}}

	t.Run("get", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Get", mock.Anything, customer, uint64(3)).Return(model.ReservationView{Reservation: model.Reservation{ID: 3}}, nil)
		rec := do(t, reservationEcho(svc), http.MethodGet, "/reservations/3", &customer, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("get forbidden", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Get", mock.Anything, customer, uint64(3)).Return(model.ReservationView{}, repository.ErrForbidden)
		rec := do(t, reservationEcho(svc), http.MethodGet, "/reservations/3", &customer, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := do(t, reservationEcho(new(mockReservations)), http.MethodGet, "/reservations/abc", &customer, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("edit", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Edit", mock.Anything, customer, uint64(3), service.EditInput{Seats: []string{"1-1"}}).
			Return(model.ReservationView{Reservation: model.Reservation{ID: 3, Seats: []string{"1-1"}}}, nil)
		rec := do(t, reservationEcho(svc), http.MethodPatch, "/reservations/3", &customer, map[string]any{"seats": []string{"1-1"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("edit past cutoff", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Edit", mock.Anything, customer, uint64(3), mock.Anything).Return(model.ReservationView{}, inventory.ErrCutoffPassed)
		rec := do(t, reservationEcho(svc), http.MethodPatch, "/reservations/3", &customer, map[string]any{"seats": []string{"1-1"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "cutoff_passed", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("cancel", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Cancel", mock.Anything, customer, uint64(3)).Return(cancelled, nil)
		rec := do(t, reservationEcho(svc), http.MethodDelete, "/reservations/3", &customer, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, inventory.StatusCancelled, decode[model.ReservationView](t, rec).Status)
	})

	t.Run("cancel twice", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Cancel", mock.Anything, customer, uint64(3)).Return(model.ReservationView{}, inventory.ErrInvalidTransition)
		rec := do(t, reservationEcho(svc), http.MethodDelete, "/reservations/3", &customer, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("admin delete", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Delete", mock.Anything, admin, uint64(3)).Return(nil)
		rec := do(t, reservationEcho(svc), http.MethodDelete, "/admin/reservations/3", &admin, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestListReservationsEmpty(t *testing.T) {
	svc := new(mockReservations)
	svc.On("List", mock.Anything, customer).Return(nil, nil)
	rec := do(t, reservationEcho(svc), http.MethodGet, "/reservations", &customer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reservations":[]}`, rec.Body.String())
}

func TestRemaining(t *testing.T) {
	date := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	t.Run("counts", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Remaining", mock.Anything, uint64(1), date, "18:00").Return(-2, nil)
		rec := do(t, reservationEcho(svc), http.MethodGet, "/movie-details/1/remaining?date=2026-04-02&showtime=18:00", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"movie_detail_id":1,"date":"2026-04-02","showtime":"18:00","remaining":-2}`, rec.Body.String())
	})

	t.Run("showtime required", func(t *testing.T) {
		rec := do(t, reservationEcho(new(mockReservations)), http.MethodGet, "/movie-details/1/remaining?date=2026-04-02", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("availability", func(t *testing.T) {
		svc := new(mockReservations)
		svc.On("Availability", mock.Anything, uint64(1), date).Return(service.Availability{
			MovieDetailID: 1,
			Date:          "2026-04-02",
			Showtimes:     []service.ShowtimeAvailability{{Time: "18:00", Capacity: 10, Remaining: 8, Taken: []string{"0-0", "0-1"}}},
		}, nil)
		rec := do(t, reservationEcho(svc), http.MethodGet, "/movie-details/1/availability?date=2026-04-02", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		got := decode[service.Availability](t, rec)
		assert.Equal(t, 8, got.Showtimes[0].Remaining)
	})
}

func TestRunReminders(t *testing.T) {
	today := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := new(mockReservations)
	svc.On("Today").Return(today)
	svc.On("SendReminders", mock.Anything, today).Return(4, nil)

	rec := do(t, reservationEcho(svc), http.MethodPost, "/admin/reminders/run", &admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2026-04-02","queued":4}`, rec.Body.String())
}
