package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/inventory"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/repository"
	"github.com/iliyamo/reeltime/internal/service"
	"github.com/iliyamo/reeltime/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: a write on an unknown showtime wraps both
// ErrCapacityExceeded and ErrShowtimeNotFound and reports as capacity.
var errorMappings = []errorMapping{
	{inventory.ErrSeatConflict, http.StatusConflict, "seat_conflict"},
	{inventory.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{inventory.ErrCutoffPassed, http.StatusConflict, "cutoff_passed"},
	{inventory.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{inventory.ErrMalformedSeatID, http.StatusBadRequest, "malformed_seat_id"},
	{inventory.ErrSeatCount, http.StatusBadRequest, "invalid_seat_count"},
	{inventory.ErrLayoutInvalid, http.StatusBadRequest, "invalid_layout"},
	{inventory.ErrShowtimesInvalid, http.StatusBadRequest, "invalid_showtimes"},
	{inventory.ErrShowtimeNotFound, http.StatusNotFound, "showtime_not_found"},
	{model.ErrReleaseWindow, http.StatusBadRequest, "invalid_release_window"},
	{service.ErrNotShowing, http.StatusBadRequest, "not_showing"},
	{service.ErrBusy, http.StatusServiceUnavailable, "busy"},
	{service.ErrInUse, http.StatusConflict, "in_use"},
	{repository.ErrForbidden, http.StatusForbidden, "forbidden"},
	{repository.ErrEmailExists, http.StatusConflict, "email_exists"},
	{repository.ErrConflict, http.StatusConflict, "conflict"},
	{repository.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found"},
	{repository.ErrMovieNotFound, http.StatusNotFound, "movie_not_found"},
	{repository.ErrHallNotFound, http.StatusNotFound, "hall_not_found"},
	{repository.ErrMovieDetailNotFound, http.StatusNotFound, "movie_detail_not_found"},
	{repository.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{utils.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
}

// statusCodes names the codes of plain echo.HTTPErrors.
var statusCodes = map[int]string{
	http.StatusBadRequest:            "bad_request",
	http.StatusUnauthorized:          "unauthorized",
	http.StatusForbidden:             "forbidden",
	http.StatusNotFound:              "not_found",
	http.StatusMethodNotAllowed:      "method_not_allowed",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "body_too_large",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
	http.StatusTooManyRequests:       "too_many_requests",
	http.StatusServiceUnavailable:    "unavailable",
}

// Classify maps an error onto its HTTP status, error code and client
// message.  Unknown errors are a 500 whose message hides the cause.
func Classify(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		code, ok := statusCodes[he.Code]
		if !ok {
			code = "error"
		}
		return he.Code, ErrorResponse{Error: msg, Code: code}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Error: err.Error(), Code: m.code}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"}
}

// ErrorHandler renders errors returned by handlers as ErrorResponse JSON.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := Classify(err)
		if status >= http.StatusInternalServerError {
			log.Error("request error",
				zap.Int("status", status),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
			)
		}
		if status == http.StatusServiceUnavailable {
			c.Response().Header().Set("Retry-After", "1")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("write error response failed", zap.Error(werr))
		}
	}
}
