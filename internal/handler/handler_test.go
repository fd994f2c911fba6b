package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reeltime/internal/middleware"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/service"
	"github.com/iliyamo/reeltime/internal/utils"
)

const testSecret = "handler-secret"

var (
	customer = model.Principal{UserID: 7}
	admin    = model.Principal{UserID: 100, IsAdmin: true}
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(nil)
	return e
}

func authMW() echo.MiddlewareFunc { return middleware.JWTAuth(testSecret) }

func do(t *testing.T, e *echo.Echo, method, target string, as *model.Principal, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != nil {
		tok, err := utils.NewAccessToken(testSecret, as.UserID, as.IsAdmin, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type mockReservations struct{ mock.Mock }

func (m *mockReservations) Remaining(ctx context.Context, detailID uint64, date time.Time, showtime string) (int, error) {
	args := m.Called(ctx, detailID, date, showtime)
	return args.Int(0), args.Error(1)
}

func (m *mockReservations) Availability(ctx context.Context, detailID uint64, date time.Time) (service.Availability, error) {
	args := m.Called(ctx, detailID, date)
	return args.Get(0).(service.Availability), args.Error(1)
}

func (m *mockReservations) Create(ctx context.Context, p model.Principal, in service.CreateInput) (model.ReservationView, error) {
	args := m.Called(ctx, p, in)
	return args.Get(0).(model.ReservationView), args.Error(1)
}

func (m *mockReservations) Edit(ctx context.Context, p model.Principal, id uint64, in service.EditInput) (model.ReservationView, error) {
	args := m.Called(ctx, p, id, in)
	return args.Get(0).(model.ReservationView), args.Error(1)
}

func (m *mockReservations) Cancel(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error) {
	args := m.Called(ctx, p, id)
	return args.Get(0).(model.ReservationView), args.Error(1)
}

func (m *mockReservations) Delete(ctx context.Context, p model.Principal, id uint64) error {
	return m.Called(ctx, p, id).Error(0)
}

func (m *mockReservations) Get(ctx context.Context, p model.Principal, id uint64) (model.ReservationView, error) {
	args := m.Called(ctx, p, id)
	return args.Get(0).(model.ReservationView), args.Error(1)
}

func (m *mockReservations) List(ctx context.Context, p model.Principal) ([]model.ReservationView, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReservationView), args.Error(1)
}

func (m *mockReservations) SendReminders(ctx context.Context, today time.Time) (int, error) {
	args := m.Called(ctx, today)
	return args.Int(0), args.Error(1)
}

func (m *mockReservations) Today() time.Time {
	return m.Called().Get(0).(time.Time)
}
