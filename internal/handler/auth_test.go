package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reeltime/internal/config"
	"github.com/iliyamo/reeltime/internal/middleware"
	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/repository"
	"github.com/iliyamo/reeltime/internal/utils"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, email, name, password string, isAdmin bool, cost int) (uint64, error) {
	args := m.Called(ctx, email, name, password, isAdmin, cost)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	return m.Called(ctx, id, password, cost).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	return m.Called(ctx, userID, hash, exp).Error(0)
}

func (m *mockTokens) ValidateRefresh(ctx context.Context, hash string) (uint64, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockTokens) RevokeByHash(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}

func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return m.Called(ctx, userID).Error(0)
}

func authEcho(users *mockUsers, tokens *mockTokens) *echo.Echo {
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := NewAuthHandler(cfg, users, tokens, nil)
	e := newTestEcho()
	g := e.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout, middleware.OptionalJWT(testSecret))
	g.GET("/me", h.Me, authMW())
	g.POST("/password", h.ChangePassword, authMW())
	return e
}

func TestRegister(t *testing.T) {
	users, tokens := new(mockUsers), new(mockTokens)
	users.On("Create", mock.Anything, "ada@example.com", "Ada", "correct horse", true, 4).Return(uint64(11), nil)
	tokens.On("StoreRefresh", mock.Anything, uint64(11), mock.Anything, mock.Anything).Return(nil)

	rec := do(t, authEcho(users, tokens), http.MethodPost, "/auth/register", nil, map[string]any{
		"email": "Ada@Example.com", "name": "Ada", "password": "correct horse", "is_admin": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decode[authResp](t, rec)
	assert.Equal(t, uint64(11), got.User.ID)
	assert.True(t, got.User.IsAdmin)
	claims, err := utils.ParseAccessToken(testSecret, got.Access.Token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
	assert.Len(t, got.Refresh.Token, 96)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad email", map[string]any{"email": "nope", "password": "long enough"}},
		{"short password", map[string]any{"email": "a@b.co", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, authEcho(new(mockUsers), new(mockTokens)), http.MethodPost, "/auth/register", nil, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := new(mockUsers)
	users.On("Create", mock.Anything, "a@b.co", "", "long enough", false, 4).Return(uint64(0), repository.ErrEmailExists)
	rec := do(t, authEcho(users, new(mockTokens)), http.MethodPost, "/auth/register", nil, map[string]any{"email": "a@b.co", "password": "long enough"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_exists", decode[ErrorResponse](t, rec).Code)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("secret-pass", 4)
	require.NoError(t, err)
	user := model.User{ID: 3, Email: "a@b.co", PasswordHash: hash}

	tests := []struct {
		name     string
		password string
		found    bool
		want     int
	}{
		{"ok", "secret-pass", true, http.StatusOK},
		{"wrong password", "guess", true, http.StatusUnauthorized},
		{"unknown email", "secret-pass", false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, tokens := new(mockUsers), new(mockTokens)
			if tt.found {
				users.On("GetByEmail", mock.Anything, "a@b.co").Return(user, nil)
			} else {
				users.On("GetByEmail", mock.Anything, "a@b.co").Return(model.User{}, repository.ErrNotFound)
			}
			tokens.On("StoreRefresh", mock.Anything, uint64(3), mock.Anything, mock.Anything).Return(nil)

			rec := do(t, authEcho(users, tokens), http.MethodPost, "/auth/login", nil, map[string]any{"email": "a@b.co", "password": tt.password})
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRefreshRotates(t *testing.T) {
	users, tokens := new(mockUsers), new(mockTokens)
	oldHash := utils.HashRefreshRaw("old-token")
	tokens.On("ValidateRefresh", mock.Anything, oldHash).Return(uint64(3), nil)
	tokens.On("RevokeByHash", mock.Anything, oldHash).Return(nil)
	tokens.On("StoreRefresh", mock.Anything, uint64(3), mock.Anything, mock.Anything).Return(nil)
	users.On("GetByID", mock.Anything, uint64(3)).Return(model.User{ID: 3, Email: "a@b.co"}, nil)

	rec := do(t, authEcho(users, tokens), http.MethodPost, "/auth/refresh", nil, map[string]any{"refresh_token": "old-token"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "old-token", decode[authResp](t, rec).Refresh.Token)
	tokens.AssertExpectations(t)
}

func TestRefreshRejectsUnknown(t *testing.T) {
	tokens := new(mockTokens)
	tokens.On("ValidateRefresh", mock.Anything, mock.Anything).Return(uint64(0), repository.ErrNotFound)
	rec := do(t, authEcho(new(mockUsers), tokens), http.MethodPost, "/auth/refresh", nil, map[string]any{"refresh_token": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshSpentDuringRotation(t *testing.T) {
	tokens := new(mockTokens)
	hash := utils.HashRefreshRaw("raced")
	tokens.On("ValidateRefresh", mock.Anything, hash).Return(uint64(3), nil)
	tokens.On("RevokeByHash", mock.Anything, hash).Return(repository.ErrNotFound)
	rec := do(t, authEcho(new(mockUsers), tokens), http.MethodPost, "/auth/refresh", nil, map[string]any{"refresh_token": "raced"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	t.Run("all sessions", func(t *testing.T) {
		tokens := new(mockTokens)
		tokens.On("RevokeAllForUser", mock.Anything, customer.UserID).Return(nil)
		rec := do(t, authEcho(new(mockUsers), tokens), http.MethodPost, "/auth/logout", &customer, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		tokens.AssertExpectations(t)
	})

	t.Run("one session", func(t *testing.T) {
		tokens := new(mockTokens)
		hash := utils.HashRefreshRaw("raw")
		tokens.On("ValidateRefresh", mock.Anything, hash).Return(uint64(7), nil)
		tokens.On("RevokeByHash", mock.Anything, hash).Return(nil)
		rec := do(t, authEcho(new(mockUsers), tokens), http.MethodPost, "/auth/logout", nil, map[string]any{"refresh_token": "raw"})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("nothing to revoke", func(t *testing.T) {
		rec := do(t, authEcho(new(mockUsers), new(mockTokens)), http.MethodPost, "/auth/logout", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMe(t *testing.T) {
	users := new(mockUsers)
	users.On("GetByID", mock.Anything, admin.UserID).Return(model.User{ID: admin.UserID, Email: "boss@b.co", IsAdmin: true}, nil)
	rec := do(t, authEcho(users, new(mockTokens)), http.MethodGet, "/auth/me", &admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":100,"email":"boss@b.co","is_admin":true}`, rec.Body.String())
}

func TestChangePassword(t *testing.T) {
	hash, err := utils.HashPassword("old-secret", 4)
	require.NoError(t, err)
	user := model.User{ID: customer.UserID, Email: "a@b.co", PasswordHash: hash}

	tests := []struct {
		name    string
		as      *model.Principal
		body    map[string]any
		want    int
		changed bool
	}{
		{"ok", &customer, map[string]any{"current_password": "old-secret", "new_password": "new-secret"}, http.StatusNoContent, true},
		{"wrong current", &customer, map[string]any{"current_password": "guess", "new_password": "new-secret"}, http.StatusUnauthorized, false},
		{"too short", &customer, map[string]any{"current_password": "old-secret", "new_password": "short"}, http.StatusBadRequest, false},
		{"unchanged", &customer, map[string]any{"current_password": "old-secret", "new_password": "old-secret"}, http.StatusBadRequest, false},
		{"anonymous", nil, map[string]any{"current_password": "old-secret", "new_password": "new-secret"}, http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, tokens := new(mockUsers), new(mockTokens)
			users.On("GetByID", mock.Anything, customer.UserID).Return(user, nil).Maybe()
			users.On("UpdatePassword", mock.Anything, customer.UserID, "new-secret", 4).Return(nil).Maybe()
			tokens.On("RevokeAllForUser", mock.Anything, customer.UserID).Return(nil).Maybe()

			rec := do(t, authEcho(users, tokens), http.MethodPost, "/auth/password", tt.as, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			if tt.changed {
				users.AssertCalled(t, "UpdatePassword", mock.Anything, customer.UserID, "new-secret", 4)
				tokens.AssertCalled(t, "RevokeAllForUser", mock.Anything, customer.UserID)
			} else {
				users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				tokens.AssertNotCalled(t, "RevokeAllForUser", mock.Anything, mock.Anything)
			}
		})
	}
}
