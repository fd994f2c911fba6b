// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/reeltime/internal/config"
	"github.com/iliyamo/reeltime/internal/handler"
	"github.com/iliyamo/reeltime/internal/metrics"
	"github.com/iliyamo/reeltime/internal/middleware"
)

// Deps is everything the routes need.  Redis may be nil, which turns the
// response cache and rate limiter into pass-throughs.
type Deps struct {
	Auth         *handler.AuthHandler
	Reservations *handler.ReservationHandler
	Catalog      *handler.CatalogHandler
	Checks       map[string]handler.Check

	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	MetricCfg config.MetricsConfig
	Redis     *redis.Client
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// Setup installs the global middleware chain, the error handler and every
// route group.
func Setup(e *echo.Echo, d Deps) {
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(middleware.RequestID())
	if d.Metrics != nil {
		e.Use(middleware.Prometheus(d.Metrics))
	}
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	RegisterRoutes(e, d)
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d)
	RegisterReservations(e, d)
	RegisterAdmin(e, d)
}

// RegisterRoutes exposes liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Checks != nil {
		e.GET("/readyz", handler.Ready(d.Checks))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsAuth(d.MetricCfg))
}

// RegisterAuth mounts /v1/auth.  Logout accepts either a bearer token or
// a refresh token, so it only reads the principal when one is sent.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
	g.POST("/password", a.ChangePassword, middleware.JWTAuth(jwtSecret))
}
