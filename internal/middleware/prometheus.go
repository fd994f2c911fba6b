package middleware

import (
	"crypto/subtle"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/reeltime/internal/config"
	"github.com/iliyamo/reeltime/internal/metrics"
)

// Prometheus records request counts and latencies by route template.
func Prometheus(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// MetricsAuth puts basic auth in front of /metrics when credentials are
// configured.
func MetricsAuth(cfg config.MetricsConfig) echo.MiddlewareFunc {
	if !cfg.AuthEnabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.BasicAuth(func(user, pass string, c echo.Context) (bool, error) {
		u := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.User)) == 1
		p := subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1
		return u && p, nil
	})
}
