package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reeltime/internal/middleware"
)

// RegisterPublic mounts the browse endpoints guests use before signing in.
// Catalogue listings go through the short-lived response cache.  Seat
// counts read the generation-checked remaining cache and are never served
// from a stale response.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1", middleware.RateLimit(d.RateLimit, d.Redis, d.Log))

	cached := middleware.ResponseCache(d.Cache, d.Redis, d.Log)
	g.GET("/movies", d.Catalog.ListMovies, cached)
	g.GET("/movie-details", d.Catalog.ListMovieDetails, cached)

	g.GET("/movie-details/:id/availability", d.Reservations.Availability)
	g.GET("/movie-details/:id/remaining", d.Reservations.Remaining)
}

// RegisterReservations mounts the signed-in reservation endpoints.  DELETE
// cancels; only admins remove rows, through RegisterAdmin.
func RegisterReservations(e *echo.Echo, d Deps) {
	h := d.Reservations
	g := e.Group("/v1/reservations",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RateLimit(d.RateLimit, d.Redis, d.Log),
	)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Edit)
	g.DELETE("/:id", h.Cancel)
}
