package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reeltime/internal/middleware"
)

// RegisterAdmin mounts /v1/admin.  Every route needs an admin token;
// ownership of halls, details and reservations is checked by the services.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireAdmin(),
	)

	g.POST("/movies", d.Catalog.CreateMovie)
	g.DELETE("/movies/:id", d.Catalog.DeleteMovie)

	g.POST("/halls", d.Catalog.CreateHall)
	g.GET("/halls", d.Catalog.ListHalls)
	g.GET("/halls/:id", d.Catalog.GetHall)
	g.PUT("/halls/:id", d.Catalog.UpdateHall)
	g.DELETE("/halls/:id", d.Catalog.DeleteHall)

	g.POST("/movie-details", d.Catalog.CreateMovieDetail)
	g.GET("/movie-details", d.Catalog.ListAdminMovieDetails)
	g.PUT("/movie-details/:id/showtimes", d.Catalog.UpdateShowtimes)
	g.DELETE("/movie-details/:id", d.Catalog.DeleteMovieDetail)

	g.GET("/reservations", d.Reservations.List)
	g.DELETE("/reservations/:id", d.Reservations.AdminDelete)
	g.POST("/reminders/run", d.Reservations.RunReminders)
}
