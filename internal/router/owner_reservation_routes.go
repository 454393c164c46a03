package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hitman711/parkinglot/internal/handler"
	"github.com/hitman711/parkinglot/internal/middleware"
)

// RegisterOwnerReservations registers the owner's view of bookings on
// their lots.
func RegisterOwnerReservations(e *echo.Echo, h *handler.OwnerReservationHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOwner),
	}, mw...)...)
	g.GET("/companies/:id/reservations", h.ListCompanyReservations)
}
