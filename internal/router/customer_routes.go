package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hitman711/parkinglot/internal/handler"
	"github.com/hitman711/parkinglot/internal/middleware"
)

// RegisterCustomer registers booking and payment endpoints under /v1.
// Owners may book as well, and read bookings made on their lots.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RoleOwner),
	}, mw...)...)
	g.POST("/reservations", h.CreateReservation)
	g.GET("/reservations", h.ListMyReservations)
	g.GET("/reservations/:id", h.GetReservation)
	g.POST("/reservations/:id/payments", h.RecordPayment)
	g.GET("/reservations/:id/payments", h.ListPayments)
}
