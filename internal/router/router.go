// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hitman711/parkinglot/internal/handler"
)

// RegisterRoutes registers the unauthenticated health checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterPublic registers guest browsing.  mw is applied to each route,
// typically the response cache and the rate limiter.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/v1/venues", p.SearchLots, mw...)
	e.GET("/v1/venues/:id", p.GetVenue, mw...)
	e.GET("/v1/venues/:id/venues", p.ListChildren, mw...)
}
