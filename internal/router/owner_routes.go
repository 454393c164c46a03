package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hitman711/parkinglot/internal/handler"
	"github.com/hitman711/parkinglot/internal/middleware"
)

// RegisterOwner registers OWNER-scoped management endpoints under /v1.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOwner),
	}, mw...)...)

	// ---- Companies ----
	g.POST("/companies", o.CreateCompany)
	g.GET("/companies", o.ListCompanies)
	g.GET("/companies/:id", o.GetCompany)
	g.GET("/companies/:id/venue-tree", o.CompanyTree)

	// ---- Prices ----
	g.POST("/companies/:id/prices", o.CreatePricing)
	g.GET("/companies/:id/prices", o.ListPricing)
	g.GET("/companies/:id/prices/:priceId", o.GetPricing)
	g.PUT("/companies/:id/prices/:priceId", o.UpdatePricing)
	g.DELETE("/companies/:id/prices/:priceId", o.DeletePricing)

	// ---- Venues ----
	g.POST("/companies/:id/venues", o.CreateRootVenue)
	g.POST("/venues/:id/venues", o.CreateChildVenue)
	g.PATCH("/venues/:id", o.UpdateVenue)
	g.DELETE("/venues/:id", o.DeleteVenue)
}
