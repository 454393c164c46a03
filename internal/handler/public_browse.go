package handler // handler package contains public browsing handlers

import (
	"context"  // context carries the per-request deadline into the services
	"net/http" // http defines status codes
	"time"     // time.Time{} marks a required ?available= instant

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/hitman711/parkinglot/internal/clock"   // clock supplies the default ?at= instant
	"github.com/hitman711/parkinglot/internal/model"   // model defines venues
	"github.com/hitman711/parkinglot/internal/service" // service computes availability views
)

// PublicHandler serves unauthenticated venue browsing and lot search.
type PublicHandler struct {
	Avail *service.AvailabilityCalculator // venue views and lot search
	Clock clock.Clock                     // default instant for ?at=
}

func NewPublicHandler(avail *service.AvailabilityCalculator, clk clock.Clock) *PublicHandler {
	if avail == nil {
		panic("nil service passed to NewPublicHandler")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &PublicHandler{Avail: avail, Clock: clk}
}

// GetVenue handles GET /v1/venues/:id with price, lot counts at ?at=,
// location and company name.
func (h *PublicHandler) GetVenue(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	at, err := instant(c, "at", h.Clock.Now())
	if err != nil {
		return respondError(c, err)
	}
	sh, err := newShaper(c, venueFields)
	if err != nil {
		return respondError(c, err)
	}
	var view *service.VenueView
	err = call(c, func(ctx context.Context) error {
		view, err = h.Avail.Describe(ctx, id, at) // counts lots in the whole subtree
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sh.apply(venueViewJSON(*view)))
}

// ListChildren handles GET /v1/venues/:id/venues.
func (h *PublicHandler) ListChildren(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	at, err := instant(c, "at", h.Clock.Now())
	if err != nil {
		return respondError(c, err)
	}
	sh, err := newShaper(c, venueFields)
	if err != nil {
		return respondError(c, err)
	}
	var views []service.VenueView
	err = call(c, func(ctx context.Context) error {
		views, err = h.Avail.DescribeChildren(ctx, id, at) // direct children only, in tree order
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(views))
	for _, v := range views {
		out = append(out, venueViewJSON(v))
	}
	return c.JSON(http.StatusOK, sh.applyAll(out))
}

// SearchLots handles GET /v1/venues?available=<unix>&company=&parent=.
// Only public lots are listed; with available set, lots booked at that
// instant are left out.
func (h *PublicHandler) SearchLots(c echo.Context) error {
	filter := service.LotFilter{PublicOnly: true} // private lots never show up here
	var err error
	if filter.CompanyID, err = optionalID(c, "company"); err != nil {
		return respondError(c, err)
	}
	if filter.ParentID, err = optionalID(c, "parent"); err != nil {
		return respondError(c, err)
	}
	if c.QueryParam("available") != "" { // unix seconds
		at, err := instant(c, "available", time.Time{})
		if err != nil {
			return respondError(c, err)
		}
		filter.FreeAt = &at
	}
	sh, err := newShaper(c, venueFields)
	if err != nil {
		return respondError(c, err)
	}
	var lots []model.Venue
	err = call(c, func(ctx context.Context) error {
		lots, err = h.Avail.FreeLots(ctx, filter)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(lots))
	for _, v := range lots {
		out = append(out, venueJSON(v))
	}
	return c.JSON(http.StatusOK, sh.applyAll(out))
}
