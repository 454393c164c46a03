package handler // handler package contains owner company handlers

import (
	"context"  // context carries the per-request deadline into the services
	"net/http" // http defines status codes

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/hitman711/parkinglot/internal/clock"   // clock supplies the default ?at= instant
	"github.com/hitman711/parkinglot/internal/model"   // model defines companies and venues
	"github.com/hitman711/parkinglot/internal/service" // service holds ownership and availability rules
)

// OwnerHandler serves the management API of parking operators.  Every
// route assumes JWTAuth and RequireRole(OWNER) already ran; each
// resource is checked against the caller's companies.
type OwnerHandler struct {
	Catalog *service.Catalog                // companies, pricing rules and ownership checks
	Tree    *service.VenueTree              // venue forest edits under the tree lock
	Avail   *service.AvailabilityCalculator // lot counts for company listings
	Clock   clock.Clock                     // default instant for ?at=
}

// NewOwnerHandler panics if any dependency is nil.
func NewOwnerHandler(catalog *service.Catalog, tree *service.VenueTree, avail *service.AvailabilityCalculator, clk clock.Clock) *OwnerHandler {
	if catalog == nil || tree == nil || avail == nil {
		panic("nil service passed to NewOwnerHandler")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &OwnerHandler{Catalog: catalog, Tree: tree, Avail: avail, Clock: clk}
}

type companyRequest struct {
	Name string `json:"name"` // unique per owner, 1-100 characters
}

// CreateCompany handles POST /v1/companies.
func (h *OwnerHandler) CreateCompany(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req companyRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	var co *model.Company
	err = call(c, func(ctx context.Context) error {
		co, err = h.Catalog.CreateCompany(ctx, userID, req.Name)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, companyJSON(*co, 0, 0))
}

// ListCompanies handles GET /v1/companies and returns the caller's
// companies with their lot counts at ?at= (default now).
func (h *OwnerHandler) ListCompanies(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	at, err := instant(c, "at", h.Clock.Now())
	if err != nil {
		return respondError(c, err)
	}
	out := []echo.Map{} // [] rather than null for an owner without companies
	err = call(c, func(ctx context.Context) error {
		cos, err := h.Catalog.ListCompanies(ctx, userID)
		if err != nil {
			return err
		}
		out = out[:0] // a retried attempt starts over
		for _, co := range cos {
			total, available, err := h.Avail.CompanyCounts(ctx, co.ID, at) // cached per time bucket when Redis is on
			if err != nil {
				return err
			}
			out = append(out, companyJSON(co, total, available))
		}
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetCompany handles GET /v1/companies/:id.
func (h *OwnerHandler) GetCompany(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	at, err := instant(c, "at", h.Clock.Now())
	if err != nil {
		return respondError(c, err)
	}
	var total, available int
	err = call(c, func(ctx context.Context) error {
		total, available, err = h.Avail.CompanyCounts(ctx, co.ID, at)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, companyJSON(*co, total, available))
}

// CompanyTree handles GET /v1/companies/:id/venue-tree[?at=unix].
func (h *OwnerHandler) CompanyTree(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	at, err := instant(c, "at", h.Clock.Now())
	if err != nil {
		return respondError(c, err)
	}
	var roots []*service.TreeNode // one per building the company appears in
	err = call(c, func(ctx context.Context) error {
		roots, err = h.Avail.CompanyTree(ctx, co.ID, at)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(roots))
	for _, r := range roots {
		out = append(out, treeJSON(r))
	}
	return c.JSON(http.StatusOK, out)
}

// ownedCompany resolves :id to a company owned by the caller.
func (h *OwnerHandler) ownedCompany(c echo.Context) (*model.Company, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	id, err := idParam(c, "id") // 400 for a non-numeric id
	if err != nil {
		return nil, err
	}
	var co *model.Company // 404 when missing, 403 when owned by someone else
	err = call(c, func(ctx context.Context) error {
		co, err = h.Catalog.OwnedCompany(ctx, id, userID)
		return err
	})
	return co, err
}

// ownedVenue resolves :id to a venue whose company the caller owns.
func (h *OwnerHandler) ownedVenue(c echo.Context) (*model.Venue, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	var v *model.Venue
	err = call(c, func(ctx context.Context) error {
		v, err = h.Catalog.OwnedVenue(ctx, id, userID)
		return err
	})
	return v, err
}
