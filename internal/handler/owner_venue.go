package handler // handler package contains owner venue tree handlers

import (
	"context"  // context carries the per-request deadline into the services
	"net/http" // http defines status codes

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/hitman711/parkinglot/internal/model"   // model defines venue categories and types
	"github.com/hitman711/parkinglot/internal/service" // service maintains the venue forest
)

type venueRequest struct {
	Name      string          `json:"name"`       // display name, e.g. "B2" or "A-17"
	Category  model.Category  `json:"category"`   // building, floor or lot
	VenueType model.VenueType `json:"venue_type"` // public or private; defaults to public
	PricingID *uint64         `json:"pricing_id"` // rule of the venue's company
	// CompanyID optionally overrides the inherited company of a child.
	CompanyID *uint64 `json:"company_id"`
}

// CreateRootVenue handles POST /v1/companies/:id/venues and starts a new
// tree owned by the company.
func (h *OwnerHandler) CreateRootVenue(c echo.Context) error {
	co, err := h.ownedCompany(c) // :id must be one of the caller's companies
	if err != nil {
		return respondError(c, err)
	}
	var req venueRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	companyID := co.ID // the path wins over any company_id in the body
	return h.createVenue(c, service.VenueInput{
		Name:      req.Name,
		Category:  req.Category,
		VenueType: req.VenueType,
		CompanyID: &companyID,
		PricingID: req.PricingID,
	})
}

// CreateChildVenue handles POST /v1/venues/:id/venues.  An explicit
// company_id must also be one of the caller's companies.
func (h *OwnerHandler) CreateChildVenue(c echo.Context) error {
	parent, err := h.ownedVenue(c) // parent must belong to the caller
	if err != nil {
		return respondError(c, err)
	}
	var req venueRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	if req.CompanyID != nil { // leasing a child to another company
		userID, _ := getUserID(c) // already checked by ownedVenue
		err := call(c, func(ctx context.Context) error {
			_, err := h.Catalog.OwnedCompany(ctx, *req.CompanyID, userID)
			return err
		})
		if err != nil {
			return respondError(c, err)
		}
	}
	// A lot cannot have children; the tree service rejects that and
	// fills in the inherited company.
	parentID := parent.ID
	return h.createVenue(c, service.VenueInput{
		Name:      req.Name,
		Category:  req.Category,
		VenueType: req.VenueType,
		CompanyID: req.CompanyID,
		ParentID:  &parentID,
		PricingID: req.PricingID,
	})
}

// createVenue stores the node under the tree lock and answers 201.
func (h *OwnerHandler) createVenue(c echo.Context, in service.VenueInput) error {
	var v *model.Venue
	err := call(c, func(ctx context.Context) (err error) {
		v, err = h.Tree.CreateVenue(ctx, in)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, venueJSON(*v))
}

type venueUpdateRequest struct {
	Name         *string          `json:"name"`          // nil keeps the current name
	VenueType    *model.VenueType `json:"venue_type"`    // nil keeps the current type
	PricingID    *uint64          `json:"pricing_id"`    // attach or replace a rule
	ClearPricing bool             `json:"clear_pricing"` // detach the rule; wins over pricing_id
}

// UpdateVenue handles PATCH /v1/venues/:id.  Category is not editable.
func (h *OwnerHandler) UpdateVenue(c echo.Context) error {
	v, err := h.ownedVenue(c)
	if err != nil {
		return respondError(c, err)
	}
	var req venueUpdateRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	var out *model.Venue
	err = call(c, func(ctx context.Context) error {
		out, err = h.Tree.UpdateVenue(ctx, v.ID, service.VenueUpdate{
			Name:         req.Name,
			VenueType:    req.VenueType,
			PricingID:    req.PricingID,
			ClearPricing: req.ClearPricing,
		})
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, venueJSON(*out))
}

// DeleteVenue handles DELETE /v1/venues/:id.  The whole subtree goes,
// including reservations on its lots.
func (h *OwnerHandler) DeleteVenue(c echo.Context) error {
	v, err := h.ownedVenue(c)
	if err != nil {
		return respondError(c, err)
	}
	err = call(c, func(ctx context.Context) error {
		return h.Tree.DeleteVenue(ctx, v.ID) // also closes the nested-set gap
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
