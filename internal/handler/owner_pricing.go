package handler // handler package contains owner pricing handlers

import (
	"context"       // context carries the per-request deadline into the services
	"encoding/json" // json.Number keeps the caller's decimal text intact
	"net/http"      // http defines status codes

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/hitman711/parkinglot/internal/model"   // model defines pricing rules
	"github.com/hitman711/parkinglot/internal/service" // service validates and stores rules
)

// pricingRequest accepts money either as JSON numbers or strings.
type pricingRequest struct {
	Name          string             `json:"name"`            // label shown to the owner
	Duration      int                `json:"duration"`        // units per billing period, at least 1
	DurationUnit  model.DurationUnit `json:"duration_unit"`   // hour or day
	PrePaidAmount json.Number        `json:"pre_paid_amount"` // minimum opening payment, 0 for none
	Amount        json.Number        `json:"amount"`          // charge per period
	OverdueAmount json.Number        `json:"overdue_amount"`  // one-off surcharge once a booking runs over
}

func (r pricingRequest) input() service.PricingInput {
	return service.PricingInput{
		Name:          r.Name,
		Duration:      r.Duration,
		DurationUnit:  r.DurationUnit,
		PrePaidAmount: r.PrePaidAmount.String(),
		Amount:        r.Amount.String(),
		OverdueAmount: r.OverdueAmount.String(),
	}
}

// CreatePricing handles POST /v1/companies/:id/prices.
func (h *OwnerHandler) CreatePricing(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	var req pricingRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	var p *model.PricingRule
	err = call(c, func(ctx context.Context) error {
		p, err = h.Catalog.CreatePricing(ctx, co.ID, req.input()) // amounts are parsed and checked here
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, pricingJSON(*p))
}

// ListPricing handles GET /v1/companies/:id/prices.
func (h *OwnerHandler) ListPricing(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	var rules []model.PricingRule
	err = call(c, func(ctx context.Context) error {
		rules, err = h.Catalog.ListPricing(ctx, co.ID)
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(rules))
	for _, p := range rules {
		out = append(out, pricingJSON(p))
	}
	return c.JSON(http.StatusOK, out)
}

// GetPricing handles GET /v1/companies/:id/prices/:priceId.
func (h *OwnerHandler) GetPricing(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := idParam(c, "priceId")
	if err != nil {
		return respondError(c, err)
	}
	var p *model.PricingRule
	err = call(c, func(ctx context.Context) error {
		p, err = h.Catalog.GetPricing(ctx, co.ID, id) // a rule of another company is not found
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pricingJSON(*p))
}

// UpdatePricing handles PUT /v1/companies/:id/prices/:priceId.  The
// body replaces every editable field.
func (h *OwnerHandler) UpdatePricing(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := idParam(c, "priceId")
	if err != nil {
		return respondError(c, err)
	}
	var req pricingRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	var p *model.PricingRule
	err = call(c, func(ctx context.Context) error {
		p, err = h.Catalog.UpdatePricing(ctx, co.ID, id, req.input())
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, pricingJSON(*p))
}

// DeletePricing handles DELETE /v1/companies/:id/prices/:priceId.
func (h *OwnerHandler) DeletePricing(c echo.Context) error {
	co, err := h.ownedCompany(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := idParam(c, "priceId")
	if err != nil {
		return respondError(c, err)
	}
	err = call(c, func(ctx context.Context) error {
		return h.Catalog.DeletePricing(ctx, co.ID, id) // venues using it fall back to no rule
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
