package service

import (
	"context"
	"strings"

	"github.com/hitman711/parkinglot/internal/model"
)

// Catalog manages companies and their pricing rules and answers
// ownership questions for the rest of the API.
type Catalog struct {
	companies CompanyStore // companies table
	pricing   PricingStore // lot_prices table
	venues    VenueStore   // for venue ownership checks
}

func NewCatalog(companies CompanyStore, pricing PricingStore, venues VenueStore) *Catalog {
	if companies == nil || pricing == nil || venues == nil {
		panic("nil store passed to NewCatalog")
	}
	return &Catalog{companies: companies, pricing: pricing, venues: venues}
}

// CreateCompany stores a company for userID.  A duplicate name for the
// same owner is ErrConflict.
func (c *Catalog) CreateCompany(ctx context.Context, userID uint64, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, invalid("company name must be 1-100 characters")
	}
	co := &model.Company{UserID: userID, Name: name}
	if err := c.companies.CreateCompany(ctx, co); err != nil {
		return nil, storageErr(err)
	}
	return co, nil
}

func (c *Catalog) GetCompany(ctx context.Context, id uint64) (*model.Company, error) {
	co, err := c.companies.GetCompany(ctx, id)
	return co, storageErr(err)
}

// ListCompanies returns the companies owned by userID.
func (c *Catalog) ListCompanies(ctx context.Context, userID uint64) ([]model.Company, error) {
	out, err := c.companies.ListCompaniesByUser(ctx, userID)
	return out, storageErr(err)
}

// OwnedCompany loads a company and checks that userID owns it.
func (c *Catalog) OwnedCompany(ctx context.Context, companyID, userID uint64) (*model.Company, error) {
	co, err := c.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, storageErr(err)
	}
	if co.UserID != userID {
		return nil, ErrForbidden
	}
	return co, nil
}

// OwnedVenue loads a venue and checks that userID owns its company.
func (c *Catalog) OwnedVenue(ctx context.Context, venueID, userID uint64) (*model.Venue, error) {
	v, err := c.venues.GetVenue(ctx, venueID)
	if err != nil {
		return nil, storageErr(err)
	}
	if v.CompanyID == nil {
		return nil, ErrForbidden
	}
	if _, err := c.OwnedCompany(ctx, *v.CompanyID, userID); err != nil {
		return nil, err
	}
	return v, nil
}

// PricingInput carries the editable fields of a pricing rule.
type PricingInput struct {
	Name          string
	Duration      int
	DurationUnit  model.DurationUnit
	PrePaidAmount string
	Amount        string
	OverdueAmount string
}

func (c *Catalog) CreatePricing(ctx context.Context, companyID uint64, in PricingInput) (*model.PricingRule, error) {
	p := &model.PricingRule{CompanyID: companyID}
	if err := applyPricing(p, in); err != nil {
		return nil, err
	}
	if err := c.pricing.CreatePricing(ctx, p); err != nil {
		return nil, storageErr(err)
	}
	return p, nil
}

// GetPricing returns a rule only if it belongs to companyID.
func (c *Catalog) GetPricing(ctx context.Context, companyID, id uint64) (*model.PricingRule, error) {
	p, err := c.pricing.GetPricing(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if p.CompanyID != companyID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (c *Catalog) ListPricing(ctx context.Context, companyID uint64) ([]model.PricingRule, error) {
	out, err := c.pricing.ListPricingByCompany(ctx, companyID)
	return out, storageErr(err)
}

// UpdatePricing replaces every editable field of a company's rule.
func (c *Catalog) UpdatePricing(ctx context.Context, companyID, id uint64, in PricingInput) (*model.PricingRule, error) {
	p, err := c.GetPricing(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := applyPricing(p, in); err != nil {
		return nil, err
	}
	if err := c.pricing.UpdatePricing(ctx, p); err != nil {
		return nil, storageErr(err)
	}
	return p, nil
}

// DeletePricing removes a rule; venues referencing it lose their price.
func (c *Catalog) DeletePricing(ctx context.Context, companyID, id uint64) error {
	if _, err := c.GetPricing(ctx, companyID, id); err != nil {
		return err
	}
	return storageErr(c.pricing.DeletePricing(ctx, id))
}

// applyPricing validates in and copies it onto p.  p is untouched when
// any field is invalid.
func applyPricing(p *model.PricingRule, in PricingInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 100 {
		return invalid("price name must be 1-100 characters")
	}
	if in.Duration < 1 {
		return invalid("duration must be at least 1")
	}
	if !in.DurationUnit.Valid() {
		return invalid("duration_unit must be hour or day")
	}
	// empty amounts mean zero; negatives and more than two decimals are rejected
	prePaid, err := parseMoney("pre_paid_amount", in.PrePaidAmount)
	if err != nil {
		return err
	}
	amount, err := parseMoney("amount", in.Amount)
	if err != nil {
		return err
	}
	overdue, err := parseMoney("overdue_amount", in.OverdueAmount)
	if err != nil {
		return err
	}
	p.Name = name
	p.Duration = in.Duration
	p.DurationUnit = in.DurationUnit
	p.PrePaidAmount = prePaid
	p.Amount = amount
	p.OverdueAmount = overdue
	return nil
}
