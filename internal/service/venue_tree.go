package service

import (
	"context"
	"errors"
	"strings"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/venuetree"
)

// ScopeKind selects what a lot count is taken over.
type ScopeKind int

const (
	ScopeCompany ScopeKind = iota + 1
	ScopeVenue
)

// Scope is either a company or a venue subtree.
type Scope struct {
	Kind ScopeKind
	ID   uint64
}

func CompanyScope(id uint64) Scope { return Scope{Kind: ScopeCompany, ID: id} }
func VenueScope(id uint64) Scope   { return Scope{Kind: ScopeVenue, ID: id} }

// VenueTree maintains the venue forest.
type VenueTree struct {
	tx        TxRunner
	venues    VenueStore
	companies CompanyStore
	pricing   PricingStore
}

func NewVenueTree(tx TxRunner, venues VenueStore, companies CompanyStore, pricing PricingStore) *VenueTree {
	if tx == nil || venues == nil || companies == nil || pricing == nil {
		panic("nil dependency passed to NewVenueTree")
	}
	return &VenueTree{tx: tx, venues: venues, companies: companies, pricing: pricing}
}

// VenueInput describes a venue to create.  A venue without a parent is
// the root of a new tree and needs CompanyID.  A venue with a parent and
// no CompanyID takes the parent's company.
type VenueInput struct {
	Name      string
	Category  model.Category
	VenueType model.VenueType
	CompanyID *uint64
	ParentID  *uint64
	PricingID *uint64
}

func (t *VenueTree) CreateVenue(ctx context.Context, in VenueInput) (*model.Venue, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 100 {
		return nil, invalid("venue name must be 1-100 characters")
	}
	if !in.Category.Valid() {
		return nil, invalid("category must be building, floor or lot")
	}
	if in.VenueType == "" {
		in.VenueType = model.VenueTypePublic
	}
	if !in.VenueType.Valid() {
		return nil, invalid("venue_type must be public or private")
	}
	if in.ParentID == nil && in.CompanyID == nil {
		return nil, invalid("a root venue needs a company")
	}

	v := &model.Venue{
		Name:      name,
		Category:  in.Category,
		VenueType: in.VenueType,
		CompanyID: in.CompanyID,
		ParentID:  in.ParentID,
		PricingID: in.PricingID,
	}
	err := t.tx.WithTx(ctx, func(ctx context.Context) error {
		var parent *model.Venue
		if in.ParentID != nil {
			p, err := t.lockForStructure(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if p.IsLot() {
				return ErrInvalidParent
			}
			parent = p
			if v.CompanyID == nil && p.CompanyID != nil {
				c := *p.CompanyID
				v.CompanyID = &c
			}
		}
		if v.CompanyID != nil {
			if _, err := t.companies.GetCompany(ctx, *v.CompanyID); err != nil {
				return err
			}
		}
		if err := t.checkPricing(ctx, v); err != nil {
			return err
		}
		if parent == nil {
			return t.venues.InsertRoot(ctx, v)
		}
		return t.venues.InsertChild(ctx, *parent, v)
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return v, nil
}

// VenueUpdate lists the mutable fields of a venue.  Category never
// changes after creation.
type VenueUpdate struct {
	Name         *string
	VenueType    *model.VenueType
	PricingID    *uint64
	ClearPricing bool
}

func (t *VenueTree) UpdateVenue(ctx context.Context, id uint64, up VenueUpdate) (*model.Venue, error) {
	var out *model.Venue
	err := t.tx.WithTx(ctx, func(ctx context.Context) error {
		v, err := t.venues.LockVenue(ctx, id)
		if err != nil {
			return err
		}
		if up.Name != nil {
			name := strings.TrimSpace(*up.Name)
			if name == "" || len(name) > 100 {
				return invalid("venue name must be 1-100 characters")
			}
			v.Name = name
		}
		if up.VenueType != nil {
			if !up.VenueType.Valid() {
				return invalid("venue_type must be public or private")
			}
			v.VenueType = *up.VenueType
		}
		switch {
		case up.ClearPricing:
			v.PricingID = nil
		case up.PricingID != nil:
			v.PricingID = up.PricingID
			if err := t.checkPricing(ctx, v); err != nil {
				return err
			}
		}
		if err := t.venues.UpdateVenue(ctx, v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// DeleteVenue removes a venue with its whole subtree.  Reservations and
// payments of the removed lots go with them.
func (t *VenueTree) DeleteVenue(ctx context.Context, id uint64) error {
	return storageErr(t.tx.WithTx(ctx, func(ctx context.Context) error {
		v, err := t.lockForStructure(ctx, id)
		if err != nil {
			return err
		}
		return t.venues.DeleteSubtree(ctx, *v)
	}))
}

// lockForStructure takes the tree lock and then re-reads the venue so
// its nested-set bounds are current.
func (t *VenueTree) lockForStructure(ctx context.Context, id uint64) (*model.Venue, error) {
	v, err := t.venues.GetVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.venues.LockTree(ctx, v.TreeID); err != nil {
		return nil, err
	}
	return t.venues.LockVenue(ctx, id)
}

func (t *VenueTree) Get(ctx context.Context, id uint64) (*model.Venue, error) {
	v, err := t.venues.GetVenue(ctx, id)
	return v, storageErr(err)
}

// ChildrenOf returns the direct children of a venue.
func (t *VenueTree) ChildrenOf(ctx context.Context, id uint64) ([]model.Venue, error) {
	f, err := t.treeOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.ChildrenOf(id), nil
}

// SubtreeLots returns every lot below a venue.
func (t *VenueTree) SubtreeLots(ctx context.Context, id uint64) ([]model.Venue, error) {
	f, err := t.treeOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.SubtreeLots(id), nil
}

// TotalLotCount counts the lots of a scope.  A lot scope counts 0.
func (t *VenueTree) TotalLotCount(ctx context.Context, s Scope) (int, error) {
	lots, _, err := t.scopeLots(ctx, s)
	return len(lots), err
}

// scopeLots resolves a scope to its lots and the forest they were read
// from.
func (t *VenueTree) scopeLots(ctx context.Context, s Scope) ([]model.Venue, *venuetree.Forest, error) {
	switch s.Kind {
	case ScopeCompany:
		f, err := t.companyForest(ctx, s.ID)
		if err != nil {
			return nil, nil, err
		}
		return f.CompanyLots(s.ID), f, nil
	case ScopeVenue:
		f, err := t.treeOf(ctx, s.ID)
		if err != nil {
			return nil, nil, err
		}
		return f.SubtreeLots(s.ID), f, nil
	}
	return nil, nil, invalid("unknown scope")
}

func (t *VenueTree) companyForest(ctx context.Context, companyID uint64) (*venuetree.Forest, error) {
	if _, err := t.companies.GetCompany(ctx, companyID); err != nil {
		return nil, storageErr(err)
	}
	vs, err := t.venues.LoadCompanyForest(ctx, companyID)
	if err != nil {
		return nil, storageErr(err)
	}
	return venuetree.Build(vs), nil
}

func (t *VenueTree) treeOf(ctx context.Context, id uint64) (*venuetree.Forest, error) {
	v, err := t.venues.GetVenue(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	vs, err := t.venues.LoadTree(ctx, v.TreeID)
	if err != nil {
		return nil, storageErr(err)
	}
	return venuetree.Build(vs), nil
}

// checkPricing makes sure a referenced rule exists and belongs to the
// venue's company.
func (t *VenueTree) checkPricing(ctx context.Context, v *model.Venue) error {
	if v.PricingID == nil {
		return nil
	}
	p, err := t.pricing.GetPricing(ctx, *v.PricingID)
	if errors.Is(err, ErrNotFound) {
		return invalid("price %d does not exist", *v.PricingID)
	}
	if err != nil {
		return err
	}
	if v.CompanyID == nil || p.CompanyID != *v.CompanyID {
		return invalid("price %d does not belong to the venue's company", p.ID)
	}
	return nil
}
