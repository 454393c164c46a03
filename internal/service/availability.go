package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/venuetree"
)

// AvailabilityCalculator answers read-side questions about lots: how
// many exist in a scope, how many are free at an instant and where a
// venue is.  Nothing here writes.
type AvailabilityCalculator struct {
	tree         *VenueTree
	reservations ReservationStore
	companies    CompanyStore
	pricing      PricingStore
	cache        CountCache
	bucket       time.Duration
}

func NewAvailabilityCalculator(tree *VenueTree, reservations ReservationStore, companies CompanyStore, pricing PricingStore) *AvailabilityCalculator {
	if tree == nil || reservations == nil || companies == nil || pricing == nil {
		panic("nil dependency passed to NewAvailabilityCalculator")
	}
	return &AvailabilityCalculator{tree: tree, reservations: reservations, companies: companies, pricing: pricing}
}

// WithCache enables a read-through cache of available counts keyed by
// scope and a time bucket of the given width.  Counts can be stale for
// at most one bucket.
func (a *AvailabilityCalculator) WithCache(c CountCache, bucket time.Duration) *AvailabilityCalculator {
	if c != nil && bucket > 0 {
		a.cache = c
		a.bucket = bucket
	}
	return a
}

// AvailableLotCount counts the lots of a scope with no reservation
// covering at.
func (a *AvailabilityCalculator) AvailableLotCount(ctx context.Context, s Scope, at time.Time) (int, error) {
	key := a.cacheKey(s, at)
	if key != "" {
		if n, ok := a.cache.GetCount(ctx, key); ok {
			return n, nil
		}
	}
	lots, _, err := a.tree.scopeLots(ctx, s)
	if err != nil {
		return 0, err
	}
	n, err := a.countFree(ctx, lots, at)
	if err != nil {
		return 0, err
	}
	if key != "" {
		a.cache.SetCount(ctx, key, n, a.bucket)
	}
	return n, nil
}

// LocationString describes where a venue is, e.g. "2 floor, Acme".
func (a *AvailabilityCalculator) LocationString(ctx context.Context, venueID uint64) (string, error) {
	f, err := a.tree.treeOf(ctx, venueID)
	if err != nil {
		return "", err
	}
	names, err := a.companyNames(ctx, f)
	if err != nil {
		return "", err
	}
	return f.Location(venueID, func(id uint64) string { return names[id] }), nil
}

// CompanyCounts returns a company's total and available lot counts.
func (a *AvailabilityCalculator) CompanyCounts(ctx context.Context, companyID uint64, at time.Time) (total, available int, err error) {
	total, err = a.tree.TotalLotCount(ctx, CompanyScope(companyID))
	if err != nil {
		return 0, 0, err
	}
	available, err = a.AvailableLotCount(ctx, CompanyScope(companyID), at)
	return total, available, err
}

// TreeNode is one venue of a nested availability tree.
type TreeNode struct {
	Venue         model.Venue
	TotalLots     int
	AvailableLots int
	Children      []*TreeNode
}

// CompanyTree returns the company's venue trees with per-node counts at
// the given instant.  Only trees whose root belongs to the company are
// included.
func (a *AvailabilityCalculator) CompanyTree(ctx context.Context, companyID uint64, at time.Time) ([]*TreeNode, error) {
	f, err := a.tree.companyForest(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var lots []model.Venue
	var roots []*TreeNode
	for _, r := range f.Roots() {
		if c, ok := f.EffectiveCompany(r.ID); !ok || c != companyID {
			continue
		}
		roots = append(roots, &TreeNode{Venue: r})
		lots = append(lots, f.SubtreeLots(r.ID)...)
	}
	busy, err := a.busy(ctx, lots, at)
	if err != nil {
		return nil, err
	}

	stack := append([]*TreeNode(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sub := f.SubtreeLots(n.Venue.ID)
		n.TotalLots = len(sub)
		n.AvailableLots = freeOf(sub, busy)
		for _, c := range f.ChildrenOf(n.Venue.ID) {
			child := &TreeNode{Venue: c}
			n.Children = append(n.Children, child)
			stack = append(stack, child)
		}
	}
	return roots, nil
}

// VenueView is a venue with its derived read fields.
type VenueView struct {
	Venue         model.Venue
	Pricing       *model.PricingRule
	TotalLots     int
	AvailableLots int
	Location      string
	CompanyName   string
}

// Describe builds the view of one venue at the given instant.
func (a *AvailabilityCalculator) Describe(ctx context.Context, venueID uint64, at time.Time) (*VenueView, error) {
	f, err := a.tree.treeOf(ctx, venueID)
	if err != nil {
		return nil, err
	}
	views, err := a.describe(ctx, f, []uint64{venueID}, at)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DescribeChildren builds views of a venue's direct children.
func (a *AvailabilityCalculator) DescribeChildren(ctx context.Context, venueID uint64, at time.Time) ([]VenueView, error) {
	f, err := a.tree.treeOf(ctx, venueID)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for _, c := range f.ChildrenOf(venueID) {
		ids = append(ids, c.ID)
	}
	return a.describe(ctx, f, ids, at)
}

// FreeLots lists lots matching the filter, typically public lots free
// at an instant.
func (a *AvailabilityCalculator) FreeLots(ctx context.Context, filter LotFilter) ([]model.Venue, error) {
	lots, err := a.tree.venues.ListLots(ctx, filter)
	return lots, storageErr(err)
}

func (a *AvailabilityCalculator) describe(ctx context.Context, f *venuetree.Forest, ids []uint64, at time.Time) ([]VenueView, error) {
	names, err := a.companyNames(ctx, f)
	if err != nil {
		return nil, err
	}
	var lots []model.Venue
	for _, id := range ids {
		lots = append(lots, f.SubtreeLots(id)...)
	}
	busy, err := a.busy(ctx, lots, at)
	if err != nil {
		return nil, err
	}
	rules := map[uint64]*model.PricingRule{}
	out := make([]VenueView, 0, len(ids))
	for _, id := range ids {
		v, _ := f.Venue(id)
		sub := f.SubtreeLots(id)
		view := VenueView{
			Venue:         v,
			TotalLots:     len(sub),
			AvailableLots: freeOf(sub, busy),
			Location:      f.Location(id, func(c uint64) string { return names[c] }),
		}
		if c, ok := f.EffectiveCompany(id); ok {
			view.CompanyName = names[c]
		}
		if v.PricingID != nil {
			p, ok := rules[*v.PricingID]
			if !ok {
				p, err = a.pricing.GetPricing(ctx, *v.PricingID)
				if err != nil {
					return nil, storageErr(err)
				}
				rules[*v.PricingID] = p
			}
			view.Pricing = p
		}
		out = append(out, view)
	}
	return out, nil
}

func (a *AvailabilityCalculator) countFree(ctx context.Context, lots []model.Venue, at time.Time) (int, error) {
	busy, err := a.busy(ctx, lots, at)
	if err != nil {
		return 0, err
	}
	return freeOf(lots, busy), nil
}

func (a *AvailabilityCalculator) busy(ctx context.Context, lots []model.Venue, at time.Time) (map[uint64]bool, error) {
	if len(lots) == 0 {
		return map[uint64]bool{}, nil
	}
	ids := make([]uint64, 0, len(lots))
	for _, l := range lots {
		ids = append(ids, l.ID)
	}
	busy, err := a.reservations.BusyVenues(ctx, ids, at)
	return busy, storageErr(err)
}

func (a *AvailabilityCalculator) companyNames(ctx context.Context, f *venuetree.Forest) (map[uint64]string, error) {
	seen := map[uint64]bool{}
	var ids []uint64
	for _, r := range f.Roots() {
		for _, v := range append([]model.Venue{r}, f.Descendants(r.ID)...) {
			if v.CompanyID != nil && !seen[*v.CompanyID] {
				seen[*v.CompanyID] = true
				ids = append(ids, *v.CompanyID)
			}
		}
	}
	if len(ids) == 0 {
		return map[uint64]string{}, nil
	}
	names, err := a.companies.CompanyNames(ctx, ids)
	return names, storageErr(err)
}

func (a *AvailabilityCalculator) cacheKey(s Scope, at time.Time) string {
	if a.cache == nil {
		return ""
	}
	kind := "venue"
	if s.Kind == ScopeCompany {
		kind = "company"
	}
	return fmt.Sprintf("%s:%d:%d", kind, s.ID, at.Truncate(a.bucket).Unix())
}

func freeOf(lots []model.Venue, busy map[uint64]bool) int {
	n := 0
	for _, l := range lots {
		if !busy[l.ID] {
			n++
		}
	}
	return n
}
