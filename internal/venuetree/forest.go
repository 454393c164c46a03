// Package venuetree evaluates the venue hierarchy in memory.  A Forest is
// built from a flat slice of venues loaded in one query and answers
// children, subtree, lot count and location lookups without recursion:
// subtree scans use the nested-set bounds, ancestor walks follow parent
// references with a loop.
package venuetree

import (
	"sort"
	"strings"

	"github.com/hitman711/parkinglot/internal/model"
)

// Forest is an immutable, indexed view over a set of venue trees.
type Forest struct {
	byID     map[uint64]model.Venue
	children map[uint64][]uint64
	roots    []uint64
	// ordered holds each tree's node IDs sorted by lft, so a subtree is
	// the contiguous run after its root.
	ordered map[uint64][]uint64
	pos     map[uint64]int
}

// Build indexes venues.  Nodes whose parent is not part of the input are
// treated as roots of the view.
func Build(venues []model.Venue) *Forest {
	f := &Forest{
		byID:     make(map[uint64]model.Venue, len(venues)),
		children: make(map[uint64][]uint64),
		ordered:  make(map[uint64][]uint64),
		pos:      make(map[uint64]int, len(venues)),
	}
	sorted := make([]model.Venue, len(venues))
	copy(sorted, venues)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TreeID != sorted[j].TreeID {
			return sorted[i].TreeID < sorted[j].TreeID
		}
		return sorted[i].Lft < sorted[j].Lft
	})
	for _, v := range sorted {
		f.byID[v.ID] = v
	}
	for _, v := range sorted {
		f.pos[v.ID] = len(f.ordered[v.TreeID])
		f.ordered[v.TreeID] = append(f.ordered[v.TreeID], v.ID)
		if v.ParentID != nil {
			if _, ok := f.byID[*v.ParentID]; ok {
				f.children[*v.ParentID] = append(f.children[*v.ParentID], v.ID)
				continue
			}
		}
		f.roots = append(f.roots, v.ID)
	}
	return f
}

// Len returns the number of venues in the forest.
func (f *Forest) Len() int { return len(f.byID) }

// Venue looks up a venue by ID.
func (f *Forest) Venue(id uint64) (model.Venue, bool) {
	v, ok := f.byID[id]
	return v, ok
}

// Roots returns the top-level venues in tree order.
func (f *Forest) Roots() []model.Venue { return f.collect(f.roots) }

// ChildrenOf returns the direct children of id in tree order.
func (f *Forest) ChildrenOf(id uint64) []model.Venue { return f.collect(f.children[id]) }

// Descendants returns every node strictly below id.
func (f *Forest) Descendants(id uint64) []model.Venue {
	v, ok := f.byID[id]
	if !ok {
		return nil
	}
	ids := f.ordered[v.TreeID]
	var out []model.Venue
	for i := f.pos[id] + 1; i < len(ids); i++ {
		d := f.byID[ids[i]]
		if d.Lft > v.Rgt {
			break
		}
		out = append(out, d)
	}
	return out
}

// SubtreeLots returns the lots strictly below id.  A lot has none.
func (f *Forest) SubtreeLots(id uint64) []model.Venue {
	var out []model.Venue
	for _, d := range f.Descendants(id) {
		if d.IsLot() {
			out = append(out, d)
		}
	}
	return out
}

// Ancestors returns the chain above id, nearest first.
func (f *Forest) Ancestors(id uint64) []model.Venue {
	var out []model.Venue
	v, ok := f.byID[id]
	for ok && v.ParentID != nil {
		v, ok = f.byID[*v.ParentID]
		if ok {
			out = append(out, v)
		}
	}
	return out
}

// EffectiveCompany resolves the company a venue belongs to: its own
// company, or that of the nearest ancestor carrying one.
func (f *Forest) EffectiveCompany(id uint64) (uint64, bool) {
	v, ok := f.byID[id]
	if !ok {
		return 0, false
	}
	if v.CompanyID != nil {
		return *v.CompanyID, true
	}
	for _, a := range f.Ancestors(id) {
		if a.CompanyID != nil {
			return *a.CompanyID, true
		}
	}
	return 0, false
}

// CompanyLots returns every lot whose effective company is companyID.
func (f *Forest) CompanyLots(companyID uint64) []model.Venue {
	var out []model.Venue
	for _, tree := range f.treeIDs() {
		for _, id := range f.ordered[tree] {
			v := f.byID[id]
			if !v.IsLot() {
				continue
			}
			if c, ok := f.EffectiveCompany(id); ok && c == companyID {
				out = append(out, v)
			}
		}
	}
	return out
}

// Location renders a venue's position, e.g. "2 floor, Acme Parking".
// The nearest floor ancestor contributes the prefix and the company of
// the topmost ancestor (or the venue's own effective company) the
// suffix.  companyName resolves company IDs to names.
func (f *Forest) Location(id uint64, companyName func(uint64) string) string {
	v, ok := f.byID[id]
	if !ok {
		return ""
	}
	var b strings.Builder
	ancestors := f.Ancestors(id)
	for _, a := range ancestors {
		if a.Category == model.CategoryFloor {
			b.WriteString(a.Name)
			b.WriteString(" floor, ")
			break
		}
	}
	root := v
	if len(ancestors) > 0 {
		root = ancestors[len(ancestors)-1]
	}
	company, found := uint64(0), false
	if root.CompanyID != nil {
		company, found = *root.CompanyID, true
	} else {
		company, found = f.EffectiveCompany(id)
	}
	if found && companyName != nil {
		b.WriteString(companyName(company))
	}
	return strings.TrimSuffix(b.String(), ", ")
}

func (f *Forest) treeIDs() []uint64 {
	out := make([]uint64, 0, len(f.ordered))
	for t := range f.ordered {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (f *Forest) collect(ids []uint64) []model.Venue {
	out := make([]model.Venue, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.byID[id])
	}
	return out
}
