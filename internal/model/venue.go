package model

import "time"

// Category classifies a venue in the building → floor → lot hierarchy.
type Category string

const (
	CategoryBuilding Category = "building"
	CategoryFloor    Category = "floor"
	CategoryLot      Category = "lot"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBuilding, CategoryFloor, CategoryLot:
		return true
	}
	return false
}

// VenueType controls whether a venue is listed in public lot search.
type VenueType string

const (
	VenueTypePublic  VenueType = "public"
	VenueTypePrivate VenueType = "private"
)

func (t VenueType) Valid() bool {
	return t == VenueTypePublic || t == VenueTypePrivate
}

// Venue is a node of the venue forest.  Buildings and floors are
// containers; a lot is a single bookable parking spot and is always a
// leaf.  Besides the parent reference every venue carries a nested-set
// encoding so that subtree queries are a single range scan:
// descendants of v are exactly the nodes of the same tree with
// v.Lft < Lft and Rgt < v.Rgt.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name (e.g. "B2", "A-17").
//	Category  – building, floor or lot; immutable after creation.
//	VenueType – public or private.
//	CompanyID – owning company; inherited from the parent at creation
//	            when not given explicitly.
//	ParentID  – parent venue, nil for roots.
//	PricingID – pricing rule applied to bookings of this venue.
//	TreeID    – identifier of the tree (the root's ID).
//	Lft, Rgt  – nested-set bounds.
//	Depth     – distance from the root (roots are 0).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	Category  Category  // venues.category
	VenueType VenueType // venues.venue_type
	CompanyID *uint64   // venues.company_id (nullable)
	ParentID  *uint64   // venues.parent_id (nullable)
	PricingID *uint64   // venues.pricing_id (nullable)
	TreeID    uint64    // venues.tree_id
	Lft       int       // venues.lft
	Rgt       int       // venues.rgt
	Depth     int       // venues.depth
	CreatedAt time.Time // venues.created_at
	UpdatedAt time.Time // venues.updated_at
}

// IsLot reports whether the venue is a bookable leaf.
func (v Venue) IsLot() bool { return v.Category == CategoryLot }

// Contains reports whether o lies strictly inside v's subtree.
func (v Venue) Contains(o Venue) bool {
	return v.TreeID == o.TreeID && v.Lft < o.Lft && o.Rgt < v.Rgt
}
