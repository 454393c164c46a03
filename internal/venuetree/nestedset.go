package venuetree

import "github.com/hitman711/parkinglot/internal/model"

// Slot is the nested-set position of a node about to be inserted.
type Slot struct {
	Lft   int
	Rgt   int
	Depth int
}

// RootSlot is the position of a new tree's root.
func RootSlot() Slot { return Slot{Lft: 1, Rgt: 2, Depth: 0} }

// ChildSlot returns the position of a new last child of parent.  Before
// the child is stored, every node of the tree must be shifted by
// InsertGap(parent).
func ChildSlot(parent model.Venue) Slot {
	return Slot{Lft: parent.Rgt, Rgt: parent.Rgt + 1, Depth: parent.Depth + 1}
}

// Gap is a shift of every bound at or past From by Width positions.  A
// negative Width closes a gap.  SQL stores apply it as
//
//	UPDATE venues SET rgt = rgt + Width WHERE tree_id = ? AND rgt >= From
//	UPDATE venues SET lft = lft + Width WHERE tree_id = ? AND lft >= From
type Gap struct {
	From  int
	Width int
}

// InsertGap makes room for one new last child of parent.
func InsertGap(parent model.Venue) Gap {
	return Gap{From: parent.Rgt, Width: 2}
}

// RemovalGap closes the positions left by deleting v's subtree.
func RemovalGap(v model.Venue) Gap {
	return Gap{From: v.Rgt + 1, Width: -Width(v)}
}

// Apply shifts v's bounds in place.
func (g Gap) Apply(v *model.Venue) {
	if v.Rgt >= g.From {
		v.Rgt += g.Width
	}
	if v.Lft >= g.From {
		v.Lft += g.Width
	}
}

// Width is the number of nested-set positions a subtree occupies.
func Width(v model.Venue) int { return v.Rgt - v.Lft + 1 }
