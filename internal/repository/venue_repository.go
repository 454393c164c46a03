package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
	"github.com/hitman711/parkinglot/internal/venuetree"
)

// VenueRepo stores the venue forest.  Besides parent_id every row keeps
// nested-set bounds (tree_id, lft, rgt, depth) so that a subtree is one
// indexed range scan.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the given database.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

const venueCols = `id, name, category, venue_type, company_id, parent_id, pricing_id,
	tree_id, lft, rgt, depth, created_at, updated_at`

func scanVenue(s rowScanner) (*model.Venue, error) {
	var (
		v                           model.Venue
		company, parent, pricingRef sql.NullInt64
	)
	err := s.Scan(&v.ID, &v.Name, &v.Category, &v.VenueType, &company, &parent, &pricingRef,
		&v.TreeID, &v.Lft, &v.Rgt, &v.Depth, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.CompanyID = nullID(company)
	v.ParentID = nullID(parent)
	v.PricingID = nullID(pricingRef)
	return &v, nil
}

// GetVenue returns the venue or model.ErrNotFound.
func (r *VenueRepo) GetVenue(ctx context.Context, id uint64) (*model.Venue, error) {
	return r.get(ctx, "SELECT "+venueCols+" FROM venues WHERE id = ?", id)
}

// LockVenue reads the venue FOR UPDATE.  Outside a transaction the lock
// is released immediately.
func (r *VenueRepo) LockVenue(ctx context.Context, id uint64) (*model.Venue, error) {
	return r.get(ctx, "SELECT "+venueCols+" FROM venues WHERE id = ? FOR UPDATE", id)
}

// LockTree locks the root row of a tree.  The root's id is the tree id.
func (r *VenueRepo) LockTree(ctx context.Context, treeID uint64) error {
	var id uint64
	err := conn(ctx, r.db).QueryRowContext(ctx, "SELECT id FROM venues WHERE id = ? FOR UPDATE", treeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

func (r *VenueRepo) get(ctx context.Context, q string, id uint64) (*model.Venue, error) {
	v, err := scanVenue(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return v, err
}

// InsertRoot stores v as the root of a new tree whose id is v's id.
func (r *VenueRepo) InsertRoot(ctx context.Context, v *model.Venue) error {
	slot := venuetree.RootSlot()
	id, err := r.insert(ctx, v, 0, slot)
	if err != nil {
		return err
	}
	if _, err := conn(ctx, r.db).ExecContext(ctx, "UPDATE venues SET tree_id = id WHERE id = ?", id); err != nil {
		return err
	}
	return r.reload(ctx, v, id)
}

// InsertChild stores v as the last child of parent.  parent must have
// been read under the tree lock so its bounds are current.
func (r *VenueRepo) InsertChild(ctx context.Context, parent model.Venue, v *model.Venue) error {
	if err := r.shift(ctx, parent.TreeID, venuetree.InsertGap(parent)); err != nil {
		return err
	}
	slot := venuetree.ChildSlot(parent)
	pid := parent.ID
	v.ParentID = &pid
	id, err := r.insert(ctx, v, parent.TreeID, slot)
	if err != nil {
		return err
	}
	return r.reload(ctx, v, id)
}

// insert writes one row at slot and returns its id.
func (r *VenueRepo) insert(ctx context.Context, v *model.Venue, treeID uint64, slot venuetree.Slot) (uint64, error) {
	const q = `INSERT INTO venues
		(name, category, venue_type, company_id, parent_id, pricing_id, tree_id, lft, rgt, depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, v.Name, v.Category, v.VenueType,
		argID(v.CompanyID), argID(v.ParentID), argID(v.PricingID), treeID, slot.Lft, slot.Rgt, slot.Depth)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *VenueRepo) reload(ctx context.Context, v *model.Venue, id uint64) error {
	got, err := r.GetVenue(ctx, id)
	if err != nil {
		return err
	}
	*v = *got
	return nil
}

// UpdateVenue writes the mutable columns.  Category and tree position
// are never updated here.
func (r *VenueRepo) UpdateVenue(ctx context.Context, v *model.Venue) error {
	const q = `UPDATE venues SET name = ?, venue_type = ?, pricing_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	if _, err := conn(ctx, r.db).ExecContext(ctx, q, v.Name, v.VenueType, argID(v.PricingID), v.ID); err != nil {
		return err
	}
	return r.reload(ctx, v, v.ID)
}

// DeleteSubtree removes v and everything below it, deepest rows first,
// then closes the gap in the tree.  Reservations cascade through
// reservations.venue_id.
func (r *VenueRepo) DeleteSubtree(ctx context.Context, v model.Venue) error {
	const q = "DELETE FROM venues WHERE tree_id = ? AND lft BETWEEN ? AND ? ORDER BY lft DESC"
	if _, err := conn(ctx, r.db).ExecContext(ctx, q, v.TreeID, v.Lft, v.Rgt); err != nil {
		return err
	}
	return r.shift(ctx, v.TreeID, venuetree.RemovalGap(v))
}

// shift applies g to every row of the tree.
func (r *VenueRepo) shift(ctx context.Context, treeID uint64, g venuetree.Gap) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, "UPDATE venues SET rgt = rgt + ? WHERE tree_id = ? AND rgt >= ?", g.Width, treeID, g.From); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, "UPDATE venues SET lft = lft + ? WHERE tree_id = ? AND lft >= ?", g.Width, treeID, g.From)
	return err
}

// LoadTree returns every node of a tree in lft order, which is also
// depth-first order.
func (r *VenueRepo) LoadTree(ctx context.Context, treeID uint64) ([]model.Venue, error) {
	return r.list(ctx, "SELECT "+venueCols+" FROM venues WHERE tree_id = ? ORDER BY lft", treeID)
}

// LoadCompanyForest returns every tree that holds at least one venue of
// the company, including nodes leased to other companies.
func (r *VenueRepo) LoadCompanyForest(ctx context.Context, companyID uint64) ([]model.Venue, error) {
	const q = "SELECT " + venueCols + ` FROM venues
		WHERE tree_id IN (SELECT DISTINCT tree_id FROM venues WHERE company_id = ?)
		ORDER BY tree_id, lft`
	return r.list(ctx, q, companyID)
}

// ListLots filters lots by company, parent, visibility and whether they
// are free at an instant.
func (r *VenueRepo) ListLots(ctx context.Context, f service.LotFilter) ([]model.Venue, error) {
	where := []string{"v.category = ?"}
	args := []any{model.CategoryLot}
	if f.CompanyID != nil {
		where = append(where, "v.company_id = ?")
		args = append(args, *f.CompanyID)
	}
	if f.ParentID != nil {
		where = append(where, "v.parent_id = ?")
		args = append(args, *f.ParentID)
	}
	if f.PublicOnly {
		where = append(where, "v.venue_type = ?")
		args = append(args, model.VenueTypePublic)
	}
	if f.FreeAt != nil {
		where = append(where, `NOT EXISTS (SELECT 1 FROM reservations r
			WHERE r.venue_id = v.id AND r.status <> ? AND r.book_from <= ? AND r.book_to >= ?)`)
		args = append(args, model.StatusCanceled, *f.FreeAt, *f.FreeAt)
	}
	q := "SELECT " + prefixed("v", venueCols) + " FROM venues v WHERE " + strings.Join(where, " AND ") + " ORDER BY v.id"
	return r.list(ctx, q, args...)
}

func (r *VenueRepo) list(ctx context.Context, q string, args ...any) ([]model.Venue, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
