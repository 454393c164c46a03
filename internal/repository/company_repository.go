package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitman711/parkinglot/internal/model"
)

// CompanyRepo encapsulates all database queries related to companies.
type CompanyRepo struct {
	db *sql.DB
}

// NewCompanyRepo returns a new CompanyRepo bound to the given database.
func NewCompanyRepo(db *sql.DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

const companyCols = "id, user_id, name, created_at, updated_at"

// CreateCompany inserts a company and reads back its generated id and
// timestamps.  A duplicate name for the same owner yields model.ErrConflict.
func (r *CompanyRepo) CreateCompany(ctx context.Context, c *model.Company) error {
	q := conn(ctx, r.db)
	if err := ensureUser(ctx, q, &c.UserID); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, "INSERT INTO companies (user_id, name) VALUES (?, ?)", c.UserID, c.Name)
	if err != nil {
		if isDuplicate(err) {
			return model.ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetCompany(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

// GetCompany returns the company with the given id or model.ErrNotFound.
func (r *CompanyRepo) GetCompany(ctx context.Context, id uint64) (*model.Company, error) {
	var c model.Company
	err := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+companyCols+" FROM companies WHERE id = ?", id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCompaniesByUser returns the companies owned by a user ordered by id.
func (r *CompanyRepo) ListCompaniesByUser(ctx context.Context, userID uint64) ([]model.Company, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT "+companyCols+" FROM companies WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompanyNames maps ids to names; unknown ids are absent.
func (r *CompanyRepo) CompanyNames(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT id, name FROM companies WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   uint64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}
