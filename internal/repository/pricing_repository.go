package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitman711/parkinglot/internal/model"
)

// PricingRepo stores pricing rules (the lot_prices table).
type PricingRepo struct {
	db *sql.DB
}

// NewPricingRepo returns a new PricingRepo bound to the given database.
func NewPricingRepo(db *sql.DB) *PricingRepo {
	return &PricingRepo{db: db}
}

const pricingCols = `id, company_id, name, duration, duration_unit, pre_paid_amount,
	amount, overdue_amount, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPricing reads one lot_prices row in pricingCols order.
func scanPricing(s rowScanner) (*model.PricingRule, error) {
	var p model.PricingRule
	err := s.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Duration, &p.DurationUnit,
		&p.PrePaidAmount, &p.Amount, &p.OverdueAmount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePricing inserts a rule and reads back its generated id and
// timestamps.
func (r *PricingRepo) CreatePricing(ctx context.Context, p *model.PricingRule) error {
	const q = `INSERT INTO lot_prices
		(company_id, name, duration, duration_unit, pre_paid_amount, amount, overdue_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, p.CompanyID, p.Name, p.Duration, p.DurationUnit,
		p.PrePaidAmount, p.Amount, p.OverdueAmount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetPricing(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// GetPricing returns the rule with the given id or model.ErrNotFound.
func (r *PricingRepo) GetPricing(ctx context.Context, id uint64) (*model.PricingRule, error) {
	p, err := scanPricing(conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+pricingCols+" FROM lot_prices WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return p, err
}

// ListPricingByCompany returns every rule of a company ordered by id.
func (r *PricingRepo) ListPricingByCompany(ctx context.Context, companyID uint64) ([]model.PricingRule, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT "+pricingCols+" FROM lot_prices WHERE company_id = ? ORDER BY id", companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PricingRule
	for rows.Next() {
		p, err := scanPricing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePricing overwrites the editable columns of a rule.  Existing
// reservations keep their stored totals; the sweep reads the overdue
// amount from the rule when it applies the surcharge.
func (r *PricingRepo) UpdatePricing(ctx context.Context, p *model.PricingRule) error {
	const q = `UPDATE lot_prices
		SET name = ?, duration = ?, duration_unit = ?, pre_paid_amount = ?, amount = ?,
		    overdue_amount = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, p.Name, p.Duration, p.DurationUnit,
		p.PrePaidAmount, p.Amount, p.OverdueAmount, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an unchanged row, so confirm existence.
		if _, err := r.GetPricing(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeletePricing removes a rule.  venues.pricing_id is ON DELETE SET NULL.
func (r *PricingRepo) DeletePricing(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM lot_prices WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
