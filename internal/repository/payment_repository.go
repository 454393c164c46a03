package repository

import (
	"context"
	"database/sql"

	"github.com/hitman711/parkinglot/internal/model"
)

// PaymentRepo appends to and reads the payment_histories ledger.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// CreatePayment appends a row to the payment ledger and fills in the
// generated id and created_at.  The reservation totals are updated
// separately by the caller in the same transaction.
func (r *PaymentRepo) CreatePayment(ctx context.Context, p *model.Payment) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		"INSERT INTO payment_histories (reservation_id, payment_type, amount) VALUES (?, ?, ?)",
		p.ReservationID, p.PaymentType, p.Amount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return q.QueryRowContext(ctx, "SELECT created_at FROM payment_histories WHERE id = ?", p.ID).Scan(&p.CreatedAt)
}

// ListPayments returns the ledger of a reservation, oldest first.
func (r *PaymentRepo) ListPayments(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
	const q = `SELECT id, reservation_id, payment_type, amount, created_at
		FROM payment_histories WHERE reservation_id = ? ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.PaymentType, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
