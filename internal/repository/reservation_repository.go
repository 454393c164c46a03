package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
)

// ReservationRepo stores reservations.  Every update bumps version so
// the status sweep can detect concurrent writers.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

const reservationCols = `id, venue_id, user_id, book_from, book_to, license, phone_number, status,
	amount, overdue_amount, total_amount, total_amount_paid, payment_status, version,
	created_at, updated_at`

// scanReservation reads a row in reservationCols order followed by any
// extra columns the query selected.
func scanReservation(s rowScanner, extra ...any) (*model.Reservation, error) {
	var (
		r    model.Reservation
		user sql.NullInt64
	)
	dest := []any{&r.ID, &r.VenueID, &user, &r.BookFrom, &r.BookTo, &r.License, &r.PhoneNumber, &r.Status,
		&r.Amount, &r.OverdueAmount, &r.TotalAmount, &r.TotalAmountPaid, &r.PaymentStatus, &r.Version,
		&r.CreatedAt, &r.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.UserID = nullID(user)
	return &r, nil
}

// CreateReservation inserts a reservation with version 0 and reloads it
// so the caller sees the stored timestamps.  A user id from a token is
// recorded in users first to satisfy the foreign key.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(venue_id, user_id, book_from, book_to, license, phone_number, status,
		 amount, overdue_amount, total_amount, total_amount_paid, payment_status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	if err := ensureUser(ctx, conn(ctx, r.db), res.UserID); err != nil {
		return err
	}
	out, err := conn(ctx, r.db).ExecContext(ctx, q, res.VenueID, argID(res.UserID), res.BookFrom, res.BookTo,
		res.License, res.PhoneNumber, res.Status, res.Amount, res.OverdueAmount, res.TotalAmount,
		res.TotalAmountPaid, res.PaymentStatus)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetReservation(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = *got
	return nil
}

// GetReservation returns the reservation or model.ErrNotFound.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, "SELECT "+reservationCols+" FROM reservations WHERE id = ?", id)
}

// LockReservation reads the reservation FOR UPDATE.
func (r *ReservationRepo) LockReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, "SELECT "+reservationCols+" FROM reservations WHERE id = ? FOR UPDATE", id)
}

func (r *ReservationRepo) get(ctx context.Context, q string, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return res, err
}

// ListOverlapping uses the closed-interval test
// book_from <= to AND book_to >= from.
func (r *ReservationRepo) ListOverlapping(ctx context.Context, venueID uint64, from, to time.Time) ([]model.Reservation, error) {
	const q = "SELECT " + reservationCols + ` FROM reservations
		WHERE venue_id = ? AND status <> ? AND book_from <= ? AND book_to >= ?
		ORDER BY book_from`
	return r.list(ctx, q, venueID, model.StatusCanceled, to, from)
}

// busyChunk bounds the IN list of a single BusyVenues query.
const busyChunk = 500

// BusyVenues reports which of venueIDs have a non-canceled reservation
// covering at.  Large id lists are queried in chunks of busyChunk.
func (r *ReservationRepo) BusyVenues(ctx context.Context, venueIDs []uint64, at time.Time) (map[uint64]bool, error) {
	out := make(map[uint64]bool)
	for start := 0; start < len(venueIDs); start += busyChunk {
		end := min(start+busyChunk, len(venueIDs))
		chunk := venueIDs[start:end]
		args := make([]any, 0, len(chunk)+3)
		for _, id := range chunk {
			args = append(args, id)
		}
		args = append(args, model.StatusCanceled, at, at)
		q := `SELECT DISTINCT venue_id FROM reservations
			WHERE venue_id IN (` + placeholders(len(chunk)) + `)
			  AND status <> ? AND book_from <= ? AND book_to >= ?`
		if err := r.collectIDs(ctx, out, q, args...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *ReservationRepo) collectIDs(ctx context.Context, out map[uint64]bool, q string, args ...any) error {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		out[id] = true
	}
	return rows.Err()
}

// UpdatePayment stores the paid total and payment status and bumps the
// version, so a sweep holding the old version loses its update.
func (r *ReservationRepo) UpdatePayment(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
		SET total_amount_paid = ?, payment_status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	out, err := conn(ctx, r.db).ExecContext(ctx, q, res.TotalAmountPaid, res.PaymentStatus, res.ID)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	res.Version++
	return nil
}

// ListReservations filters by user, company and status.  Newest
// bookings come first.
func (r *ReservationRepo) ListReservations(ctx context.Context, f service.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	from := "reservations r"
	if f.UserID != nil {
		where = append(where, "r.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.CompanyID != nil {
		from += " JOIN venues v ON v.id = r.venue_id"
		where = append(where, "v.company_id = ?")
		args = append(args, *f.CompanyID)
	}
	if f.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, f.Status)
	}
	q := "SELECT " + prefixed("r", reservationCols) + " FROM " + from
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY r.book_from DESC, r.id DESC"
	return r.list(ctx, q, args...)
}

// SweepCandidates joins each reservation with the overdue amount of its
// venue's pricing rule, zero when the venue has none.
func (r *ReservationRepo) SweepCandidates(ctx context.Context, from, to time.Time) ([]service.SweepCandidate, error) {
	q := "SELECT " + prefixed("r", reservationCols) + `, COALESCE(p.overdue_amount, 0)
		FROM reservations r
		JOIN venues v ON v.id = r.venue_id
		LEFT JOIN lot_prices p ON p.id = v.pricing_id
		WHERE r.status IN (?, ?) AND r.book_from >= ? AND r.book_from < ?
		ORDER BY r.id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, model.StatusPending, model.StatusActive, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []service.SweepCandidate
	for rows.Next() {
		var charge decimal.Decimal
		res, err := scanReservation(rows, &charge)
		if err != nil {
			return nil, err
		}
		out = append(out, service.SweepCandidate{Reservation: *res, OverdueCharge: charge})
	}
	return out, rows.Err()
}

// ApplyTransition is a compare-and-set on (status, version).
func (r *ReservationRepo) ApplyTransition(ctx context.Context, res *model.Reservation, status model.ReservationStatus, version uint32) (bool, error) {
	const q = `UPDATE reservations
		SET status = ?, overdue_amount = ?, total_amount = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND version = ?`
	out, err := conn(ctx, r.db).ExecContext(ctx, q, res.Status, res.OverdueAmount, res.TotalAmount, res.ID, status, version)
	if err != nil {
		return false, err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	res.Version = version + 1
	return true, nil
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
