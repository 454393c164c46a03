package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending  ReservationStatus = "pending"
	StatusBooked   ReservationStatus = "booked"
	StatusActive   ReservationStatus = "active"
	StatusOverdue  ReservationStatus = "overdue"
	StatusClosed   ReservationStatus = "closed"
	StatusCanceled ReservationStatus = "canceled"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusBooked, StatusActive, StatusOverdue, StatusClosed, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == StatusClosed || s == StatusCanceled
}

// PaymentStatus summarises how much of a reservation has been paid.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentPartialPaid PaymentStatus = "partial paid"
	PaymentFullPaid    PaymentStatus = "full paid"
)

// Reservation books a lot for the closed interval [BookFrom, BookTo].
//
// Fields:
//
//	ID              – primary key identifier.
//	VenueID         – booked lot.
//	UserID          – booking user; nil when anonymous or deleted.
//	BookFrom        – start of the booking (UTC).
//	BookTo          – end of the booking (UTC).
//	License         – vehicle plate.
//	PhoneNumber     – contact number.
//	Status          – lifecycle state.
//	Amount          – per-block price copied from the pricing rule.
//	OverdueAmount   – accumulated late surcharge.
//	TotalAmount     – price of the booking plus surcharges.
//	TotalAmountPaid – running sum of payments.
//	PaymentStatus   – pending, partial paid or full paid.
//	Version         – optimistic locking counter bumped on every update.
type Reservation struct {
	ID              uint64            // reservations.id
	VenueID         uint64            // reservations.venue_id
	UserID          *uint64           // reservations.user_id (nullable)
	BookFrom        time.Time         // reservations.book_from
	BookTo          time.Time         // reservations.book_to
	License         string            // reservations.license
	PhoneNumber     string            // reservations.phone_number
	Status          ReservationStatus // reservations.status
	Amount          decimal.Decimal   // reservations.amount
	OverdueAmount   decimal.Decimal   // reservations.overdue_amount
	TotalAmount     decimal.Decimal   // reservations.total_amount
	TotalAmountPaid decimal.Decimal   // reservations.total_amount_paid
	PaymentStatus   PaymentStatus     // reservations.payment_status
	Version         uint32            // reservations.version
	CreatedAt       time.Time         // reservations.created_at
	UpdatedAt       time.Time         // reservations.updated_at
}

// Overlaps reports whether [from, to] intersects the reservation's
// interval.  Both ends are inclusive, so touching bookings overlap.
func (r Reservation) Overlaps(from, to time.Time) bool {
	return !from.After(r.BookTo) && !to.Before(r.BookFrom)
}

// Covers reports whether at falls inside [BookFrom, BookTo].
func (r Reservation) Covers(at time.Time) bool {
	return !at.Before(r.BookFrom) && !at.After(r.BookTo)
}

// Balance is the amount still owed.
func (r Reservation) Balance() decimal.Decimal {
	return r.TotalAmount.Sub(r.TotalAmountPaid)
}
