package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitman711/parkinglot/internal/model"
)

// TxRunner runs fn inside one database transaction.  Store calls made
// with the context passed to fn join that transaction; returning an
// error rolls everything back.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CompanyStore interface {
	CreateCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id uint64) (*model.Company, error)
	ListCompaniesByUser(ctx context.Context, userID uint64) ([]model.Company, error)
	CompanyNames(ctx context.Context, ids []uint64) (map[uint64]string, error)
}

type PricingStore interface {
	CreatePricing(ctx context.Context, p *model.PricingRule) error
	GetPricing(ctx context.Context, id uint64) (*model.PricingRule, error)
	ListPricingByCompany(ctx context.Context, companyID uint64) ([]model.PricingRule, error)
	UpdatePricing(ctx context.Context, p *model.PricingRule) error
	DeletePricing(ctx context.Context, id uint64) error
}

// LotFilter narrows a lot listing.  Nil fields do not filter.
type LotFilter struct {
	CompanyID  *uint64
	ParentID   *uint64
	PublicOnly bool
	// FreeAt drops lots with a non-canceled reservation covering the instant.
	FreeAt *time.Time
}

type VenueStore interface {
	GetVenue(ctx context.Context, id uint64) (*model.Venue, error)
	// LockVenue reads the venue with a row lock held until the
	// surrounding transaction ends.
	LockVenue(ctx context.Context, id uint64) (*model.Venue, error)
	// LockTree locks a whole tree for structural changes.  Every writer
	// that shifts nested-set bounds takes this lock first.
	LockTree(ctx context.Context, treeID uint64) error
	InsertRoot(ctx context.Context, v *model.Venue) error
	// InsertChild stores v as the last child of parent, shifting the
	// nested-set bounds of the tree.
	InsertChild(ctx context.Context, parent model.Venue, v *model.Venue) error
	UpdateVenue(ctx context.Context, v *model.Venue) error
	DeleteSubtree(ctx context.Context, v model.Venue) error
	LoadTree(ctx context.Context, treeID uint64) ([]model.Venue, error)
	// LoadCompanyForest returns every tree containing a venue of the company.
	LoadCompanyForest(ctx context.Context, companyID uint64) ([]model.Venue, error)
	ListLots(ctx context.Context, f LotFilter) ([]model.Venue, error)
}

// ReservationFilter narrows a reservation listing.  Nil or empty
// fields do not filter.
type ReservationFilter struct {
	UserID    *uint64
	CompanyID *uint64
	Status    model.ReservationStatus
}

// SweepCandidate is a reservation due for status evaluation together
// with the overdue surcharge of its venue's pricing rule.
type SweepCandidate struct {
	Reservation   model.Reservation
	OverdueCharge decimal.Decimal
}

type ReservationStore interface {
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	LockReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	// ListOverlapping returns non-canceled reservations of the venue whose
	// closed interval intersects [from, to].
	ListOverlapping(ctx context.Context, venueID uint64, from, to time.Time) ([]model.Reservation, error)
	// BusyVenues reports which of venueIDs have a non-canceled
	// reservation covering at.
	BusyVenues(ctx context.Context, venueIDs []uint64, at time.Time) (map[uint64]bool, error)
	// UpdatePayment persists payment fields and bumps the version.
	UpdatePayment(ctx context.Context, r *model.Reservation) error
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	// SweepCandidates returns pending and active reservations whose
	// book_from lies in [from, to).
	SweepCandidates(ctx context.Context, from, to time.Time) ([]SweepCandidate, error)
	// ApplyTransition writes status and amounts only if the row is still
	// at (status, version); it reports false when another writer won.
	ApplyTransition(ctx context.Context, r *model.Reservation, status model.ReservationStatus, version uint32) (bool, error)
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *model.Payment) error
	ListPayments(ctx context.Context, reservationID uint64) ([]model.Payment, error)
}

// EventPublisher delivers domain events.  Failures are logged by the
// caller and never undo a committed change.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// CountCache stores availability counts for a short time bucket.
type CountCache interface {
	GetCount(ctx context.Context, key string) (int, bool)
	SetCount(ctx context.Context, key string, n int, ttl time.Duration)
}
