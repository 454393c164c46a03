// Package testutil holds in-memory stand-ins for the MySQL repositories,
// the event publisher and the availability cache.  The store keeps the
// same nested-set bookkeeping the SQL repositories do, so service tests
// exercise real tree bounds.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
	"github.com/hitman711/parkinglot/internal/venuetree"
)

type txKey struct{}

type state struct {
	companies    map[uint64]model.Company
	pricing      map[uint64]model.PricingRule
	venues       map[uint64]model.Venue
	reservations map[uint64]model.Reservation
	payments     map[uint64]model.Payment
	nextID       uint64
}

func (s *state) clone() *state {
	c := &state{
		companies:    make(map[uint64]model.Company, len(s.companies)),
		pricing:      make(map[uint64]model.PricingRule, len(s.pricing)),
		venues:       make(map[uint64]model.Venue, len(s.venues)),
		reservations: make(map[uint64]model.Reservation, len(s.reservations)),
		payments:     make(map[uint64]model.Payment, len(s.payments)),
		nextID:       s.nextID,
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.pricing {
		c.pricing[k] = v
	}
	for k, v := range s.venues {
		c.venues[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// Store implements every service store interface plus service.TxRunner.
// Transactions are serialized and roll back by restoring a snapshot.
type Store struct {
	Clock func() time.Time

	// FailCreatePayment, when set, is returned by CreatePayment.
	FailCreatePayment error
	// BeforeTransition runs before ApplyTransition compares versions,
	// letting a test play a concurrent writer.
	BeforeTransition func(id uint64)

	txMu sync.Mutex
	mu   sync.Mutex
	s    *state
}

func NewStore() *Store {
	return &Store{
		Clock: func() time.Time { return time.Now().UTC() },
		s: &state{
			companies:    map[uint64]model.Company{},
			pricing:      map[uint64]model.PricingRule{},
			venues:       map[uint64]model.Venue{},
			reservations: map[uint64]model.Reservation{},
			payments:     map[uint64]model.Payment{},
		},
	}
}

var _ interface {
	service.TxRunner
	service.CompanyStore
	service.PricingStore
	service.VenueStore
	service.ReservationStore
	service.PaymentStore
} = (*Store)(nil)

func (m *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := m.s.clone()
	m.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.mu.Lock()
		m.s = snap
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Store) id() uint64 {
	m.s.nextID++
	return m.s.nextID
}

func (m *Store) now() time.Time { return m.Clock().Truncate(time.Second) }

// Companies

func (m *Store) CreateCompany(_ context.Context, c *model.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.s.companies {
		if o.UserID == c.UserID && o.Name == c.Name {
			return model.ErrConflict
		}
	}
	c.ID = m.id()
	c.CreatedAt, c.UpdatedAt = m.now(), m.now()
	m.s.companies[c.ID] = *c
	return nil
}

func (m *Store) GetCompany(_ context.Context, id uint64) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.s.companies[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &c, nil
}

func (m *Store) ListCompaniesByUser(_ context.Context, userID uint64) ([]model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Company
	for _, c := range m.s.companies {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) CompanyNames(_ context.Context, ids []uint64) (map[uint64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint64]string, len(ids))
	for _, id := range ids {
		if c, ok := m.s.companies[id]; ok {
			out[id] = c.Name
		}
	}
	return out, nil
}

// Pricing

func (m *Store) CreatePricing(_ context.Context, p *model.PricingRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt, p.UpdatedAt = m.now(), m.now()
	m.s.pricing[p.ID] = *p
	return nil
}

func (m *Store) GetPricing(_ context.Context, id uint64) (*model.PricingRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.s.pricing[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

func (m *Store) ListPricingByCompany(_ context.Context, companyID uint64) ([]model.PricingRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PricingRule
	for _, p := range m.s.pricing {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpdatePricing(_ context.Context, p *model.PricingRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.pricing[p.ID]; !ok {
		return model.ErrNotFound
	}
	p.UpdatedAt = m.now()
	m.s.pricing[p.ID] = *p
	return nil
}

// DeletePricing detaches the rule from its venues like ON DELETE SET NULL.
func (m *Store) DeletePricing(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.pricing[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.s.pricing, id)
	for vid, v := range m.s.venues {
		if v.PricingID != nil && *v.PricingID == id {
			v.PricingID = nil
			m.s.venues[vid] = v
		}
	}
	return nil
}

// Venues

func (m *Store) GetVenue(_ context.Context, id uint64) (*model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.s.venues[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &v, nil
}

// LockVenue is GetVenue: transactions are already serialized.
func (m *Store) LockVenue(ctx context.Context, id uint64) (*model.Venue, error) {
	return m.GetVenue(ctx, id)
}

func (m *Store) LockTree(_ context.Context, treeID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.venues[treeID]; !ok {
		return model.ErrNotFound
	}
	return nil
}

func (m *Store) InsertRoot(_ context.Context, v *model.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := venuetree.RootSlot()
	v.ID = m.id()
	v.TreeID = v.ID
	v.ParentID = nil
	v.Lft, v.Rgt, v.Depth = slot.Lft, slot.Rgt, slot.Depth
	v.CreatedAt, v.UpdatedAt = m.now(), m.now()
	m.s.venues[v.ID] = *v
	return nil
}

func (m *Store) InsertChild(_ context.Context, parent model.Venue, v *model.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.venues[parent.ID]; !ok {
		return model.ErrNotFound
	}
	gap := venuetree.InsertGap(parent)
	for id, o := range m.s.venues {
		if o.TreeID == parent.TreeID {
			gap.Apply(&o)
			m.s.venues[id] = o
		}
	}
	slot := venuetree.ChildSlot(parent)
	pid := parent.ID
	v.ID = m.id()
	v.TreeID = parent.TreeID
	v.ParentID = &pid
	v.Lft, v.Rgt, v.Depth = slot.Lft, slot.Rgt, slot.Depth
	v.CreatedAt, v.UpdatedAt = m.now(), m.now()
	m.s.venues[v.ID] = *v
	return nil
}

func (m *Store) UpdateVenue(_ context.Context, v *model.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.s.venues[v.ID]
	if !ok {
		return model.ErrNotFound
	}
	cur.Name, cur.VenueType, cur.PricingID = v.Name, v.VenueType, v.PricingID
	cur.UpdatedAt = m.now()
	m.s.venues[v.ID] = cur
	*v = cur
	return nil
}

// DeleteSubtree removes the subtree and cascades to its reservations and
// payments.
func (m *Store) DeleteSubtree(_ context.Context, v model.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.s.venues {
		if v.Contains(o) {
			delete(m.s.venues, id)
		}
	}
	for rid, r := range m.s.reservations {
		if _, ok := m.s.venues[r.VenueID]; !ok {
			delete(m.s.reservations, rid)
		}
	}
	for pid, p := range m.s.payments {
		if _, ok := m.s.reservations[p.ReservationID]; !ok {
			delete(m.s.payments, pid)
		}
	}
	gap := venuetree.RemovalGap(v)
	for id, o := range m.s.venues {
		if o.TreeID == v.TreeID {
			gap.Apply(&o)
			m.s.venues[id] = o
		}
	}
	return nil
}

func (m *Store) LoadTree(_ context.Context, treeID uint64) ([]model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.venuesWhere(func(v model.Venue) bool { return v.TreeID == treeID }), nil
}

func (m *Store) LoadCompanyForest(_ context.Context, companyID uint64) ([]model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trees := map[uint64]bool{}
	for _, v := range m.s.venues {
		if v.CompanyID != nil && *v.CompanyID == companyID {
			trees[v.TreeID] = true
		}
	}
	return m.venuesWhere(func(v model.Venue) bool { return trees[v.TreeID] }), nil
}

func (m *Store) ListLots(_ context.Context, f service.LotFilter) ([]model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var parent *model.Venue
	if f.ParentID != nil {
		p, ok := m.s.venues[*f.ParentID]
		if !ok {
			return nil, nil
		}
		parent = &p
	}
	return m.venuesWhere(func(v model.Venue) bool {
		if !v.IsLot() {
			return false
		}
		if f.CompanyID != nil && (v.CompanyID == nil || *v.CompanyID != *f.CompanyID) {
			return false
		}
		if parent != nil && (v.TreeID != parent.TreeID || v.Lft <= parent.Lft || v.Rgt >= parent.Rgt) {
			return false
		}
		if f.PublicOnly && v.VenueType != model.VenueTypePublic {
			return false
		}
		if f.FreeAt != nil && m.busy(v.ID, *f.FreeAt) {
			return false
		}
		return true
	}), nil
}

func (m *Store) venuesWhere(keep func(model.Venue) bool) []model.Venue {
	var out []model.Venue
	for _, v := range m.s.venues {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TreeID != out[j].TreeID {
			return out[i].TreeID < out[j].TreeID
		}
		return out[i].Lft < out[j].Lft
	})
	return out
}

func (m *Store) busy(venueID uint64, at time.Time) bool {
	for _, r := range m.s.reservations {
		if r.VenueID == venueID && r.Status != model.StatusCanceled && r.Covers(at) {
			return true
		}
	}
	return false
}

// Reservations

func (m *Store) CreateReservation(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.venues[r.VenueID]; !ok {
		return model.ErrNotFound
	}
	r.ID = m.id()
	r.Version = 0
	r.CreatedAt, r.UpdatedAt = m.now(), m.now()
	m.s.reservations[r.ID] = *r
	return nil
}

func (m *Store) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.s.reservations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &r, nil
}

func (m *Store) LockReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return m.GetReservation(ctx, id)
}

func (m *Store) ListOverlapping(_ context.Context, venueID uint64, from, to time.Time) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservationsWhere(func(r model.Reservation) bool {
		return r.VenueID == venueID && r.Status != model.StatusCanceled && r.Overlaps(from, to)
	}), nil
}

func (m *Store) BusyVenues(_ context.Context, venueIDs []uint64, at time.Time) (map[uint64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uint64]bool{}
	for _, id := range venueIDs {
		if m.busy(id, at) {
			out[id] = true
		}
	}
	return out, nil
}

func (m *Store) UpdatePayment(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.s.reservations[r.ID]
	if !ok {
		return model.ErrNotFound
	}
	cur.TotalAmountPaid = r.TotalAmountPaid
	cur.PaymentStatus = r.PaymentStatus
	cur.Version++
	cur.UpdatedAt = m.now()
	m.s.reservations[r.ID] = cur
	r.Version = cur.Version
	return nil
}

func (m *Store) ListReservations(_ context.Context, f service.ReservationFilter) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.reservationsWhere(func(r model.Reservation) bool {
		if f.UserID != nil && (r.UserID == nil || *r.UserID != *f.UserID) {
			return false
		}
		if f.CompanyID != nil {
			v := m.s.venues[r.VenueID]
			if v.CompanyID == nil || *v.CompanyID != *f.CompanyID {
				return false
			}
		}
		return f.Status == "" || r.Status == f.Status
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BookFrom.After(out[j].BookFrom) })
	return out, nil
}

func (m *Store) SweepCandidates(_ context.Context, from, to time.Time) ([]service.SweepCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := m.reservationsWhere(func(r model.Reservation) bool {
		if r.Status != model.StatusPending && r.Status != model.StatusActive {
			return false
		}
		return !r.BookFrom.Before(from) && r.BookFrom.Before(to)
	})
	out := make([]service.SweepCandidate, 0, len(rs))
	for _, r := range rs {
		charge := decimal.Zero
		if v, ok := m.s.venues[r.VenueID]; ok && v.PricingID != nil {
			if p, ok := m.s.pricing[*v.PricingID]; ok {
				charge = p.OverdueAmount
			}
		}
		out = append(out, service.SweepCandidate{Reservation: r, OverdueCharge: charge})
	}
	return out, nil
}

func (m *Store) ApplyTransition(_ context.Context, r *model.Reservation, status model.ReservationStatus, version uint32) (bool, error) {
	if m.BeforeTransition != nil {
		m.BeforeTransition(r.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.s.reservations[r.ID]
	if !ok || cur.Status != status || cur.Version != version {
		return false, nil
	}
	cur.Status = r.Status
	cur.OverdueAmount = r.OverdueAmount
	cur.TotalAmount = r.TotalAmount
	cur.Version = version + 1
	cur.UpdatedAt = m.now()
	m.s.reservations[r.ID] = cur
	r.Version = cur.Version
	return true, nil
}

// Touch bumps a reservation's version as another writer would.
func (m *Store) Touch(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.s.reservations[id]; ok {
		r.Version++
		m.s.reservations[id] = r
	}
}

// PutReservation stores r as is, bypassing every check.  Tests use it to
// seed reservations in a given state.
func (m *Store) PutReservation(r model.Reservation) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	m.s.reservations[r.ID] = r
	return r.ID
}

func (m *Store) reservationsWhere(keep func(model.Reservation) bool) []model.Reservation {
	var out []model.Reservation
	for _, r := range m.s.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Payments

func (m *Store) CreatePayment(_ context.Context, p *model.Payment) error {
	if m.FailCreatePayment != nil {
		return m.FailCreatePayment
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.s.reservations[p.ReservationID]; !ok {
		return model.ErrNotFound
	}
	p.ID = m.id()
	p.CreatedAt = m.now()
	m.s.payments[p.ID] = *p
	return nil
}

func (m *Store) ListPayments(_ context.Context, reservationID uint64) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Payment
	for _, p := range m.s.payments {
		if p.ReservationID == reservationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Counts reports how many reservations and payments are stored.
func (m *Store) Counts() (reservations, payments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.s.reservations), len(m.s.payments)
}
