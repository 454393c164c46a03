package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hitman711/parkinglot/internal/clock"
	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
	"github.com/hitman711/parkinglot/internal/testutil"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

const owner uint64 = 7

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *testutil.Store
	events    *testutil.Publisher
	catalog   *service.Catalog
	tree      *service.VenueTree
	avail     *service.AvailabilityCalculator
	scheduler *service.ReservationScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewStore()
	st.Clock = func() time.Time { return now }
	ev := &testutil.Publisher{}
	tree := service.NewVenueTree(st, st, st, st)
	return &fixture{
		t:         t,
		ctx:       context.Background(),
		store:     st,
		events:    ev,
		catalog:   service.NewCatalog(st, st, st),
		tree:      tree,
		avail:     service.NewAvailabilityCalculator(tree, st, st, st),
		scheduler: service.NewReservationScheduler(st, st, st, st, st, ev, clock.NewFixed(now)),
	}
}

func (f *fixture) company(name string) *model.Company {
	f.t.Helper()
	c, err := f.catalog.CreateCompany(f.ctx, owner, name)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) price(companyID uint64, amount string, duration int, unit model.DurationUnit, prePaid string) *model.PricingRule {
	f.t.Helper()
	p, err := f.catalog.CreatePricing(f.ctx, companyID, service.PricingInput{
		Name:          "standard",
		Duration:      duration,
		DurationUnit:  unit,
		PrePaidAmount: prePaid,
		Amount:        amount,
		OverdueAmount: "15",
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) root(companyID uint64, name string, cat model.Category) *model.Venue {
	f.t.Helper()
	v, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: name, Category: cat, CompanyID: &companyID})
	require.NoError(f.t, err)
	return v
}

func (f *fixture) child(parentID uint64, name string, cat model.Category) *model.Venue {
	f.t.Helper()
	v, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: name, Category: cat, ParentID: &parentID})
	require.NoError(f.t, err)
	return v
}

func (f *fixture) priced(parentID uint64, name string, pricingID uint64) *model.Venue {
	f.t.Helper()
	v, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: name, Category: model.CategoryLot, ParentID: &parentID, PricingID: &pricingID})
	require.NoError(f.t, err)
	return v
}

func (f *fixture) book(venueID uint64, from, to time.Time, pays ...service.PaymentInput) (*service.Booking, error) {
	return f.scheduler.CreateReservation(f.ctx, service.ReservationRequest{
		VenueID:  venueID,
		BookFrom: from,
		BookTo:   to,
		License:  "KA-01-1234",
		Payments: pays,
	})
}

func cash(amount string) service.PaymentInput {
	return service.PaymentInput{Type: model.PaymentCash, Amount: decimal.RequireFromString(amount)}
}
