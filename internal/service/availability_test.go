package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
	"github.com/hitman711/parkinglot/internal/testutil"
)

func TestAvailability_Counts(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme Parking")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl := f.child(b.ID, "2", model.CategoryFloor)
	l1 := f.child(fl.ID, "L1", model.CategoryLot)
	l2 := f.child(fl.ID, "L2", model.CategoryLot)
	f.child(fl.ID, "L3", model.CategoryLot)

	_, err := f.book(l1.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.book(l2.ID, now.Add(2*time.Hour), now.Add(3*time.Hour))
	require.NoError(t, err)

	free := func(s service.Scope, at time.Time) int {
		n, err := f.avail.AvailableLotCount(f.ctx, s, at)
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, 2, free(service.CompanyScope(acme.ID), now))
	assert.Equal(t, 2, free(service.CompanyScope(acme.ID), now), "repeat read")
	assert.Equal(t, 2, free(service.VenueScope(fl.ID), now.Add(150*time.Minute)))
	assert.Equal(t, 3, free(service.VenueScope(b.ID), now.Add(5*time.Hour)))
	assert.Equal(t, 0, free(service.VenueScope(l1.ID), now))

	total, available, err := f.avail.CompanyCounts(f.ctx, acme.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, available)
}

func TestAvailability_BoundaryIsBusy(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	l := f.child(b.ID, "L1", model.CategoryLot)
	_, err := f.book(l.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	for _, at := range []time.Time{now, now.Add(time.Hour)} {
		n, err := f.avail.AvailableLotCount(f.ctx, service.VenueScope(b.ID), at)
		require.NoError(t, err)
		assert.Zero(t, n, at)
	}
}

func TestAvailability_CanceledDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	l := f.child(b.ID, "L1", model.CategoryLot)
	f.store.PutReservation(model.Reservation{VenueID: l.ID, BookFrom: now.Add(-time.Hour), BookTo: now.Add(time.Hour), Status: model.StatusCanceled})

	n, err := f.avail.AvailableLotCount(f.ctx, service.VenueScope(b.ID), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAvailability_Cache(t *testing.T) {
	f := newFixture(t)
	cache := &testutil.Cache{}
	f.avail.WithCache(cache, time.Minute)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	f.child(b.ID, "L1", model.CategoryLot)

	for i := 0; i < 3; i++ {
		n, err := f.avail.AvailableLotCount(f.ctx, service.CompanyScope(acme.ID), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, 1, cache.Sets)
}

func TestAvailability_LocationAndDescribe(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme Parking")
	p := f.price(acme.ID, "100", 1, model.UnitHour, "")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl := f.child(b.ID, "2", model.CategoryFloor)
	lot := f.priced(fl.ID, "L1", p.ID)
	yard := f.root(acme.ID, "Yard", model.CategoryLot)

	loc, err := f.avail.LocationString(f.ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, "2 floor, Acme Parking", loc)

	loc, err = f.avail.LocationString(f.ctx, yard.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Parking", loc)

	view, err := f.avail.Describe(f.ctx, lot.ID, now)
	require.NoError(t, err)
	require.NotNil(t, view.Pricing)
	assert.Equal(t, p.ID, view.Pricing.ID)
	assert.Equal(t, "Acme Parking", view.CompanyName)
	assert.Zero(t, view.TotalLots)

	kids, err := f.avail.DescribeChildren(f.ctx, b.ID, now)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, 1, kids[0].TotalLots)
	assert.Equal(t, 1, kids[0].AvailableLots)
}

func TestAvailability_CompanyTree(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl := f.child(b.ID, "1", model.CategoryFloor)
	l1 := f.child(fl.ID, "L1", model.CategoryLot)
	f.child(fl.ID, "L2", model.CategoryLot)
	_, err := f.book(l1.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	roots, err := f.avail.CompanyTree(f.ctx, acme.ID, now)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, 2, roots[0].TotalLots)
	assert.Equal(t, 1, roots[0].AvailableLots)
	require.Len(t, roots[0].Children, 1)
	floor := roots[0].Children[0]
	assert.Equal(t, fl.ID, floor.Venue.ID)
	require.Len(t, floor.Children, 2)
	assert.Zero(t, floor.Children[0].TotalLots)
}

func TestAvailability_FreeLots(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	l1 := f.child(b.ID, "L1", model.CategoryLot)
	l2 := f.child(b.ID, "L2", model.CategoryLot)
	private := model.VenueTypePrivate
	_, err := f.tree.UpdateVenue(f.ctx, l2.ID, service.VenueUpdate{VenueType: &private})
	require.NoError(t, err)
	l3 := f.child(b.ID, "L3", model.CategoryLot)
	_, err = f.book(l3.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	at := now.Add(30 * time.Minute)
	lots, err := f.avail.FreeLots(f.ctx, service.LotFilter{CompanyID: &acme.ID, PublicOnly: true, FreeAt: &at})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, l1.ID, lots[0].ID)
}
