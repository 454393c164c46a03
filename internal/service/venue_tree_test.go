package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
)

func TestVenueTree_CreateVenue(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl := f.child(b.ID, "2", model.CategoryFloor)
	lot := f.child(fl.ID, "L1", model.CategoryLot)

	t.Run("children inherit the company", func(t *testing.T) {
		require.NotNil(t, lot.CompanyID)
		assert.Equal(t, acme.ID, *lot.CompanyID)
		assert.Equal(t, model.VenueTypePublic, lot.VenueType)
	})

	t.Run("nested-set bounds", func(t *testing.T) {
		root, err := f.tree.Get(f.ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, root.Lft)
		assert.Equal(t, 6, root.Rgt)
		got, err := f.tree.Get(f.ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Depth)
		assert.Equal(t, b.ID, got.TreeID)
	})

	t.Run("a lot cannot be a parent", func(t *testing.T) {
		_, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: "x", Category: model.CategoryLot, ParentID: &lot.ID})
		assert.ErrorIs(t, err, service.ErrInvalidParent)
	})

	t.Run("root needs a company", func(t *testing.T) {
		_, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: "x", Category: model.CategoryBuilding})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown parent", func(t *testing.T) {
		missing := uint64(999)
		_, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: "x", Category: model.CategoryLot, ParentID: &missing})
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("pricing of another company", func(t *testing.T) {
		other := f.company("Other")
		p := f.price(other.ID, "10", 1, model.UnitHour, "")
		_, err := f.tree.CreateVenue(f.ctx, service.VenueInput{Name: "x", Category: model.CategoryLot, ParentID: &fl.ID, PricingID: &p.ID})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestVenueTree_TotalLotCount(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl1 := f.child(b.ID, "1", model.CategoryFloor)
	fl2 := f.child(b.ID, "2", model.CategoryFloor)
	l1 := f.child(fl1.ID, "L1", model.CategoryLot)
	f.child(fl1.ID, "L2", model.CategoryLot)
	f.child(fl2.ID, "L3", model.CategoryLot)
	f.root(acme.ID, "Yard", model.CategoryLot)

	count := func(s service.Scope) int {
		n, err := f.tree.TotalLotCount(f.ctx, s)
		require.NoError(t, err)
		return n
	}
	assert.Equal(t, 0, count(service.VenueScope(l1.ID)))
	assert.Equal(t, 2, count(service.VenueScope(fl1.ID)))
	assert.Equal(t, 3, count(service.VenueScope(b.ID)))
	assert.Equal(t, 4, count(service.CompanyScope(acme.ID)))

	children, err := f.tree.ChildrenOf(f.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, fl1.ID, children[0].ID)
}

func TestVenueTree_DeleteVenue(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl1 := f.child(b.ID, "1", model.CategoryFloor)
	fl2 := f.child(b.ID, "2", model.CategoryFloor)
	lot := f.child(fl1.ID, "L1", model.CategoryLot)
	keep := f.child(fl2.ID, "L2", model.CategoryLot)

	_, err := f.book(lot.ID, now, now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, f.tree.DeleteVenue(f.ctx, fl1.ID))

	_, err = f.tree.Get(f.ctx, lot.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	reservations, _ := f.store.Counts()
	assert.Zero(t, reservations)

	root, err := f.tree.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, root.Rgt)
	got, err := f.tree.Get(f.ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Lft)
	assert.Equal(t, 4, got.Rgt)
}

func TestVenueTree_UpdateVenue(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	p := f.price(acme.ID, "10", 1, model.UnitHour, "")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)

	name := "L1-east"
	private := model.VenueTypePrivate
	got, err := f.tree.UpdateVenue(f.ctx, lot.ID, service.VenueUpdate{Name: &name, VenueType: &private, PricingID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, "L1-east", got.Name)
	assert.Equal(t, model.VenueTypePrivate, got.VenueType)
	require.NotNil(t, got.PricingID)

	got, err = f.tree.UpdateVenue(f.ctx, lot.ID, service.VenueUpdate{ClearPricing: true})
	require.NoError(t, err)
	assert.Nil(t, got.PricingID)

	bad := model.VenueType("shared")
	_, err = f.tree.UpdateVenue(f.ctx, lot.ID, service.VenueUpdate{VenueType: &bad})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
