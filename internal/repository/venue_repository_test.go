package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
	"github.com/hitman711/parkinglot/internal/testutil"
)

// dbFixture wires the MySQL repositories to a freshly migrated database.
type dbFixture struct {
	t            *testing.T
	ctx          context.Context
	tx           *TxManager
	companies    *CompanyRepo
	pricing      *PricingRepo
	venues       *VenueRepo
	reservations *ReservationRepo
	payments     *PaymentRepo
}

func newDBFixture(t *testing.T) *dbFixture {
	t.Helper()
	db := testutil.MySQL(t)
	return &dbFixture{
		t:            t,
		ctx:          context.Background(),
		tx:           NewTxManager(db),
		companies:    NewCompanyRepo(db),
		pricing:      NewPricingRepo(db),
		venues:       NewVenueRepo(db),
		reservations: NewReservationRepo(db),
		payments:     NewPaymentRepo(db),
	}
}

func (f *dbFixture) company(name string) uint64 {
	f.t.Helper()
	c := model.Company{UserID: 7, Name: name}
	require.NoError(f.t, f.companies.CreateCompany(f.ctx, &c))
	return c.ID
}

func (f *dbFixture) root(companyID uint64, name string) model.Venue {
	f.t.Helper()
	v := model.Venue{Name: name, Category: model.CategoryBuilding, VenueType: model.VenueTypePublic, CompanyID: &companyID}
	require.NoError(f.t, f.tx.WithTx(f.ctx, func(ctx context.Context) error {
		return f.venues.InsertRoot(ctx, &v)
	}))
	return v
}

// child inserts under the tree lock, the way VenueTree does.
func (f *dbFixture) child(parentID uint64, name string, cat model.Category) model.Venue {
	f.t.Helper()
	v := model.Venue{Name: name, Category: cat, VenueType: model.VenueTypePublic}
	require.NoError(f.t, f.tx.WithTx(f.ctx, func(ctx context.Context) error {
		parent, err := f.venues.GetVenue(ctx, parentID)
		if err != nil {
			return err
		}
		if err := f.venues.LockTree(ctx, parent.TreeID); err != nil {
			return err
		}
		if parent, err = f.venues.LockVenue(ctx, parentID); err != nil {
			return err
		}
		v.CompanyID = parent.CompanyID
		return f.venues.InsertChild(ctx, *parent, &v)
	}))
	return v
}

func (f *dbFixture) reload(id uint64) model.Venue {
	f.t.Helper()
	v, err := f.venues.GetVenue(f.ctx, id)
	require.NoError(f.t, err)
	return *v
}

func (f *dbFixture) book(venueID uint64, from, to time.Time, status model.ReservationStatus) model.Reservation {
	f.t.Helper()
	r := model.Reservation{
		VenueID:       venueID,
		BookFrom:      from,
		BookTo:        to,
		License:       "KA-01-1234",
		Status:        status,
		PaymentStatus: model.PaymentPending,
		TotalAmount:   decimal.NewFromInt(200),
	}
	require.NoError(f.t, f.reservations.CreateReservation(f.ctx, &r))
	return r
}

// bounds is lft, rgt and depth of a venue.
func bounds(v model.Venue) [3]int { return [3]int{v.Lft, v.Rgt, v.Depth} }

func TestVenueRepo_NestedSetBounds(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")

	tower := f.root(acme, "Tower")
	other := f.root(acme, "Annex")
	assert.Equal(t, [3]int{1, 2, 0}, bounds(tower))
	assert.Equal(t, tower.ID, tower.TreeID)
	assert.Equal(t, other.ID, other.TreeID)

	f1 := f.child(tower.ID, "1", model.CategoryFloor)
	l1 := f.child(f1.ID, "1A", model.CategoryLot)
	f2 := f.child(tower.ID, "2", model.CategoryFloor)
	l2 := f.child(f2.ID, "2A", model.CategoryLot)

	assert.Equal(t, [3]int{1, 10, 0}, bounds(f.reload(tower.ID)))
	assert.Equal(t, [3]int{2, 5, 1}, bounds(f.reload(f1.ID)))
	assert.Equal(t, [3]int{3, 4, 2}, bounds(f.reload(l1.ID)))
	assert.Equal(t, [3]int{6, 9, 1}, bounds(f.reload(f2.ID)))
	assert.Equal(t, [3]int{7, 8, 2}, bounds(f.reload(l2.ID)))
	// shifts stay inside their own tree
	assert.Equal(t, [3]int{1, 2, 0}, bounds(f.reload(other.ID)))

	tree, err := f.venues.LoadTree(f.ctx, tower.TreeID)
	require.NoError(t, err)
	require.Len(t, tree, 5)
	assert.Equal(t, []uint64{tower.ID, f1.ID, l1.ID, f2.ID, l2.ID},
		[]uint64{tree[0].ID, tree[1].ID, tree[2].ID, tree[3].ID, tree[4].ID})

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	res := f.book(l1.ID, at, at.Add(time.Hour), model.StatusPending)

	require.NoError(t, f.tx.WithTx(f.ctx, func(ctx context.Context) error {
		if err := f.venues.LockTree(ctx, tower.TreeID); err != nil {
			return err
		}
		return f.venues.DeleteSubtree(ctx, f.reload(f1.ID))
	}))

	assert.Equal(t, [3]int{1, 6, 0}, bounds(f.reload(tower.ID)))
	assert.Equal(t, [3]int{2, 5, 1}, bounds(f.reload(f2.ID)))
	assert.Equal(t, [3]int{3, 4, 2}, bounds(f.reload(l2.ID)))
	assert.Equal(t, [3]int{1, 2, 0}, bounds(f.reload(other.ID)))

	_, err = f.venues.GetVenue(f.ctx, l1.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = f.reservations.GetReservation(f.ctx, res.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	forest, err := f.venues.LoadCompanyForest(f.ctx, acme)
	require.NoError(t, err)
	assert.Len(t, forest, 4)
}

func TestVenueRepo_InsertChildAfterDelete(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")
	tower := f.root(acme, "Tower")
	a := f.child(tower.ID, "A", model.CategoryLot)
	f.child(tower.ID, "B", model.CategoryLot)

	require.NoError(t, f.tx.WithTx(f.ctx, func(ctx context.Context) error {
		return f.venues.DeleteSubtree(ctx, f.reload(a.ID))
	}))
	c := f.child(tower.ID, "C", model.CategoryLot)

	assert.Equal(t, [3]int{1, 6, 0}, bounds(f.reload(tower.ID)))
	assert.Equal(t, [3]int{4, 5, 1}, bounds(c))
}

func TestVenueRepo_ListLotsFreeAt(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")
	tower := f.root(acme, "Tower")
	busy := f.child(tower.ID, "busy", model.CategoryLot)
	free := f.child(tower.ID, "free", model.CategoryLot)
	dropped := f.child(tower.ID, "dropped", model.CategoryLot)

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	// ends exactly at the instant asked about
	f.book(busy.ID, at.Add(-time.Hour), at, model.StatusActive)
	f.book(dropped.ID, at.Add(-time.Hour), at.Add(time.Hour), model.StatusCanceled)

	lots, err := f.venues.ListLots(f.ctx, service.LotFilter{CompanyID: &acme, FreeAt: &at})
	require.NoError(t, err)
	var got []uint64
	for _, v := range lots {
		got = append(got, v.ID)
	}
	assert.Equal(t, []uint64{free.ID, dropped.ID}, got)
}
