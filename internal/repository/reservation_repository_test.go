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
)

var day = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

func hour(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

func reservationIDs(rs []model.Reservation) []uint64 {
	out := make([]uint64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestReservationRepo_ListOverlapping(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")
	tower := f.root(acme, "Tower")
	lot := f.child(tower.ID, "A-1", model.CategoryLot)
	next := f.child(tower.ID, "A-2", model.CategoryLot)

	held := f.book(lot.ID, hour(10), hour(12), model.StatusBooked)
	f.book(lot.ID, hour(14), hour(16), model.StatusCanceled)
	f.book(next.ID, hour(10), hour(12), model.StatusActive)

	cases := []struct {
		name     string
		from, to time.Time
		want     []uint64
	}{
		{"inside", hour(10).Add(30 * time.Minute), hour(11), []uint64{held.ID}},
		{"starts at existing end", hour(12), hour(13), []uint64{held.ID}},
		{"ends at existing start", hour(8), hour(10), []uint64{held.ID}},
		{"one second after", hour(12).Add(time.Second), hour(13), []uint64{}},
		{"one second before", hour(8), hour(10).Add(-time.Second), []uint64{}},
		{"canceled booking ignored", hour(14).Add(30 * time.Minute), hour(15), []uint64{}},
		{"spans both", hour(9), hour(17), []uint64{held.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.reservations.ListOverlapping(f.ctx, lot.ID, tc.from, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.want, reservationIDs(got))
		})
	}
}

func TestReservationRepo_BusyVenuesAcrossChunks(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")
	tower := f.root(acme, "Tower")
	first := f.child(tower.ID, "first", model.CategoryLot)
	second := f.child(tower.ID, "second", model.CategoryLot)
	third := f.child(tower.ID, "third", model.CategoryLot)
	dropped := f.child(tower.ID, "dropped", model.CategoryLot)

	at := hour(12)
	f.book(first.ID, hour(10), at, model.StatusActive)
	f.book(second.ID, at, hour(14), model.StatusPending)
	f.book(third.ID, hour(11), hour(13), model.StatusOverdue)
	f.book(dropped.ID, hour(11), hour(13), model.StatusCanceled)

	// Unknown ids pad the list so the real lots land in three chunks.
	ids := make([]uint64, 0, 2*busyChunk+10)
	ids = append(ids, first.ID)
	for i := 0; len(ids) < busyChunk+5; i++ {
		ids = append(ids, 1_000_000+uint64(i))
	}
	ids = append(ids, second.ID, dropped.ID)
	for i := 0; len(ids) < 2*busyChunk+5; i++ {
		ids = append(ids, 2_000_000+uint64(i))
	}
	ids = append(ids, third.ID)
	require.Greater(t, len(ids), 2*busyChunk)

	busy, err := f.reservations.BusyVenues(f.ctx, ids, at)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{first.ID: true, second.ID: true, third.ID: true}, busy)

	busy, err = f.reservations.BusyVenues(f.ctx, ids, hour(20))
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestReservationRepo_ApplyTransitionLosesToPayment(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")
	price := model.PricingRule{
		CompanyID:     acme,
		Name:          "hourly",
		Duration:      1,
		DurationUnit:  model.UnitHour,
		Amount:        decimal.NewFromInt(100),
		OverdueAmount: decimal.NewFromInt(15),
	}
	require.NoError(t, f.pricing.CreatePricing(f.ctx, &price))
	tower := f.root(acme, "Tower")
	lot := f.child(tower.ID, "A-1", model.CategoryLot)
	lot.PricingID = &price.ID
	require.NoError(t, f.venues.UpdateVenue(f.ctx, &lot))

	res := f.book(lot.ID, hour(10), hour(12), model.StatusPending)
	require.Zero(t, res.Version)

	// The sweep reads its candidates first.
	candidates, err := f.reservations.SweepCandidates(f.ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "15.00", candidates[0].OverdueCharge.StringFixed(2))
	stale := candidates[0].Reservation

	// A payment commits in between and bumps the version.
	require.NoError(t, f.tx.WithTx(f.ctx, func(ctx context.Context) error {
		cur, err := f.reservations.LockReservation(ctx, res.ID)
		if err != nil {
			return err
		}
		cur.TotalAmountPaid = decimal.NewFromInt(50)
		cur.PaymentStatus = model.PaymentPartialPaid
		return f.reservations.UpdatePayment(ctx, cur)
	}))

	next := stale
	next.Status = model.StatusActive
	ok, err := f.reservations.ApplyTransition(f.ctx, &next, stale.Status, stale.Version)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.reservations.GetReservation(f.ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, model.PaymentPartialPaid, got.PaymentStatus)
	assert.Equal(t, "50.00", got.TotalAmountPaid.StringFixed(2))
	assert.Equal(t, uint32(1), got.Version)

	// Retrying from the fresh row wins and keeps the payment.
	fresh := *got
	fresh.Status = model.StatusActive
	ok, err = f.reservations.ApplyTransition(f.ctx, &fresh, got.Status, got.Version)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), fresh.Version)

	got, err = f.reservations.GetReservation(f.ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Equal(t, "50.00", got.TotalAmountPaid.StringFixed(2))
}

func TestReservationRepo_ListAndPayments(t *testing.T) {
	f := newDBFixture(t)
	acme := f.company("Acme")
	tower := f.root(acme, "Tower")
	lot := f.child(tower.ID, "A-1", model.CategoryLot)

	user := uint64(9)
	early := f.book(lot.ID, hour(8), hour(9), model.StatusClosed)
	late := model.Reservation{
		VenueID: lot.ID, UserID: &user, BookFrom: hour(10), BookTo: hour(11),
		License: "MH-12-0001", Status: model.StatusBooked, PaymentStatus: model.PaymentPending,
	}
	require.NoError(t, f.reservations.CreateReservation(f.ctx, &late))

	all, err := f.reservations.ListReservations(f.ctx, service.ReservationFilter{CompanyID: &acme})
	require.NoError(t, err)
	assert.Equal(t, []uint64{late.ID, early.ID}, reservationIDs(all))

	mine, err := f.reservations.ListReservations(f.ctx, service.ReservationFilter{UserID: &user})
	require.NoError(t, err)
	assert.Equal(t, []uint64{late.ID}, reservationIDs(mine))

	closed, err := f.reservations.ListReservations(f.ctx, service.ReservationFilter{CompanyID: &acme, Status: model.StatusClosed})
	require.NoError(t, err)
	assert.Equal(t, []uint64{early.ID}, reservationIDs(closed))

	pay := model.Payment{ReservationID: late.ID, PaymentType: model.PaymentCash, Amount: decimal.RequireFromString("12.50")}
	require.NoError(t, f.payments.CreatePayment(f.ctx, &pay))
	pays, err := f.payments.ListPayments(f.ctx, late.ID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, "12.50", pays[0].Amount.StringFixed(2))
	assert.Equal(t, model.PaymentCash, pays[0].PaymentType)
}
