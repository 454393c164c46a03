package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/queue"
	"github.com/hitman711/parkinglot/internal/service"
)

func TestScheduler_BuildingFloorLotBooking(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	p := f.price(acme.ID, "100", 1, model.UnitHour, "")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	fl := f.child(b.ID, "1", model.CategoryFloor)
	lot := f.priced(fl.ID, "L1", p.ID)

	got, err := f.book(lot.ID, now, now.Add(2*time.Hour), cash("200"))
	require.NoError(t, err)

	r := got.Reservation
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, model.PaymentFullPaid, r.PaymentStatus)
	assert.Equal(t, "200.00", r.TotalAmount.StringFixed(2))
	assert.Equal(t, "100.00", r.Amount.StringFixed(2))
	assert.True(t, r.TotalAmountPaid.Equal(decimal.NewFromInt(200)))
	require.Len(t, got.Payments, 1)
	assert.Equal(t, r.ID, got.Payments[0].ReservationID)

	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, queue.ReservationCreated, evs[0].RoutingKey)
	ev := evs[0].Payload.(queue.ReservationCreatedEvent)
	assert.Equal(t, "200.00", ev.TotalAmount)
}

func TestScheduler_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)

	_, err := f.book(lot.ID, now, now.Add(2*time.Hour))
	require.NoError(t, err)

	cases := []struct {
		name     string
		from, to time.Time
		err      error
	}{
		{"same window", now, now.Add(2 * time.Hour), service.ErrOverlapConflict},
		{"inside", now.Add(30 * time.Minute), now.Add(time.Hour), service.ErrOverlapConflict},
		{"covering", now.Add(-time.Hour), now.Add(3 * time.Hour), service.ErrOverlapConflict},
		{"touching end", now.Add(2 * time.Hour), now.Add(3 * time.Hour), service.ErrOverlapConflict},
		{"touching start", now.Add(-time.Hour), now, service.ErrOverlapConflict},
		{"after", now.Add(2*time.Hour + time.Second), now.Add(3 * time.Hour), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.book(lot.ID, tc.from, tc.to)
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestScheduler_ConcurrentBookingsOneWins(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(lot.ID, now, now.Add(time.Hour))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, service.ErrOverlapConflict):
				clash++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, clash)
}

func TestScheduler_Validation(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	p := f.price(acme.ID, "100", 1, model.UnitHour, "50")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.priced(b.ID, "L1", p.ID)

	_, err := f.book(lot.ID, now, now)
	assert.ErrorIs(t, err, service.ErrInvalidTimeRange)

	_, err = f.book(lot.ID, now.Add(time.Hour), now)
	assert.ErrorIs(t, err, service.ErrInvalidTimeRange)

	_, err = f.book(b.ID, now, now.Add(time.Hour), cash("50"))
	assert.ErrorIs(t, err, service.ErrVenueNotBookable)

	_, err = f.book(999, now, now.Add(time.Hour))
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.book(lot.ID, now, now.Add(time.Hour))
	assert.ErrorIs(t, err, service.ErrPrepaidAmountMismatch)

	_, err = f.book(lot.ID, now, now.Add(time.Hour), cash("49.99"))
	assert.ErrorIs(t, err, service.ErrPrepaidAmountMismatch)

	_, err = f.scheduler.CreateReservation(f.ctx, service.ReservationRequest{VenueID: lot.ID, BookFrom: now, BookTo: now.Add(time.Hour)})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.scheduler.CreateReservation(f.ctx, service.ReservationRequest{
		VenueID: lot.ID, BookFrom: now, BookTo: now.Add(time.Hour), License: "AB1", PhoneNumber: "call me",
		Payments: []service.PaymentInput{cash("50")},
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	got, err := f.scheduler.CreateReservation(f.ctx, service.ReservationRequest{
		VenueID: lot.ID, BookFrom: now, BookTo: now.Add(time.Hour), License: " AB1 ", PhoneNumber: "+1 (555) 123-4567",
		Payments: []service.PaymentInput{cash("50")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartialPaid, got.Reservation.PaymentStatus)
	assert.Equal(t, "AB1", got.Reservation.License)
}

func TestScheduler_OpeningPayment(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	p := f.price(acme.ID, "100", 1, model.UnitHour, "")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.priced(b.ID, "L1", p.ID)

	// 2h at 100/h is 200; nothing more may be paid up front.
	_, err := f.book(lot.ID, now, now.Add(2*time.Hour), cash("200.01"))
	assert.ErrorIs(t, err, service.ErrOverpayment)
	reservations, payments := f.store.Counts()
	assert.Zero(t, reservations)
	assert.Zero(t, payments)

	got, err := f.book(lot.ID, now, now.Add(2*time.Hour), cash("0"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, got.Reservation.PaymentStatus)
	assert.True(t, got.Reservation.TotalAmountPaid.IsZero())
	assert.Equal(t, "200.00", got.Reservation.Balance().StringFixed(2))

	_, r, err := f.scheduler.RecordPayment(f.ctx, got.Reservation.ID, cash("200"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFullPaid, r.PaymentStatus)
}

func TestScheduler_NoPricingBooksFree(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)

	got, err := f.book(lot.ID, now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.Reservation.TotalAmount.IsZero())
	assert.Equal(t, model.PaymentPending, got.Reservation.PaymentStatus)
	assert.Empty(t, got.Payments)
}

func TestScheduler_FailedPaymentRollsBackReservation(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)

	f.store.FailCreatePayment = errors.New("disk full")
	_, err := f.book(lot.ID, now, now.Add(time.Hour), cash("10"))
	require.ErrorIs(t, err, service.ErrStorageUnavailable)

	reservations, payments := f.store.Counts()
	assert.Zero(t, reservations)
	assert.Zero(t, payments)
	assert.Empty(t, f.events.Events())

	f.store.FailCreatePayment = nil
	_, err = f.book(lot.ID, now, now.Add(time.Hour), cash("10"))
	assert.NoError(t, err)
}

func TestScheduler_RecordPayment(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	p := f.price(acme.ID, "100", 1, model.UnitHour, "")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.priced(b.ID, "L1", p.ID)

	got, err := f.book(lot.ID, now, now.Add(time.Hour), cash("40"))
	require.NoError(t, err)
	id := got.Reservation.ID
	assert.Equal(t, model.PaymentPartialPaid, got.Reservation.PaymentStatus)

	_, _, err = f.scheduler.RecordPayment(f.ctx, id, cash("60.01"))
	assert.ErrorIs(t, err, service.ErrOverpayment)

	_, _, err = f.scheduler.RecordPayment(f.ctx, id, cash("0"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, r, err := f.scheduler.RecordPayment(f.ctx, id, cash("20"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartialPaid, r.PaymentStatus)
	assert.Equal(t, "60.00", r.TotalAmountPaid.StringFixed(2))

	pay, r, err := f.scheduler.RecordPayment(f.ctx, id, service.PaymentInput{Type: model.PaymentCard, Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCard, pay.PaymentType)
	assert.Equal(t, model.PaymentFullPaid, r.PaymentStatus)
	assert.True(t, r.Balance().IsZero())

	_, _, err = f.scheduler.RecordPayment(f.ctx, id, cash("1"))
	assert.ErrorIs(t, err, service.ErrOverpayment)

	_, _, err = f.scheduler.RecordPayment(f.ctx, 999, cash("1"))
	assert.ErrorIs(t, err, service.ErrNotFound)

	pays, err := f.scheduler.Payments(f.ctx, id)
	require.NoError(t, err)
	assert.Len(t, pays, 3)

	booking, err := f.scheduler.Get(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lot.ID, booking.Venue.ID)
	assert.Len(t, booking.Payments, 3)

	assert.Equal(t, []string{queue.ReservationCreated, queue.PaymentRecorded, queue.PaymentRecorded}, f.events.Keys())
}

func TestScheduler_CanceledRejectsPayment(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)
	id := f.store.PutReservation(model.Reservation{
		VenueID: lot.ID, BookFrom: now, BookTo: now.Add(time.Hour),
		Status: model.StatusCanceled, TotalAmount: decimal.NewFromInt(10),
	})

	_, _, err := f.scheduler.RecordPayment(f.ctx, id, cash("5"))
	assert.ErrorIs(t, err, service.ErrReservationCanceled)

	_, err = f.book(lot.ID, now, now.Add(time.Hour))
	assert.NoError(t, err, "canceled bookings do not block the lot")
}

func TestScheduler_PublishFailureKeepsReservation(t *testing.T) {
	f := newFixture(t)
	f.events.Err = errors.New("broker down")
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)

	_, err := f.book(lot.ID, now, now.Add(time.Hour))
	require.NoError(t, err)
	reservations, _ := f.store.Counts()
	assert.Equal(t, 1, reservations)
}

func TestScheduler_List(t *testing.T) {
	f := newFixture(t)
	acme := f.company("Acme")
	b := f.root(acme.ID, "B1", model.CategoryBuilding)
	lot := f.child(b.ID, "L1", model.CategoryLot)
	user := uint64(42)
	_, err := f.scheduler.CreateReservation(f.ctx, service.ReservationRequest{
		VenueID: lot.ID, UserID: &user, BookFrom: now, BookTo: now.Add(time.Hour), License: "AB1",
	})
	require.NoError(t, err)
	_, err = f.book(lot.ID, now.Add(2*time.Hour), now.Add(3*time.Hour))
	require.NoError(t, err)

	mine, err := f.scheduler.List(f.ctx, service.ReservationFilter{UserID: &user})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.scheduler.List(f.ctx, service.ReservationFilter{CompanyID: &acme.ID, Status: model.StatusPending})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].BookFrom.After(all[1].BookFrom))

	_, err = f.scheduler.List(f.ctx, service.ReservationFilter{Status: "lost"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
