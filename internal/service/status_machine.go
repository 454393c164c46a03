package service

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitman711/parkinglot/internal/clock"
	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/queue"
)

// Advance computes the automated transition of r at now.  Only two edges
// exist: pending → active once now is inside the booking, and
// active → overdue once now is past its end.  The overdue edge adds
// surcharge to both the overdue and the total amount; since the
// reservation leaves active at the same time, the surcharge is applied
// once.  The second result is false when nothing changes.
func Advance(r model.Reservation, now time.Time, surcharge decimal.Decimal) (model.Reservation, bool) {
	switch r.Status {
	case model.StatusActive:
		if now.After(r.BookTo) {
			r.Status = model.StatusOverdue
			r.OverdueAmount = r.OverdueAmount.Add(surcharge)
			r.TotalAmount = r.TotalAmount.Add(surcharge)
			return r, true
		}
	case model.StatusPending:
		if r.Covers(now) {
			r.Status = model.StatusActive
			return r, true
		}
	}
	return r, false
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Activated int `json:"activated"`
	Overdue   int `json:"overdue"`
	Skipped   int `json:"skipped"` // lost an optimistic race
	Failed    int `json:"failed"`
}

// StatusMachine runs the periodic status sweep.
type StatusMachine struct {
	reservations ReservationStore
	events       EventPublisher
	clock        clock.Clock
	lookbackDays int
}

// NewStatusMachine builds a sweeper over reservations whose booking
// starts today, or up to lookbackDays earlier.
func NewStatusMachine(reservations ReservationStore, events EventPublisher, clk clock.Clock, lookbackDays int) *StatusMachine {
	if reservations == nil {
		panic("nil store passed to NewStatusMachine")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	return &StatusMachine{reservations: reservations, events: events, clock: clk, lookbackDays: lookbackDays}
}

// Sweep evaluates every pending or active reservation in the window once.
// Each write is conditional on the status and version that were read,
// so a payment landing between read and write makes the row count as
// skipped and it is picked up again by the next sweep.  A failing row
// does not stop the sweep; the last error is returned with the counts.
func (m *StatusMachine) Sweep(ctx context.Context) (SweepResult, error) {
	now := m.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -m.lookbackDays)
	to := today.AddDate(0, 0, 1)

	var res SweepResult
	cands, err := m.reservations.SweepCandidates(ctx, from, to)
	if err != nil {
		return res, storageErr(err)
	}
	var lastErr error
	for _, c := range cands {
		res.Scanned++
		prev := c.Reservation
		next, changed := Advance(prev, now, c.OverdueCharge)
		if !changed {
			continue
		}
		ok, err := m.reservations.ApplyTransition(ctx, &next, prev.Status, prev.Version)
		if err != nil {
			res.Failed++
			lastErr = storageErr(err)
			log.Printf("[StatusMachine] reservation %d: %v", prev.ID, err)
			continue
		}
		if !ok {
			res.Skipped++
			continue
		}
		switch next.Status {
		case model.StatusActive:
			res.Activated++
		case model.StatusOverdue:
			res.Overdue++
			m.publishOverdue(ctx, next, now)
		}
	}
	log.Printf("[StatusMachine] sweep done: scanned=%d activated=%d overdue=%d skipped=%d failed=%d",
		res.Scanned, res.Activated, res.Overdue, res.Skipped, res.Failed)
	return res, lastErr
}

func (m *StatusMachine) publishOverdue(ctx context.Context, r model.Reservation, now time.Time) {
	if m.events == nil {
		return
	}
	ev := queue.ReservationOverdueEvent{
		ReservationID: r.ID,
		VenueID:       r.VenueID,
		License:       r.License,
		BookTo:        r.BookTo.Format(time.RFC3339),
		OverdueAmount: r.OverdueAmount.StringFixed(2),
		TotalAmount:   r.TotalAmount.StringFixed(2),
		DetectedAt:    now.Format(time.RFC3339),
	}
	if err := m.events.Publish(ctx, queue.ReservationOverdue, ev); err != nil {
		log.Printf("[StatusMachine] publish overdue for %d failed: %v", r.ID, err)
	}
}
