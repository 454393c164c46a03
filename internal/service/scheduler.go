package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitman711/parkinglot/internal/clock"
	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/queue"
)

// phonePattern accepts international numbers: an optional +, then 7 to
// 15 digits with optional spaces, dashes or parentheses between them.
var phonePattern = regexp.MustCompile(`^\+?[0-9](?:[ ()-]{0,2}[0-9]){6,14}$`)

// PaymentInput is one payment offered by a caller.
type PaymentInput struct {
	Type   model.PaymentType
	Amount decimal.Decimal
}

// ReservationRequest asks for a lot over [BookFrom, BookTo].  Only the
// first entry of Payments is taken as the opening payment.
type ReservationRequest struct {
	VenueID     uint64
	UserID      *uint64
	BookFrom    time.Time
	BookTo      time.Time
	License     string
	PhoneNumber string
	Payments    []PaymentInput
}

// Booking is a reservation together with its venue and payments.
type Booking struct {
	Reservation model.Reservation
	Venue       model.Venue
	Payments    []model.Payment
}

// ReservationScheduler creates reservations and records payments.
type ReservationScheduler struct {
	tx           TxRunner
	venues       VenueStore
	pricing      PricingStore
	reservations ReservationStore
	payments     PaymentStore
	events       EventPublisher
	clock        clock.Clock
}

func NewReservationScheduler(tx TxRunner, venues VenueStore, pricing PricingStore, reservations ReservationStore, payments PaymentStore, events EventPublisher, clk clock.Clock) *ReservationScheduler {
	if tx == nil || venues == nil || pricing == nil || reservations == nil || payments == nil {
		panic("nil dependency passed to NewReservationScheduler")
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &ReservationScheduler{tx: tx, venues: venues, pricing: pricing, reservations: reservations, payments: payments, events: events, clock: clk}
}

// CreateReservation validates and stores a booking.  Checks run in this
// order: time range, venue is a lot, no overlap with any non-canceled
// booking of the venue, pre-paid minimum, opening payment within the
// total.  The venue row stays locked
// from the overlap check until commit, so two concurrent requests for
// the same lot are serialized.  The reservation and its opening payment
// are written in the same transaction.
func (s *ReservationScheduler) CreateReservation(ctx context.Context, req ReservationRequest) (*Booking, error) {
	from, to := req.BookFrom.UTC().Truncate(time.Second), req.BookTo.UTC().Truncate(time.Second)
	if !from.Before(to) {
		return nil, ErrInvalidTimeRange
	}
	license := strings.TrimSpace(req.License)
	if license == "" || len(license) > 20 {
		return nil, invalid("license must be 1-20 characters")
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, invalid("phone_number is not a valid phone number")
	}
	var opening *PaymentInput
	if len(req.Payments) > 0 {
		p := req.Payments[0]
		if !p.Type.Valid() {
			return nil, invalid("payment_type must be free, cash or card")
		}
		amount, err := checkMoney("amount", p.Amount)
		if err != nil {
			return nil, err
		}
		p.Amount = amount
		opening = &p
	}

	var out Booking
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		venue, err := s.venues.LockVenue(ctx, req.VenueID)
		if err != nil {
			return err
		}
		if !venue.IsLot() {
			return ErrVenueNotBookable
		}
		clashes, err := s.reservations.ListOverlapping(ctx, venue.ID, from, to)
		if err != nil {
			return err
		}
		if len(clashes) > 0 {
			return ErrOverlapConflict
		}

		r := model.Reservation{
			VenueID:       venue.ID,
			UserID:        req.UserID,
			BookFrom:      from,
			BookTo:        to,
			License:       license,
			PhoneNumber:   phone,
			Status:        model.StatusPending,
			PaymentStatus: model.PaymentPending,
		}
		if venue.PricingID != nil {
			rule, err := s.pricing.GetPricing(ctx, *venue.PricingID)
			if err != nil {
				return err
			}
			paid := decimal.Zero
			if opening != nil {
				paid = opening.Amount
			}
			if rule.PrePaidAmount.IsPositive() && paid.LessThan(rule.PrePaidAmount) {
				return ErrPrepaidAmountMismatch
			}
			q, err := PriceBooking(*rule, from, to)
			if err != nil {
				return err
			}
			// An opening payment may cover the booking but never more.
			if paid.GreaterThan(q.Total) {
				return ErrOverpayment
			}
			r.Amount = rule.Amount
			r.TotalAmount = q.Total
			if opening != nil {
				r.PaymentStatus = OpeningPaymentStatus(q.Total, paid)
			}
		}
		if opening != nil {
			r.TotalAmountPaid = opening.Amount
		}
		if err := s.reservations.CreateReservation(ctx, &r); err != nil {
			return err
		}
		out = Booking{Reservation: r, Venue: *venue}
		if opening != nil {
			p := model.Payment{ReservationID: r.ID, PaymentType: opening.Type, Amount: opening.Amount}
			if err := s.payments.CreatePayment(ctx, &p); err != nil {
				return err
			}
			out.Payments = []model.Payment{p}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	r := out.Reservation
	s.publish(ctx, queue.ReservationCreated, queue.ReservationCreatedEvent{
		ReservationID: r.ID,
		VenueID:       r.VenueID,
		VenueName:     out.Venue.Name,
		CompanyID:     out.Venue.CompanyID,
		UserID:        r.UserID,
		License:       r.License,
		BookFrom:      r.BookFrom.Format(time.RFC3339),
		BookTo:        r.BookTo.Format(time.RFC3339),
		TotalAmount:   r.TotalAmount.StringFixed(2),
		AmountPaid:    r.TotalAmountPaid.StringFixed(2),
		PaymentStatus: string(r.PaymentStatus),
		CreatedAt:     s.clock.Now().Format(time.RFC3339),
	})
	return &out, nil
}

// RecordPayment appends a payment to a reservation.  A payment may not
// exceed the remaining balance; one that clears it exactly marks the
// reservation full paid, a smaller one partial paid.
func (s *ReservationScheduler) RecordPayment(ctx context.Context, reservationID uint64, in PaymentInput) (*model.Payment, *model.Reservation, error) {
	if !in.Type.Valid() {
		return nil, nil, invalid("payment_type must be free, cash or card")
	}
	amount, err := checkMoney("amount", in.Amount)
	if err != nil {
		return nil, nil, err
	}
	if !amount.IsPositive() {
		return nil, nil, invalid("amount must be positive")
	}

	var (
		pay model.Payment
		res *model.Reservation
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.reservations.LockReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if r.Status == model.StatusCanceled {
			return ErrReservationCanceled
		}
		remaining := r.Balance()
		switch {
		case amount.GreaterThan(remaining):
			return ErrOverpayment
		case amount.Equal(remaining):
			r.PaymentStatus = model.PaymentFullPaid
		default:
			r.PaymentStatus = model.PaymentPartialPaid
		}
		r.TotalAmountPaid = r.TotalAmountPaid.Add(amount)
		pay = model.Payment{ReservationID: r.ID, PaymentType: in.Type, Amount: amount}
		if err := s.payments.CreatePayment(ctx, &pay); err != nil {
			return err
		}
		if err := s.reservations.UpdatePayment(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, nil, storageErr(err)
	}

	s.publish(ctx, queue.PaymentRecorded, queue.PaymentRecordedEvent{
		PaymentID:     pay.ID,
		ReservationID: res.ID,
		PaymentType:   string(pay.PaymentType),
		Amount:        pay.Amount.StringFixed(2),
		Balance:       res.Balance().StringFixed(2),
		PaymentStatus: string(res.PaymentStatus),
		RecordedAt:    s.clock.Now().Format(time.RFC3339),
	})
	return &pay, res, nil
}

// Get returns a reservation with its venue and payment ledger.
func (s *ReservationScheduler) Get(ctx context.Context, id uint64) (*Booking, error) {
	r, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	v, err := s.venues.GetVenue(ctx, r.VenueID)
	if err != nil {
		return nil, storageErr(err)
	}
	pays, err := s.payments.ListPayments(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return &Booking{Reservation: *r, Venue: *v, Payments: pays}, nil
}

func (s *ReservationScheduler) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	out, err := s.reservations.ListReservations(ctx, f)
	return out, storageErr(err)
}

func (s *ReservationScheduler) Payments(ctx context.Context, reservationID uint64) ([]model.Payment, error) {
	if _, err := s.reservations.GetReservation(ctx, reservationID); err != nil {
		return nil, storageErr(err)
	}
	out, err := s.payments.ListPayments(ctx, reservationID)
	return out, storageErr(err)
}

func (s *ReservationScheduler) publish(ctx context.Context, key string, event any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, key, event); err != nil {
		log.Printf("[ReservationScheduler] publish %s failed: %v", key, err)
	}
}
