package handler // handler package contains customer booking and payment handlers

import (
	"context"  // context carries the per-request deadline into the services
	"net/http" // http defines status codes
	"time"     // time holds the RFC 3339 booking window

	"github.com/labstack/echo/v4"   // echo provides the web context and JSON helpers
	"github.com/shopspring/decimal" // decimal keeps money exact from JSON to the database

	"github.com/hitman711/parkinglot/internal/model"   // model defines payment and reservation types
	"github.com/hitman711/parkinglot/internal/service" // service runs booking, payment and ownership rules
)

// CustomerHandler books lots and takes payments.  Reads of a single
// reservation are open to the booking user and to the owner of the
// lot's company.
type CustomerHandler struct {
	Catalog   *service.Catalog              // ownership checks for company owners reading a booking
	Scheduler *service.ReservationScheduler // creates reservations and records payments
}

func NewCustomerHandler(catalog *service.Catalog, scheduler *service.ReservationScheduler) *CustomerHandler {
	if catalog == nil || scheduler == nil {
		panic("nil service passed to NewCustomerHandler")
	}
	return &CustomerHandler{Catalog: catalog, Scheduler: scheduler}
}

type paymentRequest struct {
	PaymentType model.PaymentType `json:"payment_type"` // free, cash or card
	Amount      decimal.Decimal   `json:"amount"`       // accepts "12.50" or 12.5
}

type reservationRequest struct {
	VenueID     uint64           `json:"venue_id"`     // lot to book; buildings and floors are rejected
	BookFrom    time.Time        `json:"book_from"`    // inclusive start, RFC 3339
	BookTo      time.Time        `json:"book_to"`      // inclusive end, RFC 3339
	License     string           `json:"license"`      // vehicle plate, 1-20 characters
	PhoneNumber string           `json:"phone_number"` // optional contact number
	Payments    []paymentRequest `json:"payments"`     // first entry is the opening payment
}

// CreateReservation handles POST /v1/reservations.  The scheduler locks
// the lot, rejects any overlapping booking, prices the window and stores
// the reservation with its opening payment in one transaction.
func (h *CustomerHandler) CreateReservation(c echo.Context) error {
	userID, err := getUserID(c) // caller from the verified token
	if err != nil {
		return respondError(c, err)
	}
	var req reservationRequest
	if err := c.Bind(&req); err != nil { // malformed JSON or wrong types
		return respondError(c, errBadBody)
	}
	if req.VenueID == 0 { // venue_id is required
		return respondError(c, service.ErrInvalidInput)
	}
	in := service.ReservationRequest{
		VenueID:     req.VenueID,
		UserID:      &userID, // the booking belongs to the caller
		BookFrom:    req.BookFrom,
		BookTo:      req.BookTo,
		License:     req.License,
		PhoneNumber: req.PhoneNumber,
	}
	for _, p := range req.Payments {
		in.Payments = append(in.Payments, service.PaymentInput{Type: p.PaymentType, Amount: p.Amount})
	}
	var b *service.Booking
	err = call(c, func(ctx context.Context) error { // retried on deadlock or lock wait timeout
		b, err = h.Scheduler.CreateReservation(ctx, in)
		return err
	})
	if err != nil {
		return respondError(c, err) // overlap, prepaid and overpayment errors map to 4xx
	}
	return c.JSON(http.StatusCreated, bookingJSON(*b))
}

// RecordPayment handles POST /v1/reservations/:id/payments.  The amount
// may not exceed the remaining balance.
func (h *CustomerHandler) RecordPayment(c echo.Context) error {
	b, err := h.visibleBooking(c) // 403 for bookings the caller may not see
	if err != nil {
		return respondError(c, err)
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errBadBody)
	}
	var pay *model.Payment
	var res *model.Reservation
	err = call(c, func(ctx context.Context) error {
		pay, res, err = h.Scheduler.RecordPayment(ctx, b.Reservation.ID, service.PaymentInput{Type: req.PaymentType, Amount: req.Amount})
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	// the payment row plus the reservation's new totals
	m := paymentJSON(*pay)
	m["reservation"] = reservationJSON(*res)
	return c.JSON(http.StatusCreated, m)
}

// ListMyReservations handles GET /v1/reservations with an optional
// ?status= filter.
func (h *CustomerHandler) ListMyReservations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	sh, err := newShaper(c, reservationFields) // ?fields= and ?omit= projection
	if err != nil {
		return respondError(c, err)
	}
	var list []model.Reservation
	err = call(c, func(ctx context.Context) error {
		list, err = h.Scheduler.List(ctx, service.ReservationFilter{
			UserID: &userID,
			Status: model.ReservationStatus(c.QueryParam("status")), // empty means any status
		})
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(list)) // [] rather than null when empty
	for _, r := range list {
		out = append(out, reservationJSON(r))
	}
	return c.JSON(http.StatusOK, sh.applyAll(out))
}

// GetReservation handles GET /v1/reservations/:id.
func (h *CustomerHandler) GetReservation(c echo.Context) error {
	sh, err := newShaper(c, reservationFields)
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.visibleBooking(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sh.apply(bookingJSON(*b)))
}

// ListPayments handles GET /v1/reservations/:id/payments.
func (h *CustomerHandler) ListPayments(c echo.Context) error {
	b, err := h.visibleBooking(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, paymentsJSON(b.Payments)) // oldest first
}

// visibleBooking loads :id and checks the caller may see it.
func (h *CustomerHandler) visibleBooking(c echo.Context) (*service.Booking, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	var b *service.Booking
	err = call(c, func(ctx context.Context) error {
		b, err = h.Scheduler.Get(ctx, id)
		if err != nil {
			return err
		}
		if b.Reservation.UserID != nil && *b.Reservation.UserID == userID { // the booking user
			return nil
		}
		_, err = h.Catalog.OwnedVenue(ctx, b.Venue.ID, userID) // or the lot's company owner
		return err
	})
	return b, err
}
