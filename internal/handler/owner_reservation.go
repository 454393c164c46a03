package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hitman711/parkinglot/internal/model"
	"github.com/hitman711/parkinglot/internal/service"
)

// OwnerReservationHandler lists the bookings made on an owner's lots.
type OwnerReservationHandler struct {
	Catalog   *service.Catalog              // confirms the company is the caller's
	Scheduler *service.ReservationScheduler // lists reservations by company
}

func NewOwnerReservationHandler(catalog *service.Catalog, scheduler *service.ReservationScheduler) *OwnerReservationHandler {
	if catalog == nil || scheduler == nil {
		panic("nil service passed to NewOwnerReservationHandler")
	}
	return &OwnerReservationHandler{Catalog: catalog, Scheduler: scheduler}
}

// ListCompanyReservations handles GET /v1/companies/:id/reservations
// with an optional ?status= filter.  Newest bookings come first.
func (h *OwnerReservationHandler) ListCompanyReservations(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	companyID, err := idParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sh, err := newShaper(c, reservationFields)
	if err != nil {
		return respondError(c, err)
	}
	var list []model.Reservation
	err = call(c, func(ctx context.Context) error {
		if _, err := h.Catalog.OwnedCompany(ctx, companyID, userID); err != nil {
			return err
		}
		list, err = h.Scheduler.List(ctx, service.ReservationFilter{
			CompanyID: &companyID,
			Status:    model.ReservationStatus(c.QueryParam("status")),
		})
		return err
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(list))
	for _, r := range list {
		out = append(out, reservationJSON(r))
	}
	return c.JSON(http.StatusOK, sh.applyAll(out))
}
