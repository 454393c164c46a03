// Package handler is the thin echo façade over the service layer.
package handler

import (
	"context"  // context bounds each service call
	"errors"   // errors.Is walks wrapped service errors
	"net/http" // http defines status codes
	"strconv"  // strconv parses ids and unix timestamps
	"time"     // time for timeouts and ?at= instants

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/hitman711/parkinglot/internal/middleware" // middleware stores the verified user id
	"github.com/hitman711/parkinglot/internal/repository" // repository classifies retryable MySQL errors
	"github.com/hitman711/parkinglot/internal/service"    // service defines the error sentinels
)

// requestTimeout bounds every service call made for one request.
const requestTimeout = 5 * time.Second

// maxAttempts is how many times a call is tried when MySQL reports a
// deadlock or lock-wait timeout.
const maxAttempts = 3

var (
	errUnauthorized = errors.New("unauthorized")
	errBadBody      = errors.New("invalid request body")
)

// getUserID returns the caller's ID verified by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errUnauthorized
}

// idParam parses a positive integer path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrInvalidInput
	}
	return id, nil
}

// optionalID parses an optional positive integer query parameter.
func optionalID(c echo.Context, name string) (*uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, service.ErrInvalidInput
	}
	return &id, nil
}

// instant reads a unix-seconds query parameter, defaulting to now.
func instant(c echo.Context, name string, now time.Time) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return now, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, service.ErrInvalidInput
	}
	return time.Unix(sec, 0).UTC(), nil
}

// call runs fn with a request-scoped timeout and retries it while the
// store reports a transient lock failure.
func call(c echo.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !repository.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		c.Logger().Warnf("retrying after transient store error (attempt %d): %v", attempt, err)
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond) // 25ms, then 50ms
	}
	return err
}

type errorMapping struct {
	err    error  // sentinel matched with errors.Is
	status int    // HTTP status to answer with
	code   string // stable machine-readable code
}

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	{service.ErrInvalidTimeRange, http.StatusBadRequest, "invalid_time_range"},
	{service.ErrVenueNotBookable, http.StatusBadRequest, "venue_not_bookable"},
	{service.ErrPrepaidAmountMismatch, http.StatusBadRequest, "prepaid_amount_mismatch"},
	{service.ErrOverpayment, http.StatusBadRequest, "overpayment"},
	{service.ErrInvalidParent, http.StatusBadRequest, "invalid_parent"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrOverlapConflict, http.StatusConflict, "overlap_conflict"},
	{service.ErrReservationCanceled, http.StatusConflict, "reservation_canceled"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{errBadBody, http.StatusBadRequest, "invalid_body"},
	{errUnauthorized, http.StatusUnauthorized, "unauthorized"},
}

// respondError writes the JSON error for err.  Storage failures get a
// generic message; their cause only reaches the log.
func respondError(c echo.Context, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": err.Error(), "code": m.code})
		}
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	if errors.Is(err, service.ErrStorageUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": service.ErrStorageUnavailable.Error(), "code": "unavailable"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}
