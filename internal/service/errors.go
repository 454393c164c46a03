package service

import (
	"errors"
	"fmt"

	"github.com/hitman711/parkinglot/internal/model"
)

// Validation and lookup failures returned by the core.  Handlers map
// them to 4xx responses.
var (
	ErrInvalidTimeRange      = errors.New("reservation end time must be after start time")
	ErrVenueNotBookable      = errors.New("only lots can be reserved")
	ErrOverlapConflict       = errors.New("venue not available in the given time")
	ErrPrepaidAmountMismatch = errors.New("first payment is below the pre-paid amount")
	ErrOverpayment           = errors.New("payment exceeds the remaining balance")
	ErrInvalidParent         = errors.New("a lot cannot contain other venues")
	ErrInvalidInput          = errors.New("invalid input")
	ErrReservationCanceled   = errors.New("reservation is canceled")

	ErrNotFound  = model.ErrNotFound
	ErrForbidden = model.ErrForbidden
	ErrConflict  = model.ErrConflict
)

// ErrStorageUnavailable wraps every failure of the underlying store.  The
// cause stays reachable through errors.As for retry classification but
// must never be shown to callers.
var ErrStorageUnavailable = errors.New("service temporarily unavailable, try again later")

var domainErrors = []error{
	ErrInvalidTimeRange, ErrVenueNotBookable, ErrOverlapConflict,
	ErrPrepaidAmountMismatch, ErrOverpayment, ErrInvalidParent,
	ErrInvalidInput, ErrReservationCanceled, ErrNotFound, ErrForbidden, ErrConflict,
	ErrStorageUnavailable,
}

// storageErr leaves domain errors untouched and wraps anything else.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
