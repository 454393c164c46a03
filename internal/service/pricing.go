package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitman711/parkinglot/internal/model"
)

// Quote is the price of one booking under a pricing rule.
type Quote struct {
	Units int64           // billed blocks of rule.Duration units
	Total decimal.Decimal // rule.Amount × Units
}

// PriceBooking prices the interval [from, to] under rule.  Hourly rules
// bill ceil(elapsed hours / duration) blocks using the exact elapsed
// time, so 90 minutes is two one-hour blocks.  Daily rules first round
// any partial day up to a whole day and then bill
// ceil(days / duration) blocks.
func PriceBooking(rule model.PricingRule, from, to time.Time) (Quote, error) {
	if !from.Before(to) {
		return Quote{}, ErrInvalidTimeRange
	}
	if rule.Duration < 1 {
		return Quote{}, invalid("pricing duration must be at least 1")
	}
	elapsed := to.Sub(from)
	var units int64
	switch rule.DurationUnit {
	case model.UnitHour:
		block := time.Duration(rule.Duration) * time.Hour
		units = ceilDiv(int64(elapsed), int64(block))
	case model.UnitDay:
		const day = 24 * time.Hour
		days := int64(elapsed / day)
		if elapsed%day > 0 {
			days++
		}
		units = ceilDiv(days, int64(rule.Duration))
	default:
		return Quote{}, invalid("unknown duration unit %q", rule.DurationUnit)
	}
	return Quote{Units: units, Total: rule.Amount.Mul(decimal.NewFromInt(units))}, nil
}

// OpeningPaymentStatus derives the payment status of a new reservation
// from its first payment.  Nothing paid leaves it pending.
func OpeningPaymentStatus(total, paid decimal.Decimal) model.PaymentStatus {
	switch {
	case paid.Equal(total):
		return model.PaymentFullPaid
	case !paid.IsPositive():
		return model.PaymentPending
	case paid.LessThan(total):
		return model.PaymentPartialPaid
	}
	return model.PaymentPending
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
