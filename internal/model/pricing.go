package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DurationUnit is the billing unit of a pricing rule.
type DurationUnit string

const (
	UnitHour DurationUnit = "hour"
	UnitDay  DurationUnit = "day"
)

func (u DurationUnit) Valid() bool { return u == UnitHour || u == UnitDay }

// PricingRule (a "lot price") is a named tariff owned by a company.
// Amount is charged per Duration×Unit block of a booking;
// PrePaidAmount is the minimum opening payment; OverdueAmount is the
// surcharge applied once when a reservation runs past its end.
//
// Fields:
//
//	ID            – primary key identifier.
//	CompanyID     – owning company.
//	Name          – display name.
//	Duration      – block length in units, at least 1.
//	DurationUnit  – hour or day.
//	PrePaidAmount – minimum first payment (zero disables the check).
//	Amount        – price per block.
//	OverdueAmount – late surcharge.
type PricingRule struct {
	ID            uint64          // lot_prices.id
	CompanyID     uint64          // lot_prices.company_id
	Name          string          // lot_prices.name
	Duration      int             // lot_prices.duration
	DurationUnit  DurationUnit    // lot_prices.duration_unit
	PrePaidAmount decimal.Decimal // lot_prices.pre_paid_amount
	Amount        decimal.Decimal // lot_prices.amount
	OverdueAmount decimal.Decimal // lot_prices.overdue_amount
	CreatedAt     time.Time       // lot_prices.created_at
	UpdatedAt     time.Time       // lot_prices.updated_at
}
