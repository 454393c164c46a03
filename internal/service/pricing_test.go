package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitman711/parkinglot/internal/model"
)

func rule(amount int64, duration int, unit model.DurationUnit) model.PricingRule {
	return model.PricingRule{
		Name:         "standard",
		Duration:     duration,
		DurationUnit: unit,
		Amount:       decimal.NewFromInt(amount),
	}
}

func TestPriceBooking(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		rule    model.PricingRule
		elapsed time.Duration
		units   int64
		total   string
	}{
		{"two hours", rule(100, 1, model.UnitHour), 2 * time.Hour, 2, "200"},
		{"hour and a half rounds up", rule(100, 1, model.UnitHour), 90 * time.Minute, 2, "200"},
		{"one minute is one block", rule(100, 1, model.UnitHour), time.Minute, 1, "100"},
		{"three hour blocks", rule(30, 3, model.UnitHour), 7 * time.Hour, 3, "90"},
		{"days fold into hours", rule(10, 1, model.UnitHour), 25 * time.Hour, 25, "250"},
		{"day and three hours", rule(50, 1, model.UnitDay), 27 * time.Hour, 2, "100"},
		{"exact day", rule(50, 1, model.UnitDay), 24 * time.Hour, 1, "50"},
		{"partial minutes count as a day", rule(50, 1, model.UnitDay), 24*time.Hour + time.Minute, 2, "100"},
		{"weekly blocks", rule(200, 7, model.UnitDay), 8 * 24 * time.Hour, 2, "400"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := PriceBooking(tc.rule, start, start.Add(tc.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tc.units, q.Units)
			assert.True(t, decimal.RequireFromString(tc.total).Equal(q.Total), "got %s", q.Total)
		})
	}
}

func TestPriceBookingRejectsBadInput(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := PriceBooking(rule(10, 1, model.UnitHour), start, start)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = PriceBooking(rule(10, 0, model.UnitHour), start, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = PriceBooking(rule(10, 1, "week"), start, start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOpeningPaymentStatus(t *testing.T) {
	total := decimal.NewFromInt(100)
	assert.Equal(t, model.PaymentFullPaid, OpeningPaymentStatus(total, decimal.NewFromInt(100)))
	assert.Equal(t, model.PaymentPartialPaid, OpeningPaymentStatus(total, decimal.NewFromInt(40)))
	assert.Equal(t, model.PaymentPending, OpeningPaymentStatus(total, decimal.NewFromInt(120)))
	assert.Equal(t, model.PaymentPending, OpeningPaymentStatus(total, decimal.Zero))
	assert.Equal(t, model.PaymentFullPaid, OpeningPaymentStatus(decimal.Zero, decimal.Zero))
}
