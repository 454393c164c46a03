package service

import "github.com/shopspring/decimal"

// maxMoney is the largest value a DECIMAL(10,2) column holds.
var maxMoney = decimal.RequireFromString("99999999.99")

// parseMoney reads a non-negative amount with at most two decimals.  An
// empty string is zero.
func parseMoney(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid("%s is not a number", field)
	}
	return checkMoney(field, d)
}

func checkMoney(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, invalid("%s must not be negative", field)
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, invalid("%s has more than two decimal places", field)
	}
	if d.GreaterThan(maxMoney) {
		return decimal.Zero, invalid("%s is too large", field)
	}
	return d, nil
}
