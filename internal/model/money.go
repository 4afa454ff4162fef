package model

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept on every currency field.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to MoneyScale places, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// PercentOf returns pct percent of amount, rounded to currency precision.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(hundred))
}

// DecimalOrZero dereferences an optional decimal.
func DecimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// DecimalPtr is a convenience for optional fields.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
