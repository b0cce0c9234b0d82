package storage

import "github.com/shopspring/decimal"

// Monetary values persist as integer cents. Conversion is exact because
// validateMoney rejects anything finer than two decimal places before a
// value reaches a write path.

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
