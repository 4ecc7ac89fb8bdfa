package decimalutil

import "github.com/shopspring/decimal"

// Precisions at or below this mark a large-tick market: the tick itself is a
// power of ten >= 1000 and prices snap to blocks of 1000 ticks.
const largeTickPrecision = -3

// Round rounds value to precision decimal places, half away from zero.
// Negative precision rounds the integer part to powers of ten:
// Round(12345, -2) = 12300.
func Round(value decimal.Decimal, precision int32) decimal.Decimal {
	return value.Round(precision)
}

// RoundPrice normalizes a price for a market with the given price
// precision. Large-tick markets (precision <= -3) additionally snap to
// the nearest 1000 ticks of the scaled representation, which is the same
// as rounding three more integer digits away.
func RoundPrice(price decimal.Decimal, pricePrecision int32) decimal.Decimal {
	if pricePrecision <= largeTickPrecision {
		return price.Round(pricePrecision - 3)
	}
	return price.Round(pricePrecision)
}

// CollapsesToZero reports whether normalizing a non-zero value produced
// zero. Such inputs are rejected before they reach a book.
func CollapsesToZero(original, normalized decimal.Decimal) bool {
	return !original.IsZero() && normalized.IsZero()
}
