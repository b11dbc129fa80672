package decimalx

import "github.com/shopspring/decimal"

// PricePlaces is the number of decimal places prices are rendered with.
const PricePlaces = 4

// FormatPrice renders a price with a dollar sign and a fixed 4 decimal places.
func FormatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(PricePlaces)
}
