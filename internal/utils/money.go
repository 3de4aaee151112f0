package utils

import (
	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatUSD renders an amount as "$850", "$16.9K" or "$1.2M".
func FormatUSD(amount float64) string {
	if amount < 0 {
		return "-" + FormatUSD(-amount)
	}
	d := decimal.NewFromFloat(amount)
	// the unit is chosen on the rounded value, so 999,950 is "$1M" and not "$1000K"
	k := d.Div(thousand).Round(1)
	switch {
	case k.GreaterThanOrEqual(thousand):
		return "$" + d.Div(million).Round(1).String() + "M"
	case d.Round(0).GreaterThanOrEqual(thousand):
		return "$" + k.String() + "K"
	default:
		return "$" + d.Round(0).String()
	}
}

// FormatMonthlyUSD is FormatUSD with a "/mo" suffix, e.g. "$16.9K/mo".
func FormatMonthlyUSD(amount float64) string {
	return FormatUSD(amount) + "/mo"
}
