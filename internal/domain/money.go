package domain

import "github.com/shopspring/decimal"

// FormatMinor renders a minor-unit amount with two decimal places, e.g. 30050 -> "300.50".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
