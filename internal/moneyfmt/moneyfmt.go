// Package moneyfmt formats decimal amounts for display in a currency.
package moneyfmt

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Format renders amount in the conventions of currency, e.g. "R$5.000,25"
// for BRL. Unknown currency codes fall back to "<amount> <CODE>".
func Format(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	c := money.GetCurrency(code)
	if c == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// Percent renders a percentage with one decimal place, e.g. "12.5%".
func Percent(p decimal.Decimal) string {
	return p.StringFixed(1) + "%"
}
