package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO code a plan is priced in.
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

var validCurrencies = []Currency{
	CurrencyGBP,
	CurrencyEUR,
	CurrencyUSD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyGBP:
		return "£"
	case CurrencyEUR:
		return "€"
	case CurrencyUSD:
		return "$"
	}
	return ""
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency. Empty input defaults to GBP.
func ParseCurrency(value string) (Currency, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return CurrencyGBP, nil
	}
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
