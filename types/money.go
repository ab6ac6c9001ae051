// Package types holds small value types shared across the booking packages.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Money is an amount in the currency's smallest unit. Arithmetic is
// integer-only.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"` // ISO 4217, lowercase
}

// NewMoney builds a Money value, normalizing the currency code.
func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// USD creates a Money value in US cents.
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in euro cents.
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// MXN creates a Money value in Mexican centavos.
func MXN(centavos int64) Money { return Money{Amount: centavos, Currency: "mxn"} }

// Zero returns a zero amount in currency.
func Zero(currency string) Money { return NewMoney(0, currency) }

// Add adds two amounts. It panics if the currencies differ.
func (m Money) Add(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal reports whether amount and currency both match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// FormatMajor renders the amount in major units without a symbol,
// e.g. "49.00" for USD(4900) and "100" for a zero-decimal currency.
func (m Money) FormatMajor() string {
	decimals := currencyDecimals(m.Currency)
	if decimals == 0 {
		return fmt.Sprintf("%d", m.Amount)
	}

	abs := m.Amount
	sign := ""
	if abs < 0 {
		abs, sign = -abs, "-"
	}

	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// String renders the amount with its currency symbol.
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON adds a display field next to the raw amount.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON accepts the shape written by MarshalJSON and ignores display.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = NewMoney(raw.Amount, raw.Currency)
	return nil
}

func currencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "usd", "mxn", "ars", "clp", "cop":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	case "brl":
		return "R$"
	case "":
		return ""
	default:
		return strings.ToUpper(currency) + " "
	}
}

func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "clp", "pyg", "vnd":
		return 0
	default:
		return 2
	}
}
