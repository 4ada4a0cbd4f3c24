// Package money defines the fixed-point amount type used everywhere a
// ledger balance or transaction amount is represented.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative-or-signed fixed-point decimal with at least four
// fractional digits of precision, per the canonical event payload format.
type Amount struct {
	decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{decimal.Zero}

// New builds an Amount from a string, e.g. "100.0000".
func New(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// FromFloat is a convenience constructor for callers holding a float64.
// Request amounts arrive as decimal strings and are parsed with New.
func FromFloat(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

func (a Amount) Add(b Amount) Amount { return Amount{a.Decimal.Add(b.Decimal)} }
func (a Amount) Sub(b Amount) Amount { return Amount{a.Decimal.Sub(b.Decimal)} }
func (a Amount) IsNegative() bool { return a.Decimal.IsNegative() }
func (a Amount) IsZero() bool { return a.Decimal.IsZero() }
func (a Amount) IsPositive() bool { return a.Decimal.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool { return a.Decimal.GreaterThan(b.Decimal) }
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.Decimal.GreaterThanOrEqual(b.Decimal) }
func (a Amount) LessThan(b Amount) bool { return a.Decimal.LessThan(b.Decimal) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return a.Decimal.MarshalJSON()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Value implements driver.Valuer so Amount can be written directly through
// database/sql / lib/pq as a numeric column.
func (a Amount) Value() (driver.Value, error) {
	return a.Decimal.StringFixed(4), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

func (a Amount) String() string {
	return a.Decimal.StringFixed(4)
}
