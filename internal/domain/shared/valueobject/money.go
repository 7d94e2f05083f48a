package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every Money amount carries
const MoneyScale int32 = 2

// ErrInvalidAmount is returned when a Money value cannot be built from the input
var ErrInvalidAmount = shared.NewDomainError("INVALID_AMOUNT", "Invalid amount")

// Money is an immutable monetary amount in the system's single implicit currency.
// The amount is rounded half away from zero to MoneyScale digits on construction
// and after every multiplication, so two values are equal iff their rounded amounts are.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount.Round(MoneyScale)}
}

// NewMoneyFromPtr creates Money from an optional decimal; a nil amount is rejected
func NewMoneyFromPtr(amount *decimal.Decimal) (Money, error) {
	if amount == nil {
		return Money{}, shared.NewDomainError(ErrInvalidAmount.Code, "Amount is required")
	}
	return NewMoney(*amount), nil
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string) (Money, error) {
	if amount == "" {
		return Money{}, shared.NewDomainError(ErrInvalidAmount.Code, "Amount cannot be empty")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, shared.NewDomainError(ErrInvalidAmount.Code, fmt.Sprintf("Invalid amount %q", amount))
	}
	return NewMoney(d), nil
}

// NewMoneyFromFloat creates Money from a float64 value
func NewMoneyFromFloat(amount float64) Money {
	return NewMoney(decimal.NewFromFloat(amount))
}

// MustNewMoneyFromString is NewMoneyFromString for literals known to be valid
func MustNewMoneyFromString(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount
func Zero() Money {
	return Money{amount: decimal.Zero.Round(MoneyScale)}
}

// Amount returns the rounded decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) Money {
	return NewMoney(m.amount.Add(other.amount))
}

// Subtract returns the difference of both amounts
func (m Money) Subtract(other Money) Money {
	return NewMoney(m.amount.Sub(other.amount))
}

// Multiply returns the amount multiplied by factor, rounded to MoneyScale
func (m Money) Multiply(factor decimal.Decimal) Money {
	return NewMoney(m.amount.Mul(factor))
}

// Equals returns true if both rounded amounts are equal
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// LessThanOrEqual returns true if this Money is less than or equal to the other
func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.LessThanOrEqual(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual returns true if this Money is greater than or equal to the other
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String returns the amount with exactly MoneyScale fractional digits
func (m Money) String() string {
	return m.amount.StringFixed(MoneyScale)
}

// MarshalJSON encodes the amount as a fixed-scale string, e.g. "275.00"
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return shared.NewDomainError(ErrInvalidAmount.Code, fmt.Sprintf("Invalid amount %s", data))
	}
	*m = NewMoney(d)
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Zero()
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan Money: %w", err)
	}
	*m = NewMoney(d)
	return nil
}
