package valueobject

import (
	"encoding/json"
	"fmt"
)

// Amount is a non-negative whole-won quantity used for points and payments.
// It is immutable; every operation returns a new Amount.
type Amount struct {
	value int64
}

// ErrNegativeAmount is returned when an Amount would drop below zero
var ErrNegativeAmount = fmt.Errorf("amount cannot be negative")

// NewAmount creates an Amount, rejecting negative values
func NewAmount(value int64) (Amount, error) {
	if value < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{value: value}, nil
}

// MustAmount is NewAmount for constants and tests
func MustAmount(value int64) Amount {
	a, err := NewAmount(value)
	if err != nil {
		panic(err)
	}
	return a
}

// ZeroAmount returns an Amount of 0
func ZeroAmount() Amount {
	return Amount{}
}

// Value returns the raw won value
func (a Amount) Value() int64 {
	return a.value
}

// IsZero reports whether the amount is 0
func (a Amount) IsZero() bool {
	return a.value == 0
}

// IsMultipleOf reports whether the amount is divisible by unit
func (a Amount) IsMultipleOf(unit int64) bool {
	return unit > 0 && a.value%unit == 0
}

// Add returns a+other. other must be positive.
func (a Amount) Add(other Amount) (Amount, error) {
	if other.value <= 0 {
		return Amount{}, fmt.Errorf("amount to add must be greater than 0")
	}
	return Amount{value: a.value + other.value}, nil
}

// Subtract returns a-other, failing if the result would be negative
func (a Amount) Subtract(other Amount) (Amount, error) {
	if a.value < other.value {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{value: a.value - other.value}, nil
}

// GreaterThanOrEqual compares two amounts
func (a Amount) GreaterThanOrEqual(other Amount) bool {
	return a.value >= other.value
}

// LessThan compares two amounts
func (a Amount) LessThan(other Amount) bool {
	return a.value < other.value
}

// PercentFloor returns percent% of the amount, floored to a multiple of unit
func (a Amount) PercentFloor(percent, unit int64) Amount {
	v := a.value * percent / 100
	if unit > 0 {
		v = v / unit * unit
	}
	return Amount{value: v}
}

// String implements fmt.Stringer
func (a Amount) String() string {
	return fmt.Sprintf("%d", a.value)
}

// MarshalJSON encodes the amount as a JSON number
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value)
}

// UnmarshalJSON decodes a JSON number, rejecting negatives
func (a *Amount) UnmarshalJSON(data []byte) error {
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewAmount(v)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
