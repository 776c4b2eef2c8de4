package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

// KRW is the only currency seats are priced in
const KRW Currency = "KRW"

// Money is a value object representing a seat price.
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money in KRW. Prices cannot be negative.
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, errors.New("price cannot be negative")
	}
	return Money{amount: amount, currency: KRW}, nil
}

// NewMoneyFromInt creates Money from whole won
func NewMoneyFromInt(amount int64) (Money, error) {
	return NewMoney(decimal.NewFromInt(amount))
}

// MustMoney is NewMoneyFromInt for fixtures
func MustMoney(amount int64) Money {
	m, err := NewMoneyFromInt(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// ZeroMoney returns 0 KRW
func ZeroMoney() Money {
	return Money{amount: decimal.Zero, currency: KRW}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency
func (m Money) Currency() Currency {
	if m.currency == "" {
		return KRW
	}
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Add adds two Money values
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount), currency: KRW}
}

// MultiplyByInt multiplies the amount by an integer factor
func (m Money) MultiplyByInt(factor int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(factor)), currency: KRW}
}

// Equals checks if two Money values are equal
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// ToAmount converts the price to a whole-won Amount, rounding half up
func (m Money) ToAmount() Amount {
	return Amount{value: m.amount.Round(0).IntPart()}
}

// String returns a string representation
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency(), m.amount.StringFixed(0))
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.Currency(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	parsed, err := NewMoney(amount)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	if value == nil {
		*m = ZeroMoney()
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case int64:
		*m = Money{amount: decimal.NewFromInt(v), currency: KRW}
		return nil
	case float64:
		*m = Money{amount: decimal.NewFromFloat(v), currency: KRW}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	*m = Money{amount: amount, currency: KRW}
	return nil
}

// SumMoney adds up a list of prices; an empty list sums to zero
func SumMoney(prices ...Money) Money {
	total := ZeroMoney()
	for _, p := range prices {
		total = total.Add(p)
	}
	return total
}
