// internal/pkg/money/money.go
package money

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amount is a currency value in minor units (centavos)
type Amount int64

var (
	ErrTooPrecise = errors.New("amount has more than 2 decimal places")
	ErrOverflow   = errors.New("amount out of range")
)

var hundred = decimal.NewFromInt(100)

// FromCents wraps a minor-unit value
func FromCents(cents int64) Amount {
	return Amount(cents)
}

// FromDecimal converts an exact decimal, rejecting sub-cent precision
func FromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, ErrTooPrecise
	}
	if !cents.BigInt().IsInt64() {
		return 0, ErrOverflow
	}
	return Amount(cents.IntPart()), nil
}

// Parse reads a decimal string such as "100", "99.5" or "1234.56"
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Cents returns the minor-unit value
func (a Amount) Cents() int64 {
	return int64(a)
}

// Add returns a + b
func (a Amount) Add(b Amount) Amount {
	return a + b
}

// Mul returns a × qty
func (a Amount) Mul(qty int) Amount {
	return a * Amount(qty)
}

// MulChecked returns a × qty, or ErrOverflow when the product does not
// fit in an Amount
func (a Amount) MulChecked(qty int) (Amount, error) {
	return fromMinorUnits(decimal.NewFromInt(int64(a)).Mul(decimal.NewFromInt(int64(qty))))
}

// AddChecked returns a + b, or ErrOverflow when the sum does not fit
func (a Amount) AddChecked(b Amount) (Amount, error) {
	return fromMinorUnits(decimal.NewFromInt(int64(a)).Add(decimal.NewFromInt(int64(b))))
}

func fromMinorUnits(d decimal.Decimal) (Amount, error) {
	if !d.BigInt().IsInt64() {
		return 0, ErrOverflow
	}
	return Amount(d.IntPart()), nil
}

// IsNegative reports whether a < 0
func (a Amount) IsNegative() bool {
	return a < 0
}

// Decimal returns the exact decimal value
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// String renders the amount with exactly two decimals, e.g. "200.00"
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid amount %s: %w", raw, err)
		}
		raw = unquoted
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds up a list of amounts
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, amount := range amounts {
		total += amount
	}
	return total
}

// Formatter renders amounts for display in a given locale and currency
type Formatter struct {
	tag  language.Tag
	unit currency.Unit
}

// NewFormatter builds a formatter such as NewFormatter("en-PH", "PHP")
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return &Formatter{tag: tag, unit: unit}, nil
}

// Format renders the amount with the currency symbol and locale grouping
func (f *Formatter) Format(a Amount) string {
	p := message.NewPrinter(f.tag)
	// Float conversion is confined to display; stored values stay in minor units.
	return p.Sprint(currency.Symbol(f.unit.Amount(a.Decimal().InexactFloat64())))
}

// Currency returns the ISO code
func (f *Formatter) Currency() string {
	return f.unit.String()
}
