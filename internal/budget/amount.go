package budget

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Amount is a currency amount held in minor units (hundredths). All ledger
// arithmetic happens on Amount so cost totals compare exactly.
type Amount int64

const minorPerUnit = 100

var ErrInvalidAmount = errors.New("invalid amount")

// MaxBudget is the largest trip budget a request may carry.
const MaxBudget = Amount(1_000_000_000_000 * minorPerUnit)

// Units returns an Amount for a whole number of currency units.
func Units(v int64) Amount {
	return Amount(v * minorPerUnit)
}

// Minor returns an Amount for a number of minor units.
func Minor(v int64) Amount {
	return Amount(v)
}

// Parse reads a decimal string such as "1500", "1234.5" or "1.2e3".
// Digits beyond the second decimal place are rounded half away from zero.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	r.Mul(r, big.NewRat(minorPerUnit, 1))

	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	neg := num.Sign() < 0
	num.Abs(num)
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		twice := new(big.Int).Mul(rem, big.NewInt(2))
		if twice.Cmp(den) >= 0 {
			quo.Add(quo, big.NewInt(1))
		}
	}
	if !quo.IsInt64() {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	v := quo.Int64()
	if neg {
		v = -v
	}
	return Amount(v), nil
}

// FromFloat converts a provider-reported float price. Providers report
// prices as JSON numbers; the conversion goes through the shortest decimal
// representation so 19.99 stays 1999 minor units.
func FromFloat(f float64) (Amount, error) {
	return Parse(strconv.FormatFloat(f, 'f', -1, 64))
}

func (a Amount) MinorUnits() int64 { return int64(a) }

func (a Amount) IsPositive() bool { return a > 0 }

func (a Amount) IsNegative() bool { return a < 0 }

// Float64 is lossy and only meant for display and provider query strings.
func (a Amount) Float64() float64 {
	return float64(a) / minorPerUnit
}

// String renders the amount without trailing zeros: 1500, 1234.5, 12.34.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / minorPerUnit
	frac := v % minorPerUnit
	switch {
	case frac == 0:
		return fmt.Sprintf("%s%d", sign, whole)
	case frac%10 == 0:
		return fmt.Sprintf("%s%d.%d", sign, whole, frac/10)
	default:
		return fmt.Sprintf("%s%d.%02d", sign, whole, frac)
	}
}

// MarshalJSON encodes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		text = s
	}
	v, err := Parse(text)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Sum adds amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, v := range amounts {
		total += v
	}
	return total
}
