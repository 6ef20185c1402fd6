package money

import (
	"errors"
	"math"
	"math/big"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrZeroDivisor      = errors.New("money: divisor must be positive")
	ErrOverflow         = errors.New("money: amount out of range")
)

const centsPerUnit = 100

// Money keeps amounts in integer cents to avoid floating point issues.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	currency = strings.ToUpper(currency)
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMajor converts a decimal amount such as 85.71 into cents, rounding half away from zero.
func FromMajor(amount float64, currency string) (Money, error) {
	return New(int64(math.Round(amount*centsPerUnit)), currency)
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	diff := m.Amount - other.Amount
	if (other.Amount > 0 && diff > m.Amount) || (other.Amount < 0 && diff < m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Neg returns the negated amount preserving currency.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// MulDiv returns m*num/den rounded half away from zero to the cent. The
// intermediate product is exact, so chained ratios do not drift. A result that
// does not fit in int64 is ErrOverflow.
func (m Money) MulDiv(num, den int64) (Money, error) {
	if den <= 0 {
		return Money{}, ErrZeroDivisor
	}
	if p, ok := mulExact(m.Amount, num); ok {
		return Money{Amount: divRound(p, den), Currency: m.Currency}, nil
	}
	product := new(big.Int).Mul(big.NewInt(m.Amount), big.NewInt(num))
	q, r := new(big.Int).QuoRem(product, big.NewInt(den), new(big.Int))
	if r.Abs(r).Lsh(r, 1).Cmp(big.NewInt(den)) >= 0 {
		if product.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	if !q.IsInt64() {
		return Money{}, ErrOverflow
	}
	return Money{Amount: q.Int64(), Currency: m.Currency}, nil
}

// mulExact returns a*b and whether it fits in int64.
func mulExact(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Major returns the amount in currency units, e.g. 1010.00 for 101000 cents.
func (m Money) Major() float64 {
	return float64(m.Amount) / centsPerUnit
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

func divRound(num, den int64) int64 {
	q := num / den
	r := num % den
	if r < 0 {
		r = -r
	}
	if r >= den-r {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}
