package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Resolution is the number of fractional bits carried by a Ratio.
const Resolution = 112

// DefaultDisplayPrecision is the decimal precision used by String.
const DefaultDisplayPrecision = 6

var (
	// ErrDivisionByZero is returned when a ratio would be built over a zero denominator.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	// ErrOverflow is returned when a result does not fit the 256-bit word.
	ErrOverflow = errors.New("fixedpoint: overflow")
	// ErrNegative is returned when a negative value is given to an unsigned ratio.
	ErrNegative = errors.New("fixedpoint: negative value")

	q112 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)
	q224 = new(uint256.Int).Lsh(uint256.NewInt(1), 2*Resolution)
)

// Ratio is an unsigned binary fixed-point number equal to raw / 2^112
// (UQ112x112) stored in a 256-bit word. The zero value is 0.
type Ratio struct {
	raw uint256.Int
}

// FromRaw wraps an already scaled value.
func FromRaw(raw *uint256.Int) Ratio {
	var r Ratio
	if raw != nil {
		r.raw.Set(raw)
	}
	return r
}

// FromUint64 returns n as a ratio.
func FromUint64(n uint64) Ratio {
	var r Ratio
	r.raw.Lsh(uint256.NewInt(n), Resolution)
	return r
}

// Encode computes numerator * 2^112 / denominator, rounding toward zero.
// The product is formed at 512-bit width before dividing.
func Encode(numerator, denominator *uint256.Int) (Ratio, error) {
	if denominator == nil || denominator.IsZero() {
		return Ratio{}, ErrDivisionByZero
	}
	if numerator == nil {
		return Ratio{}, nil
	}
	var r Ratio
	if _, overflow := r.raw.MulDivOverflow(numerator, q112, denominator); overflow {
		return Ratio{}, fmt.Errorf("encode %s/%s: %w", numerator.ToBig(), denominator.ToBig(), ErrOverflow)
	}
	return r, nil
}

// EncodeBig is Encode over big integers.
func EncodeBig(numerator, denominator *big.Int) (Ratio, error) {
	if denominator == nil || denominator.Sign() == 0 {
		return Ratio{}, ErrDivisionByZero
	}
	if denominator.Sign() < 0 || (numerator != nil && numerator.Sign() < 0) {
		return Ratio{}, ErrNegative
	}
	num, err := toWord(numerator)
	if err != nil {
		return Ratio{}, err
	}
	den, err := toWord(denominator)
	if err != nil {
		return Ratio{}, err
	}
	return Encode(num, den)
}

// FromDecimal converts a human-readable price into a ratio, truncating
// fractional bits beyond the resolution.
func FromDecimal(value decimal.Decimal) (Ratio, error) {
	if value.Sign() < 0 {
		return Ratio{}, ErrNegative
	}
	scaled := value.Mul(decimal.NewFromBigInt(q112.ToBig(), 0)).BigInt()
	raw, err := toWord(scaled)
	if err != nil {
		return Ratio{}, err
	}
	return FromRaw(raw), nil
}

// Raw returns a copy of the scaled value.
func (r Ratio) Raw() *uint256.Int {
	return new(uint256.Int).Set(&r.raw)
}

// IsZero reports whether r is 0.
func (r Ratio) IsZero() bool {
	return r.raw.IsZero()
}

// Cmp compares r and o and returns -1, 0 or +1.
func (r Ratio) Cmp(o Ratio) int {
	return r.raw.Cmp(&o.raw)
}

// Reciprocal returns 1/r, computed as 2^224 / raw.
func (r Ratio) Reciprocal() (Ratio, error) {
	if r.raw.IsZero() {
		return Ratio{}, ErrDivisionByZero
	}
	var out Ratio
	out.raw.Div(q224, &r.raw)
	return out, nil
}

// MulInt returns floor(x * r) as an integer.
func (r Ratio) MulInt(x *big.Int) *big.Int {
	out := new(big.Int).Mul(x, r.raw.ToBig())
	return out.Rsh(out, Resolution)
}

// DecodeToDecimal multiplies by 10^precision, drops the fractional bits and
// rescales. It belongs at the display edge only.
func (r Ratio) DecodeToDecimal(precision int32) decimal.Decimal {
	if precision < 0 {
		precision = 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
	scaled := new(big.Int).Mul(r.raw.ToBig(), scale)
	scaled.Rsh(scaled, Resolution)
	return decimal.NewFromBigInt(scaled, -precision)
}

func (r Ratio) String() string {
	return r.DecodeToDecimal(DefaultDisplayPrecision).StringFixed(DefaultDisplayPrecision)
}

func toWord(value *big.Int) (*uint256.Int, error) {
	if value == nil {
		return new(uint256.Int), nil
	}
	if value.Sign() < 0 {
		return nil, ErrNegative
	}
	word, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("value %s: %w", value.String(), ErrOverflow)
	}
	return word, nil
}
