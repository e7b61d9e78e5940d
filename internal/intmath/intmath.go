package intmath

import (
	"errors"
	"math/big"
)

var (
	// ErrNoRealRoot is returned when the discriminant is negative.
	ErrNoRealRoot = errors.New("intmath: no real root")
	// ErrNoNonNegativeRoot is returned when both roots are negative.
	ErrNoNonNegativeRoot = errors.New("intmath: no non-negative root")
	// ErrNotQuadratic is returned when the leading coefficient is zero.
	ErrNotQuadratic = errors.New("intmath: leading coefficient is zero")

	one  = big.NewInt(1)
	two  = big.NewInt(2)
	four = big.NewInt(4)
)

// Isqrt returns the largest r with r*r <= n using Babylonian iteration.
// It stops as soon as the candidate stops decreasing. Isqrt panics if n is
// negative, like big.Int.Sqrt.
func Isqrt(n *big.Int) *big.Int {
	if n.Sign() < 0 {
		panic("intmath: square root of negative number")
	}
	y := new(big.Int).Set(n)
	z := new(big.Int).Add(n, one)
	z.Quo(z, two)
	tmp := new(big.Int)
	for z.Cmp(y) < 0 {
		y.Set(z)
		tmp.Quo(n, z)
		z.Add(tmp, z)
		z.Quo(z, two)
	}
	return y
}

// Roots holds the two solutions of a quadratic. X1 uses +sqrt(Δ), X2 uses -sqrt(Δ).
type Roots struct {
	X1 *big.Int
	X2 *big.Int
}

// SolveQuadratic solves a*x^2 + b*x + c = 0 over the integers. Divisions
// truncate toward zero.
func SolveQuadratic(a, b, c *big.Int) (Roots, error) {
	if a.Sign() == 0 {
		return Roots{}, ErrNotQuadratic
	}

	delta := new(big.Int).Mul(b, b)
	fourAC := new(big.Int).Mul(four, a)
	fourAC.Mul(fourAC, c)
	delta.Sub(delta, fourAC)

	twoA := new(big.Int).Mul(two, a)
	negB := new(big.Int).Neg(b)

	switch delta.Sign() {
	case -1:
		return Roots{}, ErrNoRealRoot
	case 0:
		x := new(big.Int).Quo(negB, twoA)
		return Roots{X1: x, X2: new(big.Int).Set(x)}, nil
	}

	sqrtDelta := Isqrt(delta)
	x1 := new(big.Int).Add(negB, sqrtDelta)
	x1.Quo(x1, twoA)
	x2 := new(big.Int).Sub(negB, sqrtDelta)
	x2.Quo(x2, twoA)
	return Roots{X1: x1, X2: x2}, nil
}

// NonNegative returns the smallest non-negative root.
func (r Roots) NonNegative() (*big.Int, error) {
	var best *big.Int
	for _, x := range []*big.Int{r.X1, r.X2} {
		if x == nil || x.Sign() < 0 {
			continue
		}
		if best == nil || x.Cmp(best) < 0 {
			best = x
		}
	}
	if best == nil {
		return nil, ErrNoNonNegativeRoot
	}
	return new(big.Int).Set(best), nil
}
