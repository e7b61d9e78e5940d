// Package solver sizes constant-product trades that move a pair to a target
// price.
package solver

import (
	"errors"
	"fmt"
	"math/big"

	"ammOracle/internal/fixedpoint"
	"ammOracle/internal/intmath"
	"ammOracle/internal/model"
)

// ErrInvalidTarget is returned when the pair is already at the target or
// cannot be moved at all.
var ErrInvalidTarget = errors.New("solver: invalid target price")

// PlanSwapToTarget returns the input that moves the pair's spot price
// (quote per base) to target after the fee is taken. Prices above the
// current one are reached by paying in quote, prices below by paying in base.
//
// With f = fee.Numerator/fee.Denominator, paying x quote gives
//
//	f*x^2 + (1+f)*rq*x + rq^2 - target*rq*rb = 0
//
// and paying y base gives the same form over rb with rq*rb/target.
// Both are scaled by the fee denominator to stay in integers.
func PlanSwapToTarget(reserves model.Reserves, fee model.Fee, target fixedpoint.Ratio) (model.SwapPlan, error) {
	if err := fee.Validate(); err != nil {
		return model.SwapPlan{}, err
	}
	if reserves.Base == nil || reserves.Quote == nil || reserves.Base.Sign() <= 0 || reserves.Quote.Sign() <= 0 {
		return model.SwapPlan{}, fmt.Errorf("empty reserves: %w", ErrInvalidTarget)
	}
	if target.IsZero() {
		return model.SwapPlan{}, fmt.Errorf("zero target: %w", ErrInvalidTarget)
	}

	rb := reserves.Base
	rq := reserves.Quote
	t := target.Raw().ToBig()
	num := new(big.Int).SetUint64(fee.Numerator)
	den := new(big.Int).SetUint64(fee.Denominator)

	// target vs rq/rb, exactly
	lhs := new(big.Int).Mul(t, rb)
	rhs := new(big.Int).Lsh(rq, fixedpoint.Resolution)

	var (
		side  model.Side
		token = reserves.QuoteToken
		b     *big.Int
		c     *big.Int
	)
	switch lhs.Cmp(rhs) {
	case 0:
		return model.SwapPlan{}, fmt.Errorf("pair already at %s: %w", target, ErrInvalidTarget)
	case 1:
		side = model.SideQuote
		b = new(big.Int).Mul(new(big.Int).Add(den, num), rq)
		c = new(big.Int).Mul(den, new(big.Int).Mul(rq, rq))
		shift := new(big.Int).Mul(den, t)
		shift.Mul(shift, rq)
		shift.Mul(shift, rb)
		shift.Rsh(shift, fixedpoint.Resolution)
		c.Sub(c, shift)
	default:
		side = model.SideBase
		token = reserves.BaseToken
		b = new(big.Int).Mul(new(big.Int).Add(den, num), rb)
		c = new(big.Int).Mul(den, new(big.Int).Mul(rb, rb))
		shift := new(big.Int).Mul(den, rq)
		shift.Mul(shift, rb)
		shift.Lsh(shift, fixedpoint.Resolution)
		shift.Quo(shift, t)
		c.Sub(c, shift)
	}

	roots, err := intmath.SolveQuadratic(num, b, c)
	if err != nil {
		return model.SwapPlan{}, fmt.Errorf("solve for %s input: %w", side, err)
	}
	amount, err := roots.NonNegative()
	if err != nil {
		return model.SwapPlan{}, fmt.Errorf("solve for %s input: %w", side, err)
	}

	return model.SwapPlan{
		InputAmount: amount,
		InputSide:   side,
		InputToken:  token,
	}, nil
}

// AmountOut is the constant-product output for amountIn after the fee.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, fee model.Fee) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || fee.Denominator == 0 {
		return new(big.Int)
	}
	withFee := new(big.Int).Mul(amountIn, new(big.Int).SetUint64(fee.Numerator))
	numerator := new(big.Int).Mul(withFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, new(big.Int).SetUint64(fee.Denominator))
	denominator.Add(denominator, withFee)
	return numerator.Quo(numerator, denominator)
}

// Apply returns the reserves after executing plan.
func Apply(reserves model.Reserves, plan model.SwapPlan, fee model.Fee) model.Reserves {
	out := model.Reserves{
		Base:       new(big.Int).Set(reserves.Base),
		Quote:      new(big.Int).Set(reserves.Quote),
		BaseToken:  reserves.BaseToken,
		QuoteToken: reserves.QuoteToken,
	}
	if plan.InputAmount == nil || plan.InputAmount.Sign() <= 0 {
		return out
	}
	switch plan.InputSide {
	case model.SideQuote:
		bought := AmountOut(plan.InputAmount, reserves.Quote, reserves.Base, fee)
		out.Quote.Add(out.Quote, plan.InputAmount)
		out.Base.Sub(out.Base, bought)
	case model.SideBase:
		bought := AmountOut(plan.InputAmount, reserves.Base, reserves.Quote, fee)
		out.Base.Add(out.Base, plan.InputAmount)
		out.Quote.Sub(out.Quote, bought)
	}
	return out
}

// SpotPrice is reserves.Quote / reserves.Base.
func SpotPrice(reserves model.Reserves) (fixedpoint.Ratio, error) {
	return fixedpoint.EncodeBig(reserves.Quote, reserves.Base)
}
