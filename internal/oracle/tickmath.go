package oracle

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"ammOracle/internal/fixedpoint"
)

const (
	// MinTick is the lowest tick a concentrated-liquidity pool can reach.
	MinTick int32 = -887272
	// MaxTick is the highest tick a concentrated-liquidity pool can reach.
	MaxTick int32 = -MinTick
)

var (
	// sqrtRatioFactors[i] is 2^128 / sqrt(1.0001^(2^i)).
	sqrtRatioFactors = [20]*uint256.Int{
		uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}

	q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	q80        = new(uint256.Int).Lsh(uint256.NewInt(1), 80)
	mask32     = uint256.NewInt(0xffffffff)
	maxUint256 = new(uint256.Int).SetAllOne()
)

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96, rounded up.
func SqrtRatioAtTick(tick int32) (*uint256.Int, error) {
	absTick := int64(tick)
	if absTick < 0 {
		absTick = -absTick
	}
	if absTick > int64(MaxTick) {
		return nil, fmt.Errorf("tick %d: %w", tick, ErrTickOutOfRange)
	}

	ratio := new(uint256.Int)
	if absTick&0x1 != 0 {
		ratio.Set(sqrtRatioFactors[0])
	} else {
		ratio.Set(q128)
	}
	for i := 1; i < len(sqrtRatioFactors); i++ {
		if absTick&(1<<i) != 0 {
			ratio.Mul(ratio, sqrtRatioFactors[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128.128 -> Q64.96, rounding up
	rem := new(uint256.Int).And(ratio, mask32)
	ratio.Rsh(ratio, 32)
	if !rem.IsZero() {
		ratio.AddUint64(ratio, 1)
	}
	return ratio, nil
}

// PriceAtTick returns 1.0001^tick, the price of token0 in token1, as a ratio.
func PriceAtTick(tick int32) (fixedpoint.Ratio, error) {
	sqrtX96, err := SqrtRatioAtTick(tick)
	if err != nil {
		return fixedpoint.Ratio{}, err
	}
	// (sqrt * 2^96)^2 / 2^80 = price * 2^112
	price, overflow := new(uint256.Int).MulDivOverflow(sqrtX96, sqrtX96, q80)
	if overflow {
		return fixedpoint.Ratio{}, fmt.Errorf("price at tick %d: %w", tick, fixedpoint.ErrOverflow)
	}
	return fixedpoint.FromRaw(price), nil
}

// InversePriceAtTick returns 1.0001^-tick, the price of token1 in token0.
// It divides 2^304 by sqrtX96^2 directly instead of inverting PriceAtTick,
// which has already truncated to zero at the bottom of the tick range.
// Prices below 2^-112 come back as zero.
func InversePriceAtTick(tick int32) (fixedpoint.Ratio, error) {
	sqrtX96, err := SqrtRatioAtTick(tick)
	if err != nil {
		return fixedpoint.Ratio{}, err
	}
	sqrt := sqrtX96.ToBig()
	denominator := new(big.Int).Mul(sqrt, sqrt)
	// 2^(2*96) / sqrtX96^2 = 1 / price, scaled by 2^112
	numerator := new(big.Int).Lsh(big.NewInt(1), 2*96+fixedpoint.Resolution)
	word, overflow := uint256.FromBig(numerator.Quo(numerator, denominator))
	if overflow {
		return fixedpoint.Ratio{}, fmt.Errorf("inverse price at tick %d: %w", tick, fixedpoint.ErrOverflow)
	}
	return fixedpoint.FromRaw(word), nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
