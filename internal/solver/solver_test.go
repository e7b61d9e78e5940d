package solver

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ammOracle/internal/fixedpoint"
	"ammOracle/internal/model"
)

var (
	baseToken  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	quoteToken = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func reserves(base, quote int64) model.Reserves {
	return model.Reserves{
		Base:       big.NewInt(base),
		Quote:      big.NewInt(quote),
		BaseToken:  baseToken,
		QuoteToken: quoteToken,
	}
}

func mustRatio(t *testing.T, value string) fixedpoint.Ratio {
	t.Helper()
	r, err := fixedpoint.FromDecimal(decimal.RequireFromString(value))
	require.NoError(t, err)
	return r
}

func TestPlanRaisesPrice(t *testing.T) {
	start := reserves(10000, 10000)
	plan, err := PlanSwapToTarget(start, model.DefaultFee, mustRatio(t, "2"))
	require.NoError(t, err)

	require.Equal(t, "4148", plan.InputAmount.String())
	require.Equal(t, model.SideQuote, plan.InputSide)
	require.Equal(t, quoteToken, plan.InputToken)

	after := Apply(start, plan, model.DefaultFee)
	require.Equal(t, "7075", after.Base.String())
	require.Equal(t, "14148", after.Quote.String())

	price, err := SpotPrice(after)
	require.NoError(t, err)
	got := price.DecodeToDecimal(6)
	require.True(t, got.GreaterThanOrEqual(decimal.RequireFromString("1.99")), "price %s", got)
	require.True(t, got.LessThanOrEqual(decimal.RequireFromString("2.01")), "price %s", got)
}

func TestPlanLowersPrice(t *testing.T) {
	start := reserves(10000, 10000)
	plan, err := PlanSwapToTarget(start, model.DefaultFee, mustRatio(t, "0.5"))
	require.NoError(t, err)

	require.Equal(t, "4148", plan.InputAmount.String())
	require.Equal(t, model.SideBase, plan.InputSide)
	require.Equal(t, baseToken, plan.InputToken)

	price, err := SpotPrice(Apply(start, plan, model.DefaultFee))
	require.NoError(t, err)
	require.Equal(t, "0.50", price.DecodeToDecimal(2).StringFixed(2))
}

func TestPlanLargeReserves(t *testing.T) {
	base := new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))
	quote := new(big.Int).Mul(base, big.NewInt(1324))
	start := model.Reserves{Base: base, Quote: quote, BaseToken: baseToken, QuoteToken: quoteToken}

	plan, err := PlanSwapToTarget(start, model.DefaultFee, fixedpoint.FromUint64(1400))
	require.NoError(t, err)
	require.Equal(t, "187630421497347349593", plan.InputAmount.String())

	price, err := SpotPrice(Apply(start, plan, model.DefaultFee))
	require.NoError(t, err)
	diff := price.DecodeToDecimal(6).Sub(decimal.NewFromInt(1400)).Abs()
	require.True(t, diff.LessThan(decimal.New(1, -2)), "off by %s", diff)
}

func TestPlanFeeTier(t *testing.T) {
	start := reserves(1_000_000, 1_000_000)
	cheap, err := PlanSwapToTarget(start, model.FeeFromPips(500), mustRatio(t, "1.5"))
	require.NoError(t, err)
	costly, err := PlanSwapToTarget(start, model.FeeFromPips(10000), mustRatio(t, "1.5"))
	require.NoError(t, err)
	require.Equal(t, 1, costly.InputAmount.Cmp(cheap.InputAmount), "a higher fee needs more input")
}

func TestPlanInvalidTarget(t *testing.T) {
	_, err := PlanSwapToTarget(reserves(10000, 20000), model.DefaultFee, mustRatio(t, "2"))
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = PlanSwapToTarget(reserves(0, 20000), model.DefaultFee, mustRatio(t, "2"))
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = PlanSwapToTarget(reserves(10000, 0), model.DefaultFee, mustRatio(t, "2"))
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = PlanSwapToTarget(reserves(10000, 10000), model.DefaultFee, fixedpoint.Ratio{})
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestPlanRejectsBadFee(t *testing.T) {
	_, err := PlanSwapToTarget(reserves(10000, 10000), model.Fee{Numerator: 2, Denominator: 1}, mustRatio(t, "2"))
	require.Error(t, err)
}

func TestAmountOut(t *testing.T) {
	out := AmountOut(big.NewInt(4148), big.NewInt(10000), big.NewInt(10000), model.DefaultFee)
	require.Equal(t, "2925", out.String())

	require.Zero(t, AmountOut(big.NewInt(0), big.NewInt(10), big.NewInt(10), model.DefaultFee).Sign())
	require.Zero(t, AmountOut(big.NewInt(5), big.NewInt(0), big.NewInt(10), model.DefaultFee).Sign())
}
