package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ammOracle/internal/model"
)

func TestNewQuoterDispatch(t *testing.T) {
	pair := newFakePair(1000, 1324000, 1000)
	clock := &manualClock{now: 1000}
	ticks := &fakeTicks{tick: 0, cumulative: linearCumulative(0)}

	deps := Deps{
		Pairs:    pair,
		Ticks:    ticks,
		Store:    newCountingStore(),
		Clock:    clock,
		Lookback: 600,
	}

	cp, err := NewQuoter(model.PoolKindConstantProduct, deps)
	require.NoError(t, err)
	require.IsType(t, &AccumulatorOracle{}, cp)

	cl, err := NewQuoter(model.PoolKindConcentrated, deps)
	require.NoError(t, err)
	require.IsType(t, &TickOracle{}, cl)

	quote, err := cl.Quote(context.Background(), testPool, model.QuoteToken1)
	require.NoError(t, err)
	require.Equal(t, "1.000000", quote.Spot.String())
	require.Equal(t, [][]uint32{{600, 0}}, ticks.observed)

	_, err = NewQuoter(model.PoolKind("orderbook"), deps)
	require.ErrorIs(t, err, ErrUnknownPoolKind)
}

func TestNewQuoterMissingDeps(t *testing.T) {
	_, err := NewQuoter(model.PoolKindConstantProduct, Deps{})
	require.Error(t, err)
	_, err = NewQuoter(model.PoolKindConcentrated, Deps{})
	require.Error(t, err)
}
