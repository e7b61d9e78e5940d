package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammOracle/internal/fixedpoint"
	"ammOracle/internal/model"
)

// AccumulatorOracle prices constant-product pairs from the pair's cumulative
// price accumulators. It keeps one observation per (pool, orientation); the
// two orientations are never derived from each other.
type AccumulatorOracle struct {
	pairs  PairReader
	store  ObservationStore
	clock  Clock
	logger *zap.Logger
	locks  *keyedMutex
}

// NewAccumulatorOracle builds an AccumulatorOracle with its dependencies.
func NewAccumulatorOracle(pairs PairReader, store ObservationStore, clock Clock, logger *zap.Logger) *AccumulatorOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock
	}
	return &AccumulatorOracle{
		pairs:  pairs,
		store:  store,
		clock:  clock,
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

// accumulatorState is the counterfactual accumulator at a point in time.
type accumulatorState struct {
	pair       model.PairState
	reserves   model.Reserves
	spot       fixedpoint.Ratio
	cumulative *uint256.Int
	now        uint64
}

// Poke records the current accumulator for (pool, sel). A second poke in the
// same second, or with a clock behind the stored observation, records nothing.
func (o *AccumulatorOracle) Poke(ctx context.Context, pool common.Address, sel model.QuoteSelector) error {
	if err := o.validate(sel); err != nil {
		return err
	}

	key := model.ObservationKey{Pool: pool, Selector: sel}
	unlock := o.locks.Lock(key.String())
	defer unlock()

	state, err := o.current(ctx, pool, sel)
	if err != nil {
		return err
	}

	prev, ok, err := o.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load observation: %w", err)
	}
	if ok && state.now <= prev.Timestamp {
		o.logger.Debug("poke skipped",
			zap.String("pool", pool.Hex()),
			zap.Stringer("selector", sel),
			zap.Uint64("now", state.now),
			zap.Uint64("last", prev.Timestamp),
		)
		return nil
	}

	obs := model.Observation{
		Pool:            pool,
		Selector:        sel,
		CumulativePrice: state.cumulative,
		Timestamp:       state.now,
	}
	if err := o.store.Save(ctx, obs); err != nil {
		return fmt.Errorf("save observation: %w", err)
	}

	o.logger.Debug("poke",
		zap.String("pool", pool.Hex()),
		zap.Stringer("selector", sel),
		zap.Uint64("timestamp", state.now),
		zap.String("spot", state.spot.String()),
	)
	return nil
}

// Fetch returns the spot price and the average since the stored observation.
// It reads only; repeated calls at the same time over the same pool state are
// identical. An empty window yields twap == spot.
func (o *AccumulatorOracle) Fetch(ctx context.Context, pool common.Address, sel model.QuoteSelector) (model.PriceQuote, error) {
	quote, _, err := o.fetch(ctx, pool, sel)
	return quote, err
}

// Quote implements Quoter.
func (o *AccumulatorOracle) Quote(ctx context.Context, pool common.Address, sel model.QuoteSelector) (model.PriceQuote, error) {
	return o.Fetch(ctx, pool, sel)
}

// FetchLP prices one LP token of the pair in quote units, for both the
// average and the spot price of the base token.
func (o *AccumulatorOracle) FetchLP(ctx context.Context, pool common.Address, sel model.QuoteSelector) (model.PriceQuote, error) {
	quote, state, err := o.fetch(ctx, pool, sel)
	if err != nil {
		return model.PriceQuote{}, err
	}
	return lpQuote(state, quote)
}

func lpQuote(state accumulatorState, quote model.PriceQuote) (model.PriceQuote, error) {
	twap, err := lpPrice(state.reserves, quote.TWAP, state.pair.TotalSupply)
	if err != nil {
		return model.PriceQuote{}, err
	}
	spot, err := lpPrice(state.reserves, quote.Spot, state.pair.TotalSupply)
	if err != nil {
		return model.PriceQuote{}, err
	}
	return model.PriceQuote{TWAP: twap, Spot: spot}, nil
}

// Sample is one fetch with the time it was taken at. LPTokenPrice is set
// only when asked for, and comes from the same pair read as Price.
type Sample struct {
	Price        model.PriceQuote
	LPTokenPrice *model.PriceQuote
	Timestamp    uint64
}

// FetchSample is Fetch that also reports the timestamp the price was sampled
// at and, when withLP is set, the LP token price from the same read.
func (o *AccumulatorOracle) FetchSample(ctx context.Context, pool common.Address, sel model.QuoteSelector, withLP bool) (Sample, error) {
	quote, state, err := o.fetch(ctx, pool, sel)
	if err != nil {
		return Sample{}, err
	}
	sample := Sample{Price: quote, Timestamp: state.now}
	if withLP {
		lp, err := lpQuote(state, quote)
		if err != nil {
			return Sample{}, err
		}
		sample.LPTokenPrice = &lp
	}
	return sample, nil
}

func (o *AccumulatorOracle) fetch(ctx context.Context, pool common.Address, sel model.QuoteSelector) (model.PriceQuote, accumulatorState, error) {
	if err := o.validate(sel); err != nil {
		return model.PriceQuote{}, accumulatorState{}, err
	}

	key := model.ObservationKey{Pool: pool, Selector: sel}
	stored, ok, err := o.store.Load(ctx, key)
	if err != nil {
		return model.PriceQuote{}, accumulatorState{}, fmt.Errorf("load observation: %w", err)
	}
	if !ok {
		return model.PriceQuote{}, accumulatorState{}, fmt.Errorf("%s: %w", key, ErrNoObservation)
	}

	state, err := o.current(ctx, pool, sel)
	if err != nil {
		return model.PriceQuote{}, accumulatorState{}, err
	}

	var elapsed uint64
	if state.now > stored.Timestamp {
		elapsed = state.now - stored.Timestamp
	}

	twap := state.spot
	if elapsed > 0 {
		twap = averageOver(state.cumulative, stored.CumulativePrice, elapsed)
	}

	o.logger.Debug("fetch",
		zap.String("pool", pool.Hex()),
		zap.Stringer("selector", sel),
		zap.Uint64("elapsed", elapsed),
		zap.String("twap", twap.String()),
		zap.String("spot", state.spot.String()),
	)

	return model.PriceQuote{TWAP: twap, Spot: state.spot}, state, nil
}

// current extends the pair's last accumulator to now with the spot price,
// in wrapping arithmetic.
func (o *AccumulatorOracle) current(ctx context.Context, pool common.Address, sel model.QuoteSelector) (accumulatorState, error) {
	if o.pairs == nil {
		return accumulatorState{}, fmt.Errorf("pair reader is nil")
	}
	if o.store == nil {
		return accumulatorState{}, fmt.Errorf("observation store is nil")
	}

	now, err := o.clock.Now(ctx)
	if err != nil {
		return accumulatorState{}, fmt.Errorf("read clock: %w", err)
	}

	pair, err := o.pairs.ReadPair(ctx, pool)
	if err != nil {
		return accumulatorState{}, fmt.Errorf("read pair %s: %w", pool.Hex(), err)
	}

	reserves := pair.Reserves(sel)
	if reserves.Base.Sign() <= 0 || reserves.Quote.Sign() <= 0 {
		return accumulatorState{}, fmt.Errorf("%s: %w", pool.Hex(), ErrStalePool)
	}

	spot, err := fixedpoint.EncodeBig(reserves.Quote, reserves.Base)
	if err != nil {
		return accumulatorState{}, fmt.Errorf("spot price: %w", err)
	}

	// The pair may have been written in a block newer than the clock read.
	// Its accumulator is then already ahead of now, so the sample is taken at
	// the pair's own timestamp instead of being extended backwards.
	cumulative := pair.CumulativeLast(sel)
	elapsed := int32(uint32(now) - pair.BlockTimestampLast)
	switch {
	case elapsed > 0:
		cumulative.Add(cumulative, accumulate(spot, uint64(elapsed)))
	case elapsed < 0:
		o.logger.Debug("pair ahead of clock",
			zap.String("pool", pool.Hex()),
			zap.Uint64("now", now),
			zap.Uint32("pair_timestamp", pair.BlockTimestampLast),
		)
		now += uint64(-int64(elapsed))
	}

	return accumulatorState{
		pair:       pair,
		reserves:   reserves,
		spot:       spot,
		cumulative: cumulative,
		now:        now,
	}, nil
}

func (o *AccumulatorOracle) validate(sel model.QuoteSelector) error {
	if !sel.Valid() {
		return fmt.Errorf("invalid quote selector %d", uint8(sel))
	}
	return nil
}

// accumulate returns price * elapsed modulo 2^256.
func accumulate(price fixedpoint.Ratio, elapsed uint64) *uint256.Int {
	return new(uint256.Int).Mul(price.Raw(), uint256.NewInt(elapsed))
}

// averageOver returns (current - past) / elapsed with the subtraction taken
// modulo 2^256, so one wrap between the samples still averages correctly.
func averageOver(current, past *uint256.Int, elapsed uint64) fixedpoint.Ratio {
	delta := new(uint256.Int).Sub(current, past)
	delta.Div(delta, uint256.NewInt(elapsed))
	return fixedpoint.FromRaw(delta)
}

// lpPrice returns (reserveQuote + reserveBase*price) / totalSupply.
func lpPrice(reserves model.Reserves, price fixedpoint.Ratio, totalSupply *big.Int) (fixedpoint.Ratio, error) {
	if totalSupply == nil || totalSupply.Sign() <= 0 {
		return fixedpoint.Ratio{}, fmt.Errorf("zero lp supply: %w", ErrStalePool)
	}
	value := new(big.Int).Lsh(reserves.Quote, fixedpoint.Resolution)
	value.Add(value, new(big.Int).Mul(reserves.Base, price.Raw().ToBig()))
	raw := value.Div(value, totalSupply)
	word, overflow := uint256.FromBig(raw)
	if overflow {
		return fixedpoint.Ratio{}, fmt.Errorf("lp price: %w", fixedpoint.ErrOverflow)
	}
	return fixedpoint.FromRaw(word), nil
}
