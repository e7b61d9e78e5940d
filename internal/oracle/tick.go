package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammOracle/internal/fixedpoint"
	"ammOracle/internal/model"
)

// TickOracle prices concentrated-liquidity pools from the pool's own tick
// cumulative history. It keeps no state of its own.
type TickOracle struct {
	reader   TickReader
	lookback uint32
	logger   *zap.Logger
}

// NewTickOracle builds a TickOracle. lookback is the window Quote uses.
func NewTickOracle(reader TickReader, lookback uint32, logger *zap.Logger) *TickOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickOracle{
		reader:   reader,
		lookback: lookback,
		logger:   logger,
	}
}

// Quote implements Quoter over the configured lookback.
func (o *TickOracle) Quote(ctx context.Context, pool common.Address, sel model.QuoteSelector) (model.PriceQuote, error) {
	return o.Peek(ctx, pool, sel, o.lookback)
}

// Peek returns the spot price at the pool's current tick and the price at the
// average tick over the last lookback seconds.
func (o *TickOracle) Peek(ctx context.Context, pool common.Address, sel model.QuoteSelector, lookback uint32) (model.PriceQuote, error) {
	if !sel.Valid() {
		return model.PriceQuote{}, fmt.Errorf("invalid quote selector %d", uint8(sel))
	}
	if o.reader == nil {
		return model.PriceQuote{}, fmt.Errorf("tick reader is nil")
	}

	snapshot, err := o.reader.Snapshot(ctx, pool)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("read slot0 %s: %w", pool.Hex(), err)
	}
	spot, err := priceForSelector(snapshot.Tick, sel)
	if err != nil {
		return model.PriceQuote{}, err
	}

	avgTick := snapshot.Tick
	twap := spot
	if lookback > 0 {
		cumulatives, err := o.reader.Observe(ctx, pool, []uint32{lookback, 0})
		if err != nil {
			return model.PriceQuote{}, fmt.Errorf("observe %s over %ds: %w", pool.Hex(), lookback, err)
		}
		if len(cumulatives) != 2 {
			return model.PriceQuote{}, fmt.Errorf("observe %s: expected 2 samples, got %d", pool.Hex(), len(cumulatives))
		}
		avg := floorDiv(cumulatives[1]-cumulatives[0], int64(lookback))
		if avg < int64(MinTick) || avg > int64(MaxTick) {
			return model.PriceQuote{}, fmt.Errorf("average tick %d: %w", avg, ErrTickOutOfRange)
		}
		avgTick = int32(avg)
		twap, err = priceForSelector(avgTick, sel)
		if err != nil {
			return model.PriceQuote{}, err
		}
	}

	o.logger.Debug("peek",
		zap.String("pool", pool.Hex()),
		zap.Stringer("selector", sel),
		zap.Uint32("lookback", lookback),
		zap.Int32("tick", snapshot.Tick),
		zap.Int32("avg_tick", avgTick),
	)

	return model.PriceQuote{TWAP: twap, Spot: spot}, nil
}

// priceForSelector prices the base token at tick. A tick prices token0 in
// token1, so quoting in token0 takes the reciprocal.
func priceForSelector(tick int32, sel model.QuoteSelector) (fixedpoint.Ratio, error) {
	if sel == model.QuoteToken1 {
		return PriceAtTick(tick)
	}
	return InversePriceAtTick(tick)
}
