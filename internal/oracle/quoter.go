package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammOracle/internal/model"
)

// Quoter produces a {twap, spot} pair for a pool.
type Quoter interface {
	Quote(ctx context.Context, pool common.Address, sel model.QuoteSelector) (model.PriceQuote, error)
}

// Deps carries what either adapter may need. Only the fields the chosen kind
// uses must be set.
type Deps struct {
	Pairs    PairReader
	Ticks    TickReader
	Store    ObservationStore
	Clock    Clock
	Lookback uint32
	Logger   *zap.Logger
}

// NewQuoter returns the adapter for the declared pool kind.
func NewQuoter(kind model.PoolKind, deps Deps) (Quoter, error) {
	switch kind {
	case model.PoolKindConstantProduct:
		if deps.Pairs == nil || deps.Store == nil {
			return nil, fmt.Errorf("constant-product quoter needs a pair reader and a store")
		}
		return NewAccumulatorOracle(deps.Pairs, deps.Store, deps.Clock, deps.Logger), nil
	case model.PoolKindConcentrated:
		if deps.Ticks == nil {
			return nil, fmt.Errorf("concentrated quoter needs a tick reader")
		}
		return NewTickOracle(deps.Ticks, deps.Lookback, deps.Logger), nil
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnknownPoolKind)
	}
}
