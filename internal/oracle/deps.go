package oracle

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ammOracle/internal/model"
)

// PairReader reads constant-product pair state.
type PairReader interface {
	ReadPair(ctx context.Context, pool common.Address) (model.PairState, error)
}

// TickReader reads concentrated-liquidity pool state.
type TickReader interface {
	// Observe returns the tick cumulative for each secondsAgo, in order. It
	// returns ErrInsufficientHistory when the pool cannot look back that far.
	Observe(ctx context.Context, pool common.Address, secondsAgos []uint32) ([]int64, error)
	Snapshot(ctx context.Context, pool common.Address) (model.TickSnapshot, error)
}

// ObservationStore persists the last observation per (pool, orientation).
type ObservationStore interface {
	Load(ctx context.Context, key model.ObservationKey) (model.Observation, bool, error)
	Save(ctx context.Context, obs model.Observation) error
}

// Clock returns the current time in unix seconds.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func(ctx context.Context) (uint64, error)

func (f ClockFunc) Now(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// SystemClock reads wall-clock time.
var SystemClock Clock = ClockFunc(func(context.Context) (uint64, error) {
	return uint64(time.Now().Unix()), nil
})
