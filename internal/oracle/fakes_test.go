package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"ammOracle/internal/fixedpoint"
	"ammOracle/internal/model"
)

var (
	testPool   = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	testToken0 = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testToken1 = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// manualClock is a Clock the test advances by hand.
type manualClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *manualClock) Now(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

func (c *manualClock) advance(seconds uint64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}

// fakePair mimics a constant-product pair: each reserve update first
// accumulates the old prices over the time since the last update.
type fakePair struct {
	mu    sync.Mutex
	state model.PairState
	err   error
}

func newFakePair(reserve0, reserve1 int64, ts uint32) *fakePair {
	return &fakePair{state: model.PairState{
		Token0:               testToken0,
		Token1:               testToken1,
		Reserve0:             big.NewInt(reserve0),
		Reserve1:             big.NewInt(reserve1),
		BlockTimestampLast:   ts,
		Price0CumulativeLast: new(uint256.Int),
		Price1CumulativeLast: new(uint256.Int),
		TotalSupply:          big.NewInt(1000),
	}}
}

func (p *fakePair) ReadPair(_ context.Context, pool common.Address) (model.PairState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return model.PairState{}, p.err
	}
	if pool != testPool {
		return model.PairState{}, errors.New("unknown pool")
	}
	state := p.state
	state.Price0CumulativeLast = p.state.Price0CumulativeLast.Clone()
	state.Price1CumulativeLast = p.state.Price1CumulativeLast.Clone()
	return state, nil
}

func (p *fakePair) sync(now uint64, reserve0, reserve1 *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := uint32(now) - p.state.BlockTimestampLast
	if elapsed > 0 && p.state.Reserve0.Sign() > 0 && p.state.Reserve1.Sign() > 0 {
		price0, _ := fixedpoint.EncodeBig(p.state.Reserve1, p.state.Reserve0)
		price1, _ := fixedpoint.EncodeBig(p.state.Reserve0, p.state.Reserve1)
		p.state.Price0CumulativeLast.Add(p.state.Price0CumulativeLast, accumulate(price0, uint64(elapsed)))
		p.state.Price1CumulativeLast.Add(p.state.Price1CumulativeLast, accumulate(price1, uint64(elapsed)))
	}
	p.state.Reserve0 = new(big.Int).Set(reserve0)
	p.state.Reserve1 = new(big.Int).Set(reserve1)
	p.state.BlockTimestampLast = uint32(now)
}

// fakeTicks serves a fixed slot0 and tick cumulatives as a function of
// secondsAgo.
type fakeTicks struct {
	tick       int32
	cumulative func(secondsAgo uint32) int64
	observeErr error
	observed   [][]uint32
}

func (f *fakeTicks) Snapshot(context.Context, common.Address) (model.TickSnapshot, error) {
	return model.TickSnapshot{Tick: f.tick, Fee: 3000}, nil
}

func (f *fakeTicks) Observe(_ context.Context, _ common.Address, secondsAgos []uint32) ([]int64, error) {
	f.observed = append(f.observed, append([]uint32(nil), secondsAgos...))
	if f.observeErr != nil {
		return nil, f.observeErr
	}
	out := make([]int64, len(secondsAgos))
	for i, ago := range secondsAgos {
		out[i] = f.cumulative(ago)
	}
	return out, nil
}

// countingStore is an in-memory ObservationStore that counts saves.
type countingStore struct {
	mu    sync.Mutex
	data  map[model.ObservationKey]model.Observation
	saves int
}

func newCountingStore() *countingStore {
	return &countingStore{data: make(map[model.ObservationKey]model.Observation)}
}

func (s *countingStore) Load(_ context.Context, key model.ObservationKey) (model.Observation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.data[key]
	if ok {
		obs.CumulativePrice = obs.CumulativePrice.Clone()
	}
	return obs, ok, nil
}

func (s *countingStore) Save(_ context.Context, obs model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs.CumulativePrice = obs.CumulativePrice.Clone()
	s.data[obs.Key()] = obs
	s.saves++
	return nil
}
