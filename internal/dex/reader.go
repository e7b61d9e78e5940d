package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammOracle/internal/chain"
	"ammOracle/internal/model"
	"ammOracle/internal/oracle"
)

// ContractCaller performs read-only contract calls. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// PoolTokens are the two tokens of a pool, in pool order.
type PoolTokens struct {
	Token0 common.Address
	Token1 common.Address
}

// PoolTokenCache caches pool tokens by address. Pool tokens never change.
type PoolTokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]PoolTokens
}

func NewPoolTokenCache() *PoolTokenCache {
	return &PoolTokenCache{data: make(map[common.Address]PoolTokens)}
}

func (c *PoolTokenCache) Get(address common.Address) (PoolTokens, bool) {
	c.mu.RLock()
	tokens, ok := c.data[address]
	c.mu.RUnlock()
	return tokens, ok
}

func (c *PoolTokenCache) Set(address common.Address, tokens PoolTokens) {
	c.mu.Lock()
	c.data[address] = tokens
	c.mu.Unlock()
}

// Reader reads pool state over eth_call. It serves both constant-product
// pairs and concentrated-liquidity pools.
type Reader struct {
	caller ContractCaller
	block  *big.Int
	tokens *PoolTokenCache
	logger *zap.Logger
}

// NewReader reads at block, or at the chain head when block is 0.
func NewReader(caller ContractCaller, block uint64, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}
	return &Reader{
		caller: caller,
		block:  blockPtr,
		tokens: NewPoolTokenCache(),
		logger: logger,
	}
}

// ReadPair implements oracle.PairReader.
func (r *Reader) ReadPair(ctx context.Context, pool common.Address) (model.PairState, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return model.PairState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	tokens, err := r.poolTokens(ctx, pool, pairABI)
	if err != nil {
		return model.PairState{}, err
	}

	values, err := r.call(ctx, pool, pairABI, "getReserves")
	if err != nil {
		return model.PairState{}, err
	}
	if len(values) < 3 {
		return model.PairState{}, fmt.Errorf("getReserves: expected 3 values, got %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.PairState{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.PairState{}, fmt.Errorf("reserve1: %w", err)
	}
	tsLast, err := asBigInt(values[2])
	if err != nil {
		return model.PairState{}, fmt.Errorf("block timestamp last: %w", err)
	}

	cumulative0, err := r.callWord(ctx, pool, pairABI, "price0CumulativeLast")
	if err != nil {
		return model.PairState{}, err
	}
	cumulative1, err := r.callWord(ctx, pool, pairABI, "price1CumulativeLast")
	if err != nil {
		return model.PairState{}, err
	}

	values, err = r.call(ctx, pool, pairABI, "totalSupply")
	if err != nil {
		return model.PairState{}, err
	}
	supply, err := asBigInt(values[0])
	if err != nil {
		return model.PairState{}, fmt.Errorf("total supply: %w", err)
	}

	return model.PairState{
		Token0:               tokens.Token0,
		Token1:               tokens.Token1,
		Reserve0:             reserve0,
		Reserve1:             reserve1,
		BlockTimestampLast:   uint32(tsLast.Uint64()),
		Price0CumulativeLast: cumulative0,
		Price1CumulativeLast: cumulative1,
		TotalSupply:          supply,
	}, nil
}

// Snapshot implements oracle.TickReader.
func (r *Reader) Snapshot(ctx context.Context, pool common.Address) (model.TickSnapshot, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "slot0")
	if err != nil {
		return model.TickSnapshot{}, err
	}
	if len(values) < 2 {
		return model.TickSnapshot{}, fmt.Errorf("slot0: expected at least 2 values, got %d", len(values))
	}
	sqrt, err := asBigInt(values[0])
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("tick: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "fee")
	if err != nil {
		return model.TickSnapshot{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("fee: %w", err)
	}

	return model.TickSnapshot{
		SqrtPriceX96: sqrt.String(),
		Tick:         tick,
		Fee:          uint32(feeInt.Uint64()),
	}, nil
}

// Observe implements oracle.TickReader. A pool without enough history
// reverts with OLD, which maps to oracle.ErrInsufficientHistory.
func (r *Reader) Observe(ctx context.Context, pool common.Address, secondsAgos []uint32) ([]int64, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "observe", secondsAgos)
	if err != nil {
		if isOldRevert(err) {
			return nil, fmt.Errorf("%s: %w", err, oracle.ErrInsufficientHistory)
		}
		return nil, err
	}
	if len(values) < 1 {
		return nil, fmt.Errorf("observe: missing tick cumulatives")
	}
	cumulatives, err := asInt64Slice(values[0])
	if err != nil {
		return nil, fmt.Errorf("tick cumulatives: %w", err)
	}
	if len(cumulatives) != len(secondsAgos) {
		return nil, fmt.Errorf("observe: expected %d samples, got %d", len(secondsAgos), len(cumulatives))
	}
	return cumulatives, nil
}

// Tokens returns the pool's tokens, from cache when known.
func (r *Reader) Tokens(ctx context.Context, pool common.Address) (PoolTokens, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return PoolTokens{}, fmt.Errorf("parse pair abi: %w", err)
	}
	return r.poolTokens(ctx, pool, pairABI)
}

func (r *Reader) poolTokens(ctx context.Context, pool common.Address, parsed abi.ABI) (PoolTokens, error) {
	if tokens, ok := r.tokens.Get(pool); ok {
		return tokens, nil
	}

	values, err := r.call(ctx, pool, parsed, "token0")
	if err != nil {
		return PoolTokens{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return PoolTokens{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.call(ctx, pool, parsed, "token1")
	if err != nil {
		return PoolTokens{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return PoolTokens{}, fmt.Errorf("token1: %w", err)
	}

	tokens := PoolTokens{Token0: token0, Token1: token1}
	r.tokens.Set(pool, tokens)
	r.logger.Debug("pool tokens cached",
		zap.String("pool", pool.Hex()),
		zap.String("token0", token0.Hex()),
		zap.String("token1", token1.Hex()),
	)
	return tokens, nil
}

func (r *Reader) callWord(ctx context.Context, pool common.Address, parsed abi.ABI, method string) (*uint256.Int, error) {
	values, err := r.call(ctx, pool, parsed, method)
	if err != nil {
		return nil, err
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	word, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("%s: uint256 overflow", method)
	}
	return word, nil
}

func (r *Reader) call(ctx context.Context, target common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	if r.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, r.block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func isOldRevert(err error) bool {
	return chain.IsRevert(err) && strings.Contains(err.Error(), "OLD")
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asInt64Slice(value interface{}) ([]int64, error) {
	switch v := value.(type) {
	case []int64:
		return append([]int64(nil), v...), nil
	case []*big.Int:
		out := make([]int64, len(v))
		for i, item := range v {
			if !item.IsInt64() {
				return nil, fmt.Errorf("int64 overflow: %s", item.String())
			}
			out[i] = item.Int64()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported int slice type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
