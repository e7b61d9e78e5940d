package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ammOracle/internal/oracle"
)

type fakeCaller struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   map[string]int
	inputs  map[string][]byte
	blocks  []*big.Int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		outputs: make(map[string][]byte),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
		inputs:  make(map[string][]byte),
	}
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	selector := common.Bytes2Hex(msg.Data[:4])
	f.calls[selector]++
	f.inputs[selector] = msg.Data[4:]
	f.blocks = append(f.blocks, block)
	if err, ok := f.errs[selector]; ok {
		return nil, err
	}
	out, ok := f.outputs[selector]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeCaller) set(t *testing.T, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("unknown method %s", method)
	}
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	f.outputs[common.Bytes2Hex(m.ID)] = out
}

func (f *fakeCaller) fail(parsed abi.ABI, method string, err error) {
	f.errs[common.Bytes2Hex(parsed.Methods[method].ID)] = err
}

func (f *fakeCaller) count(parsed abi.ABI, method string) int {
	return f.calls[common.Bytes2Hex(parsed.Methods[method].ID)]
}

var (
	testPool   = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	testToken0 = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testToken1 = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

func TestReaderReadPair(t *testing.T) {
	pairABI, err := V2PairABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, pairABI, "token0", testToken0)
	caller.set(t, pairABI, "token1", testToken1)
	caller.set(t, pairABI, "getReserves", big.NewInt(1324), big.NewInt(1), uint32(1700000000))
	cumulative0, _ := new(big.Int).SetString("9250619149041644050058396", 10)
	caller.set(t, pairABI, "price0CumulativeLast", cumulative0)
	caller.set(t, pairABI, "price1CumulativeLast", big.NewInt(77))
	caller.set(t, pairABI, "totalSupply", big.NewInt(1000))

	reader := NewReader(caller, 0, zap.NewNop())
	pair, err := reader.ReadPair(context.Background(), testPool)
	require.NoError(t, err)

	require.Equal(t, testToken0, pair.Token0)
	require.Equal(t, testToken1, pair.Token1)
	require.Equal(t, "1324", pair.Reserve0.String())
	require.Equal(t, "1", pair.Reserve1.String())
	require.Equal(t, uint32(1700000000), pair.BlockTimestampLast)
	require.Equal(t, cumulative0.String(), pair.Price0CumulativeLast.ToBig().String())
	require.Equal(t, uint64(77), pair.Price1CumulativeLast.Uint64())
	require.Equal(t, "1000", pair.TotalSupply.String())

	_, err = reader.ReadPair(context.Background(), testPool)
	require.NoError(t, err)
	require.Equal(t, 1, caller.count(pairABI, "token0"), "pool tokens are cached")
	require.Equal(t, 2, caller.count(pairABI, "getReserves"))
	for _, block := range caller.blocks {
		require.Nil(t, block)
	}
}

func TestReaderPinnedBlock(t *testing.T) {
	pairABI, err := V2PairABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, pairABI, "token0", testToken0)

	reader := NewReader(caller, 19_000_000, nil)
	_, _ = reader.Tokens(context.Background(), testPool)
	require.NotEmpty(t, caller.blocks)
	require.Equal(t, uint64(19_000_000), caller.blocks[0].Uint64())
}

func TestReaderReadPairRevert(t *testing.T) {
	pairABI, err := V2PairABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, pairABI, "token0", testToken0)
	caller.set(t, pairABI, "token1", testToken1)

	_, err = NewReader(caller, 0, nil).ReadPair(context.Background(), testPool)
	require.Error(t, err)
	require.Contains(t, err.Error(), "call getReserves")
}

func TestReaderSnapshot(t *testing.T) {
	poolABI, err := V3PoolABI()
	require.NoError(t, err)

	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	caller := newFakeCaller()
	caller.set(t, poolABI, "slot0", sqrt, big.NewInt(-15), uint16(1), uint16(10), uint16(10), uint8(0), true)
	caller.set(t, poolABI, "fee", big.NewInt(3000))

	snapshot, err := NewReader(caller, 0, nil).Snapshot(context.Background(), testPool)
	require.NoError(t, err)
	require.Equal(t, sqrt.String(), snapshot.SqrtPriceX96)
	require.Equal(t, int32(-15), snapshot.Tick)
	require.Equal(t, uint32(3000), snapshot.Fee)
}

func TestReaderObserve(t *testing.T) {
	poolABI, err := V3PoolABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, poolABI, "observe",
		[]*big.Int{big.NewInt(-1200), big.NewInt(-3000)},
		[]*big.Int{big.NewInt(0), big.NewInt(0)},
	)

	cumulatives, err := NewReader(caller, 0, nil).Observe(context.Background(), testPool, []uint32{600, 0})
	require.NoError(t, err)
	require.Equal(t, []int64{-1200, -3000}, cumulatives)

	args, err := poolABI.Methods["observe"].Inputs.Unpack(caller.inputs[common.Bytes2Hex(poolABI.Methods["observe"].ID)])
	require.NoError(t, err)
	require.Equal(t, []uint32{600, 0}, args[0])
}

func TestReaderObserveOld(t *testing.T) {
	poolABI, err := V3PoolABI()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.fail(poolABI, "observe", errors.New("execution reverted: OLD"))

	_, err = NewReader(caller, 0, nil).Observe(context.Background(), testPool, []uint32{86400, 0})
	require.ErrorIs(t, err, oracle.ErrInsufficientHistory)

	caller.fail(poolABI, "observe", errors.New("execution reverted: I"))
	_, err = NewReader(caller, 0, nil).Observe(context.Background(), testPool, []uint32{86400, 0})
	require.Error(t, err)
	require.NotErrorIs(t, err, oracle.ErrInsufficientHistory)
}

func TestReaderTokenMeta(t *testing.T) {
	stringABI, err := erc20ABIStringInstance()
	require.NoError(t, err)
	bytes32ABI, err := erc20ABIBytes32Instance()
	require.NoError(t, err)

	caller := newFakeCaller()
	caller.set(t, stringABI, "decimals", uint8(18))
	caller.set(t, stringABI, "name", "Wrapped Ether")
	var symbol [32]byte
	copy(symbol[:], "MKR")
	caller.set(t, bytes32ABI, "symbol", symbol)

	cache := NewTokenMetaCache()
	reader := NewReader(caller, 0, nil)
	meta, err := reader.TokenMeta(context.Background(), testToken1, cache)
	require.NoError(t, err)
	require.Equal(t, uint8(18), meta.Decimals)
	require.Equal(t, "MKR", meta.Symbol)
	require.Equal(t, "Wrapped Ether", meta.Name)

	_, err = reader.TokenMeta(context.Background(), testToken1, cache)
	require.NoError(t, err)
	require.Equal(t, 1, caller.count(stringABI, "decimals"))
}

func TestReaderSatisfiesOracleReaders(t *testing.T) {
	var _ oracle.PairReader = (*Reader)(nil)
	var _ oracle.TickReader = (*Reader)(nil)
}
