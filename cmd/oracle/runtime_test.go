package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ammOracle/internal/config"
	"ammOracle/internal/model"
)

func TestAdjustForDecimals(t *testing.T) {
	view := model.PriceQuoteView{TWAP: "0.000000001324", Spot: "0.0000000016"}
	adjusted := adjustForDecimals(view, 18, 6)
	require.Equal(t, "1324", adjusted.TWAP)
	require.Equal(t, "1600", adjusted.Spot)
	require.Empty(t, adjusted.TWAPRaw)
}

func TestPlanReservesFromFlags(t *testing.T) {
	cfg := config.Config{ReserveBase: "10000", ReserveQuote: "20000"}
	reserves, err := planReserves(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "10000", reserves.Base.String())
	require.Equal(t, "20000", reserves.Quote.String())

	_, err = planReserves(context.Background(), config.Config{ReserveBase: "10000"}, zap.NewNop())
	require.Error(t, err)
}

func TestOpenStoreRejectsMemory(t *testing.T) {
	_, err := openStore(context.Background(), config.Config{Store: config.StoreMemory})
	require.Error(t, err)

	_, err = openStore(context.Background(), config.Config{Store: "redis"})
	require.Error(t, err)
}

func TestOpenStoreJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.jsonl")
	store, err := openStore(context.Background(), config.Config{Store: config.StoreJournal, StorePath: path})
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestPinBlock(t *testing.T) {
	calls := 0
	head := func(context.Context) (uint64, error) {
		calls++
		return 19000000, nil
	}

	block, err := pinBlock(context.Background(), 123, head)
	require.NoError(t, err)
	require.Equal(t, uint64(123), block)
	require.Zero(t, calls)

	block, err = pinBlock(context.Background(), 0, head)
	require.NoError(t, err)
	require.Equal(t, uint64(19000000), block)
	require.Equal(t, 1, calls)

	_, err = pinBlock(context.Background(), 0, func(context.Context) (uint64, error) {
		return 0, errors.New("dial tcp: connection refused")
	})
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = newLogger("loud")
	require.Error(t, err)
}
