package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammOracle/internal/chain"
	"ammOracle/internal/config"
	"ammOracle/internal/dex"
	"ammOracle/internal/model"
	"ammOracle/internal/storage"
	"ammOracle/internal/storage/postgres"
)

// runtime is what a command needs once config is loaded.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	client *chain.Client
	reader *dex.Reader
	clock  *chain.Clock
	store  storage.Store
	pool   common.Address
	sel    model.QuoteSelector
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// connect dials the RPC and, when withStore is set, opens the observation
// store. The returned close func releases both.
func connect(ctx context.Context, cfg config.Config, logger *zap.Logger, withStore bool) (*runtime, func(), error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	pool, err := cfg.PoolAddress()
	if err != nil {
		return nil, nil, err
	}
	sel, err := cfg.Selector()
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryBackoff,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	block, err := pinBlock(ctx, cfg.Block, client.LatestBlockNumber)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("read head block: %w", err)
	}
	logger.Debug("pinned block", zap.Uint64("block", block))

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		client: client,
		reader: dex.NewReader(client, block, logger),
		clock:  chain.NewClock(client, block),
		pool:   pool,
		sel:    sel,
	}

	if withStore {
		store, err := openStore(ctx, cfg)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		rt.store = store
	}

	closeFn := func() {
		if rt.store != nil {
			if err := rt.store.Close(); err != nil {
				logger.Warn("close store", zap.Error(err))
			}
		}
		client.Close()
	}
	return rt, closeFn, nil
}

// pinBlock returns the configured block, or the head block read once, so the
// clock and every contract read of a command see the same chain state.
func pinBlock(ctx context.Context, configured uint64, head func(context.Context) (uint64, error)) (uint64, error) {
	if configured > 0 {
		return configured, nil
	}
	block, err := head(ctx)
	if err != nil {
		return 0, err
	}
	if block == 0 {
		return 0, fmt.Errorf("chain head is genesis")
	}
	return block, nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return storage.OpenJournalStore(cfg.StorePath)
	}
}

// tokenPair resolves base and quote token metadata. Failures only cost the
// decimal-adjusted price, so they are logged and skipped.
func (rt *runtime) tokenPair(ctx context.Context) (base, quote *model.TokenMeta) {
	tokens, err := rt.reader.Tokens(ctx, rt.pool)
	if err != nil {
		rt.logger.Warn("pool tokens", zap.String("pool", rt.pool.Hex()), zap.Error(err))
		return nil, nil
	}
	baseAddr, quoteAddr := tokens.Token0, tokens.Token1
	if rt.sel == model.QuoteToken0 {
		baseAddr, quoteAddr = tokens.Token1, tokens.Token0
	}

	cache := dex.NewTokenMetaCache()
	baseMeta, err := rt.reader.TokenMeta(ctx, baseAddr, cache)
	if err != nil {
		rt.logger.Warn("token metadata", zap.String("token", baseAddr.Hex()), zap.Error(err))
		return nil, nil
	}
	quoteMeta, err := rt.reader.TokenMeta(ctx, quoteAddr, cache)
	if err != nil {
		rt.logger.Warn("token metadata", zap.String("token", quoteAddr.Hex()), zap.Error(err))
		return nil, nil
	}
	return &baseMeta, &quoteMeta
}

// quoteOutput is one printed result line.
type quoteOutput struct {
	Pool         string                `json:"pool"`
	Selector     uint8                 `json:"quote_index"`
	Timestamp    uint64                `json:"timestamp,omitempty"`
	Base         *model.TokenMeta      `json:"base,omitempty"`
	Quote        *model.TokenMeta      `json:"quote,omitempty"`
	Price        model.PriceQuoteView  `json:"price"`
	Adjusted     *model.PriceQuoteView `json:"adjusted,omitempty"`
	LPTokenPrice *model.PriceQuoteView `json:"lp_token_price,omitempty"`
}

func newQuoteOutput(rt *runtime, q model.PriceQuote, base, quote *model.TokenMeta) quoteOutput {
	out := quoteOutput{
		Pool:     rt.pool.Hex(),
		Selector: uint8(rt.sel),
		Base:     base,
		Quote:    quote,
		Price:    q.View(rt.cfg.Precision),
	}
	if base != nil && quote != nil {
		adjusted := adjustForDecimals(out.Price, base.Decimals, quote.Decimals)
		out.Adjusted = &adjusted
	}
	return out
}

// adjustForDecimals rescales raw-unit prices into whole-token prices.
func adjustForDecimals(view model.PriceQuoteView, baseDecimals, quoteDecimals uint8) model.PriceQuoteView {
	shift := int32(baseDecimals) - int32(quoteDecimals)
	rescale := func(value string) string {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return value
		}
		return d.Shift(shift).String()
	}
	return model.PriceQuoteView{
		TWAP: rescale(view.TWAP),
		Spot: rescale(view.Spot),
	}
}

func writeJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(value)
}
