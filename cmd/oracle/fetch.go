package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammOracle/internal/model"
	"ammOracle/internal/oracle"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	withLP, _ := cmd.Flags().GetBool("lp")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, closeFn, err := connect(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer closeFn()

	o := oracle.NewAccumulatorOracle(rt.reader, rt.store, rt.clock, logger)
	sample, err := o.FetchSample(ctx, rt.pool, rt.sel, withLP)
	if err != nil {
		return err
	}

	base, quoteToken := rt.tokenPair(ctx)
	out := newQuoteOutput(rt, sample.Price, base, quoteToken)
	out.Timestamp = sample.Timestamp
	if sample.LPTokenPrice != nil {
		view := sample.LPTokenPrice.View(cfg.Precision)
		out.LPTokenPrice = &view
	}

	logger.Info("fetch complete",
		zap.String("pool", rt.pool.Hex()),
		zap.Stringer("selector", rt.sel),
		zap.String("twap", out.Price.TWAP),
		zap.String("spot", out.Price.Spot),
	)
	return writeJSON(cmd.OutOrStdout(), out)
}

func runPeek(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	lookback, err := cfg.LookbackSeconds()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, closeFn, err := connect(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer closeFn()

	o := oracle.NewTickOracle(rt.reader, lookback, logger)
	quote, err := o.Peek(ctx, rt.pool, rt.sel, lookback)
	if err != nil {
		return err
	}

	base, quoteToken := rt.tokenPair(ctx)
	out := newQuoteOutput(rt, quote, base, quoteToken)

	logger.Info("peek complete",
		zap.String("pool", rt.pool.Hex()),
		zap.Stringer("selector", rt.sel),
		zap.Uint32("lookback", lookback),
		zap.String("twap", out.Price.TWAP),
		zap.String("spot", out.Price.Spot),
	)
	return writeJSON(cmd.OutOrStdout(), out)
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kind, err := cfg.PoolKind()
	if err != nil {
		return err
	}
	lookback, err := cfg.LookbackSeconds()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, closeFn, err := connect(ctx, cfg, logger, kind == model.PoolKindConstantProduct)
	if err != nil {
		return err
	}
	defer closeFn()

	deps := oracle.Deps{
		Pairs:    rt.reader,
		Ticks:    rt.reader,
		Clock:    rt.clock,
		Lookback: lookback,
		Logger:   logger,
	}
	if rt.store != nil {
		deps.Store = rt.store
	}
	quoter, err := oracle.NewQuoter(kind, deps)
	if err != nil {
		return err
	}

	quote, err := quoter.Quote(ctx, rt.pool, rt.sel)
	if err != nil {
		return err
	}

	base, quoteToken := rt.tokenPair(ctx)
	out := newQuoteOutput(rt, quote, base, quoteToken)

	logger.Info("quote complete",
		zap.String("pool", rt.pool.Hex()),
		zap.String("kind", string(kind)),
		zap.String("twap", out.Price.TWAP),
		zap.String("spot", out.Price.Spot),
	)
	return writeJSON(cmd.OutOrStdout(), out)
}
