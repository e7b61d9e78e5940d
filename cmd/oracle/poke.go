package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammOracle/internal/oracle"
)

func runPoke(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, closeFn, err := connect(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer closeFn()

	logger.Info("poke start",
		zap.String("pool", rt.pool.Hex()),
		zap.Stringer("selector", rt.sel),
		zap.String("store", cfg.Store),
		zap.Uint64("block", cfg.Block),
	)

	o := oracle.NewAccumulatorOracle(rt.reader, rt.store, rt.clock, logger)
	if err := o.Poke(ctx, rt.pool, rt.sel); err != nil {
		return err
	}

	logger.Info("poke complete", zap.String("pool", rt.pool.Hex()), zap.Stringer("selector", rt.sel))
	return nil
}
