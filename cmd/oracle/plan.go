package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammOracle/internal/config"
	"ammOracle/internal/model"
	"ammOracle/internal/solver"
)

type planOutput struct {
	Plan         model.SwapPlan `json:"plan"`
	Fee          model.Fee      `json:"fee"`
	Target       string         `json:"target"`
	PriceBefore  string         `json:"price_before"`
	PriceAfter   string         `json:"price_after"`
	ReserveBase  string         `json:"reserve_base_after"`
	ReserveQuote string         `json:"reserve_quote_after"`
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	target, err := cfg.TargetPrice()
	if err != nil {
		return err
	}
	fee, err := cfg.Fee()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reserves, err := planReserves(ctx, cfg, logger)
	if err != nil {
		return err
	}

	plan, err := solver.PlanSwapToTarget(reserves, fee, target)
	if err != nil {
		return err
	}

	before, err := solver.SpotPrice(reserves)
	if err != nil {
		return err
	}
	after := solver.Apply(reserves, plan, fee)
	afterPrice, err := solver.SpotPrice(after)
	if err != nil {
		return err
	}

	logger.Info("plan complete",
		zap.String("input_amount", plan.InputAmount.String()),
		zap.String("input_side", string(plan.InputSide)),
		zap.String("target", target.String()),
	)

	return writeJSON(cmd.OutOrStdout(), planOutput{
		Plan:         plan,
		Fee:          fee,
		Target:       target.DecodeToDecimal(cfg.Precision).String(),
		PriceBefore:  before.DecodeToDecimal(cfg.Precision).String(),
		PriceAfter:   afterPrice.DecodeToDecimal(cfg.Precision).String(),
		ReserveBase:  after.Base.String(),
		ReserveQuote: after.Quote.String(),
	})
}

// planReserves takes reserves from flags when both are set, otherwise from
// the pair on chain.
func planReserves(ctx context.Context, cfg config.Config, logger *zap.Logger) (model.Reserves, error) {
	if cfg.ReserveBase != "" || cfg.ReserveQuote != "" {
		base, ok := new(big.Int).SetString(cfg.ReserveBase, 10)
		if !ok {
			return model.Reserves{}, fmt.Errorf("invalid reserve-base: %q", cfg.ReserveBase)
		}
		quote, ok := new(big.Int).SetString(cfg.ReserveQuote, 10)
		if !ok {
			return model.Reserves{}, fmt.Errorf("invalid reserve-quote: %q", cfg.ReserveQuote)
		}
		return model.Reserves{Base: base, Quote: quote}, nil
	}

	rt, closeFn, err := connect(ctx, cfg, logger, false)
	if err != nil {
		return model.Reserves{}, err
	}
	defer closeFn()

	pair, err := rt.reader.ReadPair(ctx, rt.pool)
	if err != nil {
		return model.Reserves{}, err
	}
	return pair.Reserves(rt.sel), nil
}
