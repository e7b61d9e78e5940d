package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "oracle",
		Short:        "AMM price oracle",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	pokeCmd := &cobra.Command{
		Use:   "poke",
		Short: "Record the pair's current accumulator",
		RunE:  runPoke,
	}
	addChainFlags(pokeCmd)
	addStoreFlags(pokeCmd)
	root.AddCommand(pokeCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Average and spot price of a constant-product pair since the last poke",
		RunE:  runFetch,
	}
	addChainFlags(fetchCmd)
	addStoreFlags(fetchCmd)
	fetchCmd.Flags().Bool("lp", false, "also price one LP token")
	root.AddCommand(fetchCmd)

	peekCmd := &cobra.Command{
		Use:   "peek",
		Short: "Average and spot price of a concentrated-liquidity pool",
		RunE:  runPeek,
	}
	addChainFlags(peekCmd)
	peekCmd.Flags().Duration("lookback", 30*time.Minute, "averaging window")
	root.AddCommand(peekCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Average and spot price for any pool kind",
		RunE:  runQuote,
	}
	addChainFlags(quoteCmd)
	addStoreFlags(quoteCmd)
	quoteCmd.Flags().String("kind", "constant-product", "pool kind (constant-product, concentrated)")
	quoteCmd.Flags().Duration("lookback", 30*time.Minute, "averaging window for concentrated pools")
	root.AddCommand(quoteCmd)

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Size the trade that moves a pair to a target price",
		RunE:  runPlan,
	}
	addChainFlags(planCmd)
	planCmd.Flags().String("target", "", "target price, quote per base")
	planCmd.Flags().String("reserve-base", "", "base reserve (skips the RPC read)")
	planCmd.Flags().String("reserve-quote", "", "quote reserve (skips the RPC read)")
	planCmd.Flags().Uint64("fee-numerator", 997, "retained fee fraction numerator")
	planCmd.Flags().Uint64("fee-denominator", 1000, "retained fee fraction denominator")
	planCmd.Flags().Uint32("fee-pips", 0, "fee tier in hundredths of a bip, overrides numerator/denominator")
	root.AddCommand(planCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "EVM RPC URL")
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Int("quote-index", 1, "index of the quote token in the pool (0 or 1)")
	cmd.Flags().Uint64("block", 0, "read at this block, 0 means latest")
	cmd.Flags().Int32("precision", 6, "decimal digits in printed prices")
	cmd.Flags().Int("max-retries", 3, "maximum RPC retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "jsonl", "observation store (jsonl, postgres)")
	cmd.Flags().String("store-path", "./data/observations.jsonl", "jsonl store path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
