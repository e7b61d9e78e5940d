package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ammOracle/internal/fixedpoint"
	"ammOracle/internal/model"
)

// Store backends. StoreMemory is named only so it can be rejected: each CLI
// command is its own process, so a poke would never reach a later fetch.
const (
	StoreMemory   = "memory"
	StoreJournal  = "jsonl"
	StorePostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	Pool           string
	Kind           string
	QuoteIndex     int
	Lookback       time.Duration
	Block          uint64
	Precision      int32
	FeeNumerator   uint64
	FeeDenominator uint64
	FeePips        uint32
	Store          string
	StorePath      string
	PGDSN          string
	Target         string
	ReserveBase    string
	ReserveQuote   string
	MaxRetries     int
	RetryBackoff   time.Duration
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("kind", string(model.PoolKindConstantProduct))
	v.SetDefault("quote-index", 1)
	v.SetDefault("lookback", 30*time.Minute)
	v.SetDefault("precision", fixedpoint.DefaultDisplayPrecision)
	v.SetDefault("fee-numerator", model.DefaultFee.Numerator)
	v.SetDefault("fee-denominator", model.DefaultFee.Denominator)
	v.SetDefault("store", StoreJournal)
	v.SetDefault("store-path", "./data/observations.jsonl")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		Pool:           v.GetString("pool"),
		Kind:           v.GetString("kind"),
		QuoteIndex:     v.GetInt("quote-index"),
		Lookback:       v.GetDuration("lookback"),
		Block:          v.GetUint64("block"),
		Precision:      v.GetInt32("precision"),
		FeeNumerator:   v.GetUint64("fee-numerator"),
		FeeDenominator: v.GetUint64("fee-denominator"),
		FeePips:        v.GetUint32("fee-pips"),
		Store:          strings.ToLower(v.GetString("store")),
		StorePath:      v.GetString("store-path"),
		PGDSN:          v.GetString("pg-dsn"),
		Target:         v.GetString("target"),
		ReserveBase:    v.GetString("reserve-base"),
		ReserveQuote:   v.GetString("reserve-quote"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// PoolAddress parses the configured pool.
func (c Config) PoolAddress() (common.Address, error) {
	if !common.IsHexAddress(c.Pool) {
		return common.Address{}, fmt.Errorf("invalid pool address: %q", c.Pool)
	}
	return common.HexToAddress(c.Pool), nil
}

// Selector parses the configured quote token index.
func (c Config) Selector() (model.QuoteSelector, error) {
	return model.ParseQuoteSelector(c.QuoteIndex)
}

// PoolKind parses the configured pool kind.
func (c Config) PoolKind() (model.PoolKind, error) {
	return model.ParsePoolKind(c.Kind)
}

// LookbackSeconds returns the lookback window in whole seconds.
func (c Config) LookbackSeconds() (uint32, error) {
	if c.Lookback < 0 {
		return 0, fmt.Errorf("lookback must be >= 0, got %s", c.Lookback)
	}
	secs := c.Lookback / time.Second
	if secs > math.MaxUint32 {
		return 0, fmt.Errorf("lookback too large: %s", c.Lookback)
	}
	return uint32(secs), nil
}

// Fee returns the swap fee. A fee tier in pips takes precedence over the
// numerator/denominator pair.
func (c Config) Fee() (model.Fee, error) {
	fee := model.Fee{Numerator: c.FeeNumerator, Denominator: c.FeeDenominator}
	if c.FeePips > 0 {
		if c.FeePips >= 1_000_000 {
			return model.Fee{}, fmt.Errorf("fee-pips must be < 1000000, got %d", c.FeePips)
		}
		fee = model.FeeFromPips(c.FeePips)
	}
	if err := fee.Validate(); err != nil {
		return model.Fee{}, err
	}
	return fee, nil
}

// TargetPrice parses the target price as a decimal quote-per-base value.
func (c Config) TargetPrice() (fixedpoint.Ratio, error) {
	if strings.TrimSpace(c.Target) == "" {
		return fixedpoint.Ratio{}, fmt.Errorf("target is required")
	}
	value, err := decimal.NewFromString(c.Target)
	if err != nil {
		return fixedpoint.Ratio{}, fmt.Errorf("parse target: %w", err)
	}
	return fixedpoint.FromDecimal(value)
}

// ValidateStore checks the store backend and its settings.
func (c Config) ValidateStore() error {
	switch c.Store {
	case StoreMemory:
		return fmt.Errorf("memory store does not outlive one command; use %s or %s", StoreJournal, StorePostgres)
	case StoreJournal:
		if c.StorePath == "" {
			return fmt.Errorf("store-path is required for the jsonl store")
		}
		return nil
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
		return nil
	default:
		return fmt.Errorf("unsupported store: %s", c.Store)
	}
}
