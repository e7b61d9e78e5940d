package model

import (
	"fmt"
	"strings"
)

// PoolKind declares which adapter prices a pool.
type PoolKind string

const (
	PoolKindConstantProduct PoolKind = "constant-product"
	PoolKindConcentrated    PoolKind = "concentrated"
)

// ParsePoolKind normalizes a configured pool kind.
func ParsePoolKind(input string) (PoolKind, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "constant-product", "cp", "v2":
		return PoolKindConstantProduct, nil
	case "concentrated", "cl", "v3":
		return PoolKindConcentrated, nil
	default:
		return "", fmt.Errorf("unsupported pool kind: %s", input)
	}
}

// QuoteSelector names the pool token prices are expressed in. The other
// token is the base. It matches the pool's token index.
type QuoteSelector uint8

const (
	QuoteToken0 QuoteSelector = 0
	QuoteToken1 QuoteSelector = 1
)

// ParseQuoteSelector converts a token index into a selector.
func ParseQuoteSelector(index int) (QuoteSelector, error) {
	switch index {
	case 0:
		return QuoteToken0, nil
	case 1:
		return QuoteToken1, nil
	default:
		return 0, fmt.Errorf("quote index must be 0 or 1, got %d", index)
	}
}

// Valid reports whether s names one of the two pool tokens.
func (s QuoteSelector) Valid() bool {
	return s == QuoteToken0 || s == QuoteToken1
}

// Opposite returns the selector with base and quote swapped.
func (s QuoteSelector) Opposite() QuoteSelector {
	if s == QuoteToken0 {
		return QuoteToken1
	}
	return QuoteToken0
}

func (s QuoteSelector) String() string {
	return fmt.Sprintf("quote%d", uint8(s))
}
