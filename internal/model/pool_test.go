package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestParseQuoteSelector(t *testing.T) {
	for _, idx := range []int{0, 1} {
		sel, err := ParseQuoteSelector(idx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if int(sel) != idx || !sel.Valid() {
			t.Fatalf("selector mismatch: %d", sel)
		}
		if sel.Opposite() == sel {
			t.Fatalf("opposite should differ")
		}
	}
	if _, err := ParseQuoteSelector(2); err == nil {
		t.Fatalf("expected error for index 2")
	}
}

func TestParsePoolKind(t *testing.T) {
	kind, err := ParsePoolKind(" V2 ")
	if err != nil || kind != PoolKindConstantProduct {
		t.Fatalf("unexpected kind %q err %v", kind, err)
	}
	kind, err = ParsePoolKind("concentrated")
	if err != nil || kind != PoolKindConcentrated {
		t.Fatalf("unexpected kind %q err %v", kind, err)
	}
	if _, err := ParsePoolKind("orderbook"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestPairStateOrientation(t *testing.T) {
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pair := PairState{
		Token0:               token0,
		Token1:               token1,
		Reserve0:             big.NewInt(10),
		Reserve1:             big.NewInt(20),
		Price0CumulativeLast: uint256.NewInt(111),
		Price1CumulativeLast: uint256.NewInt(222),
	}

	r := pair.Reserves(QuoteToken1)
	if r.Base.Int64() != 10 || r.Quote.Int64() != 20 || r.BaseToken != token0 || r.QuoteToken != token1 {
		t.Fatalf("quote1 orientation mismatch: %+v", r)
	}
	if pair.CumulativeLast(QuoteToken1).Uint64() != 111 {
		t.Fatalf("quote1 should use price0 cumulative")
	}

	r = pair.Reserves(QuoteToken0)
	if r.Base.Int64() != 20 || r.Quote.Int64() != 10 || r.BaseToken != token1 || r.QuoteToken != token0 {
		t.Fatalf("quote0 orientation mismatch: %+v", r)
	}
	if pair.CumulativeLast(QuoteToken0).Uint64() != 222 {
		t.Fatalf("quote0 should use price1 cumulative")
	}
}

func TestFeeFromPips(t *testing.T) {
	fee := FeeFromPips(3000)
	if fee.Numerator != 997_000 || fee.Denominator != 1_000_000 {
		t.Fatalf("unexpected fee %+v", fee)
	}
	if err := fee.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Fee{Numerator: 2, Denominator: 1}).Validate(); err == nil {
		t.Fatalf("expected error for fee above one")
	}
	if err := (Fee{Numerator: 1}).Validate(); err == nil {
		t.Fatalf("expected error for zero denominator")
	}
}
