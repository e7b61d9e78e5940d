package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PairState is the read-only state of a constant-product pair. The pair owns
// its accumulators: Price0CumulativeLast integrates reserve1/reserve0 and
// Price1CumulativeLast integrates reserve0/reserve1, both UQ112x112 seconds
// wrapping modulo 2^256.
type PairState struct {
	Token0               common.Address
	Token1               common.Address
	Reserve0             *big.Int
	Reserve1             *big.Int
	BlockTimestampLast   uint32
	Price0CumulativeLast *uint256.Int
	Price1CumulativeLast *uint256.Int
	TotalSupply          *big.Int
}

// Reserves orients the pair reserves for a quote selector.
func (p PairState) Reserves(sel QuoteSelector) Reserves {
	if sel == QuoteToken0 {
		return Reserves{
			Base:       valueOrZero(p.Reserve1),
			Quote:      valueOrZero(p.Reserve0),
			BaseToken:  p.Token1,
			QuoteToken: p.Token0,
		}
	}
	return Reserves{
		Base:       valueOrZero(p.Reserve0),
		Quote:      valueOrZero(p.Reserve1),
		BaseToken:  p.Token0,
		QuoteToken: p.Token1,
	}
}

// CumulativeLast returns the accumulator integrating the base price in quote
// units for sel.
func (p PairState) CumulativeLast(sel QuoteSelector) *uint256.Int {
	src := p.Price0CumulativeLast
	if sel == QuoteToken0 {
		src = p.Price1CumulativeLast
	}
	if src == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(src)
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
