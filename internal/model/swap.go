package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reserves are constant-product reserves oriented by base and quote.
type Reserves struct {
	Base       *big.Int
	Quote      *big.Int
	BaseToken  common.Address
	QuoteToken common.Address
}

// Fee is the retained fraction of a swap input, Numerator/Denominator.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFee is the 0.3% constant-product fee.
var DefaultFee = Fee{Numerator: 997, Denominator: 1000}

// FeeFromPips converts a fee tier in hundredths of a basis point
// (3000 = 0.3%) into a retained fraction.
func FeeFromPips(pips uint32) Fee {
	return Fee{Numerator: 1_000_000 - uint64(pips), Denominator: 1_000_000}
}

// Validate checks that the fee keeps a positive fraction no larger than one.
func (f Fee) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("fee denominator must be > 0")
	}
	if f.Numerator == 0 || f.Numerator > f.Denominator {
		return fmt.Errorf("fee numerator must be in (0, %d], got %d", f.Denominator, f.Numerator)
	}
	return nil
}

// Side names which reserve a swap input is paid into.
type Side string

const (
	SideBase  Side = "base"
	SideQuote Side = "quote"
)

// SwapPlan is the exact input that moves a pair to a target price.
type SwapPlan struct {
	InputAmount *big.Int       `json:"input_amount"`
	InputSide   Side           `json:"input_side"`
	InputToken  common.Address `json:"input_token"`
}
