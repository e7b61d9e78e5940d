package model

import "ammOracle/internal/fixedpoint"

// PriceQuote is the engine's output: the time-weighted average and the
// instantaneous price of the base token in quote units.
type PriceQuote struct {
	TWAP fixedpoint.Ratio
	Spot fixedpoint.Ratio
}

// PriceQuoteView is a decoded PriceQuote for display.
type PriceQuoteView struct {
	TWAP    string `json:"twap"`
	Spot    string `json:"spot"`
	TWAPRaw string `json:"twap_raw,omitempty"`
	SpotRaw string `json:"spot_raw,omitempty"`
}

// View decodes q at the given decimal precision.
func (q PriceQuote) View(precision int32) PriceQuoteView {
	return PriceQuoteView{
		TWAP:    q.TWAP.DecodeToDecimal(precision).String(),
		Spot:    q.Spot.DecodeToDecimal(precision).String(),
		TWAPRaw: q.TWAP.Raw().ToBig().String(),
		SpotRaw: q.Spot.Raw().ToBig().String(),
	}
}
