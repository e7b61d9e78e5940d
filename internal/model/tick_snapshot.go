package model

// TickSnapshot is the current state of a concentrated-liquidity pool.
type TickSnapshot struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
	Fee          uint32 `json:"fee"`
}
