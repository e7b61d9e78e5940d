package model

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ParseWord parses a base-10 unsigned 256-bit value.
func ParseWord(value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid uint256: %s", value)
	}
	word, overflow := uint256.FromBig(parsed)
	if overflow {
		return nil, fmt.Errorf("uint256 overflow: %s", value)
	}
	return word, nil
}
