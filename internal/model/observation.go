package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ObservationKey identifies one accumulator record. Orientation is part of
// the identity.
type ObservationKey struct {
	Pool     common.Address
	Selector QuoteSelector
}

func (k ObservationKey) String() string {
	return fmt.Sprintf("%s:%d", strings.ToLower(k.Pool.Hex()), uint8(k.Selector))
}

// Observation is one sample of a pool's running price integral.
type Observation struct {
	Pool            common.Address
	Selector        QuoteSelector
	CumulativePrice *uint256.Int
	Timestamp       uint64
}

// Key returns the record key of o.
func (o Observation) Key() ObservationKey {
	return ObservationKey{Pool: o.Pool, Selector: o.Selector}
}

type observationJSON struct {
	Pool            string `json:"pool"`
	Selector        uint8  `json:"selector"`
	CumulativePrice string `json:"cumulative_price"`
	Timestamp       uint64 `json:"timestamp"`
}

// MarshalJSON encodes the accumulator as a decimal string.
func (o Observation) MarshalJSON() ([]byte, error) {
	cumulative := "0"
	if o.CumulativePrice != nil {
		cumulative = o.CumulativePrice.ToBig().String()
	}
	return json.Marshal(observationJSON{
		Pool:            o.Pool.Hex(),
		Selector:        uint8(o.Selector),
		CumulativePrice: cumulative,
		Timestamp:       o.Timestamp,
	})
}

// UnmarshalJSON decodes an Observation from JSON.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var raw observationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !common.IsHexAddress(raw.Pool) {
		return fmt.Errorf("invalid pool address: %s", raw.Pool)
	}
	sel, err := ParseQuoteSelector(int(raw.Selector))
	if err != nil {
		return err
	}
	cumulative, err := ParseWord(raw.CumulativePrice)
	if err != nil {
		return fmt.Errorf("cumulative price: %w", err)
	}
	*o = Observation{
		Pool:            common.HexToAddress(raw.Pool),
		Selector:        sel,
		CumulativePrice: cumulative,
		Timestamp:       raw.Timestamp,
	}
	return nil
}
