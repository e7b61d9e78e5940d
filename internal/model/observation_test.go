package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestObservationJSONRoundTrip(t *testing.T) {
	maxWord := new(uint256.Int).SetAllOne()
	original := Observation{
		Pool:            common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Selector:        QuoteToken1,
		CumulativePrice: maxWord,
		Timestamp:       1700000000,
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Observation
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestObservationJSONCumulativeIsString(t *testing.T) {
	obs := Observation{
		Pool:            common.HexToAddress("0x2222222222222222222222222222222222222222"),
		CumulativePrice: uint256.NewInt(42),
	}
	data, err := json.Marshal(obs)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["cumulative_price"] != "42" {
		t.Fatalf("cumulative_price should be a decimal string, got %v", decoded["cumulative_price"])
	}
}

func TestObservationJSONRejectsBadSelector(t *testing.T) {
	payload := []byte(`{"pool":"0x2222222222222222222222222222222222222222","selector":2,"cumulative_price":"1","timestamp":1}`)
	var decoded Observation
	if err := json.Unmarshal(payload, &decoded); err == nil {
		t.Fatalf("expected error for selector 2")
	}
}

func TestObservationKeyIgnoresAddressCase(t *testing.T) {
	a := ObservationKey{Pool: common.HexToAddress("0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD"), Selector: QuoteToken0}
	b := ObservationKey{Pool: common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"), Selector: QuoteToken0}
	if a.String() != b.String() {
		t.Fatalf("key mismatch: %s != %s", a, b)
	}
	if a.String() == (ObservationKey{Pool: a.Pool, Selector: QuoteToken1}).String() {
		t.Fatalf("orientation must be part of the key")
	}
}
