package oracle

import "errors"

var (
	// ErrNoObservation indicates a TWAP was requested before any poke for the key.
	ErrNoObservation = errors.New("oracle: no observation recorded")
	// ErrStalePool indicates the pool cannot be priced right now (e.g. empty reserves).
	ErrStalePool = errors.New("oracle: pool reports no valid price")
	// ErrInsufficientHistory indicates the pool cannot serve the requested lookback window.
	ErrInsufficientHistory = errors.New("oracle: insufficient observation history")
	// ErrUnknownPoolKind indicates a pool kind without an adapter.
	ErrUnknownPoolKind = errors.New("oracle: unknown pool kind")
	// ErrTickOutOfRange indicates a tick outside [MinTick, MaxTick].
	ErrTickOutOfRange = errors.New("oracle: tick out of range")
)
