package storage

import (
	"context"

	"ammOracle/internal/model"
)

// Store persists the latest observation per (pool, orientation). Saves only
// append; Load returns the observation with the greatest timestamp, whatever
// order the saves arrived in.
type Store interface {
	Load(ctx context.Context, key model.ObservationKey) (model.Observation, bool, error)
	Save(ctx context.Context, obs model.Observation) error
	Close() error
}

func copyObservation(obs model.Observation) model.Observation {
	out := obs
	if obs.CumulativePrice != nil {
		out.CumulativePrice = obs.CumulativePrice.Clone()
	}
	return out
}
