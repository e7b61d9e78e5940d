package storage

import (
	"context"
	"sync"

	"ammOracle/internal/model"
)

// MemoryStore keeps observations in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[model.ObservationKey]model.Observation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[model.ObservationKey]model.Observation)}
}

func (s *MemoryStore) Load(_ context.Context, key model.ObservationKey) (model.Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obs, ok := s.data[key]
	if !ok {
		return model.Observation{}, false, nil
	}
	return copyObservation(obs), true, nil
}

func (s *MemoryStore) Save(_ context.Context, obs model.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.data[obs.Key()]; ok && obs.Timestamp <= prev.Timestamp {
		return nil
	}
	s.data[obs.Key()] = copyObservation(obs)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
