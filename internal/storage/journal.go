package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"ammOracle/internal/model"
)

// JournalStore appends observations to a JSONL file and serves the newest
// observation per key. Several processes may share one journal: every read
// and append happens under an flock on a sidecar lock file, and each store
// catches up on lines other writers appended before it compares or answers.
type JournalStore struct {
	path string
	lock *flock.Flock

	mu     sync.Mutex
	offset int64
	line   int
	latest map[model.ObservationKey]model.Observation
}

// OpenJournalStore replays path, if it exists, and returns a store that
// appends to it.
func OpenJournalStore(path string) (*JournalStore, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	s := &JournalStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		latest: make(map[model.ObservationKey]model.Observation),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock journal: %w", err)
	}
	defer s.lock.Unlock()
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// refresh reads lines appended since the last refresh. Callers hold s.mu and
// the file lock.
func (s *JournalStore) refresh() error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat journal: %w", err)
	}
	if info.Size() < s.offset {
		// truncated or replaced underneath us
		s.offset, s.line = 0, 0
		s.latest = make(map[model.ObservationKey]model.Observation)
	}
	if info.Size() == s.offset {
		return nil
	}
	if _, err := file.Seek(s.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek journal: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		raw, err := reader.ReadBytes('\n')
		if len(raw) > 0 {
			s.offset += int64(len(raw))
			s.line++
			if err := s.apply(bytes.TrimSpace(raw)); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
	}
}

func (s *JournalStore) apply(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	var obs model.Observation
	if err := json.Unmarshal(raw, &obs); err != nil {
		return fmt.Errorf("parse journal line %d: %w", s.line, err)
	}
	s.keep(obs)
	return nil
}

// keep records obs unless the key already holds an observation at the same
// or a later time.
func (s *JournalStore) keep(obs model.Observation) {
	if prev, ok := s.latest[obs.Key()]; ok && obs.Timestamp <= prev.Timestamp {
		return
	}
	s.latest[obs.Key()] = copyObservation(obs)
}

func (s *JournalStore) Load(_ context.Context, key model.ObservationKey) (model.Observation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		return model.Observation{}, false, fmt.Errorf("lock journal: %w", err)
	}
	defer s.lock.Unlock()
	if err := s.refresh(); err != nil {
		return model.Observation{}, false, err
	}

	obs, ok := s.latest[key]
	if !ok {
		return model.Observation{}, false, nil
	}
	return copyObservation(obs), true, nil
}

// Save appends obs as one JSON line. An observation no newer than the one
// already journaled for its key, by this or another writer, is dropped.
func (s *JournalStore) Save(_ context.Context, obs model.Observation) error {
	line, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	defer s.lock.Unlock()

	if err := s.refresh(); err != nil {
		return err
	}
	if prev, ok := s.latest[obs.Key()]; ok && obs.Timestamp <= prev.Timestamp {
		return nil
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}

	s.offset += int64(len(line)) + 1
	s.line++
	s.keep(obs)
	return nil
}

func (s *JournalStore) Close() error {
	return s.lock.Close()
}
