package storage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu   sync.Mutex
	recs map[[2]string]PushRecord
}

// NewMemory returns a process-local store.
func NewMemory() Store {
	return &memoryStore{recs: make(map[[2]string]PushRecord)}
}

func (s *memoryStore) HasPushed(_ context.Context, reportType, day string) (bool, error) {
	if err := validKey(reportType, day); err != nil {
		return false, err
	}
	s.mu.Lock()
	_, ok := s.recs[[2]string{reportType, day}]
	s.mu.Unlock()
	return ok, nil
}

func (s *memoryStore) RecordPush(_ context.Context, rec PushRecord) (bool, error) {
	if err := validKey(rec.ReportType, rec.Day); err != nil {
		return false, err
	}
	k := [2]string{rec.ReportType, rec.Day}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[k]; ok {
		return false, nil
	}
	s.recs[k] = rec
	return true, nil
}

func (s *memoryStore) Prune(_ context.Context, before string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.recs {
		if k[1] < before {
			delete(s.recs, k)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Close() error { return nil }
