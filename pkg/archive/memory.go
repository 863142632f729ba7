package archive

import (
	"context"
	"errors"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]Record
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[string]Record)
	s.order = nil
	return nil
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if _, ok := s.records[rec.Key]; !ok {
		s.order = append(s.order, rec.Key)
	}
	rec.Parameters = slices.Clone(rec.Parameters)
	rec.Objectives = slices.Clone(rec.Objectives)
	s.records[rec.Key] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
