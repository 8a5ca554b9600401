package record

import (
	"context"
	"fmt"
	"sync"

	"script2vid/internal/app/model"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*model.VideoRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*model.VideoRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec *model.VideoRecord) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, rec *model.VideoRecord) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, rec.ID)
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}
