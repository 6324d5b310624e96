package storage

import (
	"context"
	"sync"
	"time"

	"Story-Atlas/server/internal/models"
)

// MemoryStore keeps records in process memory, ordered by first insertion
type MemoryStore struct {
	mu    sync.RWMutex
	now   func() time.Time
	byID  map[string]models.Story
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:  time.Now,
		byID: make(map[string]models.Story),
	}
}

func (s *MemoryStore) Put(ctx context.Context, story *models.Story) error {
	_ = ctx

	rec := cloneStory(*story)
	rec.CachedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.ID]; !ok {
		s.order = append(s.order, rec.ID)
	}
	s.byID[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Story, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneStory(rec)
	return &out, nil
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]models.Story, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Story, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneStory(s.byID[id]))
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return nil
	}
	delete(s.byID, id)
	for i := range s.order {
		if s.order[i] == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemoryStore) Close() error { return nil }

// cloneStory copies the pointer and slice fields so callers cannot alias cached data
func cloneStory(s models.Story) models.Story {
	if s.Lat != nil {
		lat := *s.Lat
		s.Lat = &lat
	}
	if s.Lon != nil {
		lon := *s.Lon
		s.Lon = &lon
	}
	if s.PhotoData != nil {
		s.PhotoData = append([]byte(nil), s.PhotoData...)
	}
	return s
}
