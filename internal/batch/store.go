package batch

import (
	"context"
	"sync"

	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

// Store persists upload batch bookkeeping.
type Store interface {
	Save(ctx context.Context, b UploadBatch) error
	FindByID(ctx context.Context, id string) (UploadBatch, error)
	List(ctx context.Context, limit int) ([]UploadBatch, error)
}

// InMemoryStore backs tests and development runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	batches map[string]UploadBatch
	order   []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{batches: make(map[string]UploadBatch)}
}

func (s *InMemoryStore) Save(_ context.Context, b UploadBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[b.ID]; !exists {
		s.order = append(s.order, b.ID)
	}
	s.batches[b.ID] = b
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (UploadBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.batches[id]; ok {
		return b, nil
	}
	return UploadBatch{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, limit int) ([]UploadBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UploadBatch, 0, len(s.order))
	// Newest first.
	for i := len(s.order) - 1; i >= 0; i-- {
		if b, ok := s.batches[s.order[i]]; ok {
			out = append(out, b)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
