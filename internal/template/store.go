package template

import (
	"context"
	"strings"
	"sync"

	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

// Store persists column mapping templates. Template names are unique,
// case-insensitively.
type Store interface {
	Save(ctx context.Context, tmpl ColumnMappingTemplate) error
	FindByID(ctx context.Context, id string) (ColumnMappingTemplate, error)
	List(ctx context.Context) ([]ColumnMappingTemplate, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryStore backs tests and development runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[string]ColumnMappingTemplate
	order     []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{templates: make(map[string]ColumnMappingTemplate)}
}

func (s *InMemoryStore) Save(_ context.Context, tmpl ColumnMappingTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.templates {
		if id != tmpl.ID && strings.EqualFold(existing.Name, tmpl.Name) {
			return sentinel.ErrConflict
		}
	}
	if _, exists := s.templates[tmpl.ID]; !exists {
		s.order = append(s.order, tmpl.ID)
	}
	s.templates[tmpl.ID] = tmpl
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (ColumnMappingTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tmpl, ok := s.templates[id]; ok {
		return tmpl, nil
	}
	return ColumnMappingTemplate{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]ColumnMappingTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ColumnMappingTemplate, 0, len(s.order))
	for _, id := range s.order {
		if tmpl, ok := s.templates[id]; ok {
			out = append(out, tmpl)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.templates, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
