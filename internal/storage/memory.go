package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

// In-memory stores keep development and tests lightweight. They intentionally
// favor clarity over performance and preserve insertion order, which the
// candidate index relies on for deterministic pool iteration.
type InMemoryPersonStore struct {
	mu      sync.RWMutex
	ordered []domain.PersonRecord
	byUID   map[string]int
}

func NewInMemoryPersonStore() *InMemoryPersonStore {
	return &InMemoryPersonStore{byUID: make(map[string]int)}
}

func (s *InMemoryPersonStore) Insert(_ context.Context, record domain.PersonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUID[record.UID]; exists {
		return ErrDuplicateUID
	}
	s.byUID[record.UID] = len(s.ordered)
	s.ordered = append(s.ordered, record)
	return nil
}

func (s *InMemoryPersonStore) FindByUID(_ context.Context, uid string) (domain.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.byUID[uid]; ok {
		return s.ordered[idx], nil
	}
	return domain.PersonRecord{}, ErrNotFound
}

func (s *InMemoryPersonStore) ExistsUID(_ context.Context, uid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUID[uid]
	return ok, nil
}

func (s *InMemoryPersonStore) FindByNormalizedNames(_ context.Context, lastNames, firstNames []string) ([]domain.PersonRecord, error) {
	lastSet := toSet(lastNames)
	firstSet := toSet(firstNames)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PersonRecord
	for _, record := range s.ordered {
		if lastSet[record.LastNameNormalized] || firstSet[record.FirstNameNormalized] {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *InMemoryPersonStore) Search(_ context.Context, nameFragment string, limit int) ([]domain.PersonRecord, error) {
	fragment := domain.NormalizeName(nameFragment)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PersonRecord
	for _, record := range s.ordered {
		if fragment == "" ||
			strings.Contains(record.LastNameNormalized, fragment) ||
			strings.Contains(record.FirstNameNormalized, fragment) {
			out = append(out, record)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Count reports the number of stored records; used by tests and health info.
func (s *InMemoryPersonStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}

type InMemoryMatchResultStore struct {
	mu      sync.RWMutex
	ordered []domain.MatchResult
	byID    map[string]int
}

func NewInMemoryMatchResultStore() *InMemoryMatchResultStore {
	return &InMemoryMatchResultStore{byID: make(map[string]int)}
}

func (s *InMemoryMatchResultStore) Insert(_ context.Context, result domain.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[result.ID] = len(s.ordered)
	s.ordered = append(s.ordered, result)
	return nil
}

func (s *InMemoryMatchResultStore) ListByBatch(_ context.Context, batchID string) ([]domain.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.MatchResult
	for _, result := range s.ordered {
		if result.BatchID == batchID {
			out = append(out, result)
		}
	}
	return out, nil
}

func (s *InMemoryMatchResultStore) FindByID(_ context.Context, id string) (domain.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.byID[id]; ok {
		return s.ordered[idx], nil
	}
	return domain.MatchResult{}, ErrNotFound
}
