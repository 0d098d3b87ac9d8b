// Package progress exposes live per-batch row counters so operators can watch
// a long import without waiting for the final batch record. Counters are
// best-effort: a lost update shifts a number on a dashboard, never a match
// verdict.
package progress

import (
	"context"
	"sync"
)

// Field names for the progress counters.
const (
	FieldProcessed  = "processed"
	FieldSkipped    = "skipped"
	FieldNewRecords = "new_records"
	FieldMatched    = "matched"
	FieldFailed     = "failed"
)

// Tracker records row-level progress for a running batch.
type Tracker interface {
	Incr(ctx context.Context, batchID, field string) error
	Snapshot(ctx context.Context, batchID string) (map[string]int64, error)
	Clear(ctx context.Context, batchID string) error
}

// InMemoryTracker backs tests and single-node development runs.
type InMemoryTracker struct {
	mu       sync.RWMutex
	counters map[string]map[string]int64
}

func NewInMemoryTracker() *InMemoryTracker {
	return &InMemoryTracker{counters: make(map[string]map[string]int64)}
}

func (t *InMemoryTracker) Incr(_ context.Context, batchID, field string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counters[batchID] == nil {
		t.counters[batchID] = make(map[string]int64)
	}
	t.counters[batchID][field]++
	return nil
}

func (t *InMemoryTracker) Snapshot(_ context.Context, batchID string) (map[string]int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int64, len(t.counters[batchID]))
	for field, count := range t.counters[batchID] {
		out[field] = count
	}
	return out, nil
}

func (t *InMemoryTracker) Clear(_ context.Context, batchID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counters, batchID)
	return nil
}
