package storage

import "github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"

var (
	// ErrNotFound keeps storage-specific 404s consistent across the in-memory
	// and PostgreSQL implementations.
	ErrNotFound = sentinel.ErrNotFound
	// ErrDuplicateUID signals an insert whose uid already exists; uids are
	// assigned once and never reused.
	ErrDuplicateUID = sentinel.ErrConflict
)
