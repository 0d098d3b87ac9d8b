package storage

import (
	"context"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

// Stores are interface-driven to keep the matching engine testable and to
// allow swapping in-memory and PostgreSQL persistence without rewiring
// business code. The engine treats existing records as read-only; only
// inserts flow through here.
type PersonStore interface {
	// Insert persists a new registry record. The record's normalized name
	// fields must already be computed. Returns ErrDuplicateUID when the uid
	// is taken.
	Insert(ctx context.Context, record domain.PersonRecord) error
	// FindByUID fetches one record, or ErrNotFound.
	FindByUID(ctx context.Context, uid string) (domain.PersonRecord, error)
	// ExistsUID reports whether a uid is already assigned.
	ExistsUID(ctx context.Context, uid string) (bool, error)
	// FindByNormalizedNames returns every record whose normalized last name
	// is in lastNames OR whose normalized first name is in firstNames, in
	// stable store order. A union, not an intersection.
	FindByNormalizedNames(ctx context.Context, lastNames, firstNames []string) ([]domain.PersonRecord, error)
	// Search filters by a normalized name fragment for the operator UI.
	Search(ctx context.Context, nameFragment string, limit int) ([]domain.PersonRecord, error)
}

type MatchResultStore interface {
	Insert(ctx context.Context, result domain.MatchResult) error
	ListByBatch(ctx context.Context, batchID string) ([]domain.MatchResult, error)
	FindByID(ctx context.Context, id string) (domain.MatchResult, error)
}
