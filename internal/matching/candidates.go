package matching

import (
	"context"

	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
	platformstrings "github.com/potchii/data-match-system-sub000/pkg/platform/strings"
)

// CandidateSource is the slice of the person store the index needs: a single
// union query over the normalized name columns.
type CandidateSource interface {
	FindByNormalizedNames(ctx context.Context, lastNames, firstNames []string) ([]domain.PersonRecord, error)
}

// CandidateIndex holds the batch-scoped candidate pool. It casts a wide net
// (records sharing either a last name or a first name with the batch) so rule
// evaluation, not the query, narrows candidates. The pool is an explicit
// owned slice keyed by uid; it is not safe for use across concurrent batches.
type CandidateIndex struct {
	source  CandidateSource
	records []domain.PersonRecord
	byUID   map[string]int
}

func NewCandidateIndex(source CandidateSource) *CandidateIndex {
	return &CandidateIndex{
		source: source,
		byUID:  make(map[string]int),
	}
}

// LoadCandidates resets the pool and fills it with every stored record whose
// normalized last OR first name appears in the batch. Empty name sets
// short-circuit to an empty pool without touching the store.
func (c *CandidateIndex) LoadCandidates(ctx context.Context, batch []mapping.MappedRow) error {
	c.records = nil
	c.byUID = make(map[string]int)
	return c.RefreshCandidates(ctx, batch)
}

// RefreshCandidates re-queries the store for the batch's name sets and merges
// the results into the existing pool, de-duplicated by uid. Records already
// cached win over freshly fetched copies so rows inserted earlier in the same
// run stay visible even when the store query does not yet reflect them.
func (c *CandidateIndex) RefreshCandidates(ctx context.Context, batch []mapping.MappedRow) error {
	lastNames, firstNames := batchNameSets(batch)
	if len(lastNames) == 0 && len(firstNames) == 0 {
		return nil
	}
	fetched, err := c.source.FindByNormalizedNames(ctx, lastNames, firstNames)
	if err != nil {
		return err
	}
	for _, record := range fetched {
		if _, exists := c.byUID[record.UID]; exists {
			continue
		}
		c.byUID[record.UID] = len(c.records)
		c.records = append(c.records, record)
	}
	return nil
}

// AddRecord appends a freshly inserted record so later rows in the same batch
// can match it without a store round-trip.
func (c *CandidateIndex) AddRecord(record domain.PersonRecord) {
	if _, exists := c.byUID[record.UID]; exists {
		return
	}
	c.byUID[record.UID] = len(c.records)
	c.records = append(c.records, record)
}

// Records exposes the pool in stable insertion order.
func (c *CandidateIndex) Records() []domain.PersonRecord {
	return c.records
}

// Len reports the current pool size.
func (c *CandidateIndex) Len() int {
	return len(c.records)
}

// batchNameSets collects the batch's normalized name sets, order-preserving.
func batchNameSets(batch []mapping.MappedRow) (lastNames, firstNames []string) {
	lasts := make([]string, 0, len(batch))
	firsts := make([]string, 0, len(batch))
	for _, row := range batch {
		lasts = append(lasts, row.CoreFields[domain.FieldLastName])
		firsts = append(firsts, row.CoreFields[domain.FieldFirstName])
	}
	return platformstrings.DedupeAndTrimLower(lasts), platformstrings.DedupeAndTrimLower(firsts)
}
