package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

type PersonStoreSuite struct {
	suite.Suite
	store *InMemoryPersonStore
	ctx   context.Context
}

func (s *PersonStoreSuite) SetupTest() {
	s.store = NewInMemoryPersonStore()
	s.ctx = context.Background()
}

func TestPersonStoreSuite(t *testing.T) {
	suite.Run(t, new(PersonStoreSuite))
}

func (s *PersonStoreSuite) newPerson(uid, last, first string) domain.PersonRecord {
	record := domain.PersonRecord{UID: uid, LastName: last, FirstName: first}
	record.Normalize()
	return record
}

func (s *PersonStoreSuite) TestInsertAndLookups() {
	s.Run("inserts and finds by uid", func() {
		record := s.newPerson("UID-1", "Cruz", "Ana")
		s.Require().NoError(s.store.Insert(s.ctx, record))

		found, err := s.store.FindByUID(s.ctx, "UID-1")
		s.Require().NoError(err)
		s.Equal("Cruz", found.LastName)

		exists, err := s.store.ExistsUID(s.ctx, "UID-1")
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("returns ErrNotFound for unknown uid", func() {
		_, err := s.store.FindByUID(s.ctx, "UID-MISSING")
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("rejects duplicate uid", func() {
		record := s.newPerson("UID-DUP", "Cruz", "Ana")
		s.Require().NoError(s.store.Insert(s.ctx, record))
		s.Require().ErrorIs(s.store.Insert(s.ctx, record), ErrDuplicateUID)
	})
}

func (s *PersonStoreSuite) TestFindByNormalizedNamesIsUnion() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newPerson("UID-1", "Cruz", "Ana")))
	s.Require().NoError(s.store.Insert(s.ctx, s.newPerson("UID-2", "Reyes", "Ana")))
	s.Require().NoError(s.store.Insert(s.ctx, s.newPerson("UID-3", "Cruz", "Ben")))
	s.Require().NoError(s.store.Insert(s.ctx, s.newPerson("UID-4", "Santos", "Carla")))

	// Last name OR first name membership qualifies.
	records, err := s.store.FindByNormalizedNames(s.ctx, []string{"cruz"}, []string{"ana"})
	s.Require().NoError(err)
	s.Require().Len(records, 3)

	// Insertion order is preserved.
	s.Equal("UID-1", records[0].UID)
	s.Equal("UID-2", records[1].UID)
	s.Equal("UID-3", records[2].UID)
}

func (s *PersonStoreSuite) TestFindByNormalizedNamesEmptySets() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newPerson("UID-1", "Cruz", "Ana")))

	records, err := s.store.FindByNormalizedNames(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *PersonStoreSuite) TestSearch() {
	for i, name := range []string{"Cruz", "Cruzado", "Reyes"} {
		s.Require().NoError(s.store.Insert(s.ctx, s.newPerson(fmt.Sprintf("UID-%d", i), name, "Ana")))
	}

	records, err := s.store.Search(s.ctx, "cruz", 10)
	s.Require().NoError(err)
	s.Len(records, 2)

	records, err = s.store.Search(s.ctx, "cruz", 1)
	s.Require().NoError(err)
	s.Len(records, 1)
}

type MatchResultStoreSuite struct {
	suite.Suite
	store *InMemoryMatchResultStore
	ctx   context.Context
}

func (s *MatchResultStoreSuite) SetupTest() {
	s.store = NewInMemoryMatchResultStore()
	s.ctx = context.Background()
}

func TestMatchResultStoreSuite(t *testing.T) {
	suite.Run(t, new(MatchResultStoreSuite))
}

func (s *MatchResultStoreSuite) TestInsertAndListByBatch() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Insert(s.ctx, domain.MatchResult{
			ID:      fmt.Sprintf("mr-%d", i),
			BatchID: "batch-a",
			Status:  domain.StatusNewRecord,
		}))
	}
	s.Require().NoError(s.store.Insert(s.ctx, domain.MatchResult{
		ID:      "mr-other",
		BatchID: "batch-b",
		Status:  domain.StatusMatched,
	}))

	results, err := s.store.ListByBatch(s.ctx, "batch-a")
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.Equal("mr-0", results[0].ID)

	found, err := s.store.FindByID(s.ctx, "mr-other")
	s.Require().NoError(err)
	s.Equal(domain.StatusMatched, found.Status)

	_, err = s.store.FindByID(s.ctx, "missing")
	s.Require().ErrorIs(err, ErrNotFound)
}
