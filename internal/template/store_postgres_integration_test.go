//go:build integration

package template_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/potchii/data-match-system-sub000/internal/template"
	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
	"github.com/potchii/data-match-system-sub000/pkg/testutil/containers"
)

type PostgresTemplateSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *template.PostgresStore
}

func TestPostgresTemplateSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTemplateSuite))
}

func (s *PostgresTemplateSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = template.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresTemplateSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "column_mapping_templates"))
}

func (s *PostgresTemplateSuite) newTemplate(id, name string) template.ColumnMappingTemplate {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return template.ColumnMappingTemplate{
		ID:   id,
		Name: name,
		Mappings: []template.Mapping{
			{Column: "APELYIDO", SystemField: "last_name"},
		},
		Fields: []template.Field{
			{Name: "household_size", Type: template.FieldInteger, Required: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresTemplateSuite) TestSaveAndRoundTrip() {
	ctx := context.Background()
	tmpl := s.newTemplate("tpl-1", "Roster")
	s.Require().NoError(s.store.Save(ctx, tmpl))

	found, err := s.store.FindByID(ctx, "tpl-1")
	s.Require().NoError(err)
	s.Equal("Roster", found.Name)
	s.Require().Len(found.Mappings, 1)
	s.Equal("last_name", found.Mappings[0].SystemField)
	s.Require().Len(found.Fields, 1)
	s.Equal(template.FieldInteger, found.Fields[0].Type)
	s.True(found.Fields[0].Required)
}

func (s *PostgresTemplateSuite) TestNameUniqueness() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newTemplate("tpl-1", "Roster")))

	err := s.store.Save(ctx, s.newTemplate("tpl-2", "ROSTER"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// Same id may keep its name on update.
	updated := s.newTemplate("tpl-1", "Roster")
	updated.Mappings = append(updated.Mappings, template.Mapping{Column: "PANGALAN", SystemField: "first_name"})
	s.Require().NoError(s.store.Save(ctx, updated))
}

func (s *PostgresTemplateSuite) TestListAndDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newTemplate("tpl-b", "Bravo")))
	s.Require().NoError(s.store.Save(ctx, s.newTemplate("tpl-a", "Alpha")))

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("Alpha", all[0].Name)

	s.Require().NoError(s.store.Delete(ctx, "tpl-a"))
	s.Require().ErrorIs(s.store.Delete(ctx, "tpl-a"), sentinel.ErrNotFound)
	_, err = s.store.FindByID(ctx, "tpl-a")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
