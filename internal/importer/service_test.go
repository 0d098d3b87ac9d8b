package importer

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/potchii/data-match-system-sub000/internal/audit"
	"github.com/potchii/data-match-system-sub000/internal/batch"
	"github.com/potchii/data-match-system-sub000/internal/batch/progress"
	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
	"github.com/potchii/data-match-system-sub000/internal/matching"
	"github.com/potchii/data-match-system-sub000/internal/platform/config"
	"github.com/potchii/data-match-system-sub000/internal/platform/metrics"
	"github.com/potchii/data-match-system-sub000/internal/storage"
	"github.com/potchii/data-match-system-sub000/internal/template"
	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
)

type ImporterSuite struct {
	suite.Suite
	ctx       context.Context
	persons   *storage.InMemoryPersonStore
	results   *storage.InMemoryMatchResultStore
	batches   *batch.InMemoryStore
	templates *template.InMemoryStore
	tracker   *progress.InMemoryTracker
	publisher *audit.MemoryPublisher
	registry  *prometheus.Registry
	svc       *Service
}

func (s *ImporterSuite) SetupTest() {
	s.ctx = context.Background()
	s.persons = storage.NewInMemoryPersonStore()
	s.results = storage.NewInMemoryMatchResultStore()
	s.batches = batch.NewInMemoryStore()
	s.templates = template.NewInMemoryStore()
	s.tracker = progress.NewInMemoryTracker()
	s.publisher = audit.NewMemoryPublisher()
	s.registry = prometheus.NewRegistry()
	s.svc = NewService(Config{
		Mapper:    mapping.NewMapper(),
		Matcher:   matching.NewService(matching.NewChain(config.DefaultFuzzyThreshold)),
		Persons:   s.persons,
		Results:   s.results,
		Batches:   s.batches,
		Templates: s.templates,
		Progress:  s.tracker,
		Publisher: s.publisher,
		Metrics:   metrics.New(s.registry),
		Logger:    slog.New(slog.DiscardHandler),
	})
}

func TestImporterSuite(t *testing.T) {
	suite.Run(t, new(ImporterSuite))
}

func (s *ImporterSuite) seedPerson(uid, last, first, middle, birthday string) {
	record := domain.PersonRecord{
		UID:        uid,
		LastName:   last,
		FirstName:  first,
		MiddleName: middle,
	}
	if birthday != "" {
		t, err := time.Parse(domain.BirthdayFormat, birthday)
		s.Require().NoError(err)
		record.Birthday = &t
	}
	record.Normalize()
	s.Require().NoError(s.persons.Insert(s.ctx, record))
}

func row(cells ...mapping.Cell) mapping.Row { return cells }

func cell(column string, value any) mapping.Cell {
	return mapping.Cell{Column: column, Value: value}
}

func (s *ImporterSuite) TestNewRecordInsertion() {
	report, err := s.svc.Run(s.ctx, Request{
		SourceName: "roster.xlsx",
		Rows: []mapping.Row{
			row(cell("Surname", "DELA CRUZ"), cell("Firstname", "juan"), cell("DOB", "13/05/1990"), cell("Occupation", "Farmer")),
		},
	})
	s.Require().NoError(err)

	s.Equal(batch.StatusCompleted, report.Batch.Status)
	s.Equal(1, report.Batch.Counters.TotalRows)
	s.Equal(1, report.Batch.Counters.NewRecords)
	s.Equal(1, report.Batch.Counters.Processed)
	s.Empty(report.Issues)

	s.Require().Equal(1, s.persons.Count())
	results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Require().Len(results, 1)

	result := results[0]
	s.Equal(domain.StatusNewRecord, result.Status)
	s.Equal(0.0, result.Confidence)
	s.Require().NotEmpty(result.MatchedUID)
	s.True(strings.HasPrefix(result.MatchedUID, "UID-"))

	record, err := s.persons.FindByUID(s.ctx, result.MatchedUID)
	s.Require().NoError(err)
	s.Equal("Dela Cruz", record.LastName)
	s.Equal("Juan", record.FirstName)
	s.Equal("1990-05-13", record.BirthdayString())
	s.Equal("Farmer", record.DynamicAttributes["occupation"])
	s.Equal(report.Batch.ID, record.OriginBatchID)
	s.Equal(result.ID, record.OriginMatchResultID)
}

func (s *ImporterSuite) TestExactMatchAgainstExistingRecord() {
	s.seedPerson("UID-EXISTING", "Dela Cruz", "Juan", "Santos", "1990-05-13")

	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "dela cruz"), cell("Firstname", "JUAN"), cell("Middlename", "santos"), cell("Birthday", "1990-05-13")),
		},
	})
	s.Require().NoError(err)

	s.Equal(1, report.Batch.Counters.Matched)
	s.Equal(0, report.Batch.Counters.NewRecords)
	s.Equal(1, s.persons.Count(), "no new record inserted")

	results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(domain.StatusMatched, results[0].Status)
	s.Equal("exact_match", results[0].RuleName)
	s.Equal("UID-EXISTING", results[0].MatchedUID)
	s.Equal(100.0, results[0].Confidence)
	s.Require().NotNil(results[0].Breakdown)
}

func (s *ImporterSuite) TestIntraBatchMatch() {
	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Reyes"), cell("Firstname", "Maria"), cell("DOB", "1988-02-02")),
			row(cell("Surname", "Reyes"), cell("Firstname", "Maria"), cell("DOB", "1988-02-02")),
		},
	})
	s.Require().NoError(err)

	// The second row matches the record the first row just created.
	s.Equal(1, report.Batch.Counters.NewRecords)
	s.Equal(1, report.Batch.Counters.Matched)
	s.Equal(1, s.persons.Count())

	results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(domain.StatusNewRecord, results[0].Status)
	s.Equal(domain.StatusMatched, results[1].Status)
	s.Equal(results[0].MatchedUID, results[1].MatchedUID)
}

func (s *ImporterSuite) TestSkipsRowsMissingNames() {
	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Cruz")),                          // no first name
			row(cell("Firstname", "Ana")),                         // no last name
			row(cell("Surname", "Cruz"), cell("Firstname", "Ana")), // fine
		},
	})
	s.Require().NoError(err)

	s.Equal(2, report.Batch.Counters.Skipped)
	s.Equal(1, report.Batch.Counters.NewRecords)
	s.Require().Len(report.Issues, 2)
	s.Equal(1, report.Issues[0].RowIndex)
	s.Equal(2, report.Issues[1].RowIndex)
	s.Contains(report.Issues[0].Message, "missing a usable")

	// Skipped rows produce no match results.
	results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Len(results, 1)
}

func (s *ImporterSuite) TestOversizedDynamicPayloadFailsOnlyThatRow() {
	big := strings.Repeat("x", mapping.MaxDynamicPayloadBytes)
	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Cruz"), cell("Firstname", "Ana"), cell("notes", big)),
			row(cell("Surname", "Reyes"), cell("Firstname", "Ben")),
		},
	})
	s.Require().NoError(err)

	s.Equal(1, report.Batch.Counters.Failed)
	s.Equal(1, report.Batch.Counters.NewRecords)
	s.Require().Len(report.Issues, 1)
	s.Equal(1, report.Issues[0].RowIndex)
	s.Contains(report.Issues[0].Message, "exceed maximum size")
}

func (s *ImporterSuite) TestTemplateApplication() {
	s.Require().NoError(s.templates.Save(s.ctx, template.ColumnMappingTemplate{
		ID:   "tpl-1",
		Name: "Roster",
		Mappings: []template.Mapping{
			{Column: "APELYIDO", SystemField: "last_name"},
			{Column: "PANGALAN", SystemField: "first_name"},
		},
		Fields: []template.Field{
			{Name: "household_size", Type: template.FieldInteger},
		},
	}))

	report, err := s.svc.Run(s.ctx, Request{
		TemplateID: "tpl-1",
		Rows: []mapping.Row{
			row(cell("APELYIDO", "Cruz"), cell("PANGALAN", "Ana"), cell("household_size", 4), cell("junk", "dropped")),
			row(cell("APELYIDO", "Reyes"), cell("PANGALAN", "Ben"), cell("household_size", "not a number")),
		},
	})
	s.Require().NoError(err)

	s.Equal(1, report.Batch.Counters.NewRecords)
	s.Equal(1, report.Batch.Counters.Failed)
	s.Require().Len(report.Issues, 1)
	s.Equal(2, report.Issues[0].RowIndex)
	s.Equal("household_size", report.Issues[0].Column)

	results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	record, err := s.persons.FindByUID(s.ctx, results[0].MatchedUID)
	s.Require().NoError(err)
	s.Equal("Cruz", record.LastName)
	s.Equal(4, record.DynamicAttributes["household_size"])
	s.NotContains(record.DynamicAttributes, "junk")
}

func (s *ImporterSuite) TestUnknownTemplateFailsRun() {
	_, err := s.svc.Run(s.ctx, Request{
		TemplateID: "no-such-template",
		Rows:       []mapping.Row{row(cell("Surname", "Cruz"), cell("Firstname", "Ana"))},
	})
	s.Require().Error(err)
	s.True(domainerrors.Is(err, domainerrors.CodeNotFound))
}

func (s *ImporterSuite) TestMappingSummaryFromFirstRow() {
	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Cruz"), cell("Firstname", "Ana"), cell("Occupation", "Nurse"), cell("DOB", "garbage")),
		},
	})
	s.Require().NoError(err)

	s.Equal([]string{"Surname", "Firstname"}, report.Summary.CoreFieldsMapped)
	s.Equal([]string{"occupation"}, report.Summary.DynamicFieldsCaptured)
	s.Equal([]string{"DOB"}, report.Summary.SkippedColumns)
}

func (s *ImporterSuite) TestProgressAndAuditTrail() {
	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Cruz"), cell("Firstname", "Ana")),
			row(cell("Surname", "Cruz")),
		},
	})
	s.Require().NoError(err)

	counters, err := s.tracker.Snapshot(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), counters[progress.FieldNewRecords])
	s.Equal(int64(1), counters[progress.FieldProcessed])
	s.Equal(int64(1), counters[progress.FieldSkipped])

	events := s.publisher.Events()
	s.Require().NotEmpty(events)
	actions := make([]string, len(events))
	for i, e := range events {
		actions[i] = e.Action
	}
	s.Equal(audit.ActionBatchStarted, actions[0])
	s.Equal(audit.ActionBatchFinished, actions[len(actions)-1])
	s.Contains(actions, audit.ActionRecordCreated)
	s.Contains(actions, audit.ActionRowSkipped)
	for _, e := range events {
		s.Equal(report.Batch.ID, e.BatchID)
		s.NotEmpty(e.ID)
	}
}

func (s *ImporterSuite) TestRowOrderIsDeterministic() {
	// Two identical rows plus one fuzzy neighbor; outcomes must not depend on
	// map iteration or goroutine scheduling.
	for range 3 {
		s.SetupTest()
		report, err := s.svc.Run(s.ctx, Request{
			Rows: []mapping.Row{
				row(cell("Surname", "Delacruz"), cell("Firstname", "Juanito"), cell("DOB", "1990-01-01")),
				row(cell("Surname", "Delacrus"), cell("Firstname", "Juanito"), cell("DOB", "1991-02-02")),
			},
		})
		s.Require().NoError(err)
		results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
		s.Require().NoError(err)
		s.Require().Len(results, 2)
		s.Equal(domain.StatusNewRecord, results[0].Status)
		s.Equal(domain.StatusPossibleDuplicate, results[1].Status)
		s.Equal("fuzzy_name_match", results[1].RuleName)
		s.Equal(results[0].MatchedUID, results[1].MatchedUID)
	}
}

func (s *ImporterSuite) TestMatchingIgnoresDynamicFields() {
	existing := domain.PersonRecord{
		UID:       "UID-DYNAMIC",
		LastName:  "Dela Cruz",
		FirstName: "Juan",
		DynamicAttributes: map[string]any{
			"occupation": "Farmer",
			"barangay":   "San Isidro",
		},
	}
	birthday, err := time.Parse(domain.BirthdayFormat, "1990-05-13")
	s.Require().NoError(err)
	existing.Birthday = &birthday
	existing.Normalize()
	s.Require().NoError(s.persons.Insert(s.ctx, existing))

	// Same core identity, entirely different dynamic attributes.
	report, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Dela Cruz"), cell("Firstname", "Juan"), cell("Birthday", "1990-05-13"),
				cell("Occupation", "Fisherman"), cell("Blood Type", "O+")),
		},
	})
	s.Require().NoError(err)

	results, err := s.results.ListByBatch(s.ctx, report.Batch.ID)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.NotEqual(domain.StatusNewRecord, results[0].Status)
	s.Equal("UID-DYNAMIC", results[0].MatchedUID)
	s.Equal(1, s.persons.Count())

	record, err := s.persons.FindByUID(s.ctx, "UID-DYNAMIC")
	s.Require().NoError(err)
	s.Equal(map[string]any{"occupation": "Farmer", "barangay": "San Isidro"}, record.DynamicAttributes)
}

func (s *ImporterSuite) TestObservesDynamicPayloadSize() {
	_, err := s.svc.Run(s.ctx, Request{
		Rows: []mapping.Row{
			row(cell("Surname", "Reyes"), cell("Firstname", "Ana"), cell("Occupation", "Farmer")),
		},
	})
	s.Require().NoError(err)

	families, err := s.registry.Gather()
	s.Require().NoError(err)
	var sampled bool
	for _, mf := range families {
		if mf.GetName() != "registry_dynamic_payload_bytes" {
			continue
		}
		hist := mf.GetMetric()[0].GetHistogram()
		sampled = hist.GetSampleCount() == 1
		s.InDelta(float64(len(`{"occupation":"Farmer"}`)), hist.GetSampleSum(), 0.01)
	}
	s.True(sampled, "payload size histogram recorded no samples")
}
