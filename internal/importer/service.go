package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/potchii/data-match-system-sub000/internal/audit"
	"github.com/potchii/data-match-system-sub000/internal/batch"
	"github.com/potchii/data-match-system-sub000/internal/batch/progress"
	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
	"github.com/potchii/data-match-system-sub000/internal/matching"
	"github.com/potchii/data-match-system-sub000/internal/platform/metrics"
	"github.com/potchii/data-match-system-sub000/internal/storage"
	"github.com/potchii/data-match-system-sub000/internal/template"
	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

// Request describes one import run: an ordered slice of raw rows plus an
// optional saved template to pre-remap headers.
type Request struct {
	SourceName string
	TemplateID string
	Rows       []mapping.Row
}

// RowIssue describes why one row could not be processed. Row indexes are
// 1-based to match what the operator sees in a spreadsheet.
type RowIssue struct {
	RowIndex int    `json:"row_index"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
}

// Report is the outcome of a completed run.
type Report struct {
	Batch   batch.UploadBatch `json:"batch"`
	Summary mapping.Summary   `json:"summary"`
	Issues  []RowIssue        `json:"issues,omitempty"`
}

// Service runs imports end to end: template application, mapping, candidate
// pool management, match evaluation, scoring, and persistence. Rows are
// processed strictly in order so a record inserted for row N is visible to
// row N+1; one Service run owns its CandidateIndex exclusively.
type Service struct {
	mapper    *mapping.Mapper
	matcher   *matching.Service
	persons   storage.PersonStore
	results   storage.MatchResultStore
	batches   batch.Store
	templates template.Store
	progress  progress.Tracker
	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Config struct {
	Mapper    *mapping.Mapper
	Matcher   *matching.Service
	Persons   storage.PersonStore
	Results   storage.MatchResultStore
	Batches   batch.Store
	Templates template.Store
	Progress  progress.Tracker
	Publisher audit.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Progress == nil {
		cfg.Progress = progress.NewInMemoryTracker()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = audit.NewMemoryPublisher()
	}
	return &Service{
		mapper:    cfg.Mapper,
		matcher:   cfg.Matcher,
		persons:   cfg.Persons,
		results:   cfg.Results,
		batches:   cfg.Batches,
		templates: cfg.Templates,
		progress:  cfg.Progress,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		tracer:    otel.Tracer("importer"),
	}
}

// Run processes a whole upload. Row-level problems (oversized dynamic
// payloads, missing names, failed custom-field validation) abort only the row
// they occur on; store failures propagate unchanged and fail the batch.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	ctx, span := s.tracer.Start(ctx, "importer.batch",
		trace.WithAttributes(attribute.Int("rows", len(req.Rows))))
	defer span.End()
	started := time.Now()

	var tmpl *template.ColumnMappingTemplate
	if req.TemplateID != "" {
		found, err := s.templates.FindByID(ctx, req.TemplateID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return Report{}, domainerrors.New(domainerrors.CodeNotFound, "template not found")
			}
			return Report{}, err
		}
		tmpl = &found
	}

	run := batch.UploadBatch{
		ID:         uuid.NewString(),
		SourceName: req.SourceName,
		TemplateID: req.TemplateID,
		Status:     batch.StatusProcessing,
		Counters:   batch.Counters{TotalRows: len(req.Rows)},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.batches.Save(ctx, run); err != nil {
		return Report{}, err
	}
	s.publish(ctx, audit.Event{Action: audit.ActionBatchStarted, BatchID: run.ID})

	s.logger.InfoContext(ctx, "starting record import",
		"batch_id", run.ID,
		"template_id", req.TemplateID,
		"row_count", len(req.Rows),
	)

	report, err := s.processRows(ctx, &run, tmpl, req.Rows)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Status = batch.StatusFailed
		run.Error = err.Error()
		if saveErr := s.batches.Save(ctx, run); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to record batch failure",
				"batch_id", run.ID, "error", saveErr.Error())
		}
		return Report{}, err
	}
	run.Status = batch.StatusCompleted
	if err := s.batches.Save(ctx, run); err != nil {
		return Report{}, err
	}
	if s.metrics != nil {
		s.metrics.ImportDuration.Observe(time.Since(started).Seconds())
	}
	s.publish(ctx, audit.Event{Action: audit.ActionBatchFinished, BatchID: run.ID})

	s.logger.InfoContext(ctx, "record import completed",
		"batch_id", run.ID,
		"total_rows", run.Counters.TotalRows,
		"processed", run.Counters.Processed,
		"skipped", run.Counters.Skipped,
		"new_records", run.Counters.NewRecords,
		"matched_records", run.Counters.Matched,
	)

	report.Batch = run
	return report, nil
}

// rowState pairs a raw row with its mapped form through the pipeline.
type rowState struct {
	index  int // 1-based
	raw    mapping.Row
	mapped mapping.MappedRow
	issue  *RowIssue
	ok     bool
}

func (s *Service) processRows(ctx context.Context, run *batch.UploadBatch, tmpl *template.ColumnMappingTemplate, rows []mapping.Row) (Report, error) {
	report := Report{}

	// Mapping pass. Template application and field mapping are pure per-row
	// work, so rows map concurrently into indexed slots; each goroutine owns
	// states[i] exclusively and row order is untouched.
	states := make([]rowState, len(rows))
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, raw := range rows {
		g.Go(func() error {
			state := rowState{index: i + 1, raw: raw}
			if tmpl != nil {
				state.raw = tmpl.ApplyTo(raw)
				if issue := s.validateCustomFields(tmpl, state.raw, state.index); issue != nil {
					state.issue = issue
					states[i] = state
					return nil
				}
			}
			mapped, err := s.mapper.MapRow(state.raw)
			if err != nil {
				state.issue = &RowIssue{RowIndex: state.index, Message: err.Error()}
				states[i] = state
				return nil
			}
			state.mapped = mapped
			state.ok = true
			states[i] = state
			return nil
		})
	}
	_ = g.Wait()

	summarized := false
	for _, st := range states {
		if st.issue != nil {
			report.Issues = append(report.Issues, *st.issue)
			s.countRow(ctx, run, metrics.OutcomeFailed)
			s.publish(ctx, audit.Event{
				Action: audit.ActionRowFailed, BatchID: run.ID,
				RowIndex: st.index, Reason: st.issue.Message,
			})
			continue
		}
		if st.ok && !summarized {
			report.Summary = s.mapper.Summarize(st.raw, st.mapped)
			summarized = true
		}
	}

	mappedRows := make([]mapping.MappedRow, 0, len(states))
	for _, st := range states {
		if st.ok {
			mappedRows = append(mappedRows, st.mapped)
		}
	}

	index := matching.NewCandidateIndex(s.persons)
	if err := index.LoadCandidates(ctx, mappedRows); err != nil {
		return Report{}, fmt.Errorf("load candidates: %w", err)
	}

	// Matching pass, strictly in row order.
	for _, st := range states {
		if !st.ok {
			continue
		}
		if err := s.processRow(ctx, run, index, st, &report); err != nil {
			return Report{}, err
		}
	}
	return report, nil
}

func (s *Service) processRow(ctx context.Context, run *batch.UploadBatch, index *matching.CandidateIndex, st rowState, report *Report) error {
	ctx, span := s.tracer.Start(ctx, "importer.row",
		trace.WithAttributes(attribute.Int("row", st.index)))
	defer span.End()

	s.metrics.ObservePayload(st.mapped.PayloadBytes)

	if !st.mapped.HasRequiredNames() {
		s.countRow(ctx, run, metrics.OutcomeSkipped)
		report.Issues = append(report.Issues, RowIssue{
			RowIndex: st.index,
			Message:  "row is missing a usable last name or first name",
		})
		s.logger.WarnContext(ctx, "skipping row with missing required fields",
			"batch_id", run.ID,
			"row_index", st.index,
			"has_last_name", st.mapped.CoreFields[domain.FieldLastName] != "",
			"has_first_name", st.mapped.CoreFields[domain.FieldFirstName] != "",
		)
		s.publish(ctx, audit.Event{
			Action: audit.ActionRowSkipped, BatchID: run.ID,
			RowIndex: st.index, Reason: "missing required name fields",
		})
		return nil
	}

	verdict := s.matcher.FindMatch(st.mapped, index.Records())
	if s.metrics != nil && verdict.RuleName != "" {
		s.metrics.ObserveMatch(verdict.RuleName)
	}

	resultID := uuid.NewString()
	result := domain.MatchResult{
		ID:                 resultID,
		BatchID:            run.ID,
		UploadedRecordID:   uploadedRecordID(st.mapped, st.index),
		UploadedLastName:   st.mapped.CoreFields[domain.FieldLastName],
		UploadedFirstName:  st.mapped.CoreFields[domain.FieldFirstName],
		UploadedMiddleName: st.mapped.CoreFields[domain.FieldMiddleName],
		Status:             verdict.Status,
		Confidence:         verdict.Confidence,
		MatchedUID:         verdict.MatchedUID,
		RuleName:           verdict.RuleName,
		Breakdown:          verdict.Breakdown,
		CreatedAt:          time.Now().UTC(),
	}

	if verdict.Status == domain.StatusNewRecord {
		record, err := s.insertNewRecord(ctx, run.ID, resultID, st.mapped)
		if err != nil {
			return err
		}
		index.AddRecord(record)
		result.MatchedUID = record.UID
		s.countRow(ctx, run, metrics.OutcomeNew)
		run.Counters.Processed++
		s.logger.InfoContext(ctx, "new record created",
			"batch_id", run.ID,
			"record_uid", record.UID,
			"row_index", st.index,
		)
		s.publish(ctx, audit.Event{
			Action: audit.ActionRecordCreated, BatchID: run.ID,
			RowIndex: st.index, RecordUID: record.UID,
		})
	} else {
		s.countRow(ctx, run, metrics.OutcomeMatched)
		run.Counters.Processed++
		s.publish(ctx, audit.Event{
			Action: audit.ActionRecordMatched, BatchID: run.ID,
			RowIndex: st.index, MatchedUID: verdict.MatchedUID,
			RuleName: verdict.RuleName, Confidence: verdict.Confidence,
		})
	}

	return s.results.Insert(ctx, result)
}

func (s *Service) insertNewRecord(ctx context.Context, batchID, resultID string, mapped mapping.MappedRow) (domain.PersonRecord, error) {
	record := domain.PersonRecord{
		DynamicAttributes:   mapped.DynamicFields,
		OriginBatchID:       batchID,
		OriginMatchResultID: resultID,
		CreatedAt:           time.Now().UTC(),
	}
	for field, value := range mapped.CoreFields {
		record.SetCoreField(field, value)
	}
	uid, err := s.generateUID(ctx)
	if err != nil {
		return domain.PersonRecord{}, err
	}
	record.UID = uid
	record.Normalize()
	if len(record.DynamicAttributes) == 0 {
		record.DynamicAttributes = nil
	}
	if err := s.persons.Insert(ctx, record); err != nil {
		return domain.PersonRecord{}, err
	}
	return record, nil
}

// generateUID assigns the registry's UID-prefixed identifier, retrying on the
// unlikely collision.
func (s *Service) generateUID(ctx context.Context) (string, error) {
	for {
		raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
		uid := "UID-" + raw[:12]
		exists, err := s.persons.ExistsUID(ctx, uid)
		if err != nil {
			return "", err
		}
		if !exists {
			return uid, nil
		}
	}
}

func (s *Service) validateCustomFields(tmpl *template.ColumnMappingTemplate, row mapping.Row, rowIndex int) *RowIssue {
	for _, field := range tmpl.Fields {
		value, present := row.Value(field.Name)
		if !present {
			value = nil
		}
		if err := field.ValidateValue(value); err != nil {
			return &RowIssue{RowIndex: rowIndex, Column: field.Name, Message: err.Error()}
		}
	}
	return nil
}

// countRow updates every counter surface at once: the batch record, the live
// progress hash, and Prometheus.
func (s *Service) countRow(ctx context.Context, run *batch.UploadBatch, outcome string) {
	var field string
	switch outcome {
	case metrics.OutcomeNew:
		run.Counters.NewRecords++
		field = progress.FieldNewRecords
	case metrics.OutcomeMatched:
		run.Counters.Matched++
		field = progress.FieldMatched
	case metrics.OutcomeSkipped:
		run.Counters.Skipped++
		field = progress.FieldSkipped
	case metrics.OutcomeFailed:
		run.Counters.Failed++
		field = progress.FieldFailed
	}
	if s.metrics != nil {
		s.metrics.ObserveRow(outcome)
	}
	if err := s.progress.Incr(ctx, run.ID, field); err != nil {
		s.logger.WarnContext(ctx, "progress counter update failed",
			"batch_id", run.ID, "error", err.Error())
	}
	if outcome == metrics.OutcomeNew || outcome == metrics.OutcomeMatched {
		if err := s.progress.Incr(ctx, run.ID, progress.FieldProcessed); err != nil {
			s.logger.WarnContext(ctx, "progress counter update failed",
				"batch_id", run.ID, "error", err.Error())
		}
	}
}

// publish sends an audit event, never failing the caller.
func (s *Service) publish(ctx context.Context, event audit.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit publish failed",
			"action", event.Action, "batch_id", event.BatchID, "error", err.Error())
	}
}

// uploadedRecordID prefers an uploaded uid for traceability and falls back to
// the row position.
func uploadedRecordID(mapped mapping.MappedRow, rowIndex int) string {
	if uid := mapped.CoreFields[domain.FieldUID]; uid != "" {
		return uid
	}
	return fmt.Sprintf("ROW-%d", rowIndex)
}
