package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/potchii/data-match-system-sub000/internal/batch"
	"github.com/potchii/data-match-system-sub000/internal/batch/progress"
	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/importer"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
	"github.com/potchii/data-match-system-sub000/internal/platform/middleware"
	"github.com/potchii/data-match-system-sub000/internal/transport/http/shared"
	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

const maxImportBodyBytes = 32 << 20 // 32 MiB

// Service runs imports.
type Service interface {
	Run(ctx context.Context, req importer.Request) (importer.Report, error)
}

// BatchReader exposes the batch bookkeeping needed by read endpoints.
type BatchReader interface {
	FindByID(ctx context.Context, id string) (batch.UploadBatch, error)
}

// ResultReader lists persisted match results.
type ResultReader interface {
	ListByBatch(ctx context.Context, batchID string) ([]domain.MatchResult, error)
}

// Handler handles import endpoints.
type Handler struct {
	logger   *slog.Logger
	importer Service
	batches  BatchReader
	results  ResultReader
	progress progress.Tracker
}

func New(svc Service, batches BatchReader, results ResultReader, tracker progress.Tracker, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		importer: svc,
		batches:  batches,
		results:  results,
		progress: tracker,
	}
}

// Register registers the import routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/imports", h.handleRunImport)
	r.Get("/imports/{batchID}", h.handleGetBatch)
	r.Get("/imports/{batchID}/results", h.handleListResults)
	r.Get("/imports/{batchID}/progress", h.handleGetProgress)
}

// importRequest is the upload payload. Rows arrive column-oriented so cell
// order survives JSON decoding.
type importRequest struct {
	SourceName string   `json:"source_name"`
	TemplateID string   `json:"template_id,omitempty"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
}

func (h *Handler) handleRunImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req importRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid import request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Columns) == 0 {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "columns are required"))
		return
	}
	if len(req.Rows) == 0 {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "at least one row is required"))
		return
	}

	rows, err := buildRows(req.Columns, req.Rows)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.importer.Run(ctx, importer.Request{
		SourceName: req.SourceName,
		TemplateID: req.TemplateID,
		Rows:       rows,
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeNotFound) || domainerrors.Is(err, domainerrors.CodeBadRequest) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "import run failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "import failed"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, report)
}

// buildRows zips the header with each row's cells. Short rows are legal, a
// trailing block of blank cells in a spreadsheet export simply disappears;
// rows wider than the header are rejected.
func buildRows(columns []string, raw [][]any) ([]mapping.Row, error) {
	rows := make([]mapping.Row, 0, len(raw))
	for i, cells := range raw {
		if len(cells) > len(columns) {
			return nil, domainerrors.Newf(domainerrors.CodeBadRequest,
				"row %d has %d cells but only %d columns are declared", i+1, len(cells), len(columns))
		}
		row := make(mapping.Row, 0, len(cells))
		for j, cell := range cells {
			row = append(row, mapping.Cell{Column: columns[j], Value: cell})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "batchID")

	run, err := h.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "batch not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load batch",
			"batch_id", batchID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load batch"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, run)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "batchID")

	if _, err := h.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "batch not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load batch",
			"batch_id", batchID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load batch"))
		return
	}

	results, err := h.results.ListByBatch(ctx, batchID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list match results",
			"batch_id", batchID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to list match results"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"results":  results,
	})
}

type progressResponse struct {
	BatchID   string           `json:"batch_id"`
	Status    batch.Status     `json:"status"`
	Counters  map[string]int64 `json:"counters"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchID := chi.URLParam(r, "batchID")

	run, err := h.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "batch not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load batch",
			"batch_id", batchID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load batch"))
		return
	}

	counters, err := h.progress.Snapshot(ctx, batchID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read progress counters",
			"batch_id", batchID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to read progress"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, progressResponse{
		BatchID:   batchID,
		Status:    run.Status,
		Counters:  counters,
		UpdatedAt: time.Now().UTC(),
	})
}
