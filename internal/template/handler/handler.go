package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/potchii/data-match-system-sub000/internal/mapping"
	"github.com/potchii/data-match-system-sub000/internal/platform/middleware"
	"github.com/potchii/data-match-system-sub000/internal/template"
	"github.com/potchii/data-match-system-sub000/internal/transport/http/shared"
	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
	"github.com/potchii/data-match-system-sub000/pkg/platform/sentinel"
)

// Handler handles column mapping template endpoints.
type Handler struct {
	logger *slog.Logger
	store  template.Store
}

func New(store template.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register registers the template routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/templates", h.handleCreateTemplate)
	r.Get("/templates", h.handleListTemplates)
	r.Get("/templates/{templateID}", h.handleGetTemplate)
	r.Delete("/templates/{templateID}", h.handleDeleteTemplate)
	r.Post("/templates/generate", h.handleGenerateTemplate)
	r.Post("/templates/{templateID}/validate-columns", h.handleValidateColumns)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var tmpl template.ColumnMappingTemplate
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		h.logger.WarnContext(ctx, "invalid template payload",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	if err := tmpl.Validate(); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeValidation, err.Error()))
		return
	}

	if err := h.store.Save(ctx, tmpl); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeConflict, "a template with that name already exists"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to save template",
			"request_id", requestID,
			"template_id", tmpl.ID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to save template"))
		return
	}
	shared.WriteJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templates, err := h.store.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list templates", "error", err.Error())
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to list templates"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (h *Handler) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateID")

	tmpl, err := h.store.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "template not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load template",
			"template_id", templateID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load template"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateID")

	if err := h.store.Delete(ctx, templateID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "template not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete template",
			"template_id", templateID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to delete template"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type generateRequest struct {
	Columns []string `json:"columns"`
}

// handleGenerateTemplate proposes mapping entries from a sample header row so
// operators start from recognized aliases instead of a blank form.
func (h *Handler) handleGenerateTemplate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Columns) == 0 {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "columns are required"))
		return
	}
	sample := make(mapping.Row, 0, len(req.Columns))
	for _, column := range req.Columns {
		sample = append(sample, mapping.Cell{Column: column})
	}
	entries := mapping.GenerateTemplateFromSample(sample)
	shared.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type validateColumnsRequest struct {
	Columns []string `json:"columns"`
}

func (h *Handler) handleValidateColumns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "templateID")

	var req validateColumnsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	tmpl, err := h.store.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "template not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load template",
			"template_id", templateID,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load template"))
		return
	}

	validation := tmpl.ValidateFileColumns(req.Columns)
	shared.WriteJSON(w, http.StatusOK, validation)
}
