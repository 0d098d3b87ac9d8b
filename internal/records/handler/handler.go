package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/potchii/data-match-system-sub000/internal/storage"
	"github.com/potchii/data-match-system-sub000/internal/transport/http/shared"
	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// Handler exposes read access to the canonical registry.
type Handler struct {
	logger *slog.Logger
	store  storage.PersonStore
}

func New(store storage.PersonStore, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register registers the record routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/records", h.handleSearchRecords)
	r.Get("/records/{uid}", h.handleGetRecord)
}

func (h *Handler) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "query parameter q is required"))
		return
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	records, err := h.store.Search(ctx, strings.ToLower(query), limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "record search failed",
			"query", query,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "record search failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := chi.URLParam(r, "uid")

	record, err := h.store.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "record not found"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load record",
			"uid", uid,
			"error", err.Error(),
		)
		shared.WriteError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load record"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}
