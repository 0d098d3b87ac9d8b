package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potchii/data-match-system-sub000/internal/template"
)

func newRouter() chi.Router {
	router := chi.NewRouter()
	New(template.NewInMemoryStore(), slog.New(slog.DiscardHandler)).Register(router)
	return router
}

func doJSON(t *testing.T, router chi.Router, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validPayload() map[string]any {
	return map[string]any{
		"name": "Provincial Roster",
		"mappings": []map[string]string{
			{"column": "APELYIDO", "system_field": "last_name"},
			{"column": "PANGALAN", "system_field": "first_name"},
		},
		"fields": []map[string]any{
			{"name": "household_size", "type": "integer"},
		},
	}
}

func TestTemplateCRUD(t *testing.T) {
	router := newRouter()

	rec := doJSON(t, router, http.MethodPost, "/templates", validPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created template.ColumnMappingTemplate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	rec = doJSON(t, router, http.MethodGet, "/templates/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Templates []template.ColumnMappingTemplate `json:"templates"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed.Templates, 1)

	rec = doJSON(t, router, http.MethodDelete, "/templates/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTemplateValidation(t *testing.T) {
	router := newRouter()

	t.Run("missing name", func(t *testing.T) {
		payload := validPayload()
		payload["name"] = ""
		rec := doJSON(t, router, http.MethodPost, "/templates", payload)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/templates", validPayload())
		require.Equal(t, http.StatusCreated, rec.Code)

		payload := validPayload()
		payload["name"] = "PROVINCIAL ROSTER"
		rec = doJSON(t, router, http.MethodPost, "/templates", payload)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestGenerateTemplate(t *testing.T) {
	router := newRouter()

	rec := doJSON(t, router, http.MethodPost, "/templates/generate", map[string]any{
		"columns": []string{"Surname", "Firstname", "Household Income"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []struct {
			Column      string `json:"Column"`
			SystemField string `json:"SystemField"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "last_name", resp.Entries[0].SystemField)
}

func TestValidateColumnsEndpoint(t *testing.T) {
	router := newRouter()

	rec := doJSON(t, router, http.MethodPost, "/templates", validPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created template.ColumnMappingTemplate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = doJSON(t, router, http.MethodPost, "/templates/"+created.ID+"/validate-columns", map[string]any{
		"columns": []string{"APELYIDO", "household_size", "SOBRA"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var validation template.ColumnValidation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&validation))
	assert.False(t, validation.Valid)
	assert.Equal(t, []string{"pangalan"}, validation.Missing)
	assert.Equal(t, []string{"sobra"}, validation.Extra)
}
