package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	domainerrors "github.com/potchii/data-match-system-sub000/pkg/domain-errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON serializes v with the given status. Encoding failures are
// swallowed; by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps a domain error to its HTTP status and writes the coded
// error envelope. Non-domain errors come out as opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	code := domainerrors.CodeOf(err)
	message := "internal server error"
	var de *domainerrors.Error
	if errors.As(err, &de) && code != domainerrors.CodeInternal {
		message = de.Message
	}
	WriteJSON(w, domainerrors.ToHTTPStatus(code), errorBody{
		Error: errorDetail{Code: string(code), Message: message},
	})
}
