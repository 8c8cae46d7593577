// internal/httpx/response.go
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"librastore/internal/apperr"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// OK is the body of operations that have nothing else to return.
var OK = map[string]bool{"ok": true}

func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorResponse{Error: msg})
}

// Error answers with the status mapped from err's kind. Unclassified errors
// are logged and hidden behind a generic message.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		JSONError(w, status, "internal error")
		return
	}
	JSONError(w, status, err.Error())
}

// Decode reads a JSON body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}

// IntParam parses a chi path parameter as an int64.
func IntParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validationf("invalid %s %q", name, raw)
	}
	return n, nil
}

// List wraps an optional single result the way filtered collection queries
// answer: zero or one element.
func List[T any](v *T) []*T {
	if v == nil {
		return []*T{}
	}
	return []*T{v}
}
