package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/inkwell/internal/notes"
	"github.com/dukerupert/inkwell/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

var kindStatus = map[notes.Kind]int{
	notes.KindValidation:    http.StatusBadRequest,
	notes.KindAuthorization: http.StatusForbidden,
	notes.KindNotFound:      http.StatusNotFound,
	notes.KindConflict:      http.StatusConflict,
}

// writeError maps domain errors to their status. Anything else is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var de *notes.Error
	if errors.As(err, &de) {
		body := map[string]string{"error": de.Message}
		if de.Field != "" {
			body["field"] = de.Field
		}
		writeJSON(w, kindStatus[de.Kind], body)
		return
	}
	logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return false
	}
	return true
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

// pageFromQuery reads limit and offset; bad or missing values fall back to
// the store defaults.
func pageFromQuery(r *http.Request) store.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return store.Page{Limit: limit, Offset: offset}
}
