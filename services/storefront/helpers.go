// helpers.go — response helpers and request decoding for the storefront API.
package storefront

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/internal/validate"
	"github.com/yourflock/nekostream/pkg/telemetry"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	auth.WriteJSON(w, status, v)
}

// writeError writes a standard {error: code, message: msg} JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	auth.WriteError(w, status, code, msg)
}

// writeValidation answers 400 with every collected field error.
func writeValidation(w http.ResponseWriter, m *validate.MultiError) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation_failed",
		"message": m.Error(),
		"fields":  m.Errors,
	})
}

// decodeJSON decodes the request body into v.
// Returns false and writes a 400 if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	return true
}

// serverError logs err, reports it to Sentry and answers 500 with msg.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger.FromContext(r.Context()).WithError(err).Error(msg)
	telemetry.CaptureError(err, map[string]string{"path": r.URL.Path})
	writeError(w, http.StatusInternalServerError, "server_error", msg)
}

// storeError maps the store sentinels to HTTP answers and falls back to 500.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", what+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", what+" already exists")
	case errors.Is(err, store.ErrDependency):
		writeError(w, http.StatusConflict, "dependency",
			what+" is still referenced by other rows; enable ON DELETE CASCADE on the hosted schema")
	default:
		s.serverError(w, r, err, "could not load "+what)
	}
}

// pathID returns the {id} URL parameter, writing a 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := validate.IsUUID("id", id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return "", false
	}
	return strings.ToLower(id), true
}

// flexInt accepts 3, "3" and "" (as 0). The admin forms post select and
// number inputs as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
