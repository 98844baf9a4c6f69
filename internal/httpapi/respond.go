package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"

	"github.com/nikbrunner/marks/internal/logger"
	"github.com/nikbrunner/marks/internal/model"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 32 << 20
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeCached writes v with an ETag derived from its encoding and answers
// 304 when the client already holds that version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	etag := `"` + strconv.FormatUint(xxh3.Hash(body), 16) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrCyclicMove):
		return http.StatusConflict
	case errors.Is(err, model.ErrImmutableRoot):
		return http.StatusForbidden
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, d Deps, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		d.Logger.Error("request failed", logger.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: model.ErrorKind(err), Message: msg})
}

// decodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", model.ErrValidation)
		}
		return fmt.Errorf("%w: invalid request body: %v", model.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single object", model.ErrValidation)
	}
	return nil
}
