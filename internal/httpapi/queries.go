package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nikbrunner/marks/internal/model"
)

const defaultStatsLimit = 10

func counts(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := d.Service.Counts(r.Context())
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, c)
	}
}

func storeStats(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultStatsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, d, fmt.Errorf("%w: limit must be a non-negative integer, got %q", model.ErrValidation, raw))
				return
			}
			limit = n
		}
		s, err := d.Service.Stats(r.Context(), limit)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, s)
	}
}

func searchAll(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Service.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, res)
	}
}

func importBatch(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var batch model.Batch
		if err := decodeJSON(w, r, maxImportBytes, &batch); err != nil {
			writeError(w, d, err)
			return
		}
		res, err := d.Service.Import(r.Context(), batch)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
