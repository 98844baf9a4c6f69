package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/marks/internal/hierarchy"
	"github.com/nikbrunner/marks/internal/model"
)

type moveBookmarkRequest struct {
	FolderID string `json:"folderId"`
}

func listBookmarks(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := d.Service.ListBookmarks(r.Context(), hierarchy.ListOptions{
			FolderID: q.Get("folderId"),
			Sort:     q.Get("sort"),
		})
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, list)
	}
}

func createBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params model.NewBookmarkParams
		if err := decodeJSON(w, r, maxBodyBytes, &params); err != nil {
			writeError(w, d, err)
			return
		}
		if err := model.ValidateURL(params.URL); err != nil {
			writeError(w, d, err)
			return
		}
		b, err := d.Service.CreateBookmark(r.Context(), params)
		if err != nil {
			writeError(w, d, err)
			return
		}
		w.Header().Set("Location", "/api/bookmarks/"+b.ID)
		writeJSON(w, http.StatusCreated, b)
	}
}

func getBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := d.Service.GetBookmark(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, b)
	}
}

func updateBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch model.BookmarkPatch
		if err := decodeJSON(w, r, maxBodyBytes, &patch); err != nil {
			writeError(w, d, err)
			return
		}
		if patch.URL != nil {
			if err := model.ValidateURL(*patch.URL); err != nil {
				writeError(w, d, err)
				return
			}
		}
		b, err := d.Service.UpdateBookmark(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func moveBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveBookmarkRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			writeError(w, d, err)
			return
		}
		b, err := d.Service.MoveBookmark(r.Context(), chi.URLParam(r, "id"), req.FolderID)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func visitBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := d.Service.VisitBookmark(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func deleteBookmark(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Service.DeleteBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
