package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/marks/internal/model"
)

type moveFolderRequest struct {
	ParentID string `json:"parentId"`
}

type countResponse struct {
	FolderID string `json:"folderId"`
	Count    int    `json:"count"`
}

func listFolders(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Service.ListFolders(r.Context())
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, list)
	}
}

func createFolder(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params model.NewFolderParams
		if err := decodeJSON(w, r, maxBodyBytes, &params); err != nil {
			writeError(w, d, err)
			return
		}
		f, err := d.Service.CreateFolder(r.Context(), params)
		if err != nil {
			writeError(w, d, err)
			return
		}
		w.Header().Set("Location", "/api/folders/"+f.ID)
		writeJSON(w, http.StatusCreated, f)
	}
}

func getFolder(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := d.Service.GetFolder(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, f)
	}
}

func updateFolder(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch model.FolderPatch
		if err := decodeJSON(w, r, maxBodyBytes, &patch); err != nil {
			writeError(w, d, err)
			return
		}
		f, err := d.Service.UpdateFolder(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

func moveFolder(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveFolderRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			writeError(w, d, err)
			return
		}
		f, err := d.Service.MoveFolder(r.Context(), chi.URLParam(r, "id"), req.ParentID)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

func deleteFolder(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Service.DeleteFolder(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func folderChildren(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Service.Children(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, list)
	}
}

func folderDescendants(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Service.Descendants(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, list)
	}
}

func folderPath(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := d.Service.FolderPath(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeCached(w, r, path)
	}
}

func folderCount(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		n, err := d.Service.CountFor(r.Context(), id)
		if err != nil {
			writeError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{FolderID: id, Count: n})
	}
}
