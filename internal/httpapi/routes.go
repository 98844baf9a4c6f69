package httpapi

import (
	"github.com/go-chi/chi/v5"
)

func registerRoutes(r chi.Router, d Deps) {
	r.Get("/healthz", healthz(d))
	r.Get("/readyz", readyz(d))
	if d.Metrics != nil {
		r.Method("GET", "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", listBookmarks(d))
			r.Post("/", createBookmark(d))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getBookmark(d))
				r.Patch("/", updateBookmark(d))
				r.Put("/", updateBookmark(d))
				r.Delete("/", deleteBookmark(d))
				r.Post("/move", moveBookmark(d))
				r.Post("/visit", visitBookmark(d))
			})
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", listFolders(d))
			r.Post("/", createFolder(d))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getFolder(d))
				r.Patch("/", updateFolder(d))
				r.Put("/", updateFolder(d))
				r.Delete("/", deleteFolder(d))
				r.Post("/move", moveFolder(d))
				r.Get("/children", folderChildren(d))
				r.Get("/descendants", folderDescendants(d))
				r.Get("/path", folderPath(d))
				r.Get("/count", folderCount(d))
			})
		})

		r.Get("/counts", counts(d))
		r.Get("/stats", storeStats(d))
		r.Get("/search", searchAll(d))
		r.Post("/import", importBatch(d))
	})
}
