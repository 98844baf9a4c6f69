package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/marks/internal/model"
)

// Result holds the bookmarks and folders matching a query, in store order.
type Result struct {
	Bookmarks []model.Bookmark `json:"bookmarks"`
	Folders   []model.Folder   `json:"folders"`
}

// Search finds bookmarks whose title, url or description contains query,
// and folders whose name contains it. Matching is case-insensitive. An
// empty query matches nothing.
func Search(store *model.Store, query string) Result {
	result := Result{
		Bookmarks: []model.Bookmark{},
		Folders:   []model.Folder{},
	}

	q := strings.ToLower(query)
	if q == "" {
		return result
	}

	for _, b := range store.Bookmarks {
		if contains(b.Title, q) || contains(b.URL, q) || contains(b.Description, q) {
			result.Bookmarks = append(result.Bookmarks, b)
		}
	}
	for _, f := range store.Folders {
		if contains(f.Name, q) {
			result.Folders = append(result.Folders, f)
		}
	}

	return result
}

func contains(field, lowerQuery string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), lowerQuery)
}

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       *model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkTitles implements fuzzy.Source for bookmark slice.
type bookmarkTitles []*model.Bookmark

func (bt bookmarkTitles) String(i int) string {
	return bt[i].Title
}

func (bt bookmarkTitles) Len() int {
	return len(bt)
}

// FuzzySearchBookmarks searches all bookmarks by title using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchBookmarks(store *model.Store, query string) []SearchResult {
	if query == "" {
		return nil
	}

	// Build slice of bookmark pointers
	bookmarks := make(bookmarkTitles, len(store.Bookmarks))
	for i := range store.Bookmarks {
		bookmarks[i] = &store.Bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, bookmarks)

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Bookmark:       bookmarks[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
