// Package stats computes bookmark counts and summaries from the current
// snapshot. Nothing is cached: every call reflects the latest mutation.
package stats

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/nikbrunner/marks/internal/model"
)

// CountFor returns the number of bookmarks shown for folderID. The root
// counts every bookmark in the store; any other folder counts only the
// bookmarks directly inside it, not those of its subfolders.
func CountFor(store *model.Store, folderID string) (int, error) {
	if store.GetFolderByID(folderID) == nil {
		return 0, fmt.Errorf("folder %q: %w", folderID, model.ErrNotFound)
	}
	if folderID == model.RootID {
		return len(store.Bookmarks), nil
	}
	return len(store.GetBookmarksInFolder(folderID)), nil
}

// Counts returns CountFor for every folder, keyed by folder id.
func Counts(store *model.Store) map[string]int {
	counts := make(map[string]int, len(store.Folders))
	for _, f := range store.Folders {
		counts[f.ID] = 0
	}
	for _, b := range store.Bookmarks {
		if _, ok := counts[b.FolderID]; ok && b.FolderID != model.RootID {
			counts[b.FolderID]++
		}
	}
	counts[model.RootID] = len(store.Bookmarks)
	return counts
}

// Stats summarizes the store.
type Stats struct {
	TotalBookmarks  int              `json:"totalBookmarks"`
	TotalFolders    int              `json:"totalFolders"`
	RecentlyAdded   []model.Bookmark `json:"recentlyAdded"`
	RecentlyVisited []model.Bookmark `json:"recentlyVisited"`
}

// Summarize builds Stats with up to limit bookmarks in each list.
// TotalFolders excludes the root.
func Summarize(store *model.Store, limit int) Stats {
	limit = max(limit, 0)
	s := Stats{
		TotalBookmarks:  len(store.Bookmarks),
		RecentlyAdded:   []model.Bookmark{},
		RecentlyVisited: []model.Bookmark{},
	}
	for _, f := range store.Folders {
		if !f.IsRoot() {
			s.TotalFolders++
		}
	}

	added := slices.Clone(store.Bookmarks)
	slices.SortStableFunc(added, func(a, b model.Bookmark) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	s.RecentlyAdded = append(s.RecentlyAdded, added[:min(limit, len(added))]...)

	var visited []model.Bookmark
	for _, b := range store.Bookmarks {
		if b.LastVisited != nil {
			visited = append(visited, b)
		}
	}
	slices.SortStableFunc(visited, func(a, b model.Bookmark) int {
		return cmp.Compare(b.LastVisited.UnixNano(), a.LastVisited.UnixNano())
	})
	s.RecentlyVisited = append(s.RecentlyVisited, visited[:min(limit, len(visited))]...)

	return s
}
