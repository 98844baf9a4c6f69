package hierarchy

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/search"
	"github.com/nikbrunner/marks/internal/stats"
	"github.com/nikbrunner/marks/internal/tree"
)

// Sort orders accepted by ListBookmarks.
const (
	SortDate = "date"
	SortName = "name"
	SortURL  = "url"
)

// ListOptions filters and orders ListBookmarks.
type ListOptions struct {
	// FolderID limits the list to bookmarks directly inside the folder.
	// Empty or the root id lists every bookmark.
	FolderID string
	// Sort is SortDate (newest first, the default), SortName or SortURL.
	Sort string
}

// GetBookmark returns the bookmark with id.
func (s *Service) GetBookmark(ctx context.Context, id string) (model.Bookmark, error) {
	var b model.Bookmark
	err := s.view("get_bookmark", func(snap *model.Store) error {
		found := snap.GetBookmarkByID(id)
		if found == nil {
			return fmt.Errorf("bookmark %q: %w", id, model.ErrNotFound)
		}
		b = *found
		if b.LastVisited != nil {
			visited := *b.LastVisited
			b.LastVisited = &visited
		}
		return nil
	})
	return b, err
}

// GetFolder returns the folder with id.
func (s *Service) GetFolder(ctx context.Context, id string) (model.Folder, error) {
	var f model.Folder
	err := s.view("get_folder", func(snap *model.Store) error {
		found := snap.GetFolderByID(id)
		if found == nil {
			return fmt.Errorf("folder %q: %w", id, model.ErrNotFound)
		}
		f = *found
		if f.ParentID != nil {
			parentID := *f.ParentID
			f.ParentID = &parentID
		}
		return nil
	})
	return f, err
}

// ListBookmarks returns bookmarks filtered and sorted by opts.
func (s *Service) ListBookmarks(ctx context.Context, opts ListOptions) ([]model.Bookmark, error) {
	compare, err := bookmarkOrder(opts.Sort)
	if err != nil {
		return nil, err
	}

	var out []model.Bookmark
	err = s.view("list_bookmarks", func(snap *model.Store) error {
		switch opts.FolderID {
		case "", model.RootID:
			out = snap.Clone().Bookmarks
		default:
			if snap.GetFolderByID(opts.FolderID) == nil {
				return fmt.Errorf("folder %q: %w", opts.FolderID, model.ErrNotFound)
			}
			out = (&model.Store{Bookmarks: snap.GetBookmarksInFolder(opts.FolderID)}).Clone().Bookmarks
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, compare)
	return out, nil
}

func bookmarkOrder(sort string) (func(a, b model.Bookmark) int, error) {
	switch sort {
	case "", SortDate:
		return func(a, b model.Bookmark) int { return b.CreatedAt.Compare(a.CreatedAt) }, nil
	case SortName:
		return func(a, b model.Bookmark) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}, nil
	case SortURL:
		return func(a, b model.Bookmark) int { return cmp.Compare(a.URL, b.URL) }, nil
	default:
		return nil, fmt.Errorf("unknown sort %q: %w", sort, model.ErrValidation)
	}
}

// ListFolders returns every folder, the root included, in insertion order.
func (s *Service) ListFolders(ctx context.Context) ([]model.Folder, error) {
	var out []model.Folder
	err := s.view("list_folders", func(snap *model.Store) error {
		out = snap.Clone().Folders
		return nil
	})
	return out, err
}

// Children returns the direct subfolders of folderID.
func (s *Service) Children(ctx context.Context, folderID string) ([]model.Folder, error) {
	var out []model.Folder
	err := s.view("children", func(snap *model.Store) error {
		ix := tree.New(snap.Clone())
		if !ix.Exists(folderID) {
			return fmt.Errorf("folder %q: %w", folderID, model.ErrNotFound)
		}
		out = ix.Children(folderID)
		if out == nil {
			out = []model.Folder{}
		}
		return nil
	})
	return out, err
}

// Descendants returns every folder below folderID, depth first.
func (s *Service) Descendants(ctx context.Context, folderID string) ([]model.Folder, error) {
	var out []model.Folder
	err := s.view("descendants", func(snap *model.Store) error {
		ix := tree.New(snap.Clone())
		if !ix.Exists(folderID) {
			return fmt.Errorf("folder %q: %w", folderID, model.ErrNotFound)
		}
		out = ix.Descendants(folderID)
		if out == nil {
			out = []model.Folder{}
		}
		return nil
	})
	return out, err
}

// Path returns the folders from the root down to folderID.
func (s *Service) Path(ctx context.Context, folderID string) ([]model.Folder, error) {
	var out []model.Folder
	err := s.view("path", func(snap *model.Store) error {
		var err error
		out, err = tree.New(snap.Clone()).Path(folderID)
		return err
	})
	return out, err
}

// DisplayPath returns the path to folderID as "Work / Development".
func (s *Service) DisplayPath(ctx context.Context, folderID string) (string, error) {
	var out string
	err := s.view("display_path", func(snap *model.Store) error {
		var err error
		out, err = tree.New(snap).DisplayPath(folderID)
		return err
	})
	return out, err
}

// FolderPath is a folder's path and its display form, read from one snapshot.
type FolderPath struct {
	Folders []model.Folder `json:"folders"`
	Display string         `json:"display"`
}

// FolderPath returns Path and DisplayPath for folderID together.
func (s *Service) FolderPath(ctx context.Context, folderID string) (FolderPath, error) {
	var out FolderPath
	err := s.view("folder_path", func(snap *model.Store) error {
		ix := tree.New(snap.Clone())
		path, err := ix.Path(folderID)
		if err != nil {
			return err
		}
		display, err := ix.DisplayPath(folderID)
		if err != nil {
			return err
		}
		out = FolderPath{Folders: path, Display: display}
		return nil
	})
	return out, err
}

// Search matches query against bookmarks and folders.
func (s *Service) Search(ctx context.Context, query string) (search.Result, error) {
	var res search.Result
	err := s.view("search", func(snap *model.Store) error {
		res = search.Search(snap.Clone(), query)
		return nil
	})
	return res, err
}

// CountFor returns the bookmark count shown for folderID.
func (s *Service) CountFor(ctx context.Context, folderID string) (int, error) {
	var n int
	err := s.view("count", func(snap *model.Store) error {
		var err error
		n, err = stats.CountFor(snap, folderID)
		return err
	})
	return n, err
}

// Counts returns CountFor for every folder.
func (s *Service) Counts(ctx context.Context) (map[string]int, error) {
	var counts map[string]int
	err := s.view("counts", func(snap *model.Store) error {
		counts = stats.Counts(snap)
		return nil
	})
	return counts, err
}

// Stats summarizes the store with up to limit bookmarks per list.
func (s *Service) Stats(ctx context.Context, limit int) (stats.Stats, error) {
	var st stats.Stats
	err := s.view("stats", func(snap *model.Store) error {
		st = stats.Summarize(snap.Clone(), limit)
		return nil
	})
	return st, err
}
