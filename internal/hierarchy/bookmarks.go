package hierarchy

import (
	"context"
	"fmt"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/store"
)

// CreateBookmark validates params and inserts a new bookmark. An empty
// folder id places it in the root folder.
func (s *Service) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	var created model.Bookmark
	err := s.update(ctx, "create_bookmark", func(tx *store.Tx) error {
		b := model.NewBookmark(params)
		if err := model.ValidateBookmark(b); err != nil {
			return err
		}
		if err := requireFolder(tx, b.FolderID); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertBookmark(b)
		return err
	})
	return created, err
}

// UpdateBookmark applies patch to the bookmark with id. A folder id in the
// patch must name an existing folder; an empty one means the root.
func (s *Service) UpdateBookmark(ctx context.Context, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	var updated model.Bookmark
	err := s.update(ctx, "update_bookmark", func(tx *store.Tx) error {
		var err error
		updated, err = patchBookmark(tx, id, patch)
		return err
	})
	return updated, err
}

func patchBookmark(tx *store.Tx, id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	if _, err := tx.GetBookmark(id); err != nil {
		return model.Bookmark{}, err
	}
	if patch.FolderID != nil {
		folderID := *patch.FolderID
		if folderID == "" {
			folderID = model.RootID
		}
		if err := requireFolder(tx, folderID); err != nil {
			return model.Bookmark{}, err
		}
		patch.FolderID = &folderID
	}
	return tx.PatchBookmark(id, patch)
}

// MoveBookmark moves the bookmark with id into targetFolderID.
func (s *Service) MoveBookmark(ctx context.Context, id, targetFolderID string) (model.Bookmark, error) {
	var moved model.Bookmark
	err := s.update(ctx, "move_bookmark", func(tx *store.Tx) error {
		var err error
		moved, err = patchBookmark(tx, id, model.BookmarkPatch{FolderID: &targetFolderID})
		return err
	})
	return moved, err
}

// VisitBookmark records that the bookmark was opened now.
func (s *Service) VisitBookmark(ctx context.Context, id string) (model.Bookmark, error) {
	var visited model.Bookmark
	err := s.update(ctx, "visit_bookmark", func(tx *store.Tx) error {
		if _, err := tx.GetBookmark(id); err != nil {
			return err
		}
		now := tx.Now()
		var err error
		visited, err = tx.PatchBookmark(id, model.BookmarkPatch{LastVisited: &now})
		return err
	})
	return visited, err
}

// DeleteBookmark removes the bookmark with id.
func (s *Service) DeleteBookmark(ctx context.Context, id string) error {
	return s.update(ctx, "delete_bookmark", func(tx *store.Tx) error {
		return tx.RemoveBookmark(id)
	})
}

// requireFolder fails with ErrInvalidReference unless folderID exists.
func requireFolder(tx *store.Tx, folderID string) error {
	if tx.Snapshot().GetFolderByID(folderID) == nil {
		return fmt.Errorf("folder %q does not exist: %w", folderID, model.ErrInvalidReference)
	}
	return nil
}
