package hierarchy

import (
	"context"
	"fmt"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/store"
	"github.com/nikbrunner/marks/internal/tree"
)

// DeleteResult describes what a folder deletion changed.
type DeleteResult struct {
	Folder model.Folder `json:"folder"`
	// ParentID is where the folder's contents were moved.
	ParentID            string `json:"parentId"`
	ReparentedBookmarks int    `json:"reparentedBookmarks"`
	ReparentedFolders   int    `json:"reparentedFolders"`
}

// CreateFolder validates params and inserts a new folder. An empty parent
// id places it under the root.
func (s *Service) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	var created model.Folder
	err := s.update(ctx, "create_folder", func(tx *store.Tx) error {
		f := model.NewFolder(params)
		if err := model.ValidateFolder(f); err != nil {
			return err
		}
		// The new id is not known yet, so no existing folder can be its
		// descendant; only the parent needs to exist.
		if err := requireFolder(tx, f.Parent()); err != nil {
			return err
		}
		var err error
		created, err = tx.InsertFolder(f)
		return err
	})
	return created, err
}

// UpdateFolder applies patch to the folder with id. The root may only
// change color.
func (s *Service) UpdateFolder(ctx context.Context, id string, patch model.FolderPatch) (model.Folder, error) {
	var updated model.Folder
	err := s.update(ctx, "update_folder", func(tx *store.Tx) error {
		var err error
		updated, err = patchFolder(tx, id, patch)
		return err
	})
	return updated, err
}

// MoveFolder reparents the folder with id under targetParentID.
func (s *Service) MoveFolder(ctx context.Context, id, targetParentID string) (model.Folder, error) {
	var moved model.Folder
	err := s.update(ctx, "move_folder", func(tx *store.Tx) error {
		var err error
		moved, err = patchFolder(tx, id, model.FolderPatch{ParentID: &targetParentID})
		return err
	})
	return moved, err
}

func patchFolder(tx *store.Tx, id string, patch model.FolderPatch) (model.Folder, error) {
	f, err := tx.GetFolder(id)
	if err != nil {
		return model.Folder{}, err
	}

	if f.IsRoot() {
		if patch.Name != nil && *patch.Name != f.Name {
			return model.Folder{}, fmt.Errorf("rename root folder: %w", model.ErrImmutableRoot)
		}
		if patch.ParentID != nil {
			return model.Folder{}, fmt.Errorf("reparent root folder: %w", model.ErrImmutableRoot)
		}
	}

	if patch.ParentID != nil {
		parentID := *patch.ParentID
		if parentID == "" {
			parentID = model.RootID
		}
		if err := requireFolder(tx, parentID); err != nil {
			return model.Folder{}, err
		}
		if tree.New(tx.Snapshot()).IsDescendant(parentID, id) {
			return model.Folder{}, fmt.Errorf("move folder %q under %q: %w", id, parentID, model.ErrCyclicMove)
		}
		patch.ParentID = &parentID
	}

	return tx.PatchFolder(id, patch)
}

// DeleteFolder removes the folder with id. Its direct bookmarks and direct
// subfolders move up to the folder's parent; nothing below it is deleted.
func (s *Service) DeleteFolder(ctx context.Context, id string) (DeleteResult, error) {
	var res DeleteResult
	err := s.update(ctx, "delete_folder", func(tx *store.Tx) error {
		f, err := tx.GetFolder(id)
		if err != nil {
			return err
		}
		if f.IsRoot() {
			return fmt.Errorf("delete root folder: %w", model.ErrImmutableRoot)
		}

		parentID := f.Parent()
		res = DeleteResult{Folder: f, ParentID: parentID}

		for _, b := range tx.Bookmarks() {
			if b.FolderID != id {
				continue
			}
			if _, err := tx.PatchBookmark(b.ID, model.BookmarkPatch{FolderID: &parentID}); err != nil {
				return err
			}
			res.ReparentedBookmarks++
		}
		for _, child := range tx.Folders() {
			if child.IsRoot() || child.Parent() != id {
				continue
			}
			if _, err := tx.PatchFolder(child.ID, model.FolderPatch{ParentID: &parentID}); err != nil {
				return err
			}
			res.ReparentedFolders++
		}

		return tx.RemoveFolder(id)
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return res, nil
}
