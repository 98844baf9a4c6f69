package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/nikbrunner/marks/internal/model"
)

// Tx is a mutation in progress. It is only valid inside the Update
// callback that received it.
type Tx struct {
	data  *model.Store
	newID func() string
	now   func() time.Time
	last  time.Time
	dirty bool
}

// Snapshot returns the working copy, including changes made so far.
// Callers must not modify it directly.
func (tx *Tx) Snapshot() *model.Store {
	return tx.data
}

// Now returns the current time, never earlier than any timestamp already
// handed out by the store.
func (tx *Tx) Now() time.Time {
	t := tx.now()
	if t.Before(tx.last) {
		t = tx.last
	}
	tx.last = t
	return t
}

// Get returns the record of kind with id.
func (tx *Tx) Get(kind model.Kind, id string) (any, error) {
	switch kind {
	case model.KindBookmark:
		return tx.GetBookmark(id)
	case model.KindFolder:
		return tx.GetFolder(id)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// GetBookmark returns a copy of the bookmark with id.
func (tx *Tx) GetBookmark(id string) (model.Bookmark, error) {
	b := tx.data.GetBookmarkByID(id)
	if b == nil {
		return model.Bookmark{}, fmt.Errorf("bookmark %q: %w", id, model.ErrNotFound)
	}
	return *b, nil
}

// GetFolder returns a copy of the folder with id.
func (tx *Tx) GetFolder(id string) (model.Folder, error) {
	f := tx.data.GetFolderByID(id)
	if f == nil {
		return model.Folder{}, fmt.Errorf("folder %q: %w", id, model.ErrNotFound)
	}
	return *f, nil
}

// List returns every record of kind in insertion order, as a
// []model.Bookmark or []model.Folder.
func (tx *Tx) List(kind model.Kind) (any, error) {
	switch kind {
	case model.KindBookmark:
		return tx.Bookmarks(), nil
	case model.KindFolder:
		return tx.Folders(), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// Bookmarks returns the bookmarks in insertion order.
func (tx *Tx) Bookmarks() []model.Bookmark {
	return slices.Clone(tx.data.Bookmarks)
}

// Folders returns the folders in insertion order.
func (tx *Tx) Folders() []model.Folder {
	return slices.Clone(tx.data.Folders)
}

// InsertBookmark validates b, assigns a fresh id and createdAt, and appends
// it. Nothing is allocated when validation fails.
func (tx *Tx) InsertBookmark(b model.Bookmark) (model.Bookmark, error) {
	if err := model.ValidateBookmark(b); err != nil {
		return model.Bookmark{}, err
	}
	id, err := tx.allocate(model.KindBookmark)
	if err != nil {
		return model.Bookmark{}, err
	}
	b.ID = id
	b.CreatedAt = tx.Now()
	tx.data.Bookmarks = append(tx.data.Bookmarks, b)
	tx.dirty = true
	return b, nil
}

// InsertFolder validates f, assigns a fresh id and createdAt, and appends it.
func (tx *Tx) InsertFolder(f model.Folder) (model.Folder, error) {
	if err := model.ValidateFolder(f); err != nil {
		return model.Folder{}, err
	}
	id, err := tx.allocate(model.KindFolder)
	if err != nil {
		return model.Folder{}, err
	}
	f.ID = id
	f.CreatedAt = tx.Now()
	tx.data.Folders = append(tx.data.Folders, f)
	tx.dirty = true
	return f, nil
}

// allocate draws an id that no record of kind uses.
func (tx *Tx) allocate(kind model.Kind) (string, error) {
	id := tx.newID()
	var taken bool
	switch kind {
	case model.KindBookmark:
		taken = tx.data.GetBookmarkByID(id) != nil
	case model.KindFolder:
		taken = id == model.RootID || tx.data.GetFolderByID(id) != nil
	}
	if id == "" || taken {
		return "", fmt.Errorf("id generator returned unusable %s id %q", kind, id)
	}
	return id, nil
}

// PatchBookmark merges patch into the bookmark with id. The id and
// createdAt are preserved.
func (tx *Tx) PatchBookmark(id string, patch model.BookmarkPatch) (model.Bookmark, error) {
	b := tx.data.GetBookmarkByID(id)
	if b == nil {
		return model.Bookmark{}, fmt.Errorf("bookmark %q: %w", id, model.ErrNotFound)
	}
	updated := *b
	patch.Apply(&updated)
	if err := model.ValidateBookmark(updated); err != nil {
		return model.Bookmark{}, err
	}
	*b = updated
	tx.dirty = true
	return updated, nil
}

// PatchFolder merges patch into the folder with id.
func (tx *Tx) PatchFolder(id string, patch model.FolderPatch) (model.Folder, error) {
	f := tx.data.GetFolderByID(id)
	if f == nil {
		return model.Folder{}, fmt.Errorf("folder %q: %w", id, model.ErrNotFound)
	}
	updated := *f
	patch.Apply(&updated)
	if err := model.ValidateFolder(updated); err != nil {
		return model.Folder{}, err
	}
	*f = updated
	tx.dirty = true
	return updated, nil
}

// Remove deletes the record of kind with id.
func (tx *Tx) Remove(kind model.Kind, id string) error {
	switch kind {
	case model.KindBookmark:
		return tx.RemoveBookmark(id)
	case model.KindFolder:
		return tx.RemoveFolder(id)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
}

// RemoveBookmark deletes the bookmark with id.
func (tx *Tx) RemoveBookmark(id string) error {
	i := slices.IndexFunc(tx.data.Bookmarks, func(b model.Bookmark) bool { return b.ID == id })
	if i < 0 {
		return fmt.Errorf("bookmark %q: %w", id, model.ErrNotFound)
	}
	tx.data.Bookmarks = slices.Delete(tx.data.Bookmarks, i, i+1)
	tx.dirty = true
	return nil
}

// RemoveFolder deletes the folder with id. It does not touch records that
// reference the folder.
func (tx *Tx) RemoveFolder(id string) error {
	i := slices.IndexFunc(tx.data.Folders, func(f model.Folder) bool { return f.ID == id })
	if i < 0 {
		return fmt.Errorf("folder %q: %w", id, model.ErrNotFound)
	}
	tx.data.Folders = slices.Delete(tx.data.Folders, i, i+1)
	tx.dirty = true
	return nil
}
