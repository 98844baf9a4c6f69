package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/store"
	"github.com/nikbrunner/marks/internal/tree"
)

// ImportResult counts what an import added.
type ImportResult struct {
	Folders   int `json:"folders"`
	Bookmarks int `json:"bookmarks"`
	// Skipped counts bookmarks whose URL was already stored.
	Skipped int `json:"skipped"`
}

// Import adds a batch of records. The whole batch is checked before
// anything is written and fails as a unit: the first invalid record aborts
// the import and the error names its index.
//
// Records refer to each other by their batch ids; every record gets a
// fresh store id and a fresh createdAt. A reference that is not a batch id
// must name an existing folder, and the batch folder "root" stands for the
// store's root. Bookmarks whose URL is already stored, or appears earlier
// in the batch, are skipped.
func (s *Service) Import(ctx context.Context, batch model.Batch) (ImportResult, error) {
	var res ImportResult
	err := s.update(ctx, "import", func(tx *store.Tx) error {
		var err error
		res, err = importBatch(tx, batch)
		return err
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func importBatch(tx *store.Tx, batch model.Batch) (ImportResult, error) {
	snap := tx.Snapshot()

	// Batch folders that become new store folders, keyed by batch id.
	local := make(map[string]model.Folder)
	var folders []int
	for i, f := range batch.Folders {
		if f.ID == model.RootID {
			continue
		}
		if f.ID != "" {
			if _, dup := local[f.ID]; dup {
				return ImportResult{}, fmt.Errorf("folders[%d]: duplicate id %q: %w", i, f.ID, model.ErrValidation)
			}
			local[f.ID] = f
		}
		folders = append(folders, i)
	}

	resolves := func(ref string) bool {
		_, ok := local[ref]
		return ok || snap.GetFolderByID(ref) != nil
	}

	for _, i := range folders {
		f := batch.Folders[i]
		if err := model.ValidateFolder(f); err != nil {
			return ImportResult{}, fmt.Errorf("folders[%d]: %w", i, err)
		}
		if parent := f.Parent(); !resolves(parent) {
			return ImportResult{}, fmt.Errorf("folders[%d]: parent %q does not exist: %w", i, parent, model.ErrInvalidReference)
		}
	}
	if err := checkBatchCycles(batch.Folders, local); err != nil {
		return ImportResult{}, err
	}

	var bookmarks []int
	var res ImportResult
	seenURL := make(map[string]bool)
	for i, b := range batch.Bookmarks {
		if b.FolderID == "" {
			b.FolderID = model.RootID
		}
		if err := model.ValidateBookmark(b); err != nil {
			return ImportResult{}, fmt.Errorf("bookmarks[%d]: %w", i, err)
		}
		if !resolves(b.FolderID) {
			return ImportResult{}, fmt.Errorf("bookmarks[%d]: folder %q does not exist: %w", i, b.FolderID, model.ErrInvalidReference)
		}
		if seenURL[b.URL] || snap.HasBookmarkURL(b.URL) {
			res.Skipped++
			continue
		}
		seenURL[b.URL] = true
		bookmarks = append(bookmarks, i)
	}

	// Everything checks out. Insert folders under the root first, then
	// point them at their remapped parents.
	ids := make(map[string]string, len(local))
	inserted := make([]model.Folder, 0, len(folders))
	for _, i := range folders {
		f := batch.Folders[i]
		f.ParentID = nil
		created, err := tx.InsertFolder(f)
		if err != nil {
			return ImportResult{}, fmt.Errorf("folders[%d]: %w", i, err)
		}
		if batch.Folders[i].ID != "" {
			ids[batch.Folders[i].ID] = created.ID
		}
		inserted = append(inserted, created)
	}
	remap := func(ref string) string {
		if id, ok := ids[ref]; ok {
			return id
		}
		return ref
	}
	for n, i := range folders {
		parentID := remap(batch.Folders[i].Parent())
		if _, err := tx.PatchFolder(inserted[n].ID, model.FolderPatch{ParentID: &parentID}); err != nil {
			return ImportResult{}, fmt.Errorf("folders[%d]: %w", i, err)
		}
	}
	res.Folders = len(inserted)

	for _, i := range bookmarks {
		b := batch.Bookmarks[i]
		if b.FolderID == "" {
			b.FolderID = model.RootID
		}
		b.FolderID = remap(b.FolderID)
		if _, err := tx.InsertBookmark(b); err != nil {
			return ImportResult{}, fmt.Errorf("bookmarks[%d]: %w", i, err)
		}
		res.Bookmarks++
	}

	return res, nil
}

// checkBatchCycles fails with ErrCyclicMove when parent links among the
// batch's own folders form a loop. Links leaving the batch end the walk.
func checkBatchCycles(all []model.Folder, local map[string]model.Folder) error {
	scratch := &model.Store{Folders: []model.Folder{model.NewRootFolder(time.Time{})}}
	for _, f := range local {
		scratch.Folders = append(scratch.Folders, f)
	}
	ix := tree.New(scratch)

	for i, f := range all {
		if f.ID == "" || f.ID == model.RootID {
			continue
		}
		_, err := ix.Path(f.ID)
		if errors.Is(err, model.ErrCycleDetected) {
			return fmt.Errorf("folders[%d]: %v: %w", i, err, model.ErrCyclicMove)
		}
	}
	return nil
}
