package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/storage"
	"github.com/nikbrunner/marks/internal/store"
)

// sequence returns an id generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) (func() string, *int) {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}, &n
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newStore(t *testing.T, backend storage.Storage, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), backend, opts...)
	assert.NilError(t, err)
	return s
}

func TestNew_InsertsRoot(t *testing.T) {
	backend := storage.NewMemoryStorage(nil)
	s := newStore(t, backend)

	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Folders, 1))
	assert.Equal(t, snap.Folders[0].ID, model.RootID)
	assert.Equal(t, snap.Folders[0].Name, model.RootName)
	assert.Equal(t, backend.Saves(), 1)
}

func TestNew_KeepsExistingRoot(t *testing.T) {
	backend := storage.NewMemoryStorage(model.NewStore())
	newStore(t, backend)
	assert.Equal(t, backend.Saves(), 0)
}

func TestNew_LoadError(t *testing.T) {
	_, err := store.New(context.Background(), failingStorage{loadErr: errors.New("disk gone")})
	assert.ErrorContains(t, err, "load store: disk gone")
}

func TestUpdate_InsertAssignsIDAndCreatedAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ids, _ := sequence("b")
	s := newStore(t, storage.NewMemoryStorage(nil), store.WithIDGenerator(ids), store.WithClock(fixedClock(now)))

	var got model.Bookmark
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		var err error
		got, err = tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"}))
		return err
	})
	assert.NilError(t, err)
	assert.Equal(t, got.ID, "b-1")
	assert.Assert(t, got.CreatedAt.Equal(now))
	assert.Equal(t, got.FolderID, model.RootID)

	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Bookmarks, 1))
	assert.Equal(t, snap.Bookmarks[0].ID, "b-1")
}

func TestUpdate_ValidationDoesNotConsumeIDs(t *testing.T) {
	ids, n := sequence("b")
	s := newStore(t, storage.NewMemoryStorage(nil), store.WithIDGenerator(ids))

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{Title: "  ", URL: "https://x.test"}))
		return err
	})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.ErrorContains(t, err, "title is required")
	assert.Equal(t, *n, 0)
	assert.Assert(t, is.Len(s.Snapshot().Bookmarks, 0))
}

func TestUpdate_RejectedMutationLeavesStoreUntouched(t *testing.T) {
	backend := storage.NewMemoryStorage(model.NewStore())
	s := newStore(t, backend)

	sentinel := errors.New("abort")
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		if _, err := tx.InsertFolder(model.NewFolder(model.NewFolderParams{Name: "Work"})); err != nil {
			return err
		}
		// Visible inside the transaction.
		assert.Assert(t, is.Len(tx.Snapshot().Folders, 2))
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Assert(t, is.Len(s.Snapshot().Folders, 1))
	assert.Equal(t, backend.Saves(), 0)
}

func TestUpdate_NoChangesSkipsSave(t *testing.T) {
	backend := storage.NewMemoryStorage(model.NewStore())
	s := newStore(t, backend)

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.GetFolder(model.RootID)
		return err
	})
	assert.NilError(t, err)
	assert.Equal(t, backend.Saves(), 0)
}

func TestUpdate_SaveFailureKeepsSnapshot(t *testing.T) {
	backend := &failingStorage{inner: storage.NewMemoryStorage(model.NewStore())}
	s := newStore(t, backend)
	backend.saveErr = errors.New("read-only")

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.InsertFolder(model.NewFolder(model.NewFolderParams{Name: "Work"}))
		return err
	})
	assert.ErrorContains(t, err, "save store: read-only")
	assert.Assert(t, is.Len(s.Snapshot().Folders, 1))
}

func TestTx_CreatedAtIsMonotonic(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), // clock stepped back
		time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
	}
	i := 0
	clock := func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
	// The root is created from the first clock reading.
	s := newStore(t, storage.NewMemoryStorage(nil), store.WithClock(clock))

	var created []time.Time
	for range 3 {
		i = len(created)
		err := s.Update(context.Background(), func(tx *store.Tx) error {
			f, err := tx.InsertFolder(model.NewFolder(model.NewFolderParams{Name: "F"}))
			created = append(created, f.CreatedAt)
			return err
		})
		assert.NilError(t, err)
	}
	assert.Assert(t, created[1].Equal(created[0]), "clock going back reuses the previous timestamp")
	assert.Assert(t, created[2].After(created[1]))
}

func TestTx_GetNotFound(t *testing.T) {
	s := newStore(t, storage.NewMemoryStorage(nil))
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.Get(model.KindBookmark, "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = tx.Get(model.KindFolder, "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
		root, err := tx.Get(model.KindFolder, model.RootID)
		assert.NilError(t, err)
		assert.Equal(t, root.(model.Folder).Name, model.RootName)
		return nil
	})
	assert.NilError(t, err)
}

func TestTx_ListInInsertionOrder(t *testing.T) {
	s := newStore(t, storage.NewMemoryStorage(nil))

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		for _, title := range []string{"B", "A", "C"} {
			if _, err := tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{Title: title, URL: "https://" + title + ".dev"})); err != nil {
				return err
			}
		}
		if _, err := tx.InsertFolder(model.NewFolder(model.NewFolderParams{Name: "Work"})); err != nil {
			return err
		}

		got, err := tx.List(model.KindBookmark)
		assert.NilError(t, err)
		var titles []string
		for _, b := range got.([]model.Bookmark) {
			titles = append(titles, b.Title)
		}
		assert.DeepEqual(t, titles, []string{"B", "A", "C"})

		got, err = tx.List(model.KindFolder)
		assert.NilError(t, err)
		folders := got.([]model.Folder)
		assert.Assert(t, is.Len(folders, 2))
		assert.Equal(t, folders[0].ID, model.RootID)
		assert.Equal(t, folders[1].Name, "Work")

		_, err = tx.List(model.Kind("tag"))
		assert.ErrorContains(t, err, "unknown kind")
		return nil
	})
	assert.NilError(t, err)
}

func TestTx_PatchPreservesIdentity(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newStore(t, storage.NewMemoryStorage(nil), store.WithClock(fixedClock(now)))

	var id string
	assert.NilError(t, s.Update(context.Background(), func(tx *store.Tx) error {
		b, err := tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"}))
		id = b.ID
		return err
	}))

	title := "The Go Programming Language"
	assert.NilError(t, s.Update(context.Background(), func(tx *store.Tx) error {
		b, err := tx.PatchBookmark(id, model.BookmarkPatch{Title: &title})
		assert.NilError(t, err)
		assert.Equal(t, b.ID, id)
		assert.Equal(t, b.URL, "https://go.dev")
		assert.Assert(t, b.CreatedAt.Equal(now))
		return nil
	}))
	assert.Equal(t, s.Snapshot().Bookmarks[0].Title, title)

	empty := ""
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.PatchBookmark(id, model.BookmarkPatch{Title: &empty})
		return err
	})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, s.Snapshot().Bookmarks[0].Title, title)

	err = s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.PatchFolder("missing", model.FolderPatch{Name: &title})
		return err
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTx_Remove(t *testing.T) {
	s := newStore(t, storage.NewMemoryStorage(nil))

	var folderID, bookmarkID string
	assert.NilError(t, s.Update(context.Background(), func(tx *store.Tx) error {
		f, err := tx.InsertFolder(model.NewFolder(model.NewFolderParams{Name: "Work"}))
		if err != nil {
			return err
		}
		b, err := tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{Title: "Go", URL: "https://go.dev", FolderID: f.ID}))
		folderID, bookmarkID = f.ID, b.ID
		return err
	}))

	assert.NilError(t, s.Update(context.Background(), func(tx *store.Tx) error {
		if err := tx.Remove(model.KindBookmark, bookmarkID); err != nil {
			return err
		}
		return tx.Remove(model.KindFolder, folderID)
	}))
	snap := s.Snapshot()
	assert.Assert(t, is.Len(snap.Bookmarks, 0))
	assert.Assert(t, is.Len(snap.Folders, 1))

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		return tx.RemoveBookmark(bookmarkID)
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTx_RejectsCollidingIDs(t *testing.T) {
	s := newStore(t, storage.NewMemoryStorage(nil), store.WithIDGenerator(func() string { return model.RootID }))
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		_, err := tx.InsertFolder(model.NewFolder(model.NewFolderParams{Name: "Work"}))
		return err
	})
	assert.ErrorContains(t, err, "unusable folder id")
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newStore(t, storage.NewMemoryStorage(nil))
	snap := s.Snapshot()
	snap.Folders[0].Name = "changed"
	assert.Equal(t, s.Snapshot().Folders[0].Name, model.RootName)
}

func TestUpdate_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	s := newStore(t, storage.NewMemoryStorage(nil))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(context.Background(), func(tx *store.Tx) error {
				_, err := tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{
					Title: fmt.Sprintf("b%d", i), URL: fmt.Sprintf("https://%d.test", i),
				}))
				return err
			})
			assert.Check(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.View(func(snap *model.Store) error {
				assert.Check(t, snap.GetFolderByID(model.RootID) != nil)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Assert(t, is.Len(s.Snapshot().Bookmarks, 20))
}

func TestUpdate_SharedFileReloadsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.json")

	// Two stores over one file stand in for two processes.
	a := newStore(t, storage.NewJSONStorage(path, storage.JSONOptions{}))
	b := newStore(t, storage.NewJSONStorage(path, storage.JSONOptions{}))

	insert := func(s *store.Store, title string) {
		t.Helper()
		assert.NilError(t, s.Update(ctx, func(tx *store.Tx) error {
			_, err := tx.InsertBookmark(model.NewBookmark(model.NewBookmarkParams{Title: title, URL: "https://" + title + ".test"}))
			return err
		}))
	}
	insert(a, "first")
	insert(b, "second")

	reopened := newStore(t, storage.NewJSONStorage(path, storage.JSONOptions{}))
	assert.Assert(t, is.Len(reopened.Snapshot().Bookmarks, 2))
	assert.Assert(t, is.Len(b.Snapshot().Bookmarks, 2))
}

// failingStorage wraps a backend and injects errors.
type failingStorage struct {
	inner   storage.Storage
	loadErr error
	saveErr error
}

func (f failingStorage) Load(ctx context.Context) (*model.Store, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.inner.Load(ctx)
}

func (f failingStorage) Save(ctx context.Context, s *model.Store) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.inner.Save(ctx, s)
}
