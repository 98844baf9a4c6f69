package stats_test

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/stats"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return base.AddDate(0, 0, n) }

func testStore() *model.Store {
	root := model.RootID
	work := "work"
	visitedA, visitedB := day(10), day(20)
	return &model.Store{
		Folders: []model.Folder{
			model.NewRootFolder(base),
			{ID: "work", Name: "Work", ParentID: &root},
			{ID: "dev", Name: "Development", ParentID: &work},
			{ID: "empty", Name: "Empty", ParentID: &root},
		},
		Bookmarks: []model.Bookmark{
			{ID: "b1", Title: "A", URL: "http://a", FolderID: "work", CreatedAt: day(1), LastVisited: &visitedA},
			{ID: "b2", Title: "B", URL: "http://b", FolderID: "dev", CreatedAt: day(3)},
			{ID: "b3", Title: "C", URL: "http://c", FolderID: "dev", CreatedAt: day(2), LastVisited: &visitedB},
			{ID: "b4", Title: "D", URL: "http://d", FolderID: model.RootID, CreatedAt: day(4)},
		},
	}
}

func TestCountFor(t *testing.T) {
	store := testStore()

	tests := []struct {
		folder string
		want   int
	}{
		{folder: model.RootID, want: 4},
		// direct children only: dev's bookmarks are not counted for work
		{folder: "work", want: 1},
		{folder: "dev", want: 2},
		{folder: "empty", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			got, err := stats.CountFor(store, tt.folder)
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestCountFor_UnknownFolder(t *testing.T) {
	_, err := stats.CountFor(testStore(), "missing")
	assert.Check(t, errors.Is(err, model.ErrNotFound))
}

func TestCounts_MatchesCountFor(t *testing.T) {
	store := testStore()
	counts := stats.Counts(store)

	assert.Check(t, is.Len(counts, len(store.Folders)))
	for _, f := range store.Folders {
		want, err := stats.CountFor(store, f.ID)
		assert.NilError(t, err)
		assert.Equal(t, counts[f.ID], want, "folder %s", f.ID)
	}
}

func TestSummarize(t *testing.T) {
	s := stats.Summarize(testStore(), 2)

	assert.Equal(t, s.TotalBookmarks, 4)
	assert.Equal(t, s.TotalFolders, 3)

	assert.Assert(t, is.Len(s.RecentlyAdded, 2))
	assert.Equal(t, s.RecentlyAdded[0].ID, "b4")
	assert.Equal(t, s.RecentlyAdded[1].ID, "b2")

	assert.Assert(t, is.Len(s.RecentlyVisited, 2))
	assert.Equal(t, s.RecentlyVisited[0].ID, "b3")
	assert.Equal(t, s.RecentlyVisited[1].ID, "b1")
}

func TestSummarize_EmptyStore(t *testing.T) {
	s := stats.Summarize(model.NewStore(), 5)

	assert.Equal(t, s.TotalBookmarks, 0)
	assert.Equal(t, s.TotalFolders, 0)
	assert.Check(t, s.RecentlyAdded != nil)
	assert.Check(t, s.RecentlyVisited != nil)
}
