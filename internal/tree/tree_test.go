package tree_test

import (
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/tree"
)

func stringPtr(s string) *string { return &s }

// testStore builds:
//
//	root
//	├── work
//	│   ├── dev
//	│   │   └── go
//	│   └── design
//	└── personal (nil parentId)
func testStore() *model.Store {
	return &model.Store{
		Folders: []model.Folder{
			model.NewRootFolder(time.Now()),
			{ID: "work", Name: "Work", ParentID: stringPtr(model.RootID)},
			{ID: "personal", Name: "Personal"},
			{ID: "dev", Name: "Development", ParentID: stringPtr("work")},
			{ID: "design", Name: "Design", ParentID: stringPtr("work")},
			{ID: "go", Name: "Go", ParentID: stringPtr("dev")},
		},
	}
}

func folderIDs(folders []model.Folder) []string {
	ids := make([]string, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}
	return ids
}

func TestIndex_Children(t *testing.T) {
	ix := tree.New(testStore())

	assert.DeepEqual(t, folderIDs(ix.Children(model.RootID)), []string{"work", "personal"})
	assert.DeepEqual(t, folderIDs(ix.Children("work")), []string{"dev", "design"})
	assert.Check(t, is.Len(ix.Children("go"), 0))
	assert.Check(t, is.Len(ix.Children("missing"), 0))
}

func TestIndex_Path(t *testing.T) {
	ix := tree.New(testStore())

	tests := []struct {
		id   string
		want []string
	}{
		{id: model.RootID, want: []string{model.RootID}},
		{id: "personal", want: []string{model.RootID, "personal"}},
		{id: "go", want: []string{model.RootID, "work", "dev", "go"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			path, err := ix.Path(tt.id)
			assert.NilError(t, err)
			assert.DeepEqual(t, folderIDs(path), tt.want)
		})
	}
}

func TestIndex_Path_NotFound(t *testing.T) {
	_, err := tree.New(testStore()).Path("missing")
	assert.Check(t, errors.Is(err, model.ErrNotFound))
}

func TestIndex_Path_DanglingParent(t *testing.T) {
	store := testStore()
	store.Folders = append(store.Folders, model.Folder{ID: "orphan", Name: "Orphan", ParentID: stringPtr("gone")})

	_, err := tree.New(store).Path("orphan")
	assert.Check(t, errors.Is(err, model.ErrInvalidReference))
}

func TestIndex_Path_CycleDetected(t *testing.T) {
	store := testStore()
	// a <-> b, never reaching root
	store.Folders = append(store.Folders,
		model.Folder{ID: "a", Name: "A", ParentID: stringPtr("b")},
		model.Folder{ID: "b", Name: "B", ParentID: stringPtr("a")},
	)

	_, err := tree.New(store).Path("a")
	assert.Check(t, errors.Is(err, model.ErrCycleDetected))
}

func TestIndex_DisplayPath(t *testing.T) {
	ix := tree.New(testStore())

	got, err := ix.DisplayPath("go")
	assert.NilError(t, err)
	assert.Equal(t, got, "Work / Development / Go")

	got, err = ix.DisplayPath(model.RootID)
	assert.NilError(t, err)
	assert.Equal(t, got, model.RootName)
}

func TestIndex_IsDescendant(t *testing.T) {
	ix := tree.New(testStore())

	tests := []struct {
		name            string
		candidateParent string
		folder          string
		want            bool
	}{
		{name: "self", candidateParent: "work", folder: "work", want: true},
		{name: "direct child", candidateParent: "dev", folder: "work", want: true},
		{name: "grandchild", candidateParent: "go", folder: "work", want: true},
		{name: "sibling", candidateParent: "design", folder: "dev", want: false},
		{name: "ancestor is not descendant", candidateParent: "work", folder: "go", want: false},
		{name: "root", candidateParent: model.RootID, folder: "work", want: false},
		{name: "unknown candidate", candidateParent: "missing", folder: "work", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ix.IsDescendant(tt.candidateParent, tt.folder), tt.want)
		})
	}
}

func TestIndex_IsDescendant_TerminatesOnCycle(t *testing.T) {
	store := testStore()
	store.Folders = append(store.Folders,
		model.Folder{ID: "a", Name: "A", ParentID: stringPtr("b")},
		model.Folder{ID: "b", Name: "B", ParentID: stringPtr("a")},
	)

	assert.Check(t, !tree.New(store).IsDescendant("a", "work"))
}

func TestIndex_Descendants(t *testing.T) {
	ix := tree.New(testStore())

	assert.DeepEqual(t, folderIDs(ix.Descendants("work")), []string{"dev", "go", "design"})
	assert.Check(t, is.Len(ix.Descendants(model.RootID), 5))
}
