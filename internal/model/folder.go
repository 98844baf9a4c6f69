package model

import (
	"slices"
	"time"
)

const (
	// RootID is the id of the folder every other folder descends from.
	RootID = "root"
	// RootName is the display name of the root folder.
	RootName = "All Bookmarks"
)

// Colors is the folder color palette.
var Colors = []string{"blue", "green", "purple", "pink", "orange", "red", "gray"}

// Folder represents a container for bookmarks and other folders.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"notblank"`
	ParentID  *string   `json:"parentId,omitempty"` // nil = child of root
	Color     string    `json:"color,omitempty" validate:"omitempty,oneof=blue green purple pink orange red gray"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsRoot reports whether f is the root folder.
func (f Folder) IsRoot() bool {
	return f.ID == RootID
}

// Parent returns the effective parent id: RootID when ParentID is unset,
// and "" for the root folder itself.
func (f Folder) Parent() string {
	if f.IsRoot() {
		return ""
	}
	if f.ParentID == nil || *f.ParentID == "" {
		return RootID
	}
	return *f.ParentID
}

// NewFolderParams holds parameters for creating a new Folder.
// An empty ParentID places the folder directly under root.
type NewFolderParams struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Color    string `json:"color,omitempty"`
}

// NewFolder builds an unsaved Folder from params.
func NewFolder(params NewFolderParams) Folder {
	parentID := params.ParentID
	if parentID == "" {
		parentID = RootID
	}

	return Folder{
		Name:     params.Name,
		ParentID: &parentID,
		Color:    params.Color,
	}
}

// NewRootFolder returns the root folder record.
func NewRootFolder(createdAt time.Time) Folder {
	return Folder{
		ID:        RootID,
		Name:      RootName,
		CreatedAt: createdAt,
	}
}

// FolderPatch is a partial update. Nil fields are left untouched.
type FolderPatch struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
	Color    *string `json:"color,omitempty"`
}

// Apply merges the patch into f. ID and CreatedAt are never touched.
func (p FolderPatch) Apply(f *Folder) {
	setString(&f.Name, p.Name)
	setString(&f.Color, p.Color)
	if p.ParentID != nil {
		parentID := *p.ParentID
		f.ParentID = &parentID
	}
}

// ValidColor reports whether c is empty or part of the palette.
func ValidColor(c string) bool {
	return c == "" || slices.Contains(Colors, c)
}
