package model

// Batch is a set of records handed over by an importer. Records may refer
// to each other through their batch-local ids.
type Batch struct {
	Folders   []Folder   `json:"folders"`
	Bookmarks []Bookmark `json:"bookmarks"`
}
