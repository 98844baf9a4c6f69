package model

import "time"

// Store holds all bookmarks and folders. Slices keep insertion order.
type Store struct {
	Folders   []Folder   `json:"folders"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// NewStore creates a Store containing only the root folder.
func NewStore() *Store {
	return &Store{
		Folders:   []Folder{NewRootFolder(time.Now().UTC())},
		Bookmarks: []Bookmark{},
	}
}

// EnsureRoot inserts the root folder at the front if it is missing and
// normalizes nil slices. It reports whether the store was changed.
func (s *Store) EnsureRoot(now time.Time) bool {
	if s.Folders == nil {
		s.Folders = []Folder{}
	}
	if s.Bookmarks == nil {
		s.Bookmarks = []Bookmark{}
	}
	if root := s.GetFolderByID(RootID); root != nil {
		root.ParentID = nil
		return false
	}
	s.Folders = append([]Folder{NewRootFolder(now)}, s.Folders...)
	return true
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	out := &Store{
		Folders:   make([]Folder, len(s.Folders)),
		Bookmarks: make([]Bookmark, len(s.Bookmarks)),
	}
	for i, f := range s.Folders {
		if f.ParentID != nil {
			p := *f.ParentID
			f.ParentID = &p
		}
		out.Folders[i] = f
	}
	for i, b := range s.Bookmarks {
		if b.LastVisited != nil {
			v := *b.LastVisited
			b.LastVisited = &v
		}
		out.Bookmarks[i] = b
	}
	return out
}

// GetFoldersInFolder returns folders whose effective parent is parentID.
// Pass RootID for top level folders.
func (s *Store) GetFoldersInFolder(parentID string) []Folder {
	var result []Folder
	for _, f := range s.Folders {
		if !f.IsRoot() && f.Parent() == parentID {
			result = append(result, f)
		}
	}
	return result
}

// GetBookmarksInFolder returns bookmarks directly inside folderID.
func (s *Store) GetBookmarksInFolder(folderID string) []Bookmark {
	var result []Bookmark
	for _, b := range s.Bookmarks {
		if b.FolderID == folderID {
			result = append(result, b)
		}
	}
	return result
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *Store) GetFolderByID(id string) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// GetBookmarkByID finds a bookmark by ID, returns nil if not found.
func (s *Store) GetBookmarkByID(id string) *Bookmark {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// HasBookmarkURL reports whether any bookmark already points at url.
func (s *Store) HasBookmarkURL(url string) bool {
	for _, b := range s.Bookmarks {
		if b.URL == url {
			return true
		}
	}
	return false
}
