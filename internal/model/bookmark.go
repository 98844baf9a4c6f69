package model

import "time"

// Bookmark represents a saved URL with metadata.
type Bookmark struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"notblank"`
	URL         string     `json:"url" validate:"notblank"`
	Description string     `json:"description,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Favicon     string     `json:"favicon,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	FolderID    string     `json:"folderId" validate:"required"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastVisited *time.Time `json:"lastVisited,omitempty"` // nil = never visited
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
// An empty FolderID places the bookmark in the root folder.
type NewBookmarkParams struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	Notes       string `json:"notes,omitempty"`
	FolderID    string `json:"folderId,omitempty"`
}

// NewBookmark builds an unsaved Bookmark from params. ID and CreatedAt are
// left zero; the entity store assigns them on insert.
func NewBookmark(params NewBookmarkParams) Bookmark {
	folderID := params.FolderID
	if folderID == "" {
		folderID = RootID
	}

	return Bookmark{
		Title:       params.Title,
		URL:         params.URL,
		Description: params.Description,
		Thumbnail:   params.Thumbnail,
		Favicon:     params.Favicon,
		Notes:       params.Notes,
		FolderID:    folderID,
	}
}

// BookmarkPatch is a partial update. Nil fields are left untouched.
type BookmarkPatch struct {
	Title       *string    `json:"title,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Description *string    `json:"description,omitempty"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
	Favicon     *string    `json:"favicon,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	FolderID    *string    `json:"folderId,omitempty"`
	LastVisited *time.Time `json:"lastVisited,omitempty"`
}

// Apply merges the patch into b. ID and CreatedAt are never touched.
func (p BookmarkPatch) Apply(b *Bookmark) {
	setString(&b.Title, p.Title)
	setString(&b.URL, p.URL)
	setString(&b.Description, p.Description)
	setString(&b.Thumbnail, p.Thumbnail)
	setString(&b.Favicon, p.Favicon)
	setString(&b.Notes, p.Notes)
	setString(&b.FolderID, p.FolderID)
	if p.LastVisited != nil {
		t := *p.LastVisited
		b.LastVisited = &t
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
