package model

// Kind names an entity type held by the store.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindFolder   Kind = "folder"
)
