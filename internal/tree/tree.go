// Package tree derives the folder hierarchy from the flat parentId
// back-references held in a model.Store.
//
// An Index is built from one snapshot and never observes later mutations;
// build a fresh one after every change.
package tree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/marks/internal/model"
)

// PathSeparator joins folder names in DisplayPath.
const PathSeparator = " / "

// Index is a read-only adjacency view over a snapshot's folders.
type Index struct {
	byID     map[string]model.Folder
	children map[string][]model.Folder
}

// New builds an Index over the folders in store.
func New(store *model.Store) *Index {
	ix := &Index{
		byID:     make(map[string]model.Folder, len(store.Folders)),
		children: make(map[string][]model.Folder),
	}
	for _, f := range store.Folders {
		ix.byID[f.ID] = f
		if f.IsRoot() {
			continue
		}
		parent := f.Parent()
		ix.children[parent] = append(ix.children[parent], f)
	}
	return ix
}

// Folder returns the folder with id, if present.
func (ix *Index) Folder(id string) (model.Folder, bool) {
	f, ok := ix.byID[id]
	return f, ok
}

// Exists reports whether a folder with id is present.
func (ix *Index) Exists(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Children returns the direct subfolders of folderID in insertion order.
// Folders with no parentId are children of the root.
func (ix *Index) Children(folderID string) []model.Folder {
	return slices.Clone(ix.children[folderID])
}

// Path returns the folders from the root down to folderID, inclusive.
func (ix *Index) Path(folderID string) ([]model.Folder, error) {
	if !ix.Exists(folderID) {
		return nil, fmt.Errorf("folder %q: %w", folderID, model.ErrNotFound)
	}

	var chain []model.Folder
	seen := make(map[string]bool)
	for cur := folderID; ; {
		if seen[cur] {
			return nil, fmt.Errorf("resolving path of folder %q revisits %q: %w", folderID, cur, model.ErrCycleDetected)
		}
		seen[cur] = true

		f, ok := ix.byID[cur]
		if !ok {
			return nil, fmt.Errorf("folder %q has dangling parent %q: %w", folderID, cur, model.ErrInvalidReference)
		}
		chain = append(chain, f)
		if f.IsRoot() {
			break
		}
		cur = f.Parent()
	}

	slices.Reverse(chain)
	return chain, nil
}

// DisplayPath renders the path to folderID as "Work / Development".
// The root folder's name is only used for the root itself.
func (ix *Index) DisplayPath(folderID string) (string, error) {
	path, err := ix.Path(folderID)
	if err != nil {
		return "", err
	}
	if len(path) > 1 {
		path = path[1:]
	}
	names := make([]string, len(path))
	for i, f := range path {
		names[i] = f.Name
	}
	return strings.Join(names, PathSeparator), nil
}

// IsDescendant reports whether folderID appears in the ancestor chain of
// candidateParentID, candidateParentID itself included. Moving folderID
// under candidateParentID would then create a cycle.
//
// The walk stops on a revisit, so a corrupted hierarchy cannot loop.
func (ix *Index) IsDescendant(candidateParentID, folderID string) bool {
	seen := make(map[string]bool)
	for cur := candidateParentID; cur != "" && !seen[cur]; {
		if cur == folderID {
			return true
		}
		seen[cur] = true
		f, ok := ix.byID[cur]
		if !ok {
			return false
		}
		cur = f.Parent()
	}
	return false
}

// Descendants returns every folder below folderID, depth first.
func (ix *Index) Descendants(folderID string) []model.Folder {
	var out []model.Folder
	seen := map[string]bool{folderID: true}
	var walk func(id string)
	walk = func(id string) {
		for _, child := range ix.children[id] {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child)
			walk(child.ID)
		}
	}
	walk(folderID)
	return out
}
