package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nikbrunner/marks/internal/hierarchy"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/picker"
	"github.com/nikbrunner/marks/internal/search"
	"github.com/nikbrunner/marks/internal/tree"
)

const recentLimit = 5

// openURL opens a URL in the default browser.
var openURL = func(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("don't know how to open a browser on %s", runtime.GOOS)
	}
	return cmd.Start()
}

// pick lets the user choose among several results.
var pick = func(results []search.SearchResult, query string, paths map[string]string) (*model.Bookmark, error) {
	return picker.Run(results, query, picker.WithFolderPaths(paths))
}

// runQuickSearch performs a fuzzy search and opens the selected bookmark.
func runQuickSearch(ctx context.Context, a *app, query string, out io.Writer) error {
	snapshot := a.svc.Store().Snapshot()
	results := search.FuzzySearchBookmarks(snapshot, query)
	if len(results) == 0 {
		fmt.Fprintf(out, "No bookmarks found for '%s'\n", query)
		return nil
	}

	var selected *model.Bookmark
	if len(results) == 1 {
		// Single result - select it directly
		selected = results[0].Bookmark
		fmt.Fprintf(out, "Opening: %s\n", selected.Title)
	} else {
		var err error
		if selected, err = pick(results, query, folderPaths(snapshot)); err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if selected == nil {
			return nil
		}
	}

	if _, err := a.svc.VisitBookmark(ctx, selected.ID); err != nil {
		return err
	}
	return openURL(selected.URL)
}

// folderPaths maps every folder id to its display path.
func folderPaths(snapshot *model.Store) map[string]string {
	ix := tree.New(snapshot)
	paths := make(map[string]string, len(snapshot.Folders))
	for _, f := range snapshot.Folders {
		if f.IsRoot() {
			continue
		}
		if p, err := ix.DisplayPath(f.ID); err == nil {
			paths[f.ID] = p
		}
	}
	return paths
}

// runImport reads a JSON batch and imports it as one unit.
func runImport(ctx context.Context, a *app, filePath string, out io.Writer) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	var batch model.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}

	res, err := a.svc.Import(ctx, batch)
	if err != nil {
		return fmt.Errorf("import %s: %w", filePath, err)
	}

	fmt.Fprintf(out, "Imported %d bookmarks, %d folders", res.Bookmarks, res.Folders)
	if res.Skipped > 0 {
		fmt.Fprintf(out, " (%d duplicates skipped)", res.Skipped)
	}
	fmt.Fprintln(out)
	return nil
}

// runAdd stores url in the quick-add folder, creating the folder under
// root when it does not exist yet.
func runAdd(ctx context.Context, a *app, url, title string, out io.Writer) error {
	if err := model.ValidateURL(url); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		title = url
	}

	folderID, err := quickAddFolder(ctx, a)
	if err != nil {
		return err
	}
	b, err := a.svc.CreateBookmark(ctx, model.NewBookmarkParams{
		Title:    title,
		URL:      url,
		FolderID: folderID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %s to %s\n", b.Title, a.cfg.QuickAddFolder)
	return nil
}

func quickAddFolder(ctx context.Context, a *app) (string, error) {
	name := a.cfg.QuickAddFolder
	if name == "" {
		return model.RootID, nil
	}
	children, err := a.svc.Children(ctx, model.RootID)
	if err != nil {
		return "", err
	}
	for _, f := range children {
		if f.Name == name {
			return f.ID, nil
		}
	}
	f, err := a.svc.CreateFolder(ctx, model.NewFolderParams{Name: name})
	if err != nil {
		return "", err
	}
	return f.ID, nil
}

// runList prints a folder's subfolders and its bookmarks. The root lists
// every bookmark.
func runList(ctx context.Context, a *app, folderID string, out io.Writer) error {
	if folderID == "" {
		folderID = model.RootID
	}
	folders, err := a.svc.Children(ctx, folderID)
	if err != nil {
		return err
	}
	bookmarks, err := a.svc.ListBookmarks(ctx, hierarchy.ListOptions{FolderID: folderID})
	if err != nil {
		return err
	}

	for _, f := range folders {
		fmt.Fprintf(out, "%-40s %s\n", f.Name+"/", f.ID)
	}
	for _, b := range bookmarks {
		fmt.Fprintf(out, "%-40s %s\n", b.Title, b.URL)
	}
	if len(folders) == 0 && len(bookmarks) == 0 {
		fmt.Fprintln(out, "(empty)")
	}
	return nil
}

// runTree prints the folder hierarchy with bookmark counts.
func runTree(ctx context.Context, a *app, out io.Writer) error {
	snapshot := a.svc.Store().Snapshot()
	counts, err := a.svc.Counts(ctx)
	if err != nil {
		return err
	}
	ix := tree.New(snapshot)

	fmt.Fprintf(out, "%s (%d)\n", model.RootName, counts[model.RootID])
	var walk func(parentID, prefix string)
	walk = func(parentID, prefix string) {
		children := ix.Children(parentID)
		for i, f := range children {
			branch, indent := "├── ", "│   "
			if i == len(children)-1 {
				branch, indent = "└── ", "    "
			}
			fmt.Fprintf(out, "%s%s%s (%d)\n", prefix, branch, f.Name, counts[f.ID])
			walk(f.ID, prefix+indent)
		}
	}
	walk(model.RootID, "")
	return nil
}

// runStats prints totals and the most recent activity.
func runStats(ctx context.Context, a *app, out io.Writer) error {
	s, err := a.svc.Stats(ctx, recentLimit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Bookmarks: %d\n", s.TotalBookmarks)
	fmt.Fprintf(out, "Folders:   %d\n", s.TotalFolders)

	fmt.Fprintln(out, "\nRecently added:")
	printRecent(out, s.RecentlyAdded)
	fmt.Fprintln(out, "\nRecently visited:")
	printRecent(out, s.RecentlyVisited)
	return nil
}

func printRecent(out io.Writer, bookmarks []model.Bookmark) {
	if len(bookmarks) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for _, b := range bookmarks {
		fmt.Fprintf(out, "  %-38s %s\n", b.Title, b.URL)
	}
}
