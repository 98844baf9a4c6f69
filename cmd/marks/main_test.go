package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/marks/internal/config"
	"github.com/nikbrunner/marks/internal/logger"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/search"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "memory"
	a, err := newApp(context.Background(), &cfg, logger.Nop())
	assert.NilError(t, err)
	t.Cleanup(a.close)
	return a
}

func stubBrowser(t *testing.T) *[]string {
	t.Helper()
	var opened []string
	orig := openURL
	openURL = func(url string) error {
		opened = append(opened, url)
		return nil
	}
	t.Cleanup(func() { openURL = orig })
	return &opened
}

func TestRun_Help(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"-h"}} {
		var out bytes.Buffer
		assert.NilError(t, run(context.Background(), args, &out))
		assert.Check(t, is.Contains(out.String(), "marks add <url> [title]"))
	}
}

func TestRun_UsesConfiguredStorage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MARKS_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("MARKS_STORAGE_BACKEND", "json")
	t.Setenv("MARKS_STORAGE_PATH", filepath.Join(dir, "bookmarks.json"))
	t.Setenv("MARKS_LOG_LEVEL", "error")
	ctx := context.Background()

	var out bytes.Buffer
	assert.NilError(t, run(ctx, []string{"add", "https://go.dev", "The", "Go", "site"}, &out))
	assert.Equal(t, out.String(), "Added The Go site to Read Later\n")

	out.Reset()
	assert.NilError(t, run(ctx, []string{"stats"}, &out))
	assert.Check(t, is.Contains(out.String(), "Bookmarks: 1\n"))
	assert.Check(t, is.Contains(out.String(), "Folders:   1\n"))

	_, err := os.Stat(filepath.Join(dir, "bookmarks.json"))
	assert.NilError(t, err)

	err = run(ctx, []string{"import"}, &out)
	assert.ErrorContains(t, err, "usage: marks import")
}

func TestAdd_ReusesQuickAddFolder(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	var out bytes.Buffer

	assert.NilError(t, runAdd(ctx, a, "https://go.dev", "", &out))
	assert.NilError(t, runAdd(ctx, a, "https://pkg.go.dev", "Packages", &out))

	folders, err := a.svc.Children(ctx, model.RootID)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(folders, 1))
	assert.Equal(t, folders[0].Name, "Read Later")

	n, err := a.svc.CountFor(ctx, folders[0].ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 2)

	res, err := a.svc.Search(ctx, "https://go.dev")
	assert.NilError(t, err)
	assert.Assert(t, is.Len(res.Bookmarks, 1))
	assert.Equal(t, res.Bookmarks[0].Title, "https://go.dev")
}

func TestAdd_RejectsRelativeURL(t *testing.T) {
	a := newTestApp(t)
	err := runAdd(context.Background(), a, "go.dev", "", &bytes.Buffer{})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestImportListTreeStats(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	file := filepath.Join(t.TempDir(), "batch.json")
	assert.NilError(t, os.WriteFile(file, []byte(`{
		"folders": [
			{"id": "dev", "name": "Dev"},
			{"id": "go", "name": "Go", "parentId": "dev"},
			{"id": "news", "name": "News"}
		],
		"bookmarks": [
			{"id": "1", "title": "Go", "url": "https://go.dev", "folderId": "go"},
			{"id": "2", "title": "Go again", "url": "https://go.dev", "folderId": "go"},
			{"id": "3", "title": "HN", "url": "https://news.ycombinator.com", "folderId": "news"},
			{"id": "4", "title": "Lobsters", "url": "https://lobste.rs", "folderId": "root"}
		]
	}`), 0o644))

	var out bytes.Buffer
	assert.NilError(t, runImport(ctx, a, file, &out))
	assert.Equal(t, out.String(), "Imported 3 bookmarks, 3 folders (1 duplicates skipped)\n")

	out.Reset()
	assert.NilError(t, runTree(ctx, a, &out))
	assert.Equal(t, out.String(), `All Bookmarks (3)
├── Dev (0)
│   └── Go (1)
└── News (1)
`)

	out.Reset()
	assert.NilError(t, runList(ctx, a, "", &out))
	assert.Check(t, is.Contains(out.String(), "Dev/"))
	assert.Check(t, is.Contains(out.String(), "https://lobste.rs"))
	assert.Check(t, is.Contains(out.String(), "https://go.dev"))

	out.Reset()
	assert.NilError(t, runList(ctx, a, folderNamed(t, a, "Dev"), &out))
	assert.Equal(t, out.String(), fmt.Sprintf("%-40s %s\n", "Go/", folderNamed(t, a, "Go")))

	err := runList(ctx, a, "missing", &out)
	assert.ErrorIs(t, err, model.ErrNotFound)

	out.Reset()
	assert.NilError(t, runStats(ctx, a, &out))
	assert.Check(t, is.Contains(out.String(), "Bookmarks: 3\nFolders:   3\n"))
	assert.Check(t, is.Contains(out.String(), "Recently visited:\n  (none)\n"))
}

func folderNamed(t *testing.T, a *app, name string) string {
	t.Helper()
	folders, err := a.svc.ListFolders(context.Background())
	assert.NilError(t, err)
	for _, f := range folders {
		if f.Name == name {
			return f.ID
		}
	}
	t.Fatalf("no folder named %q", name)
	return ""
}

func TestImport_InvalidBatchLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	file := filepath.Join(t.TempDir(), "batch.json")
	assert.NilError(t, os.WriteFile(file, []byte(`{
		"folders": [{"id": "a", "name": "A", "parentId": "ghost"}]
	}`), 0o644))

	err := runImport(ctx, a, file, &bytes.Buffer{})
	assert.ErrorIs(t, err, model.ErrInvalidReference)
	assert.ErrorContains(t, err, "folders[0]")

	folders, err := a.svc.ListFolders(ctx)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(folders, 1))
}

func TestQuickSearch(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	opened := stubBrowser(t)

	gh, err := a.svc.CreateBookmark(ctx, model.NewBookmarkParams{Title: "GitHub", URL: "https://github.com"})
	assert.NilError(t, err)
	gl, err := a.svc.CreateBookmark(ctx, model.NewBookmarkParams{Title: "GitLab", URL: "https://gitlab.com"})
	assert.NilError(t, err)

	t.Run("no match", func(t *testing.T) {
		var out bytes.Buffer
		assert.NilError(t, runQuickSearch(ctx, a, "zzz", &out))
		assert.Equal(t, out.String(), "No bookmarks found for 'zzz'\n")
	})

	t.Run("single match opens directly", func(t *testing.T) {
		var out bytes.Buffer
		assert.NilError(t, runQuickSearch(ctx, a, "github", &out))
		assert.Equal(t, out.String(), "Opening: GitHub\n")
		assert.DeepEqual(t, *opened, []string{"https://github.com"})

		b, err := a.svc.GetBookmark(ctx, gh.ID)
		assert.NilError(t, err)
		assert.Assert(t, b.LastVisited != nil)
	})

	t.Run("several matches go through the picker", func(t *testing.T) {
		orig := pick
		t.Cleanup(func() { pick = orig })
		var offered int
		pick = func(results []search.SearchResult, query string, paths map[string]string) (*model.Bookmark, error) {
			offered = len(results)
			for _, r := range results {
				if r.Bookmark.ID == gl.ID {
					return r.Bookmark, nil
				}
			}
			return nil, nil
		}

		assert.NilError(t, runQuickSearch(ctx, a, "git", &bytes.Buffer{}))
		assert.Equal(t, offered, 2)
		assert.Equal(t, (*opened)[len(*opened)-1], "https://gitlab.com")
	})

	t.Run("cancelled picker opens nothing", func(t *testing.T) {
		orig := pick
		t.Cleanup(func() { pick = orig })
		pick = func([]search.SearchResult, string, map[string]string) (*model.Bookmark, error) {
			return nil, nil
		}
		before := len(*opened)

		assert.NilError(t, runQuickSearch(ctx, a, "git", &bytes.Buffer{}))
		assert.Equal(t, len(*opened), before)
	})
}

func TestCull(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/alive", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := a.svc.CreateBookmark(ctx, model.NewBookmarkParams{Title: "Alive", URL: srv.URL + "/alive"})
	assert.NilError(t, err)
	gone, err := a.svc.CreateBookmark(ctx, model.NewBookmarkParams{Title: "Gone", URL: srv.URL + "/gone"})
	assert.NilError(t, err)

	var out bytes.Buffer
	assert.NilError(t, runCull(ctx, a, false, &out))
	assert.Check(t, is.Contains(out.String(), "Checked 2 bookmarks: 1 healthy, 1 dead, 0 unreachable"))
	assert.Check(t, is.Contains(out.String(), "dead         410  Gone"))
	_, err = a.svc.GetBookmark(ctx, gone.ID)
	assert.NilError(t, err)

	out.Reset()
	assert.NilError(t, runCull(ctx, a, true, &out))
	assert.Check(t, is.Contains(out.String(), "Deleted 1 dead bookmarks"))
	_, err = a.svc.GetBookmark(ctx, gone.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStorageOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "redis"
	cfg.Storage.RedisKey = "team"
	cfg.Storage.RedisLockTTL = 5 * time.Second

	opts := storageOptions(cfg.Storage)
	assert.Equal(t, opts.Backend, "redis")
	assert.Equal(t, opts.RedisAddr, "localhost:6379")
	assert.Equal(t, opts.RedisPrefix, "team")
	assert.Equal(t, opts.RedisLockTTL, 5*time.Second)
}
