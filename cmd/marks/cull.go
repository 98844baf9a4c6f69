package main

import (
	"context"
	"fmt"
	"io"

	"github.com/nikbrunner/marks/internal/culler"
	"github.com/nikbrunner/marks/internal/hierarchy"
	"github.com/nikbrunner/marks/internal/logger"
)

// runCull checks every bookmark URL and reports dead and unreachable ones.
// With deleteDead, dead bookmarks are removed.
func runCull(ctx context.Context, a *app, deleteDead bool, out io.Writer) error {
	bookmarks, err := a.svc.ListBookmarks(ctx, hierarchy.ListOptions{})
	if err != nil {
		return err
	}

	results, err := culler.Check(ctx, bookmarks, culler.Options{
		Concurrency:    a.cfg.Cull.Concurrency,
		Timeout:        a.cfg.Cull.Timeout,
		ExcludeDomains: a.cfg.Cull.ExcludeDomains,
		OnProgress: func(completed, total int) {
			a.log.Debug("checked url", logger.Int("completed", completed), logger.Int("total", total))
		},
	})
	if err != nil {
		return err
	}

	dead := culler.Filter(results, culler.Dead)
	unreachable := culler.Filter(results, culler.Unreachable)
	fmt.Fprintf(out, "Checked %d bookmarks: %d healthy, %d dead, %d unreachable\n",
		len(results), len(results)-len(dead)-len(unreachable), len(dead), len(unreachable))

	for _, r := range dead {
		fmt.Fprintf(out, "  dead         %d  %s  %s\n", r.StatusCode, r.Bookmark.Title, r.Bookmark.URL)
	}
	for _, r := range unreachable {
		fmt.Fprintf(out, "  unreachable  %s  %s  (%s)\n", r.Bookmark.Title, r.Bookmark.URL, r.Error)
	}

	if !deleteDead || len(dead) == 0 {
		return nil
	}
	for _, r := range dead {
		if err := a.svc.DeleteBookmark(ctx, r.Bookmark.ID); err != nil {
			return fmt.Errorf("delete %s: %w", r.Bookmark.ID, err)
		}
	}
	fmt.Fprintf(out, "Deleted %d dead bookmarks\n", len(dead))
	return nil
}
