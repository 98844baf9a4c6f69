package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		printHelp(out)
		return nil
	}
	switch args[0] {
	case "help", "--help", "-h":
		printHelp(out)
		return nil
	case "version", "--version":
		fmt.Fprintf(out, "marks %s\n", version)
		return nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	switch args[0] {
	case "serve":
		return runServe(ctx, a)
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("usage: marks import <file.json>")
		}
		return runImport(ctx, a, args[1], out)
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: marks add <url> [title]")
		}
		return runAdd(ctx, a, args[1], strings.Join(args[2:], " "), out)
	case "ls":
		folderID := ""
		if len(args) >= 2 {
			folderID = args[1]
		}
		return runList(ctx, a, folderID, out)
	case "tree":
		return runTree(ctx, a, out)
	case "stats":
		return runStats(ctx, a, out)
	case "cull":
		deleteDead := len(args) >= 2 && args[1] == "--delete"
		return runCull(ctx, a, deleteDead, out)
	default:
		// Treat as search query (join all remaining args)
		return runQuickSearch(ctx, a, strings.Join(args, " "), out)
	}
}

func printHelp(out io.Writer) {
	help := `marks - hierarchical bookmark store

Usage:
  marks <query>             Quick search → select → open
  marks add <url> [title]   Add a bookmark to the quick-add folder
  marks ls [folderId]       List bookmarks (all, or one folder)
  marks tree                Show the folder tree with counts
  marks stats               Show totals and recent activity
  marks import <file.json>  Import {"folders": [...], "bookmarks": [...]}
  marks cull [--delete]     Check links, optionally delete dead ones
  marks serve               Run the HTTP API
  marks version             Print the version
  marks help                Show this help

Picker Keybindings:
  j/k         Move down/up
  g/G         Jump to first/last
  Enter       Open bookmark
  y           Copy URL to clipboard
  q/Esc       Cancel

Configuration:
  ~/.config/marks/config.yaml (or $MARKS_CONFIG), .env, MARKS_* variables
`
	fmt.Fprint(out, help)
}
