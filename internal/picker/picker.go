// Package picker is a small terminal UI for choosing one bookmark out of
// a list of fuzzy search matches.
package picker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Underline(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// linesPerItem is the height of one rendered result.
const linesPerItem = 2

// Picker lets the user pick one of a set of search results.
type Picker struct {
	results   []search.SearchResult
	query     string
	paths     map[string]string // folder id -> display path
	keys      KeyMap
	copy      func(string) error
	status    string
	cursor    int
	offset    int
	selected  bool
	cancelled bool
	width     int
	height    int
}

// Option configures a Picker.
type Option func(*Picker)

// WithFolderPaths shows each result's folder using paths, keyed by folder id.
func WithFolderPaths(paths map[string]string) Option {
	return func(p *Picker) { p.paths = paths }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(p *Picker) { p.copy = fn }
}

// New creates a Picker over results, best match first.
func New(results []search.SearchResult, query string, opts ...Option) Picker {
	p := Picker{
		results: results,
		query:   query,
		keys:    DefaultKeyMap(),
		copy:    clipboard.WriteAll,
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.scroll()
		return p, nil

	case tea.KeyMsg:
		p.status = ""
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Top):
			p.cursor = 0

		case key.Matches(msg, p.keys.Bottom):
			p.cursor = max(len(p.results)-1, 0)

		case key.Matches(msg, p.keys.Yank):
			if b := p.current(); b != nil {
				if err := p.copy(b.URL); err != nil {
					p.status = "copy failed: " + err.Error()
				} else {
					p.status = "copied " + b.URL
				}
			}
		}
		p.scroll()
	}

	return p, nil
}

// visible is the number of results that fit on screen.
func (p Picker) visible() int {
	// header (with margin) and footer take four lines
	return max((p.height-4)/linesPerItem, 1)
}

func (p *Picker) scroll() {
	n := p.visible()
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+n {
		p.offset = p.cursor - n + 1
	}
}

func (p Picker) current() *model.Bookmark {
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Bookmark
	}
	return nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n")

	if len(p.results) == 0 {
		b.WriteString(normalStyle.Render("  No matches"))
		b.WriteString("\n")
	}

	end := min(p.offset+p.visible(), len(p.results))
	for i := p.offset; i < end; i++ {
		result := p.results[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		title := highlight(result.Bookmark.Title, result.MatchedIndexes, style)
		if path, ok := p.paths[result.Bookmark.FolderID]; ok && path != "" {
			title += "  " + pathStyle.Render(path)
		}

		b.WriteString(cursor + title + "\n")
		b.WriteString("   " + urlStyle.Render(result.Bookmark.URL) + "\n")
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(footerStyle.Render(p.status))
	} else {
		b.WriteString(footerStyle.Render(helpLine(p.keys.ShortHelp())))
	}

	return b.String()
}

// highlight renders title with the fuzzy-matched bytes emphasized.
func highlight(title string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(title)
	}
	var b strings.Builder
	for i, r := range title {
		if slices.Contains(matched, i) {
			b.WriteString(matchStyle.Inherit(base).Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// SelectedBookmark returns the selected bookmark, or nil if cancelled.
func (p Picker) SelectedBookmark() *model.Bookmark {
	if p.cancelled || !p.selected {
		return nil
	}
	return p.current()
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

// Run shows the picker on the terminal and returns the chosen bookmark,
// or nil when the user cancelled.
func Run(results []search.SearchResult, query string, opts ...Option) (*model.Bookmark, error) {
	final, err := tea.NewProgram(New(results, query, opts...)).Run()
	if err != nil {
		return nil, err
	}
	return final.(Picker).SelectedBookmark(), nil
}
