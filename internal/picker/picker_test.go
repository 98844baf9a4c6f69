package picker

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/search"
)

func twoResults() []search.SearchResult {
	return []search.SearchResult{
		{Bookmark: &model.Bookmark{ID: "b1", Title: "GitHub", URL: "https://github.com", FolderID: "f1"}},
		{Bookmark: &model.Bookmark{ID: "b2", Title: "GitLab", URL: "https://gitlab.com", FolderID: model.RootID}},
	}
}

func press(p Picker, msg tea.KeyMsg) (Picker, tea.Cmd) {
	m, cmd := p.Update(msg)
	return m.(Picker), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPicker_InitialState(t *testing.T) {
	p := New(twoResults(), "git")

	assert.Equal(t, p.cursor, 0)
	assert.Equal(t, len(p.results), 2)
	assert.Assert(t, p.SelectedBookmark() == nil)
}

func TestPicker_Navigation(t *testing.T) {
	tests := []struct {
		name  string
		start int
		keys  []tea.KeyMsg
		want  int
	}{
		{"j moves down", 0, []tea.KeyMsg{runes("j")}, 1},
		{"k moves up", 1, []tea.KeyMsg{runes("k")}, 0},
		{"down arrow", 0, []tea.KeyMsg{{Type: tea.KeyDown}}, 1},
		{"up arrow", 1, []tea.KeyMsg{{Type: tea.KeyUp}}, 0},
		{"stays at top", 0, []tea.KeyMsg{runes("k")}, 0},
		{"stays at bottom", 1, []tea.KeyMsg{runes("j"), runes("j")}, 1},
		{"G jumps to last", 0, []tea.KeyMsg{runes("G")}, 1},
		{"g jumps to first", 1, []tea.KeyMsg{runes("g")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(twoResults(), "git")
			p.cursor = tt.start
			for _, k := range tt.keys {
				p, _ = press(p, k)
			}
			assert.Equal(t, p.cursor, tt.want)
		})
	}
}

func TestPicker_SelectItem(t *testing.T) {
	results := twoResults()
	results[1].Bookmark.CreatedAt = time.Now()
	p := New(results, "git")
	p.cursor = 1

	p, cmd := press(p, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Assert(t, p.selected)
	assert.Assert(t, cmd != nil, "expected quit command after selection")
	assert.Equal(t, p.SelectedBookmark(), results[1].Bookmark)
}

func TestPicker_EnterWithoutResults(t *testing.T) {
	p := New(nil, "zzz")

	p, cmd := press(p, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Assert(t, !p.selected)
	assert.Assert(t, cmd == nil)
	assert.Assert(t, p.SelectedBookmark() == nil)
}

func TestPicker_Cancel(t *testing.T) {
	for _, k := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}, runes("q")} {
		t.Run(k.String(), func(t *testing.T) {
			p := New(twoResults(), "git")
			p, cmd := press(p, k)

			assert.Assert(t, p.Cancelled())
			assert.Assert(t, cmd != nil, "expected quit command after cancel")
			assert.Assert(t, p.SelectedBookmark() == nil)
		})
	}
}

func TestPicker_YankCopiesURL(t *testing.T) {
	var copied string
	p := New(twoResults(), "git", WithClipboard(func(s string) error {
		copied = s
		return nil
	}))
	p.cursor = 1

	p, cmd := press(p, runes("y"))

	assert.Assert(t, cmd == nil)
	assert.Equal(t, copied, "https://gitlab.com")
	assert.Check(t, is.Contains(p.View(), "copied https://gitlab.com"))

	p, _ = press(p, runes("j"))
	assert.Equal(t, p.status, "")
}

func TestPicker_YankFailure(t *testing.T) {
	p := New(twoResults(), "git", WithClipboard(func(string) error {
		return errors.New("no clipboard")
	}))

	p, _ = press(p, runes("y"))

	assert.Check(t, is.Contains(p.View(), "copy failed: no clipboard"))
}

func TestPicker_View(t *testing.T) {
	p := New(twoResults(), "git", WithFolderPaths(map[string]string{"f1": "Dev / Code"}))
	view := p.View()

	assert.Check(t, is.Contains(view, "Search: git (2 results)"))
	assert.Check(t, is.Contains(view, "> GitHub"))
	assert.Check(t, is.Contains(view, "Dev / Code"))
	assert.Check(t, is.Contains(view, "https://gitlab.com"))
	assert.Check(t, is.Contains(view, "enter: open"))
}

func TestPicker_ViewNoMatches(t *testing.T) {
	view := New(nil, "zzz").View()

	assert.Check(t, is.Contains(view, "(0 results)"))
	assert.Check(t, is.Contains(view, "No matches"))
}

func TestPicker_ScrollsWithCursor(t *testing.T) {
	var results []search.SearchResult
	for i := range 10 {
		results = append(results, search.SearchResult{Bookmark: &model.Bookmark{
			ID: string(rune('a' + i)), Title: "Item " + string(rune('A'+i)), URL: "https://x.test",
		}})
	}
	p := New(results, "item")
	m, _ := p.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	p = m.(Picker)

	p, _ = press(p, runes("G"))

	assert.Equal(t, p.cursor, 9)
	view := p.View()
	assert.Check(t, is.Contains(view, "Item J"))
	assert.Check(t, !strings.Contains(view, "Item A"))
}
