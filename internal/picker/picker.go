// Package picker is a terminal bookmark picker that searches as the user
// types.
package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

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

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// resultMsg carries a search result into the update loop.
type resultMsg search.Result

// Options configures a Picker.
type Options struct {
	Query  string
	Engine search.Options
	// Copy writes to the clipboard. Defaults to clipboard.WriteAll.
	Copy   func(string) error
	Logger *zap.Logger
}

// Picker lets the user type a query and choose one of the matching bookmarks.
type Picker struct {
	input   textinput.Model
	engine  *search.Engine
	results chan search.Result
	keys    KeyMap
	copy    func(string) error
	log     *zap.Logger

	bookmarks []model.BookmarkWithRelations
	query     string
	lastSeq   uint64
	err       error
	status    string
	cursor    int
	selected  bool
	cancelled bool
	width     int
	height    int
}

// New creates a Picker over searcher.
func New(searcher search.Searcher, opts Options) Picker {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	results := make(chan search.Result, 1)
	engineOpts := opts.Engine
	engineOpts.Logger = opts.Logger
	engineOpts.OnResult = func(r search.Result) {
		// Keep only the newest undelivered result.
		select {
		case <-results:
		default:
		}
		results <- r
	}

	input := textinput.New()
	input.Placeholder = "Search bookmarks..."
	input.Prompt = "> "
	input.SetValue(opts.Query)
	input.Focus()

	return Picker{
		input:   input,
		engine:  search.NewEngine(searcher, engineOpts),
		results: results,
		keys:    DefaultKeyMap(),
		copy:    opts.Copy,
		log:     opts.Logger,
		width:   80,
		height:  24,
	}
}

func waitForResult(ch <-chan search.Result) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(<-ch)
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	if v := p.input.Value(); v != "" {
		p.engine.Type(v)
	}
	return tea.Batch(textinput.Blink, waitForResult(p.results))
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.input.Width = max(msg.Width-4, 10)
		return p, nil

	case resultMsg:
		if msg.Seq >= p.lastSeq {
			p.lastSeq = msg.Seq
			p.query = msg.Query
			p.bookmarks = msg.Bookmarks
			p.err = msg.Err
			p.status = ""
			if p.cursor >= len(p.bookmarks) {
				p.cursor = max(len(p.bookmarks)-1, 0)
			}
		}
		return p, waitForResult(p.results)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Quit):
			p.cancelled = true
			p.engine.Stop()
			return p, tea.Quit

		case key.Matches(msg, p.keys.Select):
			if len(p.bookmarks) == 0 {
				return p, nil
			}
			p.selected = true
			p.engine.Stop()
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.bookmarks)-1 {
				p.cursor++
			}
			return p, nil

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil

		case key.Matches(msg, p.keys.Copy):
			if b := p.current(); b != nil {
				if err := p.copy(b.URL); err != nil {
					p.log.Warn("copy to clipboard failed", zap.Error(err))
					p.status = "copy failed: " + err.Error()
				} else {
					p.status = "copied " + b.URL
				}
			}
			return p, nil
		}
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if v := p.input.Value(); v != before {
		p.cursor = 0
		p.engine.Type(v)
	}
	return p, cmd
}

func (p Picker) current() *model.BookmarkWithRelations {
	if p.cursor < len(p.bookmarks) {
		return &p.bookmarks[p.cursor]
	}
	return nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(p.input.View())
	b.WriteString("\n")
	switch {
	case p.err != nil:
		b.WriteString(errorStyle.Render("search failed: " + p.err.Error()))
	case !search.Searchable(p.input.Value()):
		b.WriteString(statusStyle.Render(fmt.Sprintf("type at least %d characters", search.MinQueryLength)))
	default:
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d results", len(p.bookmarks))))
	}
	b.WriteString("\n\n")

	for i, bm := range p.visible() {
		idx := i + p.offset()
		cursor := "  "
		style := normalStyle
		if idx == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		b.WriteString(cursor + highlight(p.query, bm.Title, style))
		if meta := describe(bm); meta != "" {
			b.WriteString("  " + metaStyle.Render(meta))
		}
		b.WriteString("\n")
		b.WriteString("   " + urlStyle.Render(bm.URL) + "\n")
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(statusStyle.Render(p.status) + "\n")
	}
	help := make([]string, 0, len(p.keys.help()))
	for _, k := range p.keys.help() {
		help = append(help, k.Help().Key+": "+k.Help().Desc)
	}
	b.WriteString(statusStyle.Render(strings.Join(help, "  ")))

	return b.String()
}

// rows is how many results fit on screen, two lines each.
func (p Picker) rows() int {
	return max((p.height-6)/2, 1)
}

func (p Picker) offset() int {
	if p.cursor < p.rows() {
		return 0
	}
	return p.cursor - p.rows() + 1
}

func (p Picker) visible() []model.BookmarkWithRelations {
	start := p.offset()
	end := min(start+p.rows(), len(p.bookmarks))
	if start >= end {
		return nil
	}
	return p.bookmarks[start:end]
}

// highlight renders title with the characters matched by query emphasized.
func highlight(query, title string, base lipgloss.Style) string {
	idx := search.Highlight(query, title)
	if len(idx) == 0 {
		return base.Render(title)
	}
	matched := make(map[int]bool, len(idx))
	for _, i := range idx {
		matched[i] = true
	}

	var b strings.Builder
	for i, r := range title {
		if matched[i] {
			b.WriteString(matchStyle.Inherit(base).Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// describe summarizes a bookmark's folder and tags.
func describe(b model.BookmarkWithRelations) string {
	var parts []string
	if b.Folder != nil {
		parts = append(parts, b.Folder.Name)
	}
	for _, t := range b.Tags {
		parts = append(parts, "#"+t.Name)
	}
	return strings.Join(parts, " ")
}

// SelectedBookmark returns the selected bookmark, or nil if cancelled.
func (p Picker) SelectedBookmark() *model.BookmarkWithRelations {
	if p.cancelled || !p.selected {
		return nil
	}
	return p.current()
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
