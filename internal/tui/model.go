package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/config"
	"github.com/csheth/arxivlens/internal/highlight"
	"github.com/csheth/arxivlens/internal/papers"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Source Source
	Query  arxiv.QueryDescriptor
	// Terms are the pinned authors and keywords to highlight. Nil highlights
	// nothing.
	Terms *highlight.TermSet
	// Timeout bounds each catalog request. Full-text downloads get four
	// times as long.
	Timeout time.Duration
	Logger  *slog.Logger
	// Clipboard overrides the system clipboard, mostly for tests.
	Clipboard func(string) error
	// Settings is the resolved configuration shown by the config popup.
	Settings config.Config
}

// New returns a tea.Model ready to be mounted into a Program. The first
// fetch starts from Init.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clipboard == nil {
		config.Clipboard = writeClipboard
	}
	if config.Timeout <= 0 {
		config.Timeout = arxiv.DefaultTimeout
	}

	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "filter title, abstract and authors…"
	searchInput.CharLimit = 120
	searchInput.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 10)
	vp.MouseWheelEnabled = true

	authorTerms := highlight.MustTermSet(highlight.Terms(highlight.Author, config.Terms.Texts(highlight.Author)...)...)

	m := &model{
		config:        config,
		keys:          newKeyMap(),
		help:          help.New(),
		stage:         stageList,
		list:          papers.New(arxiv.Feed{}),
		matcher:       highlight.Compile(config.Terms),
		authorMatcher: highlight.Compile(authorTerms),
		searchInput:   searchInput,
		spinner:       spin,
		viewport:      vp,
		layout:        newPageLayout(),
		jobs:          newJobBus(config.Logger),
		fullText:      map[string]string{},
		infoMessage:   "Fetching papers…",
	}
	return m
}

type model struct {
	config Config
	keys   keyMap
	help   help.Model
	stage  stage
	// searchReturn is the stage to restore when the search box closes.
	searchReturn stage

	list          *papers.List
	matcher       *highlight.Matcher
	authorMatcher *highlight.Matcher

	searchInput textinput.Model
	spinner     spinner.Model
	viewport    viewport.Model
	layout      pageLayout
	jobs        *jobBus

	requestID       int
	loading         bool
	fullText        map[string]string
	fullTextLoading string
	detailPaperID   string
	listOffset      int
	showPinned      bool
	helpVisible     bool
	configVisible   bool
	infoMessage     string
	errorMessage    string
}

func (m *model) Init() tea.Cmd {
	return m.startFetch()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.windowWidth = msg.Width
		m.layout.windowHeight = msg.Height
		m.relayout()
		return m, nil
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			if m.fullTextLoading != "" {
				m.refreshDetail(false)
			}
			return m, cmd
		}
		return m, nil
	case jobSignalMsg:
		return m, nil
	case jobResultEnvelope:
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case feedResultMsg:
		m.handleFeedResult(msg)
		return m, nil
	case fullTextResultMsg:
		if m.fullTextLoading == msg.paperID {
			m.fullTextLoading = ""
		}
		if msg.err != nil {
			m.errorMessage = "Full text unavailable: " + msg.err.Error()
		} else {
			m.fullText[msg.paperID] = msg.text
			m.errorMessage = ""
			m.infoMessage = "Full text loaded."
		}
		m.refreshDetail(false)
		return m, nil
	case yankResultMsg:
		if msg.err != nil {
			m.errorMessage = "Copy failed: " + msg.err.Error()
		} else {
			m.errorMessage = ""
			m.infoMessage = fmt.Sprintf("Copied %s to the clipboard.", msg.id)
		}
		return m, nil
	case tea.KeyMsg:
		if m.stage == stageSearch {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		if m.detailVisible() {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		m.help.ShowAll = m.helpVisible
	case key.Matches(msg, m.keys.Config):
		m.configVisible = !m.configVisible
	case key.Matches(msg, m.keys.Clear):
		m.clear()
	case key.Matches(msg, m.keys.Down):
		m.list.SelectNext()
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.Up):
		m.list.SelectPrevious()
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.Top):
		m.list.JumpToTop()
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.Bottom):
		m.list.JumpToBottom()
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.HalfDown):
		m.list.PageDown(m.layout.halfPage())
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.HalfUp):
		m.list.PageUp(m.layout.halfPage())
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.Detail):
		if m.stage == stageDetail {
			m.stage = stageList
		} else {
			m.stage = stageDetail
		}
		m.relayout()
	case key.Matches(msg, m.keys.Search):
		m.searchReturn = m.stage
		m.stage = stageSearch
		m.searchInput.SetValue(m.list.Filter().Query)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.Pinned):
		m.showPinned = !m.showPinned
		m.relayout()
	case key.Matches(msg, m.keys.NewOnly):
		filter := m.list.Filter()
		filter.NewOnly = !filter.NewOnly
		m.list.SetFilter(filter)
		if filter.NewOnly {
			m.infoMessage = "Showing new submissions only."
		} else {
			m.infoMessage = "Showing new submissions and revisions."
		}
		m.refreshDetail(false)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.startFetch()
	case key.Matches(msg, m.keys.FullText):
		return m, m.startFullText()
	case key.Matches(msg, m.keys.Yank):
		paper, ok := m.list.CurrentPaper()
		if !ok {
			return m, nil
		}
		return m, m.jobs.Start(jobKindYank, 0, yankJob(m.config.Clipboard, paper.ShortID()))
	default:
		if m.detailVisible() {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.closeSearch()
		m.applyQuery("")
		return m, nil
	case tea.KeyEnter:
		m.closeSearch()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyQuery(m.searchInput.Value())
	return m, cmd
}

func (m *model) closeSearch() {
	m.searchInput.Blur()
	m.stage = m.searchReturn
	m.relayout()
}

func (m *model) applyQuery(query string) {
	filter := m.list.Filter()
	if filter.Query == query {
		return
	}
	filter.Query = query
	m.list.SetFilter(filter)
	m.refreshDetail(false)
}

// clear closes the innermost overlay: the config popup, help, then the
// detail pane, then the active filter.
func (m *model) clear() {
	switch {
	case m.configVisible:
		m.configVisible = false
	case m.helpVisible:
		m.helpVisible = false
		m.help.ShowAll = false
	case m.stage == stageDetail:
		m.stage = stageList
		m.relayout()
	case m.list.Filter().Active():
		m.list.SetFilter(papers.Filter{})
		m.searchInput.SetValue("")
		m.infoMessage = "Filter cleared."
		m.refreshDetail(false)
	}
}

func (m *model) startFetch() tea.Cmd {
	m.requestID++
	m.loading = true
	m.errorMessage = ""
	m.infoMessage = "Fetching papers…"
	job := m.jobs.Start(jobKindFetch, m.config.Timeout, fetchFeedJob(m.config.Source, m.config.Query, m.requestID))
	return tea.Batch(m.spinner.Tick, job)
}

func (m *model) startFullText() tea.Cmd {
	paper, ok := m.list.CurrentPaper()
	if !ok {
		return nil
	}
	m.stage = stageDetail
	m.relayout()
	if _, cached := m.fullText[paper.ID]; cached || m.fullTextLoading == paper.ID {
		return nil
	}
	m.fullTextLoading = paper.ID
	m.infoMessage = "Downloading PDF…"
	m.refreshDetail(false)
	job := m.jobs.Start(jobKindFullText, 4*m.config.Timeout, fullTextJob(m.config.Source, paper))
	return tea.Batch(m.spinner.Tick, job)
}

func (m *model) handleFeedResult(msg feedResultMsg) {
	if msg.requestID != m.requestID {
		m.config.Logger.Debug("discarding stale feed", slog.Int("request", msg.requestID), slog.Int("current", m.requestID))
		return
	}
	m.loading = false
	if msg.err != nil {
		m.errorMessage = describeFeedError(msg.err)
		m.infoMessage = ""
		return
	}

	m.list.ReplaceFeed(msg.feed)
	m.listOffset = 0
	m.errorMessage = ""
	info := fmt.Sprintf("Loaded %d papers", msg.feed.Len())
	if msg.feed.TotalResults > msg.feed.Len() {
		info += fmt.Sprintf(" of %d", msg.feed.TotalResults)
	}
	if msg.feed.Dropped > 0 {
		info += fmt.Sprintf(" (%d incomplete entries skipped)", msg.feed.Dropped)
	}
	m.infoMessage = info + "."
	m.refreshDetail(true)
}

func (m *model) busy() bool {
	return m.loading || m.fullTextLoading != ""
}

func (m *model) detailVisible() bool {
	return m.stage == stageDetail || (m.stage == stageSearch && m.searchReturn == stageDetail)
}

func (m *model) relayout() {
	width, height := m.layout.windowWidth, m.layout.windowHeight
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.layout.Update(width, height, m.detailVisible(), m.showPinned)
	m.viewport.Width = m.layout.contentWidth - 4
	m.viewport.Height = m.layout.detailHeight
	m.help.Width = width
	m.searchInput.Width = m.layout.contentWidth - 4
	m.refreshDetail(true)
}

// refreshDetail re-renders the detail pane for the selected paper. The
// scroll position resets when the selection changed or force is set.
func (m *model) refreshDetail(force bool) {
	if !m.detailVisible() {
		return
	}
	paper, ok := m.list.CurrentPaper()
	if !ok {
		m.detailPaperID = ""
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.buildDetailContent(paper))
	if force || paper.ID != m.detailPaperID {
		m.viewport.GotoTop()
	}
	m.detailPaperID = paper.ID
}
