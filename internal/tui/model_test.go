package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/config"
	"github.com/csheth/arxivlens/internal/highlight"
	"github.com/csheth/arxivlens/internal/papers"
)

type fakeSource struct {
	mu       sync.Mutex
	feed     arxiv.Feed
	err      error
	text     string
	textErr  error
	searches int
}

func (s *fakeSource) Search(ctx context.Context, q arxiv.QueryDescriptor) (arxiv.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	return s.feed, s.err
}

func (s *fakeSource) FetchFullText(ctx context.Context, paper arxiv.Paper) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.textErr
}

func (s *fakeSource) set(feed arxiv.Feed, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed, s.err = feed, err
}

func testFeed() arxiv.Feed {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return arxiv.Feed{
		TotalResults: 40,
		Papers: []arxiv.Paper{
			{
				ID:        "http://arxiv.org/abs/2401.00001v1",
				Title:     "Topological qubits in practice",
				Authors:   []string{"Ada Lovelace", "Alan Turing"},
				Summary:   "We braid anyons on a lattice.",
				Published: day,
				Updated:   day,
			},
			{
				ID:        "http://arxiv.org/abs/2401.00002v2",
				Title:     "Surface codes revisited",
				Authors:   []string{"Grace Hopper"},
				Summary:   "Threshold estimates for qubit arrays.",
				Published: day,
				Updated:   day.Add(48 * time.Hour),
			},
			{
				ID:        "http://arxiv.org/abs/2401.00003v1",
				Title:     "Classical shadows",
				Authors:   []string{"Alan Turing"},
				Summary:   "Randomized measurements.",
				Published: day,
				Updated:   day,
			},
		},
	}
}

type testHarness struct {
	model     *model
	source    *fakeSource
	clipboard []string
}

func newHarness(t *testing.T, terms ...highlight.Term) *testHarness {
	t.Helper()
	h := &testHarness{source: &fakeSource{feed: testFeed()}}
	var set *highlight.TermSet
	if len(terms) > 0 {
		set = highlight.MustTermSet(terms...)
	}
	q, err := arxiv.BuildQuery(arxiv.Filters{Category: "quant-ph"})
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	teaModel, ok := New(Config{
		Source:  h.source,
		Query:   q,
		Terms:   set,
		Timeout: time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clipboard: func(text string) error {
			h.clipboard = append(h.clipboard, text)
			return nil
		},
	}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	h.model = teaModel
	h.model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

// load runs Init and delivers the fetch results.
func (h *testHarness) load(t *testing.T) {
	t.Helper()
	h.settle(t, h.model.Init())
	if h.model.loading {
		t.Fatal("model still loading after the fetch settled")
	}
}

// settle runs cmd and delivers every message it yields, without following
// the commands returned by Update. Spinner ticks are dropped.
func (h *testHarness) settle(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		h.model.Update(msg)
	}
}

func (h *testHarness) press(keys ...string) {
	for _, k := range keys {
		h.model.Update(keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// runCmd executes cmd and flattens batch and sequence messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	value := reflect.ValueOf(msg)
	if value.Kind() == reflect.Slice {
		var out []tea.Msg
		for i := 0; i < value.Len(); i++ {
			inner, ok := value.Index(i).Interface().(tea.Cmd)
			if !ok {
				continue
			}
			out = append(out, runCmd(inner)...)
		}
		return out
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return nil
	}
	return []tea.Msg{msg}
}

func currentTitle(t *testing.T, m *model) string {
	t.Helper()
	paper, ok := m.list.CurrentPaper()
	if !ok {
		t.Fatal("no paper selected")
	}
	return paper.Title
}

func TestInitLoadsFeed(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	if got := h.model.list.Len(); got != 3 {
		t.Fatalf("visible papers = %d, want 3", got)
	}
	if !strings.Contains(h.model.infoMessage, "Loaded 3 papers of 40") {
		t.Fatalf("info message = %q", h.model.infoMessage)
	}
	view := h.model.View()
	for _, want := range []string{"Topological qubits in practice", "Classical shadows", "3/3 papers"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestNavigationKeys(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.press("j")
	if got := currentTitle(t, h.model); got != "Surface codes revisited" {
		t.Fatalf("after j selected %q", got)
	}
	h.press("G")
	if got := currentTitle(t, h.model); got != "Classical shadows" {
		t.Fatalf("after G selected %q", got)
	}
	h.press("j")
	if got := h.model.list.Selected(); got != 2 {
		t.Fatalf("j past the end moved selection to %d", got)
	}
	h.press("g")
	if got := h.model.list.Selected(); got != 0 {
		t.Fatalf("g selected %d", got)
	}
	h.press("k")
	if got := h.model.list.Selected(); got != 0 {
		t.Fatalf("k before the start moved selection to %d", got)
	}
	h.press("ctrl+d")
	if got := h.model.list.Selected(); got != 2 {
		t.Fatalf("ctrl+d selected %d, want the clamped last row", got)
	}
	h.press("ctrl+u")
	if got := h.model.list.Selected(); got != 0 {
		t.Fatalf("ctrl+u selected %d", got)
	}
}

func TestStaleFeedIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	stale := arxiv.Feed{Papers: []arxiv.Paper{{ID: "old", Title: "Old result"}}}
	h.model.Update(feedResultMsg{requestID: h.model.requestID - 1, feed: stale})
	if got := h.model.list.Len(); got != 3 {
		t.Fatalf("stale result replaced the list, len=%d", got)
	}
}

func TestRefreshSupersedesInFlightFetch(t *testing.T) {
	h := newHarness(t)
	first := h.model.Init()
	h.press("r")
	if h.model.requestID != 2 {
		t.Fatalf("refresh request id = %d, want 2", h.model.requestID)
	}
	// the first fetch lands after the refresh was issued
	h.source.set(arxiv.Feed{Papers: []arxiv.Paper{{ID: "x", Title: "Superseded"}}}, nil)
	h.settle(t, first)
	if h.model.list.Len() != 0 {
		t.Fatalf("superseded fetch was applied")
	}
	if !h.model.loading {
		t.Fatal("refresh should still be loading")
	}
}

func TestFeedErrorKeepsPreviousFeed(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "malformed", err: fmt.Errorf("%w: unexpected EOF", arxiv.ErrMalformed), want: "not a valid feed"},
		{name: "no data", err: arxiv.ErrNoData, want: "No data received"},
		{name: "timeout", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), want: "timed out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.load(t)
			h.press("j")

			h.source.set(arxiv.Feed{}, tc.err)
			h.settle(t, h.model.startFetch())

			if got := h.model.list.Len(); got != 3 {
				t.Fatalf("failed fetch dropped the feed, len=%d", got)
			}
			if !strings.Contains(h.model.errorMessage, tc.want) {
				t.Fatalf("error message = %q, want it to contain %q", h.model.errorMessage, tc.want)
			}
			if !strings.Contains(h.model.View(), tc.want) {
				t.Fatal("error message not rendered")
			}
		})
	}
}

func TestSearchFiltersLive(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.press("/")
	if h.model.stage != stageSearch {
		t.Fatalf("stage = %v, want search", h.model.stage)
	}
	h.press("q", "u", "b", "i", "t")
	if got := h.model.list.Len(); got != 2 {
		t.Fatalf("filter %q left %d papers, want 2", h.model.list.Filter().Query, got)
	}

	h.press("enter")
	if h.model.stage != stageList {
		t.Fatalf("enter left stage %v", h.model.stage)
	}
	if got := h.model.list.Filter().Query; got != "qubit" {
		t.Fatalf("enter dropped the query, got %q", got)
	}
	if !strings.Contains(h.model.View(), "filter: ") {
		t.Fatal("active filter not shown")
	}

	h.press("esc")
	if h.model.list.Filter().Active() || h.model.list.Len() != 3 {
		t.Fatalf("esc did not clear the filter: %+v", h.model.list.Filter())
	}
}

func TestSearchEscClearsQuery(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.press("/", "t", "u", "r", "i", "n", "g")
	if got := h.model.list.Len(); got != 2 {
		t.Fatalf("author filter left %d papers, want 2", got)
	}
	h.press("esc")
	if h.model.stage != stageList || h.model.list.Len() != 3 {
		t.Fatalf("esc in search: stage=%v len=%d", h.model.stage, h.model.list.Len())
	}
}

func TestNewOnlyToggle(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.press("n")
	if got := h.model.list.Len(); got != 2 {
		t.Fatalf("new-only kept %d papers, want 2", got)
	}
	for _, paper := range h.model.list.Snapshot().Visible {
		if paper.IsRevision() {
			t.Fatalf("revision %q shown in new-only mode", paper.Title)
		}
	}
	h.press("n")
	if got := h.model.list.Len(); got != 3 {
		t.Fatalf("toggling back kept %d papers", got)
	}
}

func TestDetailPane(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.press("enter")
	if !h.model.detailVisible() {
		t.Fatal("enter should open the detail pane")
	}
	view := h.model.View()
	for _, want := range []string{"We braid anyons", "Ada Lovelace, Alan Turing", "2401.00001v1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("detail missing %q:\n%s", want, view)
		}
	}

	h.press("j")
	if !strings.Contains(h.model.View(), "Threshold estimates") {
		t.Fatal("detail did not follow the selection")
	}

	h.press("esc")
	if h.model.detailVisible() {
		t.Fatal("esc should close the detail pane")
	}
}

func TestFullTextLoadsIntoDetail(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	h.source.text = "Section one discusses braiding."

	h.settle(t, h.model.startFullText())
	if h.model.fullTextLoading != "" {
		t.Fatal("full text still loading")
	}
	if !strings.Contains(h.model.View(), "Section one discusses braiding.") {
		t.Fatal("full text not rendered")
	}
	// cached texts do not start another job
	if cmd := h.model.startFullText(); cmd != nil {
		t.Fatal("cached full text started a new job")
	}
}

func TestFullTextErrorIsReported(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	h.source.textErr = errors.New("pdf: not a PDF file")

	h.settle(t, h.model.startFullText())
	if !strings.Contains(h.model.errorMessage, "Full text unavailable") {
		t.Fatalf("error message = %q", h.model.errorMessage)
	}
}

func TestYankCopiesShortID(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	h.press("j")

	_, cmd := h.model.Update(keyMsg("y"))
	h.settle(t, cmd)
	if len(h.clipboard) != 1 || h.clipboard[0] != "2401.00002v2" {
		t.Fatalf("clipboard = %v", h.clipboard)
	}
	if !strings.Contains(h.model.infoMessage, "Copied 2401.00002v2") {
		t.Fatalf("info message = %q", h.model.infoMessage)
	}
}

func TestPinnedPanel(t *testing.T) {
	h := newHarness(t,
		highlight.Term{Text: "ada lovelace", Category: highlight.Author},
		highlight.Term{Text: "qubit", Category: highlight.Keyword},
	)
	h.load(t)

	h.press("p")
	view := h.model.View()
	if !strings.Contains(view, "Pinned authors (1)") {
		t.Fatalf("pinned header missing:\n%s", view)
	}
	if h.model.layout.pinnedHeight == 0 {
		t.Fatal("layout has no room for the pinned panel")
	}
}

func TestPinnedPanelWithoutAuthors(t *testing.T) {
	h := newHarness(t, highlight.Term{Text: "qubit", Category: highlight.Keyword})
	h.load(t)

	h.press("p")
	if !strings.Contains(h.model.View(), "Add authors under [highlight]") {
		t.Fatal("expected the pinned panel hint")
	}
}

func TestEmptyFilterResult(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	h.model.list.SetFilter(papers.Filter{Query: "gravitons"})

	if !strings.Contains(h.model.View(), "No papers match the filter") {
		t.Fatal("empty filter result not explained")
	}
	h.press("j", "G", "enter", "y")
	if len(h.clipboard) != 0 {
		t.Fatal("yank with nothing selected should be a no-op")
	}
}

func TestListScrollsWithSelection(t *testing.T) {
	h := newHarness(t)
	feed := arxiv.Feed{}
	for i := 0; i < 60; i++ {
		feed.Papers = append(feed.Papers, arxiv.Paper{ID: fmt.Sprintf("2401.%05d", i), Title: fmt.Sprintf("Paper number %02d", i)})
	}
	h.source.set(feed, nil)
	h.load(t)

	h.press("G")
	view := h.model.View()
	if !strings.Contains(view, "Paper number 59") {
		t.Fatal("last paper not scrolled into view")
	}
	if strings.Contains(view, "Paper number 00") {
		t.Fatal("first paper should have scrolled out of view")
	}
}

func TestQuitKey(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.model.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
}

func TestSearchRanksBestMatchFirst(t *testing.T) {
	h := newHarness(t)
	h.load(t)

	h.press("/", "q", "u", "b", "i", "t", "enter")
	snap := h.model.list.Snapshot()
	if len(snap.Visible) != 2 {
		t.Fatalf("got %d papers, want 2", len(snap.Visible))
	}
	// an exact word beats a word prefix
	if got := snap.Visible[0].Title; got != "Surface codes revisited" {
		t.Fatalf("top match = %q", got)
	}
	if got := currentTitle(t, h.model); got != "Topological qubits in practice" {
		t.Fatalf("selection should follow the paper, got %q", got)
	}
}

func TestConfigPopup(t *testing.T) {
	h := newHarness(t)
	h.model.config.Settings = config.Config{
		Query:     config.QueryConfig{Category: "quant-ph", MaxResults: 50, SortBy: "submittedDate", SortOrder: "descending"},
		Highlight: config.HighlightConfig{Keywords: []string{"qubit", "anyon"}},
		HTTP:      config.HTTPConfig{UserAgent: "arxivlens-test"},
		File:      "/tmp/arxivlens/config.toml",
	}
	h.load(t)

	if strings.Contains(h.model.View(), "Configuration") {
		t.Fatal("popup shown before it was opened")
	}
	h.press("c")
	view := h.model.View()
	for _, want := range []string{
		"Configuration",
		"/tmp/arxivlens/config.toml",
		"Default category:",
		"quant-ph",
		"submittedDate descending",
		"Highlighting:",
		"qubit, anyon",
		"arxivlens-test",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("popup missing %q:\n%s", want, view)
		}
	}
	if !strings.Contains(view, "None") {
		t.Fatal("empty author list should read None")
	}

	h.press("/", "q")
	h.press("esc")
	if !h.model.configVisible {
		t.Fatal("esc in the search box should not close the popup")
	}
	h.press("esc")
	if h.model.configVisible {
		t.Fatal("esc should close the popup first")
	}

	h.press("c", "c")
	if h.model.configVisible {
		t.Fatal("c should toggle the popup")
	}
}
