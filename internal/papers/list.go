// Package papers holds the feed being browsed together with its selection
// and filter state.
package papers

import (
	"strings"
	"sync"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/search"
)

var ranker = search.Default()

// Filter narrows the visible papers. The zero value shows everything.
type Filter struct {
	// Query is ranked against title, summary and authors. Matching papers
	// are listed best first.
	Query string
	// NewOnly hides papers that were revised after first publication.
	NewOnly bool
}

// Active reports whether the filter hides anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || f.NewOnly
}

// Matches reports whether paper passes the filter.
func (f Filter) Matches(paper arxiv.Paper) bool {
	if f.NewOnly && paper.IsRevision() {
		return false
	}
	return len(ranker.Rank(f.Query, []string{Haystack(paper)})) == 1
}

// Haystack is the text a filter query is matched against.
func Haystack(paper arxiv.Paper) string {
	return paper.Title + " " + paper.Summary + " " + paper.AuthorLine()
}

// Snapshot is a consistent view of a List for one render pass.
type Snapshot struct {
	Feed     arxiv.Feed
	Visible  []arxiv.Paper
	Selected int
	Filter   Filter
}

// Current returns the selected paper of the snapshot.
func (s Snapshot) Current() (arxiv.Paper, bool) {
	if len(s.Visible) == 0 {
		return arxiv.Paper{}, false
	}
	return s.Visible[s.Selected], true
}

// List is safe for concurrent use. Navigation runs over the papers visible
// under the current filter; selected is always a valid index into them, or
// zero when none are visible.
type List struct {
	mu       sync.RWMutex
	feed     arxiv.Feed
	filter   Filter
	visible  []int
	selected int
}

// New returns a List holding feed with the first paper selected.
func New(feed arxiv.Feed) *List {
	l := &List{}
	l.ReplaceFeed(feed)
	return l
}

// ReplaceFeed swaps in feed and resets the selection to the top. The filter
// is kept.
func (l *List) ReplaceFeed(feed arxiv.Feed) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.feed = feed
	l.visible = l.computeVisible()
	l.selected = 0
}

// SetFilter applies f. The selected paper stays selected when it is still
// visible; otherwise the selection moves to the top.
func (l *List) SetFilter(f Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	previous := -1
	if len(l.visible) > 0 {
		previous = l.visible[l.selected]
	}
	l.filter = f
	l.visible = l.computeVisible()
	l.selected = 0
	for pos, idx := range l.visible {
		if idx == previous {
			l.selected = pos
			break
		}
	}
}

func (l *List) computeVisible() []int {
	candidates := make([]int, 0, len(l.feed.Papers))
	for idx, paper := range l.feed.Papers {
		if !l.filter.NewOnly || !paper.IsRevision() {
			candidates = append(candidates, idx)
		}
	}
	if strings.TrimSpace(l.filter.Query) == "" {
		return candidates
	}

	haystacks := make([]string, len(candidates))
	for i, idx := range candidates {
		haystacks[i] = Haystack(l.feed.Papers[idx])
	}
	ranked := ranker.Rank(l.filter.Query, haystacks)
	visible := make([]int, len(ranked))
	for i, pos := range ranked {
		visible[i] = candidates[pos]
	}
	return visible
}

// Filter returns the active filter.
func (l *List) Filter() Filter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter
}

// Feed returns the held feed.
func (l *List) Feed() arxiv.Feed {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.feed
}

// Len returns the number of visible papers.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.visible)
}

// Selected returns the selected position within the visible papers.
func (l *List) Selected() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.selected
}

// CurrentPaper returns the selected paper; ok is false when nothing is visible.
func (l *List) CurrentPaper() (arxiv.Paper, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.visible) == 0 {
		return arxiv.Paper{}, false
	}
	return l.feed.Papers[l.visible[l.selected]], true
}

// SelectNext moves down one paper, stopping at the last.
func (l *List) SelectNext() { l.move(1) }

// SelectPrevious moves up one paper, stopping at the first.
func (l *List) SelectPrevious() { l.move(-1) }

// PageDown moves down n papers, stopping at the last.
func (l *List) PageDown(n int) {
	if n < 1 {
		n = 1
	}
	l.move(n)
}

// PageUp moves up n papers, stopping at the first.
func (l *List) PageUp(n int) {
	if n < 1 {
		n = 1
	}
	l.move(-n)
}

// JumpToTop selects the first visible paper.
func (l *List) JumpToTop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = 0
}

// JumpToBottom selects the last visible paper.
func (l *List) JumpToBottom() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visible) == 0 {
		l.selected = 0
		return
	}
	l.selected = len(l.visible) - 1
}

// Select moves to position pos, clamped to the visible range.
func (l *List) Select(pos int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = clamp(pos, len(l.visible))
}

func (l *List) move(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = clamp(l.selected+delta, len(l.visible))
}

func clamp(pos, n int) int {
	if n == 0 || pos < 0 {
		return 0
	}
	if pos >= n {
		return n - 1
	}
	return pos
}

// Snapshot returns a consistent copy of the visible papers and selection.
func (l *List) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	visible := make([]arxiv.Paper, len(l.visible))
	for pos, idx := range l.visible {
		visible[pos] = l.feed.Papers[idx]
	}
	return Snapshot{
		Feed:     l.feed,
		Visible:  visible,
		Selected: l.selected,
		Filter:   l.filter,
	}
}
