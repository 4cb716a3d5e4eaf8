package papers

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/arxivlens/internal/arxiv"
)

func makeFeed(titles ...string) arxiv.Feed {
	feed := arxiv.Feed{Title: "test"}
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range titles {
		feed.Papers = append(feed.Papers, arxiv.Paper{
			ID:        fmt.Sprintf("http://arxiv.org/abs/2401.%05dv1", i),
			Title:     title,
			Published: published,
			Updated:   published,
		})
	}
	return feed
}

func TestEmptyListNavigation(t *testing.T) {
	t.Parallel()

	l := New(arxiv.Feed{})
	l.SelectNext()
	l.SelectPrevious()
	l.JumpToBottom()
	l.JumpToTop()
	l.PageDown(10)
	l.PageUp(10)

	_, ok := l.CurrentPaper()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Selected())
	assert.Equal(t, 0, l.Len())
	_, ok = l.Snapshot().Current()
	assert.False(t, ok)
}

func TestNavigationClamps(t *testing.T) {
	t.Parallel()

	l := New(makeFeed("a", "b", "c", "d", "e"))
	l.SelectPrevious()
	assert.Equal(t, 0, l.Selected(), "no wraparound at the top")

	l.SelectNext()
	l.SelectNext()
	assert.Equal(t, 2, l.Selected())

	l.JumpToBottom()
	l.SelectNext()
	assert.Equal(t, 4, l.Selected(), "no wraparound at the bottom")

	l.PageUp(3)
	assert.Equal(t, 1, l.Selected())
	l.PageUp(3)
	assert.Equal(t, 0, l.Selected())
	l.PageDown(0)
	assert.Equal(t, 1, l.Selected(), "non-positive page size moves one")
	l.PageDown(100)
	assert.Equal(t, 4, l.Selected())

	l.JumpToTop()
	paper, ok := l.CurrentPaper()
	require.True(t, ok)
	assert.Equal(t, "a", paper.Title)

	l.Select(-3)
	assert.Equal(t, 0, l.Selected())
	l.Select(99)
	assert.Equal(t, 4, l.Selected())
}

func TestReplaceFeedResetsSelection(t *testing.T) {
	t.Parallel()

	l := New(makeFeed("a", "b", "c"))
	l.JumpToBottom()
	l.ReplaceFeed(makeFeed("x", "y"))

	assert.Equal(t, 0, l.Selected())
	paper, ok := l.CurrentPaper()
	require.True(t, ok)
	assert.Equal(t, "x", paper.Title)

	l.ReplaceFeed(arxiv.Feed{})
	_, ok = l.CurrentPaper()
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	feed := makeFeed("Quantum error correction", "Topological codes", "Error mitigation on NISQ devices")
	feed.Papers[1].Summary = "Surface code thresholds for quantum memories."
	feed.Papers[2].Authors = []string{"Ada Lovelace"}
	feed.Papers[2].Updated = feed.Papers[2].Published.Add(48 * time.Hour)

	l := New(feed)
	l.SetFilter(Filter{Query: "QUANTUM"})
	snap := l.Snapshot()
	require.Len(t, snap.Visible, 2)
	assert.Equal(t, "Quantum error correction", snap.Visible[0].Title)
	assert.Equal(t, "Topological codes", snap.Visible[1].Title)

	l.SetFilter(Filter{Query: "error lovelace"})
	snap = l.Snapshot()
	require.Len(t, snap.Visible, 1, "every word must match somewhere")
	assert.Equal(t, "Error mitigation on NISQ devices", snap.Visible[0].Title)

	l.SetFilter(Filter{NewOnly: true})
	assert.Equal(t, 2, l.Len(), "revisions are hidden")

	l.SetFilter(Filter{Query: "no such words"})
	_, ok := l.CurrentPaper()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Selected())

	l.SetFilter(Filter{})
	assert.Equal(t, 3, l.Len())
	assert.False(t, l.Filter().Active())
}

func TestSetFilterKeepsVisibleSelection(t *testing.T) {
	t.Parallel()

	l := New(makeFeed("alpha one", "beta", "alpha two", "gamma"))
	l.Select(2)
	l.SetFilter(Filter{Query: "alpha"})

	paper, ok := l.CurrentPaper()
	require.True(t, ok)
	assert.Equal(t, "alpha two", paper.Title)
	assert.Equal(t, 1, l.Selected())

	l.SetFilter(Filter{Query: "gamma"})
	paper, ok = l.CurrentPaper()
	require.True(t, ok)
	assert.Equal(t, "gamma", paper.Title)
	assert.Equal(t, 0, l.Selected())
}

func TestReplaceFeedKeepsFilter(t *testing.T) {
	t.Parallel()

	l := New(makeFeed("keep me", "drop"))
	l.SetFilter(Filter{Query: "keep"})
	l.ReplaceFeed(makeFeed("drop", "keep this too", "keep and this"))
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "keep", l.Filter().Query)
}

func TestConcurrentReplaceAndSnapshot(t *testing.T) {
	t.Parallel()

	small := makeFeed("a", "b")
	large := makeFeed("a", "b", "c", "d", "e", "f", "g", "h")
	l := New(small)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if i%2 == 0 {
					l.ReplaceFeed(large)
				} else {
					l.ReplaceFeed(small)
				}
				l.JumpToBottom()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := l.Snapshot()
				n := len(snap.Visible)
				if n != len(small.Papers) && n != len(large.Papers) {
					t.Errorf("snapshot saw a partial feed with %d papers", n)
					return
				}
				if n != snap.Feed.Len() {
					t.Errorf("visible papers (%d) disagree with feed (%d)", n, snap.Feed.Len())
					return
				}
				if snap.Selected >= n {
					t.Errorf("selection %d out of range %d", snap.Selected, n)
					return
				}
				l.SelectNext()
			}
		}()
	}
	wg.Wait()
}

func TestFilterRanksBestFirst(t *testing.T) {
	t.Parallel()

	feed := makeFeed("Braiding anyons on a lattice", "Surface codes", "Anyons")
	feed.Papers[1].Summary = "Logical qubits from anyons."
	feed.Papers[2].Updated = feed.Papers[2].Published.Add(24 * time.Hour)

	l := New(feed)
	l.SetFilter(Filter{Query: "anyons"})
	snap := l.Snapshot()
	require.Len(t, snap.Visible, 3)
	assert.Equal(t, "Anyons", snap.Visible[0].Title, "prefix and exact word rank first")
	assert.Equal(t, "Braiding anyons on a lattice", snap.Visible[1].Title)
	assert.Equal(t, "Surface codes", snap.Visible[2].Title)

	l.SetFilter(Filter{Query: "anyons", NewOnly: true})
	snap = l.Snapshot()
	require.Len(t, snap.Visible, 2, "ranking runs after the revision filter")
	assert.Equal(t, "Braiding anyons on a lattice", snap.Visible[0].Title)

	l.SetFilter(Filter{Query: "braidng"})
	assert.Equal(t, 1, l.Len(), "a typo still matches through shared windows")

	assert.True(t, Filter{Query: "surface anyons"}.Matches(feed.Papers[1]))
	assert.False(t, Filter{Query: "anyons", NewOnly: true}.Matches(feed.Papers[2]))
}
