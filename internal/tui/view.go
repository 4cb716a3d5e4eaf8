package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/papers"
)

// listPrefixWidth is the marker, badge and date in front of every title.
const listPrefixWidth = 17

func (m *model) View() string {
	snap := m.list.Snapshot()
	if m.configVisible {
		return joinNonEmpty([]string{m.headerView(), m.configView(), m.statusView(snap), m.messageLine(), m.help.View(m.keys)})
	}
	parts := []string{m.headerView(), m.listView(snap)}
	if m.showPinned {
		parts = append(parts, m.pinnedView(snap))
	}
	if m.detailVisible() {
		parts = append(parts, m.detailView(snap))
	}
	parts = append(parts, m.searchLine(snap), m.statusView(snap), m.messageLine())
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	} else {
		parts = append(parts, m.help.View(m.keys))
	}
	return joinNonEmpty(parts)
}

func (m *model) headerView() string {
	query := m.config.Query.SearchQuery()
	if query == "" {
		query = "all papers"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render("arxivlens"), " ", taglineStyle.Render(query))
	return truncate.StringWithTail(header, uint(m.layout.contentWidth), "…")
}

func (m *model) listView(snap papers.Snapshot) string {
	if len(snap.Visible) == 0 {
		switch {
		case m.loading && snap.Feed.Len() == 0:
			return helperStyle.Render(m.spinner.View() + " Fetching papers…")
		case snap.Feed.Len() == 0:
			return helperStyle.Render("No papers in this feed.")
		default:
			return helperStyle.Render("No papers match the filter. Press esc to clear it.")
		}
	}

	m.scrollIntoView(snap.Selected, len(snap.Visible))
	end := m.listOffset + m.layout.listHeight
	if end > len(snap.Visible) {
		end = len(snap.Visible)
	}
	titleWidth := m.layout.contentWidth - listPrefixWidth
	lines := make([]string, 0, end-m.listOffset)
	for pos := m.listOffset; pos < end; pos++ {
		lines = append(lines, m.listLine(snap.Visible[pos], pos == snap.Selected, titleWidth))
	}
	return strings.Join(lines, "\n")
}

// scrollIntoView moves the list window so the selected row is visible.
func (m *model) scrollIntoView(selected, total int) {
	height := m.layout.listHeight
	if height < 1 {
		height = 1
	}
	if selected < m.listOffset {
		m.listOffset = selected
	}
	if selected >= m.listOffset+height {
		m.listOffset = selected - height + 1
	}
	if maxOffset := total - height; m.listOffset > maxOffset {
		m.listOffset = maxOffset
	}
	if m.listOffset < 0 {
		m.listOffset = 0
	}
}

func (m *model) listLine(paper arxiv.Paper, selected bool, titleWidth int) string {
	base := lipgloss.NewStyle()
	marker := "  "
	if selected {
		base = currentLineStyle
		marker = "▸ "
	}
	badge := newBadgeStyle.Render("new")
	if paper.IsRevision() {
		badge = revisionBadgeStyle.Render("rev")
	}
	date := "          "
	if !paper.Published.IsZero() {
		date = formatDate(paper.Published)
	}
	title := highlightLine(m.matcher, paper.Title, base, titleWidth)
	return base.Render(marker) + badge + " " + helperStyle.Render(date) + " " + title
}

// pinnedView lists visible papers by pinned authors.
func (m *model) pinnedView(snap papers.Snapshot) string {
	header := sectionHeaderStyle.Render("Pinned authors")
	if m.authorMatcher.TermSet().Len() == 0 {
		return joinNonEmpty([]string{header, helperStyle.Render("Add authors under [highlight] in config.toml to pin them here.")})
	}

	limit := m.layout.pinnedHeight - 1
	if limit < 1 {
		limit = 1
	}
	var lines []string
	matches := 0
	for _, paper := range snap.Visible {
		if !m.authorMatcher.MatchesAny(paper.Authors...) {
			continue
		}
		matches++
		if len(lines) < limit {
			line := "• " + highlightLine(m.matcher, paper.Title, lipgloss.NewStyle(), m.layout.contentWidth-2)
			lines = append(lines, line)
		}
	}
	if matches == 0 {
		return joinNonEmpty([]string{header, helperStyle.Render("No papers by pinned authors in this feed.")})
	}
	header = sectionHeaderStyle.Render(fmt.Sprintf("Pinned authors (%d)", matches))
	return joinNonEmpty(append([]string{header}, lines...))
}

func (m *model) detailView(snap papers.Snapshot) string {
	if _, ok := snap.Current(); !ok {
		return detailBoxStyle.Render(helperStyle.Render("Nothing selected."))
	}
	return detailBoxStyle.Render(m.viewport.View())
}

func (m *model) searchLine(snap papers.Snapshot) string {
	if m.stage == stageSearch {
		return m.searchInput.View()
	}
	if snap.Filter.Query != "" {
		return helperStyle.Render("filter: ") + searchHighlightStyle.Render(snap.Filter.Query)
	}
	return ""
}

func (m *model) statusView(snap papers.Snapshot) string {
	stats := []string{fmt.Sprintf("%d/%d papers", len(snap.Visible), snap.Feed.Len())}
	if snap.Feed.TotalResults > 0 {
		stats = append(stats, fmt.Sprintf("%d matching", snap.Feed.TotalResults))
	}
	if len(snap.Visible) > 0 {
		stats = append(stats, fmt.Sprintf("#%d", snap.Selected+1))
	}
	if snap.Filter.NewOnly {
		stats = append(stats, "new only")
	}
	if snap.Feed.Dropped > 0 {
		stats = append(stats, fmt.Sprintf("%d skipped", snap.Feed.Dropped))
	}
	if m.busy() {
		stats = append(stats, m.spinner.View()+" working")
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) messageLine() string {
	if m.errorMessage != "" {
		return errorStyle.Render(m.errorMessage)
	}
	if m.infoMessage != "" {
		return helperStyle.Render(m.infoMessage)
	}
	return ""
}

func (m *model) keyLegendView() string {
	rows := []string{sectionHeaderStyle.Render("Keys")}
	for _, column := range m.keys.FullHelp() {
		var cells []string
		for _, binding := range column {
			if !binding.Enabled() {
				continue
			}
			hint := binding.Help()
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Desc + " ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}
