package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/arxivlens/internal/arxiv"
	"github.com/csheth/arxivlens/internal/highlight"
)

// pageLayout splits the window between the paper list, the optional pinned
// panel and the optional detail pane.
type pageLayout struct {
	windowWidth  int
	windowHeight int
	contentWidth int
	listHeight   int
	pinnedHeight int
	detailHeight int
}

// chromeHeight covers the header, search line, status bar, message line and
// key hints.
const chromeHeight = 5

func newPageLayout() pageLayout {
	l := pageLayout{}
	l.Update(80, 24, false, false)
	return l
}

func (l *pageLayout) Update(width, height int, detail, pinned bool) {
	l.windowWidth = width
	l.windowHeight = height
	l.contentWidth = width - horizontalPadding
	if l.contentWidth < minContentWidth {
		l.contentWidth = minContentWidth
	}

	usable := height - chromeHeight
	if usable < 6 {
		usable = 6
	}
	l.pinnedHeight = 0
	if pinned {
		// header plus entries
		l.pinnedHeight = pinnedPanelLimit + 1
		if l.pinnedHeight > usable/3 {
			l.pinnedHeight = usable / 3
		}
		usable -= l.pinnedHeight
	}
	l.detailHeight = 0
	if detail {
		l.listHeight = usable / 3
		if l.listHeight < 3 {
			l.listHeight = 3
		}
		// the detail box border takes two lines
		l.detailHeight = usable - l.listHeight - 2
		if l.detailHeight < 3 {
			l.detailHeight = 3
		}
		return
	}
	l.listHeight = usable
}

// halfPage is the ctrl+d / ctrl+u step.
func (l pageLayout) halfPage() int {
	if l.listHeight < 2 {
		return 1
	}
	return l.listHeight / 2
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

// renderSegments styles highlighted segments by category on top of base.
func renderSegments(segments []highlight.Segment, base lipgloss.Style) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		switch seg.Category {
		case highlight.Author:
			b.WriteString(authorHighlightStyle.Render(seg.Text))
		case highlight.Keyword:
			b.WriteString(keywordHighlightStyle.Render(seg.Text))
		default:
			b.WriteString(base.Render(seg.Text))
		}
	}
	return b.String()
}

// highlightLine highlights text and truncates the styled result to width
// cells. Truncation is ANSI aware so styles never leak past the cut.
func highlightLine(matcher *highlight.Matcher, text string, base lipgloss.Style, width int) string {
	rendered := renderSegments(matcher.Highlight(text), base)
	if width <= 0 {
		return rendered
	}
	return truncate.StringWithTail(rendered, uint(width), "…")
}

// highlightBlock highlights and word-wraps a paragraph.
func highlightBlock(matcher *highlight.Matcher, text string, base lipgloss.Style, width int) string {
	return wordwrap.String(renderSegments(matcher.Highlight(text), base), width)
}

func (m *model) buildDetailContent(paper arxiv.Paper) string {
	cb := &contentBuilder{}
	wrap := m.wrapWidth(4)

	cb.WriteString(highlightBlock(m.matcher, paper.Title, titleStyle, wrap))
	cb.WriteRune('\n')
	if len(paper.Authors) > 0 {
		cb.WriteString(highlightBlock(m.matcher, paper.AuthorLine(), lipgloss.NewStyle(), wrap))
		cb.WriteRune('\n')
	}
	cb.WriteRune('\n')

	meta := []string{fmt.Sprintf("arXiv: %s", paper.ShortID())}
	if len(paper.Categories) > 0 {
		categories := paper.Categories
		if paper.PrimaryCategory != "" {
			categories = append([]string{paper.PrimaryCategory + " (primary)"}, without(categories, paper.PrimaryCategory)...)
		}
		meta = append(meta, "Categories: "+subjectStyle.Render(strings.Join(categories, ", ")))
	}
	if !paper.Published.IsZero() {
		meta = append(meta, "Published: "+formatDate(paper.Published))
	}
	if paper.IsRevision() {
		meta = append(meta, "Updated: "+formatDate(paper.Updated))
	}
	if paper.Comment != "" {
		meta = append(meta, "Comment: "+paper.Comment)
	}
	if paper.JournalRef != "" {
		meta = append(meta, "Journal: "+paper.JournalRef)
	}
	if paper.DOI != "" {
		meta = append(meta, "DOI: "+paper.DOI)
	}
	if paper.Link != "" {
		meta = append(meta, "Link: "+paper.Link)
	}
	for _, line := range meta {
		cb.WriteString(helperStyle.Render(wordwrap.String(line, wrap)))
		cb.WriteRune('\n')
	}

	cb.WriteRune('\n')
	cb.WriteString(sectionHeaderStyle.Render("Abstract"))
	cb.WriteRune('\n')
	if paper.Summary == "" {
		cb.WriteString(helperStyle.Render("No abstract in the feed."))
	} else {
		cb.WriteString(highlightBlock(m.matcher, paper.Summary, lipgloss.NewStyle(), wrap))
	}
	cb.WriteRune('\n')

	switch {
	case m.fullTextLoading == paper.ID:
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render(m.spinner.View() + " Extracting full text…"))
		cb.WriteRune('\n')
	case m.fullText[paper.ID] != "":
		cb.WriteRune('\n')
		cb.WriteString(sectionHeaderStyle.Render("Full Text"))
		cb.WriteRune('\n')
		cb.WriteString(highlightBlock(m.matcher, previewText(m.fullText[paper.ID], fullTextPreview), lipgloss.NewStyle(), wrap))
		cb.WriteRune('\n')
	default:
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("Press f to load the PDF full text."))
		cb.WriteRune('\n')
	}
	return cb.String()
}

func (m *model) wrapWidth(padding int) int {
	width := m.layout.contentWidth
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func without(items []string, drop string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != drop {
			out = append(out, item)
		}
	}
	return out
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n")
}
