package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	popupTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	popupLabelStyle = lipgloss.NewStyle().Foreground(secondaryColor).Width(18)
)

// configView renders the resolved settings as a bordered overlay.
func (m *model) configView() string {
	s := m.config.Settings
	source := s.File
	if source == "" {
		source = "defaults (no config file)"
	}
	query := m.config.Query.SearchQuery()
	if query == "" {
		query = "all papers"
	}
	maxResults := "unset"
	if s.Query.MaxResults > 0 {
		maxResults = fmt.Sprint(s.Query.MaxResults)
	}

	rows := []string{
		popupTitleStyle.Render(" Configuration "),
		popupRow("Config file", source),
		popupRow("Default category", orNone(s.Query.Category)),
		popupRow("Active query", query),
		popupRow("Max results", maxResults),
		popupRow("Sort", strings.TrimSpace(s.Query.SortBy+" "+s.Query.SortOrder)),
		popupRow("Timeout", m.config.Timeout.String()),
		popupRow("User agent", orNone(s.HTTP.UserAgent)),
		"",
		sectionHeaderStyle.Render("Highlighting:"),
		popupRow("Pinned authors", listOrNone(s.Highlight.Authors)),
		popupRow("Keywords", listOrNone(s.Highlight.Keywords)),
		"",
		helperStyle.Render("c or esc to close"),
	}
	box := legendBoxStyle.Render(strings.Join(rows, "\n"))
	return lipgloss.PlaceHorizontal(m.layout.contentWidth, lipgloss.Center, box)
}

func popupRow(label, value string) string {
	return popupLabelStyle.Render(label+":") + " " + value
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "None"
	}
	return value
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
