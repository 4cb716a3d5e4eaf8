package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor    = lipgloss.Color("#ff8c00")
	secondaryColor = lipgloss.Color("#ffb347")

	titleStyle           = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	taglineStyle         = lipgloss.NewStyle().Foreground(secondaryColor).Italic(true)
	sectionHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	subjectStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	errorStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	searchHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("190"))
	statusBarStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle             = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	detailBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
	currentLineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	revisionBadgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	newBadgeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#a3be8c")).Bold(true)

	authorHighlightStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#f4a261"))
	keywordHighlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166"))
)
