package render

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	headingColor = lipgloss.Color("39")  // Blue
	codeColor    = lipgloss.Color("229") // Light yellow
	quoteColor   = lipgloss.Color("245") // Gray
	linkColor    = lipgloss.Color("86")  // Cyan
	bulletColor  = lipgloss.Color("212") // Pink
	ruleColor    = lipgloss.Color("240") // Dark gray
)

// Styles
var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(headingColor)

	codeStyle = lipgloss.NewStyle().
			Foreground(codeColor)

	codeBlockStyle = lipgloss.NewStyle().
			Foreground(codeColor).
			PaddingLeft(2)

	quoteStyle = lipgloss.NewStyle().
			Foreground(quoteColor).
			Italic(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(linkColor).
			Underline(true)

	bulletStyle = lipgloss.NewStyle().
			Foreground(bulletColor)

	ruleStyle = lipgloss.NewStyle().
			Foreground(ruleColor)
)

// Banner gradient endpoints.
var (
	bannerFrom = lipgloss.Color("#5A56E0")
	bannerTo   = lipgloss.Color("#EE6FF8")
)
