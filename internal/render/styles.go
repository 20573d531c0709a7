package render

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("12")  // bright blue
	colorSecondary = lipgloss.Color("10")  // bright green
	colorDim       = lipgloss.Color("240") // gray
	colorHighlight = lipgloss.Color("11")  // bright yellow
	colorError     = lipgloss.Color("9")   // bright red
)

type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{title: plain, ok: plain, warn: plain, fail: plain, dim: plain}
	}
	return styles{
		title: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true),
		ok: lipgloss.NewStyle().
			Foreground(colorSecondary),
		warn: lipgloss.NewStyle().
			Foreground(colorHighlight),
		fail: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),
		dim: lipgloss.NewStyle().
			Foreground(colorDim),
	}
}
