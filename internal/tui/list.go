package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// linesPerItem is the number of terminal lines each item occupies.
const linesPerItem = 2

// renderList renders the left panel: the filtered items with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.items) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("Nothing to show")
		return empty
	}

	var lines []string
	for i, it := range m.items {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatItemLine(it, width, i == m.cursor)...)
	}

	// Pad remaining lines
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// formatItemLine formats a single item as two lines:
//
//	line 1: [>] title
//	line 2:    detail (dimmed)
func formatItemLine(it Item, width int, selected bool) []string {
	title := strings.ReplaceAll(it.Title, "\n", " ")
	titleMax := max(width-2, 0)
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "…")
	}

	var line1 string
	if selected {
		line1 = styleListSelected.Render("> " + title)
	} else {
		line1 = "  " + title
	}

	detail := strings.ReplaceAll(it.Detail, "\n", " ")
	detail = strings.ReplaceAll(detail, "\t", " ")
	detailMax := max(width-4, 0) // indent
	if runewidth.StringWidth(detail) > detailMax {
		detail = runewidth.Truncate(detail, detailMax, "…")
	}
	line2 := "    " + styleListDetail.Render(detail)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
