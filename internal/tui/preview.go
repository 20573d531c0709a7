package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// previewRenderedMsg is sent when an async preview render completes.
type previewRenderedMsg struct {
	key     string
	content string
	err     error
}

// loadPreviewCmd returns a tea.Cmd that renders the item preview async.
func loadPreviewCmd(it Item, width int) tea.Cmd {
	return func() tea.Msg {
		if it.Preview == nil {
			return previewRenderedMsg{key: it.Key}
		}
		content, err := it.Preview(width)
		return previewRenderedMsg{key: it.Key, content: content, err: err}
	}
}

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = stylePanelBorder
	return vp
}
