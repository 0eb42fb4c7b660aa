package terminal

import "github.com/charmbracelet/glamour"

// NewMarkdownRenderer renders assistant replies with glamour, wrapping at width.
func NewMarkdownRenderer(width int) (Renderer, error) {
	if width <= 20 {
		width = 80
	}
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}
