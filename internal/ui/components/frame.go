package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizdungeon/internal/ui/theme"
)

// ContentWidth clamps the terminal width into the width used for cards.
func ContentWidth(termWidth int) int {
	w := termWidth - 4
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

// Card wraps content in a rounded card of the given outer width.
func Card(content string, width int) string {
	return theme.Card.Width(width).Render(content)
}

// BossCard wraps content in the double border used for boss encounters.
func BossCard(content string, width int) string {
	return theme.BossCard.Width(width).Render(content)
}

// Stack joins blocks vertically, left aligned.
func Stack(blocks ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}
