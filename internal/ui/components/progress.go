package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizdungeon/internal/ui/theme"
)

// Meter renders a labelled bar for cur out of max, e.g. "HP  ████░░ 40/60".
type Meter struct {
	Label string
	Cur   int
	Max   int
	Width int
	// Health colors the bar by the remaining fraction instead of Secondary.
	Health bool
}

// View renders the meter.
func (m Meter) View() string {
	frac := 0.0
	if m.Max > 0 {
		frac = float64(m.Cur) / float64(m.Max)
	}
	frac = min(max(frac, 0), 1)

	label := ""
	if m.Label != "" {
		label = theme.Body.Render(m.Label) + "  "
	}
	value := fmt.Sprintf(" %d/%d", m.Cur, m.Max)

	barWidth := m.Width - lipgloss.Width(label) - len(value)
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(frac*float64(barWidth) + 0.5)

	style := lipgloss.NewStyle().Foreground(theme.Secondary)
	if m.Health {
		style = theme.HealthColor(frac)
	}
	bar := style.Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("░", barWidth-filled))

	return label + bar + theme.Subtitle.Render(value)
}
